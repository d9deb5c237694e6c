package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/RyanBlaney/sonido-embed/algorithms/stats"
	"github.com/RyanBlaney/sonido-embed/features"
	"github.com/RyanBlaney/sonido-embed/logging"
	"github.com/RyanBlaney/sonido-embed/transcode"
)

var audioExtensions = []string{".wav", ".mp3", ".flac", ".m4a", ".aac", ".ogg", ".opus"}

var extractNoProgress bool

var extractCmd = &cobra.Command{
	Use:   "extract [file or directory]...",
	Short: "Compute normalized mel-spectrogram tensors for audio files",
	Long: `Decode every audio file given (directories are walked recursively),
compute its [96 x 216] normalized mel-spectrogram tensor and report tensor
statistics. Files that cannot be decoded are listed and skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	flags := extractCmd.Flags()
	flags.Int("workers", 0, "files decoded in parallel (0 = number of CPUs)")
	flags.String("decoder", "wav", "audio decoder (wav, ffmpeg)")
	flags.Duration("max-duration", 0, "decode at most this much audio per file (0 = all)")
	flags.BoolVar(&extractNoProgress, "no-progress", false, "disable the progress bar")

	bindKey(flags, "workers", "features.workers")
	bindKey(flags, "decoder", "decoder.kind")
	bindKey(flags, "max-duration", "decoder.max_duration")
}

// TensorStats summarizes the cell values of one feature tensor
type TensorStats struct {
	Path   string        `json:"path" yaml:"path"`
	Shape  []int         `json:"shape" yaml:"shape"`
	Values stats.Summary `json:"values" yaml:"values"`
}

// ExtractReport is the structured output of the extract command
type ExtractReport struct {
	Files    []TensorStats `json:"files" yaml:"files"`
	Failures []string      `json:"failures" yaml:"failures"`
	Elapsed  string        `json:"elapsed" yaml:"elapsed"`
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := logging.WithFields(logging.Fields{"command": "extract"})

	paths, err := collectAudioFiles(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no audio files found")
	}

	decoder, err := transcode.NewDecoder(cfg.Decoder)
	if err != nil {
		return err
	}
	extractor, err := features.NewExtractor(cfg.Features, decoder)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var (
		progress *mpb.Progress
		bar      *mpb.Bar
	)
	if !extractNoProgress && viper.GetString("output_format") == "table" {
		progress = mpb.New(mpb.WithWidth(64), mpb.WithOutput(os.Stderr))
		bar = progress.AddBar(int64(len(paths)),
			mpb.PrependDecorators(
				decor.Name("Extracting: "),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(
				decor.Percentage(),
				decor.AverageETA(decor.ET_STYLE_GO),
			),
		)
		extractor.OnProgress(func(string, error) { bar.Increment() })
	}

	logger.Info("Starting extraction", logging.Fields{"files": len(paths)})
	start := time.Now()
	result, err := extractor.ExtractBatch(ctx, paths)
	if progress != nil {
		if err != nil {
			bar.Abort(false)
		}
		progress.Wait()
	}
	if err != nil {
		return err
	}

	report := ExtractReport{Elapsed: time.Since(start).Round(time.Millisecond).String()}
	for _, path := range paths {
		tensor, ok := result.Tensors[path]
		if !ok {
			continue
		}
		report.Files = append(report.Files, tensorStats(path, tensor))
	}
	for _, f := range result.Failures {
		report.Failures = append(report.Failures, fmt.Sprintf("%s: %v", f.Path, f.Err))
	}

	out := cmd.OutOrStdout()
	if ok, err := writeStructured(out, viper.GetString("output_format"), report); ok {
		return err
	}

	tw := newTable("Feature tensors", "File", "Shape", "Mean", "Std", "Min", "Max")
	for _, f := range report.Files {
		tw.AppendRow([]any{
			truncate(filepath.Base(f.Path), 48),
			fmt.Sprintf("%dx%d", f.Shape[0], f.Shape[1]),
			f4(f.Values.Mean), f4(f.Values.StdDev), f4(f.Values.Min), f4(f.Values.Max),
		})
	}
	printTable(out, tw)

	fmt.Fprintf(out, "%d extracted, %d failed in %s\n", len(report.Files), len(report.Failures), report.Elapsed)
	for _, f := range report.Failures {
		fmt.Fprintf(out, "  skipped %s\n", f)
	}
	return nil
}

func tensorStats(path string, tensor features.FeatureTensor) TensorStats {
	var values []float64
	for _, row := range tensor {
		values = append(values, row...)
	}
	return TensorStats{Path: path, Shape: tensor.Shape(), Values: stats.Summarize(values)}
}

// collectAudioFiles expands directories into the audio files they contain,
// sorted for stable output
func collectAudioFiles(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && slices.Contains(audioExtensions, strings.ToLower(filepath.Ext(path))) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", arg, err)
		}
	}
	slices.Sort(paths)
	return slices.Compact(paths), nil
}

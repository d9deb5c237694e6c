package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/sonido-embed/config"
	"github.com/RyanBlaney/sonido-embed/logging"
)

var (
	configFile   string
	verbose      bool
	logLevel     string
	logFormat    string
	outputFormat string
	noColor      bool
)

// flagKeys maps flag names to their configuration keys when they differ
var flagKeys = map[string]string{
	"log-level":  "log_level",
	"log-format": "log_format",
	"output":     "output_format",
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sonido-embed",
	Short: "Mel-spectrogram features and embedding diagnostics for a music library",
	Long: `sonido-embed turns audio files into fixed-shape normalized mel-spectrogram
tensors for an audio encoder, and analyzes the embeddings that encoder
produced for a library catalog.

Key features:
- librosa-compatible [96 x 216] feature tensors
- Batch extraction over a bounded worker pool
- Similarity distributions, artist/album/genre separation
- k-means sweeps with cosine silhouette and genre composition
- Nearest-neighbor genre agreement and per-genre outliers`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := bindFlags(cmd, viper.GetViper()); err != nil {
			return err
		}
		return setupLogging()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is $HOME/.config/sonido-embed/sonido-embed.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text",
		"log format (text, json)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table",
		"output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"disable colored log output")
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "sonido-embed"))
		}
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.SetConfigName("sonido-embed")
		viper.SetConfigType("yaml")
	}

	config.BindEnv(viper.GetViper())
	config.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// bindFlags binds every flag of cmd (local and inherited) to its viper key.
// Flags left unset fall back to the config file and environment.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var lastErr error

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok {
			key = strings.ReplaceAll(f.Name, "-", "_")
		}
		if bound, ok := f.Annotations[configKeyAnnotation]; ok && len(bound) > 0 {
			key = bound[0]
		}

		if !f.Changed && v.IsSet(key) {
			val := v.Get(key)
			if err := cmd.Flags().Set(f.Name, flagValue(val)); err != nil {
				lastErr = err
			}
		}
		if err := v.BindPFlag(key, f); err != nil {
			lastErr = err
		}
	})

	return lastErr
}

// configKeyAnnotation ties a subcommand flag to a nested config key
const configKeyAnnotation = "config_key"

// bindKey records the config key a flag overrides
func bindKey(flags *pflag.FlagSet, name, key string) {
	_ = flags.SetAnnotation(name, configKeyAnnotation, []string{key})
}

// flagValue renders a viper value in the form pflag parses
func flagValue(val any) string {
	switch v := val.(type) {
	case []int:
		parts := make([]string, len(v))
		for i, x := range v {
			parts[i] = fmt.Sprint(x)
		}
		return strings.Join(parts, ",")
	case []float64:
		parts := make([]string, len(v))
		for i, x := range v {
			parts[i] = fmt.Sprint(x)
		}
		return strings.Join(parts, ",")
	case []any:
		parts := make([]string, len(v))
		for i, x := range v {
			parts[i] = fmt.Sprint(x)
		}
		return strings.Join(parts, ",")
	case []string:
		return strings.Join(v, ",")
	default:
		return fmt.Sprintf("%v", val)
	}
}

// setupLogging installs the global logger selected by log_format
func setupLogging() error {
	level := logging.ParseLevel(viper.GetString("log_level"))
	if verbose && level > logging.DebugLevel {
		level = logging.DebugLevel
	}

	switch viper.GetString("log_format") {
	case "json":
		zl, err := logging.NewJSONLogger(level)
		if err != nil {
			return fmt.Errorf("failed to build json logger: %w", err)
		}
		logging.SetGlobalLogger(zl)
	default:
		logger := logging.NewDefaultLogger()
		logger.SetLevel(level)
		logging.SetGlobalLogger(logger)
		if noColor {
			logging.DisableColors()
		}
	}
	return nil
}

// loadConfig decodes and validates the merged configuration
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

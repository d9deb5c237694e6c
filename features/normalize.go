package features

import (
	"github.com/RyanBlaney/sonido-embed/algorithms/common"
	"github.com/RyanBlaney/sonido-embed/algorithms/spectral"
)

// FeatureTensor is a normalized [n_mels][target_frames] spectrogram with
// every value in [0, 1]
type FeatureTensor [][]float64

// Shape returns [rows, columns]
func (t FeatureTensor) Shape() []int {
	return PowerSpectrogram(t).Shape()
}

// NormalizeAndResize converts power to dB relative to its peak (floor
// -topDB), maps the result linearly onto [0, 1] and resamples the time
// axis to exactly targetFrames columns. A ShapeError is returned if the
// result is not [len(power)][targetFrames] with finite values in [0, 1].
func NormalizeAndResize(power PowerSpectrogram, topDB float64, targetFrames int) (FeatureTensor, error) {
	if topDB <= 0 {
		return nil, &ConfigError{Field: "features.top_db", Reason: "must be positive"}
	}
	if targetFrames <= 0 {
		return nil, &ConfigError{Field: "features.target_frames", Reason: "must be positive"}
	}
	if len(power) == 0 || len(power[0]) == 0 {
		return nil, &ShapeError{What: "power spectrogram", Got: power.Shape(), Want: []int{len(power), targetFrames}}
	}

	db := spectral.PowerToDB(power, topDB, spectral.DefaultAmin)
	for _, row := range db {
		for j, v := range row {
			row[j] = (v + topDB) / topDB
		}
	}

	tensor := FeatureTensor(common.NewInterpolator().ZoomColumns(db, targetFrames))

	if err := checkTensor(tensor, len(power), targetFrames); err != nil {
		return nil, err
	}
	return tensor, nil
}

// FloorTensor is the all-zero tensor that silence normalizes to
func FloorTensor(rows, cols int) FeatureTensor {
	t := make(FeatureTensor, rows)
	for i := range t {
		t[i] = make([]float64, cols)
	}
	return t
}

func checkTensor(t FeatureTensor, rows, cols int) error {
	want := []int{rows, cols}
	if len(t) != rows {
		return &ShapeError{What: "feature tensor", Got: t.Shape(), Want: want}
	}
	for _, row := range t {
		if len(row) != cols {
			return &ShapeError{What: "feature tensor", Got: []int{len(t), len(row)}, Want: want}
		}
		if !common.IsFinite(row) {
			return &ShapeError{What: "feature tensor values", Got: t.Shape(), Want: want}
		}
		for _, v := range row {
			if v < 0 || v > 1 {
				return &ShapeError{What: "feature tensor value range", Got: t.Shape(), Want: want}
			}
		}
	}
	return nil
}

package spectral

import (
	"math"
)

// DefaultAmin is the power floor applied before taking logarithms
const DefaultAmin = 1e-10

// PowerToDB converts a power spectrogram to decibels relative to its own
// peak, following librosa.power_to_db(S, ref=np.max, top_db=topDB):
//
//	db = 10*log10(max(S, amin)) - 10*log10(max(peak, amin))
//
// clipped to [-topDB, 0]. When the peak is below amin (digital silence)
// every cell is set to -topDB. A new matrix is returned; spec is not
// modified.
func PowerToDB(spec [][]float64, topDB, amin float64) [][]float64 {
	peak := 0.0
	for _, row := range spec {
		for _, v := range row {
			if v > peak {
				peak = v
			}
		}
	}

	silent := peak < amin
	ref := 10 * math.Log10(math.Max(peak, amin))

	out := make([][]float64, len(spec))
	for i, row := range spec {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			if silent {
				out[i][j] = -topDB
				continue
			}
			db := 10*math.Log10(math.Max(v, amin)) - ref
			out[i][j] = math.Min(0, math.Max(db, -topDB))
		}
	}

	return out
}

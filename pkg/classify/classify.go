// Package classify turns raw classifier scores into the per-frame boolean
// that feeds the debouncer.
package classify

// Threshold is the probability above which a frame counts as "glasses detected".
const Threshold = 20.0 / 255.0

const (
	DetectedLabel    = "Glasses detected!"
	NotDetectedLabel = "Glasses not detected"
)

// Probability normalises the class 0 score against the sum of both scores.
// A zero sum yields NaN.
func Probability(score0, score1 float64) float64 {
	return score0 / (score0 + score1)
}

// Raw reports whether the normalised class 0 probability is strictly above Threshold.
// NaN compares false, so a zero sum is never a detection.
func Raw(score0, score1 float64) bool {
	return Probability(score0, score1) > Threshold
}

// Label returns the banner text for a stable state
func Label(detected bool) string {
	if detected {
		return DetectedLabel
	}
	return NotDetectedLabel
}

package types

import "time"

// Scores is the two-element output vector of the glasses classifier.
// Class0 is the "glasses" score, Class1 the "no glasses" score.
type Scores struct {
	Class0 float64 `json:"class0"`
	Class1 float64 `json:"class1"`
}

// Vector returns the scores in model output order
func (s Scores) Vector() []float64 {
	return []float64{s.Class0, s.Class1}
}

// Classification is the result of running one sampled frame through the engine
type Classification struct {
	Scores      Scores        `json:"scores"`
	Probability float64       `json:"probability"`
	Detected    bool          `json:"detected"`
	Latency     time.Duration `json:"latency"`
}

// InputSize is the square side length of the model input tensor
const InputSize = 224

// Channels is the number of interleaved colour channels in the model input tensor
const Channels = 3

package vision

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// modelFile is the on-disk weights format exported by the training pipeline:
// one weight row per class over the flattened normalized image.
type modelFile struct {
	PlantType string      `json:"plant_type"`
	InputSize int         `json:"input_size"`
	Weights   [][]float64 `json:"weights"`
	Bias      []float64   `json:"bias"`
}

type model struct {
	inputSize int
	weights   [][]float64
	bias      []float64
}

// loadModel reads and validates a weights file. wantClasses must match the
// label vocabulary so an out-of-range argmax is structurally impossible.
func loadModel(path string, wantClasses int) (*model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}

	var mf modelFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parse model %s: %w", path, err)
	}
	if mf.InputSize <= 0 {
		return nil, fmt.Errorf("model %s: invalid input size %d", path, mf.InputSize)
	}
	if len(mf.Weights) != wantClasses || len(mf.Bias) != wantClasses {
		return nil, fmt.Errorf("model %s: %d classes, expected %d", path, len(mf.Weights), wantClasses)
	}
	features := mf.InputSize * mf.InputSize * 3
	for i, row := range mf.Weights {
		if len(row) != features {
			return nil, fmt.Errorf("model %s: class %d has %d weights, expected %d", path, i, len(row), features)
		}
	}

	return &model{inputSize: mf.InputSize, weights: mf.Weights, bias: mf.Bias}, nil
}

// forward computes the class logits for one feature vector.
func (m *model) forward(features []float64) []float64 {
	logits := make([]float64, len(m.weights))
	for c, row := range m.weights {
		sum := m.bias[c]
		for i, w := range row {
			sum += w * features[i]
		}
		logits[c] = sum
	}
	return logits
}

// softmax converts logits to a probability distribution.
// Shifted by the max logit for numerical stability.
func softmax(logits []float64) []float64 {
	maxLogit := math.Inf(-1)
	for _, l := range logits {
		if l > maxLogit {
			maxLogit = l
		}
	}
	var total float64
	probs := make([]float64, len(logits))
	for i, l := range logits {
		probs[i] = math.Exp(l - maxLogit)
		total += probs[i]
	}
	for i := range probs {
		probs[i] /= total
	}
	return probs
}

func argmax(probs []float64) int {
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return best
}

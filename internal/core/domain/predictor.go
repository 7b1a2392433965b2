package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// Predictor scores one feature vector and returns a probability in (0, 1).
type Predictor interface {
	Predict(features map[string]float64) (float64, error)
}

// LogisticModel is the serialized artifact format produced by training:
// a bias term plus a named weight per feature, scored through a sigmoid.
// Features absent from the weight map contribute nothing; weights for
// features absent from the input vector likewise contribute nothing.
type LogisticModel struct {
	Bias    float64            `json:"bias"`
	Weights map[string]float64 `json:"weights"`
}

// ParseLogisticModel decodes artifact bytes into a usable predictor.
func ParseLogisticModel(data []byte) (*LogisticModel, error) {
	var m LogisticModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}
	if m.Weights == nil {
		return nil, fmt.Errorf("model artifact has no weights")
	}
	return &m, nil
}

func (m *LogisticModel) Predict(features map[string]float64) (float64, error) {
	z := m.Bias
	for name, value := range features {
		if w, ok := m.Weights[name]; ok {
			z += w * value
		}
	}
	return 1 / (1 + math.Exp(-z)), nil
}

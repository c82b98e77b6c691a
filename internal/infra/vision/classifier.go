package vision

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"sync"

	"go.uber.org/zap"

	domain "github.com/guyp-app/plantcare-api/internal/domain/analysis"
)

// Classifier runs the per-plant-type disease models. Models are loaded
// lazily, once per plant type for the process lifetime; a load failure is
// cached and stays fatal for that type until restart.
type Classifier struct {
	paths map[domain.PlantType]string

	mu     sync.Mutex
	models map[domain.PlantType]*model
	failed map[domain.PlantType]error
}

func New(paths map[domain.PlantType]string) *Classifier {
	return &Classifier{
		paths:  paths,
		models: make(map[domain.PlantType]*model),
		failed: make(map[domain.PlantType]error),
	}
}

// Predict implements the Classifier port.
func (c *Classifier) Predict(ctx context.Context, imageBytes []byte, pt domain.PlantType) (domain.Prediction, error) {
	// reject unknown plant types before any model is touched
	labels, err := domain.ClassNames(pt)
	if err != nil {
		return domain.Prediction{}, err
	}

	m, err := c.model(pt, len(labels))
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("%w: %v", domain.ErrInference, err)
	}

	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("%w: %v", domain.ErrInvalidImage, err)
	}

	if err := ctx.Err(); err != nil {
		return domain.Prediction{}, err
	}

	features := preprocess(img, m.inputSize)
	probs := softmax(m.forward(features))
	classID := argmax(probs)

	label, err := domain.ClassName(pt, classID)
	if err != nil {
		return domain.Prediction{}, err
	}

	return domain.Prediction{
		PlantType:  pt,
		ClassID:    classID,
		Label:      label,
		Confidence: math.Round(probs[classID]*10000) / 10000,
	}, nil
}

// model returns the cached model for a plant type, loading it under a guard
// on first use so concurrent requests never load twice.
func (c *Classifier) model(pt domain.PlantType, wantClasses int) (*model, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m, ok := c.models[pt]; ok {
		return m, nil
	}
	if err, ok := c.failed[pt]; ok {
		return nil, err
	}

	path, ok := c.paths[pt]
	if !ok || path == "" {
		err := fmt.Errorf("no model configured for plant type %q", pt)
		c.failed[pt] = err
		return nil, err
	}

	m, err := loadModel(path, wantClasses)
	if err != nil {
		// fatal for this plant type until process restart
		c.failed[pt] = err
		zap.L().Error("model load failed",
			zap.String("plant_type", string(pt)),
			zap.String("path", path),
			zap.Error(err))
		return nil, err
	}

	c.models[pt] = m
	zap.L().Info("model loaded",
		zap.String("plant_type", string(pt)),
		zap.String("path", path))
	return m, nil
}

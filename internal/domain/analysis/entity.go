package analysis

import (
	"time"

	"github.com/guyp-app/plantcare-api/internal/domain/ai"
)

// ID type for Analysis
type AnalysisID string

// PlantType enum
type PlantType string

const (
	PlantTomato PlantType = "tomato"
	PlantPotato PlantType = "potato"
	PlantPepper PlantType = "pepper"
)

// ParsePlantType validates a raw plant type against the closed set.
func ParsePlantType(s string) (PlantType, error) {
	switch PlantType(s) {
	case PlantTomato, PlantPotato, PlantPepper:
		return PlantType(s), nil
	}
	return "", ErrUnsupportedPlantType
}

// Location value object, pass-through coordinates from the mobile client
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Prediction is the classifier output for one image.
type Prediction struct {
	PlantType  PlantType `json:"plant_type"`
	ClassID    int       `json:"class_id"`
	Label      string    `json:"prediction"`
	Confidence float64   `json:"confidence"`
}

// Aggregate Root: Analysis
//
// Created once with the base fields (phase 1); the AI fields are filled in by
// a single later update (phase 2) and stay null until enrichment completes.
type Analysis struct {
	ID          AnalysisID      `json:"id"`
	UserID      string          `json:"user_id"`
	PlantType   PlantType       `json:"plant_type"`
	Prediction  string          `json:"prediction"`
	Confidence  float64         `json:"confidence"`
	Location    Location        `json:"location"`
	ImageRef    string          `json:"image_ref"`
	AIResponse  *ai.Explanation `json:"ai_response,omitempty"`
	AISummary   *ai.Summary     `json:"ai_summary,omitempty"`
	AIGenerated bool            `json:"ai_generated"`
	CreatedAt   time.Time       `json:"created_at"`
}

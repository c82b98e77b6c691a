package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	domain "github.com/guyp-app/plantcare-api/internal/domain/analysis"
)

func TestBuildPlantPrompt_AllFields(t *testing.T) {
	p := domain.Prediction{
		PlantType:  domain.PlantTomato,
		ClassID:    2,
		Label:      "Late_blight",
		Confidence: 0.9312,
	}
	loc := &domain.Location{Lat: 4.6097, Lng: -74.0817}

	out := BuildPlantPrompt(p, loc)

	assert.Contains(t, out, "Tipo de planta: tomato")
	assert.Contains(t, out, "Posible condición detectada: Late_blight")
	assert.Contains(t, out, "Confianza del modelo: 93.1%")
	assert.Contains(t, out, "coordenadas (4.6097, -74.0817)")
	assert.Contains(t, out, "banderas rojas")
}

func TestBuildPlantPrompt_OmitsConfidenceWhenZero(t *testing.T) {
	p := domain.Prediction{PlantType: domain.PlantPotato, Label: "Healthy"}

	out := BuildPlantPrompt(p, nil)

	assert.NotContains(t, out, "Confianza del modelo")
	assert.NotContains(t, out, "coordenadas")
	assert.Contains(t, out, "Posible condición detectada: Healthy")
}

func TestBuildPlantPrompt_Deterministic(t *testing.T) {
	p := domain.Prediction{PlantType: domain.PlantPepper, Label: "Bacterial_spot", Confidence: 0.5}
	loc := &domain.Location{Lat: 1, Lng: 2}

	assert.Equal(t, BuildPlantPrompt(p, loc), BuildPlantPrompt(p, loc))
}

func TestBuildPlantPrompt_NoLeadingOrTrailingSpace(t *testing.T) {
	out := BuildPlantPrompt(domain.Prediction{PlantType: domain.PlantTomato, Label: "Healthy"}, nil)
	assert.Equal(t, strings.TrimSpace(out), out)
}

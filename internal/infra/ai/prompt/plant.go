package prompt

import (
	"fmt"
	"strings"

	domain "github.com/guyp-app/plantcare-api/internal/domain/analysis"
)

// BuildPlantPrompt turns a prediction plus optional location into the
// instruction prompt for the generative backend. Pure and deterministic;
// missing optional fields (confidence, location) just drop their clause.
func BuildPlantPrompt(p domain.Prediction, loc *domain.Location) string {
	var b strings.Builder

	b.WriteString("Se ha analizado una imagen de una planta usando un modelo de visión por computadora.\n\n")
	b.WriteString("Resultado del modelo:\n")
	fmt.Fprintf(&b, "- Tipo de planta: %s\n", p.PlantType)
	fmt.Fprintf(&b, "- Posible condición detectada: %s\n", p.Label)
	if p.Confidence > 0 {
		fmt.Fprintf(&b, "- Confianza del modelo: %.1f%%\n", p.Confidence*100)
	}

	if loc != nil {
		fmt.Fprintf(&b,
			"\nLa planta se encuentra ubicada aproximadamente en las coordenadas (%v, %v). "+
				"Ten en cuenta condiciones climáticas y ambientales comunes en esta región.\n",
			loc.Lat, loc.Lng)
	}

	b.WriteString(`
Explica de forma educativa:
- Qué podría significar esta condición
- Recomendaciones generales de cuidado
- Señales de alerta (banderas rojas)
- Cuándo buscar ayuda agrícola especializada

Usa un lenguaje claro para usuarios no expertos.`)

	return strings.TrimSpace(b.String())
}

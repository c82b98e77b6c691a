package ai

// Disclaimer is appended to every explanation and summary, real or fallback.
const Disclaimer = "Información educativa. No reemplaza asesoría agrícola profesional."

const (
	fallbackMessage = "No pude generar una respuesta en este momento. Por favor intenta nuevamente."
	fallbackTopic   = "Salud vegetal"
)

// Explanation is the full structured response shown to the user.
// Wire field names match the mobile client contract.
type Explanation struct {
	Message        string   `json:"mensaje"`
	SelfCare       []string `json:"autocuidado,omitempty"`
	RedFlags       []string `json:"banderas_rojas,omitempty"`
	WhenToSeekHelp string   `json:"cuando_buscar_atencion,omitempty"`
	Disclaimer     string   `json:"descargo"`
}

// Valid reports whether the mandatory fields are present.
func (e Explanation) Valid() bool {
	return e.Message != "" && e.Disclaimer != ""
}

// Summary is the condensed version stored alongside the full response.
type Summary struct {
	Topic      string `json:"tema"`
	Summary    string `json:"resumen"`
	Disclaimer string `json:"descargo"`
}

// Valid reports whether the mandatory fields are present.
func (s Summary) Valid() bool {
	return s.Topic != "" && s.Summary != "" && s.Disclaimer != ""
}

// FallbackExplanation is the deterministic payload used when the generative
// backend fails or returns unusable output.
func FallbackExplanation() Explanation {
	return Explanation{
		Message:    fallbackMessage,
		Disclaimer: Disclaimer,
	}
}

// FallbackSummary derives the deterministic summary from whatever explanation
// was produced (real or fallback).
func FallbackSummary(full Explanation) Summary {
	return Summary{
		Topic:      fallbackTopic,
		Summary:    full.Message,
		Disclaimer: Disclaimer,
	}
}

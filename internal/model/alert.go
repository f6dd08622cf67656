package model

// Tone classifies an alert.
type Tone string

const (
	ToneSuccess Tone = "success"
	ToneWarning Tone = "warning"
	ToneDanger  Tone = "danger"
	ToneInfo    Tone = "info"
)

// Badge returns the single glyph shown next to an alert of this tone.
func (t Tone) Badge() string {
	switch t {
	case ToneSuccess:
		return "✓"
	case ToneWarning:
		return "⚠"
	case ToneDanger:
		return "×"
	default:
		return "ℹ"
	}
}

// Alert is one budget insight.
type Alert struct {
	Tone    Tone   `json:"tone"`
	Message string `json:"message"`
}

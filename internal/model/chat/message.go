package chat

import "encoding/json"

// Default values substituted when a completion entry omits a field or uses a
// value outside the presentation vocabulary.
const (
	DefaultText       = "Oops, something went wrong!"
	DefaultExpression = "default"
	DefaultAnimation  = "Idle"
)

// FacialExpressions lists the expression hints the rendering layer understands.
var FacialExpressions = []string{"smile", "angry", "sad", "default"}

// Animations lists the animation clips available on the avatar model.
var Animations = []string{"Talking_1", "Idle", "Terrified", "Angry", "Crying"}

// EmptyLipSync is the timing payload attached when extraction fails or has not
// run yet; the front-end renders it as a closed mouth.
var EmptyLipSync = json.RawMessage(`{}`)

// Message is one speakable unit, consumed front-to-back by the avatar
// front-end. Every field is present in serialized output.
type Message struct {
	Text             string          `json:"text"`
	Audio            string          `json:"audio"`
	Lipsync          json.RawMessage `json:"lipsync"`
	FacialExpression string          `json:"facialExpression"`
	Animation        string          `json:"animation"`
}

// Normalize fills missing fields with defaults and clamps expression and
// animation values to the fixed vocabulary.
func (m *Message) Normalize() {
	if m.Text == "" {
		m.Text = DefaultText
	}
	if !contains(FacialExpressions, m.FacialExpression) {
		m.FacialExpression = DefaultExpression
	}
	if !contains(Animations, m.Animation) {
		m.Animation = DefaultAnimation
	}
	if len(m.Lipsync) == 0 {
		m.Lipsync = EmptyLipSync
	}
}

func contains(vocab []string, v string) bool {
	for _, item := range vocab {
		if item == v {
			return true
		}
	}
	return false
}

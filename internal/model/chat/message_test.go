package chat

import "testing"

func TestNormalizeFillsDefaults(t *testing.T) {
	m := Message{}
	m.Normalize()

	if m.Text != DefaultText {
		t.Fatalf("unexpected text: %q", m.Text)
	}
	if m.FacialExpression != DefaultExpression {
		t.Fatalf("unexpected expression: %q", m.FacialExpression)
	}
	if m.Animation != DefaultAnimation {
		t.Fatalf("unexpected animation: %q", m.Animation)
	}
	if string(m.Lipsync) != "{}" {
		t.Fatalf("unexpected lipsync: %s", m.Lipsync)
	}
}

func TestNormalizeKeepsValidValues(t *testing.T) {
	m := Message{Text: "Hi!", FacialExpression: "smile", Animation: "Talking_1"}
	m.Normalize()

	if m.Text != "Hi!" || m.FacialExpression != "smile" || m.Animation != "Talking_1" {
		t.Fatalf("valid values were rewritten: %+v", m)
	}
}

func TestNormalizeClampsUnknownVocabulary(t *testing.T) {
	m := Message{Text: "Hi!", FacialExpression: "smirk", Animation: "Backflip"}
	m.Normalize()

	if m.FacialExpression != DefaultExpression {
		t.Fatalf("unknown expression not clamped: %q", m.FacialExpression)
	}
	if m.Animation != DefaultAnimation {
		t.Fatalf("unknown animation not clamped: %q", m.Animation)
	}
}

package speech

// Voice describes one entry of the provider voice catalog.
type Voice struct {
	VoiceID  string `json:"voice_id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// VoiceList is the provider's voice listing payload, proxied verbatim to the
// front-end.
type VoiceList struct {
	Voices []Voice `json:"voices"`
}

// TTSRequest is the JSON body of a synthesis call.
type TTSRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

// VoiceSettings tunes the synthesis voice; values are fixed per deployment.
type VoiceSettings struct {
	Stability  float64 `json:"stability"`
	Similarity float64 `json:"similarity_boost"`
}

// ASRResponse is the transcription payload returned by the provider.
type ASRResponse struct {
	Text string `json:"text"`
}

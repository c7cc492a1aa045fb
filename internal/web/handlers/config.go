package handlers

import (
	"net/http"

	"github.com/maimood/mood-coach/internal/capture"
	"github.com/maimood/mood-coach/internal/emotion"
)

// ConfigHandler exposes display configuration to the frontend.
type ConfigHandler struct {
	provider string
}

// NewConfigHandler creates a new config handler.
func NewConfigHandler(provider string) *ConfigHandler {
	return &ConfigHandler{provider: provider}
}

type emotionInfo struct {
	Label    emotion.Label `json:"label"`
	Emoji    string        `json:"emoji"`
	Color    string        `json:"color"`
	Gradient []string      `json:"gradient"`
}

// Get returns the emotion vocabulary with display attributes and the active
// recommendation provider.
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	labels := emotion.Labels()
	emotions := make([]emotionInfo, 0, len(labels))
	for _, label := range labels {
		emotions = append(emotions, emotionInfo{
			Label:    label,
			Emoji:    emotion.Emoji(string(label)),
			Color:    emotion.Color(string(label)),
			Gradient: emotion.Gradient(string(label)),
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"recommend_provider": h.provider,
		"modes":              []capture.Mode{capture.ModeImage, capture.ModeAudio, capture.ModeBoth},
		"emotions":           emotions,
	})
}

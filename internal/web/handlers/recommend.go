package handlers

import (
	"net/http"

	"github.com/maimood/mood-coach/internal/emotion"
	"github.com/maimood/mood-coach/internal/recommend"
)

// RecommendHandler serves activity suggestions for a mood.
type RecommendHandler struct {
	service *recommend.Service
}

// NewRecommendHandler creates a new recommendation handler.
func NewRecommendHandler(service *recommend.Service) *RecommendHandler {
	return &RecommendHandler{service: service}
}

// Get returns suggestions for the emotion given in the query string.
// Unknown spellings fall back to neutral.
func (h *RecommendHandler) Get(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("emotion")
	if raw == "" {
		respondError(w, http.StatusBadRequest, "emotion is required")
		return
	}

	mood, _ := emotion.Normalize(raw)
	suggestions := h.service.Suggest(r.Context(), mood)

	respondJSON(w, http.StatusOK, map[string]any{
		"emotion":     mood,
		"provider":    h.service.Provider(),
		"suggestions": suggestions,
	})
}

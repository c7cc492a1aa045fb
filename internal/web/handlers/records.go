package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/maimood/mood-coach/internal/emotion"
	"github.com/maimood/mood-coach/internal/history"
	"github.com/maimood/mood-coach/internal/store"
	"github.com/maimood/mood-coach/internal/web/middleware"
)

// RecordsHandler persists and lists analysis records.
type RecordsHandler struct {
	records store.RecordRepository
	users   store.UserRepository
}

// NewRecordsHandler creates a new records handler.
func NewRecordsHandler(records store.RecordRepository, users store.UserRepository) *RecordsHandler {
	return &RecordsHandler{records: records, users: users}
}

type saveRecordRequest struct {
	Mode         string            `json:"mode"`
	Emotion      string            `json:"emotion"`
	ImageEmotion string            `json:"image_emotion"`
	AudioEmotion string            `json:"audio_emotion"`
	Confidence   *float64          `json:"confidence"`
	FaceCoords   *store.FaceCoords `json:"face_coords"`

	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
	FileType string `json:"file_type"`
	HasImage bool   `json:"has_image"`
	HasAudio bool   `json:"has_audio"`

	OriginalImageBase64 string `json:"original_image_base64"`
	CropImageBase64     string `json:"crop_image_base64"`

	Device struct {
		UserAgent string `json:"user_agent"`
		Language  string `json:"language"`
		Platform  string `json:"platform"`
	} `json:"device"`
}

// Save appends a record for the authenticated user. Emotion spellings are
// normalized before they hit the store.
func (h *RecordsHandler) Save(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())

	var req saveRecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	user, err := h.users.GetByID(r.Context(), session.UserID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load account")
		return
	}

	rec := &store.Record{
		UserID:          user.ID,
		UserEmail:       user.Email,
		UserDisplayName: user.DisplayName,
		Mode:            req.Mode,
		FaceCoords:      req.FaceCoords,

		FileName: req.FileName,
		FileSize: req.FileSize,
		FileType: req.FileType,
		HasImage: req.HasImage,
		HasAudio: req.HasAudio,

		OriginalImageBase64: req.OriginalImageBase64,
		CropImageBase64:     req.CropImageBase64,

		UserAgent: req.Device.UserAgent,
		Language:  req.Device.Language,
		Platform:  req.Device.Platform,
	}

	if req.Emotion != "" {
		label, _ := emotion.Normalize(req.Emotion)
		rec.Emotion = string(label)
	}
	if req.ImageEmotion != "" {
		label, _ := emotion.Normalize(req.ImageEmotion)
		rec.ImageEmotion = string(label)
	}
	if req.AudioEmotion != "" {
		label, _ := emotion.Normalize(req.AudioEmotion)
		rec.AudioEmotion = string(label)
	}
	if req.Confidence != nil {
		rec.Confidence = *req.Confidence
		rec.HasConfidence = true
	}

	id, err := h.records.Save(r.Context(), rec)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *RecordsHandler) respondStoreError(w http.ResponseWriter, err error) {
	switch {
	case err == store.ErrNothingToSave:
		respondError(w, http.StatusBadRequest, "nothing to save")
		return
	}

	switch store.KindOf(err) {
	case store.KindPermission:
		respondError(w, http.StatusForbidden, "permission denied by storage")
	case store.KindQuota:
		respondError(w, http.StatusTooManyRequests, "storage quota exceeded")
	case store.KindNetwork:
		respondError(w, http.StatusServiceUnavailable, "storage unreachable")
	case store.KindConflict:
		respondError(w, http.StatusConflict, "conflicting record")
	default:
		log.Printf("record save failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to save record")
	}
}

type recordResponse struct {
	ID           string            `json:"id"`
	Mode         string            `json:"mode"`
	Emotion      string            `json:"emotion"`
	Emoji        string            `json:"emoji"`
	Color        string            `json:"color"`
	ImageEmotion string            `json:"image_emotion,omitempty"`
	AudioEmotion string            `json:"audio_emotion,omitempty"`
	Confidence   *float64          `json:"confidence,omitempty"`
	FaceCoords   *store.FaceCoords `json:"face_coords,omitempty"`
	FileName     string            `json:"file_name,omitempty"`
	HasImage     bool              `json:"has_image"`
	HasAudio     bool              `json:"has_audio"`
	CreatedAt    string            `json:"created_at"`
}

// List returns the authenticated user's records, newest first.
func (h *RecordsHandler) List(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())

	limit := history.MaxEntries
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= history.MaxEntries {
			limit = n
		}
	}

	records, err := h.records.ListByUser(r.Context(), session.UserID, limit)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}

	resp := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		item := recordResponse{
			ID:           rec.ID,
			Mode:         rec.Mode,
			Emotion:      rec.Emotion,
			Emoji:        emotion.Emoji(rec.Emotion),
			Color:        emotion.Color(rec.Emotion),
			ImageEmotion: rec.ImageEmotion,
			AudioEmotion: rec.AudioEmotion,
			FaceCoords:   rec.FaceCoords,
			FileName:     rec.FileName,
			HasImage:     rec.HasImage,
			HasAudio:     rec.HasAudio,
			CreatedAt:    rec.CreatedAt.Format(time.RFC3339),
		}
		if rec.HasConfidence {
			confidence := rec.Confidence
			item.Confidence = &confidence
		}
		resp = append(resp, item)
	}

	respondJSON(w, http.StatusOK, map[string]any{"records": resp})
}

// Stats returns the profile aggregates for the authenticated user.
func (h *RecordsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())

	records, err := h.records.ListByUser(r.Context(), session.UserID, history.MaxEntries)
	if err != nil {
		h.respondStoreError(w, err)
		return
	}

	stats := history.Compute(records, time.Now())

	// Total reflects all records, not just the listed window.
	if total, err := h.records.CountByUser(r.Context(), session.UserID); err == nil {
		stats.Total = total
	}

	respondJSON(w, http.StatusOK, stats)
}

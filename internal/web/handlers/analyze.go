package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/maimood/mood-coach/internal/capture"
	"github.com/maimood/mood-coach/internal/emotion"
	"github.com/maimood/mood-coach/internal/predictor"
)

// maxUploadBytes caps the analyze request body (image + audio).
const maxUploadBytes = 32 << 20

// AnalyzeHandler forwards captured media to the inference service.
type AnalyzeHandler struct {
	predictor *predictor.Client
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(client *predictor.Client) *AnalyzeHandler {
	return &AnalyzeHandler{predictor: client}
}

// AnalyzeResponse is the enriched analysis result for display.
type AnalyzeResponse struct {
	Emotion       emotion.Label `json:"emotion"`
	Emoji         string        `json:"emoji"`
	Color         string        `json:"color"`
	Gradient      []string      `json:"gradient"`
	Confidence    float64       `json:"confidence,omitempty"`
	HasConfidence bool          `json:"has_confidence"`

	ImageEmotion emotion.Label `json:"image_emotion,omitempty"`
	AudioEmotion emotion.Label `json:"audio_emotion,omitempty"`

	FaceCrop   string                `json:"face_crop,omitempty"`
	FaceCoords *predictor.FaceCoords `json:"face_coords,omitempty"`
}

// Analyze accepts a multipart form with optional "mode", "image" and "audio"
// fields and runs the matching inference. Combined mode is rejected locally
// unless both payloads are present; no partial request reaches the service.
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	mode, err := capture.ParseMode(r.FormValue("mode"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	image := readUpload(r, "image")
	audio := readUpload(r, "audio")

	switch mode {
	case capture.ModeImage:
		if image == nil {
			respondError(w, http.StatusBadRequest, "image is required")
			return
		}
		audio = nil
	case capture.ModeAudio:
		if audio == nil {
			respondError(w, http.StatusBadRequest, "audio is required")
			return
		}
		image = nil
	case capture.ModeBoth:
		if image == nil || audio == nil {
			respondError(w, http.StatusBadRequest, "both image and audio are required")
			return
		}
	}

	// The request context aborts the upstream call when the client
	// disconnects or resets.
	result, err := h.predictor.Analyze(r.Context(), image, audio)
	if err != nil {
		h.respondAnalyzeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, AnalyzeResponse{
		Emotion:       result.Emotion,
		Emoji:         emotion.Emoji(string(result.Emotion)),
		Color:         emotion.Color(string(result.Emotion)),
		Gradient:      emotion.Gradient(string(result.Emotion)),
		Confidence:    result.Confidence,
		HasConfidence: result.HasConfidence,
		ImageEmotion:  result.ImageEmotion,
		AudioEmotion:  result.AudioEmotion,
		FaceCrop:      result.FaceCrop,
		FaceCoords:    result.FaceCoords,
	})
}

func (h *AnalyzeHandler) respondAnalyzeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		// Client went away; nothing useful to write.
		return
	}

	if apiErr, ok := predictor.AsAPIError(err); ok {
		switch apiErr.Kind {
		case predictor.KindAPI:
			respondError(w, http.StatusBadGateway, apiErr.Message)
		case predictor.KindProtocol:
			respondError(w, http.StatusBadGateway, apiErr.Message)
		case predictor.KindNetwork:
			respondError(w, http.StatusServiceUnavailable, "inference service unreachable")
		default:
			respondError(w, http.StatusBadGateway, apiErr.Message)
		}
		return
	}

	log.Printf("analyze failed: %v", err)
	respondError(w, http.StatusInternalServerError, "analysis failed")
}

// readUpload pulls a form file into a predictor upload, nil when absent.
func readUpload(r *http.Request, field string) *predictor.Upload {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil || len(data) == 0 {
		return nil
	}

	return &predictor.Upload{Name: header.Filename, Data: data}
}

// Package predictor is the typed client for the external emotion-inference
// HTTP service. The service is a black box: one multipart POST per analysis,
// JSON in response, no retries.
package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/maimood/mood-coach/internal/emotion"
)

// DefaultTimeout bounds a single inference call. The request context may
// cancel earlier (user reset aborts the in-flight request).
const DefaultTimeout = 60 * time.Second

// rawBodyLimit caps how much of a non-JSON response body is kept for
// diagnostics.
const rawBodyLimit = 120

// Upload is a named binary payload submitted for analysis.
type Upload struct {
	Name string
	Data []byte
}

// FaceCoords is the detected face bounding box in source image pixels.
type FaceCoords struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Result is a normalized successful analysis.
type Result struct {
	// Emotion is the primary (fused) label, normalized to the vocabulary.
	Emotion emotion.Label `json:"emotion"`
	// ImageEmotion and AudioEmotion are per-modality labels, set only for
	// combined analysis.
	ImageEmotion emotion.Label `json:"image_emotion,omitempty"`
	AudioEmotion emotion.Label `json:"audio_emotion,omitempty"`

	Confidence    float64 `json:"confidence"`
	HasConfidence bool    `json:"has_confidence"`

	// FaceCrop is the cropped face image as a data URL, when the server
	// detected a face.
	FaceCrop   string      `json:"face_crop,omitempty"`
	FaceCoords *FaceCoords `json:"face_coords,omitempty"`

	// Raw is the verbatim server response, kept for on-screen debugging.
	Raw string `json:"-"`
}

// Client calls the inference API.
type Client struct {
	parsedURL *url.URL
	http      *http.Client
}

// New creates a client for the inference API at baseURL.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("inference API base URL is required")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid inference API URL: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		parsedURL: parsed,
		http:      &http.Client{Timeout: timeout},
	}, nil
}

// Predict analyzes a single image.
func (c *Client) Predict(ctx context.Context, image Upload) (*Result, error) {
	return c.do(ctx, "predict", []formFile{{field: "file", upload: image}})
}

// PredictAudio analyzes a single audio clip.
func (c *Client) PredictAudio(ctx context.Context, audio Upload) (*Result, error) {
	return c.do(ctx, "predict-audio", []formFile{{field: "file", upload: audio}})
}

// PredictBoth runs the combined image+audio analysis.
func (c *Client) PredictBoth(ctx context.Context, image, audio Upload) (*Result, error) {
	return c.do(ctx, "predict-both", []formFile{
		{field: "image", upload: image},
		{field: "audio", upload: audio},
	})
}

// Analyze picks the endpoint from the payloads present: image only, audio
// only, or both. At least one payload must be non-nil.
func (c *Client) Analyze(ctx context.Context, image, audio *Upload) (*Result, error) {
	switch {
	case image != nil && audio != nil:
		return c.PredictBoth(ctx, *image, *audio)
	case image != nil:
		return c.Predict(ctx, *image)
	case audio != nil:
		return c.PredictAudio(ctx, *audio)
	default:
		return nil, errors.New("nothing to analyze")
	}
}

type formFile struct {
	field  string
	upload Upload
}

// responseBody mirrors the server's success and error JSON shapes. Error
// responses carry either "error" or "detail".
type responseBody struct {
	Emotion      string      `json:"emotion"`
	Confidence   *float64    `json:"confidence"`
	FaceCrop     string      `json:"face_crop_image"`
	FaceCoords   *FaceCoords `json:"face_coords"`
	ImageEmotion string      `json:"image_emotion"`
	AudioEmotion string      `json:"audio_emotion"`
	Error        string      `json:"error"`
	Detail       string      `json:"detail"`
}

func (c *Client) resolveURL(endpoint string) string {
	return c.parsedURL.JoinPath(endpoint).String()
}

func (c *Client) do(ctx context.Context, endpoint string, files []formFile) (*Result, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := writer.CreateFormFile(f.field, f.upload.Name)
		if err != nil {
			return nil, fmt.Errorf("could not create form file: %w", err)
		}
		if _, err := part.Write(f.upload.Data); err != nil {
			return nil, fmt.Errorf("could not write file data: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("could not close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolveURL(endpoint), &body)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		// Context cancellation is reported as-is so a user reset is
		// distinguishable from a network fault.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &APIError{Kind: KindNetwork, Message: "inference request failed", cause: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Kind: KindNetwork, Message: "could not read response body", cause: err}
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		return nil, &APIError{
			Kind:    KindProtocol,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("unexpected response (%d): %s", resp.StatusCode, truncate(string(raw), rawBodyLimit)),
			Raw:     string(raw),
		}
	}

	var parsed responseBody
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &APIError{
			Kind:    KindProtocol,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("malformed JSON response (%d): %s", resp.StatusCode, truncate(string(raw), rawBodyLimit)),
			Raw:     string(raw),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || parsed.Error != "" || parsed.Detail != "" {
		message := parsed.Error
		if message == "" {
			message = parsed.Detail
		}
		if message == "" {
			message = fmt.Sprintf("HTTP %d", resp.StatusCode)
		}
		return nil, &APIError{Kind: KindAPI, Status: resp.StatusCode, Message: message, Raw: string(raw)}
	}

	result := &Result{
		FaceCrop:   parsed.FaceCrop,
		FaceCoords: parsed.FaceCoords,
		Raw:        string(raw),
	}
	result.Emotion, _ = emotion.Normalize(parsed.Emotion)
	if parsed.ImageEmotion != "" {
		result.ImageEmotion, _ = emotion.Normalize(parsed.ImageEmotion)
	}
	if parsed.AudioEmotion != "" {
		result.AudioEmotion, _ = emotion.Normalize(parsed.AudioEmotion)
	}
	if parsed.Confidence != nil {
		result.Confidence = *parsed.Confidence
		result.HasConfidence = true
	}
	return result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

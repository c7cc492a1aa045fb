package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/maimood/mood-coach/internal/store"
)

// RecordRepository provides PostgreSQL-backed analysis record storage.
type RecordRepository struct {
	pool *Pool
}

// NewRecordRepository creates a new PostgreSQL record repository.
func NewRecordRepository(pool *Pool) *RecordRepository {
	return &RecordRepository{pool: pool}
}

const recordColumns = `
	id, user_id, user_email, user_display_name, mode,
	emotion, image_emotion, audio_emotion, confidence,
	face_x, face_y, face_w, face_h,
	file_name, file_size, file_type, has_image, has_audio,
	original_image_base64, crop_image_base64,
	user_agent, language, platform, created_at
`

// Save appends a record and returns its id. The created_at timestamp is
// assigned by the database, never taken from the caller.
func (r *RecordRepository) Save(ctx context.Context, rec *store.Record) (string, error) {
	if rec == nil || rec.Emotion == "" || rec.UserID == "" {
		return "", store.ErrNothingToSave
	}

	id := uuid.NewString()

	var confidence sql.NullFloat64
	if rec.HasConfidence {
		confidence = sql.NullFloat64{Float64: rec.Confidence, Valid: true}
	}

	var faceX, faceY, faceW, faceH sql.NullInt64
	if fc := rec.FaceCoords; fc != nil {
		faceX = sql.NullInt64{Int64: int64(fc.X), Valid: true}
		faceY = sql.NullInt64{Int64: int64(fc.Y), Valid: true}
		faceW = sql.NullInt64{Int64: int64(fc.W), Valid: true}
		faceH = sql.NullInt64{Int64: int64(fc.H), Valid: true}
	}

	query := `
		INSERT INTO emotion_records (
			id, user_id, user_email, user_display_name, mode,
			emotion, image_emotion, audio_emotion, confidence,
			face_x, face_y, face_w, face_h,
			file_name, file_size, file_type, has_image, has_audio,
			original_image_base64, crop_image_base64,
			user_agent, language, platform, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		id, rec.UserID, rec.UserEmail, rec.UserDisplayName, rec.Mode,
		rec.Emotion, rec.ImageEmotion, rec.AudioEmotion, confidence,
		faceX, faceY, faceW, faceH,
		rec.FileName, rec.FileSize, rec.FileType, rec.HasImage, rec.HasAudio,
		rec.OriginalImageBase64, rec.CropImageBase64,
		rec.UserAgent, rec.Language, rec.Platform,
	)
	if err != nil {
		return "", store.Classify(err)
	}

	return id, nil
}

// ListByUser returns the owner's records, newest first, capped to limit.
// Scoping is done by the query; records of other users are never fetched.
func (r *RecordRepository) ListByUser(ctx context.Context, userID string, limit int) ([]store.Record, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT ` + recordColumns + `
		FROM emotion_records
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, store.Classify(err)
	}
	defer rows.Close()

	var records []store.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, store.Classify(err)
	}

	return records, nil
}

// CountByUser returns the owner's total record count.
func (r *RecordRepository) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM emotion_records WHERE user_id = $1", userID).Scan(&count)
	if err != nil {
		return 0, store.Classify(err)
	}
	return count, nil
}

func scanRecord(rows *sql.Rows) (*store.Record, error) {
	var (
		rec        store.Record
		confidence sql.NullFloat64
		faceX      sql.NullInt64
		faceY      sql.NullInt64
		faceW      sql.NullInt64
		faceH      sql.NullInt64
		createdAt  time.Time
	)

	err := rows.Scan(
		&rec.ID, &rec.UserID, &rec.UserEmail, &rec.UserDisplayName, &rec.Mode,
		&rec.Emotion, &rec.ImageEmotion, &rec.AudioEmotion, &confidence,
		&faceX, &faceY, &faceW, &faceH,
		&rec.FileName, &rec.FileSize, &rec.FileType, &rec.HasImage, &rec.HasAudio,
		&rec.OriginalImageBase64, &rec.CropImageBase64,
		&rec.UserAgent, &rec.Language, &rec.Platform, &createdAt,
	)
	if err != nil {
		return nil, store.Classify(err)
	}

	if confidence.Valid {
		rec.Confidence = confidence.Float64
		rec.HasConfidence = true
	}
	if faceX.Valid && faceY.Valid && faceW.Valid && faceH.Valid {
		rec.FaceCoords = &store.FaceCoords{
			X: int(faceX.Int64),
			Y: int(faceY.Int64),
			W: int(faceW.Int64),
			H: int(faceH.Int64),
		}
	}
	rec.CreatedAt = createdAt

	return &rec, nil
}

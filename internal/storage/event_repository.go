package storage

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// MotionEvent is one recorded detection outcome.
type MotionEvent struct {
	ID         string    `json:"id"`
	CameraID   string    `json:"camera_id"`
	DetectedAt time.Time `json:"detected_at"`
	Regions    int       `json:"regions"`
	Score      int       `json:"score"`
	Delivered  bool      `json:"delivered"`
}

// EventRepository is the data access layer for the motion event log.
type EventRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewEventRepository creates a motion event repository.
func NewEventRepository(db *DB, logger *zap.Logger) *EventRepository {
	return &EventRepository{
		db:     db,
		logger: logger,
	}
}

// Insert records a motion event.
func (r *EventRepository) Insert(event *MotionEvent) error {
	query := `
		INSERT INTO motion_events (id, camera_id, detected_at, regions, score, delivered)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Conn().Exec(
		query,
		event.ID,
		event.CameraID,
		event.DetectedAt,
		event.Regions,
		event.Score,
		event.Delivered,
	)
	if err != nil {
		return fmt.Errorf("failed to insert motion event: %w", err)
	}

	return nil
}

// ListRecent returns the newest events first, up to limit.
func (r *EventRepository) ListRecent(limit int) ([]*MotionEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, camera_id, detected_at, regions, score, delivered
		FROM motion_events
		ORDER BY detected_at DESC
		LIMIT ?
	`

	rows, err := r.db.Conn().Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query motion events: %w", err)
	}
	defer rows.Close()

	var events []*MotionEvent
	for rows.Next() {
		var e MotionEvent
		if err := rows.Scan(&e.ID, &e.CameraID, &e.DetectedAt, &e.Regions, &e.Score, &e.Delivered); err != nil {
			return nil, fmt.Errorf("failed to scan motion event: %w", err)
		}
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate motion events: %w", err)
	}

	return events, nil
}

// DeleteByCamera removes all events recorded for a camera.
func (r *EventRepository) DeleteByCamera(cameraID string) error {
	if _, err := r.db.Conn().Exec(`DELETE FROM motion_events WHERE camera_id = ?`, cameraID); err != nil {
		return fmt.Errorf("failed to delete motion events: %w", err)
	}
	return nil
}

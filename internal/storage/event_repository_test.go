package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRepository(t *testing.T) *EventRepository {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "events.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewEventRepository(db, zap.NewNop())
}

func makeEvent(id, cameraID string, at time.Time) *MotionEvent {
	return &MotionEvent{
		ID:         id,
		CameraID:   cameraID,
		DetectedAt: at,
		Regions:    2,
		Score:      4200,
		Delivered:  true,
	}
}

func TestInsertAndListRecent(t *testing.T) {
	repo := newTestRepository(t)

	base := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Insert(makeEvent("e1", "front", base)))
	require.NoError(t, repo.Insert(makeEvent("e2", "yard", base.Add(time.Minute))))
	require.NoError(t, repo.Insert(makeEvent("e3", "front", base.Add(2*time.Minute))))

	events, err := repo.ListRecent(10)
	require.NoError(t, err)
	require.Len(t, events, 3)

	// Newest first.
	assert.Equal(t, "e3", events[0].ID)
	assert.Equal(t, "e2", events[1].ID)
	assert.Equal(t, "e1", events[2].ID)

	assert.Equal(t, "front", events[0].CameraID)
	assert.Equal(t, 2, events[0].Regions)
	assert.Equal(t, 4200, events[0].Score)
	assert.True(t, events[0].Delivered)
}

func TestListRecentHonorsLimit(t *testing.T) {
	repo := newTestRepository(t)

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		e := makeEvent(string(rune('a'+i)), "front", base.Add(time.Duration(i)*time.Second))
		require.NoError(t, repo.Insert(e))
	}

	events, err := repo.ListRecent(2)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	// Non-positive limits fall back to the default page size.
	events, err = repo.ListRecent(0)
	require.NoError(t, err)
	assert.Len(t, events, 5)
}

func TestDeleteByCamera(t *testing.T) {
	repo := newTestRepository(t)

	base := time.Now().UTC()
	require.NoError(t, repo.Insert(makeEvent("e1", "front", base)))
	require.NoError(t, repo.Insert(makeEvent("e2", "yard", base.Add(time.Second))))
	require.NoError(t, repo.Insert(makeEvent("e3", "front", base.Add(2*time.Second))))

	require.NoError(t, repo.DeleteByCamera("front"))

	events, err := repo.ListRecent(10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "yard", events[0].CameraID)
}

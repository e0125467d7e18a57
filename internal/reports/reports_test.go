package reports

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sujalbistaa/murmur/internal/apperr"
	"github.com/sujalbistaa/murmur/internal/content"
	"github.com/sujalbistaa/murmur/internal/db"
	"github.com/sujalbistaa/murmur/internal/models"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	gdb := db.OpenTemp(t)
	return &Manager{DB: gdb, Content: &content.Manager{DB: gdb}}
}

func seedPost(t *testing.T, m *Manager, status models.Status) *models.Post {
	t.Helper()
	p := &models.Post{
		Content:     "Le copie el trabajo practico a mi mejor amiga y nunca se entero.",
		Category:    "estudio",
		City:        "Mendoza",
		Intention:   "vent",
		Status:      status,
		Fingerprint: "seed",
	}
	require.NoError(t, m.DB.Create(p).Error)
	return p
}

func TestReportValidation(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()
	p := seedPost(t, m, models.StatusApproved)
	pending := seedPost(t, m, models.StatusPending)

	_, err := m.Report(ctx, p.ID, "  mal ")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = m.Report(ctx, p.ID, strings.Repeat("a", 501))
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = m.Report(ctx, pending.ID, "contenido ofensivo")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = m.Report(ctx, "missing", "contenido ofensivo")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestReportsAreKept(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()
	p := seedPost(t, m, models.StatusApproved)

	for i := 0; i < 3; i++ {
		r, err := m.Report(ctx, p.ID, " contenido ofensivo ")
		require.NoError(t, err)
		assert.Equal(t, "contenido ofensivo", r.Reason)
		assert.False(t, r.Handled)
	}

	entries, err := m.Queue(ctx, nil, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for _, e := range entries {
		require.NotNil(t, e.Post)
		assert.Equal(t, p.ID, e.Post.ID)
		assert.False(t, e.Orphaned)
	}
}

func TestQueueHandledFilterAndOrphans(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()
	p := seedPost(t, m, models.StatusApproved)

	r1, err := m.Report(ctx, p.ID, "datos personales")
	require.NoError(t, err)
	_, err = m.Report(ctx, p.ID, "es spam seguro")
	require.NoError(t, err)

	require.NoError(t, m.MarkHandled(ctx, r1.ID))

	handled, unhandled := true, false
	entries, err := m.Queue(ctx, &handled, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, r1.ID, entries[0].ID)
	assert.True(t, entries[0].Handled)

	entries, err = m.Queue(ctx, &unhandled, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, m.MarkUnhandled(ctx, r1.ID))
	entries, err = m.Queue(ctx, &unhandled, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	// a report whose post vanished through another path
	require.NoError(t, m.DB.Create(&models.Report{PostID: "gone", Reason: "ya no existe"}).Error)
	entries, err = m.Queue(ctx, nil, 0)
	require.NoError(t, err)
	var orphans int
	for _, e := range entries {
		if e.Orphaned {
			orphans++
			assert.Nil(t, e.Post)
			assert.Equal(t, "gone", e.PostID)
		}
	}
	assert.Equal(t, 1, orphans)

	err = m.MarkHandled(ctx, "missing")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDeleteConfessionCascades(t *testing.T) {
	m := testManager(t)
	ctx := context.Background()
	p := seedPost(t, m, models.StatusApproved)
	other := seedPost(t, m, models.StatusApproved)

	r, err := m.Report(ctx, p.ID, "contenido ofensivo")
	require.NoError(t, err)
	_, err = m.Report(ctx, p.ID, "otra vez lo mismo")
	require.NoError(t, err)
	kept, err := m.Report(ctx, other.ID, "otro reporte")
	require.NoError(t, err)

	require.NoError(t, m.DeleteConfession(ctx, r.ID, ""))

	var n int64
	require.NoError(t, m.DB.Model(&models.Post{}).Where("id = ?", p.ID).Count(&n).Error)
	assert.Zero(t, n)

	entries, err := m.Queue(ctx, nil, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, kept.ID, entries[0].ID)

	err = m.DeleteConfession(ctx, r.ID, "")
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	require.NoError(t, m.DeleteConfession(ctx, "", other.ID))
	entries, err = m.Queue(ctx, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

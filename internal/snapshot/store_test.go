package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/harmonia-vision/harmonia/internal/model"
	"github.com/harmonia-vision/harmonia/internal/statestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewStore(statestore.NewMemoryStore())

	_, ok, err := s.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	at := time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC)
	settings := model.DefaultEditorSettings()
	put, err := s.Put(ctx, settings, at)
	require.NoError(t, err)
	assert.NotEmpty(t, put.ID)

	got, ok, err := s.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, put.ID, got.ID)
	assert.Equal(t, settings, got.Settings)
	assert.True(t, at.Equal(got.CapturedAt))

	require.NoError(t, s.Delete(ctx))
	_, ok, err = s.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_PrescriptionIndependentOfSnapshot(t *testing.T) {
	ctx := context.Background()
	kv := statestore.NewMemoryStore()
	s := NewStore(kv)

	p := model.Prescription{Sphere: -1.25, Cylinder: -0.5, RememberMe: true}
	require.NoError(t, s.SavePrescription(ctx, p))
	_, err := s.Put(ctx, model.DefaultEditorSettings(), time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx))

	got, ok, err := s.Prescription(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, p, got)

	require.NoError(t, s.SavePrescription(ctx, model.Prescription{Sphere: 2}))
	_, ok, err = s.Prescription(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "saving without rememberMe forgets the prescription")
}

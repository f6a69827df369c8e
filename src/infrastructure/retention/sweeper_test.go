package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	draftCutoffs []time.Time
	imageCutoffs []time.Time
	draftErr     error
	imageErr     error
}

func (f *fakeStore) DeleteStaleDrafts(_ context.Context, cutoff time.Time) (int64, error) {
	f.draftCutoffs = append(f.draftCutoffs, cutoff)
	return 2, f.draftErr
}

func (f *fakeStore) DeleteOrphanImages(_ context.Context, cutoff time.Time) (int64, error) {
	f.imageCutoffs = append(f.imageCutoffs, cutoff)
	return 1, f.imageErr
}

func TestSweepUsesRetentionWindow(t *testing.T) {
	store := &fakeStore{}
	sweeper := NewSweeper(store, Config{Interval: time.Minute, MaxAge: time.Hour})

	before := time.Now().Add(-time.Hour)
	sweeper.Sweep(context.Background())
	after := time.Now().Add(-time.Hour)

	require.Len(t, store.draftCutoffs, 1)
	require.Len(t, store.imageCutoffs, 1)
	assert.False(t, store.draftCutoffs[0].Before(before))
	assert.False(t, store.draftCutoffs[0].After(after))
}

func TestSweepDraftErrorDoesNotSkipImages(t *testing.T) {
	store := &fakeStore{draftErr: errors.New("deadlock")}
	sweeper := NewSweeper(store, Config{Interval: time.Minute, MaxAge: time.Hour})

	sweeper.Sweep(context.Background())

	assert.Len(t, store.draftCutoffs, 1)
	assert.Len(t, store.imageCutoffs, 1)
}

func TestSweeperDefaults(t *testing.T) {
	sweeper := NewSweeper(&fakeStore{}, Config{})

	assert.Equal(t, 10*time.Minute, sweeper.config.Interval)
	assert.Equal(t, time.Hour, sweeper.config.MaxAge)
}

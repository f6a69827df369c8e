package classification

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileDropsEmptyTypeNames(t *testing.T) {
	store := newMemStore()
	reconciler := NewReconciler(store)

	results := []Result{
		{Type: "plastic", Confidence: confidence(0.9)},
		{Type: "", Confidence: confidence(0.1)},
	}

	err := reconciler.Reconcile(context.Background(), 42, results)
	require.NoError(t, err)

	assert.Equal(t, 1, store.labelCount(42))
	require.Len(t, store.wasteTypes, 1)
	assert.NotNil(t, store.wasteTypes["plastic"])
}

func TestReconcileReusesWasteTypeAcrossJobs(t *testing.T) {
	store := newMemStore()
	reconciler := NewReconciler(store)

	err := reconciler.Reconcile(context.Background(), 1, []Result{{Type: "plastic", Confidence: confidence(0.8)}})
	require.NoError(t, err)
	err = reconciler.Reconcile(context.Background(), 2, []Result{{Type: "plastic", Confidence: confidence(0.6)}})
	require.NoError(t, err)

	require.Len(t, store.wasteTypes, 1)
	assert.Equal(t, 1, store.labelCount(1))
	assert.Equal(t, 1, store.labelCount(2))
	assert.Equal(t, store.labels[0].WasteTypeID, store.labels[1].WasteTypeID)
}

func TestReconcileCarriesAbsentConfidence(t *testing.T) {
	store := newMemStore()
	reconciler := NewReconciler(store)

	err := reconciler.Reconcile(context.Background(), 7, []Result{{Type: "glass", Confidence: nil}})
	require.NoError(t, err)

	require.Len(t, store.labels, 1)
	assert.Nil(t, store.labels[0].Confidence)
}

func TestReconcilePropagatesLabelError(t *testing.T) {
	store := newMemStore()
	store.labelErr = errors.New("insert failed")
	reconciler := NewReconciler(store)

	err := reconciler.Reconcile(context.Background(), 3, []Result{{Type: "glass"}})
	require.Error(t, err)
	assert.Equal(t, 0, store.labelCount(3))
}

package classification

import (
	"context"
	"fmt"
)

// Reconciler maps raw classifier results onto waste type rows and persists
// one label per usable result.
type Reconciler struct {
	store Store
}

func NewReconciler(store Store) *Reconciler {
	return &Reconciler{store: store}
}

// Reconcile persists the labels of a successful classification. Entries
// with an empty type name are dropped. Waste types are resolved by exact
// name, created on first sight.
func (r *Reconciler) Reconcile(ctx context.Context, jobID int64, results []Result) error {
	for _, result := range results {
		if result.Type == "" {
			continue
		}

		wasteType, err := r.store.FindWasteTypeByName(ctx, result.Type)
		if err != nil {
			return fmt.Errorf("failed to resolve waste type %q: %w", result.Type, err)
		}
		if wasteType == nil {
			wasteType, err = r.store.CreateWasteType(ctx, result.Type)
			if err != nil {
				return fmt.Errorf("failed to create waste type %q: %w", result.Type, err)
			}
		}

		label := &Label{
			JobID:       jobID,
			WasteTypeID: wasteType.ID,
			Confidence:  result.Confidence,
		}
		if err := r.store.CreateLabel(ctx, label); err != nil {
			return fmt.Errorf("failed to persist label for job %d: %w", jobID, err)
		}
	}

	return nil
}

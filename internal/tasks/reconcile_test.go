package tasks

import (
	"testing"
	"time"

	"github.com/desertthunder/dvx/internal/models"
)

func devs(idList ...string) []models.Deviation {
	out := make([]models.Deviation, len(idList))
	for i, id := range idList {
		out[i] = dev(id, 0, time.Time{})
	}
	return out
}

func TestReconcile(t *testing.T) {
	t.Run("Computes Minimal Diff", func(t *testing.T) {
		plan := Reconcile(devs("x", "y", "z"), devs("y", "w"))

		if len(plan.ToAdd) != 2 || plan.ToAdd[0] != "x" || plan.ToAdd[1] != "z" {
			t.Errorf("expected toAdd [x z], got %v", plan.ToAdd)
		}
		if len(plan.ToRemove) != 1 || plan.ToRemove[0] != "w" {
			t.Errorf("expected toRemove [w], got %v", plan.ToRemove)
		}
		if len(plan.FinalOrder) != 3 || plan.FinalOrder[0] != "x" || plan.FinalOrder[1] != "y" || plan.FinalOrder[2] != "z" {
			t.Errorf("expected finalOrder [x y z], got %v", plan.FinalOrder)
		}
	})

	t.Run("ToAdd Preserves Desired Order", func(t *testing.T) {
		plan := Reconcile(devs("c", "a", "b"), nil)

		want := []string{"c", "a", "b"}
		for i, id := range plan.ToAdd {
			if id != want[i] {
				t.Fatalf("expected toAdd %v, got %v", want, plan.ToAdd)
			}
		}
	})

	t.Run("Identical Membership Is In Sync", func(t *testing.T) {
		// current order differs from desired; membership is what counts
		plan := Reconcile(devs("a", "b", "c"), devs("c", "a", "b"))

		if !plan.InSync() {
			t.Errorf("expected empty plan, got add=%v remove=%v", plan.ToAdd, plan.ToRemove)
		}
	})

	t.Run("Empty Desired Removes Everything", func(t *testing.T) {
		plan := Reconcile(nil, devs("a", "b"))

		if len(plan.ToAdd) != 0 {
			t.Errorf("expected no additions, got %v", plan.ToAdd)
		}
		if len(plan.ToRemove) != 2 {
			t.Errorf("expected 2 removals, got %v", plan.ToRemove)
		}
		if len(plan.FinalOrder) != 0 {
			t.Errorf("expected empty final order, got %v", plan.FinalOrder)
		}
	})

	t.Run("Duplicate Current Entries Removed Once", func(t *testing.T) {
		plan := Reconcile(devs("a"), devs("a", "b", "b"))

		if len(plan.ToRemove) != 1 || plan.ToRemove[0] != "b" {
			t.Errorf("expected toRemove [b], got %v", plan.ToRemove)
		}
	})

	t.Run("Applying A Plan Converges", func(t *testing.T) {
		desired := devs("x", "y", "z")
		current := devs("y", "w")

		plan := Reconcile(desired, current)

		// simulate applying the plan to the current membership
		next := make(map[string]struct{})
		for _, c := range current {
			next[c.ID] = struct{}{}
		}
		for _, id := range plan.ToAdd {
			next[id] = struct{}{}
		}
		for _, id := range plan.ToRemove {
			delete(next, id)
		}

		applied := make([]models.Deviation, 0, len(next))
		for id := range next {
			applied = append(applied, dev(id, 0, time.Time{}))
		}

		replan := Reconcile(desired, applied)
		if !replan.InSync() {
			t.Errorf("expected plan to converge, got add=%v remove=%v", replan.ToAdd, replan.ToRemove)
		}
	})
}

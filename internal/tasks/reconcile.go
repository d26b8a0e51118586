package tasks

import "github.com/desertthunder/dvx/internal/models"

// Plan describes the mutations that make a destination folder converge on a
// desired ranking. Applying a plan to the folder it was computed against and
// then recomputing yields an empty plan.
type Plan struct {
	ToAdd      []string // ids missing from the folder, in ranked order
	ToRemove   []string // ids present in the folder but not in the ranking
	FinalOrder []string // the full desired ranking, by id
}

// InSync reports whether the plan requires no mutations.
func (p Plan) InSync() bool {
	return len(p.ToAdd) == 0 && len(p.ToRemove) == 0
}

// Reconcile computes the minimal set of additions and removals that turn the
// folder's current contents into the desired ranking. Membership is keyed by
// deviation id; the folder's internal ordering is left to the service.
func Reconcile(desired, current []models.Deviation) Plan {
	desiredIDs := make(map[string]struct{}, len(desired))
	currentIDs := make(map[string]struct{}, len(current))

	plan := Plan{FinalOrder: make([]string, 0, len(desired))}

	for _, d := range desired {
		desiredIDs[d.ID] = struct{}{}
		plan.FinalOrder = append(plan.FinalOrder, d.ID)
	}
	for _, c := range current {
		currentIDs[c.ID] = struct{}{}
	}

	for _, d := range desired {
		if _, ok := currentIDs[d.ID]; !ok {
			plan.ToAdd = append(plan.ToAdd, d.ID)
		}
	}

	removed := make(map[string]struct{}, len(current))
	for _, c := range current {
		if _, ok := desiredIDs[c.ID]; ok {
			continue
		}
		// a folder can list the same id twice; remove it once
		if _, dup := removed[c.ID]; dup {
			continue
		}
		removed[c.ID] = struct{}{}
		plan.ToRemove = append(plan.ToRemove, c.ID)
	}

	return plan
}

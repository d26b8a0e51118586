package tasks

import (
	"fmt"
	"sort"

	"github.com/desertthunder/dvx/internal/models"
	"github.com/desertthunder/dvx/internal/shared"
)

// Select returns the top n deviations ranked by favourite count.
//
// The ordering is a total order: favourites descending, then published time
// descending (newer first), then deviation id ascending. Because ties always
// fall through to the unique id, the result is deterministic regardless of
// input order.
//
// Returns [shared.ErrInvalidArgument] when n < 1 and [shared.ErrDuplicateID]
// when the input contains the same deviation id twice.
func Select(items []models.Deviation, n int) ([]models.Deviation, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: selection size must be at least 1, got %d", shared.ErrInvalidArgument, n)
	}

	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item.ID]; ok {
			return nil, fmt.Errorf("%w: %s", shared.ErrDuplicateID, item.ID)
		}
		seen[item.ID] = struct{}{}
	}

	ranked := make([]models.Deviation, len(items))
	copy(ranked, items)

	sort.Slice(ranked, func(i, j int) bool {
		return rankLess(ranked[i], ranked[j])
	})

	if n > len(ranked) {
		n = len(ranked)
	}
	return ranked[:n], nil
}

// rankLess reports whether a ranks strictly ahead of b.
func rankLess(a, b models.Deviation) bool {
	if a.Favourites != b.Favourites {
		return a.Favourites > b.Favourites
	}
	if !a.PublishedAt.Equal(b.PublishedAt) {
		return a.PublishedAt.After(b.PublishedAt)
	}
	return a.ID < b.ID
}

package service

import (
	"sort"
	"strings"

	"github.com/atinyakov/sportmate/internal/models"
)

// SortField selects the comparison key for event sorting.
type SortField string

// SortOrder selects ascending or descending order.
type SortOrder string

const (
	SortByDate         SortField = "date"
	SortByParticipants SortField = "participants"

	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Filter describes a presentation-layer view over the event list.
// Zero values mean "no filtering" and "no sorting".
type Filter struct {
	// Search matches case-insensitively against event titles.
	Search string
	// Type, when set, keeps only events of that type.
	Type models.EventType
	// SortBy, when set, orders the result by date or participant count.
	SortBy SortField
	Order  SortOrder
}

// FilterEvents returns a new slice with the filter applied before the
// sort. The sort is stable: ties keep their original relative order.
func FilterEvents(events []models.Event, f Filter) []models.Event {
	out := make([]models.Event, 0, len(events))

	search := strings.ToLower(strings.TrimSpace(f.Search))
	for _, e := range events {
		if search != "" && !strings.Contains(strings.ToLower(e.Title), search) {
			continue
		}
		if f.Type != "" && e.EventType != f.Type {
			continue
		}
		out = append(out, e)
	}

	desc := f.Order == Desc
	switch f.SortBy {
	case SortByDate:
		sort.SliceStable(out, func(i, j int) bool {
			if desc {
				return out[j].StartDate.Before(out[i].StartDate)
			}
			return out[i].StartDate.Before(out[j].StartDate)
		})
	case SortByParticipants:
		sort.SliceStable(out, func(i, j int) bool {
			if desc {
				return len(out[j].Participants) < len(out[i].Participants)
			}
			return len(out[i].Participants) < len(out[j].Participants)
		})
	}
	return out
}

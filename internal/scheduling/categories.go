package scheduling

import (
	"github.com/google/uuid"

	"github.com/plannerhq/schedassist/internal/store"
)

// BestLabel picks the highest-scoring label above the threshold. The second
// return is false when nothing clears it.
func BestLabel(labels []string, scores []float64, threshold float64) (string, bool) {
	best := ""
	bestScore := threshold
	for i, label := range labels {
		if i >= len(scores) {
			break
		}
		if scores[i] > bestScore {
			best = label
			bestScore = scores[i]
		}
	}
	return best, best != ""
}

// CategoryByName finds a category by exact name.
func CategoryByName(categories []store.Category, name string) *store.Category {
	for i := range categories {
		if categories[i].Name == name {
			return &categories[i]
		}
	}
	return nil
}

// CategoryNames lists the distinct category names, the classifier's label
// set.
func CategoryNames(categories []store.Category) []string {
	var names []string
	seen := make(map[string]bool)
	for _, c := range categories {
		if seen[c.Name] {
			continue
		}
		seen[c.Name] = true
		names = append(names, c.Name)
	}
	return names
}

// MeetingLayerCategories selects the built-in meeting/external-meeting
// categories to apply as an override layer: either the event's own flags or
// a classifier score above the threshold pulls the corresponding category
// in.
func MeetingLayerCategories(event store.Event, categories []store.Category, labels []string, scores []float64, threshold float64) []store.Category {
	scoreFor := func(name string) float64 {
		for i, label := range labels {
			if label == name && i < len(scores) {
				return scores[i]
			}
		}
		return 0
	}

	var layers []store.Category
	if event.IsMeeting || scoreFor(DefaultMeetingLabel) > threshold {
		if cat := CategoryByName(categories, DefaultMeetingLabel); cat != nil {
			layers = append(layers, *cat)
		}
	}
	if event.IsExternalMeeting || scoreFor(DefaultExternalMeetingLabel) > threshold {
		if cat := CategoryByName(categories, DefaultExternalMeetingLabel); cat != nil {
			layers = append(layers, *cat)
		}
	}
	return layers
}

// CategoryLinksToWrite diffs the matched categories against the stored
// associations and returns the missing links, upsert-ready with fresh ids.
func CategoryLinksToWrite(event store.Event, matched []store.Category, existing []store.CategoryEvent) []store.CategoryEvent {
	linked := make(map[string]bool, len(existing))
	for _, link := range existing {
		linked[link.CategoryID] = true
	}

	var links []store.CategoryEvent
	seen := make(map[string]bool)
	for _, cat := range matched {
		if linked[cat.ID] || seen[cat.ID] {
			continue
		}
		seen[cat.ID] = true
		links = append(links, store.CategoryEvent{
			ID:         uuid.New().String(),
			CategoryID: cat.ID,
			EventID:    event.ID,
			UserID:     event.UserID,
		})
	}
	return links
}

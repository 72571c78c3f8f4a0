package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/tapedeck/internal/models"
)

var (
	_ list.Item = failureItem{}
)

// failureItem wraps a failed [models.Outcome] to implement [list.Item].
type failureItem struct {
	outcome models.Outcome
}

func (i failureItem) FilterValue() string { return i.outcome.Track.Title }
func (i failureItem) Title() string {
	return fmt.Sprintf("%02d. %s", i.outcome.Index, i.outcome.Track)
}
func (i failureItem) Description() string { return i.outcome.Reason }

func failureItems(outcomes []models.Outcome) []list.Item {
	items := make([]list.Item, 0, len(outcomes))
	for _, o := range outcomes {
		if !o.OK() {
			items = append(items, failureItem{outcome: o})
		}
	}
	return items
}

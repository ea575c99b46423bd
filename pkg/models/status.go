package models

import (
	"sort"
	"time"
)

// IssueStatus is a team-configured workflow column. Columns are ordered
// by Position; IsFinal marks columns the UI treats as complete, it does
// not block further transitions.
type IssueStatus struct {
	ID        string    `json:"id" db:"id"`
	TeamID    string    `json:"team_id" db:"team_id"`
	Name      string    `json:"name" db:"name"`
	Color     string    `json:"color" db:"color"`
	Position  int       `json:"position" db:"position"`
	IsFinal   bool      `json:"is_final" db:"is_final"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SortStatuses orders columns by ascending position, ties broken by
// ascending id so the ordering is stable across reads.
func SortStatuses(statuses []IssueStatus) {
	sort.Slice(statuses, func(i, j int) bool {
		if statuses[i].Position != statuses[j].Position {
			return statuses[i].Position < statuses[j].Position
		}
		return statuses[i].ID < statuses[j].ID
	})
}

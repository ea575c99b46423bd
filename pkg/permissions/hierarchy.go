package permissions

import (
	"context"
	"fmt"
	"strings"

	"taskboard-backend/pkg/models"
)

// TeamLookup is the slice of the directory the hierarchy walker needs.
type TeamLookup interface {
	GetTeam(ctx context.Context, teamID string) (*models.Team, error)
}

// CycleError reports a parent-team chain that loops back on itself. The
// team-management side does not guarantee acyclic links, so traversal
// guards against them instead of trusting the data.
type CycleError struct {
	TeamID string   // team at which the revisit was detected
	Path   []string // chain walked before the revisit, nearest-first
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("team hierarchy cycle detected at team %s (path: %s)",
		e.TeamID, strings.Join(e.Path, " -> "))
}

// Hierarchy resolves ancestor chains over parent-team links.
type Hierarchy struct {
	teams TeamLookup
}

// NewHierarchy creates a hierarchy walker over the given team directory.
func NewHierarchy(teams TeamLookup) *Hierarchy {
	return &Hierarchy{teams: teams}
}

// Ancestors returns the ids of all ancestor teams of teamID,
// nearest-first, excluding teamID itself. It returns a *CycleError if
// the walk revisits a team already seen.
func (h *Hierarchy) Ancestors(ctx context.Context, teamID string) ([]string, error) {
	team, err := h.teams.GetTeam(ctx, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to load team %s: %w", teamID, err)
	}

	seen := map[string]bool{team.ID: true}
	var chain []string

	for team.ParentTeamID != nil {
		parentID := *team.ParentTeamID
		if seen[parentID] {
			return nil, &CycleError{TeamID: parentID, Path: chain}
		}
		seen[parentID] = true
		chain = append(chain, parentID)

		team, err = h.teams.GetTeam(ctx, parentID)
		if err != nil {
			return nil, fmt.Errorf("failed to load parent team %s: %w", parentID, err)
		}
	}

	return chain, nil
}

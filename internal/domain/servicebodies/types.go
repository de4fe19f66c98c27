// Package servicebodies models the forest of organizational units that
// own meetings within a root server.
package servicebodies

import "time"

// Type enumerates the upstream service body kinds.
type Type string

const (
	TypeArea   Type = "AS"
	TypeMetro  Type = "MA"
	TypeRegion Type = "RS"
	TypeZone   Type = "ZF"
	TypeOther  Type = "GR"
)

// ServiceBody is one node in the per-root forest of organizational units.
// Invariant: if Parent is set, Parent.RootServerID == RootServerID and the
// parent chain contains no cycle.
type ServiceBody struct {
	ID           int
	SourceID     int
	RootServerID int
	ParentID     *int // nil at the top of the forest; reported as 0 at the API boundary
	Name         string
	Type         Type
	Description  string
	URL          string
	Helpline     string
	WorldID      string
	NumMeetings  int
	NumGroups    int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Raw is the shape of one service body as received from an upstream
// GetServiceBodies response, before normalization.
type Raw struct {
	ID          string `json:"id"`
	ParentID    string `json:"parent_id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Helpline    string `json:"helpline"`
	WorldID     string `json:"world_id"`
}

// ParentIDAtBoundary returns 0 for top-level bodies, matching the
// upstream-compatible rendering convention (spec §3, §8 scenario 5).
func (b ServiceBody) ParentIDAtBoundary() int {
	if b.ParentID == nil {
		return 0
	}
	return *b.ParentID
}

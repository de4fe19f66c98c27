// Package rootservers models the independent upstream meeting-directory
// servers that make up the federation.
package rootservers

import "time"

// RootServer is one upstream meeting-directory server in the federation.
type RootServer struct {
	ID                  int
	URL                 string // absolute, trailing slash
	Name                string
	ServerInfo          ServerInfo
	LastSuccessfulImport *time.Time
	NumAreas            int
	NumRegions          int
	NumZones            int
	NumMeetings         int
	NumGroups           int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ServerInfo is the cached upstream GetServerInfo descriptor, used to
// discover the languages available for format translation (§4.4 step 3).
type ServerInfo struct {
	Version         string
	Languages       []string
	CenterLatitude  *float64
	CenterLongitude *float64
}

// DiscoveredRoot is one entry from the configured discovery list document
// (spec §6.2: `{id, name, rootURL}`).
type DiscoveredRoot struct {
	ID      int
	Name    string
	RootURL string
}

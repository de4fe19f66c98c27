// Package formats models meeting format tags and their per-language
// translations.
package formats

import "time"

// Format is a tagged attribute of a meeting (e.g. "Open", "Wheelchair
// Accessible"), shared across languages via its translations.
type Format struct {
	ID           int
	SourceID     int
	RootServerID int
	WorldID      string
	Type         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TranslatedFormat is one language's rendering of a Format. Invariant:
// (FormatID, Language) is unique.
type TranslatedFormat struct {
	ID          int
	FormatID    int
	Language    string // default "en"
	KeyString   string
	Name        string
	Description string
}

// Raw is the shape of one translated format as received from an
// upstream GetFormats response for a given lang_enum.
type Raw struct {
	ID          string `json:"id"`
	WorldID     string `json:"world_id"`
	Type        string `json:"type"`
	KeyString   string `json:"key_string"`
	Name        string `json:"name_string"`
	Description string `json:"description_string"`
	Lang        string `json:"lang"`
}

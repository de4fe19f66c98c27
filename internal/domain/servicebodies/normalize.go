package servicebodies

import (
	"strconv"
	"strings"

	"github.com/bmlt-enabled/tomato/internal/domain/normalize"
)

// Validate coerces one raw upstream service body record into its
// canonical form, or returns a failure reason describing the rejected
// field (spec §4.2). The parent-wiring step (cycle/missing-parent
// tolerance) happens later, in the store's two-pass import (spec §4.4
// step 2); Validate only parses scalar fields.
func Validate(rootServerID int, raw Raw) (ServiceBody, *normalize.Failure) {
	id, f := normalize.Int("id", raw.ID)
	if f != nil {
		return ServiceBody{}, f
	}
	name, f := normalize.RequiredString("name", raw.Name)
	if f != nil {
		return ServiceBody{}, f
	}

	var parentID *int
	if p := strings.TrimSpace(raw.ParentID); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v != 0 {
			parentID = &v
		}
	}

	body := ServiceBody{
		SourceID:     id,
		RootServerID: rootServerID,
		ParentID:     parentID,
		Name:         name,
		Type:         Type(strings.TrimSpace(raw.Type)),
		Description:  raw.Description,
		URL:          raw.URL,
		Helpline:     raw.Helpline,
		WorldID:      strings.TrimSpace(raw.WorldID),
	}
	return body, nil
}

package importer

import "strings"

// rootResolver answers meetings.Resolver/meetings.DumpResolver lookups
// entirely from the in-memory maps built during this root's bodies and
// formats passes, so the meetings pass never re-queries the store for
// references that were just written in the same transaction (spec §4.4:
// "bodies -> formats -> meetings" order exists precisely so this is
// possible).
type rootResolver struct {
	serviceBodyBySourceID map[int]int
	serviceBodyByWorldID  map[string]int
	formatBySourceID      map[int]int
	formatByKeyString     map[string]int
}

func newRootResolver() *rootResolver {
	return &rootResolver{
		serviceBodyBySourceID: make(map[int]int),
		serviceBodyByWorldID:  make(map[string]int),
		formatBySourceID:      make(map[int]int),
		formatByKeyString:     make(map[string]int),
	}
}

// addFormatTranslation records a (key_string -> format id) mapping,
// preferring the "en" translation when the same key_string is written
// more than once across languages (spec §9 open question: key_string is
// treated as the stable, language-agnostic identifier meetings refer to).
func (r *rootResolver) addFormatTranslation(formatID int, language, keyString string) {
	keyString = strings.TrimSpace(keyString)
	if keyString == "" {
		return
	}
	if _, exists := r.formatByKeyString[keyString]; !exists || language == "en" {
		r.formatByKeyString[keyString] = formatID
	}
}

func (r *rootResolver) ServiceBodyID(_ int, sourceID int) (int, bool) {
	id, ok := r.serviceBodyBySourceID[sourceID]
	return id, ok
}

func (r *rootResolver) ServiceBodyIDByWorldID(_ int, worldID string) (int, bool) {
	id, ok := r.serviceBodyByWorldID[worldID]
	return id, ok
}

func (r *rootResolver) FormatIDsBySourceID(_ int, sourceIDs []int) []int {
	var out []int
	for _, id := range sourceIDs {
		if localID, ok := r.formatBySourceID[id]; ok {
			out = append(out, localID)
		}
	}
	return out
}

func (r *rootResolver) FormatIDsByKeyString(_ int, keyStrings []string) []int {
	var out []int
	for _, k := range keyStrings {
		if localID, ok := r.formatByKeyString[k]; ok {
			out = append(out, localID)
		}
	}
	return out
}

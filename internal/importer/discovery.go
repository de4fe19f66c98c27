package importer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bmlt-enabled/tomato/internal/domain/rootservers"
)

// Fetcher is the subset of upstream.Client the importer needs, kept as
// an interface so tests can inject a canned transport (spec C1, §4.1).
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// discoverRoots fetches the configured discovery-list document (spec
// §6.2: "a JSON array document... objects {id, name, rootURL}") and
// drops any root whose URL is in ignoredURLs.
func discoverRoots(ctx context.Context, fetcher Fetcher, listURL string, ignoredURLs map[string]bool) ([]rootservers.DiscoveredRoot, error) {
	body, err := fetcher.Fetch(ctx, listURL)
	if err != nil {
		return nil, fmt.Errorf("fetch root list: %w", err)
	}

	var raw []struct {
		ID      json.Number `json:"id"`
		Name    string      `json:"name"`
		RootURL string      `json:"rootURL"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode root list: %w", err)
	}

	out := make([]rootservers.DiscoveredRoot, 0, len(raw))
	for _, r := range raw {
		if ignoredURLs[r.RootURL] {
			continue
		}
		id, _ := r.ID.Int64()
		out = append(out, rootservers.DiscoveredRoot{ID: int(id), Name: r.Name, RootURL: r.RootURL})
	}
	return out, nil
}

func ignoredSet(urls []string) map[string]bool {
	out := make(map[string]bool, len(urls))
	for _, u := range urls {
		out[u] = true
	}
	return out
}

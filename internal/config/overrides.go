package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RootOverride is one entry of an optional YAML overrides file (spec §6.4:
// "ignored root URLs, ignored service-body ids per root URL"). This mirrors
// the teacher's scraper source-config file (internal/scraper/config.go)
// one-entry-per-source shape, generalized from scrape sources to root
// servers: an operator who wants a readable, reviewable override list
// (rather than the single-line IGNORED_ROOT_URLS/IGNORED_SERVICE_BODY_IDS
// env vars) can point ROOT_OVERRIDES_FILE at one instead.
type RootOverride struct {
	URL                  string `yaml:"url"`
	Ignored              bool   `yaml:"ignored"`
	IgnoredServiceBodies []int  `yaml:"ignored_service_bodies"`
}

// LoadRootOverridesFile parses a YAML list of RootOverride entries. A
// missing path is not an error: the overrides file is optional and the
// env-var form (IGNORED_ROOT_URLS/IGNORED_SERVICE_BODY_IDS) keeps working
// without it.
func LoadRootOverridesFile(path string) ([]RootOverride, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read root overrides file %q: %w", path, err)
	}

	var overrides []RootOverride
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse root overrides file %q: %w", path, err)
	}
	return overrides, nil
}

// applyRootOverrides merges YAML overrides on top of the env-parsed
// IgnoredRootURLs/IgnoredBodyIDs (spec's open-ended "primary wins" bias
// from §9 applied here too: the file only adds entries the env vars didn't
// already name, it never removes one).
func applyRootOverrides(cfg *ImportConfig, overrides []RootOverride) {
	if len(overrides) == 0 {
		return
	}
	ignored := make(map[string]bool, len(cfg.IgnoredRootURLs))
	for _, u := range cfg.IgnoredRootURLs {
		ignored[u] = true
	}
	if cfg.IgnoredBodyIDs == nil {
		cfg.IgnoredBodyIDs = make(map[string][]int)
	}

	for _, o := range overrides {
		if o.URL == "" {
			continue
		}
		if o.Ignored && !ignored[o.URL] {
			cfg.IgnoredRootURLs = append(cfg.IgnoredRootURLs, o.URL)
			ignored[o.URL] = true
		}
		if len(o.IgnoredServiceBodies) > 0 {
			if _, exists := cfg.IgnoredBodyIDs[o.URL]; !exists {
				cfg.IgnoredBodyIDs[o.URL] = o.IgnoredServiceBodies
			}
		}
	}
}

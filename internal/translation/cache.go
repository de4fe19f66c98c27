// Package translation implements the process-wide translation context
// (spec C8, §4.8, §5): a read-mostly cache of translated formats keyed
// by language, refreshed under a single-writer guard and swapped in
// atomically so readers never block.
package translation

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/bmlt-enabled/tomato/internal/domain/formats"
)

// Loader fetches every TranslatedFormat currently in the store. It is
// supplied by internal/store/postgres; kept as an interface here so the
// cache has no direct database dependency.
type Loader interface {
	LoadAllTranslations(ctx context.Context) ([]formats.TranslatedFormat, error)
	MaxLastSuccessfulImport(ctx context.Context) (time.Time, error)
}

type snapshot struct {
	byLangAndFormat map[string]map[int]formats.TranslatedFormat
	builtAt         time.Time
}

// Cache is the process-wide {language -> {format_id -> TranslatedFormat}}
// table plus cache_timestamp (spec §4.8).
type Cache struct {
	loader  Loader
	current atomic.Pointer[snapshot]
	rebuild singleflight.Group // single-writer guard; readers need no lock
}

func NewCache(loader Loader) *Cache {
	c := &Cache{loader: loader}
	c.current.Store(&snapshot{byLangAndFormat: map[string]map[int]formats.TranslatedFormat{}})
	return c
}

// EnsureFresh rebuilds the cache if the store's newest
// last_successful_import is newer than the cache's build time, or the
// cache is empty (spec §4.8).
func (c *Cache) EnsureFresh(ctx context.Context) error {
	cur := c.current.Load()
	maxImport, err := c.loader.MaxLastSuccessfulImport(ctx)
	if err != nil {
		return err
	}
	if len(cur.byLangAndFormat) > 0 && !maxImport.After(cur.builtAt) {
		return nil
	}

	// Collapse concurrent rebuild requests into a single loader call;
	// every caller racing in here gets the same result.
	_, err, _ = c.rebuild.Do("rebuild", func() (interface{}, error) {
		// Re-check now that we hold the singleflight slot: another
		// caller may have just finished rebuilding.
		cur := c.current.Load()
		if len(cur.byLangAndFormat) > 0 && !maxImport.After(cur.builtAt) {
			return nil, nil
		}

		all, err := c.loader.LoadAllTranslations(ctx)
		if err != nil {
			return nil, err
		}

		byLang := make(map[string]map[int]formats.TranslatedFormat)
		for _, tf := range all {
			m, ok := byLang[tf.Language]
			if !ok {
				m = make(map[int]formats.TranslatedFormat)
				byLang[tf.Language] = m
			}
			m[tf.FormatID] = tf
		}

		c.current.Store(&snapshot{byLangAndFormat: byLang, builtAt: time.Now()})
		return nil, nil
	})
	return err
}

// Lookup resolves the translation for formatID in language, falling back
// to English, else reporting ok=false (spec §4.8: "fallback to English,
// else omit").
func (c *Cache) Lookup(formatID int, language string) (formats.TranslatedFormat, bool) {
	snap := c.current.Load()
	if byFormat, ok := snap.byLangAndFormat[language]; ok {
		if tf, ok := byFormat[formatID]; ok {
			return tf, true
		}
	}
	if byFormat, ok := snap.byLangAndFormat["en"]; ok {
		if tf, ok := byFormat[formatID]; ok {
			return tf, true
		}
	}
	return formats.TranslatedFormat{}, false
}

// KeyString is a convenience wrapper over Lookup for the field-map
// computed accessor (spec §9 open question: "the computed path is
// normative because it honours language fallback").
func (c *Cache) KeyString(formatID int, language string) string {
	tf, ok := c.Lookup(formatID, language)
	if !ok {
		return ""
	}
	return tf.KeyString
}

type contextKey struct{}

// WithLanguage binds a request's chosen language to its context (spec
// §5: "the language for the current request is bound to a task-local
// handle for the duration of the request").
func WithLanguage(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, contextKey{}, lang)
}

// LanguageFromContext reads the bound language, defaulting to "en".
func LanguageFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(contextKey{}).(string); ok && v != "" {
		return v
	}
	return "en"
}

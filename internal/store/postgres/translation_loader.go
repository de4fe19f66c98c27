package postgres

import (
	"context"
	"time"

	"github.com/bmlt-enabled/tomato/internal/domain/formats"
)

// TranslationLoader adapts Repository to translation.Loader, combining
// the two sub-repository queries the cache needs.
type TranslationLoader struct{ repo *Repository }

func NewTranslationLoader(repo *Repository) *TranslationLoader {
	return &TranslationLoader{repo: repo}
}

func (l *TranslationLoader) LoadAllTranslations(ctx context.Context) ([]formats.TranslatedFormat, error) {
	return l.repo.Formats().LoadAllTranslations(ctx)
}

func (l *TranslationLoader) MaxLastSuccessfulImport(ctx context.Context) (time.Time, error) {
	return l.repo.RootServers().MaxLastSuccessfulImport(ctx)
}

package formats

import (
	"strings"

	"github.com/bmlt-enabled/tomato/internal/domain/normalize"
)

// Validate coerces one raw translated-format record into its canonical
// scalar form and the Format it belongs to (spec §4.2, §4.4 step 3).
func Validate(rootServerID int, raw Raw) (Format, TranslatedFormat, *normalize.Failure) {
	id, f := normalize.Int("id", raw.ID)
	if f != nil {
		return Format{}, TranslatedFormat{}, f
	}
	keyString, f := normalize.RequiredString("key_string", raw.KeyString)
	if f != nil {
		return Format{}, TranslatedFormat{}, f
	}

	lang := strings.TrimSpace(raw.Lang)
	if lang == "" {
		lang = "en"
	}

	fmtRecord := Format{
		SourceID:     id,
		RootServerID: rootServerID,
		WorldID:      strings.TrimSpace(raw.WorldID),
		Type:         raw.Type,
	}
	translated := TranslatedFormat{
		Language:    lang,
		KeyString:   keyString,
		Name:        raw.Name,
		Description: raw.Description,
	}
	return fmtRecord, translated, nil
}

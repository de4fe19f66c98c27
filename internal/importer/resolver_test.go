package importer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootResolverServiceBodyLookups(t *testing.T) {
	r := newRootResolver()
	r.serviceBodyBySourceID[5] = 100
	r.serviceBodyByWorldID["NA-A01"] = 100

	id, ok := r.ServiceBodyID(0, 5)
	require.True(t, ok)
	require.Equal(t, 100, id)

	id, ok = r.ServiceBodyIDByWorldID(0, "NA-A01")
	require.True(t, ok)
	require.Equal(t, 100, id)

	_, ok = r.ServiceBodyID(0, 999)
	require.False(t, ok)
}

func TestAddFormatTranslationPrefersEnglish(t *testing.T) {
	r := newRootResolver()
	r.addFormatTranslation(1, "fr", "O")
	require.Equal(t, 1, r.formatByKeyString["O"])

	r.addFormatTranslation(2, "en", "O")
	require.Equal(t, 2, r.formatByKeyString["O"], "english translation should override an earlier non-english mapping")

	r.addFormatTranslation(3, "de", "O")
	require.Equal(t, 2, r.formatByKeyString["O"], "a later non-english translation must not override english")
}

func TestAddFormatTranslationIgnoresBlankKeyString(t *testing.T) {
	r := newRootResolver()
	r.addFormatTranslation(1, "en", "   ")
	require.Empty(t, r.formatByKeyString)
}

func TestFormatIDsBySourceIDFiltersUnknown(t *testing.T) {
	r := newRootResolver()
	r.formatBySourceID[1] = 10
	r.formatBySourceID[2] = 20

	ids := r.FormatIDsBySourceID(0, []int{1, 2, 3})
	require.Equal(t, []int{10, 20}, ids)
}

func TestFormatIDsByKeyStringFiltersUnknown(t *testing.T) {
	r := newRootResolver()
	r.formatByKeyString["O"] = 10
	r.formatByKeyString["C"] = 20

	ids := r.FormatIDsByKeyString(0, []string{})
	require.Empty(t, ids)

	ids = r.FormatIDsByKeyString(0, []string{"O", "X", "C"})
	require.Equal(t, []int{10, 20}, ids)
}

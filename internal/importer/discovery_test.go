package importer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiscoverRootsDropsIgnoredURLs(t *testing.T) {
	body := []byte(`[{"id":1,"name":"A","rootURL":"https://a.example"},{"id":2,"name":"B","rootURL":"https://b.example"}]`)
	f := urlFetcher{responses: map[string][]byte{"https://list.example/roots.json": body}}

	roots, err := discoverRoots(context.Background(), f, "https://list.example/roots.json", ignoredSet([]string{"https://b.example"}))
	require.NoError(t, err)
	require.Len(t, roots, 1)
	require.Equal(t, "https://a.example", roots[0].RootURL)
	require.Equal(t, 1, roots[0].ID)
}

func TestDiscoverRootsPropagatesFetchError(t *testing.T) {
	f := urlFetcher{errs: map[string]error{"https://list.example/roots.json": context.DeadlineExceeded}}

	_, err := discoverRoots(context.Background(), f, "https://list.example/roots.json", nil)
	require.Error(t, err)
}

func TestDiscoverRootsRejectsMalformedJSON(t *testing.T) {
	f := urlFetcher{responses: map[string][]byte{"https://list.example/roots.json": []byte("not json")}}

	_, err := discoverRoots(context.Background(), f, "https://list.example/roots.json", nil)
	require.Error(t, err)
}

func TestIgnoredSetBuildsLookupMap(t *testing.T) {
	s := ignoredSet([]string{"a", "b"})
	require.True(t, s["a"])
	require.False(t, s["c"])
}

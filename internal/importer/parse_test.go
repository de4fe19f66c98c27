package importer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type urlFetcher struct {
	responses map[string][]byte
	errs      map[string]error
}

func (f urlFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	return f.responses[url], nil
}

func TestSwitcherURLBuildsClientInterfacePath(t *testing.T) {
	u := switcherURL("https://example.org/", "GetServerInfo", nil)
	require.Equal(t, "https://example.org/client_interface/json/?switcher=GetServerInfo", u)
}

func TestFetchServerInfoParsesLangsAndCoordinates(t *testing.T) {
	body := []byte(`[{"version":"2.9","langs":"en,fr","centerLatitude":"40.1","centerLongitude":"-74.2"}]`)
	f := urlFetcher{responses: map[string][]byte{
		switcherURL("https://example.org", "GetServerInfo", nil): body,
	}}

	info, err := fetchServerInfo(context.Background(), f, "https://example.org")
	require.NoError(t, err)
	require.Equal(t, "2.9", info.Version)
	require.Equal(t, []string{"en", "fr"}, info.Languages)
	require.NotNil(t, info.CenterLatitude)
	require.InDelta(t, 40.1, *info.CenterLatitude, 0.0001)
}

func TestFetchServerInfoDefaultsLanguageToEnglish(t *testing.T) {
	body := []byte(`[{"version":"2.9","langs":""}]`)
	f := urlFetcher{responses: map[string][]byte{
		switcherURL("https://example.org", "GetServerInfo", nil): body,
	}}

	info, err := fetchServerInfo(context.Background(), f, "https://example.org")
	require.NoError(t, err)
	require.Equal(t, []string{"en"}, info.Languages)
}

func TestFetchServerInfoRejectsEmptyResponse(t *testing.T) {
	f := urlFetcher{responses: map[string][]byte{
		switcherURL("https://example.org", "GetServerInfo", nil): []byte(`[]`),
	}}

	_, err := fetchServerInfo(context.Background(), f, "https://example.org")
	require.Error(t, err)
}

func TestFetchFormatsDefaultsLangWhenUpstreamOmitsIt(t *testing.T) {
	url := switcherURL("https://example.org", "GetFormats", map[string][]string{"lang_enum": {"fr"}})
	body := []byte(`[{"id":"1","key_string":"O","name_string":"Ouvert"}]`)
	f := urlFetcher{responses: map[string][]byte{url: body}}

	raw, err := fetchFormats(context.Background(), f, "https://example.org", "fr")
	require.NoError(t, err)
	require.Len(t, raw, 1)
	require.Equal(t, "fr", raw[0].Lang)
}

func TestNAWSDumpURLIncludesServiceBodyID(t *testing.T) {
	u := nawsDumpURL("https://example.org", 42)
	require.Contains(t, u, "switcher=GetNAWSDump")
	require.Contains(t, u, "sb_id=42")
}

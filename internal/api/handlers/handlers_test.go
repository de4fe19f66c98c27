package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestHandlers() *Handlers {
	return &Handlers{}
}

func request(t *testing.T, target string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.SetPathValue("format", extractFormatSegment(target))
	return req
}

// extractFormatSegment mimics the router's path-value extraction for a
// /client_interface/<format>/ request used only by these tests.
func extractFormatSegment(target string) string {
	const prefix = "/client_interface/"
	if len(target) <= len(prefix) {
		return ""
	}
	rest := target[len(prefix):]
	for i, c := range rest {
		if c == '/' || c == '?' {
			return rest[:i]
		}
	}
	return rest
}

func TestServeHTTPRejectsUnknownFormat(t *testing.T) {
	h := newTestHandlers()
	req := request(t, "/client_interface/bogus/?switcher=GetServerInfo")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeHTTPRejectsJSONPWithoutCallback(t *testing.T) {
	h := newTestHandlers()
	req := request(t, "/client_interface/jsonp/?switcher=GetServerInfo")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeHTTPRejectsKMLForNonSearchSwitcher(t *testing.T) {
	h := newTestHandlers()
	req := request(t, "/client_interface/kml/?switcher=GetServerInfo")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeHTTPRejectsPOIForNonSearchSwitcher(t *testing.T) {
	h := newTestHandlers()
	req := request(t, "/client_interface/poi/?switcher=GetFormats")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeHTTPRejectsNAWSDumpForNonCSVFormat(t *testing.T) {
	h := newTestHandlers()
	req := request(t, "/client_interface/json/?switcher=GetNAWSDump")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeHTTPRejectsUnknownSwitcher(t *testing.T) {
	h := newTestHandlers()
	req := request(t, "/client_interface/json/?switcher=Bogus")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseIDCSVAcceptsScalarAndListForms(t *testing.T) {
	values := httptest.NewRequest(http.MethodGet, "/?root_server_id=1,2&root_server_ids[]=3", nil).URL.Query()
	ids := parseIDCSV(values, "root_server_id", "root_server_ids[]")
	require.Equal(t, []int{1, 2, 3}, ids)
}

func TestParseIDCSVIgnoresNonNumeric(t *testing.T) {
	values := httptest.NewRequest(http.MethodGet, "/?root_server_id=1,abc,3", nil).URL.Query()
	ids := parseIDCSV(values, "root_server_id", "root_server_ids[]")
	require.Equal(t, []int{1, 3}, ids)
}

func TestSortedIntsReturnsAscendingOrder(t *testing.T) {
	ids := sortedInts(map[int]bool{3: true, 1: true, 2: true})
	require.Equal(t, []int{1, 2, 3}, ids)
}

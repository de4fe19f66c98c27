package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/bmlt-enabled/tomato/internal/domain/formats"
	"github.com/bmlt-enabled/tomato/internal/domain/meetings"
	"github.com/bmlt-enabled/tomato/internal/domain/rootservers"
	"github.com/bmlt-enabled/tomato/internal/domain/servicebodies"
)

// switcherURL builds one upstream semantic-protocol request URL (spec
// §6.2: "<root>/client_interface/json/?switcher=...").
func switcherURL(rootURL, switcher string, extra url.Values) string {
	u := strings.TrimRight(rootURL, "/") + "/client_interface/json/"
	q := url.Values{"switcher": {switcher}}
	for k, vs := range extra {
		q[k] = vs
	}
	return u + "?" + q.Encode()
}

type rawServerInfo struct {
	Version         string `json:"version"`
	Langs           string `json:"langs"`
	CenterLatitude  string `json:"centerLatitude"`
	CenterLongitude string `json:"centerLongitude"`
}

// fetchServerInfo retrieves and decodes the upstream GetServerInfo
// document (spec §6.2), used to discover per-root languages for the
// formats import pass (§4.4 step 3).
func fetchServerInfo(ctx context.Context, f Fetcher, rootURL string) (rootservers.ServerInfo, error) {
	body, err := f.Fetch(ctx, switcherURL(rootURL, "GetServerInfo", nil))
	if err != nil {
		return rootservers.ServerInfo{}, err
	}
	var raw []rawServerInfo
	if err := json.Unmarshal(body, &raw); err != nil {
		return rootservers.ServerInfo{}, fmt.Errorf("decode GetServerInfo: %w", err)
	}
	if len(raw) == 0 {
		return rootservers.ServerInfo{}, fmt.Errorf("empty GetServerInfo response")
	}
	info := rootservers.ServerInfo{Version: raw[0].Version}
	if raw[0].Langs != "" {
		info.Languages = strings.Split(raw[0].Langs, ",")
	} else {
		info.Languages = []string{"en"}
	}
	if lat, err := parseOptionalFloat(raw[0].CenterLatitude); err == nil {
		info.CenterLatitude = lat
	}
	if lon, err := parseOptionalFloat(raw[0].CenterLongitude); err == nil {
		info.CenterLongitude = lon
	}
	return info, nil
}

func parseOptionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty")
	}
	var v float64
	if _, err := fmt.Sscanf(s, "%g", &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// fetchServiceBodies retrieves and decodes the upstream GetServiceBodies
// document.
func fetchServiceBodies(ctx context.Context, f Fetcher, rootURL string) ([]servicebodies.Raw, error) {
	body, err := f.Fetch(ctx, switcherURL(rootURL, "GetServiceBodies", nil))
	if err != nil {
		return nil, err
	}
	var raw []servicebodies.Raw
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode GetServiceBodies: %w", err)
	}
	return raw, nil
}

// fetchFormats retrieves and decodes the upstream GetFormats document
// for one declared language.
func fetchFormats(ctx context.Context, f Fetcher, rootURL, lang string) ([]formats.Raw, error) {
	body, err := f.Fetch(ctx, switcherURL(rootURL, "GetFormats", url.Values{"lang_enum": {lang}}))
	if err != nil {
		return nil, err
	}
	var raw []formats.Raw
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode GetFormats(%s): %w", lang, err)
	}
	for i := range raw {
		if raw[i].Lang == "" {
			raw[i].Lang = lang
		}
	}
	return raw, nil
}

// fetchMeetings retrieves and decodes the upstream GetSearchResults
// document (the primary meeting list, spec §6.2).
func fetchMeetings(ctx context.Context, f Fetcher, rootURL string) ([]meetings.Raw, error) {
	body, err := f.Fetch(ctx, switcherURL(rootURL, "GetSearchResults", nil))
	if err != nil {
		return nil, err
	}
	var raw []meetings.Raw
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode GetSearchResults: %w", err)
	}
	return raw, nil
}

// nawsDumpURL builds the supplementary tabular-dump endpoint (spec
// §6.2: "a CSV endpoint ?switcher=GetNAWSDump&sb_id=…").
func nawsDumpURL(rootURL string, sbID int) string {
	return switcherURL(rootURL, "GetNAWSDump", url.Values{"sb_id": {fmt.Sprint(sbID)}})
}

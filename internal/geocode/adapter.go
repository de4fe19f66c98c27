package geocode

import "context"

// resultGeocoder is satisfied by both *Client and *CachingClient.
type resultGeocoder interface {
	Geocode(ctx context.Context, address string) (Result, error)
}

// QueryAdapter narrows a resultGeocoder's (lat, lon) pair into the
// (lat, lon float64, err) shape internal/query's Geocoder interface
// expects, keeping the query engine free of this package's Result type.
type QueryAdapter struct {
	inner resultGeocoder
}

// NewQueryAdapter wraps a geocoder for use as internal/query's Geocoder.
func NewQueryAdapter(inner resultGeocoder) *QueryAdapter {
	return &QueryAdapter{inner: inner}
}

func (a *QueryAdapter) Geocode(ctx context.Context, address string) (float64, float64, error) {
	result, err := a.inner.Geocode(ctx, address)
	if err != nil {
		return 0, 0, err
	}
	return result.Latitude, result.Longitude, nil
}

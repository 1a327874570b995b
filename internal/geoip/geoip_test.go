package geoip

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/patrickwarner/adkit/internal/observability"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeLocator struct {
	loc *Location
	err error
}

func (f fakeLocator) City(net.IP) (*Location, error) { return f.loc, f.err }

func TestInitJSONFallback(t *testing.T) {
	g, err := Init(filepath.Join("testdata", "fallback.json"))
	require.NoError(t, err)
	defer g.Close()

	loc, err := g.City(net.ParseIP("8.8.8.8"))
	require.NoError(t, err)
	assert.Equal(t, &Location{
		CountryCode: "US",
		Region:      "CA",
		DMACode:     807,
		City:        "Mountain View",
		PostalCode:  "94035",
		TimeZone:    "America/Los_Angeles",
		Latitude:    37.386,
		Longitude:   -122.0838,
	}, loc)

	assert.Equal(t, "DE", g.Country(net.ParseIP("2001:db8::1")))
	assert.Equal(t, "", g.Country(net.ParseIP("1.1.1.1")))

	_, err = g.City(net.ParseIP("1.1.1.1"))
	assert.ErrorIs(t, err, ErrAddressNotFound)
}

func TestInitMissingFile(t *testing.T) {
	_, err := Init(filepath.Join(t.TempDir(), "missing.mmdb"))
	assert.Error(t, err)
}

func TestInitInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err := Init(path)
	assert.Error(t, err)
}

func TestNilGeoIP(t *testing.T) {
	var g *GeoIP
	_, err := g.City(net.ParseIP("8.8.8.8"))
	assert.ErrorIs(t, err, ErrAddressNotFound)
	assert.NoError(t, g.Close())
}

func TestGetGeolocation(t *testing.T) {
	g, err := Init(filepath.Join("testdata", "fallback.json"))
	require.NoError(t, err)

	assert.Nil(t, GetGeolocation(g, "invalid-ip"))
	assert.Nil(t, GetGeolocation(g, "1.1.1.1"))
	assert.Nil(t, GetGeolocation(nil, "8.8.8.8"))

	loc := GetGeolocation(g, "81.2.69.160")
	require.NotNil(t, loc)
	assert.Equal(t, "GB", loc.CountryCode)
	assert.Equal(t, "ENG", loc.Region)
	assert.Zero(t, loc.DMACode)
}

func TestGetGeolocationSwallowsErrors(t *testing.T) {
	assert.Nil(t, GetGeolocation(fakeLocator{err: errors.New("db corrupt")}, "8.8.8.8"))
	assert.Nil(t, GetGeolocation(fakeLocator{err: ErrAddressNotFound}, "8.8.8.8"))

	want := &Location{CountryCode: "US", Region: "NY", DMACode: 501}
	assert.Equal(t, want, GetGeolocation(fakeLocator{loc: want}, "8.8.8.8"))
}

func TestResolverOutcomes(t *testing.T) {
	metrics := observability.NewMockMetricsRegistry()

	NewResolver(fakeLocator{loc: &Location{CountryCode: "US"}}, metrics).Lookup("8.8.8.8")
	NewResolver(fakeLocator{err: ErrAddressNotFound}, metrics).Lookup("8.8.8.8")
	NewResolver(fakeLocator{err: errors.New("boom")}, metrics).Lookup("8.8.8.8")
	NewResolver(fakeLocator{}, metrics).Lookup("nope")

	assert.Equal(t, 1, metrics.Count("geo_lookups:found"))
	assert.Equal(t, 1, metrics.Count("geo_lookups:not_found"))
	assert.Equal(t, 1, metrics.Count("geo_lookups:error"))
	assert.Equal(t, 1, metrics.Count("geo_lookups:invalid"))
}

func TestResolverLogsAnonymizedIP(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	NewResolver(fakeLocator{err: errors.New("boom")}, nil).Lookup("8.8.8.8")

	entries := logs.FilterMessage("geoip lookup failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "8.8.8.0", entries[0].ContextMap()["ip"])
}

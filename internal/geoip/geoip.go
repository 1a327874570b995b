// Package geoip resolves visitor IPs to locations using a MaxMind GeoIP2 /
// GeoLite2 City database, or a JSON list of CIDR ranges when no database is
// available.
package geoip

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/oschwald/geoip2-golang"
)

// ErrAddressNotFound is returned when the database has no entry for an IP.
var ErrAddressNotFound = errors.New("address not found")

// Location is the geolocation of an IP. Unknown fields are left empty.
type Location struct {
	CountryCode string  `json:"country_code,omitempty"`
	Region      string  `json:"region,omitempty"`
	DMACode     uint    `json:"dma_code,omitempty"`
	City        string  `json:"city,omitempty"`
	PostalCode  string  `json:"postal_code,omitempty"`
	TimeZone    string  `json:"time_zone,omitempty"`
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
}

// Locator looks up the location of an IP.
type Locator interface {
	City(ip net.IP) (*Location, error)
}

// GeoIP implements Locator over a GeoIP2 City database or a JSON fallback.
type GeoIP struct {
	db       *geoip2.Reader
	fallback []record
}

type record struct {
	net *net.IPNet
	loc Location
}

// fallbackEntry is one element of the JSON fallback file.
type fallbackEntry struct {
	Net        string  `json:"net"`
	Country    string  `json:"country"`
	Region     string  `json:"region"`
	DMA        uint    `json:"dma"`
	City       string  `json:"city"`
	PostalCode string  `json:"postal_code"`
	TimeZone   string  `json:"time_zone"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
}

// Init opens the GeoIP2 database located at path. When path is not a
// MaxMind database it is read as a JSON array of CIDR entries; the error of
// the database open is returned if that fails too.
func Init(path string) (*GeoIP, error) {
	g := &GeoIP{}
	db, err := geoip2.Open(path)
	if err == nil {
		g.db = db
		return g, nil
	}

	data, jerr := os.ReadFile(path)
	if jerr != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}
	var entries []fallbackEntry
	if jerr = json.Unmarshal(data, &entries); jerr != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}
	for _, e := range entries {
		_, n, perr := net.ParseCIDR(e.Net)
		if perr != nil {
			continue
		}
		g.fallback = append(g.fallback, record{net: n, loc: Location{
			CountryCode: e.Country,
			Region:      e.Region,
			DMACode:     e.DMA,
			City:        e.City,
			PostalCode:  e.PostalCode,
			TimeZone:    e.TimeZone,
			Latitude:    e.Latitude,
			Longitude:   e.Longitude,
		}})
	}
	return g, nil
}

// City returns the location of ip, or ErrAddressNotFound.
func (g *GeoIP) City(ip net.IP) (*Location, error) {
	if g == nil || ip == nil {
		return nil, ErrAddressNotFound
	}
	if g.db != nil {
		rec, err := g.db.City(ip)
		if err != nil {
			return nil, fmt.Errorf("geoip city lookup: %w", err)
		}
		// the reader returns an empty record for unknown networks
		if rec.Country.IsoCode == "" && rec.Location.Latitude == 0 && rec.Location.Longitude == 0 {
			return nil, ErrAddressNotFound
		}
		return fromCity(rec), nil
	}
	for _, r := range g.fallback {
		if r.net.Contains(ip) {
			loc := r.loc
			return &loc, nil
		}
	}
	return nil, ErrAddressNotFound
}

func fromCity(rec *geoip2.City) *Location {
	loc := &Location{
		CountryCode: rec.Country.IsoCode,
		DMACode:     rec.Location.MetroCode,
		City:        rec.City.Names["en"],
		PostalCode:  rec.Postal.Code,
		TimeZone:    rec.Location.TimeZone,
		Latitude:    rec.Location.Latitude,
		Longitude:   rec.Location.Longitude,
	}
	if len(rec.Subdivisions) > 0 {
		loc.Region = rec.Subdivisions[0].IsoCode
	}
	return loc
}

// Country returns the ISO country code for ip, or "" when unknown.
func (g *GeoIP) Country(ip net.IP) string {
	if loc, err := g.City(ip); err == nil {
		return loc.CountryCode
	}
	return ""
}

// Close releases resources associated with the database.
func (g *GeoIP) Close() error {
	if g != nil && g.db != nil {
		return g.db.Close()
	}
	return nil
}

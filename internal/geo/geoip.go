// Package geo resolves exit IPs to a coarse location using a MaxMind
// GeoLite2/GeoIP2 City database.
package geo

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/lukman83/beast-antidetect/internal/models"
	"github.com/oschwald/geoip2-golang"
)

// DB wraps an opened City database. It is safe for concurrent use.
type DB struct {
	reader *geoip2.Reader
}

// Open loads the database at path.
func Open(path string) (*DB, error) {
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}
	return &DB{reader: r}, nil
}

// Lookup returns the location recorded for addr.
func (d *DB) Lookup(addr netip.Addr) (*models.GeoInfo, error) {
	record, err := d.reader.City(net.IP(addr.AsSlice()))
	if err != nil {
		return nil, fmt.Errorf("geoip lookup %s: %w", addr, err)
	}
	return &models.GeoInfo{
		Country:  record.Country.IsoCode,
		City:     record.City.Names["en"],
		TimeZone: record.Location.TimeZone,
	}, nil
}

func (d *DB) Close() error {
	return d.reader.Close()
}

package geoip

import (
	"fmt"
	"net/netip"
	"strings"
	"sync"

	"github.com/oschwald/maxminddb-golang/v2"
)

// Lookup maps addresses to lowercase two-letter country codes using a
// MaxMind country database. Results are cached per address for the life of
// the process; the published connection set revisits the same addresses
// every cycle.
type Lookup struct {
	reader *maxminddb.Reader

	mu    sync.Mutex
	cache map[string]string
}

// Open loads the database at path.
func Open(path string) (*Lookup, error) {
	reader, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open geoip database: %w", err)
	}
	return &Lookup{reader: reader, cache: make(map[string]string)}, nil
}

// LocaleFor returns the country code for an address, or "" when the address
// is unparsable or not in the database. It never fails a caller.
func (l *Lookup) LocaleFor(address string) string {
	l.mu.Lock()
	locale, ok := l.cache[address]
	l.mu.Unlock()
	if ok {
		return locale
	}

	addr, err := netip.ParseAddr(address)
	if err != nil {
		return ""
	}

	var record struct {
		Country struct {
			ISOCode string `maxminddb:"iso_code"`
		} `maxminddb:"country"`
	}
	if err := l.reader.Lookup(addr).Decode(&record); err != nil {
		return ""
	}
	locale = strings.ToLower(record.Country.ISOCode)

	l.mu.Lock()
	l.cache[address] = locale
	l.mu.Unlock()
	return locale
}

// Close releases the database.
func (l *Lookup) Close() error {
	return l.reader.Close()
}

package directory

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
)

// Relay is one consensus entry in the cache file.
type Relay struct {
	Fingerprint string `json:"fingerprint"`
	Nickname    string `json:"nickname"`
	Address     string `json:"address"`
	ORPort      uint16 `json:"or_port"`
	DirPort     uint16 `json:"dir_port,omitempty"`
}

// Cache is a consensus snapshot supporting the lookups classification needs:
// address to relay fingerprints, fingerprint to nickname and address. An
// address can host several relays on different ports; lookups return every
// match and never pick one arbitrarily.
type Cache struct {
	mu            sync.RWMutex
	byAddress     map[string]map[uint16]string
	byFingerprint map[string]Relay
}

// NewCache creates an empty cache. Every lookup degrades to "unknown".
func NewCache() *Cache {
	return &Cache{
		byAddress:     make(map[string]map[uint16]string),
		byFingerprint: make(map[string]Relay),
	}
}

// Load reads a consensus cache file, a JSON document of the form
// {"relays": [{"fingerprint": ..., "nickname": ..., "address": ..., "or_port": ...}]}.
func Load(path string) (*Cache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read consensus cache: %w", err)
	}

	var doc struct {
		Relays []Relay `json:"relays"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse consensus cache: %w", err)
	}

	c := NewCache()
	c.Update(doc.Relays)
	return c, nil
}

// Update replaces the cache contents with the given relays.
func (c *Cache) Update(relays []Relay) {
	byAddress := make(map[string]map[uint16]string)
	byFingerprint := make(map[string]Relay, len(relays))

	for _, relay := range relays {
		if relay.Fingerprint == "" || relay.Address == "" {
			continue
		}
		ports := byAddress[relay.Address]
		if ports == nil {
			ports = make(map[uint16]string)
			byAddress[relay.Address] = ports
		}
		ports[relay.ORPort] = relay.Fingerprint
		byFingerprint[relay.Fingerprint] = relay
	}

	c.mu.Lock()
	c.byAddress = byAddress
	c.byFingerprint = byFingerprint
	c.mu.Unlock()
}

// FingerprintsFor returns every known relay at the address, keyed by OR port.
func (c *Cache) FingerprintsFor(address string) map[uint16]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ports := c.byAddress[address]
	out := make(map[uint16]string, len(ports))
	for port, fingerprint := range ports {
		out[port] = fingerprint
	}
	return out
}

// NicknameFor returns the relay's nickname, or "" if unknown.
func (c *Cache) NicknameFor(fingerprint string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byFingerprint[fingerprint].Nickname
}

// AddressFor returns the relay's OR address and port.
func (c *Cache) AddressFor(fingerprint string) (string, uint16, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	relay, ok := c.byFingerprint[fingerprint]
	if !ok {
		return "", 0, false
	}
	return relay.Address, relay.ORPort, true
}

// MultipleMatches reports whether more than one relay shares the address,
// and if so returns the candidate OR ports in ascending order. This is the
// "multiple matches" condition the presentation layer renders; the core
// never resolves the ambiguity itself.
func (c *Cache) MultipleMatches(address string) ([]uint16, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ports := c.byAddress[address]
	if len(ports) <= 1 {
		return nil, false
	}

	out := make([]uint16, 0, len(ports))
	for port := range ports {
		out = append(out, port)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, true
}

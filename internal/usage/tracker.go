package usage

import (
	"regexp"
	"strconv"
	"strings"
	"sync"

	"RelayScope/internal/entry"
	"RelayScope/internal/model"
)

var seedEntryPattern = regexp.MustCompile(`^[a-zA-Z]{2}=[0-9]+$`)

// Tracker accumulates client locale and exiting port statistics across the
// session. Only private entries are counted, and only their category, port,
// and locale are retained: the tracker never stores an address. Counts never
// decrease and the tracker never resets itself.
type Tracker struct {
	mu sync.Mutex

	clientLocaleUsage map[string]int
	exitPortUsage     map[uint16]int
	counted           map[model.Connection]struct{}
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		clientLocaleUsage: make(map[string]int),
		exitPortUsage:     make(map[uint16]int),
		counted:           make(map[model.Connection]struct{}),
	}
}

// Observe counts the private entries of one poll cycle. A connection is
// examined at most once for the life of the session: once it enters the
// counted set it is skipped on every later cycle, whether or not a counter
// was incremented for it.
func (t *Tracker) Observe(entries []entry.Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range entries {
		if !e.IsPrivate() {
			continue
		}

		conn := e.Lines()[0].Connection
		if _, done := t.counted[conn]; done {
			continue
		}

		switch e.Category() {
		case model.CategoryInbound:
			if locale := e.Lines()[0].Locale; locale != "" {
				t.clientLocaleUsage[locale]++
			}
		case model.CategoryExit:
			t.exitPortUsage[conn.RemotePort]++
		}

		t.counted[conn] = struct{}{}
	}
}

// Seed merges a "locale=count" comma list into the locale counters. Entries
// that don't match the strict two-letter-locale/non-negative-integer pattern
// are silently dropped; the rest are added to any existing counts.
func (t *Tracker) Seed(report string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, item := range strings.Split(report, ",") {
		if !seedEntryPattern.MatchString(item) {
			continue
		}
		locale, countStr, _ := strings.Cut(item, "=")
		count, err := strconv.Atoi(countStr)
		if err != nil {
			continue
		}
		t.clientLocaleUsage[locale] += count
	}
}

// SeedFromClientsSeen extracts the CountrySummary field from a clients-seen
// status response and seeds from it. Responses look like:
//
//	TimeStarted="2011-08-17 15:50:49" CountrySummary=us=16,de=8,uk=8
func (t *Tracker) SeedFromClientsSeen(response string) {
	for _, field := range strings.Fields(response) {
		if summary, ok := strings.CutPrefix(field, "CountrySummary="); ok {
			t.Seed(summary)
			return
		}
	}
}

// LocaleCounts returns a copy of the per-locale client counts.
func (t *Tracker) LocaleCounts() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]int, len(t.clientLocaleUsage))
	for k, v := range t.clientLocaleUsage {
		out[k] = v
	}
	return out
}

// ExitPortCounts returns a copy of the per-port exit counts.
func (t *Tracker) ExitPortCounts() map[uint16]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[uint16]int, len(t.exitPortUsage))
	for k, v := range t.exitPortUsage {
		out[k] = v
	}
	return out
}

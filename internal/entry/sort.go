package entry

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"RelayScope/internal/model"
)

// endSentinel ranks unresolved fingerprints, nicknames, and locales after
// every real value.
var endSentinel = strings.Repeat("z", 20)

// sortKey is one entry's comparable value for a single sort attribute. Keys
// for the same attribute are always the same kind, numeric or textual.
type sortKey struct {
	text bool
	num  uint64
	str  string
}

func (k sortKey) compare(other sortKey) int {
	if k.text {
		return strings.Compare(k.str, other.str)
	}
	switch {
	case k.num < other.num:
		return -1
	case k.num > other.num:
		return 1
	}
	return 0
}

func (e *ConnectionEntry) sortKey(attr model.SortAttr) sortKey {
	return lineSortKey(e.lines[0], e.category, e.private, attr)
}

func (e *CircuitEntry) sortKey(attr model.SortAttr) sortKey {
	return lineSortKey(e.lines[0], model.CategoryCircuit, false, attr)
}

func lineSortKey(line Line, category model.Category, private bool, attr model.SortAttr) sortKey {
	conn := line.Connection

	switch attr {
	case model.SortByIPAddress:
		if private {
			return sortKey{num: math.MaxUint64} // orders at the end
		}
		return sortKey{num: packAddress(conn.RemoteAddress)*65536 + uint64(conn.RemotePort)}
	case model.SortByPort:
		return sortKey{num: uint64(conn.RemotePort)}
	case model.SortByFingerprint:
		return textKey(line.Fingerprint)
	case model.SortByNickname:
		return textKey(line.Nickname)
	case model.SortByCategory:
		return sortKey{num: uint64(category.Ordinal())}
	case model.SortByUptime:
		return sortKey{num: uint64(conn.StartedAt)}
	case model.SortByCountry:
		if private {
			return sortKey{text: true, str: endSentinel}
		}
		return textKey(line.Locale)
	}
	return sortKey{text: true}
}

func textKey(s string) sortKey {
	if s == "" {
		return sortKey{text: true, str: endSentinel}
	}
	return sortKey{text: true, str: s}
}

// packAddress folds a dotted-decimal address into a single integer so that
// numeric comparison matches address comparison. Unparsable octets count
// as zero rather than failing the sort.
func packAddress(address string) uint64 {
	var packed uint64
	for _, octet := range strings.SplitN(address, ".", 4) {
		v, err := strconv.ParseUint(octet, 10, 8)
		if err != nil {
			v = 0
		}
		packed = packed<<8 | v
	}
	return packed
}

// SortEntries orders entries by the configured attributes, ties falling
// through to the next attribute and finally to the pre-sort relative order.
// Stability is a required property: callers rely on equal-keyed entries
// keeping their positions.
func SortEntries(entries []Entry, order []model.SortAttr) {
	sort.SliceStable(entries, func(i, j int) bool {
		for _, attr := range order {
			if c := entries[i].sortKey(attr).compare(entries[j].sortKey(attr)); c != 0 {
				return c < 0
			}
		}
		return false
	})
}

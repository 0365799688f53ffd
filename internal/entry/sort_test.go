package entry

import (
	"testing"

	"RelayScope/internal/model"
)

func entriesOf(t *testing.T, src Sources, ctx *Context, conns ...model.Connection) []Entry {
	t.Helper()
	out := make([]Entry, len(conns))
	for i, c := range conns {
		out[i] = NewConnectionEntry(c, ctx, src)
	}
	return out
}

func TestSortCategoryThenAddress(t *testing.T) {
	src := testSources()
	src.Controller.(*fakeController).policy = nil // no EXIT classification
	ctx := &Context{}

	// A: inbound from an unknown peer, so private; its address key sorts last
	// within the category. B: inbound from a known relay, so a real address
	// key. C: plain outbound, later category ordinal.
	a := conn(9001, "203.0.113.9", 55000)
	b := conn(9001, "10.0.0.1", 55001)
	c := conn(34567, "5.6.7.8", 80)

	src.Directory = &fakeDirectory{
		relays: map[string]map[uint16]string{"10.0.0.1": {55001: "FPB"}},
	}

	entries := entriesOf(t, src, ctx, a, b, c)
	SortEntries(entries, []model.SortAttr{model.SortByCategory, model.SortByIPAddress, model.SortByUptime})

	got := []string{
		entries[0].Lines()[0].Connection.RemoteAddress,
		entries[1].Lines()[0].Connection.RemoteAddress,
		entries[2].Lines()[0].Connection.RemoteAddress,
	}
	want := []string{"10.0.0.1", "203.0.113.9", "5.6.7.8"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sorted order %v, want %v", got, want)
		}
	}
}

func TestSortByPort(t *testing.T) {
	src := testSources()
	src.Controller.(*fakeController).policy = nil
	ctx := &Context{}

	entries := entriesOf(t, src, ctx,
		conn(34567, "5.6.7.8", 443),
		conn(34567, "5.6.7.8", 22),
		conn(34567, "5.6.7.8", 80),
	)
	SortEntries(entries, []model.SortAttr{model.SortByPort})

	want := []uint16{22, 80, 443}
	for i, e := range entries {
		if got := e.Lines()[0].Connection.RemotePort; got != want[i] {
			t.Errorf("position %d has port %d, want %d", i, got, want[i])
		}
	}
}

func TestSortMissingFingerprintRanksLast(t *testing.T) {
	src := testSources()
	src.Controller.(*fakeController).policy = nil
	src.Directory = &fakeDirectory{
		relays:    map[string]map[uint16]string{"10.0.0.1": {9001: "AARelay"}},
		nicknames: map[string]string{"AARelay": "aardvark"},
	}
	ctx := &Context{}

	known := conn(34567, "10.0.0.1", 9001)
	unknown := conn(34567, "5.6.7.8", 80)

	entries := entriesOf(t, src, ctx, unknown, known)
	SortEntries(entries, []model.SortAttr{model.SortByFingerprint})

	if entries[0].Lines()[0].Fingerprint != "AARelay" {
		t.Error("resolved fingerprint should sort before the missing-value sentinel")
	}
}

func TestSortByUptime(t *testing.T) {
	src := testSources()
	src.Controller.(*fakeController).policy = nil
	ctx := &Context{}

	older := conn(34567, "5.6.7.8", 80)
	older.StartedAt = 100
	newer := conn(34567, "9.9.9.9", 80)
	newer.StartedAt = 900

	entries := entriesOf(t, src, ctx, newer, older)
	SortEntries(entries, []model.SortAttr{model.SortByUptime})

	if entries[0].Lines()[0].Connection.StartedAt != 100 {
		t.Error("earlier start time (longer uptime) should sort first")
	}
}

func TestSortIsStable(t *testing.T) {
	src := testSources()
	src.Controller.(*fakeController).policy = nil
	ctx := &Context{}

	// Same category and remote endpoint: every key ties, so the pre-sort
	// relative order must be retained.
	var conns []model.Connection
	for i := 0; i < 5; i++ {
		c := conn(34567, "5.6.7.8", 80)
		c.LocalPort = uint16(40000 + i)
		conns = append(conns, c)
	}

	entries := entriesOf(t, src, ctx, conns...)
	SortEntries(entries, []model.SortAttr{model.SortByCategory, model.SortByIPAddress})

	for i := 0; i < 5; i++ {
		if got := entries[i].Lines()[0].Connection.LocalPort; got != uint16(40000+i) {
			t.Fatalf("equal-keyed entries were reordered: position %d has local port %d", i, got)
		}
	}
}

func TestSortCountryPrivateRanksLast(t *testing.T) {
	src := testSources()
	src.GeoIP = fakeGeoIP{"5.6.7.8": "de"}
	src.Directory = &fakeDirectory{
		relays: map[string]map[uint16]string{"5.6.7.8": {9001: "FP1"}},
	}
	ctx := &Context{}

	outbound := conn(34567, "5.6.7.8", 9001) // known relay, resolves locale
	private := conn(34567, "203.0.113.9", 443) // EXIT, private

	entries := entriesOf(t, src, ctx, private, outbound)
	SortEntries(entries, []model.SortAttr{model.SortByCountry})

	if entries[0].Lines()[0].Locale != "de" {
		t.Error("entry with a resolved locale should sort before a private entry")
	}
}

func TestPackAddressOrdersNumerically(t *testing.T) {
	if packAddress("10.0.0.2") >= packAddress("10.0.1.1") {
		t.Error("10.0.0.2 should pack below 10.0.1.1")
	}
	if packAddress("9.255.255.255") >= packAddress("10.0.0.0") {
		t.Error("9.255.255.255 should pack below 10.0.0.0")
	}
}

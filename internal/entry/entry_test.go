package entry

import (
	"testing"

	"RelayScope/internal/model"
)

func TestConnectionEntryYieldsOneLine(t *testing.T) {
	src := testSources()
	e := NewConnectionEntry(conn(34567, "5.6.7.8", 80), &Context{}, src)

	lines := e.Lines()
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0].Kind != model.LineConnection {
		t.Errorf("expected CONNECTION line, got %s", lines[0].Kind)
	}
	if lines[0].Entry != e {
		t.Error("line does not reference its owning entry")
	}
}

func TestConnectionEntryResolvesRelayMetadata(t *testing.T) {
	src := testSources()
	src.Directory = &fakeDirectory{
		relays:    map[string]map[uint16]string{"5.6.7.8": {9001: "FP1"}},
		nicknames: map[string]string{"FP1": "relay1"},
	}
	src.GeoIP = fakeGeoIP{"5.6.7.8": "de"}
	src.Controller.(*fakeController).policy = nil

	// Outbound connection to a known relay's OR port.
	e := NewConnectionEntry(conn(34567, "5.6.7.8", 9001), &Context{}, src)
	if e.Category() != model.CategoryOutbound {
		t.Fatalf("got %s, want OUTBOUND", e.Category())
	}

	line := e.Lines()[0]
	if line.Fingerprint != "FP1" || line.Nickname != "relay1" || line.Locale != "de" {
		t.Errorf("got fingerprint=%q nickname=%q locale=%q", line.Fingerprint, line.Nickname, line.Locale)
	}
}

func circuitFixture(status model.CircuitStatus, hops ...string) model.Circuit {
	path := make([]model.Hop, len(hops))
	for i, fp := range hops {
		path[i] = model.Hop{Fingerprint: fp}
	}
	return model.Circuit{ID: "7", Purpose: "general", Status: status, Path: path, CreatedAt: 2000}
}

func TestCircuitEntryLines(t *testing.T) {
	src := testSources()
	src.Directory = &fakeDirectory{
		addresses: map[string]string{"FP1": "1.1.1.1", "FP2": "2.2.2.2", "FP3": "3.3.3.3"},
		orPorts:   map[string]uint16{"FP1": 9001, "FP2": 9002, "FP3": 9003},
		nicknames: map[string]string{"FP3": "endpoint"},
	}

	e := NewCircuitEntry(circuitFixture(model.CircuitBuilt, "FP1", "FP2", "FP3"), src)

	lines := e.Lines()
	if len(lines) != 4 {
		t.Fatalf("expected header + 3 hops, got %d lines", len(lines))
	}
	if lines[0].Kind != model.LineCircuitHeader {
		t.Errorf("first line is %s, want CIRCUIT_HEADER", lines[0].Kind)
	}

	// The header represents the circuit's endpoint once built.
	if lines[0].Fingerprint != "FP3" || lines[0].Nickname != "endpoint" {
		t.Errorf("header resolved to %q/%q, want FP3/endpoint", lines[0].Fingerprint, lines[0].Nickname)
	}

	for i, fp := range []string{"FP1", "FP2", "FP3"} {
		if lines[i+1].Kind != model.LineCircuitHop {
			t.Errorf("line %d is %s, want CIRCUIT_HOP", i+1, lines[i+1].Kind)
		}
		if lines[i+1].Fingerprint != fp {
			t.Errorf("hop %d resolved to %q, want %q", i, lines[i+1].Fingerprint, fp)
		}
	}

	if lines[1].Connection.RemoteAddress != "1.1.1.1" || lines[1].Connection.RemotePort != 9001 {
		t.Errorf("hop connection synthesized as %s:%d, want 1.1.1.1:9001",
			lines[1].Connection.RemoteAddress, lines[1].Connection.RemotePort)
	}
}

func TestCircuitEntryUnbuiltHeaderHasNoEndpoint(t *testing.T) {
	src := testSources()
	e := NewCircuitEntry(circuitFixture(model.CircuitExtending, "FP1"), src)

	if fp := e.Lines()[0].Fingerprint; fp != "" {
		t.Errorf("extending circuit header resolved fingerprint %q, want none", fp)
	}
	if addr := e.Lines()[0].Connection.RemoteAddress; addr != "0.0.0.0" {
		t.Errorf("extending circuit header address %q, want placeholder 0.0.0.0", addr)
	}
}

func TestCircuitEntryCategoryAndPrivacy(t *testing.T) {
	src := testSources()
	e := NewCircuitEntry(circuitFixture(model.CircuitBuilt, "FP1", "FP2"), src)

	if e.Category() != model.CategoryCircuit {
		t.Errorf("got %s, want CIRCUIT", e.Category())
	}
	if e.IsPrivate() {
		t.Error("circuit entries are never private")
	}
	if len(e.Lines()) == 0 {
		t.Error("entry lines must never be empty")
	}
}

func TestHopPlacement(t *testing.T) {
	src := testSources()
	e := NewCircuitEntry(circuitFixture(model.CircuitBuilt, "FP1", "FP2", "FP3"), src)
	lines := e.Lines()

	for i, want := range []string{"Guard", "Middle", "Exit"} {
		if got := HopPlacement(lines[i+1]); got != want {
			t.Errorf("hop %d placement %q, want %q", i, got, want)
		}
	}

	extending := NewCircuitEntry(circuitFixture(model.CircuitExtending, "FP1", "FP2"), src)
	if got := HopPlacement(extending.Lines()[2]); got != "Extending" {
		t.Errorf("last hop of unbuilt circuit placement %q, want Extending", got)
	}
}

func TestDisplayAddressScrubsPrivateEntries(t *testing.T) {
	src := testSources()
	e := NewConnectionEntry(conn(34567, "5.6.7.8", 443), &Context{}, src) // private EXIT

	if !e.IsPrivate() {
		t.Fatal("fixture should be private")
	}
	if got := e.Lines()[0].DisplayAddress(); got != ScrubbedAddress {
		t.Errorf("private line displays %q, want %q", got, ScrubbedAddress)
	}
	if got := e.Lines()[0].DisplayLocale(); got != "??" {
		t.Errorf("private line locale displays %q, want ??", got)
	}
}

func TestUptimeLabel(t *testing.T) {
	c := model.Connection{StartedAt: 0}

	tests := []struct {
		now  int64
		want string
	}{
		{45, "45s"},
		{720, "12m"},
		{7200, "2h"},
		{200000, "2d"},
	}
	for _, tt := range tests {
		if got := UptimeLabel(c, tt.now); got != tt.want {
			t.Errorf("UptimeLabel at %d = %q, want %q", tt.now, got, tt.want)
		}
	}
}

package entry

import (
	"fmt"

	"RelayScope/internal/model"
)

// ScrubbedAddress replaces the remote address of private entries in any
// produced output.
const ScrubbedAddress = "<scrubbed>"

// DisplayAddress returns the line's remote address, scrubbed when the owning
// entry is private. Output surfaces must use this instead of reading the
// connection directly.
func (l Line) DisplayAddress() string {
	if l.Entry.IsPrivate() {
		return ScrubbedAddress
	}
	return l.Connection.RemoteAddress
}

// DisplayLocale returns the line's locale, or "??" when it is unknown or the
// entry is private.
func (l Line) DisplayLocale() string {
	if l.Entry.IsPrivate() || l.Locale == "" {
		return "??"
	}
	return l.Locale
}

// HopPlacement names a circuit-hop line's position in its path: Guard,
// Middle, or Exit (Extending while the circuit is still being built).
func HopPlacement(l Line) string {
	if l.Kind != model.LineCircuitHop || l.Circuit == nil {
		return ""
	}

	index := 0
	for i, hop := range l.Circuit.Path {
		if hop.Fingerprint == l.Fingerprint {
			index = i
			break
		}
	}

	switch {
	case index == len(l.Circuit.Path)-1:
		if l.Circuit.Status == model.CircuitBuilt {
			return "Exit"
		}
		return "Extending"
	case index == 0:
		return "Guard"
	}
	return "Middle"
}

// UptimeLabel renders the connection's age at the given time as a compact
// single-unit duration, e.g. "45s", "12m", "3h", "2d".
func UptimeLabel(conn model.Connection, now int64) string {
	age := now - conn.StartedAt
	if age < 0 {
		age = 0
	}
	switch {
	case age < 60:
		return fmt.Sprintf("%ds", age)
	case age < 3600:
		return fmt.Sprintf("%dm", age/60)
	case age < 86400:
		return fmt.Sprintf("%dh", age/3600)
	}
	return fmt.Sprintf("%dd", age/86400)
}

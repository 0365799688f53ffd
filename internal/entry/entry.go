package entry

import "RelayScope/internal/model"

// Line is one renderable row produced by an entry. A connection entry yields
// exactly one line; a circuit entry yields a header line plus one line per
// hop, in path order.
type Line struct {
	Entry       Entry
	Kind        model.LineKind
	Connection  model.Connection // real, or synthesized for circuit rows
	Circuit     *model.Circuit   // set for circuit rows
	Fingerprint string           // "" when unresolved
	Nickname    string           // "" when unresolved
	Locale      string           // "" when unresolved
}

// Entry is a classified row group: either a connection or a circuit. Entries
// are rebuilt from scratch every poll cycle; category, privacy, and lines are
// computed once at construction and never change afterwards.
type Entry interface {
	// Lines returns the entry's rows. Never empty.
	Lines() []Line

	// Category returns the entry's semantic category.
	Category() model.Category

	// IsPrivate reports whether the entry's endpoint must be scrubbed from
	// any produced output.
	IsPrivate() bool

	sortKey(attr model.SortAttr) sortKey
}

// ConnectionEntry wraps a single resolved connection.
type ConnectionEntry struct {
	conn     model.Connection
	category model.Category
	private  bool
	lines    []Line
}

// NewConnectionEntry classifies conn against the given context and builds its
// line. All derived state is memoized here; the entry is immutable afterwards.
func NewConnectionEntry(conn model.Connection, ctx *Context, src Sources) *ConnectionEntry {
	e := &ConnectionEntry{conn: conn}
	e.category = classify(conn, ctx, src)
	e.private = isPrivate(conn, e.category, src)

	// Relay metadata only makes sense for relay-bound traffic, but the locale
	// is resolved for every connection: the usage tracker buckets private
	// inbound clients by country.
	locale := src.localeFor(conn.RemoteAddress)

	var fingerprint, nickname string
	switch e.category {
	case model.CategoryOutbound, model.CategoryDirectory, model.CategoryExit:
		fingerprint = src.Directory.FingerprintsFor(conn.RemoteAddress)[conn.RemotePort]
		if fingerprint != "" {
			nickname = src.Directory.NicknameFor(fingerprint)
		}
	}

	e.lines = []Line{{
		Entry:       e,
		Kind:        model.LineConnection,
		Connection:  conn,
		Fingerprint: fingerprint,
		Nickname:    nickname,
		Locale:      locale,
	}}
	return e
}

func (e *ConnectionEntry) Lines() []Line            { return e.lines }
func (e *ConnectionEntry) Category() model.Category { return e.category }
func (e *ConnectionEntry) IsPrivate() bool          { return e.private }

// CircuitEntry wraps a single circuit. It is always CIRCUIT category and
// never private.
type CircuitEntry struct {
	circuit model.Circuit
	lines   []Line
}

// NewCircuitEntry builds the header line plus one line per hop. Hop addresses
// come from the directory; a hop whose fingerprint is unknown degrades to a
// placeholder address rather than failing.
func NewCircuitEntry(circuit model.Circuit, src Sources) *CircuitEntry {
	e := &CircuitEntry{circuit: circuit}

	headerFingerprint := ""
	if circuit.Status == model.CircuitBuilt && len(circuit.Path) > 0 {
		headerFingerprint = circuit.Path[len(circuit.Path)-1].Fingerprint
	}

	e.lines = make([]Line, 0, len(circuit.Path)+1)
	e.lines = append(e.lines, e.buildLine(headerFingerprint, model.LineCircuitHeader, src))
	for _, hop := range circuit.Path {
		e.lines = append(e.lines, e.buildLine(hop.Fingerprint, model.LineCircuitHop, src))
	}
	return e
}

func (e *CircuitEntry) buildLine(fingerprint string, kind model.LineKind, src Sources) Line {
	address, port := "0.0.0.0", uint16(0)
	var nickname, locale string

	if fingerprint != "" {
		if a, p, ok := src.Directory.AddressFor(fingerprint); ok {
			address, port = a, p
		} else {
			address, port = "192.168.0.1", 0
		}
		nickname = src.Directory.NicknameFor(fingerprint)
		locale = src.localeFor(address)
	}

	conn := model.Connection{
		LocalAddress:  "127.0.0.1",
		LocalPort:     0,
		RemoteAddress: address,
		RemotePort:    port,
		Protocol:      "tcp",
		StartedAt:     e.circuit.CreatedAt,
	}
	return Line{
		Entry:       e,
		Kind:        kind,
		Connection:  conn,
		Circuit:     &e.circuit,
		Fingerprint: fingerprint,
		Nickname:    nickname,
		Locale:      locale,
	}
}

func (e *CircuitEntry) Lines() []Line            { return e.lines }
func (e *CircuitEntry) Category() model.Category { return model.CategoryCircuit }
func (e *CircuitEntry) IsPrivate() bool          { return false }

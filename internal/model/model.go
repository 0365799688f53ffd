package model

// Connection is a single resolved network connection of the relay process.
// It is a plain comparable value: two Connections with equal fields are the
// same connection, which is what the usage tracker's de-duplication set
// relies on.
type Connection struct {
	LocalAddress  string
	LocalPort     uint16
	RemoteAddress string
	RemotePort    uint16
	Protocol      string // "tcp" or "udp"
	StartedAt     int64  // unix seconds, first time the connection was observed
	IsLegacy      bool   // resolved by a legacy fallback resolver
}

// CircuitStatus is the lifecycle state of a circuit as reported by the relay.
type CircuitStatus string

const (
	CircuitLaunched  CircuitStatus = "LAUNCHED"
	CircuitExtending CircuitStatus = "EXTENDING"
	CircuitBuilt     CircuitStatus = "BUILT"
	CircuitFailed    CircuitStatus = "FAILED"
	CircuitClosed    CircuitStatus = "CLOSED"
)

// Hop is one relay in a circuit's path.
type Hop struct {
	Fingerprint string
	Nickname    string
}

// Circuit is an established or in-progress path through the network.
type Circuit struct {
	ID        string
	Purpose   string
	Status    CircuitStatus
	Path      []Hop
	CreatedAt int64 // unix seconds
}

// LineKind distinguishes the row types an entry renders to.
type LineKind string

const (
	LineConnection    LineKind = "CONNECTION"
	LineCircuitHeader LineKind = "CIRCUIT_HEADER"
	LineCircuitHop    LineKind = "CIRCUIT_HOP"
)

// UserTrafficPolicy reports whether the relay is configured to carry user
// traffic in each direction.
type UserTrafficPolicy struct {
	Inbound  bool
	Outbound bool
}

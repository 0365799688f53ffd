package model

// ConnResolver provides the relay process's current connections. This is the
// interface for the "data acquisition layer": implementations poll the
// platform on their own schedule and advance Generation when results change.
type ConnResolver interface {
	// Values returns the most recently resolved connections, in resolution order.
	Values() []Connection

	// Generation returns a monotonically increasing counter that advances
	// whenever a resolution produced new results.
	Generation() uint64

	// IsAlive reports whether the resolver is still producing results.
	IsAlive() bool
}

// ExitPolicy answers whether the relay permits exiting to a destination.
type ExitPolicy interface {
	CanExitTo(address string, port uint16) bool
}

// Controller exposes the relay's live state and configuration.
type Controller interface {
	// Circuits returns the relay's current circuits.
	Circuits() []Circuit

	// HiddenServicePorts maps each configured hidden service to its ports.
	HiddenServicePorts() map[string][]uint16

	// ListenerPorts returns the ports bound for the given role.
	ListenerPorts(role ListenerRole) []uint16

	// ExitPolicy returns the relay's exit policy, or nil if it has none.
	ExitPolicy() ExitPolicy

	// UserTrafficPolicy reports whether user traffic is permitted.
	UserTrafficPolicy() UserTrafficPolicy

	// IsAlive reports whether the relay process is still reachable.
	IsAlive() bool
}

// Directory is the consensus-backed lookup from addresses and fingerprints
// to relay identity.
type Directory interface {
	// FingerprintsFor returns every known relay at the address, keyed by OR
	// port. More than one entry means the address is ambiguous; callers must
	// not pick one arbitrarily.
	FingerprintsFor(address string) map[uint16]string

	// NicknameFor returns the relay's nickname, or "" if unknown.
	NicknameFor(fingerprint string) string

	// AddressFor returns the relay's OR address and port. ok is false when
	// the fingerprint is not in the consensus.
	AddressFor(fingerprint string) (address string, port uint16, ok bool)
}

// Process identifies a local process using a port.
type Process struct {
	Name string
	PID  int
}

// FetchState qualifies a port-usage lookup result.
type FetchState int

const (
	FetchResolved FetchState = iota
	FetchResolving
	FetchUnknown
)

// PortUsage resolves local ports to the applications using them.
type PortUsage interface {
	// Query schedules asynchronous resolution of the given ports. It returns
	// immediately; results become available through Fetch.
	Query(localPorts, remotePorts []uint16)

	// Fetch returns the resolved process for a previously queried port.
	Fetch(port uint16) (Process, FetchState)
}

// GeoIP maps addresses to country codes.
type GeoIP interface {
	// LocaleFor returns a lowercase two-letter country code, or "" if the
	// address cannot be located.
	LocaleFor(address string) string
}

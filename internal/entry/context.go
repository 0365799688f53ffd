package entry

import "RelayScope/internal/model"

// Context is the classification context: the circuit list and hidden-service
// port map most recently fetched from the controller. The poller builds a
// fresh Context at the start of every cycle and classification reads it
// without mutation, so no locking is needed within a cycle.
type Context struct {
	Circuits           []model.Circuit
	HiddenServicePorts map[string][]uint16
}

// Sources bundles the external collaborators classification draws on, plus
// the privacy configuration. GeoIP may be nil when no database is available.
type Sources struct {
	Controller       model.Controller
	Directory        model.Directory
	GeoIP            model.GeoIP
	ShowRawAddresses bool
}

func (s Sources) localeFor(address string) string {
	if s.GeoIP == nil {
		return ""
	}
	return s.GeoIP.LocaleFor(address)
}

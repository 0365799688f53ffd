package entry

import "RelayScope/internal/model"

// classify assigns a category to a connection by trying rules in strict
// priority order, first match wins:
//
//  1. local port bound as an OR or directory listener   -> INBOUND
//  2. local port bound as a socks listener              -> SOCKS
//  3. local port bound as a control listener            -> CONTROL
//  4. remote port matches a configured hidden service   -> HIDDEN
//  5. remote endpoint is a relay with an established
//     single-hop circuit to it                          -> DIRECTORY
//  6. remote endpoint is not a known relay and the exit
//     policy permits exiting to it                      -> EXIT
//  7. everything else                                   -> OUTBOUND
//
// This is a pure read over the connection, the context, and the
// collaborators: identical inputs always yield the identical category.
func classify(conn model.Connection, ctx *Context, src Sources) model.Category {
	ctl := src.Controller

	switch {
	case hasPort(ctl.ListenerPorts(model.ListenerOR), conn.LocalPort):
		return model.CategoryInbound
	case hasPort(ctl.ListenerPorts(model.ListenerDir), conn.LocalPort):
		return model.CategoryInbound
	case hasPort(ctl.ListenerPorts(model.ListenerSocks), conn.LocalPort):
		return model.CategorySocks
	case hasPort(ctl.ListenerPorts(model.ListenerControl), conn.LocalPort):
		return model.CategoryControl
	}

	for _, ports := range ctx.HiddenServicePorts {
		if hasPort(ports, conn.RemotePort) {
			return model.CategoryHidden
		}
	}

	fingerprint := src.Directory.FingerprintsFor(conn.RemoteAddress)[conn.RemotePort]

	if fingerprint != "" {
		// One-hop established circuit to this relay means we're fetching
		// directory information from it.
		for _, circ := range ctx.Circuits {
			if circ.Status == model.CircuitBuilt && len(circ.Path) == 1 && circ.Path[0].Fingerprint == fingerprint {
				return model.CategoryDirectory
			}
		}
	} else {
		// Not a known relay, might be an exit connection.
		if policy := ctl.ExitPolicy(); policy != nil && policy.CanExitTo(conn.RemoteAddress, conn.RemotePort) {
			return model.CategoryExit
		}
	}

	return model.CategoryOutbound
}

// isPrivate decides whether the connection's endpoint is sensitive. Relaying
// etiquette says inbound client addresses and exit destinations are not ours
// to look at.
func isPrivate(conn model.Connection, category model.Category, src Sources) bool {
	if !src.ShowRawAddresses {
		return true
	}

	switch category {
	case model.CategoryInbound:
		// Unknown inbound peers are assumed to be clients, which are
		// sensitive. Known relay peers are not.
		if src.Controller.UserTrafficPolicy().Inbound {
			return len(src.Directory.FingerprintsFor(conn.RemoteAddress)) == 0
		}
	case model.CategoryExit:
		// DNS through the exit hits our own resolvers, so it isn't
		// sensitive. Everything else is.
		return !(conn.RemotePort == 53 && conn.Protocol == "udp")
	}

	return false
}

func hasPort(ports []uint16, port uint16) bool {
	for _, p := range ports {
		if p == port {
			return true
		}
	}
	return false
}

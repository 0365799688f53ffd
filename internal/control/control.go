package control

import (
	"fmt"
	"sync"

	"RelayScope/internal/config"
	"RelayScope/internal/model"
)

// StaticController implements the controller contract from the relay section
// of the config file: listener roles, hidden-service ports, exit policy, and
// traffic policy are all declared there rather than fetched over a control
// connection.
//
// Circuits come from an optional injected source, since circuit state has no
// static representation. Without one the controller reports no circuits.
type StaticController struct {
	listeners map[model.ListenerRole][]uint16
	hidden    map[string][]uint16
	policy    *Policy
	traffic   model.UserTrafficPolicy
	alive     func() bool

	mu       sync.Mutex
	circuits []model.Circuit
}

// NewStaticController builds a controller from the relay config. alive
// reports relay-process liveness; nil means always alive.
func NewStaticController(cfg config.RelayConfig, alive func() bool) (*StaticController, error) {
	policy, err := ParsePolicy(cfg.ExitPolicy)
	if err != nil {
		return nil, fmt.Errorf("failed to parse exit policy: %w", err)
	}

	hidden := make(map[string][]uint16, len(cfg.HiddenServices))
	for name, ports := range cfg.HiddenServices {
		hidden[name] = append([]uint16(nil), ports...)
	}

	return &StaticController{
		listeners: map[model.ListenerRole][]uint16{
			model.ListenerOR:      append([]uint16(nil), cfg.ORPorts...),
			model.ListenerDir:     append([]uint16(nil), cfg.DirPorts...),
			model.ListenerSocks:   append([]uint16(nil), cfg.SocksPorts...),
			model.ListenerControl: append([]uint16(nil), cfg.ControlPorts...),
		},
		hidden: hidden,
		policy: policy,
		traffic: model.UserTrafficPolicy{
			Inbound:  cfg.AllowInbound,
			Outbound: cfg.AllowOutbound,
		},
		alive: alive,
	}, nil
}

// SetCircuits replaces the circuit list reported by Circuits. Embedders with
// a live circuit feed push updates through here.
func (c *StaticController) SetCircuits(circuits []model.Circuit) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.circuits = append([]model.Circuit(nil), circuits...)
}

func (c *StaticController) Circuits() []model.Circuit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Circuit(nil), c.circuits...)
}

func (c *StaticController) HiddenServicePorts() map[string][]uint16 {
	out := make(map[string][]uint16, len(c.hidden))
	for name, ports := range c.hidden {
		out[name] = ports
	}
	return out
}

func (c *StaticController) ListenerPorts(role model.ListenerRole) []uint16 {
	return c.listeners[role]
}

func (c *StaticController) ExitPolicy() model.ExitPolicy {
	if len(c.policy.rules) == 0 {
		return nil
	}
	return c.policy
}

func (c *StaticController) UserTrafficPolicy() model.UserTrafficPolicy {
	return c.traffic
}

func (c *StaticController) IsAlive() bool {
	if c.alive == nil {
		return true
	}
	return c.alive()
}

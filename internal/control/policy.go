package control

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// policyRule is one parsed exit-policy rule. Address and port are matched
// independently; a nil prefix matches every address, minPort 0 with maxPort
// 65535 matches every port.
type policyRule struct {
	accept  bool
	prefix  *netip.Prefix
	minPort uint16
	maxPort uint16
}

// Policy is an ordered accept/reject rule list. The first rule matching a
// destination decides; destinations matching no rule are rejected.
type Policy struct {
	rules []policyRule
}

// ParsePolicy parses rules of the form "accept 1.2.3.0/24:80-443",
// "reject *:25", "accept 8.8.8.8:53". Wildcards are permitted for both the
// address and the port.
func ParsePolicy(rules []string) (*Policy, error) {
	p := &Policy{}

	for _, raw := range rules {
		fields := strings.Fields(strings.TrimSpace(raw))
		if len(fields) != 2 {
			return nil, fmt.Errorf("malformed exit policy rule %q", raw)
		}

		var rule policyRule
		switch fields[0] {
		case "accept":
			rule.accept = true
		case "reject":
			rule.accept = false
		default:
			return nil, fmt.Errorf("exit policy rule %q must start with accept or reject", raw)
		}

		addrPart, portPart, ok := splitDestination(fields[1])
		if !ok {
			return nil, fmt.Errorf("exit policy rule %q has no port component", raw)
		}

		if addrPart != "*" {
			prefix, err := parsePrefix(addrPart)
			if err != nil {
				return nil, fmt.Errorf("exit policy rule %q: %w", raw, err)
			}
			rule.prefix = &prefix
		}

		minPort, maxPort, err := parsePortRange(portPart)
		if err != nil {
			return nil, fmt.Errorf("exit policy rule %q: %w", raw, err)
		}
		rule.minPort, rule.maxPort = minPort, maxPort

		p.rules = append(p.rules, rule)
	}
	return p, nil
}

// CanExitTo reports whether the policy permits exiting to the destination.
// Unparsable addresses are rejected.
func (p *Policy) CanExitTo(address string, port uint16) bool {
	addr, err := netip.ParseAddr(address)
	if err != nil {
		return false
	}

	for _, rule := range p.rules {
		if rule.prefix != nil && !rule.prefix.Contains(addr) {
			continue
		}
		if port < rule.minPort || port > rule.maxPort {
			continue
		}
		return rule.accept
	}
	return false
}

// splitDestination splits "addr:port" on the last colon, so bracketless
// IPv6 prefixes still parse.
func splitDestination(s string) (addr, port string, ok bool) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}

func parsePrefix(s string) (netip.Prefix, error) {
	if strings.Contains(s, "/") {
		return netip.ParsePrefix(s)
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, err
	}
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

func parsePortRange(s string) (uint16, uint16, error) {
	if s == "*" {
		return 0, 65535, nil
	}

	if lo, hi, ok := strings.Cut(s, "-"); ok {
		min, err := strconv.ParseUint(lo, 10, 16)
		if err != nil {
			return 0, 0, fmt.Errorf("bad port %q", lo)
		}
		max, err := strconv.ParseUint(hi, 10, 16)
		if err != nil {
			return 0, 0, fmt.Errorf("bad port %q", hi)
		}
		if min > max {
			return 0, 0, fmt.Errorf("inverted port range %q", s)
		}
		return uint16(min), uint16(max), nil
	}

	port, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, 0, fmt.Errorf("bad port %q", s)
	}
	return uint16(port), uint16(port), nil
}

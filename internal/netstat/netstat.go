package netstat

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"RelayScope/internal/model"
)

// Resolver produces the relay process's connections from the proc
// filesystem. It polls on its own cadence and advances its generation
// counter only when a resolution changed the result set, so consumers can
// cheaply skip redundant work.
type Resolver struct {
	procRoot string
	pid      int // 0 resolves every process
	interval time.Duration

	mu        sync.Mutex
	conns     []model.Connection
	gen       uint64
	running   bool
	firstSeen map[connKey]int64

	done chan struct{}
	wg   sync.WaitGroup
}

// connKey identifies a connection without its start time, so a connection
// keeps its first-seen timestamp across polls.
type connKey struct {
	protocol      string
	localAddress  string
	localPort     uint16
	remoteAddress string
	remotePort    uint16
}

// NewResolver creates a resolver for the given process. procRoot defaults
// to /proc.
func NewResolver(pid int, procRoot string, interval time.Duration) *Resolver {
	if procRoot == "" {
		procRoot = "/proc"
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Resolver{
		procRoot:  procRoot,
		pid:       pid,
		interval:  interval,
		firstSeen: make(map[connKey]int64),
		done:      make(chan struct{}),
	}
}

// Start launches the resolution loop.
func (r *Resolver) Start() {
	r.mu.Lock()
	r.running = true
	r.mu.Unlock()

	r.resolveOnce()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.resolveOnce()
			case <-r.done:
				return
			}
		}
	}()
	log.Printf("Connection resolver started for pid %d with interval %s.", r.pid, r.interval)
}

// Stop halts the resolution loop.
func (r *Resolver) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	close(r.done)
	r.wg.Wait()
}

// Values returns the most recently resolved connections.
func (r *Resolver) Values() []model.Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Connection(nil), r.conns...)
}

// Generation returns the counter advanced on each changed resolution.
func (r *Resolver) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen
}

// IsAlive reports whether the loop is running and the target process exists.
func (r *Resolver) IsAlive() bool {
	r.mu.Lock()
	running := r.running
	r.mu.Unlock()

	if !running {
		return false
	}
	if r.pid == 0 {
		return true
	}
	_, err := os.Stat(filepath.Join(r.procRoot, strconv.Itoa(r.pid)))
	return err == nil
}

func (r *Resolver) resolveOnce() {
	var inodes map[uint64]bool
	if r.pid != 0 {
		var err error
		inodes, err = socketInodes(r.procRoot, r.pid)
		if err != nil {
			log.Printf("Failed to read socket inodes for pid %d: %v", r.pid, err)
			return
		}
	}

	var raw []rawConn
	for _, table := range []struct{ file, protocol string }{
		{"net/tcp", "tcp"},
		{"net/tcp6", "tcp"},
		{"net/udp", "udp"},
		{"net/udp6", "udp"},
	} {
		data, err := os.ReadFile(filepath.Join(r.procRoot, table.file))
		if err != nil {
			continue // table missing on this platform, not fatal
		}
		raw = append(raw, parseTable(string(data), table.protocol)...)
	}

	now := time.Now().Unix()
	seen := make(map[connKey]bool, len(raw))
	conns := make([]model.Connection, 0, len(raw))

	for _, rc := range raw {
		if inodes != nil && !inodes[rc.inode] {
			continue
		}

		key := connKey{rc.protocol, rc.localAddress, rc.localPort, rc.remoteAddress, rc.remotePort}
		if seen[key] {
			continue
		}
		seen[key] = true

		started, ok := r.firstSeen[key]
		if !ok {
			started = now
		}

		conns = append(conns, model.Connection{
			LocalAddress:  rc.localAddress,
			LocalPort:     rc.localPort,
			RemoteAddress: rc.remoteAddress,
			RemotePort:    rc.remotePort,
			Protocol:      rc.protocol,
			StartedAt:     started,
		})
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for key := range r.firstSeen {
		if !seen[key] {
			delete(r.firstSeen, key)
		}
	}
	for key := range seen {
		if _, ok := r.firstSeen[key]; !ok {
			r.firstSeen[key] = now
		}
	}

	if !sameConnections(r.conns, conns) {
		r.conns = conns
		r.gen++
	}
}

func sameConnections(a, b []model.Connection) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// rawConn is one row of a proc net table.
type rawConn struct {
	protocol      string
	localAddress  string
	localPort     uint16
	remoteAddress string
	remotePort    uint16
	inode         uint64
}

const tcpEstablished = "01"

// parseTable extracts the established, remote-connected rows from the text
// of a /proc/net/{tcp,tcp6,udp,udp6} table. Malformed rows are skipped.
func parseTable(data, protocol string) []rawConn {
	var out []rawConn

	lines := strings.Split(data, "\n")
	if len(lines) > 0 {
		lines = lines[1:] // header row
	}

	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) < 10 {
			continue
		}

		if protocol == "tcp" && fields[3] != tcpEstablished {
			continue
		}

		localAddress, localPort, err := parseEndpoint(fields[1])
		if err != nil {
			continue
		}
		remoteAddress, remotePort, err := parseEndpoint(fields[2])
		if err != nil {
			continue
		}
		if remotePort == 0 {
			continue // unconnected socket or listener
		}

		inode, err := strconv.ParseUint(fields[9], 10, 64)
		if err != nil {
			continue
		}

		out = append(out, rawConn{
			protocol:      protocol,
			localAddress:  localAddress,
			localPort:     localPort,
			remoteAddress: remoteAddress,
			remotePort:    remotePort,
			inode:         inode,
		})
	}
	return out
}

// parseEndpoint decodes proc's "hexaddr:hexport" endpoint notation. IPv4
// addresses are one little-endian 32-bit group, IPv6 addresses four.
func parseEndpoint(s string) (string, uint16, error) {
	addrHex, portHex, ok := strings.Cut(s, ":")
	if !ok {
		return "", 0, fmt.Errorf("malformed endpoint %q", s)
	}

	port, err := strconv.ParseUint(portHex, 16, 16)
	if err != nil {
		return "", 0, fmt.Errorf("malformed port in %q: %w", s, err)
	}

	switch len(addrHex) {
	case 8:
		v, err := strconv.ParseUint(addrHex, 16, 32)
		if err != nil {
			return "", 0, fmt.Errorf("malformed address in %q: %w", s, err)
		}
		address := fmt.Sprintf("%d.%d.%d.%d", byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
		return address, uint16(port), nil
	case 32:
		var groups [8]uint16
		for i := 0; i < 4; i++ {
			word, err := strconv.ParseUint(addrHex[i*8:(i+1)*8], 16, 32)
			if err != nil {
				return "", 0, fmt.Errorf("malformed address in %q: %w", s, err)
			}
			groups[i*2] = uint16(word>>8)&0xff | uint16(word&0xff)<<8
			groups[i*2+1] = uint16(word>>24)&0xff | uint16(word>>16&0xff)<<8
		}
		parts := make([]string, 8)
		for i, g := range groups {
			parts[i] = fmt.Sprintf("%x", g)
		}
		return strings.Join(parts, ":"), uint16(port), nil
	}
	return "", 0, fmt.Errorf("unrecognized address length in %q", s)
}

// socketInodes collects the socket inodes held open by a process.
func socketInodes(procRoot string, pid int) (map[uint64]bool, error) {
	fdDir := filepath.Join(procRoot, strconv.Itoa(pid), "fd")
	entries, err := os.ReadDir(fdDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", fdDir, err)
	}

	inodes := make(map[uint64]bool)
	for _, fd := range entries {
		target, err := os.Readlink(filepath.Join(fdDir, fd.Name()))
		if err != nil {
			continue
		}
		if !strings.HasPrefix(target, "socket:[") || !strings.HasSuffix(target, "]") {
			continue
		}
		inode, err := strconv.ParseUint(target[len("socket:["):len(target)-1], 10, 64)
		if err != nil {
			continue
		}
		inodes[inode] = true
	}
	return inodes, nil
}

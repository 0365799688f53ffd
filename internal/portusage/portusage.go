package portusage

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"RelayScope/internal/model"
)

// Resolver maps local ports to the applications holding them, by walking the
// proc filesystem: port -> socket inode via the net tables, inode -> pid via
// each process's fd links, pid -> name via its comm file.
//
// Query is fire-and-forget; results surface later through Fetch. A port with
// a query in flight reports FetchResolving, a finished query with no owner
// reports FetchUnknown.
type Resolver struct {
	procRoot string

	mu      sync.Mutex
	results map[uint16]model.Process
	state   map[uint16]model.FetchState
}

// NewResolver creates a resolver rooted at procRoot (default /proc).
func NewResolver(procRoot string) *Resolver {
	if procRoot == "" {
		procRoot = "/proc"
	}
	return &Resolver{
		procRoot: procRoot,
		results:  make(map[uint16]model.Process),
		state:    make(map[uint16]model.FetchState),
	}
}

// Query schedules resolution of the given ports. Both slices name ports
// local to this machine; the split mirrors which side of the monitored
// connection they came from.
func (r *Resolver) Query(localPorts, remotePorts []uint16) {
	ports := make([]uint16, 0, len(localPorts)+len(remotePorts))
	ports = append(ports, localPorts...)
	ports = append(ports, remotePorts...)

	r.mu.Lock()
	pending := ports[:0]
	for _, port := range ports {
		if state, ok := r.state[port]; ok && state != model.FetchUnknown {
			continue // resolved or already in flight
		}
		r.state[port] = model.FetchResolving
		pending = append(pending, port)
	}
	r.mu.Unlock()

	if len(pending) > 0 {
		go r.resolve(append([]uint16(nil), pending...))
	}
}

// Fetch returns the process behind a previously queried port.
func (r *Resolver) Fetch(port uint16) (model.Process, model.FetchState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.state[port]
	if !ok {
		return model.Process{}, model.FetchUnknown
	}
	return r.results[port], state
}

func (r *Resolver) resolve(ports []uint16) {
	inodes := r.portInodes(ports)
	owners := r.inodeOwners(inodes)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, port := range ports {
		if proc, ok := owners[inodes[port]]; ok && inodes[port] != 0 {
			r.results[port] = proc
			r.state[port] = model.FetchResolved
		} else {
			r.state[port] = model.FetchUnknown
		}
	}
}

// portInodes finds the socket inode bound to each port.
func (r *Resolver) portInodes(ports []uint16) map[uint16]uint64 {
	wanted := make(map[uint16]bool, len(ports))
	for _, p := range ports {
		wanted[p] = true
	}

	out := make(map[uint16]uint64)
	for _, table := range []string{"net/tcp", "net/tcp6", "net/udp", "net/udp6"} {
		data, err := os.ReadFile(filepath.Join(r.procRoot, table))
		if err != nil {
			continue
		}

		for _, line := range strings.Split(string(data), "\n")[1:] {
			fields := strings.Fields(line)
			if len(fields) < 10 {
				continue
			}
			_, portHex, ok := strings.Cut(fields[1], ":")
			if !ok {
				continue
			}
			port64, err := strconv.ParseUint(portHex, 16, 16)
			if err != nil || !wanted[uint16(port64)] {
				continue
			}
			inode, err := strconv.ParseUint(fields[9], 10, 64)
			if err != nil {
				continue
			}
			if _, have := out[uint16(port64)]; !have {
				out[uint16(port64)] = inode
			}
		}
	}
	return out
}

// inodeOwners scans every process's fd links for the given socket inodes.
func (r *Resolver) inodeOwners(inodes map[uint16]uint64) map[uint64]model.Process {
	wanted := make(map[uint64]bool, len(inodes))
	for _, inode := range inodes {
		if inode != 0 {
			wanted[inode] = true
		}
	}

	out := make(map[uint64]model.Process)
	if len(wanted) == 0 {
		return out
	}

	procs, err := os.ReadDir(r.procRoot)
	if err != nil {
		log.Printf("Failed to list %s: %v", r.procRoot, err)
		return out
	}

	for _, proc := range procs {
		pid, err := strconv.Atoi(proc.Name())
		if err != nil {
			continue
		}

		fdDir := filepath.Join(r.procRoot, proc.Name(), "fd")
		fds, err := os.ReadDir(fdDir)
		if err != nil {
			continue // no permission or gone, skip
		}

		for _, fd := range fds {
			target, err := os.Readlink(filepath.Join(fdDir, fd.Name()))
			if err != nil || !strings.HasPrefix(target, "socket:[") || !strings.HasSuffix(target, "]") {
				continue
			}
			inode, err := strconv.ParseUint(target[len("socket:["):len(target)-1], 10, 64)
			if err != nil || !wanted[inode] {
				continue
			}

			name := ""
			if comm, err := os.ReadFile(filepath.Join(r.procRoot, proc.Name(), "comm")); err == nil {
				name = strings.TrimSpace(string(comm))
			}
			out[inode] = model.Process{Name: name, PID: pid}
		}
	}
	return out
}

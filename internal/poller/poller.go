package poller

import (
	"log"
	"sync"
	"time"

	"RelayScope/internal/entry"
	"RelayScope/internal/model"
	"RelayScope/internal/usage"
)

// State is the poller's lifecycle state. Halted is terminal.
type State int

const (
	Running State = iota
	Paused
	Halted
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Halted:
		return "halted"
	}
	return "unknown"
}

// idleWait bounds how long the loop sleeps between readiness checks so that
// pause and halt are observed promptly.
const idleWait = 200 * time.Millisecond

// CycleSummary describes one completed fetch+merge+publish cycle. It is
// handed to the publish hook after the new entry list is visible.
type CycleSummary struct {
	Timestamp  time.Time      `json:"timestamp"`
	Generation uint64         `json:"generation"`
	Entries    int            `json:"entries"`
	Lines      int            `json:"lines"`
	Categories map[string]int `json:"categories"`
}

// Poller owns the refresh cadence: it periodically fetches circuits, hidden
// service configuration, and connections, classifies and sorts them, feeds
// the usage tracker, and atomically publishes the resulting entry list.
//
// The poller state, the published list, and the sort order are guarded by a
// single mutex/condition pair. A whole new list is built before publishing,
// so readers never observe a partially built cycle.
type Poller struct {
	resolver  model.ConnResolver
	src       entry.Sources
	tracker   *usage.Tracker
	portUsage model.PortUsage // nil disables application resolution

	interval  time.Duration
	onPublish func(CycleSummary) // optional, called outside the lock

	mu      sync.Mutex
	cond    *sync.Cond
	state   State
	order   []model.SortAttr
	entries []entry.Entry
	lastGen uint64
	hasGen  bool

	done chan struct{}
	wg   sync.WaitGroup
}

// Options carries the optional poller settings.
type Options struct {
	Interval  time.Duration // defaults to 5s
	PortUsage model.PortUsage
	OnPublish func(CycleSummary)
}

// New creates a poller. Start must be called before entries are published.
func New(resolver model.ConnResolver, src entry.Sources, tracker *usage.Tracker, order []model.SortAttr, opts Options) *Poller {
	interval := opts.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	p := &Poller{
		resolver:  resolver,
		src:       src,
		tracker:   tracker,
		portUsage: opts.PortUsage,
		interval:  interval,
		onPublish: opts.OnPublish,
		order:     append([]model.SortAttr(nil), order...),
		done:      make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// Start launches the background refresh loop.
func (p *Poller) Start() {
	p.wg.Add(1)
	go p.run()
	log.Printf("Poller started with %s update interval.", p.interval)
}

func (p *Poller) run() {
	defer p.wg.Done()

	var lastRan time.Time

	for {
		p.mu.Lock()
		for p.state == Paused {
			p.cond.Wait()
		}
		halted := p.state == Halted
		p.mu.Unlock()

		if halted {
			return
		}

		if !p.src.Controller.IsAlive() || time.Since(lastRan) < p.interval {
			select {
			case <-p.done:
				return
			case <-time.After(idleWait):
			}
			continue
		}

		p.update()
		lastRan = time.Now()
	}
}

// update performs one fetch+merge+publish cycle.
func (p *Poller) update() {
	ctl := p.src.Controller
	ctx := &entry.Context{
		Circuits:           ctl.Circuits(),
		HiddenServicePorts: ctl.HiddenServicePorts(),
	}

	if !p.resolver.IsAlive() {
		return // not fetching connections, nothing to merge
	}

	generation := p.resolver.Generation()

	p.mu.Lock()
	unchanged := p.hasGen && generation == p.lastGen
	p.mu.Unlock()

	if unchanged {
		return // no new connections to process
	}

	connections := p.resolver.Values()
	newEntries := make([]entry.Entry, 0, len(connections)+len(ctx.Circuits))

	for _, conn := range connections {
		newEntries = append(newEntries, entry.NewConnectionEntry(conn, ctx, p.src))
	}

	for _, circ := range ctx.Circuits {
		// Established single-hop circuits are directory fetches, already
		// represented by a DIRECTORY connection entry.
		if circ.Status == model.CircuitBuilt && len(circ.Path) == 1 {
			continue
		}
		newEntries = append(newEntries, entry.NewCircuitEntry(circ, p.src))
	}

	p.tracker.Observe(newEntries)

	p.mu.Lock()
	entry.SortEntries(newEntries, p.order)
	p.entries = newEntries
	p.lastGen = generation
	p.hasGen = true
	p.mu.Unlock()

	if p.onPublish != nil {
		p.onPublish(p.summarize(newEntries, generation))
	}

	if p.portUsage != nil {
		p.dispatchAppResolution(newEntries)
	}
}

func (p *Poller) summarize(entries []entry.Entry, generation uint64) CycleSummary {
	summary := CycleSummary{
		Timestamp:  time.Now(),
		Generation: generation,
		Entries:    len(entries),
		Categories: make(map[string]int),
	}
	for _, e := range entries {
		summary.Categories[string(e.Category())]++
		summary.Lines += len(e.Lines())
	}
	return summary
}

// dispatchAppResolution fires an asynchronous port-usage query for the
// machine-local application ports behind socks, control, and hidden-service
// connections. The cycle never blocks on its completion.
func (p *Poller) dispatchAppResolution(entries []entry.Entry) {
	var localPorts, remotePorts []uint16

	for _, e := range entries {
		conn := e.Lines()[0].Connection

		switch e.Category() {
		case model.CategorySocks, model.CategoryControl:
			// The application is the remote end of a connection into our
			// listener, so its port is local to the machine.
			localPorts = append(localPorts, conn.RemotePort)
		case model.CategoryHidden:
			remotePorts = append(remotePorts, conn.LocalPort)
		}
	}

	if len(localPorts) > 0 || len(remotePorts) > 0 {
		p.portUsage.Query(localPorts, remotePorts)
	}
}

// Entries returns the most recently published entry list. The returned slice
// is shared, immutable, and replaced wholesale on the next publish.
func (p *Poller) Entries() []entry.Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.entries
}

// Lines returns the published lines in display order.
func (p *Poller) Lines() []entry.Line {
	entries := p.Entries()

	var lines []entry.Line
	for _, e := range entries {
		lines = append(lines, e.Lines()...)
	}
	return lines
}

// Generation returns the resolver generation of the published list.
func (p *Poller) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastGen
}

// State returns the poller's current lifecycle state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Order returns the active sort order.
func (p *Poller) Order() []model.SortAttr {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.SortAttr(nil), p.order...)
}

// SetOrder changes the sort order and re-sorts the published list in place,
// without waiting for the next cycle.
func (p *Poller) SetOrder(order []model.SortAttr) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.order = append([]model.SortAttr(nil), order...)
	resorted := append([]entry.Entry(nil), p.entries...)
	entry.SortEntries(resorted, p.order)
	p.entries = resorted
}

// Pause suspends refreshing until Resume or Stop. No fetch runs while paused.
func (p *Poller) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == Running {
		p.state = Paused
		p.cond.Broadcast()
		log.Println("Poller paused.")
	}
}

// Resume restarts a paused poller.
func (p *Poller) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == Paused {
		p.state = Running
		p.cond.Broadcast()
		log.Println("Poller resumed.")
	}
}

// Stop halts the poller and waits for the loop to exit. At most one in-flight
// cycle completes first; halting is cooperative, not an abort.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.state == Halted {
		p.mu.Unlock()
		return
	}
	p.state = Halted
	p.cond.Broadcast()
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()
	log.Println("Poller stopped.")
}

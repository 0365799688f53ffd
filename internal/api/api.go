package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"RelayScope/internal/entry"
	"RelayScope/internal/poller"
	"RelayScope/internal/usage"

	"github.com/gorilla/mux"
)

// Handler holds the dependencies for the status API handlers.
type Handler struct {
	Poller  *poller.Poller
	Tracker *usage.Tracker
}

// NewRouter wires the API routes.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/lines", h.linesHandler).Methods("GET")
	r.HandleFunc("/api/v1/usage", h.usageHandler).Methods("GET")
	r.HandleFunc("/api/v1/status", h.statusHandler).Methods("GET")
	return r
}

// LineView is the wire form of one published line. Private entries carry a
// scrubbed remote address and locale, never the real ones.
type LineView struct {
	Kind          string `json:"kind"`
	Category      string `json:"category"`
	Private       bool   `json:"private"`
	LocalAddress  string `json:"local_address"`
	LocalPort     uint16 `json:"local_port"`
	RemoteAddress string `json:"remote_address"`
	RemotePort    uint16 `json:"remote_port"`
	Protocol      string `json:"protocol"`
	Uptime        string `json:"uptime"`
	Fingerprint   string `json:"fingerprint,omitempty"`
	Nickname      string `json:"nickname,omitempty"`
	Locale        string `json:"locale,omitempty"`
	CircuitID     string `json:"circuit_id,omitempty"`
	Purpose       string `json:"purpose,omitempty"`
	Status        string `json:"status,omitempty"`
	Placement     string `json:"placement,omitempty"`
}

func viewOf(line entry.Line, now int64) LineView {
	view := LineView{
		Kind:          string(line.Kind),
		Category:      string(line.Entry.Category()),
		Private:       line.Entry.IsPrivate(),
		LocalAddress:  line.Connection.LocalAddress,
		LocalPort:     line.Connection.LocalPort,
		RemoteAddress: line.DisplayAddress(),
		RemotePort:    line.Connection.RemotePort,
		Protocol:      line.Connection.Protocol,
		Uptime:        entry.UptimeLabel(line.Connection, now),
		Fingerprint:   line.Fingerprint,
		Nickname:      line.Nickname,
	}

	if !line.Entry.IsPrivate() {
		view.Locale = line.Locale
	}

	if line.Circuit != nil {
		view.CircuitID = line.Circuit.ID
		view.Purpose = line.Circuit.Purpose
		view.Status = string(line.Circuit.Status)
		view.Placement = entry.HopPlacement(line)
	}
	return view
}

// linesHandler returns the published lines in display order.
func (h *Handler) linesHandler(w http.ResponseWriter, r *http.Request) {
	now := time.Now().Unix()
	lines := h.Poller.Lines()

	views := make([]LineView, 0, len(lines))
	for _, line := range lines {
		views = append(views, viewOf(line, now))
	}
	writeJSON(w, views)
}

// usageHandler returns the aggregated client locale and exit port counts.
func (h *Handler) usageHandler(w http.ResponseWriter, r *http.Request) {
	exitPorts := make(map[string]int)
	for port, count := range h.Tracker.ExitPortCounts() {
		exitPorts[fmt.Sprintf("%d", port)] = count
	}

	writeJSON(w, map[string]any{
		"client_locales": h.Tracker.LocaleCounts(),
		"exit_ports":     exitPorts,
	})
}

// statusHandler returns the poller state and per-category entry counts.
func (h *Handler) statusHandler(w http.ResponseWriter, r *http.Request) {
	entries := h.Poller.Entries()

	categories := make(map[string]int)
	lineCount := 0
	for _, e := range entries {
		categories[string(e.Category())]++
		lineCount += len(e.Lines())
	}

	order := make([]string, 0, 3)
	for _, attr := range h.Poller.Order() {
		order = append(order, string(attr))
	}

	writeJSON(w, map[string]any{
		"state":      h.Poller.State().String(),
		"generation": h.Poller.Generation(),
		"order":      order,
		"entries":    len(entries),
		"lines":      lineCount,
		"categories": categories,
	})
}

func writeJSON(w http.ResponseWriter, payload any) {
	jsonBytes, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to marshal response: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(jsonBytes); err != nil {
		log.Printf("Error writing API response: %v", err)
	}
}

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"RelayScope/internal/entry"
	"RelayScope/internal/model"
	"RelayScope/internal/poller"
	"RelayScope/internal/usage"
)

type fakeResolver struct {
	conns []model.Connection
}

func (f *fakeResolver) Values() []model.Connection { return append([]model.Connection(nil), f.conns...) }
func (f *fakeResolver) Generation() uint64         { return 1 }
func (f *fakeResolver) IsAlive() bool              { return true }

type fakeController struct {
	traffic model.UserTrafficPolicy
}

func (f *fakeController) Circuits() []model.Circuit               { return nil }
func (f *fakeController) HiddenServicePorts() map[string][]uint16 { return nil }
func (f *fakeController) ListenerPorts(r model.ListenerRole) []uint16 {
	if r == model.ListenerOR {
		return []uint16{9001}
	}
	return nil
}
func (f *fakeController) ExitPolicy() model.ExitPolicy               { return nil }
func (f *fakeController) UserTrafficPolicy() model.UserTrafficPolicy { return f.traffic }
func (f *fakeController) IsAlive() bool                              { return true }

type emptyDirectory struct{}

func (emptyDirectory) FingerprintsFor(string) map[uint16]string { return nil }
func (emptyDirectory) NicknameFor(string) string                { return "" }
func (emptyDirectory) AddressFor(string) (string, uint16, bool) { return "", 0, false }

func startedHandler(t *testing.T, conns []model.Connection) (*Handler, func()) {
	t.Helper()

	src := entry.Sources{
		Controller:       &fakeController{traffic: model.UserTrafficPolicy{Inbound: true}},
		Directory:        emptyDirectory{},
		ShowRawAddresses: true,
	}
	tracker := usage.NewTracker()
	order := []model.SortAttr{model.SortByCategory, model.SortByIPAddress, model.SortByUptime}
	p := poller.New(&fakeResolver{conns: conns}, src, tracker, order, poller.Options{Interval: 10 * time.Millisecond})

	p.Start()
	deadline := time.Now().Add(2 * time.Second)
	for p.Generation() == 0 {
		if time.Now().After(deadline) {
			p.Stop()
			t.Fatal("poller never published a cycle")
		}
		time.Sleep(5 * time.Millisecond)
	}

	return &Handler{Poller: p, Tracker: tracker}, p.Stop
}

func get(t *testing.T, h *Handler, path string, out any) {
	t.Helper()

	req := httptest.NewRequest("GET", path, nil)
	rec := httptest.NewRecorder()
	NewRouter(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("GET %s returned %d", path, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("GET %s content type = %q", path, ct)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("GET %s returned invalid JSON: %v", path, err)
	}
}

func TestLinesScrubPrivateEntries(t *testing.T) {
	inbound := model.Connection{
		LocalAddress:  "192.0.2.1",
		LocalPort:     9001,
		RemoteAddress: "203.0.113.9",
		RemotePort:    55000,
		Protocol:      "tcp",
		StartedAt:     time.Now().Unix(),
	}
	outbound := model.Connection{
		LocalAddress:  "192.0.2.1",
		LocalPort:     34567,
		RemoteAddress: "5.6.7.8",
		RemotePort:    443,
		Protocol:      "tcp",
		StartedAt:     time.Now().Unix(),
	}

	h, stop := startedHandler(t, []model.Connection{inbound, outbound})
	defer stop()

	var views []LineView
	get(t, h, "/api/v1/lines", &views)

	if len(views) != 2 {
		t.Fatalf("got %d lines, want 2", len(views))
	}

	byCategory := make(map[string]LineView)
	for _, v := range views {
		byCategory[v.Category] = v
	}

	private := byCategory["INBOUND"]
	if !private.Private {
		t.Fatal("inbound entry should be private")
	}
	if private.RemoteAddress != entry.ScrubbedAddress {
		t.Errorf("private remote address = %q, want scrubbed", private.RemoteAddress)
	}
	if private.Locale != "" {
		t.Errorf("private line leaked locale %q", private.Locale)
	}

	public := byCategory["OUTBOUND"]
	if public.Private || public.RemoteAddress != "5.6.7.8" {
		t.Errorf("public line = %+v, want raw remote address", public)
	}
}

func TestUsagePayload(t *testing.T) {
	h, stop := startedHandler(t, nil)
	defer stop()

	h.Tracker.Seed("us=16,de=8")

	var payload struct {
		ClientLocales map[string]int `json:"client_locales"`
		ExitPorts     map[string]int `json:"exit_ports"`
	}
	get(t, h, "/api/v1/usage", &payload)

	if payload.ClientLocales["us"] != 16 || payload.ClientLocales["de"] != 8 {
		t.Errorf("client locales = %v", payload.ClientLocales)
	}
	if len(payload.ExitPorts) != 0 {
		t.Errorf("exit ports = %v, want empty", payload.ExitPorts)
	}
}

func TestStatusPayload(t *testing.T) {
	conn := model.Connection{
		LocalAddress:  "192.0.2.1",
		LocalPort:     34567,
		RemoteAddress: "5.6.7.8",
		RemotePort:    443,
		Protocol:      "tcp",
		StartedAt:     time.Now().Unix(),
	}

	h, stop := startedHandler(t, []model.Connection{conn})
	defer stop()

	var payload struct {
		State      string         `json:"state"`
		Generation uint64         `json:"generation"`
		Order      []string       `json:"order"`
		Entries    int            `json:"entries"`
		Lines      int            `json:"lines"`
		Categories map[string]int `json:"categories"`
	}
	get(t, h, "/api/v1/status", &payload)

	if payload.State != "running" || payload.Generation != 1 {
		t.Errorf("state=%s generation=%d, want running/1", payload.State, payload.Generation)
	}
	if len(payload.Order) != 3 || payload.Order[0] != "CATEGORY" {
		t.Errorf("order = %v", payload.Order)
	}
	if payload.Entries != 1 || payload.Lines != 1 || payload.Categories["OUTBOUND"] != 1 {
		t.Errorf("counts = %+v", payload)
	}
}

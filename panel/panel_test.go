package panel

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/zabeloliver/wethermo-remote/display"
	"github.com/zabeloliver/wethermo-remote/wethermo-api/wethermoStructs"
)

type fakeRemote struct {
	commands chan wethermoStructs.Command
}

func (f *fakeRemote) GetInfo(ctx context.Context) (wethermoStructs.StatusReport, error) {
	var r wethermoStructs.StatusReport
	err := json.Unmarshal([]byte(`{"temp": 21, "crono": 7}`), &r)
	return r, err
}

func (f *fakeRemote) SendCommand(ctx context.Context, cmd wethermoStructs.Command) (wethermoStructs.ControlAck, error) {
	f.commands <- cmd
	return "ok", nil
}

type fixture struct {
	remote *fakeRemote
	region *display.Buffer
	hub    *Hub
	server *Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	logger := zap.NewNop().Sugar()
	hub := NewHub(logger)
	go hub.Run(ctx)

	remote := &fakeRemote{commands: make(chan wethermoStructs.Command, 4)}
	region := display.NewBuffer("mydiv", hub.Publish)
	ctrl := display.NewController(remote, region, logger)
	return &fixture{
		remote: remote,
		region: region,
		hub:    hub,
		server: New(ctx, ctrl, hub, prometheus.NewRegistry(), logger),
	}
}

func (f *fixture) do(method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	f.server.Handler().ServeHTTP(w, req)
	return w
}

func TestIndex_EscapesFieldValues(t *testing.T) {
	f := newFixture(t)
	f.region.Replace([]string{"state:<b>on</b>"})

	w := f.do(http.MethodGet, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if strings.Contains(body, "<b>on</b>") {
		t.Fatal("field value rendered as markup")
	}
	if !strings.Contains(body, "state:&lt;b&gt;on&lt;/b&gt;") {
		t.Fatalf("escaped line missing from page: %s", body)
	}
	if !strings.Contains(body, `id="mydiv"`) {
		t.Fatal("region element missing from page")
	}
}

func TestInvoke_CommandIsFireAndForget(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/wethermo/heat")
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}

	select {
	case cmd := <-f.remote.commands:
		if cmd != wethermoStructs.CommandHeat {
			t.Fatalf("expected heat, got %s", cmd)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("command never reached the thermostat")
	}
}

func TestInvoke_UnknownOperation(t *testing.T) {
	f := newFixture(t)

	for _, op := range []string{"cool", "HEAT", "INFO", "Clear"} {
		if w := f.do(http.MethodPost, "/wethermo/"+op); w.Code != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", op, w.Code)
		}
	}
	select {
	case cmd := <-f.remote.commands:
		t.Fatalf("unexpected command %s sent", cmd)
	default:
	}
}

func TestInvoke_Clear(t *testing.T) {
	f := newFixture(t)
	f.region.Replace([]string{"temp:21"})

	if w := f.do(http.MethodPost, "/wethermo/clear"); w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	if len(f.region.Lines()) != 0 {
		t.Fatalf("expected empty region, got %q", f.region.Lines())
	}
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)

	if w := f.do(http.MethodGet, "/metrics"); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestStream_PushesRegionUpdates(t *testing.T) {
	f := newFixture(t)
	f.region.Replace([]string{"temp:19"})

	srv := httptest.NewServer(f.server.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var u Update
	if err := conn.ReadJSON(&u); err != nil {
		t.Fatalf("read initial update: %v", err)
	}
	if u.Region != "mydiv" || len(u.Lines) != 1 || u.Lines[0] != "temp:19" {
		t.Fatalf("unexpected initial update %#v", u)
	}
	if n := f.hub.Clients(); n != 1 {
		t.Fatalf("expected 1 registered client, got %d", n)
	}

	resp, err := http.Post(srv.URL+"/wethermo/info", "text/plain", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()

	// the queued "temp:19" replace may still be broadcast first
	for {
		if err := conn.ReadJSON(&u); err != nil {
			t.Fatalf("read pushed update: %v", err)
		}
		if len(u.Lines) == 1 && u.Lines[0] == "temp:21" {
			break
		}
		if len(u.Lines) != 1 || u.Lines[0] != "temp:19" {
			t.Fatalf("unexpected pushed update %#v", u)
		}
	}
}

type bigRemote struct{}

func (bigRemote) GetInfo(ctx context.Context) (wethermoStructs.StatusReport, error) {
	return wethermoStructs.StatusReport{Fields: []wethermoStructs.Field{
		{Name: "blob", Value: strings.Repeat("x", 2<<20)},
	}}, nil
}

func (bigRemote) SendCommand(ctx context.Context, cmd wethermoStructs.Command) (wethermoStructs.ControlAck, error) {
	return "ok", nil
}

func TestStream_StalledClientDoesNotBlockController(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := zap.NewNop().Sugar()
	hub := NewHub(logger)
	hub.writeWait = 200 * time.Millisecond
	go hub.Run(ctx)

	region := display.NewBuffer("mydiv", hub.Publish)
	ctrl := display.NewController(bigRemote{}, region, logger)
	srv := httptest.NewServer(New(ctx, ctrl, hub, nil, logger).Handler())
	defer srv.Close()

	// connected, but never reads
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(10 * time.Second)
	for hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}
	for i := 0; hub.Clients() > 0; i++ {
		if time.Now().After(deadline) {
			t.Fatal("stalled client was never dropped")
		}
		select {
		case <-ctrl.FetchStatus(ctx):
		case <-time.After(2 * time.Second):
			t.Fatalf("fetch %d never completed", i)
		}
	}

	cleared := make(chan struct{})
	go func() {
		ctrl.ClearRegion(region)
		close(cleared)
	}()
	select {
	case <-cleared:
	case <-time.After(2 * time.Second):
		t.Fatal("ClearRegion blocked")
	}
}

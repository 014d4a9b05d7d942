package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/citievents/internal/api"
	"github.com/dukerupert/citievents/internal/api/apitest"
	"github.com/dukerupert/citievents/internal/config"
	"github.com/dukerupert/citievents/internal/database"
	"github.com/dukerupert/citievents/internal/middleware"
	"github.com/dukerupert/citievents/internal/model"
)

type fixture struct {
	backend *apitest.Backend
	server  *Server
	http    *httptest.Server
}

func setup(t *testing.T) *fixture {
	t.Helper()
	b := apitest.New(t)
	date, _ := model.ParseDate("2024-06-01")
	b.Items = []model.Item{
		{ID: "1", Type: model.TypeEvent, Title: "Picnic", Description: "Bring a dish", Date: date, RequiresRSVP: true},
		{ID: "2", Type: model.TypeAnnouncement, Title: "Road closure", Description: "Main street"},
	}

	cfg, err := config.FromMap(map[string]string{"CITIEVENTS_API_URL": b.URL()})
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := New(api.New(b.URL(), api.WithLogger(logger)), db, cfg, logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	hs := httptest.NewServer(srv.Router())
	t.Cleanup(hs.Close)
	return &fixture{backend: b, server: srv, http: hs}
}

func noRedirect() *http.Client {
	return &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func TestHealth(t *testing.T) {
	f := setup(t)
	resp, err := http.Get(f.http.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if resp.Header.Get(middleware.RequestIDHeader) == "" {
		t.Error("missing request id header")
	}
	var body map[string]any
	json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "ok" {
		t.Errorf("status = %v, want ok", body["status"])
	}
}

func TestEventsRoute(t *testing.T) {
	f := setup(t)
	resp, err := http.Get(f.http.URL + "/api/events")
	if err != nil {
		t.Fatalf("GET /api/events: %v", err)
	}
	defer resp.Body.Close()

	var page struct {
		Items []model.Item `json:"items"`
		Total int          `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.Total != 1 || page.Items[0].Title != "Picnic" {
		t.Errorf("page = %+v, want the picnic only", page)
	}
}

func TestAdminRequiresToken(t *testing.T) {
	f := setup(t)
	f.backend.Token = "secret"
	body := `{"title":"Picnic 2","description":"d","date":"2024-06-02"}`

	req, _ := http.NewRequest("PUT", f.http.URL+"/api/admin/events/1", strings.NewReader(body))
	resp, err := noRedirect().Do(req)
	if err != nil {
		t.Fatalf("PUT: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login" {
		t.Fatalf("no token: status = %d location = %q, want 303 /login", resp.StatusCode, resp.Header.Get("Location"))
	}

	req, _ = http.NewRequest("PUT", f.http.URL+"/api/admin/events/1", strings.NewReader(body))
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "wrong"})
	resp, err = noRedirect().Do(req)
	if err != nil {
		t.Fatalf("PUT: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("bad token: status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}

	req, _ = http.NewRequest("PUT", f.http.URL+"/api/admin/events/1", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = noRedirect().Do(req)
	if err != nil {
		t.Fatalf("PUT: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("valid token: status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if fields, ok := f.backend.Update("1"); !ok || fields.Title != "Picnic 2" {
		t.Errorf("backend update = %+v, %v", fields, ok)
	}
}

func TestLoginSetsCookie(t *testing.T) {
	f := setup(t)
	resp, err := http.Post(f.http.URL+"/login", "application/json", strings.NewReader(`{"token":"secret"}`))
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == middleware.SessionCookieName && c.Value == "secret" {
			found = true
		}
	}
	if !found {
		t.Error("session cookie not set")
	}

	resp, err = http.Post(f.http.URL+"/login", "application/json", strings.NewReader(`{"token":" "}`))
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty token status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestLikeIsRateLimited(t *testing.T) {
	f := setup(t)
	var last int
	for i := 0; i <= likeLimit; i++ {
		resp, err := http.Post(f.http.URL+"/api/events/1/like", "application/json", nil)
		if err != nil {
			t.Fatalf("POST like: %v", err)
		}
		resp.Body.Close()
		last = resp.StatusCode
		if i < likeLimit && last != http.StatusOK {
			t.Fatalf("request %d status = %d, want %d", i, last, http.StatusOK)
		}
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("status after limit = %d, want %d", last, http.StatusTooManyRequests)
	}
}

func TestRefreshBroadcasts(t *testing.T) {
	f := setup(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(f.http.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	for f.server.Hub().ClientCount() == 0 {
		select {
		case <-ctx.Done():
			t.Fatal("client never registered")
		case <-time.After(10 * time.Millisecond):
		}
	}

	resp, err := http.Post(f.http.URL+"/api/refresh", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/refresh: %v", err)
	}
	resp.Body.Close()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg struct {
		Type string         `json:"type"`
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg.Type != "items_refreshed" {
		t.Errorf("type = %q, want items_refreshed", msg.Type)
	}
	if msg.Data["events"] != float64(1) {
		t.Errorf("events = %v, want 1", msg.Data["events"])
	}
}

package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tempohq/tempo/internal/agent"
	"github.com/tempohq/tempo/internal/audit"
	"github.com/tempohq/tempo/internal/chat"
	"github.com/tempohq/tempo/internal/contextengine"
	"github.com/tempohq/tempo/internal/dashboard"
	"github.com/tempohq/tempo/internal/db"
	"github.com/tempohq/tempo/internal/task"
	"github.com/tempohq/tempo/internal/tools"
)

func TestHealthCheck(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer database.Close()

	srv := New(Config{Port: 0}, database, nil, nil, nil, contextengine.DefaultPreferences())

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", body["status"])
	}
}

func TestCORSHeaders(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer database.Close()

	srv := New(Config{Port: 0, AllowAll: true}, database, nil, nil, nil, contextengine.DefaultPreferences())

	req := httptest.NewRequest("OPTIONS", "/healthz", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("expected CORS Allow-Origin header")
	}
}

func TestMountsFeatureRoutes(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer database.Close()

	tasks := task.NewSQLStore(database)
	chats := chat.NewStore(database)
	auditStore := audit.NewStore(database)
	registry := tools.NewRegistry(tools.PermissionAdmin)
	if err := tools.RegisterBuiltin(registry, tasks); err != nil {
		t.Fatalf("registering builtin tools: %v", err)
	}
	engine := contextengine.NewEngine(tasks, contextengine.Options{})
	dash := dashboard.New(nil, registry, engine, tasks, chats, agent.Options{Audit: auditStore})

	srv := New(Config{Port: 0}, database, dash, auditStore, engine, contextengine.DefaultPreferences())

	for _, path := range []string{
		"/",
		"/api/dashboard/stats",
		"/api/dashboard/recent",
		"/api/audit",
		"/api/context",
		"/api/context/intent?message=plan+my+day",
	} {
		req := httptest.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("GET %s: expected 200, got %d: %s", path, w.Code, w.Body.String())
		}
	}
}

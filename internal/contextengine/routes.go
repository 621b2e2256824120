package contextengine

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tempohq/tempo/internal/intent"
)

// RegisterRoutes mounts the context engine API routes.
func RegisterRoutes(r chi.Router, engine *Engine, prefs Preferences) {
	r.Route("/api/context", func(r chi.Router) {
		r.Get("/", handleSnapshot(engine, prefs))
		r.Post("/build", handleBuild(engine, prefs))
		r.Get("/intent", handleIntent())
	})
}

type buildRequest struct {
	Message string   `json:"message"`
	History []string `json:"history,omitempty"`
}

// handleSnapshot serves the current context with no message steering it,
// for inspection.
func handleSnapshot(engine *Engine, prefs Preferences) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		base := BuildBase(r.Context(), engine.store, prefs, engine.now())
		result := engine.Build(r.Context(), base, "", nil)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

func handleBuild(engine *Engine, prefs Preferences) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req buildRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if req.Message == "" {
			http.Error(w, `{"error":"message is required"}`, http.StatusBadRequest)
			return
		}

		base := BuildBase(r.Context(), engine.store, prefs, engine.now())
		result := engine.Build(r.Context(), base, req.Message, req.History)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(result)
	}
}

func handleIntent() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		message := r.URL.Query().Get("message")
		if message == "" {
			http.Error(w, `{"error":"message parameter is required"}`, http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(intent.Extract(message))
	}
}

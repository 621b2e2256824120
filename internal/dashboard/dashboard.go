// Package dashboard serves the web chat surface: a WebSocket assistant
// channel with in-band confirmations, plus JSON endpoints for the
// overview widgets.
package dashboard

import (
	"bytes"

	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/extension"

	"github.com/tempohq/tempo/internal/agent"
	"github.com/tempohq/tempo/internal/chat"
	"github.com/tempohq/tempo/internal/contextengine"
	"github.com/tempohq/tempo/internal/llm"
	"github.com/tempohq/tempo/internal/task"
	"github.com/tempohq/tempo/internal/tools"
)

// historyWindow caps how many prior turns feed each assistant run.
const historyWindow = 20

// Dashboard provides the chat-first web interface.
type Dashboard struct {
	provider  llm.Provider
	registry  *tools.Registry
	engine    *contextengine.Engine
	tasks     task.Store
	chats     *chat.Store
	agentOpts agent.Options
	md        goldmark.Markdown
}

// New creates a new Dashboard. The assistant is built per connection so
// each WebSocket gets its own confirmation channel; opts carries the
// shared agent settings (audit store, preferences, model).
func New(provider llm.Provider, registry *tools.Registry, engine *contextengine.Engine, tasks task.Store, chats *chat.Store, opts agent.Options) *Dashboard {
	return &Dashboard{
		provider:  provider,
		registry:  registry,
		engine:    engine,
		tasks:     tasks,
		chats:     chats,
		agentOpts: opts,
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				highlighting.NewHighlighting(
					highlighting.WithStyle("github"),
				),
			),
		),
	}
}

// RegisterRoutes mounts all dashboard routes onto the given router.
func (d *Dashboard) RegisterRoutes(r chi.Router) {
	r.Get("/", d.ServeIndex)
	r.Get("/api/dashboard/stats", d.handleStats)
	r.Get("/api/dashboard/recent", d.handleRecent)
	r.Get("/ws/chat", d.handleWebSocket)
}

// renderMarkdown converts an assistant reply to HTML for the web UI.
// Raw HTML in the input stays escaped.
func (d *Dashboard) renderMarkdown(text string) string {
	var buf bytes.Buffer
	if err := d.md.Convert([]byte(text), &buf); err != nil {
		return ""
	}
	return buf.String()
}

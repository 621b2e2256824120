package dashboard

import (
	_ "embed"
	"net/http"
)

// The chat page ships inside the binary; there is no asset pipeline.
//
//go:embed index.html
var indexHTML []byte

// ServeIndex serves the embedded chat page. The page only changes with
// the binary, so browsers are told not to cache it across upgrades.
func (d *Dashboard) ServeIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(indexHTML)
}

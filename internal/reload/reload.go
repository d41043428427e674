// Package reload tells connected browsers to refresh after a rebuild.
//
// Server sits between the browser and the WordPress container: it proxies
// every request to the container, injects a small client script into HTML
// pages and pushes reload messages to that script over a websocket.
package reload

import (
	"context"
	"encoding/json"
	"path"
	"strings"
)

// Mode selects how browsers refresh.
type Mode int

const (
	// ModeFull reloads the whole page.
	ModeFull Mode = iota
	// ModeScoped swaps only the resources matching the pattern, e.g.
	// stylesheets, without a page reload.
	ModeScoped
)

// String returns the string representation of the Mode
func (m Mode) String() string {
	if m == ModeScoped {
		return "scoped"
	}
	return "full"
}

// Notifier signals browsers. Notify is fire-and-forget: delivery failures
// are logged by the implementation and never returned.
type Notifier interface {
	Notify(ctx context.Context, mode Mode, pattern string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, mode Mode, pattern string)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, mode Mode, pattern string) { f(ctx, mode, pattern) }

// Message is the JSON frame sent to the browser client. On "inject" the
// client refreshes only stylesheets whose URL path ends with Suffix.
type Message struct {
	Type    string `json:"type"`
	Pattern string `json:"pattern,omitempty"`
	Suffix  string `json:"suffix,omitempty"`
}

// NewMessage builds the frame for mode.
func NewMessage(mode Mode, pattern string) Message {
	if mode == ModeScoped {
		return Message{Type: "inject", Pattern: pattern, Suffix: patternSuffix(pattern)}
	}
	return Message{Type: "reload", Pattern: pattern}
}

// patternSuffix returns the literal tail of the last segment of a glob:
// "**/*.css" gives ".css", "css/style.css" gives "/style.css". An empty
// suffix matches every stylesheet.
func patternSuffix(pattern string) string {
	base := path.Base(pattern)
	if base == "." || base == "/" || base == "**" {
		return ""
	}
	if i := strings.LastIndexAny(base, "*?]"); i >= 0 {
		return base[i+1:]
	}
	return "/" + base
}

func (m Message) encode() []byte {
	data, _ := json.Marshal(m)
	return data
}

package alerts

import (
	"strings"
	"sync"
	"time"

	"github.com/theirongolddev/tripburn/internal/model"
)

// DefaultRotateInterval is how long each alert stays visible.
const DefaultRotateInterval = 5 * time.Second

// Placeholder is shown when no heuristic fires.
var Placeholder = model.Alert{Tone: model.ToneInfo, Message: "All quiet here. Keep logging expenses to see more tips."}

// Generator holds the current alert set and which one is visible.
type Generator struct {
	mu        sync.Mutex
	interval  time.Duration
	alerts    []model.Alert
	index     int
	signature string
	restarts  int
	stop      chan struct{}
	onRotate  func(model.Alert)
}

// NewGenerator returns a generator showing the placeholder. A zero interval disables
// timed rotation; Advance still works.
func NewGenerator(interval time.Duration) *Generator {
	return &Generator{interval: interval, alerts: []model.Alert{Placeholder}}
}

// OnRotate registers a callback for timed rotations. It runs on the rotation goroutine.
func (g *Generator) OnRotate(fn func(model.Alert)) {
	g.mu.Lock()
	g.onRotate = fn
	g.mu.Unlock()
}

// Signature is the content identity of an alert list.
func Signature(alerts []model.Alert) string {
	parts := make([]string, len(alerts))
	for i, a := range alerts {
		parts[i] = string(a.Tone) + ":" + a.Message
	}
	return strings.Join(parts, "\n")
}

// Update installs a new alert list. It returns false, leaving the visible alert and
// rotation untouched, when the list has the same signature as the current one.
func (g *Generator) Update(alerts []model.Alert) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(alerts) == 0 {
		if g.signature == "" && len(g.alerts) == 1 && g.alerts[0] == Placeholder {
			return false
		}
		g.stopLocked()
		g.alerts = []model.Alert{Placeholder}
		g.index = 0
		g.signature = ""
		return true
	}

	sig := Signature(alerts)
	if sig == g.signature {
		return false
	}
	g.signature = sig
	g.alerts = append([]model.Alert(nil), alerts...)
	g.index = 0
	g.restartLocked()
	return true
}

// Current returns the visible alert.
func (g *Generator) Current() model.Alert {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.alerts[g.index]
}

// All returns the full alert list.
func (g *Generator) All() []model.Alert {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]model.Alert(nil), g.alerts...)
}

// Advance moves to the next alert, wrapping around, and returns it.
func (g *Generator) Advance() model.Alert {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.alerts) > 0 {
		g.index = (g.index + 1) % len(g.alerts)
	}
	return g.alerts[g.index]
}

// Restarts counts how many times rotation was reset by a changed alert list.
func (g *Generator) Restarts() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.restarts
}

// Close stops the rotation goroutine.
func (g *Generator) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopLocked()
}

func (g *Generator) stopLocked() {
	if g.stop != nil {
		close(g.stop)
		g.stop = nil
	}
}

func (g *Generator) restartLocked() {
	g.stopLocked()
	g.restarts++
	if g.interval <= 0 || len(g.alerts) < 2 {
		return
	}
	stop := make(chan struct{})
	g.stop = stop
	go g.rotate(stop)
}

func (g *Generator) rotate(stop chan struct{}) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			g.mu.Lock()
			if g.stop != stop {
				g.mu.Unlock()
				return
			}
			g.index = (g.index + 1) % len(g.alerts)
			a, fn := g.alerts[g.index], g.onRotate
			g.mu.Unlock()
			if fn != nil {
				fn(a)
			}
		}
	}
}

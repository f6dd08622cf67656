// Package cloudsync mirrors local destination state to the remote backend.
//
// Local state is always written first; remote writes follow on a single debounce
// timer so a burst of edits produces one push of the latest state. Pushes replace the
// remote copy of a destination wholesale. Pulls fold remote records back into local
// state through the registry and merge resolver. Remote failures are logged and
// recorded in Status, never rolled back into local state, and never retried.
package cloudsync

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/tripburn/internal/logging"
	"github.com/theirongolddev/tripburn/internal/model"
	"github.com/theirongolddev/tripburn/internal/registry"
	"github.com/theirongolddev/tripburn/internal/remote"
	"github.com/theirongolddev/tripburn/internal/state"
	"github.com/theirongolddev/tripburn/internal/store"
)

// DefaultDebounce is the push coalescing window.
const DefaultDebounce = 1500 * time.Millisecond

// ErrDisconnected is returned by remote operations when sync is off.
var ErrDisconnected = errors.New("cloudsync: not connected")

// Journal persists sync history and settings. *store.DB implements it.
type Journal interface {
	RecordSync(ev store.SyncEvent) error
	LastSync(op string) (store.SyncEvent, bool, error)
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

// Observer is told about every finished remote operation.
type Observer interface {
	PushDone(slug string, err error)
	PullDone(err error)
	ShareDone(err error)
}

// Options configures a Client.
type Options struct {
	Backend  remote.Backend // nil disables sync
	OwnerID  string
	Registry *registry.Registry
	State    *state.Store
	Blobs    registry.BlobStore
	Journal  Journal
	Debounce time.Duration
	Logger   logrus.FieldLogger
	Observer Observer
}

// Client is safe for concurrent use. Remote operations are serialized.
type Client struct {
	backend  remote.Backend
	owner    string
	reg      *registry.Registry
	states   *state.Store
	blobs    registry.BlobStore
	journal  Journal
	debounce time.Duration
	log      *logrus.Entry
	obs      Observer
	now      func() time.Time

	opMu sync.Mutex

	mu         sync.Mutex
	connected  bool
	timer      *time.Timer
	gen        uint64
	dirty      map[string]bool
	dirtyOrder []string
	shareDirty bool
	shareCode  string
	status     Status

	suppressed int
	deferred   []string // slugs scheduled while suppressed
}

// New returns a client. It is connected when opts.Backend is non-nil.
func New(opts Options) *Client {
	d := opts.Debounce
	if d <= 0 {
		d = DefaultDebounce
	}
	c := &Client{
		backend:   opts.Backend,
		owner:     opts.OwnerID,
		reg:       opts.Registry,
		states:    opts.State,
		blobs:     opts.Blobs,
		journal:   opts.Journal,
		debounce:  d,
		log:       logging.Component(opts.Logger, "sync"),
		obs:       opts.Observer,
		now:       time.Now,
		connected: opts.Backend != nil,
		dirty:     make(map[string]bool),
	}
	if c.journal != nil {
		if code, err := c.journal.GetSetting(store.SettingShareCode); err == nil {
			c.shareCode = code
		}
	}
	c.status.Connected = c.connected
	if c.connected {
		c.status.Message, c.status.Tone = "Sync ready", model.ToneInfo
	} else {
		c.status.Message, c.status.Tone = "Sync off", model.ToneInfo
	}
	return c
}

// Connected reports whether remote operations are enabled.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Suppress holds back push scheduling until the returned release func is called.
// Pushes requested meanwhile are scheduled on the last release, so an edit made
// during a pull is not lost. Release is idempotent.
func (c *Client) Suppress() (release func()) {
	c.mu.Lock()
	c.suppressed++
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.suppressed--
			var held []string
			if c.suppressed == 0 {
				held, c.deferred = c.deferred, nil
			}
			c.mu.Unlock()
			for _, slug := range held {
				c.SchedulePush(slug)
			}
		})
	}
}

// Suppressed reports whether push scheduling is currently held back.
func (c *Client) Suppressed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suppressed > 0
}

// SchedulePush marks slug dirty and restarts the debounce timer. When the timer
// fires every dirty slug is pushed with the state current at that moment.
func (c *Client) SchedulePush(slug string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return
	}
	if c.suppressed > 0 {
		if !slices.Contains(c.deferred, slug) {
			c.deferred = append(c.deferred, slug)
		}
		return
	}
	if slug != "" && !c.dirty[slug] {
		c.dirty[slug] = true
		c.dirtyOrder = append(c.dirtyOrder, slug)
	}
	if c.shareCode != "" {
		c.shareDirty = true
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.timer = time.AfterFunc(c.debounce, func() { c.fire(gen) })
}

// Pending reports whether a debounced push is waiting.
func (c *Client) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timer != nil || len(c.deferred) > 0
}

func (c *Client) fire(gen uint64) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	slugs, share := c.takeDirtyLocked()
	c.mu.Unlock()

	_ = c.pushDirty(context.Background(), slugs, share)
}

// Flush runs a pending debounced push now and waits for it.
func (c *Client) Flush(ctx context.Context) error {
	c.mu.Lock()
	if c.timer == nil {
		c.mu.Unlock()
		return nil
	}
	c.timer.Stop()
	c.gen++
	slugs, share := c.takeDirtyLocked()
	c.mu.Unlock()

	return c.pushDirty(ctx, slugs, share)
}

func (c *Client) takeDirtyLocked() ([]string, bool) {
	c.timer = nil
	slugs := c.dirtyOrder
	share := c.shareDirty
	c.dirty = make(map[string]bool)
	c.dirtyOrder = nil
	c.shareDirty = false
	return slugs, share
}

func (c *Client) pushDirty(ctx context.Context, slugs []string, share bool) error {
	var first error
	for _, slug := range slugs {
		if !c.reg.Has(slug) {
			continue
		}
		if err := c.Push(ctx, slug); err != nil && first == nil {
			first = err
		}
	}
	if share {
		if err := c.PublishShare(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Disconnect cancels any pending push, forgets the share code and turns sync off
// for this client. An in-flight remote call is not interrupted.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
	c.dirty = make(map[string]bool)
	c.dirtyOrder = nil
	c.deferred = nil
	c.shareDirty = false
	c.connected = false
	c.shareCode = ""
	c.status.Connected = false
	c.status.ShareCode = ""
	c.status.Message, c.status.Tone = "Sync disconnected", model.ToneInfo
	c.mu.Unlock()

	if c.journal != nil {
		if err := c.journal.SetSetting(store.SettingShareCode, ""); err != nil {
			return fmt.Errorf("clearing share code: %w", err)
		}
	}
	return nil
}

func (c *Client) requireConnected() error {
	if !c.Connected() {
		return ErrDisconnected
	}
	return nil
}

func (c *Client) saveRegistry() error {
	if c.blobs == nil {
		return nil
	}
	return c.reg.Save(c.blobs)
}

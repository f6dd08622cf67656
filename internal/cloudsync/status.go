package cloudsync

import (
	"errors"
	"time"

	"github.com/theirongolddev/tripburn/internal/model"
	"github.com/theirongolddev/tripburn/internal/remote"
	"github.com/theirongolddev/tripburn/internal/store"
)

// Status is the user-facing sync indicator.
type Status struct {
	Connected bool
	ShareCode string
	Pending   bool

	Message string
	Tone    model.Tone

	LastPush            time.Time
	LastPull            time.Time
	LastError           string
	ConsecutiveFailures int
}

// Status returns the current indicator. Last push/pull times fall back to the
// journal so a fresh process still reports the previous run.
func (c *Client) Status() Status {
	c.mu.Lock()
	st := c.status
	st.Pending = c.timer != nil
	st.ShareCode = c.shareCode
	c.mu.Unlock()

	if c.journal != nil {
		if st.LastPush.IsZero() {
			if ev, ok, err := c.journal.LastSync("push"); err == nil && ok {
				st.LastPush = ev.At
			}
		}
		if st.LastPull.IsZero() {
			if ev, ok, err := c.journal.LastSync("pull"); err == nil && ok {
				st.LastPull = ev.At
			}
		}
	}
	return st
}

func (c *Client) succeeded(op, slug, msg string) {
	now := c.now()
	c.mu.Lock()
	c.status.Message, c.status.Tone = msg, model.ToneSuccess
	c.status.LastError = ""
	c.status.ConsecutiveFailures = 0
	switch op {
	case "push":
		c.status.LastPush = now
	case "pull":
		c.status.LastPull = now
	}
	c.mu.Unlock()

	c.record(store.SyncEvent{Op: op, Slug: slug, OK: true, Message: msg, At: now})
	c.observe(op, slug, nil)
}

// failed records a remote failure and returns it as an unavailable error. Local
// state is left as it is.
func (c *Client) failed(op, slug string, err error) error {
	err = remote.Unavailable(op, err)
	msg := failureMessage(op, err)

	c.mu.Lock()
	c.status.Message, c.status.Tone = msg, model.ToneDanger
	c.status.LastError = err.Error()
	c.status.ConsecutiveFailures++
	c.mu.Unlock()

	c.log.WithError(err).WithField("op", op).WithField("slug", slug).Warn("sync failed")
	c.record(store.SyncEvent{Op: op, Slug: slug, OK: false, Message: err.Error(), At: c.now()})
	c.observe(op, slug, err)
	return err
}

func failureMessage(op string, err error) string {
	switch {
	case errors.Is(err, remote.ErrUnauthorized):
		return "Sync rejected: check the remote API key"
	case errors.Is(err, remote.ErrRateLimited):
		return "Sync throttled, try again shortly"
	case errors.Is(err, remote.ErrNotFound) && op == "share":
		return "Share code not found"
	}
	switch op {
	case "pull":
		return "Could not load from the cloud"
	case "share":
		return "Could not reach shared trip"
	default:
		return "Could not save to the cloud"
	}
}

func (c *Client) record(ev store.SyncEvent) {
	if c.journal == nil {
		return
	}
	if err := c.journal.RecordSync(ev); err != nil {
		c.log.WithError(err).Debug("recording sync event")
	}
}

func (c *Client) observe(op, slug string, err error) {
	if c.obs == nil {
		return
	}
	switch op {
	case "push":
		c.obs.PushDone(slug, err)
	case "pull":
		c.obs.PullDone(err)
	case "share":
		c.obs.ShareDone(err)
	}
}

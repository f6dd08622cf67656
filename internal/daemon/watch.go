package daemon

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watch reloads the tracker when another process writes the database. Bursts of
// writes are collapsed into one reload after ReloadDelay of quiet.
func (s *Service) watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = w.Close() }()

	// SQLite replaces and appends to sidecar files, so watch the directory.
	if err := w.Add(filepath.Dir(s.cfg.DBPath)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(s.cfg.DBPath), err)
	}

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if s.relevant(ev) {
				fire = time.After(s.cfg.ReloadDelay)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.WithError(err).Warn("watch error")
		case <-fire:
			fire = nil
			s.reload()
		}
	}
}

func (s *Service) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return false
	}
	base := filepath.Base(s.cfg.DBPath)
	name := filepath.Base(ev.Name)
	return name == base || name == base+"-wal"
}

// reload re-reads state from the database and republishes every destination.
func (s *Service) reload() {
	before := make(map[string]bool)
	s.mu.RLock()
	for slug := range s.snapshots {
		before[slug] = true
	}
	s.mu.RUnlock()

	if err := s.tr.Reload(); err != nil {
		s.setError(err)
		s.log.WithError(err).Warn("reload failed")
		return
	}
	for _, cfg := range s.tr.Destinations() {
		delete(before, cfg.Slug)
	}

	s.mu.Lock()
	for slug := range before {
		delete(s.snapshots, slug)
	}
	s.reloadCount++
	s.lastReloadAt = time.Now()
	ev := s.newEventLocked("reload", nil, nil, nil)
	s.mu.Unlock()

	for slug := range before {
		s.metrics.forgetDestination(slug)
	}
	s.metrics.reloads.Inc()
	s.publishEvent(ev)
	s.log.Debug("reloaded state")
}

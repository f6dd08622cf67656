package cloudsync

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/theirongolddev/tripburn/internal/model"
	"github.com/theirongolddev/tripburn/internal/state"
	"github.com/theirongolddev/tripburn/internal/store"
)

const (
	shareAlphabet   = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	shareCodeLength = 6
)

var (
	// ErrInvalidShareCode is returned for codes outside [A-Z0-9-]{3,20}.
	ErrInvalidShareCode = errors.New("cloudsync: share code must be 3-20 letters, digits or dashes")
	// ErrNoShare is returned when publishing without an active share code.
	ErrNoShare = errors.New("cloudsync: no active share code")

	shareCodeRe = regexp.MustCompile(`^[A-Z0-9-]{3,20}$`)
)

// GenerateShareCode returns a random code from an alphabet without look-alike characters.
func GenerateShareCode() (string, error) {
	var b strings.Builder
	limit := big.NewInt(int64(len(shareAlphabet)))
	for range shareCodeLength {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generating share code: %w", err)
		}
		b.WriteByte(shareAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeShareCode uppercases a user-supplied code and validates it.
func NormalizeShareCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !shareCodeRe.MatchString(code) {
		return "", ErrInvalidShareCode
	}
	return code, nil
}

// ShareCode returns the active share code, or "".
func (c *Client) ShareCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shareCode
}

// CreateShare publishes the full local state under custom, or under a generated
// code when custom is empty, and makes it the active share code.
func (c *Client) CreateShare(ctx context.Context, custom string) (string, error) {
	if err := c.requireConnected(); err != nil {
		return "", err
	}
	var (
		code string
		err  error
	)
	if strings.TrimSpace(custom) != "" {
		code, err = NormalizeShareCode(custom)
	} else {
		code, err = GenerateShareCode()
	}
	if err != nil {
		return "", err
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()
	if err := c.publish(ctx, code); err != nil {
		return "", err
	}
	if err := c.setShareCode(code); err != nil {
		return "", err
	}
	return code, nil
}

// PublishShare republishes the full local state under the active share code.
func (c *Client) PublishShare(ctx context.Context) error {
	if err := c.requireConnected(); err != nil {
		return err
	}
	code := c.ShareCode()
	if code == "" {
		return ErrNoShare
	}
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.publish(ctx, code)
}

// LoadShare replaces all local state with the snapshot stored under code and makes
// code the active share code. Destinations absent from the snapshot are reset.
func (c *Client) LoadShare(ctx context.Context, code string) error {
	if err := c.requireConnected(); err != nil {
		return err
	}
	code, err := NormalizeShareCode(code)
	if err != nil {
		return err
	}

	c.opMu.Lock()
	defer c.opMu.Unlock()

	share, err := c.backend.FetchShare(ctx, code)
	if err != nil {
		return c.failed("share", "", err)
	}
	states, err := c.states.ParseImport(share.Payload, state.FormatJSON)
	if err != nil {
		return fmt.Errorf("shared trip %s: %w", code, err)
	}

	release := c.Suppress()
	defer release()
	if err := c.states.ReplaceAll(state.Remote, states); err != nil {
		return fmt.Errorf("applying shared state: %w", err)
	}
	if err := c.setShareCode(code); err != nil {
		return err
	}
	c.succeeded("share", "", "Loaded shared trip "+code)
	return nil
}

func (c *Client) publish(ctx context.Context, code string) error {
	data, err := c.states.Export(state.FormatJSON)
	if err != nil {
		return err
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return err
	}
	if err := c.backend.UpsertShare(ctx, model.Share{
		Code:      code,
		Payload:   compact.Bytes(),
		UpdatedAt: c.now().UTC(),
	}); err != nil {
		return c.failed("share", "", err)
	}
	if c.journal != nil {
		_ = c.journal.SetSetting(store.SettingLastShareAt, c.now().UTC().Format("2006-01-02T15:04:05Z"))
	}
	c.succeeded("share", "", "Shared as "+code)
	return nil
}

func (c *Client) setShareCode(code string) error {
	c.mu.Lock()
	c.shareCode = code
	c.status.ShareCode = code
	c.mu.Unlock()
	if c.journal == nil {
		return nil
	}
	if err := c.journal.SetSetting(store.SettingShareCode, code); err != nil {
		return fmt.Errorf("saving share code: %w", err)
	}
	return nil
}

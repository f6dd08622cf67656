// Package remote talks to the hosted destinations/expenses/shares backend.
package remote

import (
	"context"
	"errors"

	"github.com/theirongolddev/tripburn/internal/model"
)

var (
	// ErrUnauthorized indicates the API key was rejected.
	ErrUnauthorized = errors.New("remote: unauthorized (api key missing or invalid)")
	// ErrRateLimited indicates the backend throttled the request.
	ErrRateLimited = errors.New("remote: rate limited")
	// ErrNotFound indicates the addressed record does not exist.
	ErrNotFound = errors.New("remote: not found")
)

// UnavailableError wraps any failure to complete a remote operation.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return "remote: " + e.Op + " unavailable: " + e.Err.Error()
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Unavailable wraps err as an *UnavailableError unless it already is one.
func Unavailable(op string, err error) error {
	if err == nil || IsUnavailable(err) {
		return err
	}
	return &UnavailableError{Op: op, Err: err}
}

// IsUnavailable reports whether err is or wraps an *UnavailableError.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

// DestinationPatch is the set of columns a push updates on an existing record.
type DestinationPatch struct {
	Budget      float64                  `json:"budget"`
	Nights      int                      `json:"nights"`
	EndDate     string                   `json:"end_date,omitempty"`
	Coordinates *model.RemoteCoordinates `json:"coordinates,omitempty"`
}

// Backend is the remote storage used by the sync client.
type Backend interface {
	ListDestinations(ctx context.Context, ownerID string) ([]model.RemoteDestination, error)
	GetDestination(ctx context.Context, id string) (model.RemoteDestination, error)
	InsertDestination(ctx context.Context, d model.RemoteDestination) (model.RemoteDestination, error)
	UpdateDestination(ctx context.Context, id string, patch DestinationPatch) error
	DeleteDestination(ctx context.Context, id string) error
	DeleteExpenses(ctx context.Context, destinationID string) error
	InsertExpenses(ctx context.Context, rows []model.RemoteExpense) ([]model.RemoteExpense, error)
	UpsertShare(ctx context.Context, share model.Share) error
	FetchShare(ctx context.Context, code string) (model.Share, error)
}

var (
	_ Backend = (*Client)(nil)
	_ Backend = (*Memory)(nil)
)

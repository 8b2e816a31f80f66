package interfaces

import (
	"context"
	"errors"
	"fmt"

	"calltriage/internal/models"
)

var (
	ErrStoreUnavailable  = errors.New("emergency store unavailable")
	ErrEmergencyNotFound = errors.New("emergency not found")
)

// EmergencyRepository persists emergency records and maintains their
// secondary indexes. The stored record is the source of truth; index
// membership is best-effort.
type EmergencyRepository interface {
	// Create assigns an id and timestamps when missing, stores the record
	// and writes every index entry. Steps already applied are not rolled
	// back when a later one fails.
	Create(ctx context.Context, emergency *models.Emergency) error
	GetByID(ctx context.Context, id string) (*models.Emergency, error)

	// Index queries
	GetTopByPriority(ctx context.Context, limit int) ([]*models.Emergency, error)
	GetByArea(ctx context.Context, area string) ([]*models.Emergency, error)
	GetByType(ctx context.Context, emergencyType models.EmergencyType) ([]*models.Emergency, error)
	GetRecent(ctx context.Context, limit int) ([]*models.Emergency, error)
	GetAll(ctx context.Context) ([]*models.Emergency, error)

	// Analytics
	GetStats(ctx context.Context) (*models.EmergencyStats, error)
}

// StoreError records which store operation failed, and for which record.
// It matches both ErrStoreUnavailable and the underlying cause.
type StoreError struct {
	Op          string
	Key         string
	EmergencyID string
	Err         error
}

func (e *StoreError) Error() string {
	if e.EmergencyID != "" {
		return fmt.Sprintf("%s: %s %s (emergency %s): %v", ErrStoreUnavailable, e.Op, e.Key, e.EmergencyID, e.Err)
	}
	return fmt.Sprintf("%s: %s %s: %v", ErrStoreUnavailable, e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrStoreUnavailable, e.Err}
}

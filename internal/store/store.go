package store

import (
	"context"
	"errors"
	"time"

	"github.com/joescharf/curate/internal/models"
)

// ErrNotFound is returned when a review does not exist.
var ErrNotFound = errors.New("not found")

// ReviewListFilter specifies filters for listing reviews.
type ReviewListFilter struct {
	Source    models.Source
	RequestID string
	Positive  *bool
	Since     time.Time
	Limit     int
}

// Store defines the persistence interface for the review ledger.
type Store interface {
	CreateReview(ctx context.Context, r *models.Review) error
	GetReview(ctx context.Context, id string) (*models.Review, error)
	ListReviews(ctx context.Context, filter ReviewListFilter) ([]*models.Review, error)
	HasRequest(ctx context.Context, requestID string) (bool, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

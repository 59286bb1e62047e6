package domain

import (
	"context"
	"errors"
	"fmt"
)

type PlacesClient interface {
	SearchText(ctx context.Context, query, pageToken string) (SearchPage, error)
	GetDetails(ctx context.Context, placeID string) (Place, error)
	PhotoURL(ctx context.Context, photoName string) (string, error)
}

type Classifier interface {
	// Classify scores one review's text. ErrUnclassified (or any transport
	// error) means the caller should fall back to neutral.
	Classify(ctx context.Context, text string) (Classification, error)
	// Summarize produces the narrative analysis over raw review texts.
	Summarize(ctx context.Context, locationName string, reviews []string) (string, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

type ClaimRepository interface {
	// ToggleClaim claims the place for the user, or releases an existing
	// claim. Returns the resulting claimed state.
	ToggleClaim(ctx context.Context, c Claim) (bool, error)
	IsClaimed(ctx context.Context, userID, placeID string) (bool, error)
	ListClaims(ctx context.Context, userID string) ([]Claim, error)
	ListClaimedPlaceIDs(ctx context.Context) ([]string, error)
	UpsertReviews(ctx context.Context, placeID string, rs []Review) error
}

var (
	ErrNotFound     = errors.New("places: not found")
	ErrUnauthorized = errors.New("places: unauthorized")
	ErrForbidden    = errors.New("places: forbidden")

	// ErrUnclassified marks a classifier reply that could not be turned into
	// a valid Classification.
	ErrUnclassified = errors.New("sentiment: unclassified")
)

// UpstreamError carries a non-success status from the places directory so the
// HTTP boundary can mirror it.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Body)
}

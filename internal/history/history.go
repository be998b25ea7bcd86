package history

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/spigell/offer-guard/internal/offer"
	"github.com/spigell/offer-guard/internal/risk"
)

// DefaultMaxItems bounds every store unless configured otherwise.
const DefaultMaxItems = 50

var ErrNotFound = errors.New("history item not found")

var now = time.Now

// Item is one saved analysis.
type Item struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Offer     offer.JobOffer `json:"offer"`
	Result    risk.Result    `json:"result"`
}

// NewItem stamps an analysis with a fresh id. The offer image is not kept.
func NewItem(o offer.JobOffer, result *risk.Result) Item {
	item := Item{
		ID:        uuid.NewString(),
		Timestamp: now().UTC(),
		Offer:     o.Redacted(),
	}
	if result != nil {
		item.Result = *result
	}
	return item
}

// Store persists analyses. List returns the newest items first.
type Store interface {
	Add(ctx context.Context, item Item) error
	List(ctx context.Context) ([]Item, error)
	Get(ctx context.Context, id string) (Item, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// Nop discards everything. It backs the "none" history backend.
type Nop struct{}

func (Nop) Add(context.Context, Item) error { return nil }

func (Nop) List(context.Context) ([]Item, error) { return []Item{}, nil }

func (Nop) Get(context.Context, string) (Item, error) { return Item{}, ErrNotFound }

func (Nop) Delete(context.Context, string) error { return ErrNotFound }

func (Nop) Clear(context.Context) error { return nil }

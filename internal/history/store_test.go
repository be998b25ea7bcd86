package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spigell/offer-guard/internal/offer"
	"github.com/spigell/offer-guard/internal/risk"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func itemAt(id string, minutes int) Item {
	return Item{
		ID:        id,
		Timestamp: baseTime.Add(time.Duration(minutes) * time.Minute),
		Offer:     offer.JobOffer{JobTitle: "Title " + id, CompanyName: "Acme", JobDescription: "d", ContactMethod: offer.ContactEmail},
		Result:    risk.Result{RiskLevel: risk.LevelLow, RiskScore: 10, RedFlags: []string{}, TrustIndicators: []string{"ok"}},
	}
}

// exerciseStore runs the behaviour every Store must share. store must be empty
// and limited to three items.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	items, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list empty store: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", items)
	}

	for i, id := range []string{"a", "c", "b"} {
		minutes := map[string]int{"a": 1, "b": 2, "c": 3}[id]
		if err := store.Add(ctx, itemAt(id, minutes)); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}

	items, err = store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got := ids(items); got != "c,b,a" {
		t.Fatalf("expected newest first c,b,a, got %s", got)
	}
	if items[0].Result.TrustIndicators[0] != "ok" || items[0].Offer.JobTitle != "Title c" {
		t.Fatalf("item content not preserved: %+v", items[0])
	}

	if err := store.Add(ctx, itemAt("d", 4)); err != nil {
		t.Fatalf("add d: %v", err)
	}
	items, _ = store.List(ctx)
	if got := ids(items); got != "d,c,b" {
		t.Fatalf("expected oldest item to be evicted, got %s", got)
	}

	item, err := store.Get(ctx, "c")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !item.Timestamp.Equal(baseTime.Add(3 * time.Minute)) {
		t.Fatalf("unexpected timestamp %v", item.Timestamp)
	}
	if _, err := store.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for evicted item, got %v", err)
	}

	if err := store.Delete(ctx, "c"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "c"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	items, _ = store.List(ctx)
	if got := ids(items); got != "d,b" {
		t.Fatalf("expected d,b after delete, got %s", got)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	items, _ = store.List(ctx)
	if len(items) != 0 {
		t.Fatalf("expected empty store after clear, got %d items", len(items))
	}
}

func ids(items []Item) string {
	out := ""
	for i, item := range items {
		if i > 0 {
			out += ","
		}
		out += item.ID
	}
	return out
}

func TestNewItemRedactsImage(t *testing.T) {
	original := now
	now = func() time.Time { return baseTime }
	defer func() { now = original }()

	o := offer.JobOffer{JobTitle: "t", OfferImage: "data:image/png;base64,AAAA"}
	result := &risk.Result{RiskLevel: risk.LevelHigh, RiskScore: 90}

	item := NewItem(o, result)
	if item.ID == "" {
		t.Fatal("expected generated id")
	}
	if item.Offer.OfferImage != "" {
		t.Fatal("expected image to be dropped")
	}
	if !item.Timestamp.Equal(baseTime) {
		t.Fatalf("unexpected timestamp %v", item.Timestamp)
	}
	if item.Result.RiskScore != 90 {
		t.Fatalf("unexpected result %+v", item.Result)
	}
	if other := NewItem(o, result); other.ID == item.ID {
		t.Fatal("expected unique ids")
	}
}

func TestNopStore(t *testing.T) {
	var store Store = Nop{}
	ctx := context.Background()

	if err := store.Add(ctx, itemAt("a", 1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	items, err := store.List(ctx)
	if err != nil || len(items) != 0 {
		t.Fatalf("expected nothing stored, got %v, %v", items, err)
	}
	if err := store.Delete(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Get(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

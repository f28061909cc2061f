// Package entry holds in-progress data-entry state between the two entry
// steps: first the contest details and participants, then the winner.
// Drafts are explicit values keyed by ID, owned by the HTTP layer.
package entry

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrDraftNotFound is returned for unknown or expired drafts.
	ErrDraftNotFound = errors.New("entry: draft not found")
)

// Draft is a confirmed contest awaiting its winner.
type Draft struct {
	ID           string          `json:"id"`
	Date         time.Time       `json:"date"`
	Track        string          `json:"track"`
	Participants []string        `json:"participants"`
	BetAmount    decimal.Decimal `json:"bet_amount"`
	CreatedAt    time.Time       `json:"created_at"`
	ExpiresAt    time.Time       `json:"expires_at"`
}

// Book stores drafts in memory with a fixed lifetime.
type Book struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	drafts map[string]Draft
}

// NewBook creates a draft book whose drafts expire after ttl.
func NewBook(ttl time.Duration) *Book {
	return &Book{
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
		drafts: make(map[string]Draft),
	}
}

// Open stores a new draft and returns it with its ID and expiry set.
func (b *Book) Open(d Draft) Draft {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pruneLocked()

	now := b.now()
	d.ID = uuid.New().String()
	d.Participants = append([]string(nil), d.Participants...)
	d.CreatedAt = now
	d.ExpiresAt = now.Add(b.ttl)
	b.drafts[d.ID] = d
	return d
}

// Get returns a live draft.
func (b *Book) Get(id string) (Draft, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	d, ok := b.drafts[id]
	if !ok || !b.now().Before(d.ExpiresAt) {
		return Draft{}, ErrDraftNotFound
	}
	return d, nil
}

// Take removes and returns a live draft. A draft can be taken once.
func (b *Book) Take(id string) (Draft, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	d, ok := b.drafts[id]
	delete(b.drafts, id)
	if !ok || !b.now().Before(d.ExpiresAt) {
		return Draft{}, ErrDraftNotFound
	}
	return d, nil
}

// Restore puts a taken draft back, e.g. when saving its contest failed.
func (b *Book) Restore(d Draft) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drafts[d.ID] = d
}

// Len returns the number of stored drafts, expired ones included.
func (b *Book) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.drafts)
}

func (b *Book) pruneLocked() {
	now := b.now()
	for id, d := range b.drafts {
		if !now.Before(d.ExpiresAt) {
			delete(b.drafts, id)
		}
	}
}

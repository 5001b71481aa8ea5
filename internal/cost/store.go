package cost

import "context"

// Opener opens, creating on first use, the named and versioned record store.
// Repeated calls return the same handle. Failures are StoreUnavailable errors.
type Opener interface {
	Open(ctx context.Context) (Store, error)
}

// Store is durable CRUD over the costs collection.
//
// Every call is its own transaction and returns once the store has confirmed
// it. Calls made concurrently from different goroutines carry no ordering
// guarantee relative to each other; a caller that needs one operation to land
// before another must wait for the first to return.
//
// The store performs no business checks: negative sums and unknown categories
// are persisted as given.
type Store interface {
	// Insert persists a draft and returns the ID the store assigned. Any ID on the draft is ignored.
	Insert(ctx context.Context, c Cost) (int64, error)
	// ListAll returns every record in store order (ascending ID).
	ListAll(ctx context.Context) ([]Cost, error)
	// Update replaces the record with c.ID. A missing key is a write error.
	Update(ctx context.Context, c Cost) error
	// DeleteByKey removes one record. A missing key is a write error.
	DeleteByKey(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
	Close() error
}

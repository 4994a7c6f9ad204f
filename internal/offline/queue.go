package offline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MutationKind tags a queued write operation.
type MutationKind string

const (
	KindCreateSupplier    MutationKind = "create_supplier"
	KindCreateTransaction MutationKind = "create_transaction"
	KindDeleteTransaction MutationKind = "delete_transaction"
	KindCreateUser        MutationKind = "create_user"
	KindDeleteUser        MutationKind = "delete_user"
	KindSaveSettings      MutationKind = "save_settings"
)

// SupplierPayload carries the fields needed to replay a supplier create.
type SupplierPayload struct {
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// TransactionPayload carries the fields needed to replay a transaction create.
type TransactionPayload struct {
	SupplierID      int64           `json:"supplier_id"`
	Type            string          `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Date            string          `json:"date"`
	ReferenceNumber string          `json:"reference_number,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedBy       string          `json:"created_by,omitempty"`
}

// UserPayload carries the fields needed to replay a user create.
type UserPayload struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// SettingsPayload carries a full settings upsert.
type SettingsPayload struct {
	CompanyName       string `json:"company_name"`
	LogoURL           string `json:"logo_url,omitempty"`
	AdminPasswordHash string `json:"admin_password_hash,omitempty"`
}

// Mutation is one entry of the durable queue: a tagged variant carrying
// exactly the payload its kind needs. Creates also carry the provisional
// negative id they produced locally so the record can be correlated later.
type Mutation struct {
	ID            string              `json:"id"`
	Kind          MutationKind        `json:"kind"`
	ProvisionalID int64               `json:"provisional_id,omitempty"`
	TargetID      int64               `json:"target_id,omitempty"`
	Supplier      *SupplierPayload    `json:"supplier,omitempty"`
	Transaction   *TransactionPayload `json:"transaction,omitempty"`
	User          *UserPayload        `json:"user,omitempty"`
	Settings      *SettingsPayload    `json:"settings,omitempty"`
	EnqueuedAt    time.Time           `json:"enqueued_at"`
}

// DeadMutation is a queue entry retired after a permanent remote rejection.
type DeadMutation struct {
	Mutation
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}

// permanenter is implemented by errors that will never succeed on retry
// (constraint violations and the like, as opposed to network trouble).
type permanenter interface {
	PermanentFailure() bool
}

// IsPermanent reports whether err marks a mutation as unfixable by retrying.
func IsPermanent(err error) bool {
	var p permanenter
	return errors.As(err, &p) && p.PermanentFailure()
}

// Queue is the durable, append-only mutation log. Entries are applied
// strictly in enqueue order during a drain; entries that fail transiently
// keep their relative order and stay queued for the next pass.
//
// The queue is persisted once per drain, not per entry, so a crash mid-drain
// may replay inserts that already succeeded. The remote apply is not
// idempotent for inserts; this is a known, accepted risk at this scale.
type Queue struct {
	mu     sync.Mutex
	store  Store
	logger *slog.Logger
}

// NewQueue builds a Queue persisted in the given store.
func NewQueue(store Store, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{store: store, logger: logger}
}

// NewMutation stamps a mutation with an id and enqueue time.
func NewMutation(kind MutationKind) Mutation {
	return Mutation{ID: uuid.NewString(), Kind: kind, EnqueuedAt: time.Now().UTC()}
}

// Enqueue appends m to the durable queue.
func (q *Queue) Enqueue(ctx context.Context, m Mutation) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	pending := LoadJSON[Mutation](ctx, q.store, KeySyncQueue)
	pending = append(pending, m)
	return SaveJSON(ctx, q.store, KeySyncQueue, pending)
}

// Pending returns the queued mutations in enqueue order.
func (q *Queue) Pending(ctx context.Context) []Mutation {
	q.mu.Lock()
	defer q.mu.Unlock()
	return LoadJSON[Mutation](ctx, q.store, KeySyncQueue)
}

// Len reports the number of queued mutations.
func (q *Queue) Len(ctx context.Context) int {
	return len(q.Pending(ctx))
}

// Drain applies every queued mutation in order and returns the number that
// succeeded plus the number retired to the dead-letter collection. Transient
// failures stay queued. The pass is best-effort per entry, not
// all-or-nothing: a failure does not stop later entries from being applied.
func (q *Queue) Drain(ctx context.Context, apply func(context.Context, Mutation) error) (int, int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending := LoadJSON[Mutation](ctx, q.store, KeySyncQueue)
	if len(pending) == 0 {
		return 0, 0, nil
	}

	var (
		synced    int
		remaining []Mutation
		dead      []DeadMutation
	)
	for _, m := range pending {
		err := apply(ctx, m)
		if err == nil {
			synced++
			continue
		}
		if IsPermanent(err) {
			q.logger.Warn("offline: mutation dead-lettered",
				slog.String("mutation", m.ID),
				slog.String("kind", string(m.Kind)),
				slog.Any("error", err))
			dead = append(dead, DeadMutation{Mutation: m, Reason: err.Error(), FailedAt: time.Now().UTC()})
			continue
		}
		q.logger.Warn("offline: mutation kept for retry",
			slog.String("mutation", m.ID),
			slog.String("kind", string(m.Kind)),
			slog.Any("error", err))
		remaining = append(remaining, m)
	}

	if len(dead) > 0 {
		letters := LoadJSON[DeadMutation](ctx, q.store, KeyDeadLetter)
		letters = append(letters, dead...)
		if err := SaveJSON(ctx, q.store, KeyDeadLetter, letters); err != nil {
			q.logger.Error("offline: persist dead letters", slog.Any("error", err))
		}
	}
	if err := SaveJSON(ctx, q.store, KeySyncQueue, remaining); err != nil {
		return synced, len(dead), err
	}
	return synced, len(dead), nil
}

// DeadLetters returns mutations retired after permanent failures.
func (q *Queue) DeadLetters(ctx context.Context) []DeadMutation {
	q.mu.Lock()
	defer q.mu.Unlock()
	return LoadJSON[DeadMutation](ctx, q.store, KeyDeadLetter)
}

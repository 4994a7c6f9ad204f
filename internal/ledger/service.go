package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/daftar-ledger/daftar/internal/observability"
	"github.com/daftar-ledger/daftar/internal/offline"
)

var (
	ErrNameRequired        = errors.New("name is required")
	ErrSupplierRequired    = errors.New("supplier is required")
	ErrInvalidType         = errors.New("invalid transaction type")
	ErrNegativeAmount      = errors.New("amount must not be negative")
	ErrProvisionalSupplier = errors.New("supplier is not synced yet; sync before recording transactions against it")
	ErrRemoteUnconfigured  = errors.New("remote store is not configured")
	ErrOfflineReset        = errors.New("cannot reset data while offline")
)

// Display name used when a queued transaction references a supplier missing
// from the cached snapshot.
const unknownSupplierName = "local supplier"

// Fallback admin password honoured until one has been saved.
const defaultAdminPassword = "1234"

// RemoteStore is the capability set consumed from the remote relational
// store. Implementations fail with diagnostic errors on network or
// constraint trouble; they never fall back to local state themselves.
type RemoteStore interface {
	ListSuppliers(ctx context.Context) ([]Supplier, error)
	InsertSupplier(ctx context.Context, name, phone string) (Supplier, error)

	ListTransactions(ctx context.Context) ([]Transaction, error)
	InsertTransaction(ctx context.Context, input CreateTransactionInput) (Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error

	ListUsers(ctx context.Context) ([]User, error)
	InsertUser(ctx context.Context, name, code string) (User, error)
	DeleteUser(ctx context.Context, id int64) error

	GetSettings(ctx context.Context) (AppSettings, error)
	UpsertSettings(ctx context.Context, settings AppSettings) error

	Reset(ctx context.Context) error
}

// CreateTransactionInput carries the caller-supplied fields of a new
// transaction.
type CreateTransactionInput struct {
	SupplierID      int64
	Type            TransactionType
	Amount          decimal.Decimal
	Date            string
	ReferenceNumber string
	Notes           string
	CreatedBy       string
}

// Service is the single entry point the presentation layer uses for every
// entity operation. It chooses remote-or-local per call based on
// connectivity, applies optimistic local updates, and merges cached
// snapshots with queued-but-unsynced records for display.
//
// All local store and queue access is serialized behind one mutex; the
// engine assumed single-task execution in its original home and must keep
// behaving as if it does.
type Service struct {
	mu      sync.Mutex
	remote  RemoteStore // nil when the remote store is unconfigured
	store   offline.Store
	queue   *offline.Queue
	monitor *offline.Monitor
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewService wires the facade. remote may be nil for an offline-only
// deployment; metrics may be nil.
func NewService(remote RemoteStore, store offline.Store, queue *offline.Queue, monitor *offline.Monitor, logger *slog.Logger, metrics *observability.Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		remote:  remote,
		store:   store,
		queue:   queue,
		monitor: monitor,
		logger:  logger,
		metrics: metrics,
	}
}

// Monitor exposes the connectivity monitor for runtime wiring.
func (s *Service) Monitor() *offline.Monitor { return s.monitor }

// SetConnectivity records the host connectivity signal.
func (s *Service) SetConnectivity(online bool) { s.monitor.SetOnline(online) }

// Online reports whether calls are currently routed to the remote store.
func (s *Service) Online() bool { return s.remote != nil && s.monitor.Online() }

// PendingMutations reports how many offline writes still await sync.
func (s *Service) PendingMutations(ctx context.Context) int { return s.queue.Len(ctx) }

// --- Suppliers ---

// FetchSuppliers returns the supplier list: remote when online (replacing
// the cached snapshot), last snapshot otherwise.
func (s *Service) FetchSuppliers(ctx context.Context) ([]Supplier, error) {
	if s.Online() {
		rows, err := s.remote.ListSuppliers(ctx)
		if err == nil {
			s.saveSnapshot(ctx, offline.KeySuppliers, rows)
			return rows, nil
		}
		s.logger.Warn("fetch suppliers falling back to cache", slog.Any("error", err))
	}
	return s.cachedSuppliers(ctx), nil
}

// CreateSupplier inserts a supplier remotely when online; offline it mints a
// provisional record, appends it to the snapshot, and queues the create.
func (s *Service) CreateSupplier(ctx context.Context, name, phone string) (Supplier, error) {
	if name == "" {
		return Supplier{}, ErrNameRequired
	}
	if s.Online() {
		return s.remote.InsertSupplier(ctx, name, phone)
	}

	sup := Supplier{
		ID:        NextProvisionalID(),
		Name:      name,
		Phone:     phone,
		CreatedAt: time.Now().UTC(),
	}
	m := offline.NewMutation(offline.KindCreateSupplier)
	m.ProvisionalID = sup.ID
	m.Supplier = &offline.SupplierPayload{Name: name, Phone: phone}
	if err := s.queue.Enqueue(ctx, m); err != nil {
		return Supplier{}, fmt.Errorf("queue supplier create: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cached := offline.LoadJSON[Supplier](ctx, s.store, offline.KeySuppliers)
	cached = append(cached, sup)
	if err := offline.SaveJSON(ctx, s.store, offline.KeySuppliers, cached); err != nil {
		s.logger.Warn("cache supplier create", slog.Any("error", err))
	}
	s.observeQueue(ctx)
	return sup, nil
}

// --- Transactions ---

// FetchTransactions returns the transaction list, newest date first. When
// served from cache the result is the union of the last server snapshot and
// records reconstructed from still-queued creates, so optimistic writes stay
// visible across a reload while offline.
func (s *Service) FetchTransactions(ctx context.Context) ([]Transaction, error) {
	if s.Online() {
		rows, err := s.remote.ListTransactions(ctx)
		if err == nil {
			s.saveSnapshot(ctx, offline.KeyTransactions, rows)
			return rows, nil
		}
		s.logger.Warn("fetch transactions falling back to cache", slog.Any("error", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cached := offline.LoadJSON[Transaction](ctx, s.store, offline.KeyTransactions)
	merged := append(s.queuedTransactionsLocked(ctx), cached...)
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Date > merged[j].Date })
	return merged, nil
}

// queuedTransactionsLocked rebuilds display records for queued transaction
// creates. Caller holds s.mu.
func (s *Service) queuedTransactionsLocked(ctx context.Context) []Transaction {
	suppliers := offline.LoadJSON[Supplier](ctx, s.store, offline.KeySuppliers)
	names := make(map[int64]string, len(suppliers))
	for _, sup := range suppliers {
		names[sup.ID] = sup.Name
	}

	var out []Transaction
	for _, m := range s.queue.Pending(ctx) {
		if m.Kind != offline.KindCreateTransaction || m.Transaction == nil {
			continue
		}
		name, ok := names[m.Transaction.SupplierID]
		if !ok {
			name = unknownSupplierName
		}
		out = append(out, Transaction{
			ID:              m.ProvisionalID,
			SupplierID:      m.Transaction.SupplierID,
			SupplierName:    name,
			Type:            TransactionType(m.Transaction.Type),
			Amount:          m.Transaction.Amount,
			Date:            m.Transaction.Date,
			ReferenceNumber: m.Transaction.ReferenceNumber,
			Notes:           m.Transaction.Notes,
			CreatedBy:       m.Transaction.CreatedBy,
			CreatedAt:       m.EnqueuedAt,
		})
	}
	return out
}

// CreateTransaction records a ledger entry. Online inserts go straight to
// the remote store and return the server-assigned record; offline the entry
// is synthesized under a provisional id and queued for replay. Offline
// entries may not reference a supplier that is itself still provisional:
// the sync engine does not rewrite provisional foreign keys.
func (s *Service) CreateTransaction(ctx context.Context, input CreateTransactionInput) (Transaction, error) {
	if input.SupplierID == 0 {
		return Transaction{}, ErrSupplierRequired
	}
	if !input.Type.Valid() {
		return Transaction{}, ErrInvalidType
	}
	if input.Amount.IsNegative() {
		return Transaction{}, ErrNegativeAmount
	}
	if input.Date == "" {
		input.Date = time.Now().UTC().Format(DateLayout)
	}

	if s.Online() {
		return s.remote.InsertTransaction(ctx, input)
	}

	if IsProvisionalID(input.SupplierID) {
		return Transaction{}, ErrProvisionalSupplier
	}
	id := NextProvisionalID()
	m := offline.NewMutation(offline.KindCreateTransaction)
	m.ProvisionalID = id
	m.Transaction = &offline.TransactionPayload{
		SupplierID:      input.SupplierID,
		Type:            string(input.Type),
		Amount:          input.Amount,
		Date:            input.Date,
		ReferenceNumber: input.ReferenceNumber,
		Notes:           input.Notes,
		CreatedBy:       input.CreatedBy,
	}
	if err := s.queue.Enqueue(ctx, m); err != nil {
		return Transaction{}, fmt.Errorf("queue transaction create: %w", err)
	}
	s.observeQueue(ctx)
	return Transaction{
		ID:              id,
		SupplierID:      input.SupplierID,
		Type:            input.Type,
		Amount:          input.Amount,
		Date:            input.Date,
		ReferenceNumber: input.ReferenceNumber,
		Notes:           input.Notes,
		CreatedBy:       input.CreatedBy,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// DeleteTransaction removes a ledger entry. Online deletes propagate remote
// errors; offline the entry leaves the visible cache immediately and a
// delete is queued. Deleting a still-provisional entry queues a delete too;
// the sync engine later no-ops it since nothing remote exists.
func (s *Service) DeleteTransaction(ctx context.Context, id int64) error {
	if s.Online() {
		return s.remote.DeleteTransaction(ctx, id)
	}

	m := offline.NewMutation(offline.KindDeleteTransaction)
	m.TargetID = id
	if err := s.queue.Enqueue(ctx, m); err != nil {
		return fmt.Errorf("queue transaction delete: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cached := offline.LoadJSON[Transaction](ctx, s.store, offline.KeyTransactions)
	kept := cached[:0]
	for _, t := range cached {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	if err := offline.SaveJSON(ctx, s.store, offline.KeyTransactions, kept); err != nil {
		s.logger.Warn("cache transaction delete", slog.Any("error", err))
	}
	s.observeQueue(ctx)
	return nil
}

// --- Users ---

// FetchUsers returns the staff list, remote-or-cache like FetchSuppliers.
func (s *Service) FetchUsers(ctx context.Context) ([]User, error) {
	if s.Online() {
		rows, err := s.remote.ListUsers(ctx)
		if err == nil {
			s.saveSnapshot(ctx, offline.KeyUsers, rows)
			return rows, nil
		}
		s.logger.Warn("fetch users falling back to cache", slog.Any("error", err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return offline.LoadJSON[User](ctx, s.store, offline.KeyUsers), nil
}

// CreateUser registers a staff operator, optimistically when offline.
func (s *Service) CreateUser(ctx context.Context, name, code string) (User, error) {
	if name == "" {
		return User{}, ErrNameRequired
	}
	if s.Online() {
		return s.remote.InsertUser(ctx, name, code)
	}

	user := User{
		ID:        NextProvisionalID(),
		Name:      name,
		Code:      code,
		CreatedAt: time.Now().UTC(),
	}
	m := offline.NewMutation(offline.KindCreateUser)
	m.ProvisionalID = user.ID
	m.User = &offline.UserPayload{Name: name, Code: code}
	if err := s.queue.Enqueue(ctx, m); err != nil {
		return User{}, fmt.Errorf("queue user create: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cached := offline.LoadJSON[User](ctx, s.store, offline.KeyUsers)
	cached = append(cached, user)
	if err := offline.SaveJSON(ctx, s.store, offline.KeyUsers, cached); err != nil {
		s.logger.Warn("cache user create", slog.Any("error", err))
	}
	s.observeQueue(ctx)
	return user, nil
}

// DeleteUser removes a staff operator, queueing the delete when offline.
func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	if s.Online() {
		return s.remote.DeleteUser(ctx, id)
	}

	m := offline.NewMutation(offline.KindDeleteUser)
	m.TargetID = id
	if err := s.queue.Enqueue(ctx, m); err != nil {
		return fmt.Errorf("queue user delete: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cached := offline.LoadJSON[User](ctx, s.store, offline.KeyUsers)
	kept := cached[:0]
	for _, u := range cached {
		if u.ID != id {
			kept = append(kept, u)
		}
	}
	if err := offline.SaveJSON(ctx, s.store, offline.KeyUsers, kept); err != nil {
		s.logger.Warn("cache user delete", slog.Any("error", err))
	}
	s.observeQueue(ctx)
	return nil
}

// --- Settings ---

// FetchSettings returns the settings singleton with three-tier fallback:
// remote, then cache, then the hardcoded default.
func (s *Service) FetchSettings(ctx context.Context) AppSettings {
	if s.Online() {
		settings, err := s.remote.GetSettings(ctx)
		if err == nil {
			s.mu.Lock()
			if err := offline.SaveJSON(ctx, s.store, offline.KeySettings, settings); err != nil {
				s.logger.Warn("cache settings", slog.Any("error", err))
			}
			s.mu.Unlock()
			return settings
		}
		s.logger.Warn("fetch settings falling back to cache", slog.Any("error", err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := offline.LoadJSONValue[AppSettings](ctx, s.store, offline.KeySettings); ok {
		return cached
	}
	return DefaultSettings()
}

// SaveSettings upserts the settings singleton. The cache is written first so
// the UI reflects the change immediately regardless of connectivity. A
// non-empty newPassword replaces the stored admin password hash.
func (s *Service) SaveSettings(ctx context.Context, settings AppSettings, newPassword string) error {
	if newPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}
		settings.AdminPasswordHash = string(hash)
	} else if settings.AdminPasswordHash == "" {
		current, _ := offline.LoadJSONValue[AppSettings](ctx, s.store, offline.KeySettings)
		settings.AdminPasswordHash = current.AdminPasswordHash
		// A cold cache must not clobber a password stored remotely.
		if settings.AdminPasswordHash == "" && s.Online() {
			if stored, err := s.remote.GetSettings(ctx); err == nil {
				settings.AdminPasswordHash = stored.AdminPasswordHash
			}
		}
	}

	s.mu.Lock()
	if err := offline.SaveJSON(ctx, s.store, offline.KeySettings, settings); err != nil {
		s.logger.Warn("cache settings save", slog.Any("error", err))
	}
	s.mu.Unlock()

	if s.Online() {
		return s.remote.UpsertSettings(ctx, settings)
	}
	m := offline.NewMutation(offline.KindSaveSettings)
	m.Settings = &offline.SettingsPayload{
		CompanyName:       settings.CompanyName,
		LogoURL:           settings.LogoURL,
		AdminPasswordHash: settings.AdminPasswordHash,
	}
	if err := s.queue.Enqueue(ctx, m); err != nil {
		return fmt.Errorf("queue settings save: %w", err)
	}
	s.observeQueue(ctx)
	return nil
}

// VerifyAdminPassword checks a password attempt against the stored hash,
// honouring the factory default until a password has been saved.
func (s *Service) VerifyAdminPassword(ctx context.Context, password string) bool {
	settings := s.FetchSettings(ctx)
	if settings.AdminPasswordHash == "" {
		return password == defaultAdminPassword
	}
	return bcrypt.CompareHashAndPassword([]byte(settings.AdminPasswordHash), []byte(password)) == nil
}

// --- Sync engine ---

// SyncOfflineChanges drains the mutation queue against the remote store in
// enqueue order and returns the number of mutations applied. It is a no-op
// returning zero while offline or without a configured remote. Callers are
// expected to refresh the cached collections afterwards so the UI converges
// on server-authoritative state.
func (s *Service) SyncOfflineChanges(ctx context.Context) (int, error) {
	if !s.Online() {
		return 0, nil
	}
	synced, dead, err := s.queue.Drain(ctx, s.applyMutation)
	if synced > 0 {
		s.logger.Info("offline mutations synced", slog.Int("count", synced))
	}
	if dead > 0 {
		s.logger.Warn("offline mutations dead-lettered", slog.Int("count", dead))
	}
	s.metrics.AddSynced(synced)
	s.metrics.AddDeadLettered(dead)
	s.observeQueue(ctx)
	return synced, err
}

func (s *Service) applyMutation(ctx context.Context, m offline.Mutation) error {
	switch m.Kind {
	case offline.KindCreateSupplier:
		if m.Supplier == nil {
			return nil
		}
		_, err := s.remote.InsertSupplier(ctx, m.Supplier.Name, m.Supplier.Phone)
		return err
	case offline.KindCreateTransaction:
		if m.Transaction == nil {
			return nil
		}
		_, err := s.remote.InsertTransaction(ctx, CreateTransactionInput{
			SupplierID:      m.Transaction.SupplierID,
			Type:            TransactionType(m.Transaction.Type),
			Amount:          m.Transaction.Amount,
			Date:            m.Transaction.Date,
			ReferenceNumber: m.Transaction.ReferenceNumber,
			Notes:           m.Transaction.Notes,
			CreatedBy:       m.Transaction.CreatedBy,
		})
		return err
	case offline.KindDeleteTransaction:
		if IsProvisionalID(m.TargetID) {
			return nil // never reached the remote store; nothing to delete
		}
		return s.remote.DeleteTransaction(ctx, m.TargetID)
	case offline.KindCreateUser:
		if m.User == nil {
			return nil
		}
		_, err := s.remote.InsertUser(ctx, m.User.Name, m.User.Code)
		return err
	case offline.KindDeleteUser:
		if IsProvisionalID(m.TargetID) {
			return nil
		}
		return s.remote.DeleteUser(ctx, m.TargetID)
	case offline.KindSaveSettings:
		if m.Settings == nil {
			return nil
		}
		return s.remote.UpsertSettings(ctx, AppSettings{
			CompanyName:       m.Settings.CompanyName,
			LogoURL:           m.Settings.LogoURL,
			AdminPasswordHash: m.Settings.AdminPasswordHash,
		})
	default:
		s.logger.Warn("unknown mutation kind skipped", slog.String("kind", string(m.Kind)))
		return nil
	}
}

// RefreshAll re-fetches every collection so snapshots converge on
// server-authoritative state after a sync (including discarding provisional
// ids for records created offline).
func (s *Service) RefreshAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { _, err := s.FetchSuppliers(ctx); return err })
	g.Go(func() error { _, err := s.FetchTransactions(ctx); return err })
	g.Go(func() error { _, err := s.FetchUsers(ctx); return err })
	g.Go(func() error { s.FetchSettings(ctx); return nil })
	return g.Wait()
}

// --- Aggregation views ---

// SupplierSummaries derives the per-supplier balance list from the current
// supplier and transaction views.
func (s *Service) SupplierSummaries(ctx context.Context) ([]SupplierSummary, error) {
	suppliers, err := s.FetchSuppliers(ctx)
	if err != nil {
		return nil, err
	}
	transactions, err := s.FetchTransactions(ctx)
	if err != nil {
		return nil, err
	}
	return SummarizeAll(suppliers, transactions), nil
}

// SupplierStatement builds the statement for one supplier over a period.
func (s *Service) SupplierStatement(ctx context.Context, supplierID int64, from, to string, filter StatementFilter) (Statement, error) {
	transactions, err := s.FetchTransactions(ctx)
	if err != nil {
		return Statement{}, err
	}
	var own []Transaction
	for _, t := range transactions {
		if t.SupplierID == supplierID {
			own = append(own, t)
		}
	}
	return BuildStatement(own, from, to, filter), nil
}

// --- Destructive reset ---

// DeleteAllData wipes transactions and suppliers remotely and clears the
// matching local state. It is never queued: the operation is irreversible
// and requires connectivity as a precondition.
func (s *Service) DeleteAllData(ctx context.Context) error {
	if s.remote == nil {
		return ErrRemoteUnconfigured
	}
	if !s.monitor.Online() {
		return ErrOfflineReset
	}
	if err := s.remote.Reset(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Del(ctx, offline.KeySuppliers, offline.KeyTransactions, offline.KeySyncQueue); err != nil {
		s.logger.Warn("clear local caches after reset", slog.Any("error", err))
	}
	s.observeQueue(ctx)
	return nil
}

// --- helpers ---

func (s *Service) saveSnapshot(ctx context.Context, key string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := offline.SaveJSON(ctx, s.store, key, v); err != nil {
		s.logger.Warn("persist snapshot", slog.String("key", key), slog.Any("error", err))
	}
}

func (s *Service) cachedSuppliers(ctx context.Context) []Supplier {
	s.mu.Lock()
	defer s.mu.Unlock()
	return offline.LoadJSON[Supplier](ctx, s.store, offline.KeySuppliers)
}

func (s *Service) observeQueue(ctx context.Context) {
	s.metrics.SetQueueDepth(s.queue.Len(ctx))
}

package remote

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/daftar-ledger/daftar/internal/ledger"
	"github.com/daftar-ledger/daftar/internal/platform/db"
)

// settingsRowID keys the single app_settings row.
const settingsRowID = 1

// PostgresStore implements ledger.RemoteStore over a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ ledger.RemoteStore = (*PostgresStore)(nil)

// NewPostgresStore wraps a connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) ListSuppliers(ctx context.Context) ([]ledger.Supplier, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, COALESCE(phone, ''), created_at FROM suppliers ORDER BY name`)
	if err != nil {
		return nil, wrap("list suppliers", err)
	}
	defer rows.Close()

	var out []ledger.Supplier
	for rows.Next() {
		var sup ledger.Supplier
		if err := rows.Scan(&sup.ID, &sup.Name, &sup.Phone, &sup.CreatedAt); err != nil {
			return nil, wrap("scan supplier", err)
		}
		out = append(out, sup)
	}
	return out, wrap("list suppliers", rows.Err())
}

func (s *PostgresStore) InsertSupplier(ctx context.Context, name, phone string) (ledger.Supplier, error) {
	var sup ledger.Supplier
	err := s.pool.QueryRow(ctx,
		`INSERT INTO suppliers (name, phone) VALUES ($1, NULLIF($2, ''))
		 RETURNING id, name, COALESCE(phone, ''), created_at`,
		name, phone,
	).Scan(&sup.ID, &sup.Name, &sup.Phone, &sup.CreatedAt)
	if err != nil {
		return ledger.Supplier{}, wrap("insert supplier", err)
	}
	return sup, nil
}

func (s *PostgresStore) ListTransactions(ctx context.Context) ([]ledger.Transaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT t.id, t.supplier_id, COALESCE(s.name, ''), t.type, t.amount::text,
		        to_char(t.date, 'YYYY-MM-DD'),
		        COALESCE(t.reference_number, ''), COALESCE(t.notes, ''),
		        COALESCE(t.created_by, ''), t.created_at
		   FROM transactions t
		   LEFT JOIN suppliers s ON s.id = t.supplier_id
		  ORDER BY t.date DESC, t.id DESC`)
	if err != nil {
		return nil, wrap("list transactions", err)
	}
	defer rows.Close()

	var out []ledger.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, wrap("list transactions", rows.Err())
}

func (s *PostgresStore) InsertTransaction(ctx context.Context, input ledger.CreateTransactionInput) (ledger.Transaction, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO transactions (supplier_id, type, amount, date, reference_number, notes, created_by)
		 VALUES ($1, $2, $3::numeric, $4::date, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''))
		 RETURNING id, supplier_id,
		           COALESCE((SELECT name FROM suppliers WHERE id = supplier_id), ''),
		           type, amount::text, to_char(date, 'YYYY-MM-DD'),
		           COALESCE(reference_number, ''), COALESCE(notes, ''),
		           COALESCE(created_by, ''), created_at`,
		input.SupplierID, string(input.Type), input.Amount.String(), input.Date,
		input.ReferenceNumber, input.Notes, input.CreatedBy)
	tx, err := scanTransaction(row)
	if err != nil {
		return ledger.Transaction{}, wrap("insert transaction", err)
	}
	return tx, nil
}

func (s *PostgresStore) DeleteTransaction(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	return wrap("delete transaction", err)
}

func (s *PostgresStore) ListUsers(ctx context.Context) ([]ledger.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, code, created_at FROM users ORDER BY name`)
	if err != nil {
		return nil, wrap("list users", err)
	}
	defer rows.Close()

	var out []ledger.User
	for rows.Next() {
		var u ledger.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Code, &u.CreatedAt); err != nil {
			return nil, wrap("scan user", err)
		}
		out = append(out, u)
	}
	return out, wrap("list users", rows.Err())
}

func (s *PostgresStore) InsertUser(ctx context.Context, name, code string) (ledger.User, error) {
	var u ledger.User
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (name, code) VALUES ($1, $2)
		 RETURNING id, name, code, created_at`,
		name, code,
	).Scan(&u.ID, &u.Name, &u.Code, &u.CreatedAt)
	if err != nil {
		return ledger.User{}, wrap("insert user", err)
	}
	return u, nil
}

func (s *PostgresStore) DeleteUser(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return wrap("delete user", err)
}

func (s *PostgresStore) GetSettings(ctx context.Context) (ledger.AppSettings, error) {
	var settings ledger.AppSettings
	err := s.pool.QueryRow(ctx,
		`SELECT company_name, COALESCE(logo_url, ''), COALESCE(admin_password, '')
		   FROM app_settings WHERE id = $1`, settingsRowID,
	).Scan(&settings.CompanyName, &settings.LogoURL, &settings.AdminPasswordHash)
	if err != nil {
		return ledger.AppSettings{}, wrap("get settings", err)
	}
	return settings, nil
}

func (s *PostgresStore) UpsertSettings(ctx context.Context, settings ledger.AppSettings) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO app_settings (id, company_name, logo_url, admin_password, updated_at)
		 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), now())
		 ON CONFLICT (id) DO UPDATE
		    SET company_name = EXCLUDED.company_name,
		        logo_url = EXCLUDED.logo_url,
		        admin_password = EXCLUDED.admin_password,
		        updated_at = now()`,
		settingsRowID, settings.CompanyName, settings.LogoURL, settings.AdminPasswordHash)
	return wrap("upsert settings", err)
}

// Reset wipes transactions and suppliers in one transaction. Users and
// settings survive a reset, matching the destructive-reset scope of the
// application.
func (s *PostgresStore) Reset(ctx context.Context) error {
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM transactions WHERE id > 0`); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM suppliers WHERE id > 0`)
		return err
	})
	return wrap("reset", err)
}

func scanTransaction(row pgx.Row) (ledger.Transaction, error) {
	var (
		tx     ledger.Transaction
		typ    string
		amount string
		at     time.Time
	)
	if err := row.Scan(&tx.ID, &tx.SupplierID, &tx.SupplierName, &typ, &amount,
		&tx.Date, &tx.ReferenceNumber, &tx.Notes, &tx.CreatedBy, &at); err != nil {
		return ledger.Transaction{}, wrap("scan transaction", err)
	}
	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return ledger.Transaction{}, wrap("parse amount", err)
	}
	tx.Type = ledger.TransactionType(typ)
	tx.Amount = dec
	tx.CreatedAt = at
	return tx, nil
}

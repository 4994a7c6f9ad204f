// Command seed loads a small demo dataset into the remote store.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/daftar-ledger/daftar/internal/app"
	"github.com/daftar-ledger/daftar/internal/ledger"
	"github.com/daftar-ledger/daftar/internal/platform/db"
	"github.com/daftar-ledger/daftar/internal/remote"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := app.LoadConfig()
	if err != nil {
		logger.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.PGDSN == "" {
		logger.Error("PG_DSN must be set to seed")
		os.Exit(1)
	}

	if err := db.Migrate(cfg.PGDSN); err != nil {
		logger.Error("migrate", slog.Any("error", err))
		os.Exit(1)
	}
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	store := remote.NewPostgresStore(pool)

	hash, err := bcrypt.GenerateFromPassword([]byte("1234"), bcrypt.DefaultCost)
	if err != nil {
		logger.Error("hash password", slog.Any("error", err))
		os.Exit(1)
	}
	if err := store.UpsertSettings(ctx, ledger.AppSettings{
		CompanyName:       "Daftar Demo Trading",
		AdminPasswordHash: string(hash),
	}); err != nil {
		logger.Error("seed settings", slog.Any("error", err))
		os.Exit(1)
	}

	suppliers := []struct {
		name  string
		phone string
	}{
		{"Al Noor Foods", "0501112233"},
		{"Eastern Packaging", "0559876543"},
		{"Madina Produce", ""},
	}
	type txSeed struct {
		typ    ledger.TransactionType
		amount string
		date   string
		ref    string
	}
	txPlan := map[string][]txSeed{
		"Al Noor Foods": {
			{ledger.TypeInvoice, "1500.00", "2026-08-01", "INV-1001"},
			{ledger.TypePayment, "600.00", "2026-08-10", "PAY-2001"},
			{ledger.TypeReturn, "100.00", "2026-08-12", ""},
		},
		"Eastern Packaging": {
			{ledger.TypeInvoice, "840.50", "2026-08-05", "INV-1002"},
		},
	}

	for _, s := range suppliers {
		sup, err := store.InsertSupplier(ctx, s.name, s.phone)
		if err != nil {
			logger.Error("seed supplier", slog.String("name", s.name), slog.Any("error", err))
			os.Exit(1)
		}
		for _, t := range txPlan[s.name] {
			amount, err := decimal.NewFromString(t.amount)
			if err != nil {
				logger.Error("parse amount", slog.Any("error", err))
				os.Exit(1)
			}
			if _, err := store.InsertTransaction(ctx, ledger.CreateTransactionInput{
				SupplierID:      sup.ID,
				Type:            t.typ,
				Amount:          amount,
				Date:            t.date,
				ReferenceNumber: t.ref,
				CreatedBy:       "seed",
			}); err != nil {
				logger.Error("seed transaction", slog.Any("error", err))
				os.Exit(1)
			}
		}
	}

	for _, u := range []struct{ name, code string }{
		{"Owner", "0001"},
		{"Cashier", "0002"},
	} {
		if _, err := store.InsertUser(ctx, u.name, u.code); err != nil {
			logger.Error("seed user", slog.String("name", u.name), slog.Any("error", err))
			os.Exit(1)
		}
	}

	logger.Info("seed complete")
}

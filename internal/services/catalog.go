package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/storage"
)

// CatalogService manages accounts and tags.
type CatalogService struct {
	store storage.Store
}

func (s *CatalogService) CreateAccount(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("create account: %w: empty name", core.ErrInvalidInput)
	}

	var id int64
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		id, err = tx.InsertAccount(ctx, name)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("create account: %w", err)
	}

	slog.InfoContext(ctx, "Account created", applog.FieldAccountID, id, "name", name)
	return id, nil
}

func (s *CatalogService) CreateTag(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("create tag: %w: empty name", core.ErrInvalidInput)
	}

	var id int64
	err := s.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		id, err = tx.InsertTag(ctx, name)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("create tag: %w", err)
	}

	slog.InfoContext(ctx, "Tag created", applog.FieldTagID, id, "name", name)
	return id, nil
}

func (s *CatalogService) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	return s.store.GetAccount(ctx, id)
}

func (s *CatalogService) GetTag(ctx context.Context, id int64) (core.Tag, error) {
	return s.store.GetTag(ctx, id)
}

func (s *CatalogService) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return s.store.ListAccounts(ctx)
}

func (s *CatalogService) ListTags(ctx context.Context) ([]core.Tag, error) {
	return s.store.ListTags(ctx)
}

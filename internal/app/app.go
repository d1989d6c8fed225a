// Package app assembles the ledger store, intent parser, audit log and
// submit service from configuration. Both binaries start here.
package app

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"

	"github.com/Yuan922/MoneyMemoAI/internal/config"
	"github.com/Yuan922/MoneyMemoAI/internal/domain"
	infraBQ "github.com/Yuan922/MoneyMemoAI/internal/infra/bigquery"
	"github.com/Yuan922/MoneyMemoAI/internal/ledger"
	"github.com/Yuan922/MoneyMemoAI/internal/notionsync"
	"github.com/Yuan922/MoneyMemoAI/internal/pipeline"
)

// Store is a ledger store that can also write dated backups.
type Store interface {
	ledger.Store
	ledger.Backupper
}

// App holds the long-lived dependencies of a process.
type App struct {
	Config *config.Config
	Log    zerolog.Logger
	Vocab  domain.Vocabulary
	Store  Store
	Audit  *infraBQ.AuditLog // nil when audit.project is unset

	closers []func() error
}

// New opens the configured store and, if configured, the audit log.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Log:    log,
		Vocab:  domain.NewVocabulary(cfg.Ledger.PaymentMethods),
	}

	switch cfg.Storage.Backend {
	case config.BackendGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		a.Store = ledger.NewGCSStore(client, cfg.Storage.GCSBucket, cfg.Storage.GCSPrefix)
	default:
		a.Store = ledger.NewFileStore(cfg.Storage.DataDir)
	}

	if cfg.Audit.Project != "" {
		audit, err := infraBQ.NewAuditLog(ctx, cfg.Audit.Project, cfg.Audit.Dataset)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("failed to create audit log: %w", err)
		}
		a.Audit = audit
		a.closers = append(a.closers, audit.Close)
	}

	log.Info().
		Str("backend", cfg.Storage.Backend).
		Bool("audit", a.Audit != nil).
		Strs("payment_methods", a.Vocab.PaymentMethodNames()).
		Msg("Application initialized")

	return a, nil
}

// Service builds the submit service backed by Gemini.
func (a *App) Service(ctx context.Context) (*pipeline.Service, error) {
	if a.Config.Gemini.APIKey == "" {
		return nil, errors.New("gemini.api_key (or GEMINI_API_KEY) is required")
	}
	parser, err := pipeline.NewGeminiIntentParser(ctx, a.Config.Gemini.APIKey, a.Config.Gemini.Model, a.Vocab)
	if err != nil {
		return nil, err
	}

	opts := pipeline.Options{
		Vocab:              a.Vocab,
		ExactWhenAmbiguous: a.Config.Ledger.ExactWhenAmbiguous,
		Timeout:            a.Config.Gemini.Timeout,
		ModelName:          a.Config.Gemini.Model,
	}
	if a.Audit != nil {
		opts.Audit = a.Audit
	}
	return pipeline.NewService(parser, a.Store, opts), nil
}

// Notion returns a Notion client, or an error if notion.token is unset.
func (a *App) Notion() (notionsync.NotionService, error) {
	if a.Config.Notion.Token == "" {
		return nil, errors.New("notion.token is required")
	}
	return notionsync.NewNotionClient(a.Config.Notion.Token), nil
}

// Close releases clients in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

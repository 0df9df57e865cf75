package commands

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/fleet-ops/internal/config"
	"github.com/jakechorley/fleet-ops/pkg/clients/gmailclient"
	"github.com/jakechorley/fleet-ops/pkg/clients/sheetsclient"
	"github.com/jakechorley/fleet-ops/pkg/core/model"
	"github.com/jakechorley/fleet-ops/pkg/db"
	"github.com/jakechorley/fleet-ops/pkg/utils/clock"
)

// Migrator is implemented by stores that own a schema
type Migrator interface {
	RunMigrations(ctx context.Context) ([]string, error)
}

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg      *config.Config
	Env      string
	Database db.Database
	Clock    clock.Clock
	Logger   *zap.Logger
	Ctx      context.Context

	sheetsClient *sheetsclient.Client
	gmailClient  *gmailclient.Client
}

// Today returns the current UTC day
func (a *AppContext) Today() time.Time {
	return model.Day(a.Clock.Now())
}

// SheetsClient returns the Sheets client, running the OAuth flow on first use
func (a *AppContext) SheetsClient() (*sheetsclient.Client, error) {
	if a.sheetsClient != nil {
		return a.sheetsClient, nil
	}

	a.Logger.Info("Loading OAuth client configuration")
	oauthCfg, err := config.LoadOAuthClientWithEnv(a.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to load OAuth client config: %w", err)
	}

	a.Logger.Info("Initializing sheets client")
	client, err := sheetsclient.NewClient(a.Ctx, oauthCfg, a.Env, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	a.Logger.Debug("Sheets client initialized successfully")

	a.sheetsClient = client
	return client, nil
}

// GmailClient returns the Gmail client. It shares the Sheets client's token source.
func (a *AppContext) GmailClient() (*gmailclient.Client, error) {
	if a.gmailClient != nil {
		return a.gmailClient, nil
	}

	sheets, err := a.SheetsClient()
	if err != nil {
		return nil, err
	}

	a.Logger.Info("Initializing gmail client")
	client, err := gmailclient.NewClient(a.Ctx, sheets.TokenSource(), a.Cfg.GmailSender)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail client: %w", err)
	}
	a.Logger.Debug("Gmail client initialized successfully")

	a.gmailClient = client
	return client, nil
}

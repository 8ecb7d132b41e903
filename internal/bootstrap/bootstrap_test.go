package bootstrap_test

import (
	"bytes"
	"context"
	"testing"

	"companion/internal/bootstrap"
	"companion/internal/platform/config"
)

func TestNewWiresBothBackends(t *testing.T) {
	t.Parallel()
	for _, backend := range []string{config.StateBackendFile, config.StateBackendSQLite} {
		cfg, err := config.New(t.TempDir())
		if err != nil {
			t.Fatalf("config: %v", err)
		}
		cfg.StateBackend = backend
		var logs bytes.Buffer
		app, err := bootstrap.New(cfg, bootstrap.Options{LogOutput: &logs, NotifyOutput: &bytes.Buffer{}})
		if err != nil {
			t.Fatalf("%s: new app: %v", backend, err)
		}
		ctx := context.Background()
		if _, err := app.SessionCLI.Load(ctx); err != nil {
			t.Fatalf("%s: load: %v", backend, err)
		}
		if _, err := app.SessionCLI.StartIntake(ctx); err != nil {
			t.Fatalf("%s: start intake: %v", backend, err)
		}
		if err := app.Close(); err != nil {
			t.Fatalf("%s: close: %v", backend, err)
		}

		reopened, err := bootstrap.New(cfg, bootstrap.Options{LogOutput: &logs})
		if err != nil {
			t.Fatalf("%s: reopen: %v", backend, err)
		}
		status, err := reopened.SessionCLI.Status(ctx)
		if err != nil || status.SessionPhase != "intake" {
			t.Fatalf("%s: expected intake after reopen, got %+v %v", backend, status, err)
		}
		if err := reopened.Close(); err != nil {
			t.Fatalf("%s: close: %v", backend, err)
		}
	}
}

func TestNewRejectsBrokenCatalog(t *testing.T) {
	t.Parallel()
	cfg, err := config.New(t.TempDir())
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.CatalogPath = t.TempDir()
	if _, err := bootstrap.New(cfg, bootstrap.Options{LogOutput: &bytes.Buffer{}}); err == nil {
		t.Fatalf("expected error when the catalog path is a directory")
	}
}

// Command recordctl inspects and maintains record tables from the shell.
package main

import (
	"context"
	"os"

	"github.com/noah-isme/sma-records/internal/app"
	"github.com/noah-isme/sma-records/pkg/config"
	"github.com/noah-isme/sma-records/pkg/logger"
)

func main() {
	if err := newRootCmd(openSession).Execute(); err != nil {
		os.Exit(1)
	}
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	// logs go to stderr; keep them readable next to command output
	cfg.Log.Format = "console"
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, err
	}

	a, err := app.New(ctx, cfg, logr)
	if err != nil {
		_ = logr.Sync()
		return nil, err
	}
	return &session{
		records:   a.Records,
		exportDir: cfg.Records.ExportDir,
		close: func() error {
			err := a.Close()
			_ = logr.Sync()
			return err
		},
	}, nil
}

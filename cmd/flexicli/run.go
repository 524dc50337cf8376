package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/flexicli/flexicli/internal/config"
	"github.com/flexicli/flexicli/internal/memory"
	"github.com/flexicli/flexicli/internal/session"
)

// runRun implements `flexicli run` (spec §6): one turn with --prompt and
// --non-interactive, or the interactive REPL otherwise.
func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return newExitError(3, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger, tel, err := buildLogging(ctx, cfg)
	if err != nil {
		return newExitError(3, fmt.Errorf("failed to initialize logging: %w", err))
	}
	defer tel.Shutdown(context.Background())
	defer logger.Sync()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info(ctx, "received interrupt, shutting down")
		cancel()
	}()

	d, err := initDeps(ctx, cfg, logger.Underlying())
	if err != nil {
		return newExitError(1, err)
	}
	defer d.Close(context.Background())

	mode := modeFromFlag(cfg, flagMode)

	sess, err := d.store.StartSession(ctx, session.Mode(mode))
	if err != nil {
		return newExitError(1, fmt.Errorf("failed to start session: %w", err))
	}
	defer func() {
		status := session.StatusCompleted
		if ctx.Err() != nil {
			status = session.StatusCrashed
		}
		if err := d.store.EndSession(context.Background(), sess.ID, status); err != nil {
			logger.Warn(ctx, "failed to close session record", zap.Error(err))
		}
	}()

	ephemeral := memory.NewEphemeral(20_000, 20_000)

	if flagPrompt != "" {
		answer, err := runOneTurn(ctx, d, sess, ephemeral, mode, flagPrompt)
		if err != nil {
			if ctx.Err() != nil {
				return newExitError(2, err)
			}
			return newExitError(1, err)
		}
		fmt.Println(answer)
		if flagNonInteractive {
			return nil
		}
	} else if flagNonInteractive {
		return newExitError(3, fmt.Errorf("--non-interactive requires --prompt"))
	}

	return runREPL(ctx, d, sess, ephemeral, mode)
}

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if flagConfig != "" {
		cfg, err = config.LoadWithFile(flagConfig)
	} else {
		cfg = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

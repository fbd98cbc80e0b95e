// Package main is the entry point for the walletctl command-line client.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"gitlab.com/yelinaung/wallet/internal/apperr"
	"gitlab.com/yelinaung/wallet/internal/config"
	"gitlab.com/yelinaung/wallet/internal/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Log.Info().Msg("Shutting down...")
		cancel()
	}()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			printUsage(os.Stderr)
		}
		fmt.Fprintln(os.Stderr, "walletctl:", describe(err))
		logger.Log.Debug().Err(err).Msg("Command failed")
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	name, rest := args[0], args[1:]

	switch name {
	case "version":
		fmt.Fprintf(out, "walletctl %s (commit: %s, built: %s)\n", version, commit, date)
		return nil
	case "help", "-h", "--help":
		printUsage(out)
		return nil
	}

	cmd, ok := lookup(name)
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetLevel(cfg.LogLevel)
	if cfg.LogJSON {
		logger.SetJSON()
	}
	if cfg.LogHashSalt != "" {
		if err := logger.InitHashSalt(cfg.LogHashSalt); err != nil {
			return err
		}
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if cmd.needsLogin {
		if err := a.login(ctx); err != nil {
			return err
		}
	}
	return cmd.run(ctx, a, rest, out)
}

// describe turns err into the line shown to the user. Errors without a
// dedicated message keep their own text.
func describe(err error) string {
	if errors.Is(err, errUsage) {
		return err.Error()
	}
	if msg := apperr.Message(apperr.OpGeneric, err); msg != apperr.MsgUnexpected {
		return msg
	}
	return err.Error()
}

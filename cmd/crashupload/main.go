// Command crashupload sends the fatal error reports of a crash log file to
// Sentry and truncates the file.
//
// It is configured through SENTRY_* environment variables, optionally
// loaded from a dotenv file:
//
//	SENTRY_DSN=https://public@o0.ingest.sentry.io/1 SENTRY_CRASH_LOG=/var/log/app/crash.log crashupload
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/crashdesk/sentry-go"
	"github.com/crashdesk/sentry-go/internal/config"
	"github.com/crashdesk/sentry-go/internal/logger"
	sentryzerolog "github.com/crashdesk/sentry-go/zerolog"
)

func main() {
	envFile := flag.String("env-file", ".env", "dotenv file to load before reading the environment")
	crashLog := flag.String("crash-log", "", "crash log file, overrides SENTRY_CRASH_LOG")
	flag.Parse()

	if err := overrideCrashLog(*crashLog); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		stop()
		os.Exit(1)
	}
}

// overrideCrashLog makes a non-empty path win over SENTRY_CRASH_LOG and the
// dotenv file, which never overrides variables that are already set.
func overrideCrashLog(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Setenv(config.EnvPrefix+"CRASH_LOG", path); err != nil {
		return fmt.Errorf("crash-log flag: %w", err)
	}
	return nil
}

func run(ctx context.Context, cfg *config.Config) error {
	client, err := sentry.NewClient(cfg.ClientOptions())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	log, writer, err := newLogger(client, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	defer writer.Close()

	return upload(ctx, client, cfg, log)
}

// newLogger returns the command logger. Entries at error level and above are
// also reported to client, with the lower entries as breadcrumbs.
func newLogger(client *sentry.Client, cfg *config.Config, writers ...io.Writer) (*zerolog.Logger, *sentryzerolog.Writer, error) {
	writer, err := sentryzerolog.NewWithHandler(
		sentry.NewLogHandler(client, sentry.LogHandlerOptions{
			Label:     "crashupload",
			SendLevel: sentry.LogLevelError,
		}),
		sentryzerolog.Options{FlushTimeout: cfg.Timeout},
	)
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(cfg.Env, cfg.LogLevel, append(writers, writer)...)
	if err != nil {
		return nil, nil, err
	}
	return log, writer, nil
}

func upload(ctx context.Context, client *sentry.Client, cfg *config.Config, log *zerolog.Logger) error {
	log.Debug().
		Str("host", client.Dsn().Host()).
		Int("project", client.Dsn().ProjectID()).
		Str("file", cfg.CrashLog).
		Msg("uploading crash log")

	results, err := client.UploadCrashLog(ctx, cfg.CrashLog)
	if results == nil && err != nil {
		log.Error().Err(err).Str("file", cfg.CrashLog).Msg("could not read crash log")
		return err
	}

	for i, result := range results {
		if result.Err != nil {
			log.Error().Err(result.Err).Int("record", i).Msg("crash record was not sent")
			continue
		}
		log.Info().Int("record", i).Str("event_id", result.EventID.String()).Msg("crash record sent")
	}

	if err != nil {
		log.Warn().Int("records", len(results)).Msg("crash log uploaded with errors")
		return err
	}
	log.Info().Int("records", len(results)).Msg("crash log uploaded")
	return nil
}

/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package main runs the git activity simulator against REMOTE_URL. It keeps
// branching, committing and pushing at random on a fixed interval until it is
// interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chainguard.dev/gitsim/credentials"
	"chainguard.dev/gitsim/metrics"
	"chainguard.dev/gitsim/retry"
	"chainguard.dev/gitsim/simulator"
	"github.com/chainguard-dev/clog"
	_ "github.com/chainguard-dev/clog/gcp/init"
	"github.com/chainguard-dev/terraform-infra-common/pkg/httpmetrics"
	"github.com/chainguard-dev/terraform-infra-common/pkg/profiler"
	"github.com/sethvargo/go-envconfig"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"
)

// config is read from the environment. METRICS_PORT (default 2112) is read
// by httpmetrics.ServeMetrics.
type config struct {
	RemoteURL string `env:"REMOTE_URL,required"`
	Login     string `env:"GIT_LOGIN"`
	Password  string `env:"GIT_PASSWORD"`
	// Token takes precedence over Login/Password when set.
	Token string `env:"GIT_TOKEN"`

	CommitterName  string `env:"COMMITTER_NAME,required"`
	CommitterEmail string `env:"COMMITTER_EMAIL,required"`
	BotIdentifier  string `env:"BOT_IDENTIFIER"`

	Seed          uint64        `env:"SEED,default=17"`
	SeedSuffixes  bool          `env:"SEED_SUFFIXES,default=false"`
	TickInterval  time.Duration `env:"TICK_INTERVAL,default=10s"`
	MaxTicks      int           `env:"MAX_TICKS,default=0"`
	CommitMessage string        `env:"COMMIT_MESSAGE"`
	ContentMode   string        `env:"CONTENT_MODE,default=empty"`

	NetworkTimeout   time.Duration `env:"NETWORK_TIMEOUT,default=2m"`
	RetryMax         int           `env:"RETRY_MAX,default=3"`
	RetryBaseBackoff time.Duration `env:"RETRY_BASE_BACKOFF,default=1s"`
	RetryMaxBackoff  time.Duration `env:"RETRY_MAX_BACKOFF,default=30s"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go httpmetrics.ServeMetrics()
	profiler.SetupProfiler()
	defer httpmetrics.SetupTracer(ctx)()

	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		clog.FatalContextf(ctx, "processing config: %v", err)
	}

	if err := run(ctx, cfg); err != nil {
		clog.FatalContextf(ctx, "simulator failed: %v", err)
	}
}

func run(ctx context.Context, cfg config) error {
	if cfg.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", cfg.TickInterval)
	}

	creds, err := credentialsFor(cfg)
	if err != nil {
		return err
	}

	activity := metrics.NewActivity("chainguard.dev/gitsim")
	activity.SetAttributeEnricher(func(_ context.Context, attrs []attribute.KeyValue) []attribute.KeyValue {
		return append(attrs, attribute.String("bot", botIdentifier(cfg)))
	})

	opts := []simulator.Option{
		simulator.WithCredentials(creds),
		simulator.WithMetrics(activity),
	}
	if cfg.SeedSuffixes {
		opts = append(opts, simulator.WithSuffixSource(simulator.SeededSuffix(cfg.Seed)))
	}

	sess, err := simulator.New(ctx, simulator.Config{
		RemoteURL: cfg.RemoteURL,
		Identity: simulator.Identity{
			Name:  cfg.CommitterName,
			Email: cfg.CommitterEmail,
		},
		BotIdentifier: cfg.BotIdentifier,
		Seed:          cfg.Seed,
		CommitMessage: cfg.CommitMessage,
		Content:       simulator.ContentMode(cfg.ContentMode),
		Retry: retry.Config{
			MaxRetries:  cfg.RetryMax,
			BaseBackoff: cfg.RetryBaseBackoff,
			MaxBackoff:  cfg.RetryMaxBackoff,
			MaxJitter:   retry.DefaultConfig().MaxJitter,
		},
		NetworkTimeout: cfg.NetworkTimeout,
	}, opts...)
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	// Teardown uses a fresh context so it still runs after a signal.
	defer func() {
		if err := sess.Close(context.WithoutCancel(ctx)); err != nil {
			clog.WarnContextf(ctx, "closing session: %v", err)
		}
	}()

	clog.InfoContextf(ctx, "Simulating activity against %s every %s", cfg.RemoteURL, cfg.TickInterval)
	n := simulator.Run(ctx, sess, cfg.TickInterval, cfg.MaxTicks)
	clog.InfoContextf(ctx, "Stopped after %d ticks", n)
	return nil
}

func credentialsFor(cfg config) (credentials.Provider, error) {
	switch {
	case cfg.Token != "":
		return credentials.FromTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}))
	case cfg.Login != "" || cfg.Password != "":
		return credentials.Static(cfg.Login, cfg.Password), nil
	default:
		return credentials.None(), nil
	}
}

func botIdentifier(cfg config) string {
	if bot := strings.TrimSpace(cfg.BotIdentifier); bot != "" {
		return bot
	}
	return strings.TrimSpace(cfg.CommitterName)
}

// cmd/statpoll/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/tamzrod/statpoll/internal/config"
	"github.com/tamzrod/statpoll/internal/link"
	"github.com/tamzrod/statpoll/internal/metrics"
	"github.com/tamzrod/statpoll/internal/poller"
	"github.com/tamzrod/statpoll/internal/poller/https"
	"github.com/tamzrod/statpoll/internal/report"
	"github.com/tamzrod/statpoll/internal/writer"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var cfgPath string
	var showVersion bool

	flagSet := pflag.NewFlagSet("statpoll", pflag.ContinueOnError)
	flagSet.StringVarP(&cfgPath, "config", "c", "", "path to config.yaml")
	flagSet.BoolVar(&showVersion, "version", false, "print version and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if showVersion {
		fmt.Println("statpoll", version)
		return nil
	}

	// Positional path is accepted too: statpoll config.yaml
	if cfgPath == "" && flagSet.NArg() > 0 {
		cfgPath = flagSet.Arg(0)
	}
	if cfgPath == "" {
		return errors.New("usage: statpoll --config <config.yaml>")
	}

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	config.Normalize(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Metrics (optional)
	// --------------------

	m := metrics.New()
	if cfg.Metrics.Listen != "" {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Listen); err != nil {
				log.Printf("metrics: serve failed (listen=%s): %v", cfg.Metrics.Listen, err)
			}
		}()
	}

	// --------------------
	// Link
	// --------------------

	provider, name, err := buildProvider(cfg.Link)
	if err != nil {
		return fmt.Errorf("link provider failed: %w", err)
	}

	mgr, err := link.New(link.Config{Name: name, MaxRetry: *cfg.Link.MaxRetry}, provider)
	if err != nil {
		return fmt.Errorf("link manager failed: %w", err)
	}
	mgr.SetObserver(m.LinkObserver())
	defer mgr.Close()

	waitCtx := ctx
	if cfg.Link.WaitTimeoutMs > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Link.WaitTimeoutMs)*time.Millisecond)
		defer cancel()
	}

	if err := mgr.ConnectAndWait(waitCtx); err != nil {
		if ctx.Err() != nil {
			log.Printf("shutdown before link came up")
			return nil
		}
		return fmt.Errorf("link failed (link=%s): %w", name, err)
	}

	// --------------------
	// Pipeline
	// --------------------

	p, closePoller, err := poller.Build(cfg, mgr)
	if err != nil {
		return fmt.Errorf("poller build failed (channel=%s): %w", cfg.API.ChannelID, err)
	}
	defer closePoller()

	dataWriter, statusWriters, closeWriters, err := writer.Build(cfg.Report)
	if err != nil {
		return fmt.Errorf("writer build failed: %w", err)
	}
	defer closeWriters()

	orch := report.New(report.Config{
		Writer:   dataWriter,
		Status:   statusWriters,
		Recorder: m,
	})

	// ---- channel between poller and orchestrator ----
	out := make(chan poller.PollResult)
	done := make(chan struct{})

	go func() {
		defer close(done)
		orch.Run(ctx, out)
	}()

	log.Printf(
		"poller: polling %s every %dms (channel=%s)",
		https.Redact(cfg.API.URL), cfg.Poll.IntervalMs, cfg.API.ChannelID,
	)

	err = p.Run(ctx, out)
	stop()
	<-done

	if errors.Is(err, link.ErrPermanentFailure) {
		return fmt.Errorf("link failed (link=%s): %w", name, err)
	}

	log.Printf("shutdown")
	return nil
}

func buildProvider(c config.LinkConfig) (link.Provider, string, error) {
	switch c.Provider {
	case config.ProviderNetlink:
		p, err := link.NewNetlink(
			c.Interface,
			link.Credentials{SSID: c.SSID, Passphrase: c.Passphrase},
			time.Duration(c.AttemptTimeoutMs)*time.Millisecond,
		)
		return p, c.Interface, err
	default:
		return link.NewStatic(), config.ProviderStatic, nil
	}
}

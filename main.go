package main

import (
	"context"
	"io"
	"log/slog"
	"os"
)

type bootstrapOptions struct {
	In        io.Reader
	Out       io.Writer
	ErrOut    io.Writer
	PrintMail bool
}

// bootstrap wires storage, events, remote lists and the mailer into an App.
// The returned cleanup closes everything bootstrap opened.
func bootstrap(cfg *Config, opts bootstrapOptions) (*App, func(), error) {
	level, err := cfg.Log.SlogLevel()
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(opts.ErrOut, &slog.HandlerOptions{Level: level}))

	repo, err := NewRepo(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}

	var publisher Publisher = &NoopPublisher{}
	if cfg.NATS.URL != "" {
		nats, err := NewNATSPublisher(cfg.NATS.URL)
		if err != nil {
			// events are advisory; keep working without them
			logger.Warn("NATS unavailable, events stay local", "err", err)
		} else {
			publisher = nats
		}
	}
	bus := NewBus(publisher, logger)

	var mailer Mailer = NewCommandMailer(cfg.Mail.Opener)
	if opts.PrintMail {
		mailer = &PrintMailer{w: opts.Out}
	}

	app := NewApp(AppDeps{
		Config:   cfg,
		Docs:     repo,
		Remote:   NewListClient(cfg.Remote.EmployeesURL, cfg.Remote.AgenciesURL, cfg.Remote.Timeout),
		Bus:      bus,
		Mailer:   mailer,
		Prompter: NewTerminalPrompter(opts.In, opts.Out),
		Out:      opts.Out,
		ErrOut:   opts.ErrOut,
		Logger:   logger,
	})

	cleanup := func() {
		app.Close()
		if err := bus.Close(); err != nil {
			logger.Warn("error closing event bus", "err", err)
		}
		if err := repo.Close(); err != nil {
			logger.Warn("error closing database", "err", err)
		}
	}
	return app, cleanup, nil
}

func main() {
	useColor = ShouldUseColor()

	c := &cli{in: os.Stdin, out: os.Stdout, errOut: os.Stderr}
	rootCmd := SetupCommands(c)
	defer c.close()

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		PrintError(os.Stderr, err)
		c.close()
		os.Exit(1)
	}
}

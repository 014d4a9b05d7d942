package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/citievents/internal/api"
	"github.com/dukerupert/citievents/internal/config"
	"github.com/dukerupert/citievents/internal/database"
	"github.com/dukerupert/citievents/internal/listing"
	"github.com/dukerupert/citievents/internal/logging"
	"github.com/dukerupert/citievents/internal/output"
	"github.com/dukerupert/citievents/internal/server"
)

const usage = `usage: citievents [-o text|json|yaml] [-env file] <command> [args]

commands:
  serve                          run the console server
  events [-date D] [-q T] [-page N]
  announcements
  search <query>
  notifications
  like <event-id>
  likes                          reactions recorded on this machine
  rsvp -name N -email E -event ID
  motivation [today|refresh]
  admin <subcommand>             see "citievents admin -h"
`

// app is the state shared by every command.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	out    *output.Writer
	client *api.Client
	db     *sql.DB
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "citievents:", describe(err))
		os.Exit(1)
	}
}

// describe prefers the backend's own message for failed requests.
func describe(err error) string {
	var re *api.RequestError
	if errors.As(err, &re) {
		return re.Message
	}
	return err.Error()
}

// offline lists the commands that only read the local store.
var offline = map[string]bool{
	"likes": true,
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("citievents", flag.ContinueOnError)
	fs.Usage = func() { fmt.Fprint(fs.Output(), usage) }
	format := fs.String("o", "text", "output format: text, json or yaml")
	envFile := fs.String("env", ".env", "optional env file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return flag.ErrHelp
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if !offline[fs.Arg(0)] {
		if err := cfg.RequireAPI(); err != nil {
			return err
		}
	}
	f, err := output.ParseFormat(*format)
	if err != nil {
		return err
	}

	logger := logging.Setup(cfg.LogLevel)
	a := &app{
		cfg:    cfg,
		logger: logger,
		out:    output.New(stdout, f),
		client: api.New(cfg.APIURL,
			api.WithToken(cfg.APIToken),
			api.WithTimeout(cfg.HTTPTimeout),
			api.WithLogger(logging.Component(logger, "api")),
		),
	}
	defer a.close()

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "serve":
		return a.serve(ctx)
	case "events":
		return a.events(ctx, rest)
	case "announcements":
		return a.announcements(ctx)
	case "search":
		return a.search(ctx, rest)
	case "notifications":
		return a.notifications(ctx)
	case "like":
		return a.like(ctx, rest)
	case "likes":
		return a.likes(ctx)
	case "rsvp":
		return a.rsvp(ctx, rest)
	case "motivation":
		return a.motivation(ctx, rest)
	case "admin":
		return a.admin(ctx, rest)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// database opens the local store on first use.
func (a *app) database() (*sql.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := database.Open(a.cfg.DBPath)
	if err != nil {
		return nil, err
	}
	a.db = db
	return db, nil
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
}

func (a *app) syncer() *listing.Syncer {
	return listing.NewSyncer(a.client, logging.Component(a.logger, "listing"))
}

func (a *app) serve(ctx context.Context) error {
	db, err := a.database()
	if err != nil {
		return err
	}
	srv, err := server.New(a.client, db, a.cfg, a.logger)
	if err != nil {
		return err
	}
	srv.Start(ctx)
	defer srv.Stop()

	httpServer := &http.Server{
		Addr:              a.cfg.Addr(),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("console listening", "addr", httpServer.Addr, "api", a.cfg.APIURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

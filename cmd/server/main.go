package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	_ "modernc.org/sqlite"

	emailPkg "rollcall/internal/adapters/email"
	"rollcall/internal/adapters/feed"
	web "rollcall/internal/adapters/http"
	"rollcall/internal/adapters/http/middleware"
	"rollcall/internal/adapters/http/perf"
	"rollcall/internal/adapters/storage"
	accountStore "rollcall/internal/adapters/storage/account"
	activityStore "rollcall/internal/adapters/storage/activity"
	activityConfigStore "rollcall/internal/adapters/storage/activityconfig"
	"rollcall/internal/application/orchestrators"
	"rollcall/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	configPath := flag.String("config", os.Getenv("ROLLCALL_CONFIG"), "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath, os.Getenv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := setupLogging(cfg); err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := run(cfg); err != nil {
		slog.Error("server_event", "event", "fatal", "error", err)
		os.Exit(1)
	}
}

// setupLogging installs a text handler in development and a JSON handler in production.
func setupLogging(cfg config.Config) error {
	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.IsProduction() {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
	return nil
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	middleware.SecureCookies = cfg.IsProduction()
	csrfKey, err := cfg.CSRFKeyBytes()
	if err != nil {
		return err
	}

	// Initialize database with WAL mode, foreign keys, and busy timeout
	dsn := cfg.Store.SQLitePath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	// Connection pool settings for WAL mode
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.PingContext(ctx); err != nil {
		return err
	}
	if err := storage.MigrateDB(db, cfg.Store.SQLitePath); err != nil {
		return err
	}
	slog.Info("server_event", "event", "sqlite_ready", "path", cfg.Store.SQLitePath, "schema", storage.LatestSchemaVersion())

	// Performance instrumentation: wrap DB with timing, create collector
	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector, cfg.SlowQueryMs)

	accounts := accountStore.NewSQLiteStore(timedDB)
	var (
		records activityStore.Store
		configs activityConfigStore.Store
		mongoDB *mongo.Database
	)
	switch cfg.Store.Driver {
	case config.DriverMongo:
		client, database, err := storage.OpenMongo(ctx, cfg.Store.MongoURI, cfg.Store.MongoDatabase, collector, cfg.SlowQueryMs)
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())
		records = activityStore.NewMongoStore(client, database)
		configs = activityConfigStore.NewMongoStore(database)
		mongoDB = database
		slog.Info("server_event", "event", "mongo_ready", "database", cfg.Store.MongoDatabase)
	default:
		records = activityStore.NewSQLiteStore(timedDB)
		configs = activityConfigStore.NewSQLiteStore(timedDB)
	}

	// Seed default admin account if no accounts exist
	if _, err := orchestrators.ExecuteSeedAdmin(ctx, orchestrators.CreateAccountDeps{AccountStore: accounts}, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		return err
	}

	// Configure email sender
	var sender emailPkg.Sender
	if cfg.Email.ResendKey != "" {
		sender = emailPkg.NewResendSender(cfg.Email.ResendKey, cfg.Email.From)
		slog.Info("server_event", "event", "email_sender", "provider", "resend")
	} else {
		sender = emailPkg.NewNoopSender()
		if cfg.IsProduction() {
			slog.Warn("server_event", "event", "email_sender", "provider", "noop", "detail", "ROLLCALL_RESEND_KEY is not set; export e-mails are not delivered")
		} else {
			slog.Info("server_event", "event", "email_sender", "provider", "noop")
		}
	}

	hub := feed.NewHub()
	refresher := &orchestrators.SnapshotRefresher{Records: records, Configs: configs, Publisher: hub}
	if err := refresher.Refresh(ctx); err != nil {
		return err
	}
	if mongoDB != nil {
		// Writes from other processes reach terminals through change streams.
		storage.WatchCollections(ctx, mongoDB,
			[]string{storage.ActivitiesCollection, storage.ActivityConfigsCollection},
			5*time.Second,
			func(collection string) {
				if err := refresher.Refresh(ctx); err != nil {
					slog.Error("feed_event", "event", "refresh_failed", "after", "change_stream", "collection", collection, "error", err)
				}
			})
	}

	handler, err := web.NewMux(web.Deps{
		Accounts:           accounts,
		Records:            records,
		Configs:            configs,
		Hub:                hub,
		Refresh:            refresher.Refresh,
		Sender:             sender,
		EmailFrom:          cfg.Email.From,
		EmailReplyTo:       cfg.Email.ReplyTo,
		Location:           cfg.Location(),
		CSRFKey:            csrfKey,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		SlowRequestMs:      cfg.SlowRequestMs,
		Collector:          collector,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server_event", "event", "listening", "version", version, "addr", cfg.Addr, "env", cfg.Env, "store", cfg.Store.Driver, "timezone", cfg.Timezone)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("server_event", "event", "shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

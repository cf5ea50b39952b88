package main

import (
	"context"
	"embed"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cliossg/intake/internal/feat/forms"
	"github.com/cliossg/intake/pkg/cl/app"
	"github.com/cliossg/intake/pkg/cl/cache"
	"github.com/cliossg/intake/pkg/cl/cms"
	"github.com/cliossg/intake/pkg/cl/config"
	"github.com/cliossg/intake/pkg/cl/database"
	"github.com/cliossg/intake/pkg/cl/events"
	"github.com/cliossg/intake/pkg/cl/logger"
	"github.com/cliossg/intake/pkg/cl/mail"
	"github.com/cliossg/intake/pkg/cl/middleware"
	"github.com/cliossg/intake/pkg/cl/sheets"
)

//go:embed assets/migrations/sqlite/*.sql
var migrationsFS embed.FS

//go:embed assets/templates/email/*.html
var templatesFS embed.FS

func main() {
	ctx := context.Background()

	cfg := config.Load()
	log := logger.New(cfg.Log.Level)

	log.Infof("Starting Intake [%s mode]", cfg.Env)
	log.Infof("Store backend: %s", cfg.Store.Backend)

	if problems := cfg.Validate(); len(problems) > 0 {
		for _, p := range problems {
			log.Errorf("Configuration: %s", p)
		}
		if !cfg.IsDev() {
			log.Error("Invalid configuration, refusing to start")
			os.Exit(1)
		}
		log.Warn("Continuing with an invalid configuration in dev mode")
	}

	var deps []any

	var (
		reader forms.SchemaReader
		writer forms.SubmissionWriter
		review forms.ReviewStore
	)

	switch cfg.Store.Backend {
	case "sqlite":
		log.Infof("Database: %s", cfg.Store.DatabasePath)
		db := database.New(migrationsFS, cfg, log)
		db.SetMigrationPath("assets/migrations/sqlite")
		store := forms.NewSQLiteStore(db, log)
		seeder := forms.NewSeeder(db, cfg.Store.SeedPath, log)
		deps = append(deps, db, seeder)
		reader, writer, review = store, store, store

	default:
		opts := cms.Options{
			ProjectID:  cfg.CMS.ProjectID,
			Dataset:    cfg.CMS.Dataset,
			APIVersion: cfg.CMS.APIVersion,
			Timeout:    config.Duration(cfg.CMS.Timeout, 10*time.Second),
		}

		readOpts := opts
		readOpts.Token = cfg.CMS.ReadToken
		readOpts.UseCDN = cfg.CMS.UseCDN

		writeOpts := opts
		writeOpts.Token = cfg.CMS.WriteToken
		writeClient, err := cms.NewWriteClient(writeOpts)
		if err != nil {
			log.Errorf("Cannot create content store client: %v", err)
			os.Exit(1)
		}

		cmsWriter := forms.NewCMSWriter(writeClient, log)
		reader = forms.NewCMSReader(cms.NewReadClient(readOpts))
		writer, review = cmsWriter, cmsWriter
	}

	if cfg.Cache.RedisAddr != "" {
		schemaCache := cache.NewRedis(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB, "intake:", log)
		deps = append(deps, schemaCache)
		reader = forms.NewCachedReader(reader, schemaCache, config.Duration(cfg.Cache.TTL, 5*time.Minute), log)
	}

	var sinks []forms.Sink
	if len(cfg.Events.Brokers) > 0 {
		publisher := events.NewPublisher(cfg.Events.Brokers, cfg.Events.Topic, log)
		deps = append(deps, publisher)
		sinks = append(sinks, forms.NewEventSink(publisher))
	}
	if cfg.Sheets.SpreadsheetID != "" {
		appender := sheets.NewAppender(cfg.Sheets.CredentialsPath, cfg.Sheets.SpreadsheetID, cfg.Sheets.SheetName, log)
		deps = append(deps, appender)
		sinks = append(sinks, forms.NewSheetSink(appender))
	}

	mailer := mail.NewClient(cfg.Mail.APIKey, cfg.Mail.BaseURL, config.Duration(cfg.Mail.Timeout, 10*time.Second))
	if !mailer.IsConfigured() {
		log.Warn("Mail API key not set, notifications will fail")
	}

	dispatcher, err := forms.NewDispatcher(mailer, templatesFS, cfg, log)
	if err != nil {
		log.Errorf("Cannot load email templates: %v", err)
		os.Exit(1)
	}

	formsService := forms.NewService(reader, writer, dispatcher, log, sinks...)
	formsHandler := forms.NewHandler(formsService, review, cfg, log)
	deps = append(deps, formsService, formsHandler)

	router := chi.NewRouter()
	middleware.DefaultStack(router, log)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	lc := app.Setup(log, deps...)
	if err := lc.Start(ctx, router); err != nil {
		log.Errorf("Startup failed: %v", err)
		os.Exit(1)
	}

	srv := app.NewServer(cfg.Server.Addr, router)
	go func() {
		if err := app.Serve(srv); err != nil {
			log.Errorf("Server error: %v", err)
			os.Exit(1)
		}
	}()
	log.Infof("Server listening on %s", cfg.Server.Addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	lc.Shutdown(srv)
	log.Info("Server stopped")
}

package main

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"invoicevault/docs"
	"invoicevault/internal/audit"
	"invoicevault/internal/config"
	"invoicevault/internal/database"
	"invoicevault/internal/database/migration"
	handlers "invoicevault/internal/http/handler"
	"invoicevault/internal/http/middleware"
	"invoicevault/internal/logging"
	"invoicevault/internal/otel"
	"invoicevault/internal/pdf"
	"invoicevault/internal/repository"
	"invoicevault/internal/repository/memory"
	"invoicevault/internal/repository/postgres"
	"invoicevault/internal/seal"
	"invoicevault/internal/service"
	"invoicevault/internal/storage"
	"invoicevault/internal/token"
	"invoicevault/internal/validation"
)

const serviceName = "invoicevault"

// @title Invoice Vault API
// @version 1.0
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	rootCmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Invoice document store with PDF stamping and sealing",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			log := logging.New(cfg.LogLevel, cfg.Location(), cfg.IsDev())
			return runServer(cmd.Context(), cfg, log)
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the PostgreSQL schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			log := logging.New(cfg.LogLevel, cfg.Location(), cfg.IsDev())
			db, err := database.NewPostgres(cmd.Context(), cfg.Database)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer db.Close()
			if force, _ := cmd.Flags().GetBool("force"); force {
				return migration.Run(cmd.Context(), db, log)
			}
			return migration.EnsureMigrated(cmd.Context(), db, log, cfg.Database.Host)
		},
	}
	cmd.Flags().Bool("force", false, "Run every step even if the schema exists")
	return cmd
}

type stores struct {
	docs     repository.DocumentRepository
	payloads repository.PayloadRepository
	binaries repository.BinaryRepository
	health   handlers.Pinger
	close    func() error
}

func openStores(ctx context.Context, cfg *config.AppConfig, log zerolog.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case "memory":
		docs := memory.NewDocuments()
		log.Warn().Msg("using in-memory stores, data is lost on restart")
		return &stores{
			docs:     docs,
			payloads: memory.NewPayloads(),
			binaries: memory.NewBinaries(),
			health:   docs,
			close:    func() error { return nil },
		}, nil
	case "postgres":
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
			db.Close()
			return nil, err
		}
		objStore, err := storage.NewMinIO(ctx, cfg.MinIO)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("initialize object storage: %w", err)
		}
		return &stores{
			docs:     postgres.NewDocumentPostgres(db),
			payloads: postgres.NewPayloadPostgres(db),
			binaries: storage.NewBinaryStore(objStore, cfg.Pipeline.MaxArtifactSize),
			health:   db,
			close:    db.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}

func newSealer(cfg config.PipelineConfig, log zerolog.Logger) (*seal.JWSSealer, error) {
	var (
		key *ecdsa.PrivateKey
		err error
	)
	if cfg.SealKeyFile == "" {
		log.Warn().Msg("SEAL_KEY_FILE not set, sealing with an ephemeral key")
		key, err = seal.GenerateKey()
	} else {
		key, err = seal.LoadKeyFile(cfg.SealKeyFile)
	}
	if err != nil {
		return nil, fmt.Errorf("load seal key: %w", err)
	}
	return seal.NewJWSSealer(key, cfg.SealKeyID)
}

func newAuditSink(cfg config.KafkaConfig, log zerolog.Logger) audit.Sink {
	if len(cfg.Brokers) == 0 {
		return audit.NewLogSink(log)
	}
	log.Info().Strs("brokers", cfg.Brokers).Str("topic", cfg.Topic).Msg("publishing audit events to kafka")
	return audit.NewKafkaSink(cfg.Brokers, cfg.Topic, log)
}

func newTokenGenerator(ctx context.Context, cfg *config.AppConfig, docs repository.DocumentRepository, log zerolog.Logger) (*token.Generator, func() error, error) {
	opts := []token.Option{token.WithMaxAttempts(cfg.Pipeline.TokenMaxAttempts)}
	closeFn := func() error { return nil }
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			rdb.Close()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		opts = append(opts, token.WithReserver(token.NewRedisReserver(rdb, cfg.Redis.ReservationTTL)))
		closeFn = rdb.Close
		log.Info().Str("addr", cfg.Redis.Addr).Msg("token reservations enabled")
	}
	return token.NewGenerator(docs, opts...), closeFn, nil
}

func runServer(ctx context.Context, cfg *config.AppConfig, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, serviceName, log)
	if err != nil {
		return fmt.Errorf("initialize tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Error().Err(err).Msg("tracing shutdown failed")
		}
	}()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	tokens, closeRedis, err := newTokenGenerator(ctx, cfg, st.docs, log)
	if err != nil {
		return err
	}
	defer closeRedis()

	sealer, err := newSealer(cfg.Pipeline, log)
	if err != nil {
		return err
	}

	sink := newAuditSink(cfg.Kafka, log)
	defer func() {
		if err := sink.Close(); err != nil {
			log.Error().Err(err).Msg("audit sink close failed")
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := service.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("register service metrics: %w", err)
	}
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	svc := service.NewInvoiceService(service.Dependencies{
		Documents: st.docs,
		Payloads:  st.payloads,
		Binaries:  st.binaries,
		Validator: validation.New(),
		Tokens:    tokens,
		Enricher: pdf.NewEnricher(pdf.FitzRasterizer{},
			pdf.WithDPI(cfg.Pipeline.RasterDPI),
			pdf.WithJPEGQuality(cfg.Pipeline.JPEGQuality),
			pdf.WithBandHeight(cfg.Pipeline.BandHeight),
		),
		Sealer:         sealer,
		Audit:          sink,
		Metrics:        metrics,
		Log:            log,
		MaxContentSize: cfg.Pipeline.MaxContentSize,
	})

	if cfg.Auth.JWTSecret == "" {
		if !cfg.IsDev() {
			return errors.New("JWT_SECRET is required outside development")
		}
		log.Warn().Msg("JWT_SECRET not set, authentication disabled")
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		// base64 inline content inflates the body by a third
		BodyLimit: int(cfg.Pipeline.MaxContentSize)*2 + 1<<20,
	})

	app.Use(otelfiber.Middleware(otelfiber.WithNext(func(c *fiber.Ctx) bool {
		return c.Path() == "/metrics" || strings.HasPrefix(c.Path(), "/health")
	})))
	app.Use(middleware.RequestID())
	app.Use(middleware.RequestLogger(log.With().Str("component", "http").Logger()))
	app.Use(promMiddleware.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	handlers.RegisterRoutes(app, st.health, svc, cfg.Auth.JWTSecret, log)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info().Str("addr", addr).Str("store", cfg.StoreDriver).Msg("server starting")
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	return app.ShutdownWithTimeout(10 * time.Second)
}

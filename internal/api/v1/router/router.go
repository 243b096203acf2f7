package router

import (
	"app/internal/api/v1/handler"
	"app/internal/config"
	"app/internal/inventory"
	"app/internal/middleware"
	"app/internal/pricing"
	"app/internal/pubsub"
	"app/internal/repository"
	"app/internal/service"
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/go-playground/validator/v10"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

func New(cfg *config.Config, logger zerolog.Logger) (http.Handler, repository.RecordStore, error) {
	logger.Info().Str("environment", cfg.Environment).Str("store_driver", cfg.StoreDriver).Msg("Router initializing")

	// 1. Open the record store
	store, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal().Msgf("Failed to open record store: %v", err)
		return nil, nil, err
	}

	// 2. Load the price table
	priceTable := pricing.DefaultTable(cfg.DefaultModel)
	if cfg.PriceTablePath != "" {
		priceTable, err = pricing.LoadTable(cfg.PriceTablePath)
		if err != nil {
			logger.Fatal().Msgf("Failed to load price table: %v", err)
			return nil, nil, err
		}
	}

	// 3. Initialize S3 client for the user upload bucket (optional)
	var s3Client *s3.Client
	if cfg.StorageConfigured() {
		s3Config, err := awsconfig.LoadDefaultConfig(context.TODO(),
			awsconfig.WithRegion(cfg.S3Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
			awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
		)
		if err != nil {
			logger.Fatal().Msgf("Failed to load S3 config: %v", err)
		}
		s3Client = s3.NewFromConfig(s3Config, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.S3URL)
			o.UsePathStyle = true
		})
	}

	// 4. Initialize validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// 5. Initialize Pub/Sub publisher for deletion audit events (optional)
	var publisher pubsub.Publisher
	if cfg.GCPProjectID != "" && cfg.DeletionAuditTopic != "" {
		pubSubPublisher, err := pubsub.NewPublisher(context.Background(), cfg)
		if err != nil {
			logger.Fatal().Msgf("Failed to create Pub/Sub publisher: %v", err)
			return nil, nil, err
		}
		publisher = pubSubPublisher
	}

	// 6. Initialize the shared inventory & gate & services & handlers.
	// Stats and deletion consume the same inventory so the two paths can
	// never disagree on which collections hold user data.
	entries := inventory.Default()
	gate := service.NewAllowListGate(cfg.AdminEmailList())

	identitySvc := service.NewIdentityService(store, entries, gate, cfg.MaxInFlightScans, logger)
	statsSvc := service.NewStatsService(store, identitySvc, entries, gate, priceTable, cfg.MaxInFlightScans, logger)
	deletionSvc := service.NewDeletionService(store, entries, gate, publisher, cfg.DeletionAuditTopic, s3Client, cfg.S3Bucket, cfg.MaxInFlightDeletes, logger)

	adminHandler := handler.NewAdminHandler(statsSvc, deletionSvc, identitySvc, validate, logger)

	// 7. Initialize middleware
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)

	// 8. Create ServeMux router
	mux := http.NewServeMux()

	apiV1Mux := http.NewServeMux()
	adminHandler.RegisterRoutes(apiV1Mux, authMiddleware)

	// Mount the API v1 routes under /v1
	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))

	// Redirect all other root-level requests to /v1/{path}
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/") {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/v1"+r.URL.Path, http.StatusMovedPermanently)
	})

	// 9. Apply CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		Debug:            false,
	})

	return middleware.LoggerMiddleware(c.Handler(mux)), store, nil
}

// openStore opens the configured record store driver.
func openStore(cfg *config.Config, logger zerolog.Logger) (repository.RecordStore, error) {
	if cfg.StoreDriver == "bolt" {
		return repository.NewBoltStore(cfg.BoltPath)
	}

	dsn := cfg.DBConnectionString
	// In a development environment, we want to ensure that SSL is disabled
	// for local testing. In production, the connection string should be
	// provided with the correct SSL settings.
	if cfg.Environment == "development" && !strings.Contains(dsn, "sslmode") {
		separator := " "
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			if strings.Contains(dsn, "?") {
				separator = "&"
			} else {
				separator = "?"
			}
		}
		dsn += separator + "sslmode=disable"
	}
	// For non-development environments that use a transaction pooler like
	// pgbouncer, we must use the simple query protocol to avoid issues with
	// server-side prepared statements.
	if cfg.Environment != "development" {
		if !strings.Contains(dsn, "prefer_simple_protocol") {
			separator := "&"
			if !strings.Contains(dsn, "?") {
				separator = "?"
			}
			dsn += separator + "prefer_simple_protocol=true"
		}
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	logger.Info().Msg("Database connection successful")

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return repository.NewPostgresStore(db), nil
}

// removeDisableGzip is a workaround for S3 signature errors with some S3-compatible services.
// See: https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		// Only remove the middleware if it exists.
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}

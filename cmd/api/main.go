package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/guyp-app/plantcare-api/internal/application"
	appanalysis "github.com/guyp-app/plantcare-api/internal/application/analysis"
	appusers "github.com/guyp-app/plantcare-api/internal/application/users"
	"github.com/guyp-app/plantcare-api/internal/config"
	domain "github.com/guyp-app/plantcare-api/internal/domain/analysis"
	usersdomain "github.com/guyp-app/plantcare-api/internal/domain/users"
	"github.com/guyp-app/plantcare-api/internal/infra/ai/openai"
	"github.com/guyp-app/plantcare-api/internal/infra/ai/prompt"
	mysqlp "github.com/guyp-app/plantcare-api/internal/infra/db/mysql"
	postgresp "github.com/guyp-app/plantcare-api/internal/infra/db/postgres"
	"github.com/guyp-app/plantcare-api/internal/infra/httpserver"
	minioStore "github.com/guyp-app/plantcare-api/internal/infra/storage"
	"github.com/guyp-app/plantcare-api/internal/infra/vision"
	"github.com/guyp-app/plantcare-api/internal/logging"
	"github.com/guyp-app/plantcare-api/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	if err := logging.Init(cfg.Log.Level); err != nil {
		log.Fatalf("logging init error: %v", err)
	}

	ctx := context.Background()

	// connect database, mysql unless configured otherwise
	var (
		db           *sql.DB
		analysisRepo domain.Repository
		userRepo     usersdomain.Repository
	)
	switch cfg.Database.Driver {
	case "postgres":
		db, err = postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			zap.L().Fatal("postgres connect error", zap.Error(err))
		}
		analysisRepo = postgresp.NewAnalysisRepository(db)
		userRepo = postgresp.NewUserRepository(db)
	default:
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			zap.L().Fatal("mysql connect error", zap.Error(err))
		}
		analysisRepo = mysqlp.NewAnalysisRepository(db)
		userRepo = mysqlp.NewUserRepository(db)
	}
	defer db.Close()

	// init minio
	store, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		zap.L().Fatal("minio init error", zap.Error(err))
	}

	// init classifier
	classifier := vision.New(map[domain.PlantType]string{
		domain.PlantTomato: cfg.Models.Tomato,
		domain.PlantPotato: cfg.Models.Potato,
		domain.PlantPepper: cfg.Models.Pepper,
	})

	// init AI client
	enricher := openai.NewClient(cfg.AI.APIKey, cfg.AI.Model)

	// init services
	analysisSvc := &appanalysis.Service{
		Repo:       analysisRepo,
		Classifier: classifier,
		Blobs:      store,
		Enricher:   enricher,
		Prompt:     prompt.BuildPlantPrompt,
		Clock:      application.SystemClock{},
		AITimeout:  time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
	}
	usersSvc := &appusers.Service{
		Repo:      userRepo,
		JWTSecret: []byte(cfg.Auth.JWTSecret),
		Clock:     application.SystemClock{},
	}

	// init router
	mux := httpserver.NewRouter(analysisSvc, usersSvc, httpserver.Options{
		JWTSecret: []byte(cfg.Auth.JWTSecret),
		RateLimit: middleware.NewRateLimiter(60, 1),
		Health: map[string]middleware.HealthChecker{
			"database": &middleware.DatabaseHealthChecker{DB: db},
			"storage":  middleware.CheckerFunc(store.Check),
		},
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		zap.L().Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zap.L().Fatal("server error", zap.Error(err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	zap.L().Info("shutting down server")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		zap.L().Error("shutdown error", zap.Error(err))
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clinicware/clinic-api/config"
	"github.com/clinicware/clinic-api/internal/email"
	"github.com/clinicware/clinic-api/internal/handler"
	authHandler "github.com/clinicware/clinic-api/internal/handler/auth"
	patientHandler "github.com/clinicware/clinic-api/internal/handler/patient"
	userHandler "github.com/clinicware/clinic-api/internal/handler/user"
	"github.com/clinicware/clinic-api/internal/middleware"
	"github.com/clinicware/clinic-api/internal/repository/postgres"
	redisrepo "github.com/clinicware/clinic-api/internal/repository/redis"
	"github.com/clinicware/clinic-api/internal/router"
	authService "github.com/clinicware/clinic-api/internal/service/auth"
	patientService "github.com/clinicware/clinic-api/internal/service/patient"
	userService "github.com/clinicware/clinic-api/internal/service/user"
	"github.com/clinicware/clinic-api/pkg/logger"
	"github.com/clinicware/clinic-api/pkg/security"
)

func main() {
	seed := flag.Bool("seed", false, "load demo patients and exit")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:   logger.ParseLevel(cfg.Log.Level),
		Pretty:  cfg.Log.Pretty,
		Service: "clinic-api",
	})

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := postgres.Migrate(context.Background(), db); err != nil {
		log.Fatal().Err(err).Msg("failed to apply schema")
	}

	patientRepo := postgres.NewPatientRepository(db)
	userRepo := postgres.NewUserRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)

	if *seed {
		if err := seedPatients(context.Background(), patientRepo); err != nil {
			log.Fatal().Err(err).Msg("seeding failed")
		}
		log.Info().Msg("demo patients loaded")
		return
	}

	sessionIndex, err := redisrepo.NewSessionIndex(cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer sessionIndex.Close()

	hasher := security.NewBcryptHasher(cfg.Clinic.BcryptCost)
	mailer := email.NewService(cfg.SMTP, log)

	authSvc := authService.NewService(userRepo, sessionRepo, sessionIndex, hasher, mailer, cfg.Session, log)
	patientSvc := patientService.NewService(patientRepo, cfg.Clinic.VisitThreshold, log)
	userSvc := userService.NewService(userRepo, authSvc, sessionIndex, mailer, log)

	authMiddleware := middleware.NewAuthMiddleware(authSvc)

	h := handler.NewHandler(db)
	authH := authHandler.NewHandler(authSvc)
	patientH := patientHandler.NewHandler(patientSvc, authMiddleware)
	userH := userHandler.NewHandler(userSvc)

	r := router.NewRouter(cfg.Server, log, authMiddleware, authH, patientH, userH, h)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}

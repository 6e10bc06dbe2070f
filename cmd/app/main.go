package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	rcache "heard-backend/internal/cache/redis"
	"heard-backend/internal/common/config"
	"heard-backend/internal/common/logger"
	"heard-backend/internal/common/middleware"
	lettersHTTP "heard-backend/internal/features/letters/delivery/http"
	lettersRepo "heard-backend/internal/features/letters/repository/supabase"
	lettersService "heard-backend/internal/features/letters/service"
	profileRepo "heard-backend/internal/features/profile/repository"
	profileSupabase "heard-backend/internal/features/profile/repository/supabase"
	"heard-backend/internal/features/session"
	sessionHTTP "heard-backend/internal/features/session/delivery/http"
	redisp "heard-backend/internal/platform/redis"
	"heard-backend/internal/platform/supabase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init("heard-backend", cfg.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	supaClient, err := supabase.New(supabase.Config{
		ProjectURL:  cfg.Supabase.ProjectURL,
		APIKey:      cfg.Supabase.APIKey,
		HTTPTimeout: cfg.Supabase.HTTPTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Supabase client")
	}
	auth := supabase.NewAuth(supaClient)

	redisClient, err := redisp.Open(ctx, fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	logger.Info().Msg("Redis connection established")

	profiles := profileSupabase.NewProfileRepository(supaClient)
	profileCache := rcache.NewProfileCache(redisClient, cfg.Redis.ProfileTTL)
	cachedProfiles := profileRepo.NewCachedRepository(profiles, profileCache)

	fetcher := session.NewFetcher(cachedProfiles, cfg.Session.FetchMaxAttempts, cfg.Session.FetchBaseDelay)
	bootstrapper := session.NewBootstrapper(cachedProfiles)
	profileSvc := session.NewProfileService(cachedProfiles, cachedProfiles.Fresh(), fetcher, bootstrapper)

	letterRepository := lettersRepo.NewLetterRepository(supaClient)
	letterSvc := lettersService.NewLetterService(letterRepository)

	logger.Info().Msg("Services initialized")

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorHandler())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "Accept"}
	router.Use(cors.New(corsConfig))

	v1 := router.Group("/api/v1")

	public := v1.Group("")
	authed := v1.Group("")
	authed.Use(middleware.RequireAuth(cfg.Supabase.JWTSecret))

	lettersHandler := lettersHTTP.NewLetterHandler(letterSvc)
	lettersHandler.RegisterRoutes(public, authed)

	sessionHandler := sessionHTTP.NewSessionHandler(profileSvc, auth)
	sessionHandler.RegisterRoutes(authed)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited")
}

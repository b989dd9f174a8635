package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/avakara/ewaste-platform/internal/auth"
	"github.com/avakara/ewaste-platform/internal/classify"
	"github.com/avakara/ewaste-platform/internal/config"
	"github.com/avakara/ewaste-platform/internal/db"
	"github.com/avakara/ewaste-platform/internal/events"
	"github.com/avakara/ewaste-platform/internal/excel"
	"github.com/avakara/ewaste-platform/internal/geocode"
	httphandler "github.com/avakara/ewaste-platform/internal/http"
	"github.com/avakara/ewaste-platform/internal/http/middleware"
	"github.com/avakara/ewaste-platform/internal/logger"
	"github.com/avakara/ewaste-platform/internal/notify"
	"github.com/avakara/ewaste-platform/internal/pdf"
	"github.com/avakara/ewaste-platform/internal/repository"
	"github.com/avakara/ewaste-platform/internal/repository/memstore"
	"github.com/avakara/ewaste-platform/internal/scheduler"
	"github.com/avakara/ewaste-platform/internal/service"
	"github.com/avakara/ewaste-platform/internal/storage"
	"github.com/avakara/ewaste-platform/internal/tracking"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Environment, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open store")
	}
	defer closeStore()

	objects, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init object storage")
	}

	var geocodeCache geocode.Cache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis unavailable, geocoding without cache")
		} else {
			geocodeCache = geocode.NewRedisCache(rdb, cfg.Geocode.CacheTTL, log)
		}
	}
	geocoder := geocode.NewNominatimClient(cfg.Geocode, geocodeCache, log)

	var classifier service.Classifier
	if cfg.Classifier.APIKey != "" {
		gemini, err := classify.NewGeminiClassifier(ctx, cfg.Classifier, wasteCategories(), log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init classifier")
		}
		defer gemini.Close()
		classifier = gemini
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set, images are left unclassified and community events are refused")
	}

	dispatcher := newDispatcher(cfg, log)
	defer dispatcher.Wait()

	hub := tracking.NewHub(cfg.HTTP.CORSOrigins, log)
	sinks := events.Fanout{hub}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink := events.NewKafkaSink(cfg.Kafka)
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
	}

	tokens := auth.NewTokenManager(cfg.Auth.AccessSecret, cfg.Auth.AccessTTL)
	rules := service.Rules{
		InventoryAlertThreshold: cfg.Rules.InventoryAlertThreshold,
		CommunityEventPoints:    cfg.Rules.CommunityEventPoints,
	}

	points := service.NewPointsService(store, log)
	community := service.NewCommunityService(store, classifier, points, rules, log)
	services := httphandler.Services{
		Auth: service.NewAuthService(store, objects, tokens, log),
		Requests: service.NewRequestService(store, points, service.Collaborators{
			Storage:    objects,
			Geocoder:   geocoder,
			Classifier: classifier,
			Notifier:   dispatcher,
			Events:     sinks,
		}, rules, log),
		Inventory: service.NewInventoryService(store),
		Agencies:  service.NewAgencyService(store, objects, log),
		Points:    points,
		Rewards:   service.NewRewardService(store, objects, log),
		Community: community,
		Reports:   service.NewReportService(store, excel.NewGenerator(), pdf.NewGenerator(), log),
	}

	if err := services.Auth.EnsureAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		log.Fatal().Err(err).Msg("failed to seed admin")
	}

	jobs, err := scheduler.New(cfg.Scheduler, points, community, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init scheduler")
	}
	jobs.Start(ctx)

	handler := httphandler.NewHandler(services, hub, cfg.Environment != "development", log)
	router := httphandler.NewRouter(handler, middleware.Auth(tokens), cfg, log)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("starting ewaste api")
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	jobs.Stop(shutdownCtx)
}

func openStore(cfg *config.Config, log zerolog.Logger) (repository.Store, func(), error) {
	if cfg.DB.Driver == config.StoreDriverMemory {
		log.Warn().Msg("using in-memory store, data is lost on restart")
		return memstore.New(), func() {}, nil
	}
	database, err := db.New(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := database.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return repository.NewGormStore(database), closeFn, nil
}

func newDispatcher(cfg *config.Config, log zerolog.Logger) *notify.Dispatcher {
	var (
		email notify.EmailSender
		sms   notify.SMSSender
	)
	if cfg.Notify.SMTP.Host != "" {
		email = notify.NewSMTPSender(cfg.Notify.SMTP)
	}
	if cfg.Notify.Twilio.AccountSID != "" {
		sms = notify.NewTwilioSender(cfg.Notify.Twilio)
	}
	return notify.NewDispatcher(email, sms, notify.NewExpoSender(), cfg.Notify.Timeout, log)
}

func wasteCategories() []string {
	categories := make([]string, 0, len(service.WastePoints))
	for category := range service.WastePoints {
		categories = append(categories, category)
	}
	return categories
}

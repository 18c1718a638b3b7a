package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pavitra93/go-property-management/shared/config"
	"github.com/pavitra93/go-property-management/shared/middleware"
	"github.com/pavitra93/go-property-management/shared/store"
	"github.com/pavitra93/go-property-management/shared/utils"
	"github.com/rs/cors"
)

func main() {
	config.LoadEnv()
	utils.InitLogger("activity")
	cfg := config.Load()

	db, err := config.ConnectDatabase()
	if err != nil {
		utils.Logger.Fatal("Failed to connect to database: ", err)
	}

	opts := store.Options{}
	if cfg.RedisEnabled {
		err := utils.InitRedis(utils.RedisOptions{Host: cfg.RedisHost, Port: cfg.RedisPort, Password: cfg.RedisPassword})
		if err != nil {
			utils.Logger.Warn("Redis unavailable, using in-memory cache tier: ", err)
		} else {
			opts.Cache = store.NewRedisCache(utils.GetRedisClient(), cfg.CacheKeyPrefix)
			defer utils.CloseRedis()
		}
	}

	s := store.New(db, opts)
	if err := s.Migrate(); err != nil {
		utils.Logger.Fatal("Failed to migrate database: ", err)
	}

	auth, err := middleware.NewAuthMiddleware(middleware.AuthOptions{
		Region:           cfg.AWSRegion,
		UserPoolID:       cfg.CognitoUserPoolID,
		VerifySignatures: cfg.VerifyAuthSignatures,
		Users:            s.Users,
	})
	if err != nil {
		utils.Logger.Fatal("Failed to initialize auth middleware: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var stats statsSource
	if cfg.KafkaBroker != "" {
		consumer := NewActivityConsumer(cfg.KafkaBroker, cfg.EventsTopic, cfg.ConsumerGroup, s)
		defer consumer.Close()
		stats = consumer
		go func() {
			if err := consumer.Run(ctx); err != nil {
				utils.Logger.WithError(err).Error("Activity consumer stopped")
			}
		}()
	} else {
		utils.Logger.Warn("KAFKA_BROKER not set, activity feed will not receive new events")
	}

	co := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{Addr: ":" + cfg.ActivityPort, Handler: co.Handler(newRouter(s, stats, auth))}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	utils.Logger.Infof("Activity service starting on port %s", cfg.ActivityPort)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		utils.Logger.Fatal("Failed to start activity service: ", err)
	}
}

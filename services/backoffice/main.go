package main

import (
	"net/http"

	"github.com/pavitra93/go-property-management/shared/config"
	"github.com/pavitra93/go-property-management/shared/events"
	"github.com/pavitra93/go-property-management/shared/lifecycle"
	"github.com/pavitra93/go-property-management/shared/middleware"
	"github.com/pavitra93/go-property-management/shared/occupancy"
	"github.com/pavitra93/go-property-management/shared/store"
	"github.com/pavitra93/go-property-management/shared/utils"
	"github.com/rs/cors"
)

func main() {
	config.LoadEnv()
	utils.InitLogger("backoffice")
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

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.KafkaBroker != "" {
		producer := events.NewKafkaProducer(cfg.KafkaBroker, cfg.EventsTopic)
		defer producer.Close()
		publisher = producer
	} else {
		utils.Logger.Info("KAFKA_BROKER not set, occupancy events are not published")
	}

	engine := lifecycle.NewEngine(cfg.ExpiringSoonDays, s.Now)
	app := NewApp(s, engine, occupancy.NewCoordinator(s, engine, publisher))

	auth, err := middleware.NewAuthMiddleware(middleware.AuthOptions{
		Region:           cfg.AWSRegion,
		UserPoolID:       cfg.CognitoUserPoolID,
		VerifySignatures: cfg.VerifyAuthSignatures,
		Users:            s.Users,
	})
	if err != nil {
		utils.Logger.Fatal("Failed to initialize auth middleware: ", err)
	}

	jobs, err := startJobs(cfg, app)
	if err != nil {
		utils.Logger.Fatal("Failed to schedule jobs: ", err)
	}
	defer jobs.Stop()

	co := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	utils.Logger.Infof("Back office starting on port %s (expiring-soon window %d days)", cfg.BackofficePort, engine.ThresholdDays())
	if err := http.ListenAndServe(":"+cfg.BackofficePort, co.Handler(newRouter(app, auth))); err != nil {
		utils.Logger.Fatal("Failed to start back office: ", err)
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sethvargo/go-envconfig"

	"github.com/byuoitav/timecard-service/auth"
	"github.com/byuoitav/timecard-service/database"
	"github.com/byuoitav/timecard-service/handlers"
)

var logger *slog.Logger

type config struct {
	DBHost     string `env:"TIMECARD_DB_HOST, default=localhost"`
	DBPort     int    `env:"TIMECARD_DB_PORT, default=5432"`
	DBUser     string `env:"TIMECARD_DB_USER, required"`
	DBPassword string `env:"TIMECARD_DB_PASSWORD, required"`
	DBName     string `env:"TIMECARD_DB_NAME, required"`

	AuthCachePath string        `env:"TIMECARD_AUTH_CACHE_PATH, default=timecard-auth.db"`
	AuthCacheTTL  time.Duration `env:"TIMECARD_AUTH_CACHE_TTL, default=5m"`

	PermissiveUpdates bool `env:"TIMECARD_PERMISSIVE_UPDATES, default=false"`
}

func main() {
	var err error

	port := flag.String("p", "8463", "port for the timecard service to listen on")
	logLevelFlag := flag.String("l", "info", "slog log level")
	flag.Parse()

	//setup logger
	var logLevel = new(slog.LevelVar)

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	logLevel.Set(slog.LevelInfo)
	err = setLogLevel(*logLevelFlag, logLevel)
	if err != nil {
		logger.Error("can not set log level", "error", err)
	}

	var cfg config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		logger.Error("can not load configuration", "error", err)
		os.Exit(1)
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable connect_timeout=5",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)
	store, err := database.New(dsn)
	if err != nil {
		logger.Error("can not connect to database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	resolver, err := auth.NewDatabaseResolver(store, cfg.AuthCachePath, cfg.AuthCacheTTL)
	if err != nil {
		logger.Error("can not open auth cache", "error", err)
		os.Exit(1)
	}
	defer resolver.Close()

	h := &handlers.Handlers{
		Store:             store,
		PermissiveUpdates: cfg.PermissiveUpdates,
	}
	if cfg.PermissiveUpdates {
		logger.Info("running with permissive update merge, zero and empty update values are ignored")
	}

	router := gin.Default()

	router.Use(corsMiddleware())

	// health endpoint
	router.GET("/healthz", func(context *gin.Context) {
		context.JSON(http.StatusOK, gin.H{
			"message": "healthy",
		})
	})

	router.GET("/ping", func(context *gin.Context) {
		context.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	router.GET("/status", func(context *gin.Context) {
		context.JSON(http.StatusOK, gin.H{
			"message": "good",
		})
	})

	router.GET("/logLevel/:level", func(context *gin.Context) {
		err = setLogLevel(context.Param("level"), logLevel)
		if err != nil {
			logger.Error("can not set log level", "error", err)
			context.JSON(http.StatusInternalServerError, err.Error())
			return
		}
		context.JSON(http.StatusOK, gin.H{
			"current logLevel": logLevel.Level(),
		})
	})

	router.GET("/logLevel", func(context *gin.Context) {
		context.JSON(http.StatusOK, gin.H{
			"current logLevel": logLevel.Level(),
		})
	})

	//timecard routes - everything behind the principal resolver
	timecards := router.Group("/timecards", auth.Middleware(resolver))
	timecards.GET("", h.ListOwn)
	timecards.POST("", h.Create)
	timecards.GET("/all", h.ListAllGrouped)
	timecards.GET("/check-current-week", h.CheckCurrentWeek)
	timecards.PUT("/:id", h.Update)
	timecards.DELETE("/:id", h.Delete)
	timecards.PUT("/:id/complete", h.Complete)

	listeningPort := ":" + *port
	server := &http.Server{
		Addr:           listeningPort,
		MaxHeaderBytes: 1024 * 10,
	}

	router.Run(server.Addr)

}

func setLogLevel(level string, logLevel *slog.LevelVar) error {
	level = strings.ToLower(level)
	if level == "debug" {
		logLevel.Set(slog.LevelDebug)
	} else if level == "info" {
		logLevel.Set(slog.LevelInfo)
	} else if level == "warn" {
		logLevel.Set(slog.LevelWarn)
	} else if level == "error" {
		logLevel.Set(slog.LevelError)
	} else {
		return fmt.Errorf("the debug level must be one of (debug, info, warn, error) received %s", level)
	}
	return nil
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, x-auth-token")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

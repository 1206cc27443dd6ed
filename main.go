package main

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/ArtLeinich/tuya-sensor-monitoring/config"
	"github.com/ArtLeinich/tuya-sensor-monitoring/controllers"
	"github.com/ArtLeinich/tuya-sensor-monitoring/logging"
	"github.com/ArtLeinich/tuya-sensor-monitoring/scheduler"
	"github.com/ArtLeinich/tuya-sensor-monitoring/tuya"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	godotenv.Load()

	logger, err := logging.NewLogger()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Connect to PostgreSQL and migrate the readings table
	dsn := os.Getenv("DATABASE_URL")
	db, err := config.Connect(dsn)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Tuya API client used by the scheduler and the manual fetch endpoint
	source, err := tuya.NewClientFromEnv()
	if err != nil {
		logger.Fatal("Failed to configure Tuya client", zap.Error(err))
	}
	controllers.Init(source, logger)

	// Poll the sensor every FETCH_INTERVAL_MINUTES minutes
	interval := time.Duration(config.GetenvInt("FETCH_INTERVAL_MINUTES", 5)) * time.Minute
	scheduler.Start(db, source, interval, logger)

	// Set up Gin router with CORS configuration for the dashboard
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(config.Getenv("CORS_ORIGINS", "http://localhost:3000"), ","),
		AllowMethods:     []string{"GET", "POST", "DELETE"},
		AllowHeaders:     []string{"Content-Type"},
		AllowCredentials: true,
	}))

	r.GET("/api/sensor-data", controllers.GetSensorData)
	r.POST("/api/sensor-data/fetch", controllers.FetchSensorData)
	r.GET("/api/sensor-data/export", controllers.DownloadCSV)
	r.DELETE("/api/sensor-data/duplicates", controllers.CleanupDuplicates)
	r.GET("/api/sensor-graphs", controllers.GetSensorGraphs)
	r.GET("/healthz", controllers.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	port := config.Getenv("PORT", "8080")
	if err := r.Run(":" + port); err != nil {
		logger.Fatal("Server stopped", zap.Error(err))
	}
}

package controllers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ArtLeinich/tuya-sensor-monitoring/aggregate"
	"github.com/ArtLeinich/tuya-sensor-monitoring/config"
	"github.com/ArtLeinich/tuya-sensor-monitoring/models"
	"github.com/ArtLeinich/tuya-sensor-monitoring/scheduler"
	"github.com/ArtLeinich/tuya-sensor-monitoring/store"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	ingestSource scheduler.Source
	logger       = zap.NewNop()
)

// Init wires the controllers to the ingestion source and logger. Called
// once from main before the routes are registered.
func Init(source scheduler.Source, log *zap.Logger) {
	ingestSource = source
	logger = log
}

// GetSensorData returns stored readings newest-first with a pagination
// envelope.
func GetSensorData(c *gin.Context) {
	page, errPage := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, errLimit := strconv.Atoi(c.DefaultQuery("limit", "120"))
	if errPage != nil || errLimit != nil || page < 1 || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid pagination parameters"})
		return
	}

	readings, total, err := store.ListPaged(config.DB, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sensor data"})
		return
	}
	if readings == nil {
		readings = []models.Reading{}
	}

	offset := (page - 1) * limit
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	c.JSON(http.StatusOK, gin.H{
		"data": readings,
		"pagination": models.Pagination{
			Total:      total,
			Page:       page,
			Limit:      limit,
			TotalPages: totalPages,
			HasMore:    int64(offset+len(readings)) < total,
		},
	})
}

// GetSensorGraphs returns the bucketed chart series for a day, month or
// year around the requested date.
func GetSensorGraphs(c *gin.Context) {
	granularity := store.Granularity(c.DefaultQuery("range", "day"))

	reference := time.Now()
	if dateParam := c.Query("date"); dateParam != "" {
		parsed, err := time.Parse(time.RFC3339, dateParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date parameter"})
			return
		}
		reference = parsed.In(time.Local)
	}

	var start, end time.Time
	switch granularity {
	case store.GranularityDay:
		start, end = aggregate.DayRange(reference)
	case store.GranularityMonth:
		start, end = aggregate.MonthRange(reference)
	case store.GranularityYear:
		start, end = aggregate.YearRange(reference)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid range parameter"})
		return
	}

	readings, err := store.ListRange(config.DB, start, end, granularity)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sensor data"})
		return
	}

	c.JSON(http.StatusOK, aggregate.Series(readings, granularity, reference))
}

// FetchSensorData triggers one ingestion cycle outside the schedule.
func FetchSensorData(c *gin.Context) {
	outcome, err := scheduler.IngestOnce(config.DB, ingestSource, logger)
	if err != nil {
		logger.Error("manual ingestion failed", zap.Error(err))
		if errors.Is(err, scheduler.ErrSourceUnavailable) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch sensor data"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save sensor data"})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": string(outcome)})
}

// DownloadCSV sends all readings as a CSV file, newest-first.
func DownloadCSV(c *gin.Context) {
	var readings []models.Reading
	if err := config.DB.Order("created_at desc").Find(&readings).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sensor data"})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=sensor_data.csv")
	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write([]string{"timestamp", "temperature", "humidity"})
	for _, r := range readings {
		writer.Write([]string{
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%.1f", r.Temperature),
			fmt.Sprintf("%.1f", r.Humidity),
		})
	}
}

// CleanupDuplicates removes readings sharing a timestamp, keeping the
// first row per minute. Maintenance operation; the unique index keeps new
// data clean.
func CleanupDuplicates(c *gin.Context) {
	deleted, err := store.DeleteDuplicates(config.DB)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete duplicate records"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":       fmt.Sprintf("Successfully deleted %d duplicate records", deleted),
		"deleted_count": deleted,
	})
}

// Healthz reports whether the database is reachable.
func Healthz(c *gin.Context) {
	sqlDB, err := config.DB.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

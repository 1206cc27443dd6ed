package scheduler

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ArtLeinich/tuya-sensor-monitoring/models"
	"github.com/ArtLeinich/tuya-sensor-monitoring/store"
	"github.com/ArtLeinich/tuya-sensor-monitoring/tuya"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Source supplies the current device status datapoints. Implemented by
// *tuya.Client; tests substitute a fake.
type Source interface {
	FetchCurrentReading() ([]tuya.StatusItem, error)
}

// Outcome classifies a single ingestion cycle.
type Outcome string

const (
	OutcomeSaved     Outcome = "saved"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeSkipped   Outcome = "skipped"
)

const (
	codeTemperature = "va_temperature"
	codeHumidity    = "va_humidity"
)

// ErrSourceUnavailable wraps fetch failures so callers can tell an
// unreachable reading source apart from a persistence failure.
var ErrSourceUnavailable = errors.New("reading source unavailable")

var (
	mu      sync.Mutex
	running bool
)

// Start launches the periodic ingestion loop. It is idempotent: only the
// first call per process starts a ticker, repeat calls are logged no-ops.
// Returns whether this call started the loop.
func Start(db *gorm.DB, source Source, interval time.Duration, logger *zap.Logger) bool {
	mu.Lock()
	defer mu.Unlock()
	if running {
		logger.Warn("scheduler already running, ignoring duplicate start")
		return false
	}
	running = true

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			if _, err := IngestOnce(db, source, logger); err != nil {
				logger.Error("ingestion cycle failed", zap.Error(err))
			}
		}
	}()

	logger.Info("scheduler started", zap.Duration("interval", interval))
	return true
}

// IngestOnce runs one fetch-and-persist cycle. Every failure is terminal
// for the cycle only; the caller logs and waits for the next tick.
func IngestOnce(db *gorm.DB, source Source, logger *zap.Logger) (Outcome, error) {
	items, err := source.FetchCurrentReading()
	if err != nil {
		cyclesFailed.Inc()
		return "", fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	rawTemp, tempOK := findValue(items, codeTemperature)
	humidity, humOK := findValue(items, codeHumidity)
	if !tempOK || !humOK {
		cyclesSkipped.Inc()
		logger.Warn("temperature or humidity missing from device status, skipping cycle")
		return OutcomeSkipped, nil
	}

	reading := models.Reading{
		// The sensor reports tenths of a degree.
		Temperature: rawTemp / 10,
		Humidity:    humidity,
		CreatedAt:   time.Now().Truncate(time.Minute),
	}

	status, err := store.Insert(db, &reading)
	if err != nil {
		cyclesFailed.Inc()
		return "", fmt.Errorf("insert reading: %w", err)
	}
	if status == store.StatusDuplicate {
		readingsDuplicate.Inc()
		logger.Info("duplicate reading for this minute, skipping save",
			zap.Time("createdAt", reading.CreatedAt))
		return OutcomeDuplicate, nil
	}

	readingsSaved.Inc()
	logger.Info("sensor reading saved",
		zap.Float64("temperature", reading.Temperature),
		zap.Float64("humidity", reading.Humidity),
		zap.Time("createdAt", reading.CreatedAt))
	return OutcomeSaved, nil
}

func findValue(items []tuya.StatusItem, code string) (float64, bool) {
	for _, item := range items {
		if item.Code == code {
			return item.Value, true
		}
	}
	return 0, false
}

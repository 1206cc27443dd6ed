package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/ArtLeinich/tuya-sensor-monitoring/models"
	"github.com/ArtLeinich/tuya-sensor-monitoring/store"
	"github.com/ArtLeinich/tuya-sensor-monitoring/tuya"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeSource struct {
	items []tuya.StatusItem
	err   error
}

func (f *fakeSource) FetchCurrentReading() ([]tuya.StatusItem, error) {
	return f.items, f.err
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Discard,
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("underlying db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.Reading{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestIngestOnceSavesReading(t *testing.T) {
	db := setupTestDB(t)
	source := &fakeSource{items: []tuya.StatusItem{
		{Code: "va_temperature", Value: 215},
		{Code: "va_humidity", Value: 47},
		{Code: "battery_state", Value: 100},
	}}

	outcome, err := IngestOnce(db, source, zap.NewNop())
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if outcome != OutcomeSaved {
		t.Fatalf("outcome: got %q, want saved", outcome)
	}

	var stored models.Reading
	if err := db.First(&stored).Error; err != nil {
		t.Fatalf("load reading: %v", err)
	}
	if stored.Temperature != 21.5 {
		t.Errorf("temperature: got %v, want 21.5 (raw tenths 215 divided by 10)", stored.Temperature)
	}
	if stored.Humidity != 47 {
		t.Errorf("humidity: got %v, want 47", stored.Humidity)
	}
	if stored.CreatedAt.Second() != 0 || stored.CreatedAt.Nanosecond() != 0 {
		t.Errorf("createdAt not rounded to the minute: %v", stored.CreatedAt)
	}
}

func TestIngestOnceDuplicateMinute(t *testing.T) {
	db := setupTestDB(t)
	source := &fakeSource{items: []tuya.StatusItem{
		{Code: "va_temperature", Value: 215},
		{Code: "va_humidity", Value: 47},
	}}

	if _, err := store.Insert(db, &models.Reading{
		Temperature: 21.5,
		Humidity:    47,
		CreatedAt:   time.Now().Truncate(time.Minute),
	}); err != nil {
		t.Fatalf("seed reading: %v", err)
	}

	outcome, err := IngestOnce(db, source, zap.NewNop())
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if outcome != OutcomeDuplicate {
		t.Fatalf("outcome: got %q, want duplicate", outcome)
	}

	total, err := store.Count(db)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 1 {
		t.Fatalf("count: got %d rows, want 1", total)
	}
}

func TestIngestOnceMissingField(t *testing.T) {
	db := setupTestDB(t)
	source := &fakeSource{items: []tuya.StatusItem{
		{Code: "va_humidity", Value: 47},
	}}

	outcome, err := IngestOnce(db, source, zap.NewNop())
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if outcome != OutcomeSkipped {
		t.Fatalf("outcome: got %q, want skipped", outcome)
	}

	total, err := store.Count(db)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 0 {
		t.Fatalf("count: got %d rows, want 0 (no partial reading persisted)", total)
	}
}

func TestIngestOnceSourceFailure(t *testing.T) {
	db := setupTestDB(t)
	source := &fakeSource{err: errors.New("connection refused")}

	_, err := IngestOnce(db, source, zap.NewNop())
	if err == nil {
		t.Fatal("expected error when the source is unavailable")
	}
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("error should wrap ErrSourceUnavailable, got %v", err)
	}

	total, err := store.Count(db)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if total != 0 {
		t.Fatalf("count: got %d rows, want 0", total)
	}
}

func TestIngestOncePersistenceFailure(t *testing.T) {
	db := setupTestDB(t)
	source := &fakeSource{items: []tuya.StatusItem{
		{Code: "va_temperature", Value: 215},
		{Code: "va_humidity", Value: 47},
	}}

	if err := db.Migrator().DropTable(&models.Reading{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	_, err := IngestOnce(db, source, zap.NewNop())
	if err == nil {
		t.Fatal("expected error when the insert fails")
	}
	if errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("persistence failure must not report the source as unavailable, got %v", err)
	}
}

func TestStartIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	source := &fakeSource{}

	mu.Lock()
	running = false
	mu.Unlock()

	if !Start(db, source, time.Hour, zap.NewNop()) {
		t.Fatal("first Start should launch the scheduler")
	}
	if Start(db, source, time.Hour, zap.NewNop()) {
		t.Fatal("second Start must not launch a second ticker")
	}
}

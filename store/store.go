package store

import (
	"errors"
	"time"

	"github.com/ArtLeinich/tuya-sensor-monitoring/models"

	"gorm.io/gorm"
)

// Granularity selects how ListRange filters readings.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityMonth Granularity = "month"
	GranularityYear  Granularity = "year"
)

// Status is the outcome of an insert attempt.
type Status int

const (
	StatusInserted Status = iota
	StatusDuplicate
)

// Insert persists a reading, relying on the unique index on created_at to
// reject a second reading for the same minute. A unique violation is a
// normal outcome (StatusDuplicate, nil error); anything else is returned
// to the caller.
func Insert(db *gorm.DB, r *models.Reading) (Status, error) {
	if err := db.Create(r).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return StatusDuplicate, nil
		}
		return StatusInserted, err
	}
	return StatusInserted, nil
}

// ListPaged returns readings newest-first for the given 1-based page along
// with the total row count. Parameter validation happens at the handler
// boundary.
func ListPaged(db *gorm.DB, page, limit int) ([]models.Reading, int64, error) {
	var total int64
	if err := db.Model(&models.Reading{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	var readings []models.Reading
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&readings).Error; err != nil {
		return nil, 0, err
	}
	return readings, total, nil
}

// ListRange returns readings in [start, end] ordered oldest-first. For the
// day granularity the result is collapsed to the latest reading per hour;
// month and year return every raw reading so the aggregator can average
// them.
func ListRange(db *gorm.DB, start, end time.Time, g Granularity) ([]models.Reading, error) {
	var readings []models.Reading
	err := db.Where("created_at >= ? AND created_at <= ?", start, end).
		Order("created_at asc").
		Find(&readings).Error
	if err != nil {
		return nil, err
	}
	if g == GranularityDay {
		return latestPerHour(readings), nil
	}
	return readings, nil
}

// latestPerHour keeps one reading per hour, the most recent. Input must be
// ordered oldest-first.
func latestPerHour(readings []models.Reading) []models.Reading {
	deduped := make([]models.Reading, 0, len(readings))
	for _, r := range readings {
		hour := startOfHour(r.CreatedAt)
		if n := len(deduped); n > 0 && startOfHour(deduped[n-1].CreatedAt).Equal(hour) {
			deduped[n-1] = r
			continue
		}
		deduped = append(deduped, r)
	}
	return deduped
}

// startOfHour truncates to the wall-clock hour in the reading's location.
// The chart buckets by hour-of-day, so the dedup window must align with
// the displayed hour even in zones not offset by whole hours.
func startOfHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// Count returns the total number of stored readings.
func Count(db *gorm.DB) (int64, error) {
	var total int64
	err := db.Model(&models.Reading{}).Count(&total).Error
	return total, err
}

// DeleteDuplicates removes readings sharing a created_at, keeping the
// lowest id per timestamp. The unique index makes this unnecessary for
// rows written through Insert; it repairs data ingested before the index
// existed.
func DeleteDuplicates(db *gorm.DB) (int64, error) {
	result := db.Exec(`DELETE FROM readings WHERE id NOT IN (
		SELECT MIN(id) FROM readings GROUP BY created_at
	)`)
	return result.RowsAffected, result.Error
}

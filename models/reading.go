package models

import "time"

// Reading is a single temperature/humidity sample from the Tuya sensor.
// CreatedAt is rounded down to the minute at ingestion time and carries a
// unique index, so at most one reading exists per minute.
type Reading struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Temperature float64   `json:"temperature"`
	Humidity    float64   `json:"humidity"`
	CreatedAt   time.Time `json:"createdAt" gorm:"uniqueIndex;not null"`
}

// Pagination describes the paging envelope returned alongside listings.
type Pagination struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
	HasMore    bool  `json:"hasMore"`
}

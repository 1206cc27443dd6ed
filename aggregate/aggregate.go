package aggregate

import (
	"fmt"
	"time"

	"github.com/ArtLeinich/tuya-sensor-monitoring/models"
	"github.com/ArtLeinich/tuya-sensor-monitoring/store"
)

// Point is one chart bucket. Temperature and Humidity are nil when no
// reading fell into the bucket; the frontend renders gaps instead of
// interpolating across them.
type Point struct {
	Label       string   `json:"timestamp"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
}

// Series buckets readings for charting. Day produces 24 hourly buckets
// (last reading per hour wins), month one bucket per calendar day of the
// reference month (mean), year 12 monthly buckets (mean). An empty input
// yields an empty series so the frontend can distinguish "no data" from a
// sparse range.
func Series(readings []models.Reading, g store.Granularity, reference time.Time) []Point {
	if len(readings) == 0 {
		return []Point{}
	}

	switch g {
	case store.GranularityDay:
		return hourlySeries(readings)
	case store.GranularityMonth:
		return dailySeries(readings, reference)
	case store.GranularityYear:
		return monthlySeries(readings)
	default:
		return []Point{}
	}
}

func hourlySeries(readings []models.Reading) []Point {
	points := make([]Point, 24)
	for i := range points {
		points[i].Label = fmt.Sprintf("%02d:00", i)
	}
	for _, r := range readings {
		hour := r.CreatedAt.Hour()
		t, h := r.Temperature, r.Humidity
		points[hour].Temperature = &t
		points[hour].Humidity = &h
	}
	return points
}

type bucketSum struct {
	temp  float64
	hum   float64
	count int
}

func dailySeries(readings []models.Reading, reference time.Time) []Point {
	sums := make(map[int]*bucketSum)
	for _, r := range readings {
		day := r.CreatedAt.Day()
		if sums[day] == nil {
			sums[day] = &bucketSum{}
		}
		sums[day].temp += r.Temperature
		sums[day].hum += r.Humidity
		sums[day].count++
	}

	points := make([]Point, daysInMonth(reference))
	for i := range points {
		day := i + 1
		points[i].Label = fmt.Sprintf("%02d", day)
		if s := sums[day]; s != nil {
			t := s.temp / float64(s.count)
			h := s.hum / float64(s.count)
			points[i].Temperature = &t
			points[i].Humidity = &h
		}
	}
	return points
}

func monthlySeries(readings []models.Reading) []Point {
	sums := make(map[time.Month]*bucketSum)
	for _, r := range readings {
		month := r.CreatedAt.Month()
		if sums[month] == nil {
			sums[month] = &bucketSum{}
		}
		sums[month].temp += r.Temperature
		sums[month].hum += r.Humidity
		sums[month].count++
	}

	points := make([]Point, 12)
	for i := range points {
		month := time.Month(i + 1)
		points[i].Label = month.String()[:3]
		if s := sums[month]; s != nil {
			t := s.temp / float64(s.count)
			h := s.hum / float64(s.count)
			points[i].Temperature = &t
			points[i].Humidity = &h
		}
	}
	return points
}

func daysInMonth(reference time.Time) int {
	// Day 0 of the next month is the last day of this month.
	return time.Date(reference.Year(), reference.Month()+1, 0, 0, 0, 0, 0, reference.Location()).Day()
}

// DayRange returns the inclusive bounds of the calendar day around reference.
func DayRange(reference time.Time) (time.Time, time.Time) {
	start := time.Date(reference.Year(), reference.Month(), reference.Day(), 0, 0, 0, 0, reference.Location())
	return start, start.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// MonthRange returns the inclusive bounds of the calendar month around reference.
func MonthRange(reference time.Time) (time.Time, time.Time) {
	start := time.Date(reference.Year(), reference.Month(), 1, 0, 0, 0, 0, reference.Location())
	return start, start.AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// YearRange returns the inclusive bounds of the calendar year around reference.
func YearRange(reference time.Time) (time.Time, time.Time) {
	start := time.Date(reference.Year(), time.January, 1, 0, 0, 0, 0, reference.Location())
	return start, start.AddDate(1, 0, 0).Add(-time.Nanosecond)
}

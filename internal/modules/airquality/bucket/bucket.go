// Package bucket maps record time fields onto the discrete keys used for
// grouping: month, week of month and meteorological season.
package bucket

import (
	"errors"
	"fmt"

	"airquality-server/internal/modules/airquality/types"
)

// ErrInvalidInput reports a day or month outside its calendar domain.
var ErrInvalidInput = errors.New("invalid input")

type Season string

const (
	Winter Season = "Winter"
	Spring Season = "Spring"
	Summer Season = "Summer"
	Fall   Season = "Fall"
)

// Seasons lists the labels in calendar order starting with Winter.
var Seasons = []Season{Winter, Spring, Summer, Fall}

// SeasonOf uses the northern-hemisphere mapping: Dec-Feb Winter, Mar-May
// Spring, Jun-Aug Summer, Sep-Nov Fall.
func SeasonOf(month int) (Season, error) {
	switch month {
	case 12, 1, 2:
		return Winter, nil
	case 3, 4, 5:
		return Spring, nil
	case 6, 7, 8:
		return Summer, nil
	case 9, 10, 11:
		return Fall, nil
	default:
		return "", fmt.Errorf("month %d out of range 1-12: %w", month, ErrInvalidInput)
	}
}

// WeekOf splits a month into four buckets; the last one absorbs days 22-31.
func WeekOf(day int) (int, error) {
	switch {
	case day >= 1 && day <= 7:
		return 1, nil
	case day >= 8 && day <= 14:
		return 2, nil
	case day >= 15 && day <= 21:
		return 3, nil
	case day >= 22 && day <= 31:
		return 4, nil
	default:
		return 0, fmt.Errorf("day %d out of range 1-31: %w", day, ErrInvalidInput)
	}
}

func ByMonth(r types.Record) (int, error) {
	if r.Month < 1 || r.Month > 12 {
		return 0, fmt.Errorf("month %d out of range 1-12: %w", r.Month, ErrInvalidInput)
	}
	return r.Month, nil
}

func ByWeek(r types.Record) (int, error) {
	return WeekOf(r.Day)
}

func BySeason(r types.Record) (Season, error) {
	return SeasonOf(r.Month)
}

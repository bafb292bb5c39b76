package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DayCount names an accrual day count convention.
type DayCount string

const (
	ACT360     DayCount = "ACT/360"
	ACT365F    DayCount = "ACT/365F"
	Thirty360E DayCount = "30E/360"
	ACTACTICMA DayCount = "ACT/ACT ICMA"
)

// ErrUnknownDayCount is returned for conventions YearFraction does not support.
var ErrUnknownDayCount = errors.New("unknown day count convention")

// ParseDayCount accepts the canonical names plus the common aliases used by data feeds.
func ParseDayCount(s string) (DayCount, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ACT/360", "A360":
		return ACT360, nil
	case "ACT/365F", "ACT/365", "A365F":
		return ACT365F, nil
	case "30E/360", "30/360":
		return Thirty360E, nil
	case "ACT/ACT ICMA", "ACT/ACT", "ACTACT":
		return ACTACTICMA, nil
	default:
		return "", fmt.Errorf("ParseDayCount: %q: %w", s, ErrUnknownDayCount)
	}
}

// YearFraction computes the accrual fraction between two dates.
//
// ACT/ACT ICMA is evaluated against annual reference periods anchored on end:
// whole years are counted back from end, and the remaining stub is divided by
// the actual length of the reference year that contains it.
func YearFraction(start, end time.Time, convention DayCount) (float64, error) {
	switch convention {
	case ACT360:
		return Days(start, end) / 360.0, nil
	case ACT365F:
		return Days(start, end) / 365.0, nil
	case Thirty360E:
		d1 := min(start.Day(), 30)
		d2 := min(end.Day(), 30)
		y1, m1 := start.Year(), int(start.Month())
		y2, m2 := end.Year(), int(end.Month())
		return float64(360*(y2-y1)+30*(m2-m1)+(d2-d1)) / 360.0, nil
	case ACTACTICMA:
		return actActICMA(start, end), nil
	default:
		return 0, fmt.Errorf("YearFraction: %q: %w", convention, ErrUnknownDayCount)
	}
}

func actActICMA(start, end time.Time) float64 {
	if !end.After(start) {
		return -actActICMA(end, start)
	}
	years := 0
	anchor := end
	for {
		prev := AddMonth(end, -12*(years+1))
		if prev.Before(start) {
			break
		}
		years++
		anchor = prev
	}
	if anchor.Equal(start) {
		return float64(years)
	}
	ref := AddMonth(end, -12*(years+1))
	return float64(years) + Days(start, anchor)/Days(ref, anchor)
}

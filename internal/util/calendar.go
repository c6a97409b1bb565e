package util

import (
	"time"

	"marlin/internal/domain"
)

// Regular US session boundaries, minutes from midnight Eastern.
const (
	usOpenMinute  = 9*60 + 30
	usCloseMinute = 16 * 60
)

// TradingCalendar provides market-hours awareness for a specific market.
// Weekends are respected; exchange holidays are not.
// TODO: load the NYSE holiday schedule so holidays and half days close
// the calendar.
type TradingCalendar struct {
	market domain.Market
	loc    *time.Location
}

// NewTradingCalendar creates a TradingCalendar for the given market.
func NewTradingCalendar(market domain.Market) *TradingCalendar {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.FixedZone("ET", -5*60*60)
	}
	return &TradingCalendar{
		market: market,
		loc:    loc,
	}
}

// IsMarketOpen returns whether the regular session is open at time t.
func (tc *TradingCalendar) IsMarketOpen(t time.Time) bool {
	local := t.In(tc.loc)
	if !isWeekday(local) {
		return false
	}
	minute := local.Hour()*60 + local.Minute()
	return minute >= usOpenMinute && minute < usCloseMinute
}

// NextOpen returns the next session open strictly after t.
func (tc *TradingCalendar) NextOpen(t time.Time) time.Time {
	local := t.In(tc.loc)
	open := sessionTime(local, usOpenMinute)
	for !open.After(local) || !isWeekday(open) {
		open = sessionTime(open.AddDate(0, 0, 1), usOpenMinute)
	}
	return open
}

// NextClose returns the next session close strictly after t.
func (tc *TradingCalendar) NextClose(t time.Time) time.Time {
	local := t.In(tc.loc)
	closeAt := sessionTime(local, usCloseMinute)
	for !closeAt.After(local) || !isWeekday(closeAt) {
		closeAt = sessionTime(closeAt.AddDate(0, 0, 1), usCloseMinute)
	}
	return closeAt
}

func isWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func sessionTime(t time.Time, minuteOfDay int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), minuteOfDay/60, minuteOfDay%60, 0, 0, t.Location())
}

package service

import (
	"fmt"
	"time"

	"github.com/ikkim/annualreport-backend/config"
	"github.com/ikkim/annualreport-backend/internal/app/model"
)

// Clock returns the current instant. Tests substitute a fixed one.
type Clock func() time.Time

// SeasonCalendar answers date questions in the practice's time zone.
// All civil dates it returns are at UTC midnight so they compare with stored deadlines.
type SeasonCalendar struct {
	loc      *time.Location
	now      Clock
	standard monthDay
	extended monthDay
}

type monthDay struct {
	month time.Month
	day   int
}

func parseMonthDay(s string) (monthDay, error) {
	t, err := time.Parse("01-02", s)
	if err != nil {
		return monthDay{}, fmt.Errorf("invalid month-day %q: %w", s, err)
	}
	return monthDay{month: t.Month(), day: t.Day()}, nil
}

func NewSeasonCalendar(cfg config.SeasonConfig, now Clock) (*SeasonCalendar, error) {
	standard, err := parseMonthDay(cfg.StandardDeadline)
	if err != nil {
		return nil, err
	}
	extended, err := parseMonthDay(cfg.ExtendedDeadline)
	if err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &SeasonCalendar{
		loc:      cfg.Location(),
		now:      now,
		standard: standard,
		extended: extended,
	}, nil
}

// Now returns the current instant in UTC.
func (c *SeasonCalendar) Now() time.Time {
	return c.now().UTC()
}

// Today returns the current civil date in the practice's zone.
func (c *SeasonCalendar) Today() time.Time {
	return civilDate(c.now().In(c.loc))
}

// DefaultDeadline returns the statutory deadline for the tax year, or false
// when the deadline type has no default.
func (c *SeasonCalendar) DefaultDeadline(deadlineType model.DeadlineType, taxYear int) (time.Time, bool) {
	var md monthDay
	switch deadlineType {
	case model.DeadlineStandard:
		md = c.standard
	case model.DeadlineExtended:
		md = c.extended
	default:
		return time.Time{}, false
	}
	return time.Date(taxYear+1, md.month, md.day, 0, 0, 0, 0, time.UTC), true
}

// DaysUntil counts calendar days from today to date; negative when date has passed.
func (c *SeasonCalendar) DaysUntil(date time.Time) int {
	return int(civilDate(date).Sub(c.Today()).Hours() / 24)
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

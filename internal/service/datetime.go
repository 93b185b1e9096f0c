package service

import (
	"errors"
	"strings"
	"time"
	_ "time/tzdata"
)

// CivilZone is the timezone in which booking dates are interpreted and
// displayed.
const CivilZone = "America/Guayaquil"

// CivilLayout renders dates as dd/MM/yyyy HH:mm:ss.
const CivilLayout = "02/01/2006 15:04:05"

var civilLoc = mustLoadLocation(CivilZone)

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// Layouts that carry their own offset.
var offsetLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
}

// Layouts without an offset, read as civil time.
var civilLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

var errInvalidDate = errors.New("invalid date format")

// ParseCivilDate parses an ISO-8601 date or date-time.  Values without an
// offset are read in the civil zone.  The result is an absolute instant.
func ParseCivilDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errInvalidDate
	}
	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range civilLayouts {
		if t, err := time.ParseInLocation(layout, s, civilLoc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errInvalidDate
}

// FormatCivil renders t in the civil zone.
func FormatCivil(t time.Time) string {
	return t.In(civilLoc).Format(CivilLayout)
}

// StartOfCivilDay returns midnight of t's day in the civil zone.
func StartOfCivilDay(t time.Time) time.Time {
	c := t.In(civilLoc)
	return time.Date(c.Year(), c.Month(), c.Day(), 0, 0, 0, 0, civilLoc)
}

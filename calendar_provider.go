package main

import (
	"context"
	"encoding/json"
	"time"
)

type CalendarProvider interface {
	ListCalendars(ctx context.Context) ([]CalendarInfo, error)
	ListUpcomingEvents(ctx context.Context, calendarID string, timeMin time.Time, maxResults int64) ([]*Event, error)
}

// CalendarInfo is one calendar visible to the authenticated identity.
type CalendarInfo struct {
	ID          string
	Summary     string
	Description string
}

// EventTime is a point in time together with the zone it should be shown in.
// All-day events carry Date instead of DateTime.
type EventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

// Instant returns the instant used for range filtering and ordering.
func (t EventTime) Instant() (time.Time, error) {
	if t.DateTime != "" {
		return time.Parse(time.RFC3339, t.DateTime)
	}
	loc := time.UTC
	if t.TimeZone != "" {
		if l, err := time.LoadLocation(t.TimeZone); err == nil {
			loc = l
		}
	}
	return time.ParseInLocation(time.DateOnly, t.Date, loc)
}

type Event struct {
	ID               string
	Summary          string
	Start            EventTime
	End              EventTime
	RecurringEventID string
	// Document is the record as the provider returned it.
	Document json.RawMessage
}

// EventProjection is the subset of an event served to clients.
type EventProjection struct {
	ID               string    `json:"id"`
	Summary          string    `json:"summary"`
	Start            EventTime `json:"start"`
	End              EventTime `json:"end"`
	RecurringEventID string    `json:"recurringEventId,omitempty"`
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/teambition/rrule-go"
)

// caldavHorizon bounds the time-range query and recurrence expansion.
const caldavHorizon = 366 * 24 * time.Hour

type CalDAVProvider struct {
	client   *caldav.Client
	homeSet  string
	location *time.Location
}

func NewCalDAVProvider(ctx context.Context, cfg CalDAVConfig) (*CalDAVProvider, error) {
	baseURL, err := url.Parse(cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid CalDAV server URL: %w", err)
	}

	var httpClient webdav.HTTPClient = http.DefaultClient
	if cfg.Username != "" && cfg.Password != "" {
		httpClient = webdav.HTTPClientWithBasicAuth(httpClient, cfg.Username, cfg.Password)
	}

	c, err := caldav.NewClient(httpClient, baseURL.String())
	if err != nil {
		return nil, fmt.Errorf("failed to create CalDAV client: %w", err)
	}

	homeSet := cfg.HomeSet
	if homeSet == "" {
		principal, err := c.FindCurrentUserPrincipal(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to find CalDAV principal: %w", err)
		}
		homeSet, err = c.FindCalendarHomeSet(ctx, principal)
		if err != nil {
			return nil, fmt.Errorf("failed to find calendar home set: %w", err)
		}
	}

	loc := time.UTC
	if cfg.TimeZone != "" {
		loc, err = time.LoadLocation(cfg.TimeZone)
		if err != nil {
			return nil, fmt.Errorf("invalid CalDAV time zone %q: %w", cfg.TimeZone, err)
		}
	}

	return &CalDAVProvider{
		client:   c,
		homeSet:  homeSet,
		location: loc,
	}, nil
}

func (c *CalDAVProvider) ListCalendars(ctx context.Context) ([]CalendarInfo, error) {
	calendars, err := c.client.FindCalendars(ctx, c.homeSet)
	if err != nil {
		return nil, fmt.Errorf("failed to find calendars: %w", err)
	}

	result := make([]CalendarInfo, 0, len(calendars))
	for _, cal := range calendars {
		result = append(result, CalendarInfo{
			ID:          cal.Path,
			Summary:     cal.Name,
			Description: cal.Description,
		})
	}
	return result, nil
}

func (c *CalDAVProvider) ListUpcomingEvents(ctx context.Context, calendarID string, timeMin time.Time, maxResults int64) ([]*Event, error) {
	timeMax := timeMin.Add(caldavHorizon)
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     "VCALENDAR",
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: timeMin,
				End:   timeMax,
			}},
		},
	}

	objects, err := c.client.QueryCalendar(ctx, calendarID, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	var result []*Event
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		events, err := expandCalendarObject(obj.Data, timeMin, timeMax, c.location)
		if err != nil {
			return nil, fmt.Errorf("failed to expand %s: %w", obj.Path, err)
		}
		result = append(result, events...)
	}

	sortEventsByStart(result)
	if maxResults > 0 && int64(len(result)) > maxResults {
		result = result[:maxResults]
	}
	return result, nil
}

// expandCalendarObject turns the VEVENTs of one calendar object into single
// events starting within [timeMin, timeMax]. Recurring masters are expanded
// and RECURRENCE-ID overrides replace the generated occurrence.
func expandCalendarObject(cal *ical.Calendar, timeMin, timeMax time.Time, loc *time.Location) ([]*Event, error) {
	var masters []*ical.Component
	overrides := make(map[string]map[int64]*ical.Component)

	for _, comp := range cal.Children {
		if comp.Name != ical.CompEvent {
			continue
		}
		if comp.Props.Get(ical.PropRecurrenceID) == nil {
			masters = append(masters, comp)
			continue
		}
		recurrenceID, err := comp.Props.DateTime(ical.PropRecurrenceID, loc)
		if err != nil {
			return nil, err
		}
		uid := getTextProp(comp.Props, ical.PropUID)
		if overrides[uid] == nil {
			overrides[uid] = make(map[int64]*ical.Component)
		}
		overrides[uid][recurrenceID.Unix()] = comp
	}

	var result []*Event
	inWindow := func(start time.Time) bool {
		return !start.Before(timeMin) && !start.After(timeMax)
	}

	for _, master := range masters {
		uid := getTextProp(master.Props, ical.PropUID)
		set, err := master.RecurrenceSet(loc)
		if err != nil {
			return nil, err
		}

		if set == nil {
			event, err := eventFromComponent(master, uid, "", loc)
			if err != nil {
				return nil, err
			}
			if start, err := event.Start.Instant(); err == nil && inWindow(start) {
				result = append(result, event)
			}
			continue
		}

		duration, err := componentDuration(master, loc)
		if err != nil {
			return nil, err
		}
		for _, occurrence := range occurrencesBetween(set, timeMin, timeMax) {
			id := occurrenceID(uid, occurrence)
			if override, ok := overrides[uid][occurrence.Unix()]; ok {
				delete(overrides[uid], occurrence.Unix())
				event, err := eventFromComponent(override, id, uid, loc)
				if err != nil {
					return nil, err
				}
				if start, err := event.Start.Instant(); err == nil && inWindow(start) {
					result = append(result, event)
				}
				continue
			}
			event, err := eventFromComponent(master, id, uid, loc)
			if err != nil {
				return nil, err
			}
			allDay := isDateValue(master.Props.Get(ical.PropDateTimeStart))
			event.Start = eventTimeFromICal(occurrence, allDay, event.Start.TimeZone)
			event.End = eventTimeFromICal(occurrence.Add(duration), allDay, event.End.TimeZone)
			result = append(result, event)
		}
	}

	// Overrides moved into the window from an occurrence outside it.
	for uid, byID := range overrides {
		for recurrenceID, comp := range byID {
			event, err := eventFromComponent(comp, occurrenceID(uid, time.Unix(recurrenceID, 0)), uid, loc)
			if err != nil {
				return nil, err
			}
			if start, err := event.Start.Instant(); err == nil && inWindow(start) {
				result = append(result, event)
			}
		}
	}

	return result, nil
}

func occurrencesBetween(set *rrule.Set, timeMin, timeMax time.Time) []time.Time {
	return set.Between(timeMin, timeMax, true)
}

// occurrenceID follows Google's "<uid>_<start in UTC>" instance id format.
func occurrenceID(uid string, start time.Time) string {
	return uid + "_" + start.UTC().Format("20060102T150405Z")
}

func componentDuration(comp *ical.Component, loc *time.Location) (time.Duration, error) {
	start, err := comp.Props.DateTime(ical.PropDateTimeStart, loc)
	if err != nil {
		return 0, err
	}
	if comp.Props.Get(ical.PropDateTimeEnd) == nil {
		return 0, nil
	}
	end, err := comp.Props.DateTime(ical.PropDateTimeEnd, loc)
	if err != nil {
		return 0, err
	}
	return end.Sub(start), nil
}

func eventFromComponent(comp *ical.Component, id, recurringEventID string, loc *time.Location) (*Event, error) {
	startProp := comp.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return nil, fmt.Errorf("event %s has no DTSTART", id)
	}
	start, err := comp.Props.DateTime(ical.PropDateTimeStart, loc)
	if err != nil {
		return nil, err
	}
	end := start
	endProp := comp.Props.Get(ical.PropDateTimeEnd)
	if endProp != nil {
		end, err = comp.Props.DateTime(ical.PropDateTimeEnd, loc)
		if err != nil {
			return nil, err
		}
	}

	event := &Event{
		ID:               id,
		Summary:          getTextProp(comp.Props, ical.PropSummary),
		Start:            eventTimeFromICal(start, isDateValue(startProp), timeZoneOf(startProp, loc)),
		End:              eventTimeFromICal(end, isDateValue(startProp), timeZoneOf(endProp, loc)),
		RecurringEventID: recurringEventID,
	}

	document, err := json.Marshal(EventProjection{
		ID:               event.ID,
		Summary:          event.Summary,
		Start:            event.Start,
		End:              event.End,
		RecurringEventID: event.RecurringEventID,
	})
	if err != nil {
		return nil, err
	}
	event.Document = document
	return event, nil
}

func eventTimeFromICal(t time.Time, allDay bool, timeZone string) EventTime {
	if allDay {
		return EventTime{Date: t.Format(time.DateOnly), TimeZone: timeZone}
	}
	return EventTime{DateTime: t.Format(time.RFC3339), TimeZone: timeZone}
}

func isDateValue(prop *ical.Prop) bool {
	return prop != nil && prop.ValueType() == ical.ValueDate
}

func timeZoneOf(prop *ical.Prop, loc *time.Location) string {
	if prop != nil {
		if tzid := prop.Params.Get(ical.ParamTimezoneID); tzid != "" {
			return tzid
		}
	}
	return loc.String()
}

func sortEventsByStart(events []*Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, _ := events[i].Start.Instant()
		b, _ := events[j].Start.Instant()
		return a.Before(b)
	})
}

func getTextProp(props ical.Props, name string) string {
	prop := props.Get(name)
	if prop == nil {
		return ""
	}
	return prop.Value
}

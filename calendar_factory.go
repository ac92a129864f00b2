package main

import (
	"context"
	"database/sql"
	"fmt"
)

// CalendarFactory creates the configured calendar provider
type CalendarFactory struct {
	config *Config
	db     *sql.DB
	ctx    context.Context
}

// NewCalendarFactory creates a new calendar factory instance
func NewCalendarFactory(ctx context.Context, config *Config, db *sql.DB) *CalendarFactory {
	return &CalendarFactory{
		config: config,
		db:     db,
		ctx:    ctx,
	}
}

// CreateCalendarProvider creates the provider named by the config
func (cf *CalendarFactory) CreateCalendarProvider() (CalendarProvider, error) {
	switch cf.config.Provider {
	case "google":
		client, err := getClient(cf.ctx, newOAuthConfig(cf.config), cf.db, cf.config.AccountName)
		if err != nil {
			return nil, err
		}
		return NewGoogleCalendarProvider(cf.ctx, client)

	case "caldav":
		if cf.config.CalDAV.ServerURL == "" {
			return nil, fmt.Errorf("no CalDAV server_url configured")
		}
		return NewCalDAVProvider(cf.ctx, cf.config.CalDAV)

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cf.config.Provider)
	}
}

// ResolveSyncer creates the provider, finds the classroom calendar and
// binds both to store.
func (cf *CalendarFactory) ResolveSyncer(store *EventStore) (*Syncer, error) {
	provider, err := cf.CreateCalendarProvider()
	if err != nil {
		return nil, fmt.Errorf("error creating calendar provider: %w", err)
	}

	calendarID, err := resolveCalendarID(cf.ctx, provider, cf.config.CalendarDescription)
	if err != nil {
		return nil, err
	}
	printVerbosely(1, "📅 Using calendar: %s\n", calendarID)

	return NewSyncer(provider, store, calendarID), nil
}

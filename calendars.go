package main

import (
	"context"
	"errors"
	"fmt"
	"log"
)

var errCalendarNotFound = errors.New("calendar not found")

// resolveCalendarID returns the id of the first calendar whose description
// is exactly description.
func resolveCalendarID(ctx context.Context, provider CalendarProvider, description string) (string, error) {
	calendars, err := provider.ListCalendars(ctx)
	if err != nil {
		return "", err
	}

	for _, cal := range calendars {
		if cal.Description == description {
			return cal.ID, nil
		}
	}

	return "", fmt.Errorf("%w: no calendar has description %q; set it on the classroom calendar or change calendar_description", errCalendarNotFound, description)
}

func listCalendars(config *Config) {
	db, err := openDB(config.databasePath())
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	provider, err := NewCalendarFactory(ctx, config, db).CreateCalendarProvider()
	if err != nil {
		log.Fatalf("Error creating calendar provider: %v", err)
	}

	calendars, err := provider.ListCalendars(ctx)
	if err != nil {
		log.Fatalf("❌ Error listing calendars: %v", err)
	}

	fmt.Printf("📋 Calendars visible to %s (%s):\n", config.AccountName, config.Provider)
	found := false
	for _, cal := range calendars {
		marker := "  "
		if !found && cal.Description == config.CalendarDescription {
			marker = "👉"
			found = true
		}
		fmt.Printf("  %s %s (📅 %s) %q\n", marker, cal.Summary, cal.ID, cal.Description)
	}
	if !found {
		fmt.Printf("❗️ No calendar has description %q\n", config.CalendarDescription)
	}
}

package main

import (
	"context"
	"errors"
	"testing"
)

func TestResolveCalendarID(t *testing.T) {
	tests := []struct {
		name      string
		calendars []CalendarInfo
		want      string
	}{
		{
			name: "match after non-matching",
			calendars: []CalendarInfo{
				{ID: "a", Description: "x"},
				{ID: "b", Description: "classroom-cal"},
			},
			want: "b",
		},
		{
			name: "match before non-matching",
			calendars: []CalendarInfo{
				{ID: "b", Description: "classroom-cal"},
				{ID: "a", Description: "x"},
			},
			want: "b",
		},
		{
			name: "first of several matches",
			calendars: []CalendarInfo{
				{ID: "c", Description: ""},
				{ID: "d", Description: "classroom-cal"},
				{ID: "e", Description: "classroom-cal"},
			},
			want: "d",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveCalendarID(context.Background(), &fakeProvider{calendars: tt.calendars}, "classroom-cal")
			if err != nil {
				t.Fatalf("resolveCalendarID failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected '%s', got '%s'", tt.want, got)
			}
		})
	}
}

func TestResolveCalendarID_ExactMatchOnly(t *testing.T) {
	provider := &fakeProvider{calendars: []CalendarInfo{
		{ID: "a", Description: "Classroom-Cal"},
		{ID: "b", Description: "classroom-cal "},
		{ID: "c", Description: "the classroom-cal"},
	}}

	_, err := resolveCalendarID(context.Background(), provider, "classroom-cal")
	if !errors.Is(err, errCalendarNotFound) {
		t.Fatalf("Expected errCalendarNotFound, got %v", err)
	}
}

func TestResolveCalendarID_ProviderError(t *testing.T) {
	providerErr := errors.New("unauthorized")
	_, err := resolveCalendarID(context.Background(), &fakeProvider{err: providerErr}, "classroom-cal")
	if !errors.Is(err, providerErr) {
		t.Fatalf("Expected provider error, got %v", err)
	}
	if errors.Is(err, errCalendarNotFound) {
		t.Error("Provider failure must not be reported as a missing calendar")
	}
}

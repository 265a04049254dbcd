package watch

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sfmobility/sfmobility/internal/api/models"
)

func TestService_Create_Defaults(t *testing.T) {
	service := NewService(NewMemoryRepository())

	created, err := service.Create(context.Background(), "user-1", &models.WatchCreateRequest{
		RouteID: "38",
		Label:   "morning commute",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(created.ID, "wch_") {
		t.Errorf("expected wch_ id prefix, got %q", created.ID)
	}
	if created.ThresholdSeconds != DefaultThresholdSeconds {
		t.Errorf("expected default threshold %d, got %d", DefaultThresholdSeconds, created.ThresholdSeconds)
	}
	if !created.Active {
		t.Error("expected new watch to be active")
	}
}

func TestService_Create_Validation(t *testing.T) {
	service := NewService(NewMemoryRepository())

	tests := []struct {
		name  string
		input models.WatchCreateRequest
		field string
	}{
		{
			name:  "missing route id",
			input: models.WatchCreateRequest{},
			field: "routeId",
		},
		{
			name:  "threshold too low",
			input: models.WatchCreateRequest{RouteID: "38", ThresholdSeconds: 30},
			field: "thresholdSeconds",
		},
		{
			name:  "threshold too high",
			input: models.WatchCreateRequest{RouteID: "38", ThresholdSeconds: 7200},
			field: "thresholdSeconds",
		},
		{
			name:  "invalid day of week",
			input: models.WatchCreateRequest{RouteID: "38", DaysOfWeek: []int{0}},
			field: "daysOfWeek",
		},
		{
			name:  "label too long",
			input: models.WatchCreateRequest{RouteID: "38", Label: strings.Repeat("x", 81)},
			field: "label",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Create(context.Background(), "user-1", &tt.input)

			var valErr *ValidationError
			if !errors.As(err, &valErr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}

			found := false
			for _, f := range valErr.Errors {
				if f.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected field %q in %v", tt.field, valErr.Errors)
			}
		})
	}
}

func TestService_Update_AppliesPartials(t *testing.T) {
	service := NewService(NewMemoryRepository())

	created, err := service.Create(context.Background(), "user-1", &models.WatchCreateRequest{
		RouteID: "38",
		Label:   "morning commute",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	threshold := 900
	active := false
	updated, err := service.Update(context.Background(), "user-1", created.ID, &models.WatchUpdateRequest{
		ThresholdSeconds: &threshold,
		Active:           &active,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updated.ThresholdSeconds != 900 {
		t.Errorf("expected threshold 900, got %d", updated.ThresholdSeconds)
	}
	if updated.Active {
		t.Error("expected watch to be inactive")
	}
	if updated.Label != "morning commute" {
		t.Errorf("label should be unchanged, got %q", updated.Label)
	}
}

func TestService_Ownership(t *testing.T) {
	service := NewService(NewMemoryRepository())

	created, err := service.Create(context.Background(), "user-1", &models.WatchCreateRequest{RouteID: "38"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := service.Get(context.Background(), "user-2", created.ID); !errors.Is(err, ErrWatchNotFound) {
		t.Errorf("expected ErrWatchNotFound for other user, got %v", err)
	}
	if err := service.Delete(context.Background(), "user-2", created.ID); !errors.Is(err, ErrWatchNotFound) {
		t.Errorf("expected ErrWatchNotFound for other user delete, got %v", err)
	}

	// Owner can still delete.
	if err := service.Delete(context.Background(), "user-1", created.ID); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestService_List_Pagination(t *testing.T) {
	repo := NewMemoryRepository()
	service := NewService(repo)

	for i := 0; i < 5; i++ {
		if _, err := service.Create(context.Background(), "user-1", &models.WatchCreateRequest{RouteID: "38"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	page, err := service.List(context.Background(), "user-1", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(page.Items) != 3 {
		t.Errorf("expected 3 items, got %d", len(page.Items))
	}
	if page.Meta.NextCursor == nil {
		t.Error("expected next cursor for remaining items")
	}
}

func TestWatch_DueToday(t *testing.T) {
	// 2026-08-31 is a Monday.
	monday := time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC)
	sunday := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		days []int
		at   time.Time
		want bool
	}{
		{"empty means every day", nil, sunday, true},
		{"weekday watch on monday", []int{1, 2, 3, 4, 5}, monday, true},
		{"weekday watch on sunday", []int{1, 2, 3, 4, 5}, sunday, false},
		{"sunday uses iso numbering", []int{7}, sunday, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Watch{DaysOfWeek: tt.days}
			if got := w.DueToday(tt.at); got != tt.want {
				t.Errorf("DueToday() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWatch_Triggered(t *testing.T) {
	w := Watch{Active: true, ThresholdSeconds: 600}

	if !w.Triggered(600) {
		t.Error("expected trigger at exactly the threshold")
	}
	if w.Triggered(599) {
		t.Error("expected no trigger below the threshold")
	}

	w.Active = false
	if w.Triggered(900) {
		t.Error("inactive watch should never trigger")
	}
}

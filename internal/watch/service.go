package watch

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sfmobility/sfmobility/internal/api/models"
)

// Service errors.
var (
	ErrNotAuthorized = errors.New("not authorized to access this watch")
)

// Validation constants.
const (
	MaxLabelLength = 80

	// MinThresholdSeconds keeps users from alerting on noise.
	MinThresholdSeconds = 60
	MaxThresholdSeconds = 3600

	// DefaultThresholdSeconds fires on a ten minute delay.
	DefaultThresholdSeconds = 600
)

// Service provides watch operations.
type Service struct {
	repo Repository
}

// NewService creates a new watch service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List retrieves all watches for a user.
func (s *Service) List(ctx context.Context, userID string, limit int) (*models.PagedWatches, error) {
	result, err := s.repo.List(ctx, userID, ListOptions{Limit: limit})
	if err != nil {
		return nil, err
	}

	items := make([]models.Watch, 0, len(result.Items))
	for _, w := range result.Items {
		items = append(items, s.toAPIWatch(w))
	}

	var nextCursor *string
	if result.NextCursor != "" {
		nextCursor = &result.NextCursor
	}

	return &models.PagedWatches{
		Items: items,
		Meta: models.PagedResponseMeta{
			Limit:      limit,
			NextCursor: nextCursor,
		},
	}, nil
}

// Get retrieves a watch by ID for a user.
func (s *Service) Get(ctx context.Context, userID, watchID string) (*models.Watch, error) {
	watch, err := s.repo.GetByUserAndID(ctx, userID, watchID)
	if err != nil {
		return nil, err
	}

	result := s.toAPIWatch(watch)
	return &result, nil
}

// Create creates a new watch for a user.
func (s *Service) Create(ctx context.Context, userID string, input *models.WatchCreateRequest) (*models.Watch, error) {
	if fieldErrors := s.validateCreateInput(input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	threshold := input.ThresholdSeconds
	if threshold == 0 {
		threshold = DefaultThresholdSeconds
	}

	now := time.Now()
	watch := &Watch{
		ID:               "wch_" + uuid.New().String()[:22],
		UserID:           userID,
		RouteID:          input.RouteID,
		Label:            input.Label,
		ThresholdSeconds: threshold,
		DaysOfWeek:       input.DaysOfWeek,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Create(ctx, watch); err != nil {
		return nil, err
	}

	result := s.toAPIWatch(watch)
	return &result, nil
}

// Update updates an existing watch for a user.
func (s *Service) Update(ctx context.Context, userID, watchID string, input *models.WatchUpdateRequest) (*models.Watch, error) {
	watch, err := s.repo.GetByUserAndID(ctx, userID, watchID)
	if err != nil {
		return nil, err
	}

	if fieldErrors := s.validateUpdateInput(input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	if input.Label != nil {
		watch.Label = *input.Label
	}
	if input.ThresholdSeconds != nil {
		watch.ThresholdSeconds = *input.ThresholdSeconds
	}
	if input.DaysOfWeek != nil {
		watch.DaysOfWeek = input.DaysOfWeek
	}
	if input.Active != nil {
		watch.Active = *input.Active
	}
	watch.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, watch); err != nil {
		return nil, err
	}

	result := s.toAPIWatch(watch)
	return &result, nil
}

// Delete deletes a watch for a user.
func (s *Service) Delete(ctx context.Context, userID, watchID string) error {
	// Verify ownership
	if _, err := s.repo.GetByUserAndID(ctx, userID, watchID); err != nil {
		return err
	}

	return s.repo.Delete(ctx, watchID)
}

// validateCreateInput validates the create watch input.
func (s *Service) validateCreateInput(input *models.WatchCreateRequest) []models.FieldError {
	var errs []models.FieldError

	if input.RouteID == "" {
		errs = append(errs, models.FieldError{Field: "routeId", Message: "is required"})
	}

	if len(input.Label) > MaxLabelLength {
		errs = append(errs, models.FieldError{Field: "label", Message: "must be at most 80 characters"})
	}

	if input.ThresholdSeconds != 0 {
		errs = append(errs, s.validateThreshold(input.ThresholdSeconds)...)
	}

	errs = append(errs, s.validateDaysOfWeek(input.DaysOfWeek)...)

	return errs
}

// validateUpdateInput validates the update watch input.
func (s *Service) validateUpdateInput(input *models.WatchUpdateRequest) []models.FieldError {
	var errs []models.FieldError

	if input.Label != nil && len(*input.Label) > MaxLabelLength {
		errs = append(errs, models.FieldError{Field: "label", Message: "must be at most 80 characters"})
	}

	if input.ThresholdSeconds != nil {
		errs = append(errs, s.validateThreshold(*input.ThresholdSeconds)...)
	}

	if input.DaysOfWeek != nil {
		errs = append(errs, s.validateDaysOfWeek(input.DaysOfWeek)...)
	}

	return errs
}

// validateThreshold validates an alert threshold.
func (s *Service) validateThreshold(threshold int) []models.FieldError {
	if threshold < MinThresholdSeconds || threshold > MaxThresholdSeconds {
		return []models.FieldError{{
			Field:   "thresholdSeconds",
			Message: "must be between 60 and 3600",
		}}
	}
	return nil
}

// validateDaysOfWeek validates a days of week array.
func (s *Service) validateDaysOfWeek(days []int) []models.FieldError {
	for _, day := range days {
		if day < 1 || day > 7 {
			return []models.FieldError{{
				Field:   "daysOfWeek",
				Message: "must contain values between 1 and 7",
			}}
		}
	}
	return nil
}

// toAPIWatch converts a domain Watch to an API Watch.
func (s *Service) toAPIWatch(w *Watch) models.Watch {
	var lastNotified *models.Timestamp
	if w.LastNotifiedAt != nil {
		ts := models.Timestamp(*w.LastNotifiedAt)
		lastNotified = &ts
	}

	return models.Watch{
		ID:               w.ID,
		RouteID:          w.RouteID,
		Label:            w.Label,
		ThresholdSeconds: w.ThresholdSeconds,
		DaysOfWeek:       w.DaysOfWeek,
		Active:           w.Active,
		LastNotifiedAt:   lastNotified,
		CreatedAt:        models.Timestamp(w.CreatedAt),
		UpdatedAt:        models.Timestamp(w.UpdatedAt),
	}
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

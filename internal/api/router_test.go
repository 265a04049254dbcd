package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sfmobility/sfmobility/internal/api"
	"github.com/sfmobility/sfmobility/internal/api/models"
	"github.com/sfmobility/sfmobility/internal/auth"
	"github.com/sfmobility/sfmobility/internal/directions"
	"github.com/sfmobility/sfmobility/internal/directions/heuristic"
	"github.com/sfmobility/sfmobility/internal/prediction"
	"github.com/sfmobility/sfmobility/internal/prediction/historical"
	"github.com/sfmobility/sfmobility/internal/recommend"
	"github.com/sfmobility/sfmobility/internal/session"
	"github.com/sfmobility/sfmobility/internal/watch"
)

// testAuthService creates an auth service for testing.
func testAuthService() *auth.Service {
	return auth.NewService(auth.ServiceConfig{
		JWTService:  testJWTService(),
		UserRepo:    auth.NewInMemoryUserRepository(),
		KeyRepo:     auth.NewInMemoryAPIKeyRepository(),
		RefreshRepo: auth.NewInMemoryRefreshTokenRepository(),
	})
}

// testJWTService creates a JWT service for generating test tokens.
func testJWTService() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{
		SigningKey: "test-secret-key-for-testing-only",
		Issuer:     "https://api.sfmobility.io",
		Audience:   "sfmobility-api",
	})
}

// generateTestToken generates a valid test token for a user.
func generateTestToken(t *testing.T) string {
	t.Helper()
	jwtService := testJWTService()
	user := &auth.User{
		ID:        "usr_testuser123",
		Label:     "test client",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	token, _, err := jwtService.GenerateAccessToken(user)
	require.NoError(t, err)
	return token
}

func newTestRouter() http.Handler {
	logger := zerolog.New(io.Discard)

	directionsService := directions.NewService(directions.ServiceConfig{
		Provider: heuristic.NewProvider(logger),
		Logger:   logger,
	})
	predictionService := prediction.NewService(prediction.ServiceConfig{
		Provider: historical.NewPredictor(historical.PredictorConfig{
			Repository: historical.NewMemoryRepository(),
			Logger:     logger,
		}),
		Logger: logger,
	})
	recommendService := recommend.NewService(recommend.ServiceConfig{
		Directions: directionsService,
		Prediction: predictionService,
		Logger:     logger,
	})
	watchService := watch.NewService(watch.NewMemoryRepository())

	return api.NewRouter(api.RouterConfig{
		Version:           "test",
		BuildTime:         "2026-01-01T00:00:00Z",
		Logger:            logger,
		AuthService:       testAuthService(),
		RecommendService:  recommendService,
		PredictionService: predictionService,
		WatchService:      watchService,
		SessionStore:      session.NewMemoryStore(0),
		Providers:         []string{"heuristic", "historical"},
	})
}

// addAuthHeader adds a valid Bearer token to the request.
func addAuthHeader(t *testing.T, req *http.Request) {
	t.Helper()
	token := generateTestToken(t)
	req.Header.Set("Authorization", "Bearer "+token)
}

func TestRouter_HealthCheck(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	var health models.Health
	err := json.Unmarshal(w.Body.Bytes(), &health)
	require.NoError(t, err)

	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.NotEmpty(t, health.Time)
}

func TestRouter_ReadinessCheck(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/ready", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var health models.Health
	err := json.Unmarshal(w.Body.Bytes(), &health)
	require.NoError(t, err)

	assert.Equal(t, models.HealthStatusOK, health.Status)
}

func TestRouter_SystemStatus(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody)
	addAuthHeader(t, req)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var status models.SystemStatus
	err := json.Unmarshal(w.Body.Bytes(), &status)
	require.NoError(t, err)

	assert.Equal(t, models.HealthStatusOK, status.Status)
	assert.NotEmpty(t, status.Providers)
}

func TestRouter_Register(t *testing.T) {
	router := newTestRouter()

	input := auth.RegisterRequest{Label: "integration test client"}
	body, _ := json.Marshal(input)

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp auth.RegisterResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)

	assert.Contains(t, resp.APIKey, auth.APIKeyPrefix)
	assert.NotEmpty(t, resp.User.ID)
}

func TestRouter_TokenExchange(t *testing.T) {
	router := newTestRouter()

	// Register first to obtain a key.
	body, _ := json.Marshal(auth.RegisterRequest{Label: "exchange test"})
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var registered auth.RegisterResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &registered))

	body, _ = json.Marshal(auth.TokenRequest{APIKey: registered.APIKey})
	req = httptest.NewRequest(http.MethodPost, "/v1/auth/token", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var tokens auth.TokenResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tokens))
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, "Bearer", tokens.TokenType)
}

func TestRouter_TokenExchange_InvalidKey(t *testing.T) {
	router := newTestRouter()

	body, _ := json.Marshal(auth.TokenRequest{APIKey: "key_doesnotexist"})
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/token", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
}

func TestRouter_Compare(t *testing.T) {
	router := newTestRouter()

	input := models.CompareRequest{
		Origin:      &models.Point{Lat: 37.7793, Lon: -122.4193},
		Destination: &models.Point{Lat: 37.7955, Lon: -122.3937},
		Modes:       []models.Mode{models.ModeTransit, models.ModeWalking},
	}
	body, _ := json.Marshal(input)

	req := httptest.NewRequest(http.MethodPost, "/v1/recommendations/compare", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(t, req)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.CompareResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)

	assert.Contains(t, resp.ID, "rec_")
	assert.Len(t, resp.Options, 2)
	assert.NotEmpty(t, resp.ChosenMode)
	assert.NotEmpty(t, resp.Rationale)
	assert.Equal(t, 1, resp.Options[0].Rank)
}

func TestRouter_Compare_TransitForecastApplied(t *testing.T) {
	router := newTestRouter()

	input := models.CompareRequest{
		Origin:      &models.Point{Lat: 37.7793, Lon: -122.4193},
		Destination: &models.Point{Lat: 37.7955, Lon: -122.3937},
		Modes:       []models.Mode{models.ModeTransit, models.ModeDriving},
	}
	body, _ := json.Marshal(input)

	req := httptest.NewRequest(http.MethodPost, "/v1/recommendations/compare", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(t, req)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.CompareResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)

	var transit *models.ComparedOption
	for i := range resp.Options {
		if resp.Options[i].Mode == models.ModeTransit {
			transit = &resp.Options[i]
		}
	}
	require.NotNil(t, transit, "transit option missing from comparison")

	// The heuristic estimate names a line, so the delay forecast is
	// consulted; with no recorded observations the historical
	// predictor answers with its default prior.
	assert.NotEmpty(t, transit.RouteID)
	assert.Equal(t, "historical", transit.ForecastSource)
	assert.InDelta(t, 210, transit.PredictedDelaySeconds, 0.001)
	assert.Equal(t, transit.BaselineDurationSeconds+210, transit.TotalDurationSeconds)
}

func TestRouter_Compare_TransitRouteOverride(t *testing.T) {
	router := newTestRouter()

	input := models.CompareRequest{
		Origin:         &models.Point{Lat: 37.7793, Lon: -122.4193},
		Destination:    &models.Point{Lat: 37.7955, Lon: -122.3937},
		Modes:          []models.Mode{models.ModeTransit},
		TransitRouteID: "38",
	}
	body, _ := json.Marshal(input)

	req := httptest.NewRequest(http.MethodPost, "/v1/recommendations/compare", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(t, req)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp models.CompareResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)

	require.Len(t, resp.Options, 1)
	assert.Equal(t, "38", resp.Options[0].RouteID)
	assert.Equal(t, "historical", resp.Options[0].ForecastSource)
}

func TestRouter_Compare_ValidationError(t *testing.T) {
	router := newTestRouter()

	// Missing modes
	input := models.CompareRequest{
		Origin:      &models.Point{Lat: 37.7793, Lon: -122.4193},
		Destination: &models.Point{Lat: 37.7955, Lon: -122.3937},
	}
	body, _ := json.Marshal(input)

	req := httptest.NewRequest(http.MethodPost, "/v1/recommendations/compare", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(t, req)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

	var problem models.Problem
	err := json.Unmarshal(w.Body.Bytes(), &problem)
	require.NoError(t, err)

	assert.Equal(t, models.ProblemTypeValidation, problem.Type)
	assert.NotEmpty(t, problem.TraceID)
}

func TestRouter_Compare_Unauthenticated(t *testing.T) {
	router := newTestRouter()

	input := models.CompareRequest{
		Origin:      &models.Point{Lat: 37.7793, Lon: -122.4193},
		Destination: &models.Point{Lat: 37.7955, Lon: -122.3937},
		Modes:       []models.Mode{models.ModeWalking},
	}
	body, _ := json.Marshal(input)

	req := httptest.NewRequest(http.MethodPost, "/v1/recommendations/compare", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_Session_Lifecycle(t *testing.T) {
	router := newTestRouter()

	// A comparison saves the user's context.
	input := models.CompareRequest{
		Origin:      &models.Point{Lat: 37.7793, Lon: -122.4193},
		Destination: &models.Point{Lat: 37.7955, Lon: -122.3937},
		Modes:       []models.Mode{models.ModeTransit, models.ModeWalking},
	}
	body, _ := json.Marshal(input)

	req := httptest.NewRequest(http.MethodPost, "/v1/recommendations/compare", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(t, req)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var compared models.CompareResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &compared))

	// Read it back.
	req = httptest.NewRequest(http.MethodGet, "/v1/me/session", http.NoBody)
	addAuthHeader(t, req)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var state models.SessionState
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, compared.ID, state.LastRecommendationID)
	require.NotNil(t, state.LastOrigin)
	assert.InDelta(t, 37.7793, state.LastOrigin.Lat, 0.0001)
	assert.ElementsMatch(t, []models.Mode{models.ModeTransit, models.ModeWalking}, state.LastModes)

	// Clear it.
	req = httptest.NewRequest(http.MethodDelete, "/v1/me/session", http.NoBody)
	addAuthHeader(t, req)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)

	// Gone after clearing.
	req = httptest.NewRequest(http.MethodGet, "/v1/me/session", http.NoBody)
	addAuthHeader(t, req)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_Session_Empty(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/me/session", http.NoBody)
	addAuthHeader(t, req)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
}

func TestRouter_GetRouteDelay(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/routes/38/delay", http.NoBody)
	addAuthHeader(t, req)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	// The historical predictor substitutes its default prior when the
	// repository has no samples, so the endpoint still answers.
	assert.Equal(t, http.StatusOK, w.Code)

	var delay models.RouteDelay
	err := json.Unmarshal(w.Body.Bytes(), &delay)
	require.NoError(t, err)

	assert.Equal(t, "38", delay.RouteID)
	assert.Equal(t, "historical", delay.Source)
}

func TestRouter_Watches_CRUD(t *testing.T) {
	router := newTestRouter()

	// Create
	input := models.WatchCreateRequest{
		RouteID:          "38",
		Label:            "Morning 38 Geary",
		ThresholdSeconds: 300,
		DaysOfWeek:       []int{1, 2, 3, 4, 5},
	}
	body, _ := json.Marshal(input)

	req := httptest.NewRequest(http.MethodPost, "/v1/me/watches", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(t, req)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotEmpty(t, w.Header().Get("Location"))

	var created models.Watch
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Contains(t, created.ID, "wch_")
	assert.True(t, created.Active)

	// Get
	req = httptest.NewRequest(http.MethodGet, "/v1/me/watches/"+created.ID, http.NoBody)
	addAuthHeader(t, req)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	// List
	req = httptest.NewRequest(http.MethodGet, "/v1/me/watches", http.NoBody)
	addAuthHeader(t, req)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var watches models.PagedWatches
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &watches))
	assert.Len(t, watches.Items, 1)

	// Update
	newLabel := "Evening 38 Geary"
	updateBody, _ := json.Marshal(models.WatchUpdateRequest{Label: &newLabel})
	req = httptest.NewRequest(http.MethodPatch, "/v1/me/watches/"+created.ID, bytes.NewReader(updateBody))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(t, req)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var updated models.Watch
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, newLabel, updated.Label)

	// Delete
	req = httptest.NewRequest(http.MethodDelete, "/v1/me/watches/"+created.ID, http.NoBody)
	addAuthHeader(t, req)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRouter_Watches_NotFound(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/me/watches/wch_doesnotexist", http.NoBody)
	addAuthHeader(t, req)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_GetEnums(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/metadata/enums", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var enums models.Enums
	err := json.Unmarshal(w.Body.Bytes(), &enums)
	require.NoError(t, err)

	assert.Contains(t, enums.Modes, models.ModeTransit)
	assert.Contains(t, enums.Modes, models.ModeDriving)
	assert.Contains(t, enums.Modes, models.ModeWalking)
	assert.Contains(t, enums.Modes, models.ModeBiking)
}

func TestRouter_RequestID_Generated(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	requestID := w.Header().Get("X-Request-Id")
	assert.NotEmpty(t, requestID)
	assert.Contains(t, requestID, "req_")
}

func TestRouter_RequestID_Preserved(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	req.Header.Set("X-Request-Id", "custom_request_id")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, "custom_request_id", w.Header().Get("X-Request-Id"))
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/v1/nonexistent", http.NoBody)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ofie/server/internal/database"
	"ofie/server/internal/models"
)

type MockRecommender struct {
	mock.Mock
}

func (m *MockRecommender) Recommend(ctx context.Context, filters models.FilterSpec, user *models.User) ([]models.ScoredListing, error) {
	args := m.Called(ctx, filters, user)
	results, _ := args.Get(0).([]models.ScoredListing)
	return results, args.Error(1)
}

func (m *MockRecommender) SimilarListings(ctx context.Context, listing models.Listing, limit int) ([]models.Listing, error) {
	args := m.Called(ctx, listing, limit)
	results, _ := args.Get(0).([]models.Listing)
	return results, args.Error(1)
}

func (m *MockRecommender) TrendingListings(ctx context.Context, limit int) ([]models.Listing, error) {
	args := m.Called(ctx, limit)
	results, _ := args.Get(0).([]models.Listing)
	return results, args.Error(1)
}

func (m *MockRecommender) PersonalizedRecommendations(ctx context.Context, user models.User, limit int) ([]models.Listing, error) {
	args := m.Called(ctx, user, limit)
	results, _ := args.Get(0).([]models.Listing)
	return results, args.Error(1)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetListing(ctx context.Context, id int64) (*models.Listing, error) {
	args := m.Called(ctx, id)
	listing, _ := args.Get(0).(*models.Listing)
	return listing, args.Error(1)
}

func (m *MockStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *MockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func setupRouter(recommender *MockRecommender, store *MockStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	handler := NewHandler(recommender, store, logger)
	metros := map[string][]string{"Seattle Metro": {"Seattle", "Bellevue"}}
	return NewRouter(handler, metros, nil, logger)
}

func doRequest(router *gin.Engine, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	router.ServeHTTP(w, req)
	return w
}

type listingsResponse struct {
	Listings []models.Listing `json:"listings"`
	Count    int              `json:"count"`
}

func TestGetRecommendations(t *testing.T) {
	t.Run("anonymous with filters", func(t *testing.T) {
		recommender, store := new(MockRecommender), new(MockStore)
		results := []models.ScoredListing{
			{Listing: models.Listing{ID: 3, City: "Seattle"}, TotalScore: 42.5, RecommendationTags: []string{}},
		}
		recommender.On("Recommend", mock.Anything, mock.MatchedBy(func(f models.FilterSpec) bool {
			return f.Location == "Seattle" && f.MaxPrice != nil && *f.MaxPrice == 2000
		}), (*models.User)(nil)).Return(results, nil)

		w := doRequest(setupRouter(recommender, store), "/api/recommendations?location=Seattle&max_price=2000")

		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Recommendations []models.ScoredListing `json:"recommendations"`
			Count           int                    `json:"count"`
			Warnings        []string               `json:"warnings"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 1, body.Count)
		assert.Equal(t, int64(3), body.Recommendations[0].Listing.ID)
		assert.Empty(t, body.Warnings)
		recommender.AssertExpectations(t)
	})

	t.Run("malformed filter is reported", func(t *testing.T) {
		recommender, store := new(MockRecommender), new(MockStore)
		recommender.On("Recommend", mock.Anything, mock.MatchedBy(func(f models.FilterSpec) bool {
			return f.MinPrice == nil && f.Bedrooms != nil && *f.Bedrooms == 2
		}), (*models.User)(nil)).Return([]models.ScoredListing{}, nil)

		w := doRequest(setupRouter(recommender, store), "/api/recommendations?min_price=cheap&bedrooms=2")

		require.Equal(t, http.StatusOK, w.Code)
		var body struct {
			Warnings []string `json:"warnings"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body.Warnings, 1)
		assert.Contains(t, body.Warnings[0], "min_price")
	})

	t.Run("personalised", func(t *testing.T) {
		recommender, store := new(MockRecommender), new(MockStore)
		user := &models.User{ID: 7, Role: models.RoleTenant}
		store.On("GetUser", mock.Anything, int64(7)).Return(user, nil)
		recommender.On("Recommend", mock.Anything, mock.Anything, user).Return([]models.ScoredListing{}, nil)

		w := doRequest(setupRouter(recommender, store), "/api/recommendations?user_id=7")

		assert.Equal(t, http.StatusOK, w.Code)
		recommender.AssertExpectations(t)
	})

	tests := []struct {
		name     string
		target   string
		userErr  error
		recErr   error
		expected int
	}{
		{name: "invalid user id", target: "/api/recommendations?user_id=abc", expected: http.StatusBadRequest},
		{name: "unknown user", target: "/api/recommendations?user_id=9", userErr: database.ErrNotFound, expected: http.StatusNotFound},
		{name: "user lookup failure", target: "/api/recommendations?user_id=9", userErr: errors.New("disk I/O error"), expected: http.StatusInternalServerError},
		{name: "recommender failure", target: "/api/recommendations", recErr: errors.New("database is locked"), expected: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recommender, store := new(MockRecommender), new(MockStore)
			store.On("GetUser", mock.Anything, int64(9)).Return(nil, tt.userErr).Maybe()
			recommender.On("Recommend", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.recErr).Maybe()

			w := doRequest(setupRouter(recommender, store), tt.target)
			assert.Equal(t, tt.expected, w.Code)
		})
	}
}

func TestGetSimilarListings(t *testing.T) {
	source := &models.Listing{ID: 4, City: "Seattle", PropertyType: "apartment"}

	t.Run("found", func(t *testing.T) {
		recommender, store := new(MockRecommender), new(MockStore)
		store.On("GetListing", mock.Anything, int64(4)).Return(source, nil)
		recommender.On("SimilarListings", mock.Anything, *source, 3).
			Return([]models.Listing{{ID: 5}, {ID: 6}}, nil)

		w := doRequest(setupRouter(recommender, store), "/api/listings/4/similar?limit=3")

		require.Equal(t, http.StatusOK, w.Code)
		var body listingsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 2, body.Count)
		assert.Equal(t, int64(5), body.Listings[0].ID)
	})

	t.Run("not found", func(t *testing.T) {
		recommender, store := new(MockRecommender), new(MockStore)
		store.On("GetListing", mock.Anything, int64(99)).Return(nil, database.ErrNotFound)

		w := doRequest(setupRouter(recommender, store), "/api/listings/99/similar")

		assert.Equal(t, http.StatusNotFound, w.Code)
		recommender.AssertNotCalled(t, "SimilarListings", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid id", func(t *testing.T) {
		w := doRequest(setupRouter(new(MockRecommender), new(MockStore)), "/api/listings/abc/similar")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetTrendingListings(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		wantLimit int
	}{
		{name: "default limit", target: "/api/trending", wantLimit: 0},
		{name: "explicit limit", target: "/api/trending?limit=5", wantLimit: 5},
		{name: "limit capped", target: "/api/trending?limit=500", wantLimit: maxLimit},
		{name: "garbage limit", target: "/api/trending?limit=-2", wantLimit: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recommender, store := new(MockRecommender), new(MockStore)
			recommender.On("TrendingListings", mock.Anything, tt.wantLimit).Return([]models.Listing{{ID: 1}}, nil)

			w := doRequest(setupRouter(recommender, store), tt.target)

			assert.Equal(t, http.StatusOK, w.Code)
			recommender.AssertExpectations(t)
		})
	}
}

func TestGetUserRecommendations(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		recommender, store := new(MockRecommender), new(MockStore)
		user := &models.User{ID: 2, Role: models.RoleTenant}
		store.On("GetUser", mock.Anything, int64(2)).Return(user, nil)
		recommender.On("PersonalizedRecommendations", mock.Anything, *user, 0).
			Return([]models.Listing{{ID: 8}}, nil)

		w := doRequest(setupRouter(recommender, store), "/api/users/2/recommendations")

		require.Equal(t, http.StatusOK, w.Code)
		var body listingsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 1, body.Count)
	})

	t.Run("unknown user", func(t *testing.T) {
		recommender, store := new(MockRecommender), new(MockStore)
		store.On("GetUser", mock.Anything, int64(2)).Return(nil, database.ErrNotFound)

		w := doRequest(setupRouter(recommender, store), "/api/users/2/recommendations")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("recommender failure", func(t *testing.T) {
		recommender, store := new(MockRecommender), new(MockStore)
		user := &models.User{ID: 2}
		store.On("GetUser", mock.Anything, int64(2)).Return(user, nil)
		recommender.On("PersonalizedRecommendations", mock.Anything, *user, 0).Return(nil, errors.New("boom"))

		w := doRequest(setupRouter(recommender, store), "/api/users/2/recommendations")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		store := new(MockStore)
		store.On("Ping", mock.Anything).Return(nil)

		w := doRequest(setupRouter(new(MockRecommender), store), "/health")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	})

	t.Run("database down", func(t *testing.T) {
		store := new(MockStore)
		store.On("Ping", mock.Anything).Return(errors.New("sql: database is closed"))

		w := doRequest(setupRouter(new(MockRecommender), store), "/health")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestRequestIDHeader(t *testing.T) {
	recommender := new(MockRecommender)
	recommender.On("TrendingListings", mock.Anything, 0).Return([]models.Listing{}, nil)
	router := setupRouter(recommender, new(MockStore))

	w := doRequest(router, "/api/trending")
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	const id = "3f0c1a9e-7a51-4c2b-9a57-1d2e0c6b4f10"
	req := httptest.NewRequest(http.MethodGet, "/api/trending", nil)
	req.Header.Set(requestIDHeader, id)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, id, w.Header().Get(requestIDHeader))
}

func TestMetropolitanRoutes(t *testing.T) {
	router := setupRouter(new(MockRecommender), new(MockStore))

	w := doRequest(router, "/api/metropolitan")
	require.Equal(t, http.StatusOK, w.Code)
	var areas []MetropolitanArea
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &areas))
	require.Len(t, areas, 1)
	assert.Equal(t, []string{"Seattle", "Bellevue"}, areas[0].Cities)

	w = doRequest(router, "/api/metropolitan/seattle%20metro")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, "/api/metropolitan/Portland")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

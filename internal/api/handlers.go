package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"ofie/server/internal/database"
	"ofie/server/internal/metrics"
	"ofie/server/internal/models"
)

// maxLimit bounds the limit query parameter.
const maxLimit = 50

// Recommender is the read-only recommendation surface the handlers serve.
type Recommender interface {
	Recommend(ctx context.Context, filters models.FilterSpec, user *models.User) ([]models.ScoredListing, error)
	SimilarListings(ctx context.Context, listing models.Listing, limit int) ([]models.Listing, error)
	TrendingListings(ctx context.Context, limit int) ([]models.Listing, error)
	PersonalizedRecommendations(ctx context.Context, user models.User, limit int) ([]models.Listing, error)
}

// Store resolves the users and listings named in request paths.
type Store interface {
	GetListing(ctx context.Context, id int64) (*models.Listing, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	Ping(ctx context.Context) error
}

type Handler struct {
	recommender Recommender
	store       Store
	logger      *logrus.Logger
}

func NewHandler(recommender Recommender, store Store, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		recommender: recommender,
		store:       store,
		logger:      logger,
	}
}

// GetRecommendations ranks listings matching the query filters, personalised
// when user_id is given.
func (h *Handler) GetRecommendations(c *gin.Context) {
	var user *models.User
	if raw := c.Query("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user_id"})
			return
		}
		if user = h.loadUser(c, id); user == nil {
			return
		}
	}

	filters, problems := models.ParseFilterSpec(c.Request.URL.Query())
	warnings := make([]string, 0, len(problems))
	for _, p := range problems {
		warnings = append(warnings, p.Error())
	}
	if len(warnings) > 0 {
		h.logger.WithField("warnings", warnings).Warn("Skipping malformed filters")
	}

	start := time.Now()
	results, err := h.recommender.Recommend(c.Request.Context(), filters, user)
	metrics.RecordRecommendation(metrics.OperationRecommend, len(results), time.Since(start), err)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate recommendations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate recommendations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"recommendations": results,
		"count":           len(results),
		"warnings":        warnings,
	})
}

func (h *Handler) GetSimilarListings(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid listing id"})
		return
	}

	listing, err := h.store.GetListing(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Listing not found"})
			return
		}
		h.logger.WithError(err).WithField("listing_id", id).Error("Failed to get listing")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get listing"})
		return
	}

	start := time.Now()
	similar, err := h.recommender.SimilarListings(c.Request.Context(), *listing, parseLimit(c))
	metrics.RecordRecommendation(metrics.OperationSimilar, len(similar), time.Since(start), err)
	if err != nil {
		h.logger.WithError(err).WithField("listing_id", id).Error("Failed to get similar listings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get similar listings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"listings": similar, "count": len(similar)})
}

func (h *Handler) GetTrendingListings(c *gin.Context) {
	start := time.Now()
	trending, err := h.recommender.TrendingListings(c.Request.Context(), parseLimit(c))
	metrics.RecordRecommendation(metrics.OperationTrending, len(trending), time.Since(start), err)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get trending listings")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get trending listings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"listings": trending, "count": len(trending)})
}

func (h *Handler) GetUserRecommendations(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}
	user := h.loadUser(c, id)
	if user == nil {
		return
	}

	start := time.Now()
	listings, err := h.recommender.PersonalizedRecommendations(c.Request.Context(), *user, parseLimit(c))
	metrics.RecordRecommendation(metrics.OperationPersonalized, len(listings), time.Since(start), err)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", id).Error("Failed to get personalized recommendations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get personalized recommendations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"listings": listings, "count": len(listings)})
}

func (h *Handler) Health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		h.logger.WithError(err).Error("Health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// loadUser writes the error response itself and returns nil when the user
// cannot be loaded.
func (h *Handler) loadUser(c *gin.Context, id int64) *models.User {
	user, err := h.store.GetUser(c.Request.Context(), id)
	if err == nil {
		return user
	}
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return nil
	}
	h.logger.WithError(err).WithField("user_id", id).Error("Failed to get user")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get user"})
	return nil
}

// parseLimit returns the limit query parameter, or 0 for the operation default.
func parseLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit <= 0 {
		return 0
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

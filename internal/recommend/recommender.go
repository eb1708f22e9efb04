package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"ofie/server/internal/models"
)

// Recommender ranks listings for a user. It holds only immutable configuration
// and collaborators and is safe for concurrent use.
type Recommender struct {
	listings ListingStore
	activity ActivityStore
	cfg      *Config
	logger   *logrus.Logger
	now      func() time.Time
	metros   map[string][]string

	extractor  *PreferenceExtractor
	similarity *SimilarityCalculator
	scorer     *Scorer
	filter     *CandidateFilter
}

type Option func(*Recommender)

// WithClock overrides the time source used for activity windows and recency.
func WithClock(now func() time.Time) Option {
	return func(r *Recommender) {
		if now != nil {
			r.now = now
		}
	}
}

// WithMetroAreas enables metropolitan area expansion of location filters.
func WithMetroAreas(metros map[string][]string) Option {
	return func(r *Recommender) {
		r.metros = metros
	}
}

func NewRecommender(listings ListingStore, activity ActivityStore, cfg *Config, logger *logrus.Logger, opts ...Option) (*Recommender, error) {
	if listings == nil || activity == nil {
		return nil, errors.New("listing and activity stores are required")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scoring config: %w", err)
	}
	if logger == nil {
		logger = newDefaultLogger()
	}

	r := &Recommender{
		listings: listings,
		activity: activity,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.extractor = NewPreferenceExtractor(cfg)
	r.similarity = NewSimilarityCalculator(cfg)
	r.scorer = NewScorer(cfg)
	r.filter = NewCandidateFilter(r.metros, logger)
	return r, nil
}

// Config returns the scoring configuration in use.
func (r *Recommender) Config() *Config {
	return r.cfg
}

// Recommend returns up to Limits.MaxResults scored listings matching the
// filters, best first. A nil user scores only market signals.
func (r *Recommender) Recommend(ctx context.Context, filters models.FilterSpec, user *models.User) ([]models.ScoredListing, error) {
	pool, err := r.listings.ActiveListings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candidate listings: %w", err)
	}
	now := r.now()

	candidates := r.filter.Apply(pool, &filters, now)
	if len(candidates) == 0 {
		return []models.ScoredListing{}, nil
	}

	sc, _ := r.scoringContext(ctx, user, pool, now)
	scored := make([]models.ScoredListing, 0, len(candidates))
	for _, l := range candidates {
		scored = append(scored, r.scorer.Score(l, sc))
	}
	rankScored(scored)

	if len(scored) > r.cfg.Limits.MaxResults {
		scored = scored[:r.cfg.Limits.MaxResults]
	}

	fields := logrus.Fields{
		"candidates": len(candidates),
		"returned":   len(scored),
	}
	if user != nil {
		fields["user_id"] = user.ID
	}
	r.logger.WithFields(fields).Debug("Generated recommendations")
	return scored, nil
}

// SimilarListings returns the listings most similar to the given one. The
// source listing is never included and every result shares its property type.
// A limit of zero or less means Limits.DefaultSimilar.
func (r *Recommender) SimilarListings(ctx context.Context, listing models.Listing, limit int) ([]models.Listing, error) {
	if limit <= 0 {
		limit = r.cfg.Limits.DefaultSimilar
	}
	pool, err := r.listings.ActiveListings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candidate listings: %w", err)
	}

	type match struct {
		listing models.Listing
		score   float64
	}
	var matches []match
	for i := range pool {
		candidate := &pool[i]
		if candidate.ID == listing.ID || !candidate.IsAvailable() {
			continue
		}
		if score := r.similarity.Listings(&listing, candidate); score > 0 {
			matches = append(matches, match{listing: *candidate, score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].listing.ID < matches[j].listing.ID
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]models.Listing, len(matches))
	for i, m := range matches {
		out[i] = m.listing
	}
	return out, nil
}

// TrendingListings returns listings with the most views in the trailing
// activity window. Listings without a recent view are never returned. A limit
// of zero or less means Limits.DefaultTrending.
func (r *Recommender) TrendingListings(ctx context.Context, limit int) ([]models.Listing, error) {
	if limit <= 0 {
		limit = r.cfg.Limits.DefaultTrending
	}
	pool, err := r.listings.ActiveListings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candidate listings: %w", err)
	}

	market := NewMarketContext(nil, r.recentViews(ctx, r.now()))

	type trend struct {
		listing models.Listing
		views   int
	}
	var trends []trend
	for i := range pool {
		if !pool[i].IsAvailable() {
			continue
		}
		if n := market.RecentViews(pool[i].ID); n > 0 {
			trends = append(trends, trend{listing: pool[i], views: n})
		}
	}
	sort.SliceStable(trends, func(i, j int) bool {
		if trends[i].views != trends[j].views {
			return trends[i].views > trends[j].views
		}
		return trends[i].listing.ID < trends[j].listing.ID
	})

	if len(trends) > limit {
		trends = trends[:limit]
	}
	out := make([]models.Listing, len(trends))
	for i, t := range trends {
		out[i] = t.listing
	}
	return out, nil
}

// PersonalizedRecommendations ranks the whole available pool for a user,
// boosting listings like the ones they favorited and the kinds of listing they
// keep viewing. Landlords get trending listings instead. A limit of zero or
// less means Limits.DefaultPersonalized.
func (r *Recommender) PersonalizedRecommendations(ctx context.Context, user models.User, limit int) ([]models.Listing, error) {
	if user.IsLandlord() {
		return r.TrendingListings(ctx, limit)
	}
	if limit <= 0 {
		limit = r.cfg.Limits.DefaultPersonalized
	}

	pool, err := r.listings.ActiveListings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candidate listings: %w", err)
	}
	now := r.now()

	candidates := r.filter.Apply(pool, nil, now)
	if len(candidates) == 0 {
		return []models.Listing{}, nil
	}

	sc, history := r.scoringContext(ctx, &user, pool, now)
	favorites := favoritedListings(history)
	viewed := viewedKinds(history)

	pts := r.cfg.Personalization
	viewBoost := 0.0
	if sc.Profile != nil {
		viewBoost = math.Min(pts.ViewingIntensityCap, pts.ViewingIntensityFactor*sc.Profile.ViewingPatterns.AverageViewsPerListing)
	}

	scored := make([]models.ScoredListing, 0, len(candidates))
	for _, l := range candidates {
		if pts.ExcludeApplied && history.AppliedTo(l.ID) {
			continue
		}
		item := r.scorer.Score(l, sc)

		best := 0.0
		for i := range favorites {
			if favorites[i].ID == l.ID {
				continue
			}
			best = math.Max(best, r.similarity.Listings(&favorites[i], &l))
		}
		addBoost(&item, pts.FavoriteSimilarityWeight*best, "Similar to listings you saved")

		if key, ok := newFootprintKey(l.PropertyType, l.City); ok {
			if _, seen := viewed[key]; seen {
				addBoost(&item, viewBoost, "Like the listings you have been browsing")
			}
		}
		scored = append(scored, item)
	}
	rankScored(scored)

	if len(scored) > limit {
		scored = scored[:limit]
	}
	out := make([]models.Listing, len(scored))
	for i, s := range scored {
		out[i] = s.Listing
	}

	r.logger.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"returned": len(out),
	}).Debug("Generated personalized recommendations")
	return out, nil
}

// scoringContext gathers the request-scoped scoring inputs. Activity store
// failures are logged and degrade to zero contribution.
func (r *Recommender) scoringContext(ctx context.Context, user *models.User, pool []models.Listing, now time.Time) (*ScoringContext, *models.ActivityHistory) {
	available := make([]models.Listing, 0, len(pool))
	for i := range pool {
		if pool[i].IsAvailable() {
			available = append(available, pool[i])
		}
	}
	sc := &ScoringContext{
		Market: NewMarketContext(available, r.recentViews(ctx, now)),
	}
	if user == nil {
		return sc, nil
	}

	history, err := r.activity.UserHistory(ctx, user.ID)
	if err != nil {
		r.logger.WithError(err).WithField("user_id", user.ID).Warn("Failed to load user history, scoring without it")
		history = nil
	}
	profile := r.extractor.Extract(user, history)
	sc.Profile = &profile
	sc.SimilarUsers = r.similarUsers(ctx, user.ID, history, now)
	return sc, history
}

// similarUsers scans every peer history for footprint overlap and keeps the
// closest Collaborative.MaxSimilarUsers.
// TODO: precompute footprints once peer counts make the per-request scan noticeable.
func (r *Recommender) similarUsers(ctx context.Context, userID int64, history *models.ActivityHistory, now time.Time) []SimilarUser {
	footprint := r.similarity.Footprint(history, now)
	if len(footprint) == 0 {
		return nil
	}
	peers, err := r.activity.PeerHistories(ctx, userID)
	if err != nil {
		r.logger.WithError(err).WithField("user_id", userID).Warn("Failed to load peer histories, skipping collaborative signal")
		return nil
	}

	var similar []SimilarUser
	for i := range peers {
		peer := &peers[i]
		if peer.UserID == userID {
			continue
		}
		sim := r.similarity.Users(footprint, r.similarity.Footprint(peer, now))
		if sim > 0 {
			similar = append(similar, SimilarUser{UserID: peer.UserID, History: peer, Similarity: sim})
		}
	}
	sort.SliceStable(similar, func(i, j int) bool {
		if similar[i].Similarity != similar[j].Similarity {
			return similar[i].Similarity > similar[j].Similarity
		}
		return similar[i].UserID < similar[j].UserID
	})
	if maxPeers := r.cfg.Collaborative.MaxSimilarUsers; len(similar) > maxPeers {
		similar = similar[:maxPeers]
	}
	return similar
}

func (r *Recommender) recentViews(ctx context.Context, now time.Time) []models.ViewingEvent {
	since := windowStart(now, r.cfg.Limits.ActivityWindow)
	views, err := r.activity.ViewingEventsSince(ctx, since)
	if err != nil {
		r.logger.WithError(err).Warn("Failed to load recent viewing events, skipping activity signal")
		return nil
	}
	// Stores may over-fetch; enforce the window here.
	recent := make([]models.ViewingEvent, 0, len(views))
	for _, v := range views {
		if !v.CreatedAt.Before(since) && !v.CreatedAt.After(now) {
			recent = append(recent, v)
		}
	}
	return recent
}

func favoritedListings(history *models.ActivityHistory) []models.Listing {
	if history == nil {
		return nil
	}
	seen := make(map[int64]struct{})
	var out []models.Listing
	for _, f := range history.Favorites {
		if _, dup := seen[f.ListingID]; dup {
			continue
		}
		seen[f.ListingID] = struct{}{}
		if l, ok := history.Listing(f.ListingID); ok {
			out = append(out, l)
		}
	}
	return out
}

// viewedKinds returns the (property type, city) pairs of every viewed listing.
func viewedKinds(history *models.ActivityHistory) map[footprintKey]struct{} {
	kinds := make(map[footprintKey]struct{})
	if history == nil {
		return kinds
	}
	for _, v := range history.Viewings {
		l, ok := history.Listing(v.ListingID)
		if !ok {
			continue
		}
		if key, ok := newFootprintKey(l.PropertyType, l.City); ok {
			kinds[key] = struct{}{}
		}
	}
	return kinds
}

package recommend

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"ofie/server/internal/models"
)

// Recommendation tags attached to scored listings.
const (
	TagGreatMatch       = "great_match"
	TagWithinBudget     = "within_budget"
	TagPopularWithPeers = "popular_with_similar_renters"
	TagTrending         = "trending"
	TagGreatValue       = "great_value"
	TagTopRated         = "top_rated"
)

// greatMatchPreference is the preference score from which a listing is tagged a great match.
const greatMatchPreference = 30

// SimilarUser is a peer whose footprint overlaps the subject user's.
type SimilarUser struct {
	UserID     int64
	History    *models.ActivityHistory
	Similarity float64
}

// MarketContext carries request-scoped marketplace signals: recent view counts
// and the comparable cohorts drawn from the full active pool.
type MarketContext struct {
	recentViews map[int64]int
	cohorts     map[cohortKey][]models.Listing
}

type cohortKey struct {
	propertyType string
	city         string
}

func newCohortKey(l *models.Listing) cohortKey {
	return cohortKey{
		propertyType: strings.ToLower(strings.TrimSpace(l.PropertyType)),
		city:         strings.ToLower(strings.TrimSpace(l.City)),
	}
}

// NewMarketContext indexes the pool and counts views per listing.
func NewMarketContext(pool []models.Listing, views []models.ViewingEvent) *MarketContext {
	m := &MarketContext{
		recentViews: make(map[int64]int),
		cohorts:     make(map[cohortKey][]models.Listing),
	}
	for _, v := range views {
		m.recentViews[v.ListingID]++
	}
	for i := range pool {
		key := newCohortKey(&pool[i])
		m.cohorts[key] = append(m.cohorts[key], pool[i])
	}
	return m
}

// RecentViews returns the number of views the listing received inside the window.
func (m *MarketContext) RecentViews(listingID int64) int {
	if m == nil {
		return 0
	}
	return m.recentViews[listingID]
}

// comparables returns other listings sharing type and city within the bedroom spread.
func (m *MarketContext) comparables(l *models.Listing, spread int) []models.Listing {
	if m == nil {
		return nil
	}
	var out []models.Listing
	for _, c := range m.cohorts[newCohortKey(l)] {
		if c.ID == l.ID {
			continue
		}
		if absInt(c.Bedrooms-l.Bedrooms) <= spread {
			out = append(out, c)
		}
	}
	return out
}

// ScoringContext bundles everything the sub-scorers need for one request.
// A nil Profile scores the user-dependent terms as zero.
type ScoringContext struct {
	Profile      *models.PreferenceProfile
	SimilarUsers []SimilarUser
	Market       *MarketContext
}

// Scorer computes the four sub-scores and the weighted total.
type Scorer struct {
	cfg *Config
}

func NewScorer(cfg *Config) *Scorer {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Scorer{cfg: cfg}
}

// PreferenceScore rewards matches against the user's stated and inferred preferences.
func (s *Scorer) PreferenceScore(l *models.Listing, p *models.PreferenceProfile) (float64, []string) {
	if p == nil {
		return 0, nil
	}
	pts := s.cfg.Preference
	var (
		score   float64
		reasons []string
	)

	if r := p.PriceRange; r != nil && r.Contains(l.Price) {
		closeness := 1.0
		if half := (r.Max - r.Min) / 2; half > 0 {
			closeness = 1 - math.Abs(l.Price-r.Center())/half
		}
		score += pts.PriceInRange + pts.PriceCenterBonus*clamp01(closeness)
		reasons = append(reasons, "Within the price range you usually apply to")
	}
	if withinBudget(l, p) {
		score += pts.WithinBudget
		reasons = append(reasons, fmt.Sprintf("Within your budget of $%.0f", *p.BudgetMax))
	}

	if p.PrefersLocation(l.City) {
		score += pts.Location
		reasons = append(reasons, fmt.Sprintf("Located in %s, one of your preferred areas", l.City))
	}
	if p.PrefersPropertyType(l.PropertyType) {
		score += pts.PropertyType
		reasons = append(reasons, fmt.Sprintf("%s matches your preferred property type", capitalize(l.PropertyType)))
	}

	if p.PreferredBedrooms != nil {
		switch absInt(l.Bedrooms - *p.PreferredBedrooms) {
		case 0:
			score += pts.BedroomsExact
			reasons = append(reasons, fmt.Sprintf("Has the %d bedrooms you want", l.Bedrooms))
		case 1:
			score += pts.BedroomsNear
			reasons = append(reasons, "Close to your preferred number of bedrooms")
		}
	}

	var matched []string
	for _, name := range p.PreferredAmenities {
		if l.Amenities.Has(name) {
			score += pts.Amenity
			matched = append(matched, humanize(name))
		}
	}
	if len(matched) > 0 {
		reasons = append(reasons, "Includes "+strings.Join(matched, ", "))
	}

	return score, reasons
}

// CollaborativeScore rewards listings that similar users applied to or favorited.
func (s *Scorer) CollaborativeScore(l *models.Listing, peers []SimilarUser) (float64, []string) {
	pts := s.cfg.Collaborative
	var score float64
	engaged := 0
	for _, peer := range peers {
		if peer.History == nil {
			continue
		}
		hit := false
		for _, a := range peer.History.Applications {
			if a.ListingID == l.ID {
				score += pts.Application
				hit = true
			}
		}
		for _, f := range peer.History.Favorites {
			if f.ListingID == l.ID {
				score += pts.Favorite
				hit = true
			}
		}
		if hit {
			engaged++
		}
	}
	if engaged == 0 {
		return 0, nil
	}
	return score, []string{fmt.Sprintf("Popular with %d renters who share your taste", engaged)}
}

// BehavioralScore rewards listings consistent with the user's price sensitivity
// and the amenities they keep choosing.
func (s *Scorer) BehavioralScore(l *models.Listing, p *models.PreferenceProfile) (float64, []string) {
	if p == nil {
		return 0, nil
	}
	pts := s.cfg.Behavioral
	var (
		score   float64
		reasons []string
	)

	if p.PriceCenter != nil && *p.PriceCenter > 0 && l.Price > 0 {
		center := *p.PriceCenter
		deviation := math.Abs(l.Price-center) / center
		before := score
		switch p.PriceSensitivity {
		case models.SensitivityLow:
			if deviation <= pts.LowTightBand {
				score += pts.LowTight
			} else if deviation <= pts.LowLooseBand {
				score += pts.LowLoose
			}
		case models.SensitivityModerate:
			if deviation <= pts.ModerateBand {
				score += pts.Moderate
			}
		case models.SensitivityHigh:
			if l.Price <= center && pts.HighSaturates > 0 {
				discount := (center - l.Price) / center
				score += pts.HighBase + pts.HighDiscount*math.Min(1, discount/pts.HighSaturates)
			}
		}
		if score > before {
			reasons = append(reasons, "Priced in line with the rentals you usually go for")
		}
	}

	var matched []string
	for _, name := range p.AmenityImportance.HighImportance {
		if l.Amenities.Has(name) {
			score += pts.ImportantAmenity
			matched = append(matched, humanize(name))
		}
	}
	if len(matched) > 0 {
		reasons = append(reasons, "Has amenities you keep choosing: "+strings.Join(matched, ", "))
	}

	return score, reasons
}

// MarketScore rewards recent marketplace activity, competitive pricing within
// the comparable cohort, and listing quality.
func (s *Scorer) MarketScore(l *models.Listing, m *MarketContext) (float64, []string) {
	pts := s.cfg.Market
	var (
		score   float64
		reasons []string
	)

	if n := m.RecentViews(l.ID); n > 0 {
		score += pts.ActivityScale * math.Log1p(float64(n))
		reasons = append(reasons, fmt.Sprintf("Viewed %d times this week", n))
	}

	if discount, ok := s.competitiveDiscount(l, m); ok {
		score += pts.CompetitivePricing
		reasons = append(reasons, fmt.Sprintf("Priced %.0f%% below comparable listings", discount*100))
	}

	if pts.MinPhotos > 0 && l.PhotoCount >= pts.MinPhotos {
		score += pts.Photos
	}
	if pts.MinDescriptionLength > 0 && l.DescriptionLength >= pts.MinDescriptionLength {
		score += pts.Description
	}
	if l.PhotoCount >= pts.MinPhotos && l.DescriptionLength >= pts.MinDescriptionLength {
		reasons = append(reasons, "Well documented with photos and a detailed description")
	}

	return score, reasons
}

// competitiveDiscount reports how far below the cohort average the listing is
// priced, when the cohort is large enough and the discount meaningful.
func (s *Scorer) competitiveDiscount(l *models.Listing, m *MarketContext) (float64, bool) {
	pts := s.cfg.Market
	if l.Price <= 0 {
		return 0, false
	}
	cohort := m.comparables(l, pts.CohortBedroomSpread)
	if len(cohort) <= pts.MinCohortSize {
		return 0, false
	}
	prices := make([]float64, 0, len(cohort))
	for _, c := range cohort {
		if c.Price > 0 {
			prices = append(prices, c.Price)
		}
	}
	if len(prices) <= pts.MinCohortSize {
		return 0, false
	}
	avg := stat.Mean(prices, nil)
	if avg <= 0 || l.Price > avg*(1-pts.CompetitiveDiscount) {
		return 0, false
	}
	return (avg - l.Price) / avg, true
}

// Score attaches all sub-scores, the weighted total, relevance, reasons and
// tags to a copy of the listing.
func (s *Scorer) Score(l models.Listing, sc *ScoringContext) models.ScoredListing {
	if sc == nil {
		sc = &ScoringContext{}
	}

	pref, prefReasons := s.PreferenceScore(&l, sc.Profile)
	var collab float64
	var collabReasons []string
	if sc.Profile != nil {
		collab, collabReasons = s.CollaborativeScore(&l, sc.SimilarUsers)
	}
	behav, behavReasons := s.BehavioralScore(&l, sc.Profile)
	market, marketReasons := s.MarketScore(&l, sc.Market)

	w := s.cfg.Weights
	total := s.cfg.BaseScore +
		w.Preference*pref +
		w.Collaborative*collab +
		w.Behavioral*behav +
		w.Market*market

	reasons := make([]string, 0, len(prefReasons)+len(collabReasons)+len(behavReasons)+len(marketReasons)+1)
	reasons = append(reasons, prefReasons...)
	reasons = append(reasons, collabReasons...)
	reasons = append(reasons, behavReasons...)
	reasons = append(reasons, marketReasons...)

	topRated := l.AverageRating != nil && *l.AverageRating > s.cfg.RatingThreshold
	if topRated {
		total *= s.cfg.RatingMultiplier
		reasons = append(reasons, fmt.Sprintf("Rated %.1f by previous tenants", *l.AverageRating))
	}

	tags := []string{}
	if pref >= greatMatchPreference {
		tags = append(tags, TagGreatMatch)
	}
	if withinBudget(&l, sc.Profile) {
		tags = append(tags, TagWithinBudget)
	}
	if collab > 0 {
		tags = append(tags, TagPopularWithPeers)
	}
	if minViews := s.cfg.Market.TrendingTagMinViews; minViews > 0 && sc.Market.RecentViews(l.ID) >= minViews {
		tags = append(tags, TagTrending)
	}
	if _, ok := s.competitiveDiscount(&l, sc.Market); ok {
		tags = append(tags, TagGreatValue)
	}
	if topRated {
		tags = append(tags, TagTopRated)
	}

	return models.ScoredListing{
		Listing:            l,
		PreferenceScore:    round2(pref),
		CollaborativeScore: round2(collab),
		BehavioralScore:    round2(behav),
		MarketScore:        round2(market),
		TotalScore:         round2(total),
		RelevanceScore:     relevance(total),
		MatchReasons:       reasons,
		RecommendationTags: tags,
	}
}

// rankScored sorts by total score descending, breaking ties by listing ID.
func rankScored(items []models.ScoredListing) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].TotalScore != items[j].TotalScore {
			return items[i].TotalScore > items[j].TotalScore
		}
		return items[i].Listing.ID < items[j].Listing.ID
	})
}

// addBoost raises the total of an already scored listing and refreshes relevance.
func addBoost(item *models.ScoredListing, boost float64, reason string) {
	if boost <= 0 {
		return
	}
	item.TotalScore = round2(item.TotalScore + boost)
	item.RelevanceScore = relevance(item.TotalScore)
	item.MatchReasons = append(item.MatchReasons, reason)
}

func withinBudget(l *models.Listing, p *models.PreferenceProfile) bool {
	return p != nil && p.BudgetMax != nil && l.Price > 0 && l.Price <= *p.BudgetMax
}

// relevance clamps the total into [0, 100] for display.
func relevance(total float64) float64 {
	return math.Round(clamp(total, 0, 100)*10) / 10
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func humanize(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}

func capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// windowStart is the beginning of the trailing activity window.
func windowStart(now time.Time, window time.Duration) time.Time {
	return now.Add(-window)
}

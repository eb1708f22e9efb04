package recommend

import (
	"fmt"
	"time"
)

// Config holds every tunable constant of the scoring pipeline. The point
// increments are empirical; only their monotonicity and bounds matter.
type Config struct {
	// BaseScore is added to every candidate before weighting.
	BaseScore float64 `yaml:"base_score"`

	// Weights combine the four sub-scores. Preference must dominate.
	Weights Weights `yaml:"weights"`

	// RatingThreshold and RatingMultiplier boost well rated listings.
	RatingThreshold  float64 `yaml:"rating_threshold"`
	RatingMultiplier float64 `yaml:"rating_multiplier"`

	Preference      PreferencePoints      `yaml:"preference"`
	Collaborative   CollaborativePoints   `yaml:"collaborative"`
	Behavioral      BehavioralPoints      `yaml:"behavioral"`
	Market          MarketPoints          `yaml:"market"`
	Similarity      SimilarityPoints      `yaml:"similarity"`
	Personalization PersonalizationPoints `yaml:"personalization"`
	Extraction      ExtractionSettings    `yaml:"extraction"`
	Limits          Limits                `yaml:"limits"`
}

type Weights struct {
	Preference    float64 `yaml:"preference"`
	Collaborative float64 `yaml:"collaborative"`
	Behavioral    float64 `yaml:"behavioral"`
	Market        float64 `yaml:"market"`
}

type PreferencePoints struct {
	PriceInRange     float64 `yaml:"price_in_range"`
	PriceCenterBonus float64 `yaml:"price_center_bonus"`
	WithinBudget     float64 `yaml:"within_budget"`
	Location         float64 `yaml:"location"`
	PropertyType     float64 `yaml:"property_type"`
	BedroomsExact    float64 `yaml:"bedrooms_exact"`
	BedroomsNear     float64 `yaml:"bedrooms_near"`
	Amenity          float64 `yaml:"amenity"`
}

type CollaborativePoints struct {
	Application         float64 `yaml:"application"`
	Favorite            float64 `yaml:"favorite"`
	MaxSimilarUsers     int     `yaml:"max_similar_users"`
	RecencyHalfLifeDays float64 `yaml:"recency_half_life_days"`
}

type BehavioralPoints struct {
	// Low sensitivity: tight and loose bands around the user's price centre.
	LowTightBand  float64 `yaml:"low_tight_band"`
	LowTight      float64 `yaml:"low_tight"`
	LowLooseBand  float64 `yaml:"low_loose_band"`
	LowLoose      float64 `yaml:"low_loose"`
	ModerateBand  float64 `yaml:"moderate_band"`
	Moderate      float64 `yaml:"moderate"`
	HighBase      float64 `yaml:"high_base"`
	HighDiscount  float64 `yaml:"high_discount"`
	HighSaturates float64 `yaml:"high_saturates"`
	// ImportantAmenity is awarded per high-importance amenity present.
	ImportantAmenity float64 `yaml:"important_amenity"`
}

type MarketPoints struct {
	ActivityScale        float64 `yaml:"activity_scale"`
	CompetitivePricing   float64 `yaml:"competitive_pricing"`
	CompetitiveDiscount  float64 `yaml:"competitive_discount"`
	MinCohortSize        int     `yaml:"min_cohort_size"`
	CohortBedroomSpread  int     `yaml:"cohort_bedroom_spread"`
	Photos               float64 `yaml:"photos"`
	MinPhotos            int     `yaml:"min_photos"`
	Description          float64 `yaml:"description"`
	MinDescriptionLength int     `yaml:"min_description_length"`
	TrendingTagMinViews  int     `yaml:"trending_tag_min_views"`
}

type SimilarityPoints struct {
	SameType          float64 `yaml:"same_type"`
	SameCity          float64 `yaml:"same_city"`
	BedroomsExact     float64 `yaml:"bedrooms_exact"`
	BedroomsNear      float64 `yaml:"bedrooms_near"`
	PriceBand         float64 `yaml:"price_band"`
	PriceBandMax      float64 `yaml:"price_band_max"`
	SharedAmenity     float64 `yaml:"shared_amenity"`
	ProximityRadiusKm float64 `yaml:"proximity_radius_km"`
	ProximityMax      float64 `yaml:"proximity_max"`
	Cap               float64 `yaml:"cap"`
}

type PersonalizationPoints struct {
	FavoriteSimilarityWeight float64 `yaml:"favorite_similarity_weight"`
	ViewingIntensityFactor   float64 `yaml:"viewing_intensity_factor"`
	ViewingIntensityCap      float64 `yaml:"viewing_intensity_cap"`
	ExcludeApplied           bool    `yaml:"exclude_applied"`
}

type ExtractionSettings struct {
	MaxInferredPreferences int     `yaml:"max_inferred_preferences"`
	LowVariation           float64 `yaml:"low_variation"`
	ModerateVariation      float64 `yaml:"moderate_variation"`
	HighImportanceShare    float64 `yaml:"high_importance_share"`
}

type Limits struct {
	MaxResults          int           `yaml:"max_results"`
	DefaultSimilar      int           `yaml:"default_similar"`
	DefaultTrending     int           `yaml:"default_trending"`
	DefaultPersonalized int           `yaml:"default_personalized"`
	ActivityWindow      time.Duration `yaml:"activity_window"`
}

// DefaultConfig returns the production scoring constants.
func DefaultConfig() *Config {
	return &Config{
		BaseScore: 50,
		Weights: Weights{
			Preference:    0.40,
			Collaborative: 0.25,
			Behavioral:    0.20,
			Market:        0.15,
		},
		RatingThreshold:  4.0,
		RatingMultiplier: 1.2,
		Preference: PreferencePoints{
			PriceInRange:     10,
			PriceCenterBonus: 10,
			WithinBudget:     10,
			Location:         15,
			PropertyType:     10,
			BedroomsExact:    10,
			BedroomsNear:     5,
			Amenity:          3,
		},
		Collaborative: CollaborativePoints{
			Application:         5,
			Favorite:            3,
			MaxSimilarUsers:     10,
			RecencyHalfLifeDays: 90,
		},
		Behavioral: BehavioralPoints{
			LowTightBand:     0.10,
			LowTight:         10,
			LowLooseBand:     0.20,
			LowLoose:         5,
			ModerateBand:     0.20,
			Moderate:         8,
			HighBase:         5,
			HighDiscount:     10,
			HighSaturates:    0.30,
			ImportantAmenity: 4,
		},
		Market: MarketPoints{
			ActivityScale:        6,
			CompetitivePricing:   10,
			CompetitiveDiscount:  0.05,
			MinCohortSize:        5,
			CohortBedroomSpread:  1,
			Photos:               5,
			MinPhotos:            5,
			Description:          5,
			MinDescriptionLength: 200,
			TrendingTagMinViews:  3,
		},
		Similarity: SimilarityPoints{
			SameType:          30,
			SameCity:          25,
			BedroomsExact:     15,
			BedroomsNear:      8,
			PriceBand:         0.20,
			PriceBandMax:      15,
			SharedAmenity:     2,
			ProximityRadiusKm: 5,
			ProximityMax:      5,
			Cap:               100,
		},
		Personalization: PersonalizationPoints{
			FavoriteSimilarityWeight: 0.2,
			ViewingIntensityFactor:   2,
			ViewingIntensityCap:      10,
			ExcludeApplied:           true,
		},
		Extraction: ExtractionSettings{
			MaxInferredPreferences: 3,
			LowVariation:           0.10,
			ModerateVariation:      0.30,
			HighImportanceShare:    0.5,
		},
		Limits: Limits{
			MaxResults:          20,
			DefaultSimilar:      5,
			DefaultTrending:     10,
			DefaultPersonalized: 10,
			ActivityWindow:      7 * 24 * time.Hour,
		},
	}
}

// Validate checks that the configuration keeps the ranking monotonic and bounded.
func (c *Config) Validate() error {
	w := c.Weights
	for name, v := range map[string]float64{
		"weights.preference":    w.Preference,
		"weights.collaborative": w.Collaborative,
		"weights.behavioral":    w.Behavioral,
		"weights.market":        w.Market,
	} {
		if v < 0 {
			return fmt.Errorf("%s must be non-negative, got %f", name, v)
		}
	}
	if w.Preference <= w.Collaborative || w.Preference <= w.Behavioral || w.Preference <= w.Market {
		return fmt.Errorf("weights.preference must be the dominant weight, got %f", w.Preference)
	}
	if c.RatingMultiplier < 1 {
		return fmt.Errorf("rating_multiplier must be at least 1, got %f", c.RatingMultiplier)
	}
	if c.Preference.PriceInRange <= 0 || c.Preference.Amenity <= 0 {
		return fmt.Errorf("preference.price_in_range and preference.amenity must be positive")
	}
	if c.Collaborative.Application <= 0 || c.Collaborative.Favorite <= 0 {
		return fmt.Errorf("collaborative.application and collaborative.favorite must be positive")
	}
	if c.Collaborative.MaxSimilarUsers < 1 {
		return fmt.Errorf("collaborative.max_similar_users must be positive, got %d", c.Collaborative.MaxSimilarUsers)
	}
	if c.Collaborative.RecencyHalfLifeDays <= 0 {
		return fmt.Errorf("collaborative.recency_half_life_days must be positive, got %f", c.Collaborative.RecencyHalfLifeDays)
	}
	if c.Similarity.PriceBand <= 0 || c.Similarity.Cap <= 0 {
		return fmt.Errorf("similarity.price_band and similarity.cap must be positive")
	}
	if c.Extraction.LowVariation >= c.Extraction.ModerateVariation {
		return fmt.Errorf("extraction.low_variation must be below extraction.moderate_variation")
	}
	if c.Extraction.HighImportanceShare <= 0 || c.Extraction.HighImportanceShare > 1 {
		return fmt.Errorf("extraction.high_importance_share must be in (0, 1], got %f", c.Extraction.HighImportanceShare)
	}
	if c.Limits.MaxResults < 1 || c.Limits.DefaultSimilar < 1 || c.Limits.DefaultTrending < 1 || c.Limits.DefaultPersonalized < 1 {
		return fmt.Errorf("limits must be positive")
	}
	if c.Limits.ActivityWindow <= 0 {
		return fmt.Errorf("limits.activity_window must be positive, got %s", c.Limits.ActivityWindow)
	}
	return nil
}

package recommend

import (
	"errors"
	"fmt"
)

// Config holds the tunables of the hybrid composer.
type Config struct {
	// RecentActivityLimit caps how many recent view/purchase activities seed
	// the user profile.
	RecentActivityLimit int

	// ColdStartLimit caps the popularity list returned to users with no history.
	ColdStartLimit int

	// MinViewCount is the popularity threshold every candidate must reach.
	MinViewCount int64

	// ContentLimit caps content-based (same category) candidates.
	ContentLimit int

	// PopularityLimit caps popularity candidates.
	PopularityLimit int

	// ContentWeight and PopularityWeight are added to a candidate's score for
	// each list it appears in.
	ContentWeight    float64
	PopularityWeight float64

	// MaxResults truncates the merged list. Zero keeps every merged candidate,
	// which is bounded by ContentLimit + PopularityLimit.
	MaxResults int

	// CategoryLimit caps the category-only list served per user.
	CategoryLimit int
}

func DefaultConfig() Config {
	return Config{
		RecentActivityLimit: 5,
		ColdStartLimit:      8,
		MinViewCount:        10,
		ContentLimit:        10,
		PopularityLimit:     10,
		ContentWeight:       0.6,
		PopularityWeight:    0.4,
		MaxResults:          0,
		CategoryLimit:       8,
	}
}

// Validate checks that limits are usable and that both weights are positive,
// so that a product found by both signals always outranks one found by a
// single signal.
func (c Config) Validate() error {
	var errs []error
	if c.RecentActivityLimit <= 0 {
		errs = append(errs, fmt.Errorf("recent activity limit must be positive, got %d", c.RecentActivityLimit))
	}
	if c.ColdStartLimit <= 0 {
		errs = append(errs, fmt.Errorf("cold start limit must be positive, got %d", c.ColdStartLimit))
	}
	if c.CategoryLimit <= 0 {
		errs = append(errs, fmt.Errorf("category limit must be positive, got %d", c.CategoryLimit))
	}
	if c.ContentLimit <= 0 {
		errs = append(errs, fmt.Errorf("content limit must be positive, got %d", c.ContentLimit))
	}
	if c.PopularityLimit <= 0 {
		errs = append(errs, fmt.Errorf("popularity limit must be positive, got %d", c.PopularityLimit))
	}
	if c.MinViewCount < 0 {
		errs = append(errs, fmt.Errorf("min view count must not be negative, got %d", c.MinViewCount))
	}
	if c.ContentWeight <= 0 || c.PopularityWeight <= 0 {
		errs = append(errs, fmt.Errorf("weights must be positive, got content=%v popularity=%v", c.ContentWeight, c.PopularityWeight))
	}
	if c.MaxResults < 0 {
		errs = append(errs, fmt.Errorf("max results must not be negative, got %d", c.MaxResults))
	}
	return errors.Join(errs...)
}

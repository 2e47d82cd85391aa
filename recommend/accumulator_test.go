package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"agrimarket/api/models"
)

func TestAccumulator_Ranked(t *testing.T) {
	p := func(id string) models.Product { return models.Product{ID: id} }

	acc := newAccumulator(4)
	acc.add([]models.Product{p("c1"), p("both"), p("c2")}, 0.6)
	acc.add([]models.Product{p("pop1"), p("both")}, 0.4)

	var got []string
	for _, prod := range acc.ranked() {
		got = append(got, prod.ID)
	}
	assert.Equal(t, []string{"both", "c1", "c2", "pop1"}, got)
	assert.InDelta(t, 1.0, acc.byID["both"].score, 1e-9)
}

func TestAccumulator_Empty(t *testing.T) {
	assert.Empty(t, newAccumulator(0).ranked())
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero activity limit", func(c *Config) { c.RecentActivityLimit = 0 }},
		{"zero cold start limit", func(c *Config) { c.ColdStartLimit = 0 }},
		{"negative min views", func(c *Config) { c.MinViewCount = -1 }},
		{"zero content limit", func(c *Config) { c.ContentLimit = 0 }},
		{"zero popularity limit", func(c *Config) { c.PopularityLimit = 0 }},
		{"zero content weight", func(c *Config) { c.ContentWeight = 0 }},
		{"negative popularity weight", func(c *Config) { c.PopularityWeight = -0.4 }},
		{"negative max results", func(c *Config) { c.MaxResults = -1 }},
		{"zero category limit", func(c *Config) { c.CategoryLimit = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

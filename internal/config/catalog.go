package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// PrizeCatalog is the YAML file format for overriding prize settings without
// touching the environment. Operators tend to edit prize lists right up to
// the event, so they live in a file the env config only points at.
//
// Example:
//
//	big:
//	  capacity: 5
//	  prizes: [Thermo mug, Scarf]
//	  base_rate: 0.05
//	small:
//	  capacity: -1       # unlimited
//	  prizes: [Keychain, Badge]
type PrizeCatalog struct {
	Big   CatalogTier `yaml:"big"`
	Small CatalogTier `yaml:"small"`
}

// CatalogTier describes one prize tier in the catalog file. Pointer fields
// distinguish "absent" from zero so a partial file only overrides what it
// names.
type CatalogTier struct {
	Capacity      *int     `yaml:"capacity"`
	Prizes        []string `yaml:"prizes"`
	BaseRate      *float64 `yaml:"base_rate"`
	DeficitWeight *float64 `yaml:"deficit_weight"`
	UrgencyFactor *float64 `yaml:"urgency_factor"`
	MinRate       *float64 `yaml:"min_rate"`
	MaxRate       *float64 `yaml:"max_rate"`
}

func (c *Config) applyCatalogBytes(data []byte) error {
	var cat PrizeCatalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return fmt.Errorf("config: parse prize catalog: %w", err)
	}

	applyTier(&cat.Big, &c.BigPrizeCapacity, &c.BigPrizeList,
		&c.BigBaseRate, &c.BigDeficitWeight, &c.BigUrgencyFactor, &c.BigMinRate, &c.BigMaxRate)
	applyTier(&cat.Small, &c.SmallPrizeCapacity, &c.SmallPrizeList,
		&c.SmallBaseRate, &c.SmallDeficitWeight, &c.SmallUrgencyFactor, &c.SmallMinRate, &c.SmallMaxRate)
	return nil
}

func applyTier(t *CatalogTier, capacity *int, prizes *[]string, base, deficit, urgency, min, max *float64) {
	if t.Capacity != nil {
		*capacity = *t.Capacity
	}
	if len(t.Prizes) > 0 {
		*prizes = t.Prizes
	}
	if t.BaseRate != nil {
		*base = *t.BaseRate
	}
	if t.DeficitWeight != nil {
		*deficit = *t.DeficitWeight
	}
	if t.UrgencyFactor != nil {
		*urgency = *t.UrgencyFactor
	}
	if t.MinRate != nil {
		*min = *t.MinRate
	}
	if t.MaxRate != nil {
		*max = *t.MaxRate
	}
}

package common

import (
	"fmt"
	"strings"
)

//go:generate go run github.com/dmarkham/enumer -json -type Tier -trimprefix Tier

// Tier is the collection category of a Landsat product
type Tier int

const (
	TierT1 Tier = iota // Tier 1: highest geometric quality
	TierT2             // Tier 2
	TierRT             // Real-Time, not yet reprocessed
)

// ParseTiers parses a comma-separated list of tiers (e.g. "T1,T2")
func ParseTiers(s string) ([]Tier, error) {
	var tiers []Tier
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t == "" {
			continue
		}
		tier, err := TierString(t)
		if err != nil {
			return nil, fmt.Errorf("ParseTiers: %w", err)
		}
		tiers = append(tiers, tier)
	}
	return tiers, nil
}

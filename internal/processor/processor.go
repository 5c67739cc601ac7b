// Package processor filters extracted product records by market before they
// are handed to downstream consumers.
package processor

import (
	"strings"

	"go.uber.org/zap"

	"github.com/vianu/fraudcrawler/pkg/zyte"
)

// locationMapping maps a user-facing location to its country-code TLD.
var locationMapping = map[string]string{
	"Switzerland": "ch",
	"Chile":       "cl",
	"Austria":     "at",
}

// Processor applies market-specific filtering rules to extracted records.
type Processor struct {
	countryCode string
}

// New creates a Processor for the given location. Unknown locations fall
// back to the Swiss market with a warning.
func New(location string) *Processor {
	cc, ok := locationMapping[location]
	if !ok {
		zap.L().Warn("unknown location, defaulting country code",
			zap.String("location", location),
			zap.String("default", "ch"),
		)
		cc = "ch"
	}
	return &Processor{countryCode: strings.ToLower(cc)}
}

// CountryCode returns the lowercase country code the processor filters by.
func (p *Processor) CountryCode() string {
	return p.countryCode
}

// Keep reports whether a record's URL belongs to the processor's market:
// a country-code domain segment, a country-code TLD, or a .com domain.
func (p *Processor) Keep(rec zyte.Record) bool {
	u := strings.ToLower(rec.URL())
	return strings.Contains(u, "."+p.countryCode+"/") ||
		strings.HasSuffix(u, "."+p.countryCode) ||
		strings.Contains(u, ".com")
}

// Filter returns the records that pass the market filter.
func (p *Processor) Filter(records []zyte.Record) []zyte.Record {
	zap.L().Info("filtering products by country code",
		zap.Int("products", len(records)),
		zap.String("country_code", strings.ToUpper(p.countryCode)),
	)

	kept := make([]zyte.Record, 0, len(records))
	for _, rec := range records {
		if p.Keep(rec) {
			kept = append(kept, rec)
		}
	}

	zap.L().Info("filtered products",
		zap.Int("kept", len(kept)),
	)
	return kept
}

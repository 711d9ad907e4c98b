package domain

import (
	"context"
	"log/slog"
)

// SoilSource identifies which link of the fallback chain produced a reading.
type SoilSource string

const (
	SoilSourceOfficialCard SoilSource = "official-card"
	SoilSourceSatellite    SoilSource = "satellite-derived"
	SoilSourceDeclared     SoilSource = "user-declared"
	SoilSourceSynthetic    SoilSource = "synthetic-fallback"
)

// SoilReading is the resolved soil snapshot for one recommendation request.
// It is derived fresh per call and never persisted. Fields are pointers so a
// provider that reports only some attributes leaves the rest unknown rather
// than zero.
type SoilReading struct {
	Nitrogen      *float64   `json:"nitrogen"`
	Phosphorus    *float64   `json:"phosphorus"`
	Potassium     *float64   `json:"potassium"`
	PH            *float64   `json:"pH"`
	OrganicCarbon *float64   `json:"organicCarbon,omitempty"`
	Source        SoilSource `json:"source"`
}

// Float returns a pointer to v. Convenience for building readings and
// feature vectors.
func Float(v float64) *float64 { return &v }

// SyntheticSoilBaseline is the fixed reading used when every other link of
// the chain comes up empty.
func SyntheticSoilBaseline() SoilReading {
	return SoilReading{
		Nitrogen:      Float(245),
		Phosphorus:    Float(18),
		Potassium:     Float(210),
		PH:            Float(6.8),
		OrganicCarbon: Float(0.65),
		Source:        SoilSourceSynthetic,
	}
}

// ResolveSoil walks the provider chain in order and returns the first
// reading found. Provider failures are logged and treated identically to
// "no data". If no provider has data, the farm's declared soil is used; if
// the farm declared none, the synthetic baseline is returned. Never fails.
func ResolveSoil(ctx context.Context, loc Geo, declared *DeclaredSoil, providers []SoilProvider, logger *slog.Logger) SoilReading {
	for _, p := range providers {
		reading, err := p.Lookup(ctx, loc.Lat, loc.Lon)
		if err != nil {
			logger.Warn("soil provider lookup failed",
				"lat", loc.Lat,
				"lon", loc.Lon,
				"error", err,
			)
			continue
		}
		if reading != nil {
			return *reading
		}
	}

	if declared != nil {
		return SoilReading{
			Nitrogen:   Float(declared.Nitrogen),
			Phosphorus: Float(declared.Phosphorus),
			Potassium:  Float(declared.Potassium),
			PH:         Float(declared.PH),
			Source:     SoilSourceDeclared,
		}
	}

	return SyntheticSoilBaseline()
}

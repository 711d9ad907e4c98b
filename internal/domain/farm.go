package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrFarmNotFound is returned by FarmStore lookups for unknown farm IDs.
var ErrFarmNotFound = errors.New("farm not found")

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate checks coordinate ranges.
func (g Geo) Validate() error {
	if g.Lat < -90 || g.Lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90,90]", g.Lat)
	}
	if g.Lon < -180 || g.Lon > 180 {
		return fmt.Errorf("longitude %v out of range [-180,180]", g.Lon)
	}
	return nil
}

// DeclaredSoil holds the user-entered soil attributes on a farm record.
// These are the lowest-priority link in the soil resolution chain.
type DeclaredSoil struct {
	Nitrogen   float64 `json:"nitrogen"`
	Phosphorus float64 `json:"phosphorus"`
	Potassium  float64 `json:"potassium"`
	PH         float64 `json:"pH"`
}

// FarmPlot is a registered plot of land belonging to a user.
type FarmPlot struct {
	ID           string        `gorm:"primaryKey" json:"id"`
	UserID       string        `gorm:"index" json:"userId"`
	Name         string        `json:"name"`
	Location     Geo           `gorm:"embedded;embeddedPrefix:loc_" json:"location"`
	Soil         *DeclaredSoil `gorm:"embedded;embeddedPrefix:soil_" json:"soil,omitempty"`
	AreaHectares float64       `json:"area"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// Validate checks the fields a farm must carry before it can be stored.
func (f FarmPlot) Validate() error {
	if f.Name == "" {
		return errors.New("farm name is required")
	}
	if err := f.Location.Validate(); err != nil {
		return err
	}
	if f.Soil != nil && (f.Soil.PH < 0 || f.Soil.PH > 14) {
		return fmt.Errorf("soil pH %v out of range [0,14]", f.Soil.PH)
	}
	if f.AreaHectares < 0 {
		return fmt.Errorf("area %v must not be negative", f.AreaHectares)
	}
	return nil
}

package domain

import (
	"encoding/json"
	"math"
	"time"
)

// RainSeverity flags a forecast interval by its precipitation volume.
type RainSeverity string

const (
	RainSeverityNone     RainSeverity = "none"
	RainSeverityModerate RainSeverity = "moderate"
	RainSeverityHigh     RainSeverity = "high"
)

// ForecastPoint is one normalized short-range forecast interval,
// typically covering three hours.
type ForecastPoint struct {
	Time            time.Time    `json:"time"`
	TemperatureC    float64      `json:"temperature_c"`
	HumidityPercent float64      `json:"humidity_percent"`
	PrecipitationMM float64      `json:"precipitation_mm"`
	WindSpeedKmh    float64      `json:"wind_speed_kmh"`
	Condition       string       `json:"condition"`
	Severity        RainSeverity `json:"severity"`
	Synthetic       bool         `json:"synthetic,omitempty"`
}

// SeasonalAggregate summarizes a 90-day window of daily climate series.
// Fields are nil when the corresponding series was empty.
type SeasonalAggregate struct {
	Temperature90DayAvg *float64        `json:"temperature_90_day_avg"`
	Humidity90DayAvg    *float64        `json:"humidity_90_day_avg"`
	Rainfall90DaySum    *float64        `json:"rainfall_90_day_sum"`
	SampleDayCount      int             `json:"days"`
	Raw                 json.RawMessage `json:"raw,omitempty"`
}

// NewForecastPoint normalizes raw provider values into a ForecastPoint.
// Temperature is rounded to 1 decimal, precipitation is taken from the 3h
// accumulation when present (the longer window wins over 1h), wind speed is
// converted from m/s to km/h, and severity is derived from precipitation.
func NewForecastPoint(ts time.Time, tempC, humidity float64, rain1h, rain3h *float64, windMS float64, condition string) ForecastPoint {
	var precip float64
	switch {
	case rain3h != nil:
		precip = *rain3h
	case rain1h != nil:
		precip = *rain1h
	}

	return ForecastPoint{
		Time:            ts,
		TemperatureC:    roundTo(tempC, 1),
		HumidityPercent: humidity,
		PrecipitationMM: precip,
		WindSpeedKmh:    roundTo(windMS*3.6, 1),
		Condition:       condition,
		Severity:        DeriveRainSeverity(precip),
	}
}

// DeriveRainSeverity maps precipitation in the observed window to a severity
// flag: none <10mm, moderate 10–29.99mm, high ≥30mm.
func DeriveRainSeverity(precipMM float64) RainSeverity {
	switch {
	case precipMM >= 30:
		return RainSeverityHigh
	case precipMM >= 10:
		return RainSeverityModerate
	default:
		return RainSeverityNone
	}
}

// AggregateDailySeries reduces daily series to a seasonal aggregate:
// arithmetic mean for temperature and humidity, sum for precipitation, each
// rounded to 2 decimals. The series may have mismatched lengths;
// SampleDayCount is the longest.
func AggregateDailySeries(temps, hums, precs []float64) SeasonalAggregate {
	agg := SeasonalAggregate{
		SampleDayCount: max(len(temps), max(len(hums), len(precs))),
	}
	if len(temps) > 0 {
		agg.Temperature90DayAvg = Float(roundTo(sum(temps)/float64(len(temps)), 2))
	}
	if len(hums) > 0 {
		agg.Humidity90DayAvg = Float(roundTo(sum(hums)/float64(len(hums)), 2))
	}
	if len(precs) > 0 {
		agg.Rainfall90DaySum = Float(roundTo(sum(precs), 2))
	}
	return agg
}

// PseudoSeasonal repurposes a single forecast point as a degraded seasonal
// reading: values are taken directly from the point, not averaged.
func PseudoSeasonal(p ForecastPoint) SeasonalAggregate {
	return SeasonalAggregate{
		Temperature90DayAvg: Float(p.TemperatureC),
		Humidity90DayAvg:    Float(p.HumidityPercent),
		Rainfall90DaySum:    Float(p.PrecipitationMM),
		SampleDayCount:      1,
	}
}

// syntheticPoints mirror the canned forecast served when no live weather is
// available. Offsets are whole days from the current date.
var syntheticPoints = []struct {
	dayOffset int
	tempC     float64
	humidity  float64
	precipMM  float64
	condition string
}{
	{0, 29, 68, 20, "Partly Cloudy"},
	{1, 27, 72, 35, "Rainy"},
	{2, 26, 75, 45, "Heavy Rain"},
	{3, 28, 70, 10, "Cloudy"},
	{4, 30, 60, 5, "Sunny"},
	{5, 31, 58, 0, "Clear"},
	{6, 29, 62, 10, "Partly Cloudy"},
}

// SyntheticForecast returns the canned fallback forecast, clearly flagged as
// synthetic so downstream consumers can distinguish it from live data.
func SyntheticForecast() []ForecastPoint {
	base := clock.Now().UTC().Truncate(24 * time.Hour)
	points := make([]ForecastPoint, len(syntheticPoints))
	for i, sp := range syntheticPoints {
		points[i] = ForecastPoint{
			Time:            base.AddDate(0, 0, sp.dayOffset),
			TemperatureC:    sp.tempC,
			HumidityPercent: sp.humidity,
			PrecipitationMM: sp.precipMM,
			Condition:       sp.condition,
			Severity:        DeriveRainSeverity(sp.precipMM),
			Synthetic:       true,
		}
	}
	return points
}

func sum(vals []float64) float64 {
	var total float64
	for _, v := range vals {
		total += v
	}
	return total
}

func roundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}

package domain

// FeatureVector is the fixed-shape payload sent to the external prediction
// service. Every field is numeric or null; a missing input serializes as
// null, never 0, so a genuine zero reading stays distinguishable from
// "unknown".
type FeatureVector struct {
	N           *float64 `json:"N"`
	P           *float64 `json:"P"`
	K           *float64 `json:"K"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	PH          *float64 `json:"ph"`
	Rainfall    *float64 `json:"rainfall"`
}

// BuildFeatureVector fuses a soil reading and an optional seasonal aggregate
// into the predictor payload. pH defaults to 7 (neutral) only when entirely
// absent; nutrient levels have no defensible default and stay null. When
// seasonal data is unavailable the climate fields propagate as null — the
// predictor is responsible for handling them.
func BuildFeatureVector(soil SoilReading, seasonal *SeasonalAggregate) FeatureVector {
	vec := FeatureVector{
		N:  soil.Nitrogen,
		P:  soil.Phosphorus,
		K:  soil.Potassium,
		PH: soil.PH,
	}
	if vec.PH == nil {
		vec.PH = Float(7)
	}
	if seasonal != nil {
		vec.Temperature = seasonal.Temperature90DayAvg
		vec.Humidity = seasonal.Humidity90DayAvg
		vec.Rainfall = seasonal.Rainfall90DaySum
	}
	return vec
}

// Package domain models the crop-advisory data pipeline: soil readings,
// climate signals, prediction feature vectors, and canonical crop
// recommendations.
//
// # Data Sources
//
// Soil composition is resolved through a strict fallback chain:
//
//	official soil health card → satellite-derived soil grid →
//	farm's user-declared values → fixed synthetic baseline
//
// Each external lookup is non-fatal; any failure (network, non-2xx,
// malformed payload) is treated the same as "no data". The chain order is
// fixed and not configurable per call. The resolved reading is tagged with
// its source and never persisted.
//
// # Climate Conventions
//
// Short-range forecasts arrive as 3-hourly points. Normalization per point:
//
//	Temperature: degrees Celsius, rounded to 1 decimal.
//	Precipitation: millimetres, taken from the 3h accumulation field when
//	  present, otherwise the 1h field (the longer window wins).
//	Wind: converted from m/s to km/h.
//	Rain severity: none <10mm | moderate 10–29.99mm | high ≥30mm
//	  in the observed window.
//
// Seasonal aggregates reduce 90 days of daily series to a mean
// (temperature, humidity) or sum (precipitation), rounded to 2 decimals.
// The three series may have mismatched lengths; SampleDayCount reports the
// longest.
//
// # Null vs Zero
//
// A 0-valued sensor reading is a legitimate measurement. Feature-vector
// fields are pointers so that "unknown" serializes as JSON null and is never
// coerced to 0. The single sanctioned numeric default is pH 7 (neutral)
// when no pH reading exists at all.
//
// # Failure Policy
//
// Soil lookups and the short-range forecast self-heal to fallback data and
// never surface errors. The seasonal aggregate is a hard failure for its
// caller, because it feeds the predictor's core decision variables; the
// orchestrator degrades it to the first instant-forecast point instead.
// Predictor failures are recorded in history and masked with a fixed
// fallback recommendation set.
package domain

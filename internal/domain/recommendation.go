package domain

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
)

// CanonicalRecommendation is the normalized, UI-agnostic crop suggestion
// produced regardless of which response shape the predictor returned.
type CanonicalRecommendation struct {
	CropName        string   `json:"cropName"`
	ConfidenceScore int      `json:"confidenceScore"`
	Rationale       []string `json:"rationale"`
}

// NormalizeRecommendations converts a raw predictor payload into canonical
// recommendations. It recognizes, in priority order:
//
//	(a) a ranked list of {crop, confidence} pairs
//	(b) a single best guess {prediction, inputs_received}
//	(c) a generic array of crop-like objects, bare or under any key
//
// Confidence values in (0,1] are treated as fractions and scaled to 0–100;
// all scores are clamped to [0,100]. Unrecognized shapes normalize to an
// empty sequence. The function is pure and idempotent on its canonical
// form, which history replay depends on.
func NormalizeRecommendations(raw []byte) []CanonicalRecommendation {
	if recs := normalizeRankedList(raw); len(recs) > 0 {
		return recs
	}
	if recs := normalizeBestGuess(raw); len(recs) > 0 {
		return recs
	}
	if recs := normalizeLooseArrays(raw); len(recs) > 0 {
		return recs
	}
	return []CanonicalRecommendation{}
}

// FallbackRecommendations is the fixed advisory set served when the
// prediction service is unavailable. The rationale labels each entry as
// offline guidance so callers can distinguish it from a live prediction.
func FallbackRecommendations() []CanonicalRecommendation {
	return []CanonicalRecommendation{
		{CropName: "Wheat", ConfidenceScore: 92, Rationale: []string{
			"Ideal nitrogen levels and temperature range for wheat cultivation",
			"offline fallback advisory",
		}},
		{CropName: "Maize", ConfidenceScore: 88, Rationale: []string{
			"Good soil pH and moderate rainfall supports maize growth",
			"offline fallback advisory",
		}},
		{CropName: "Rice", ConfidenceScore: 85, Rationale: []string{
			"High humidity and expected rainfall beneficial for rice",
			"offline fallback advisory",
		}},
		{CropName: "Cotton", ConfidenceScore: 78, Rationale: []string{
			"Suitable temperature and potassium levels for cotton",
			"offline fallback advisory",
		}},
		{CropName: "Sugarcane", ConfidenceScore: 72, Rationale: []string{
			"Adequate phosphorus and warm conditions support sugarcane",
			"offline fallback advisory",
		}},
	}
}

type rankedEntry struct {
	Crop       string   `json:"crop"`
	Confidence *float64 `json:"confidence"`
}

func normalizeRankedList(raw []byte) []CanonicalRecommendation {
	var entries []rankedEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		var wrapped struct {
			Recommendations []rankedEntry `json:"recommendations"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil
		}
		entries = wrapped.Recommendations
	}

	recs := make([]CanonicalRecommendation, 0, len(entries))
	for _, e := range entries {
		if e.Crop == "" || e.Confidence == nil {
			continue
		}
		recs = append(recs, CanonicalRecommendation{
			CropName:        e.Crop,
			ConfidenceScore: scaleConfidence(*e.Confidence),
			Rationale:       []string{},
		})
	}
	return sortByConfidence(recs)
}

func normalizeBestGuess(raw []byte) []CanonicalRecommendation {
	var guess struct {
		Prediction      string                     `json:"prediction"`
		InputsReceived  map[string]json.RawMessage `json:"inputs_received"`
		InputsReceived2 map[string]json.RawMessage `json:"inputsReceived"`
	}
	if err := json.Unmarshal(raw, &guess); err != nil || guess.Prediction == "" {
		return nil
	}

	inputs := guess.InputsReceived
	if inputs == nil {
		inputs = guess.InputsReceived2
	}
	keys := make([]string, 0, len(inputs))
	for k := range inputs {
		keys = append(keys, k)
	}
	// Map iteration order is random; sort so replayed responses normalize
	// identically.
	sort.Strings(keys)

	rationale := make([]string, 0, len(keys))
	for _, k := range keys {
		rationale = append(rationale, k+": "+formatJSONValue(inputs[k]))
	}

	return []CanonicalRecommendation{{
		CropName:        guess.Prediction,
		ConfidenceScore: 90,
		Rationale:       rationale,
	}}
}

type looseCrop struct {
	Name     string `json:"name"`
	Crop     string `json:"crop"`
	CropName string `json:"cropName"`

	Score           *float64 `json:"score"`
	Suitability     *float64 `json:"suitability"`
	Confidence      *float64 `json:"confidence"`
	ConfidenceScore *float64 `json:"confidenceScore"`

	Reason    string   `json:"reason"`
	Rationale []string `json:"rationale"`
}

func (c looseCrop) name() string {
	switch {
	case c.Name != "":
		return c.Name
	case c.Crop != "":
		return c.Crop
	default:
		return c.CropName
	}
}

func (c looseCrop) score() float64 {
	for _, s := range []*float64{c.Score, c.Suitability, c.Confidence, c.ConfidenceScore} {
		if s != nil {
			return *s
		}
	}
	return 0
}

func (c looseCrop) rationale() []string {
	if len(c.Rationale) > 0 {
		return c.Rationale
	}
	if c.Reason != "" {
		return []string{c.Reason}
	}
	return []string{}
}

func normalizeLooseArrays(raw []byte) []CanonicalRecommendation {
	if recs := normalizeLooseArray(raw); len(recs) > 0 {
		return recs
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if recs := normalizeLooseArray(fields[k]); len(recs) > 0 {
			return recs
		}
	}
	return nil
}

func normalizeLooseArray(raw []byte) []CanonicalRecommendation {
	var entries []looseCrop
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}

	recs := make([]CanonicalRecommendation, 0, len(entries))
	for _, e := range entries {
		name := e.name()
		if name == "" {
			continue
		}
		recs = append(recs, CanonicalRecommendation{
			CropName:        name,
			ConfidenceScore: scaleConfidence(e.score()),
			Rationale:       e.rationale(),
		})
	}
	return sortByConfidence(recs)
}

// scaleConfidence disambiguates fraction vs percentage by range: values in
// (0,1] are fractions and scale by 100. The result is clamped to [0,100].
func scaleConfidence(c float64) int {
	if c > 0 && c <= 1 {
		c *= 100
	}
	if c < 0 {
		c = 0
	}
	if c > 100 {
		c = 100
	}
	return int(math.Round(c))
}

func sortByConfidence(recs []CanonicalRecommendation) []CanonicalRecommendation {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].ConfidenceScore > recs[j].ConfidenceScore
	})
	return recs
}

// formatJSONValue renders a raw JSON scalar for human-readable rationale
// text: strings are unquoted, everything else keeps its JSON form.
func formatJSONValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

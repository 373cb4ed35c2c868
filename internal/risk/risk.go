// Package risk implements the heuristic disease-risk evaluator. Scoring is a
// pure function of the snapshot: no state, no I/O, missing fields are neutral.
package risk

import "strings"

// Disease names used as assessment keys
const (
	Diabetes     = "diabetes"
	Hypertension = "hypertension"
	HeartDisease = "heart_disease"
	Stroke       = "stroke"
	Kidney       = "kidney_disease"
	COPD         = "copd"
)

// Snapshot is the subset of a vitals reading / symptom entry the evaluator
// looks at. Zero values mean "not measured".
type Snapshot struct {
	HeartRate    float64
	Systolic     float64
	Diastolic    float64
	BloodSugar   float64
	FastingSugar bool
	Weight       float64
	Temperature  float64
	SleepHours   float64
	Symptoms     string // free text, keyword-matched
	Severity     string // worst reported symptom severity: mild, moderate, severe
}

// Profile carries optional patient attributes that weight composite scores
type Profile struct {
	Age int
}

// Assessment maps disease name to an integer risk percent in [0,100]
type Assessment map[string]int

// Threshold constants. Single source of truth for every scoring call site.
const (
	sugarRandomCritical = 200 // -> diabetes 95
	sugarRandomElevated = 140 // -> diabetes 60
	sugarFastingHigh    = 126 // -> diabetes 85
	sugarFastingRaised  = 100 // -> diabetes 55

	systolicCrisis   = 180 // either crisis bound -> hypertension 98
	diastolicCrisis  = 120
	systolicStage2   = 140 // -> hypertension 75
	diastolicStage2  = 90
	systolicElevated = 130 // -> hypertension 45
	diastolicStage1  = 80

	diabetesCritical     = 95
	diabetesFastingHigh  = 85
	diabetesElevated     = 60
	diabetesFastingMild  = 55
	hypertensionCrisis   = 98
	hypertensionStage2   = 75
	hypertensionElevated = 45
	baselineRisk         = 5
)

// Alert thresholds: an assessment at or above any of these warrants external
// notification of caregivers.
const (
	AlertDiabetes     = 80
	AlertHypertension = 90
	AlertHeart        = 85
)

type keywordWeight struct {
	keyword string
	weight  int
}

var (
	heartSignals = []keywordWeight{
		{"chest", 30},
		{"breath", 15},
		{"palpitation", 15},
	}
	strokeSignals = []keywordWeight{
		{"numb", 35},
		{"speech", 20},
		{"vision", 15},
		{"dizzi", 10},
	}
	kidneySignals = []keywordWeight{
		{"urine", 25},
		{"swell", 20},
	}
	copdSignals = []keywordWeight{
		{"breath", 35},
		{"cough", 30},
		{"wheez", 25},
	}
)

// Evaluate computes the per-disease risk snapshot. Deterministic: identical
// input always yields identical output.
func Evaluate(s Snapshot, p Profile) Assessment {
	symptoms := strings.ToLower(s.Symptoms)

	a := Assessment{
		Diabetes:     scoreDiabetes(s),
		Hypertension: scoreHypertension(s),
		HeartDisease: scoreHeart(s, p, symptoms),
		Stroke:       scoreStroke(s, p, symptoms),
		Kidney:       scoreKidney(s, p, symptoms),
		COPD:         scoreCOPD(s, p, symptoms),
	}

	for disease, score := range a {
		a[disease] = clamp(score)
	}
	return a
}

func scoreDiabetes(s Snapshot) int {
	if s.BloodSugar <= 0 {
		return 0
	}
	if s.FastingSugar {
		switch {
		case s.BloodSugar >= sugarFastingHigh:
			return diabetesFastingHigh
		case s.BloodSugar >= sugarFastingRaised:
			return diabetesFastingMild
		}
		return baselineRisk
	}
	switch {
	case s.BloodSugar >= sugarRandomCritical:
		return diabetesCritical
	case s.BloodSugar >= sugarRandomElevated:
		return diabetesElevated
	}
	return baselineRisk
}

func scoreHypertension(s Snapshot) int {
	if s.Systolic <= 0 && s.Diastolic <= 0 {
		return 0
	}
	switch {
	case s.Systolic >= systolicCrisis || s.Diastolic >= diastolicCrisis:
		return hypertensionCrisis
	case s.Systolic >= systolicStage2 || s.Diastolic >= diastolicStage2:
		return hypertensionStage2
	case s.Systolic >= systolicElevated || s.Diastolic >= diastolicStage1:
		return hypertensionElevated
	}
	return baselineRisk
}

func scoreHeart(s Snapshot, p Profile, symptoms string) int {
	score := 0
	if s.HeartRate > 100 || (s.HeartRate > 0 && s.HeartRate < 50) {
		score += 25
	}
	if s.Systolic >= systolicStage2 {
		score += 25
	}
	if p.Age >= 60 {
		score += 20
	}
	score += keywordScore(symptoms, heartSignals)
	score += severityBonus(s.Severity)
	return score
}

func scoreStroke(s Snapshot, p Profile, symptoms string) int {
	score := 0
	if s.Systolic >= 160 {
		score += 30
	}
	if p.Age >= 65 {
		score += 25
	}
	score += keywordScore(symptoms, strokeSignals)
	score += severityBonus(s.Severity)
	return score
}

func scoreKidney(s Snapshot, p Profile, symptoms string) int {
	score := 0
	if s.Systolic >= systolicStage2 {
		score += 20
	}
	if s.BloodSugar >= 180 {
		score += 30
	}
	if p.Age >= 60 {
		score += 15
	}
	score += keywordScore(symptoms, kidneySignals)
	return score
}

func scoreCOPD(s Snapshot, p Profile, symptoms string) int {
	score := 0
	if p.Age >= 55 {
		score += 10
	}
	score += keywordScore(symptoms, copdSignals)
	score += severityBonus(s.Severity)
	return score
}

func keywordScore(symptoms string, signals []keywordWeight) int {
	if symptoms == "" {
		return 0
	}
	score := 0
	for _, sig := range signals {
		if strings.Contains(symptoms, sig.keyword) {
			score += sig.weight
		}
	}
	return score
}

func severityBonus(severity string) int {
	if severity == "severe" {
		return 10
	}
	return 0
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// ShouldAlert reports whether the assessment warrants external notification
func ShouldAlert(a Assessment) bool {
	return a[Diabetes] >= AlertDiabetes ||
		a[Hypertension] >= AlertHypertension ||
		a[HeartDisease] >= AlertHeart
}

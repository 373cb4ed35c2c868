package risk

const maxTips = 6

type tipBand struct {
	disease  string
	minScore int
	tip      string
}

// Ordered highest band first per disease so the strongest applicable tip wins
var tipBands = []tipBand{
	{Diabetes, 80, "Your blood sugar is critically high. Contact your doctor today."},
	{Diabetes, 50, "Blood sugar is elevated. Cut refined sugar and recheck after your next fast."},
	{Hypertension, 90, "Blood pressure is at crisis level. Seek medical care immediately."},
	{Hypertension, 60, "Blood pressure is high. Reduce salt intake and rest before re-measuring."},
	{Hypertension, 40, "Blood pressure is slightly elevated. Keep monitoring daily."},
	{HeartDisease, 70, "Cardiac risk signals detected. Discuss chest symptoms with a cardiologist."},
	{HeartDisease, 40, "Watch your heart rate and avoid strenuous activity until readings settle."},
	{Stroke, 60, "Numbness or speech changes can signal a stroke. Do not wait - get checked now."},
	{Kidney, 50, "Combined pressure and sugar readings strain the kidneys. Ask for a renal panel."},
	{COPD, 50, "Persistent breathing symptoms deserve a lung function test."},
	{COPD, 30, "Track your cough and breathlessness; avoid smoke and dust."},
}

// Tips maps risk bands to advisory strings, deduplicated and capped. Order
// follows the band table so output is stable for identical input.
func Tips(a Assessment) []string {
	seen := make(map[string]bool)
	covered := make(map[string]bool)
	tips := make([]string, 0, maxTips)

	for _, band := range tipBands {
		if covered[band.disease] {
			continue
		}
		if a[band.disease] < band.minScore {
			continue
		}
		covered[band.disease] = true
		if seen[band.tip] {
			continue
		}
		seen[band.tip] = true
		tips = append(tips, band.tip)
		if len(tips) >= maxTips {
			break
		}
	}

	if len(tips) == 0 {
		tips = append(tips, "Readings look stable. Keep logging your vitals daily.")
	}
	return tips
}

package triage

import "calltriage/internal/models"

const (
	MaxPriorityScore = 100

	severityMultiplier = 10
	defaultTypeWeight  = 5
	ongoingDangerBonus = 10
	weaponBonus        = 10
	unconsciousBonus   = 15
	notBreathingBonus  = 20
)

var urgencyWeights = map[models.Urgency]int{
	models.UrgencyImmediate: 25,
	models.UrgencyHigh:      20,
	models.UrgencyMedium:    10,
	models.UrgencyLow:       5,
	models.UrgencyNone:      0,
}

var emergencyTypeWeights = map[models.EmergencyType]int{
	models.EmergencyTypeRescue:           20,
	models.EmergencyTypeNaturalDisaster:  20,
	models.EmergencyTypeFire:             18,
	models.EmergencyTypeMedical:          15,
	models.EmergencyTypeDomesticViolence: 15,
	models.EmergencyTypeAssault:          15,
	models.EmergencyTypeTrafficAccident:  12,
	models.EmergencyTypeRobbery:          12,
	models.EmergencyTypePolice:           10,
}

// ScoreBreakdown lists what each rule contributed to a priority score.
type ScoreBreakdown struct {
	Severity      int `json:"severity"`
	Urgency       int `json:"urgency"`
	EmergencyType int `json:"emergency_type"`
	OngoingDanger int `json:"ongoing_danger"`
	Weapon        int `json:"weapon"`
	Unconscious   int `json:"unconscious"`
	NotBreathing  int `json:"not_breathing"`
	Raw           int `json:"raw"`
	Total         int `json:"total"`
}

// ComputeScore returns the dispatch priority of an analysis, capped at 100.
func ComputeScore(a *models.EmergencyAnalysis) int {
	return Breakdown(a).Total
}

func Breakdown(a *models.EmergencyAnalysis) ScoreBreakdown {
	b := ScoreBreakdown{
		Severity: a.SeverityLevel * severityMultiplier,
		Urgency:  urgencyWeights[a.Urgency],
	}

	if w, ok := emergencyTypeWeights[a.EmergencyType]; ok {
		b.EmergencyType = w
	} else {
		b.EmergencyType = defaultTypeWeight
	}

	if a.ThreatLevel.OngoingDanger {
		b.OngoingDanger = ongoingDangerBonus
	}
	if a.ThreatLevel.WeaponInvolved {
		b.Weapon = weaponBonus
	}
	if a.MedicalInfo.Consciousness == models.ConsciousnessUnconscious {
		b.Unconscious = unconsciousBonus
	}
	if a.MedicalInfo.Breathing == models.BreathingNotBreathing {
		b.NotBreathing = notBreathingBonus
	}

	b.Raw = b.Severity + b.Urgency + b.EmergencyType + b.OngoingDanger + b.Weapon + b.Unconscious + b.NotBreathing
	b.Total = min(b.Raw, MaxPriorityScore)

	return b
}

package models

import "strings"

type EmergencyType string
type Urgency string
type CallerRelationship string
type Consciousness string
type Breathing string
type AgeGroup string

// Unknown is the sentinel for information the call did not provide.
const Unknown = "unknown"

const (
	EmergencyTypeMedical          EmergencyType = "medical"
	EmergencyTypeFire             EmergencyType = "fire"
	EmergencyTypePolice           EmergencyType = "police"
	EmergencyTypeRescue           EmergencyType = "rescue"
	EmergencyTypeNaturalDisaster  EmergencyType = "natural_disaster"
	EmergencyTypeTrafficAccident  EmergencyType = "traffic_accident"
	EmergencyTypeDomesticViolence EmergencyType = "domestic_violence"
	EmergencyTypeRobbery          EmergencyType = "robbery"
	EmergencyTypeAssault          EmergencyType = "assault"
	EmergencyTypeOther            EmergencyType = "other"

	UrgencyImmediate Urgency = "immediate"
	UrgencyHigh      Urgency = "high"
	UrgencyMedium    Urgency = "medium"
	UrgencyLow       Urgency = "low"
	UrgencyNone      Urgency = "non-urgent"

	CallerRelationshipVictim    CallerRelationship = "victim"
	CallerRelationshipWitness   CallerRelationship = "witness"
	CallerRelationshipBystander CallerRelationship = "bystander"
	CallerRelationshipFamily    CallerRelationship = "family"
	CallerRelationshipUnknown   CallerRelationship = Unknown

	ConsciousnessConscious   Consciousness = "conscious"
	ConsciousnessUnconscious Consciousness = "unconscious"
	ConsciousnessUnknown     Consciousness = Unknown

	BreathingNormal       Breathing = "normal"
	BreathingDifficulty   Breathing = "difficulty"
	BreathingNotBreathing Breathing = "not_breathing"
	BreathingUnknown      Breathing = Unknown

	AgeGroupInfant  AgeGroup = "infant"
	AgeGroupChild   AgeGroup = "child"
	AgeGroupAdult   AgeGroup = "adult"
	AgeGroupElderly AgeGroup = "elderly"
	AgeGroupUnknown AgeGroup = Unknown
)

// EmergencyTypes lists every recognized emergency type, "other" last.
var EmergencyTypes = []EmergencyType{
	EmergencyTypeMedical,
	EmergencyTypeFire,
	EmergencyTypePolice,
	EmergencyTypeRescue,
	EmergencyTypeNaturalDisaster,
	EmergencyTypeTrafficAccident,
	EmergencyTypeDomesticViolence,
	EmergencyTypeRobbery,
	EmergencyTypeAssault,
	EmergencyTypeOther,
}

var Urgencies = []Urgency{UrgencyImmediate, UrgencyHigh, UrgencyMedium, UrgencyLow, UrgencyNone}

func (t EmergencyType) IsValid() bool {
	for _, known := range EmergencyTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (u Urgency) IsValid() bool {
	for _, known := range Urgencies {
		if u == known {
			return true
		}
	}
	return false
}

func (r CallerRelationship) IsValid() bool {
	switch r {
	case CallerRelationshipVictim, CallerRelationshipWitness, CallerRelationshipBystander,
		CallerRelationshipFamily, CallerRelationshipUnknown:
		return true
	}
	return false
}

func (c Consciousness) IsValid() bool {
	switch c {
	case ConsciousnessConscious, ConsciousnessUnconscious, ConsciousnessUnknown:
		return true
	}
	return false
}

func (b Breathing) IsValid() bool {
	switch b {
	case BreathingNormal, BreathingDifficulty, BreathingNotBreathing, BreathingUnknown:
		return true
	}
	return false
}

func (a AgeGroup) IsValid() bool {
	switch a {
	case AgeGroupInfant, AgeGroupChild, AgeGroupAdult, AgeGroupElderly, AgeGroupUnknown:
		return true
	}
	return false
}

// EmergencyAnalysis is the normalized description of one emergency call.
// Field names follow the layout already present in stored records.
type EmergencyAnalysis struct {
	EmergencyType   EmergencyType   `json:"emergency_type"`
	SeverityLevel   int             `json:"severity_level"`
	Urgency         Urgency         `json:"urgency"`
	Location        Location        `json:"location"`
	PeopleInvolved  PeopleInvolved  `json:"people_involved"`
	MedicalInfo     MedicalInfo     `json:"medical_info"`
	ThreatLevel     ThreatLevel     `json:"threat_level"`
	ResourcesNeeded ResourcesNeeded `json:"resources_needed"`
	ResponseTime    string          `json:"response_time"`
	CallerState     string          `json:"caller_state"`
	CallQuality     string          `json:"call_quality"`
	KeyDetails      []string        `json:"key_details"`
	Summary         string          `json:"summary"`
	DispatchNotes   string          `json:"dispatch_notes"`
	FollowUpNeeded  bool            `json:"follow_up_needed"`
	CallbackNeeded  bool            `json:"callback_required"`
}

type Location struct {
	Address       string `json:"address"`
	Area          string `json:"area"`
	Coordinates   string `json:"coordinates"`
	Accessibility string `json:"accessibility"`
}

type PeopleInvolved struct {
	Victims            int                `json:"victims"`
	Suspects           int                `json:"suspects"`
	Witnesses          int                `json:"witnesses"`
	CallerRelationship CallerRelationship `json:"caller_relationship"`
}

type MedicalInfo struct {
	Injuries      []string      `json:"injuries"`
	Consciousness Consciousness `json:"consciousness"`
	Breathing     Breathing     `json:"breathing"`
	AgeGroup      AgeGroup      `json:"age_group"`
}

type ThreatLevel struct {
	OngoingDanger  bool `json:"ongoing_danger"`
	WeaponInvolved bool `json:"weapon_involved"`
	SuspectPresent bool `json:"suspect_present"`
	SafeToApproach bool `json:"safe_to_approach"`
}

type ResourcesNeeded struct {
	Ambulance    bool     `json:"ambulance"`
	FireTruck    bool     `json:"fire_truck"`
	Police       bool     `json:"police"`
	Hazmat       bool     `json:"hazmat"`
	Helicopter   bool     `json:"helicopter"`
	SpecialUnits []string `json:"special_units"`
}

// HasKnownArea reports whether the analysis names an area worth indexing.
func (a *EmergencyAnalysis) HasKnownArea() bool {
	area := strings.TrimSpace(a.Location.Area)
	return area != "" && !strings.EqualFold(area, Unknown)
}

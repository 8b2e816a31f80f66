package triage

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"

	"calltriage/internal/models"
	"calltriage/pkg/logger"

	"github.com/spf13/cast"
)

const (
	fallbackSeverity   = 3
	keyDetailsMaxRunes = 100
	maxCount           = math.MaxInt32
)

var (
	ErrBlankResponse = errors.New("model response is blank")
	ErrNotJSONObject = errors.New("model response does not contain a JSON object")
)

var (
	emergencyTypeAliases = map[string]models.EmergencyType{
		"medical":           models.EmergencyTypeMedical,
		"fire":              models.EmergencyTypeFire,
		"police":            models.EmergencyTypePolice,
		"rescue":            models.EmergencyTypeRescue,
		"natural_disaster":  models.EmergencyTypeNaturalDisaster,
		"traffic_accident":  models.EmergencyTypeTrafficAccident,
		"domestic_violence": models.EmergencyTypeDomesticViolence,
		"robbery":           models.EmergencyTypeRobbery,
		"assault":           models.EmergencyTypeAssault,
		"other":             models.EmergencyTypeOther,
	}
	urgencyAliases = map[string]models.Urgency{
		"immediate":  models.UrgencyImmediate,
		"high":       models.UrgencyHigh,
		"medium":     models.UrgencyMedium,
		"low":        models.UrgencyLow,
		"non_urgent": models.UrgencyNone,
		"nonurgent":  models.UrgencyNone,
	}
)

// Normalizer turns raw model output into a fully populated analysis.
type Normalizer struct {
	logger *logger.Logger
}

func NewNormalizer(log *logger.Logger) *Normalizer {
	if log == nil {
		log = logger.NewNop()
	}
	return &Normalizer{logger: log}
}

// Normalize never fails: output that cannot be parsed yields FallbackAnalysis.
// transcription only feeds the fallback's key details.
func (n *Normalizer) Normalize(raw, transcription string) models.EmergencyAnalysis {
	analysis, _ := n.NormalizeWithStatus(raw, transcription)
	return analysis
}

// NormalizeWithStatus is Normalize that also reports whether the fallback
// record was used.
func (n *Normalizer) NormalizeWithStatus(raw, transcription string) (models.EmergencyAnalysis, bool) {
	analysis, err := Parse(raw)
	if err != nil {
		preview := []rune(strings.TrimSpace(raw))
		if len(preview) > 200 {
			preview = preview[:200]
		}
		n.logger.WithError(err).
			WithField("response_preview", string(preview)).
			Warn("Could not parse model analysis, using fallback record")
		return FallbackAnalysis(transcription), true
	}
	return analysis, false
}

// Parse strips code fences, decodes the JSON object and coerces every field
// into its closed set.
func Parse(raw string) (models.EmergencyAnalysis, error) {
	cleaned := StripCodeFence(raw)
	if cleaned == "" {
		return models.EmergencyAnalysis{}, ErrBlankResponse
	}

	fields, err := decodeObject(cleaned)
	if err != nil {
		start, end := strings.Index(cleaned, "{"), strings.LastIndex(cleaned, "}")
		if start < 0 || end <= start {
			return models.EmergencyAnalysis{}, fmt.Errorf("%w: %v", ErrNotJSONObject, err)
		}
		if fields, err = decodeObject(cleaned[start : end+1]); err != nil {
			return models.EmergencyAnalysis{}, fmt.Errorf("%w: %v", ErrNotJSONObject, err)
		}
	}

	return fromFields(fields), nil
}

// StripCodeFence removes a surrounding ``` block, with or without a
// language tag.
func StripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}

	s = strings.TrimPrefix(s, "```")
	s = strings.TrimLeftFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '+'
	})
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")

	return strings.TrimSpace(s)
}

// FallbackAnalysis is the fixed record used whenever the model output is
// unusable. Police response is assumed when nothing else is known.
func FallbackAnalysis(transcription string) models.EmergencyAnalysis {
	keyDetails := []string{}
	if strings.TrimSpace(transcription) != "" {
		runes := []rune(transcription)
		if len(runes) > keyDetailsMaxRunes {
			runes = runes[:keyDetailsMaxRunes]
		}
		keyDetails = append(keyDetails, string(runes))
	}

	return models.EmergencyAnalysis{
		EmergencyType: models.EmergencyTypeOther,
		SeverityLevel: fallbackSeverity,
		Urgency:       models.UrgencyMedium,
		Location: models.Location{
			Address:       models.Unknown,
			Area:          models.Unknown,
			Coordinates:   models.Unknown,
			Accessibility: models.Unknown,
		},
		PeopleInvolved: models.PeopleInvolved{
			Victims:            1,
			CallerRelationship: models.CallerRelationshipUnknown,
		},
		MedicalInfo: models.MedicalInfo{
			Injuries:      []string{},
			Consciousness: models.ConsciousnessUnknown,
			Breathing:     models.BreathingUnknown,
			AgeGroup:      models.AgeGroupUnknown,
		},
		ThreatLevel: models.ThreatLevel{
			SafeToApproach: true,
		},
		ResourcesNeeded: models.ResourcesNeeded{
			Police:       true,
			SpecialUnits: []string{},
		},
		ResponseTime:   "15min",
		CallerState:    models.Unknown,
		CallQuality:    "good",
		KeyDetails:     keyDetails,
		Summary:        "Emergency call requiring analysis",
		DispatchNotes:  "Manual review required",
		FollowUpNeeded: true,
		CallbackNeeded: true,
	}
}

func decodeObject(s string) (map[string]interface{}, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(s), &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("null is not an object")
	}
	return fields, nil
}

func fromFields(f map[string]interface{}) models.EmergencyAnalysis {
	location := section(f, "location")
	people := section(f, "people_involved")
	medical := section(f, "medical_info")
	threat := section(f, "threat_level")
	resources := section(f, "resources_needed")

	return models.EmergencyAnalysis{
		EmergencyType: toEmergencyType(f["emergency_type"]),
		SeverityLevel: toSeverity(f["severity_level"]),
		Urgency:       toUrgency(f["urgency"]),
		Location: models.Location{
			Address:       text(location, "address"),
			Area:          text(location, "area"),
			Coordinates:   text(location, "coordinates"),
			Accessibility: text(location, "accessibility"),
		},
		PeopleInvolved: models.PeopleInvolved{
			Victims:            count(people, "victims"),
			Suspects:           count(people, "suspects"),
			Witnesses:          count(people, "witnesses"),
			CallerRelationship: models.CallerRelationship(enum(people, "caller_relationship", func(s string) bool { return models.CallerRelationship(s).IsValid() })),
		},
		MedicalInfo: models.MedicalInfo{
			Injuries:      list(medical, "injuries"),
			Consciousness: models.Consciousness(enum(medical, "consciousness", func(s string) bool { return models.Consciousness(s).IsValid() })),
			Breathing:     models.Breathing(enum(medical, "breathing", func(s string) bool { return models.Breathing(s).IsValid() })),
			AgeGroup:      models.AgeGroup(enum(medical, "age_group", func(s string) bool { return models.AgeGroup(s).IsValid() })),
		},
		ThreatLevel: models.ThreatLevel{
			OngoingDanger:  flag(threat, "ongoing_danger"),
			WeaponInvolved: flag(threat, "weapon_involved"),
			SuspectPresent: flag(threat, "suspect_present"),
			SafeToApproach: flag(threat, "safe_to_approach"),
		},
		ResourcesNeeded: models.ResourcesNeeded{
			Ambulance:    flag(resources, "ambulance"),
			FireTruck:    flag(resources, "fire_truck"),
			Police:       flag(resources, "police"),
			Hazmat:       flag(resources, "hazmat"),
			Helicopter:   flag(resources, "helicopter"),
			SpecialUnits: list(resources, "special_units"),
		},
		ResponseTime:   text(f, "response_time"),
		CallerState:    text(f, "caller_state"),
		CallQuality:    text(f, "call_quality"),
		KeyDetails:     list(f, "key_details"),
		Summary:        text(f, "summary"),
		DispatchNotes:  text(f, "dispatch_notes"),
		FollowUpNeeded: flag(f, "follow_up_needed"),
		CallbackNeeded: flag(f, "callback_required"),
	}
}

// canonical lower-cases and joins words with underscores so "Traffic Accident"
// and "traffic-accident" resolve to the same key.
func canonical(v interface{}) string {
	s := strings.ToLower(strings.TrimSpace(cast.ToString(v)))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}

func toEmergencyType(v interface{}) models.EmergencyType {
	if t, ok := emergencyTypeAliases[canonical(v)]; ok {
		return t
	}
	return models.EmergencyTypeOther
}

// Unrecognized urgency maps to non-urgent, which carries the same zero
// weight an unrecognized value gets when scoring.
func toUrgency(v interface{}) models.Urgency {
	if u, ok := urgencyAliases[canonical(v)]; ok {
		return u
	}
	return models.UrgencyNone
}

func toSeverity(v interface{}) int {
	if v == nil {
		return fallbackSeverity
	}
	level, ok := number(v)
	if !ok {
		return fallbackSeverity
	}
	return int(math.Min(math.Max(level, 1), 5))
}

// number reads v as a float so huge values clamp instead of overflowing int.
func number(v interface{}) (float64, bool) {
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func section(f map[string]interface{}, key string) map[string]interface{} {
	if m, ok := f[key].(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

func text(f map[string]interface{}, key string) string {
	s := strings.TrimSpace(cast.ToString(f[key]))
	if s == "" || strings.EqualFold(s, models.Unknown) {
		return models.Unknown
	}
	return s
}

func enum(f map[string]interface{}, key string, valid func(string) bool) string {
	s := canonical(f[key])
	if valid(s) {
		return s
	}
	return models.Unknown
}

func count(f map[string]interface{}, key string) int {
	n, ok := number(f[key])
	if !ok || n < 0 {
		return 0
	}
	return int(math.Min(n, maxCount))
}

func flag(f map[string]interface{}, key string) bool {
	b, err := cast.ToBoolE(f[key])
	if err != nil {
		return false
	}
	return b
}

func list(f map[string]interface{}, key string) []string {
	out := []string{}
	switch v := f[key].(type) {
	case nil:
	case string:
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	default:
		items, err := cast.ToStringSliceE(v)
		if err != nil {
			return out
		}
		for _, item := range items {
			if s := strings.TrimSpace(item); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

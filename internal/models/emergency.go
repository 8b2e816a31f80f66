package models

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
)

type EmergencyStatus string

const (
	EmergencyStatusPending    EmergencyStatus = "pending"
	EmergencyStatusDispatched EmergencyStatus = "dispatched"
	EmergencyStatusEnRoute    EmergencyStatus = "en_route"
	EmergencyStatusOnScene    EmergencyStatus = "on_scene"
	EmergencyStatusResolved   EmergencyStatus = "resolved"
	EmergencyStatusCancelled  EmergencyStatus = "cancelled"
)

type Emergency struct {
	ID               string            `json:"id"`
	Timestamp        time.Time         `json:"timestamp"`
	CallMetadata     CallMetadata      `json:"call_metadata"`
	RawTranscription string            `json:"raw_transcription"`
	Analysis         EmergencyAnalysis `json:"analysis"`
	PriorityScore    int               `json:"priority_score"`
	Status           EmergencyStatus   `json:"status"`
	AssignedUnits    []string          `json:"assigned_units"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

type CallMetadata struct {
	CallSID      string `json:"call_sid"`
	RecordingSID string `json:"recording_sid"`
	Duration     int    `json:"duration"`
	CallerPhone  string `json:"caller_phone"`
}

// AnalyzeEmergencyRequest is the inbound payload of POST /analyze-emergency.
type AnalyzeEmergencyRequest struct {
	Transcription string `json:"transcription" validate:"notblank,max=20000"`
	CallSID       string `json:"call_sid" validate:"omitempty,max=64"`
	RecordingSID  string `json:"recording_sid" validate:"omitempty,max=64"`
	Duration      int    `json:"duration" validate:"omitempty,min=0"`
	CallerPhone   string `json:"caller_phone" validate:"omitempty,max=32"`
}

var ErrInvalidDuration = errors.New("duration must be a number of seconds")

// UnmarshalJSON accepts duration as a JSON number or a numeric string, since
// Twilio reports it as a string and the transcription service as a float.
func (r *AnalyzeEmergencyRequest) UnmarshalJSON(data []byte) error {
	type plain AnalyzeEmergencyRequest
	aux := struct {
		*plain
		Duration interface{} `json:"duration"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	seconds, err := parseSeconds(aux.Duration)
	if err != nil {
		return err
	}
	r.Duration = seconds
	return nil
}

func parseSeconds(v interface{}) (int, error) {
	if v == nil {
		return 0, nil
	}
	if s, ok := v.(string); ok {
		if s = strings.TrimSpace(s); s == "" {
			return 0, nil
		}
		v = s
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) {
		return 0, ErrInvalidDuration
	}
	return int(math.Round(math.Max(math.Min(f, math.MaxInt32), math.MinInt32))), nil
}

// EmergencyTypeQuery is the path input of GET /emergencies/type/:type.
type EmergencyTypeQuery struct {
	Type EmergencyType `json:"type" validate:"required,emergency_type"`
}

// Metadata fills absent call fields with the unknown sentinel.
func (r *AnalyzeEmergencyRequest) Metadata() CallMetadata {
	return CallMetadata{
		CallSID:      orUnknown(r.CallSID),
		RecordingSID: orUnknown(r.RecordingSID),
		Duration:     max(r.Duration, 0),
		CallerPhone:  orUnknown(r.CallerPhone),
	}
}

type AnalyzeEmergencyResponse struct {
	Success       bool              `json:"success"`
	EmergencyID   string            `json:"emergency_id"`
	PriorityScore int               `json:"priority_score"`
	Analysis      EmergencyAnalysis `json:"analysis"`
	CallMetadata  CallMetadata      `json:"call_metadata"`
	Timestamp     time.Time         `json:"timestamp"`
}

type EmergencyListResponse struct {
	Success     bool         `json:"success"`
	Area        string       `json:"area,omitempty"`
	Type        string       `json:"type,omitempty"`
	Count       int          `json:"count"`
	Emergencies []*Emergency `json:"emergencies"`
}

// EmergencyStats feeds the dashboard charts.
type EmergencyStats struct {
	Total      int64                   `json:"total"`
	ByType     map[EmergencyType]int64 `json:"by_type"`
	BySeverity map[int]int64           `json:"by_severity"`
	ByPriority map[string]int64        `json:"by_priority"`
}

func orUnknown(value string) string {
	if value == "" {
		return Unknown
	}
	return value
}

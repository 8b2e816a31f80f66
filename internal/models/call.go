package models

type CallStatus string

const (
	CallStatusQueued     CallStatus = "queued"
	CallStatusRinging    CallStatus = "ringing"
	CallStatusInProgress CallStatus = "in-progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusFailed     CallStatus = "failed"
	CallStatusCanceled   CallStatus = "canceled"
	CallStatusBusy       CallStatus = "busy"
	CallStatusNoAnswer   CallStatus = "no-answer"
)

// IsTerminal reports whether Twilio will not move the call to another status.
func (s CallStatus) IsTerminal() bool {
	switch s {
	case CallStatusCompleted, CallStatusFailed, CallStatusCanceled, CallStatusBusy, CallStatusNoAnswer:
		return true
	}
	return false
}

type CallRequest struct {
	To    string `json:"to"`
	From  string `json:"from"`
	Twiml string `json:"twiml"`
}

type Call struct {
	CallSID   string     `json:"call_sid"`
	Status    CallStatus `json:"status"`
	From      string     `json:"from"`
	To        string     `json:"to"`
	Duration  int        `json:"duration"`
	CreatedAt string     `json:"date_created"`
}

// Recording describes a finished call recording and where to download it.
type Recording struct {
	RecordingSID string `json:"recording_sid"`
	CallSID      string `json:"call_sid"`
	Duration     int    `json:"duration"`
	DateCreated  string `json:"date_created"`
	DownloadURL  string `json:"download_url"`
}

type TranscriptionRequest struct {
	AudioURL     string `json:"audio_url"`
	CallSID      string `json:"call_sid,omitempty"`
	RecordingSID string `json:"recording_sid,omitempty"`
	Duration     int    `json:"duration,omitempty"`
	DateCreated  string `json:"date_created,omitempty"`
	SkipSeconds  int    `json:"skip_seconds"`
}

type TranscriptionResponse struct {
	Success          bool    `json:"success"`
	CallSID          string  `json:"call_sid"`
	RecordingSID     string  `json:"recording_sid"`
	OriginalLanguage string  `json:"original_language"`
	Duration         float64 `json:"duration"`
	SkippedSeconds   int     `json:"skipped_seconds"`
	Transcription    string  `json:"transcription"`
}

// CallOutcome is the end state of the caller pipeline for one call.
type CallOutcome struct {
	Call          *Call                     `json:"call"`
	Recording     *Recording                `json:"recording,omitempty"`
	Transcription *TranscriptionResponse    `json:"transcription,omitempty"`
	Analysis      *AnalyzeEmergencyResponse `json:"analysis,omitempty"`
}

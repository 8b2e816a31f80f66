package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"calltriage/internal/models"
	"calltriage/pkg/logger"
	"calltriage/pkg/telephony"
	"calltriage/pkg/transcription"
)

var ErrCallNotCompleted = errors.New("call ended without completing")

type CallService interface {
	// Run places a recorded call to the given number and pushes its
	// recording through transcription and analysis.
	Run(ctx context.Context, to string) (*models.CallOutcome, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, recording *models.Recording) (*models.TranscriptionResponse, error)
}

type CallServiceConfig struct {
	FromNumber       string
	Twiml            string
	PollInterval     time.Duration
	RecordingRetries int
	AnalysisURL      string
	AnalysisTimeout  time.Duration
}

type callService struct {
	provider    telephony.Provider
	transcriber Transcriber
	httpClient  *http.Client
	config      CallServiceConfig
	logger      *logger.Logger
}

func NewCallService(provider telephony.Provider, transcriber Transcriber, config CallServiceConfig, log *logger.Logger) CallService {
	if log == nil {
		log = logger.NewNop()
	}
	if config.Twiml == "" {
		config.Twiml = telephony.DefaultTwiml
	}
	if config.RecordingRetries <= 0 {
		config.RecordingRetries = 1
	}
	return &callService{
		provider:    provider,
		transcriber: transcriber,
		httpClient:  &http.Client{Timeout: config.AnalysisTimeout},
		config:      config,
		logger:      log,
	}
}

func (s *callService) Run(ctx context.Context, to string) (*models.CallOutcome, error) {
	call, err := s.provider.PlaceCall(ctx, &models.CallRequest{
		To:    to,
		From:  s.config.FromNumber,
		Twiml: s.config.Twiml,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to place call: %w", err)
	}

	log := s.logger.WithField("call_sid", call.CallSID)
	log.LogCallEvent(call.CallSID, "call_placed", map[string]interface{}{"to": to})
	outcome := &models.CallOutcome{Call: call}

	latest, err := s.waitForCompletion(ctx, call.CallSID)
	if latest != nil {
		outcome.Call = latest
	}
	if err != nil {
		return outcome, err
	}
	log.LogCallEvent(call.CallSID, "call_completed", map[string]interface{}{"duration": outcome.Call.Duration})

	if outcome.Recording, err = s.waitForRecording(ctx, call.CallSID); err != nil {
		return outcome, err
	}
	log.LogCallEvent(call.CallSID, "recording_ready", map[string]interface{}{
		"recording_sid": outcome.Recording.RecordingSID,
		"duration":      outcome.Recording.Duration,
	})

	if outcome.Transcription, err = s.transcriber.Transcribe(ctx, outcome.Recording); err != nil {
		return outcome, fmt.Errorf("failed to transcribe recording %s: %w", outcome.Recording.RecordingSID, err)
	}
	log.LogCallEvent(call.CallSID, "transcribed", map[string]interface{}{
		"original_language": outcome.Transcription.OriginalLanguage,
	})

	if outcome.Analysis, err = s.analyze(ctx, outcome.Recording, outcome.Transcription); err != nil {
		return outcome, err
	}
	log.LogCallEvent(call.CallSID, "analyzed", map[string]interface{}{
		"emergency_id":   outcome.Analysis.EmergencyID,
		"priority_score": outcome.Analysis.PriorityScore,
	})

	return outcome, nil
}

func (s *callService) waitForCompletion(ctx context.Context, callSID string) (*models.Call, error) {
	for {
		call, err := s.provider.FetchCall(ctx, callSID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch call status: %w", err)
		}

		s.logger.WithField("call_sid", callSID).WithField("status", call.Status).Debug("Call status")
		switch {
		case call.Status == models.CallStatusCompleted:
			return call, nil
		case call.Status.IsTerminal():
			return call, fmt.Errorf("%w: %s", ErrCallNotCompleted, call.Status)
		}

		if err := s.sleep(ctx); err != nil {
			return call, err
		}
	}
}

// waitForRecording polls until the recording shows up. Lookup errors count
// against the same retry budget as empty results.
func (s *callService) waitForRecording(ctx context.Context, callSID string) (*models.Recording, error) {
	var lastErr error
	for attempt := 1; ; attempt++ {
		recordings, err := s.provider.ListRecordings(ctx, callSID)
		switch {
		case err != nil:
			lastErr = err
			s.logger.WithError(err).WithField("call_sid", callSID).WithField("attempt", attempt).Warn("Failed to list recordings")
		case len(recordings) > 0:
			return recordings[0], nil
		}

		if attempt >= s.config.RecordingRetries {
			if lastErr != nil {
				return nil, fmt.Errorf("%w: %s after %d attempts: %w", telephony.ErrNoRecording, callSID, attempt, lastErr)
			}
			return nil, fmt.Errorf("%w: %s after %d attempts", telephony.ErrNoRecording, callSID, attempt)
		}
		if err := s.sleep(ctx); err != nil {
			return nil, err
		}
	}
}

func (s *callService) analyze(ctx context.Context, recording *models.Recording, result *models.TranscriptionResponse) (*models.AnalyzeEmergencyResponse, error) {
	request := models.AnalyzeEmergencyRequest{
		Transcription: result.Transcription,
		CallSID:       recording.CallSID,
		RecordingSID:  recording.RecordingSID,
		Duration:      recording.Duration,
	}

	var response models.AnalyzeEmergencyResponse
	if err := transcription.PostJSON(ctx, s.httpClient, s.config.AnalysisURL, request, &response, "", ""); err != nil {
		return nil, fmt.Errorf("failed to submit transcription for analysis: %w", err)
	}
	return &response, nil
}

func (s *callService) sleep(ctx context.Context) error {
	timer := time.NewTimer(s.config.PollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

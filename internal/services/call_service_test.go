package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"calltriage/internal/models"
	"calltriage/pkg/telephony"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedProvider struct {
	mu          sync.Mutex
	statuses    []models.CallStatus
	emptyPolls  int
	placed      *models.CallRequest
	fetches     int
	recordPolls int
	recordErrs  int
}

func (p *scriptedProvider) PlaceCall(_ context.Context, request *models.CallRequest) (*models.Call, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.placed = request
	return &models.Call{CallSID: "CA1", Status: models.CallStatusQueued, To: request.To, From: request.From}, nil
}

func (p *scriptedProvider) FetchCall(_ context.Context, callSID string) (*models.Call, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	status := p.statuses[min(p.fetches, len(p.statuses)-1)]
	p.fetches++
	return &models.Call{CallSID: callSID, Status: status, Duration: 30}, nil
}

func (p *scriptedProvider) ListRecordings(_ context.Context, callSID string) ([]*models.Recording, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recordPolls++
	if p.recordPolls <= p.recordErrs {
		return nil, errors.New("twilio 503")
	}
	if p.recordPolls <= p.recordErrs+p.emptyPolls {
		return nil, nil
	}
	return []*models.Recording{{
		RecordingSID: "RE1",
		CallSID:      callSID,
		Duration:     28,
		DownloadURL:  telephony.DownloadURL("/2010-04-01/Accounts/AC1/Recordings/RE1.json"),
	}}, nil
}

type fakeTranscriber struct {
	got *models.Recording
	err error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, recording *models.Recording) (*models.TranscriptionResponse, error) {
	f.got = recording
	if f.err != nil {
		return nil, f.err
	}
	return &models.TranscriptionResponse{
		Success:          true,
		CallSID:          recording.CallSID,
		RecordingSID:     recording.RecordingSID,
		OriginalLanguage: "es",
		Transcription:    "There is smoke coming from the kitchen",
	}, nil
}

func analysisServer(t *testing.T, received *models.AnalyzeEmergencyRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(received))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(models.AnalyzeEmergencyResponse{
			Success:       true,
			EmergencyID:   "em-9",
			PriorityScore: 63,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func callConfig(analysisURL string) CallServiceConfig {
	return CallServiceConfig{
		FromNumber:       "+15550000000",
		PollInterval:     time.Millisecond,
		RecordingRetries: 3,
		AnalysisURL:      analysisURL,
		AnalysisTimeout:  time.Second,
	}
}

func TestCallService_Run(t *testing.T) {
	var received models.AnalyzeEmergencyRequest
	srv := analysisServer(t, &received)

	provider := &scriptedProvider{
		statuses:   []models.CallStatus{models.CallStatusRinging, models.CallStatusInProgress, models.CallStatusCompleted},
		emptyPolls: 2,
	}
	transcriber := &fakeTranscriber{}
	svc := NewCallService(provider, transcriber, callConfig(srv.URL), nil)

	outcome, err := svc.Run(context.Background(), "+15551234567")
	require.NoError(t, err)

	assert.Equal(t, "+15551234567", provider.placed.To)
	assert.Equal(t, "+15550000000", provider.placed.From)
	assert.Equal(t, telephony.DefaultTwiml, provider.placed.Twiml)
	assert.Equal(t, 3, provider.fetches)
	assert.Equal(t, 3, provider.recordPolls)

	assert.Equal(t, models.CallStatusCompleted, outcome.Call.Status)
	assert.Equal(t, "https://api.twilio.com/2010-04-01/Accounts/AC1/Recordings/RE1.wav?Download=true", transcriber.got.DownloadURL)
	assert.Equal(t, "em-9", outcome.Analysis.EmergencyID)

	assert.Equal(t, "There is smoke coming from the kitchen", received.Transcription)
	assert.Equal(t, "CA1", received.CallSID)
	assert.Equal(t, "RE1", received.RecordingSID)
	assert.Equal(t, 28, received.Duration)
}

func TestCallService_StopsOnFailedCall(t *testing.T) {
	for _, status := range []models.CallStatus{models.CallStatusFailed, models.CallStatusBusy, models.CallStatusNoAnswer, models.CallStatusCanceled} {
		provider := &scriptedProvider{statuses: []models.CallStatus{models.CallStatusRinging, status}}
		transcriber := &fakeTranscriber{}
		svc := NewCallService(provider, transcriber, callConfig("http://127.0.0.1:0"), nil)

		outcome, err := svc.Run(context.Background(), "+15551234567")

		assert.ErrorIs(t, err, ErrCallNotCompleted)
		assert.Equal(t, status, outcome.Call.Status)
		assert.Zero(t, provider.recordPolls)
		assert.Nil(t, transcriber.got)
	}
}

func TestCallService_GivesUpWithoutRecording(t *testing.T) {
	provider := &scriptedProvider{statuses: []models.CallStatus{models.CallStatusCompleted}, emptyPolls: 100}
	transcriber := &fakeTranscriber{}
	svc := NewCallService(provider, transcriber, callConfig("http://127.0.0.1:0"), nil)

	_, err := svc.Run(context.Background(), "+15551234567")

	assert.ErrorIs(t, err, telephony.ErrNoRecording)
	assert.Equal(t, 3, provider.recordPolls)
	assert.Nil(t, transcriber.got)
}

func TestCallService_RetriesRecordingLookupErrors(t *testing.T) {
	var received models.AnalyzeEmergencyRequest
	srv := analysisServer(t, &received)

	provider := &scriptedProvider{statuses: []models.CallStatus{models.CallStatusCompleted}, recordErrs: 1}
	transcriber := &fakeTranscriber{}
	svc := NewCallService(provider, transcriber, callConfig(srv.URL), nil)

	outcome, err := svc.Run(context.Background(), "+15551234567")
	require.NoError(t, err)

	assert.Equal(t, 2, provider.recordPolls)
	assert.Equal(t, "RE1", outcome.Recording.RecordingSID)
	assert.Equal(t, "em-9", outcome.Analysis.EmergencyID)
}

func TestCallService_RecordingErrorsExhaustBudget(t *testing.T) {
	provider := &scriptedProvider{statuses: []models.CallStatus{models.CallStatusCompleted}, recordErrs: 100}
	transcriber := &fakeTranscriber{}
	svc := NewCallService(provider, transcriber, callConfig("http://127.0.0.1:0"), nil)

	_, err := svc.Run(context.Background(), "+15551234567")

	assert.ErrorIs(t, err, telephony.ErrNoRecording)
	assert.Contains(t, err.Error(), "twilio 503")
	assert.Equal(t, 3, provider.recordPolls)
	assert.Nil(t, transcriber.got)
}

func TestCallService_TranscriptionFailure(t *testing.T) {
	provider := &scriptedProvider{statuses: []models.CallStatus{models.CallStatusCompleted}}
	transcriber := &fakeTranscriber{err: errors.New("service down")}
	svc := NewCallService(provider, transcriber, callConfig("http://127.0.0.1:0"), nil)

	outcome, err := svc.Run(context.Background(), "+15551234567")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "RE1")
	assert.NotNil(t, outcome.Recording)
	assert.Nil(t, outcome.Analysis)
}

func TestCallService_CancelStopsPolling(t *testing.T) {
	provider := &scriptedProvider{statuses: []models.CallStatus{models.CallStatusInProgress}}
	cfg := callConfig("http://127.0.0.1:0")
	cfg.PollInterval = time.Hour
	svc := NewCallService(provider, &fakeTranscriber{}, cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := svc.Run(ctx, "+15551234567")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

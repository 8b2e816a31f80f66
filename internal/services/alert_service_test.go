package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"calltriage/internal/models"
	"calltriage/internal/repositories/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu   sync.Mutex
	sent map[string]string
	fail map[string]bool
}

func newFakeSender() *fakeSender {
	return &fakeSender{sent: map[string]string{}, fail: map[string]bool{}}
}

func (f *fakeSender) Send(ctx context.Context, to, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := ctx.Deadline(); !ok {
		return "", errors.New("alert sent without deadline")
	}
	if f.fail[to] {
		return "", errors.New("undeliverable")
	}
	f.sent[to] = body
	return "SM" + to, nil
}

func criticalEmergency(score int) *models.Emergency {
	return &models.Emergency{
		ID:            "em-7",
		PriorityScore: score,
		Analysis: models.EmergencyAnalysis{
			EmergencyType: models.EmergencyTypeFire,
			SeverityLevel: 5,
			Urgency:       models.UrgencyImmediate,
			Location:      models.Location{Area: "Old Town"},
			Summary:       "Apartment fire, residents trapped",
		},
	}
}

func TestCriticalAlerter_SendsAboveThreshold(t *testing.T) {
	sender := newFakeSender()
	sender.fail["+15550000002"] = true
	alerter := NewCriticalAlerter(sender, []string{"+15550000001", "+15550000002", "+15550000003"}, 80, nil)

	alerter.Notify(context.Background(), criticalEmergency(92))
	alerter.Wait()

	assert.Len(t, sender.sent, 2)
	assert.Equal(t, "[P92] fire, severity 5, immediate. Area: Old Town. Apartment fire, residents trapped (id em-7)", sender.sent["+15550000001"])
	assert.Contains(t, sender.sent, "+15550000003")
}

func TestCriticalAlerter_IgnoresLowerScores(t *testing.T) {
	sender := newFakeSender()
	alerter := NewCriticalAlerter(sender, []string{"+15550000001"}, 80, nil)

	alerter.Notify(context.Background(), criticalEmergency(79))
	alerter.Wait()

	assert.Empty(t, sender.sent)
}

func TestCriticalAlerter_OutlivesRequestContext(t *testing.T) {
	sender := newFakeSender()
	alerter := NewCriticalAlerter(sender, []string{"+15550000001"}, 80, nil)

	ctx, cancel := context.WithCancel(context.Background())
	alerter.Notify(ctx, criticalEmergency(100))
	cancel()
	alerter.Wait()

	assert.Len(t, sender.sent, 1)
}

type recordingAlerter struct {
	notified []*models.Emergency
}

func (r *recordingAlerter) Notify(_ context.Context, e *models.Emergency) {
	r.notified = append(r.notified, e)
}

func TestAnalyzeEmergency_NotifiesAlerter(t *testing.T) {
	repo := &mocks.EmergencyRepository{}
	repo.On("Create", mock.Anything, mock.Anything).Run(assignID("em-3")).Return(nil)
	alerter := &recordingAlerter{}

	svc := NewEmergencyService(EmergencyServiceDeps{
		Repository: repo,
		Provider:   replying(cardiacReply, nil),
		Alerter:    alerter,
	})

	_, err := svc.AnalyzeEmergency(context.Background(), &models.AnalyzeEmergencyRequest{Transcription: "help"})
	require.NoError(t, err)
	require.Len(t, alerter.notified, 1)
	assert.Equal(t, "em-3", alerter.notified[0].ID)
}

package telephony

import (
	"context"
	"fmt"
	"strings"

	"calltriage/internal/models"

	"github.com/spf13/cast"
	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

const (
	twilioAPIHost = "https://api.twilio.com"

	// DefaultTwiml keeps the line open and recording until the caller hangs up.
	DefaultTwiml = `<Response><Gather timeout="3600" numDigits="1"></Gather></Response>`
)

type TwilioProvider struct {
	client     *twilio.RestClient
	fromNumber string
}

func NewTwilioProvider(accountSID, authToken, fromNumber string) *TwilioProvider {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return &TwilioProvider{
		client:     client,
		fromNumber: fromNumber,
	}
}

func (t *TwilioProvider) PlaceCall(ctx context.Context, request *models.CallRequest) (*models.Call, error) {
	twiml := request.Twiml
	if twiml == "" {
		twiml = DefaultTwiml
	}

	params := &api.CreateCallParams{}
	params.SetTo(request.To)
	params.SetFrom(t.getFromNumber(request.From))
	params.SetTwiml(twiml)
	params.SetRecord(true)

	resp, err := t.client.Api.CreateCall(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create call to %s: %w", request.To, err)
	}

	return toCall(resp), nil
}

func (t *TwilioProvider) FetchCall(ctx context.Context, callSID string) (*models.Call, error) {
	resp, err := t.client.Api.FetchCall(callSID, &api.FetchCallParams{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch call %s: %w", callSID, err)
	}

	return toCall(resp), nil
}

func (t *TwilioProvider) ListRecordings(ctx context.Context, callSID string) ([]*models.Recording, error) {
	params := &api.ListRecordingParams{}
	params.SetCallSid(callSID)
	params.SetLimit(20)

	resp, err := t.client.Api.ListRecording(params)
	if err != nil {
		return nil, fmt.Errorf("failed to list recordings for call %s: %w", callSID, err)
	}

	recordings := make([]*models.Recording, 0, len(resp))
	for i := range resp {
		r := resp[i]
		recordings = append(recordings, &models.Recording{
			RecordingSID: deref(r.Sid),
			CallSID:      deref(r.CallSid),
			Duration:     cast.ToInt(deref(r.Duration)),
			DateCreated:  deref(r.DateCreated),
			DownloadURL:  DownloadURL(deref(r.Uri)),
		})
	}

	return recordings, nil
}

// DownloadURL turns a recording resource URI into the WAV download link.
// Credentials are not embedded; the fetcher authenticates with basic auth.
func DownloadURL(uri string) string {
	if uri == "" {
		return ""
	}
	return twilioAPIHost + strings.TrimSuffix(uri, ".json") + ".wav?Download=true"
}

func (t *TwilioProvider) getFromNumber(from string) string {
	if from != "" {
		return from
	}
	return t.fromNumber
}

func toCall(resp *api.ApiV2010Call) *models.Call {
	call := &models.Call{
		CallSID:  deref(resp.Sid),
		From:     deref(resp.From),
		To:       deref(resp.To),
		Duration: cast.ToInt(deref(resp.Duration)),
	}
	if resp.Status != nil {
		call.Status = models.CallStatus(string(*resp.Status))
	}
	if resp.DateCreated != nil {
		call.CreatedAt = *resp.DateCreated
	}
	return call
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

package telephony

import (
	"context"
	"errors"

	"calltriage/internal/models"
)

var ErrNoRecording = errors.New("no recording available for call")

type Provider interface {
	PlaceCall(ctx context.Context, request *models.CallRequest) (*models.Call, error)
	FetchCall(ctx context.Context, callSID string) (*models.Call, error)
	ListRecordings(ctx context.Context, callSID string) ([]*models.Recording, error)
}

package validators

import (
	"strings"
	"testing"

	"calltriage/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateStruct_AnalyzeRequest(t *testing.T) {
	tests := []struct {
		name    string
		request models.AnalyzeEmergencyRequest
		field   string
	}{
		{"valid", models.AnalyzeEmergencyRequest{Transcription: "my house is on fire"}, ""},
		{"missing transcription", models.AnalyzeEmergencyRequest{}, "Transcription"},
		{"blank transcription", models.AnalyzeEmergencyRequest{Transcription: " \n\t "}, "Transcription"},
		{"oversized transcription", models.AnalyzeEmergencyRequest{Transcription: strings.Repeat("a", 20001)}, "Transcription"},
		{"negative duration", models.AnalyzeEmergencyRequest{Transcription: "help", Duration: -1}, "Duration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateStruct(&tt.request)
			if tt.field == "" {
				assert.Nil(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
			assert.Contains(t, errs.ToMap(), tt.field)
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "Transcription", Message: "Transcription is required"},
		{Field: "Duration", Message: "Duration must be at least 0"},
	}
	assert.Equal(t, "Transcription: Transcription is required; Duration: Duration must be at least 0", errs.Error())
}

func TestValidateStruct_PhoneNumber(t *testing.T) {
	type contact struct {
		Phone string `validate:"phone_number"`
	}

	assert.Nil(t, ValidateStruct(&contact{Phone: "+14155550100"}))
	assert.Nil(t, ValidateStruct(&contact{}))

	errs := ValidateStruct(&contact{Phone: "4155550100"})
	require.Len(t, errs, 1)
	assert.Equal(t, "Invalid phone number format", errs[0].Message)
}

func TestValidateStruct_EmergencyTypeQuery(t *testing.T) {
	assert.Nil(t, ValidateStruct(&models.EmergencyTypeQuery{Type: models.EmergencyTypeNaturalDisaster}))

	errs := ValidateStruct(&models.EmergencyTypeQuery{Type: "alien_invasion"})
	require.Len(t, errs, 1)
	assert.Equal(t, "emergency_type", errs[0].Tag)
	assert.Equal(t, "Unknown emergency type", errs.ToMap()["Type"])

	errs = ValidateStruct(&models.EmergencyTypeQuery{})
	require.Len(t, errs, 1)
	assert.Equal(t, "required", errs[0].Tag)
}

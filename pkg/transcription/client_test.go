package transcription

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"calltriage/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "secret", pass)

		var req models.TranscriptionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://example.test/RE1.wav", req.AudioURL)
		assert.Equal(t, "CA1", req.CallSID)
		assert.Equal(t, "RE1", req.RecordingSID)
		assert.Equal(t, 8, req.SkipSeconds)

		json.NewEncoder(w).Encode(models.TranscriptionResponse{
			Success:          true,
			CallSID:          req.CallSID,
			RecordingSID:     req.RecordingSID,
			OriginalLanguage: "hi",
			Transcription:    "There is a fire on the second floor",
		})
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL, Timeout: time.Second, SkipSeconds: 8, Username: "AC123", Password: "secret"})
	result, err := client.Transcribe(context.Background(), &models.Recording{
		RecordingSID: "RE1",
		CallSID:      "CA1",
		Duration:     42,
		DownloadURL:  "https://example.test/RE1.wav",
	})
	require.NoError(t, err)
	assert.Equal(t, "hi", result.OriginalLanguage)
	assert.Equal(t, "There is a fire on the second floor", result.Transcription)
}

func TestTranscribe_ServiceFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false})
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL, Timeout: time.Second})
	_, err := client.Transcribe(context.Background(), &models.Recording{RecordingSID: "RE1"})
	assert.ErrorIs(t, err, ErrTranscriptionFailed)
}

func TestPostJSON_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, pass, ok := r.BasicAuth()
		assert.False(t, ok, pass)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	err := PostJSON(context.Background(), server.Client(), server.URL, map[string]string{"a": "b"}, nil, "", "")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "boom")
}

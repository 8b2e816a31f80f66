package config

import (
	"time"
)

type TelephonyConfig struct {
	AccountSID       string        `yaml:"account_sid"`
	AuthToken        string        `yaml:"auth_token"`
	FromNumber       string        `yaml:"from_number" validate:"phone_number"`
	ToNumber         string        `yaml:"to_number" validate:"phone_number"`
	PollInterval     time.Duration `yaml:"poll_interval" validate:"min=1"`
	RecordingRetries int           `yaml:"recording_retries" validate:"min=1"`
}

// TwilioCredentials are required only by the telephony CLI.
type TwilioCredentials struct {
	AccountSID string `validate:"required"`
	AuthToken  string `validate:"required"`
	FromNumber string `validate:"required,phone_number"`
}

func loadTelephonyConfig() *TelephonyConfig {
	return &TelephonyConfig{
		AccountSID:       getEnv("TWILIO_ACCOUNT_SID", ""),
		AuthToken:        getEnv("TWILIO_AUTH_TOKEN", ""),
		FromNumber:       getEnv("TWILIO_FROM_NUMBER", ""),
		ToNumber:         getEnv("TWILIO_TO_NUMBER", ""),
		PollInterval:     getEnvAsDuration("CALL_POLL_INTERVAL", 10*time.Second),
		RecordingRetries: getEnvAsInt("RECORDING_RETRIES", 12),
	}
}

func (t *TelephonyConfig) Credentials() *TwilioCredentials {
	return &TwilioCredentials{
		AccountSID: t.AccountSID,
		AuthToken:  t.AuthToken,
		FromNumber: t.FromNumber,
	}
}

// AlertConfig controls the SMS page sent for critical emergencies. Alerts
// are off unless recipients and Twilio credentials are both set.
type AlertConfig struct {
	Recipients []string `yaml:"recipients" validate:"dive,phone_number"`
	Threshold  int      `yaml:"threshold" validate:"min=0,max=100"`
}

func loadAlertConfig() *AlertConfig {
	return &AlertConfig{
		Recipients: getEnvAsSlice("ALERT_SMS_TO", nil),
		Threshold:  getEnvAsInt("ALERT_SCORE_THRESHOLD", 80),
	}
}

// AlertsEnabled reports whether the server should page on-call staff.
func (c *Config) AlertsEnabled() bool {
	creds := c.Telephony.Credentials()
	return len(c.Alerts.Recipients) > 0 && creds.AccountSID != "" && creds.AuthToken != "" && creds.FromNumber != ""
}

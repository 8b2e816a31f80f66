package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"calltriage/internal/config"
	"calltriage/internal/services"
	"calltriage/pkg/logger"
	"calltriage/pkg/telephony"
	"calltriage/pkg/transcription"
)

func main() {
	to := flag.String("to", "", "number to call, E.164 (defaults to TWILIO_TO_NUMBER)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.ValidateCaller(); err != nil {
		log.Fatalf("Invalid caller config: %v", err)
	}

	appLogger, err := logger.NewLogger(cfg.LoggerConfig())
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	number := *to
	if number == "" {
		number = cfg.Telephony.ToNumber
	}
	if number == "" {
		appLogger.Fatal("No destination number: pass -to or set TWILIO_TO_NUMBER")
	}

	creds := cfg.Telephony.Credentials()
	provider := telephony.NewTwilioProvider(creds.AccountSID, creds.AuthToken, creds.FromNumber)
	transcriber := transcription.NewClient(transcription.Config{
		URL:         cfg.Transcription.URL,
		Timeout:     cfg.Transcription.Timeout,
		SkipSeconds: cfg.Transcription.SkipSeconds,
		Username:    creds.AccountSID,
		Password:    creds.AuthToken,
	})

	callService := services.NewCallService(provider, transcriber, services.CallServiceConfig{
		FromNumber:       creds.FromNumber,
		PollInterval:     cfg.Telephony.PollInterval,
		RecordingRetries: cfg.Telephony.RecordingRetries,
		AnalysisURL:      cfg.Transcription.AnalysisURL,
		AnalysisTimeout:  cfg.App.RequestTimeout,
	}, appLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcome, err := callService.Run(ctx, number)
	if err != nil {
		appLogger.WithError(err).Fatal("Call pipeline failed")
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(outcome); err != nil {
		appLogger.WithError(err).Fatal("Failed to write outcome")
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"calltriage/internal/models"
	"calltriage/internal/repositories/interfaces"
	"calltriage/internal/triage"
	"calltriage/internal/utils"
	"calltriage/internal/validators"
	"calltriage/pkg/llm"
	"calltriage/pkg/logger"
)

var (
	ErrValidation          = errors.New("validation failed")
	ErrUpstreamTimeout     = errors.New("upstream timed out")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
)

// ValidationError carries per-field messages and matches ErrValidation.
type ValidationError struct {
	Details map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Details))
	for field, msg := range e.Details {
		parts = append(parts, field+": "+msg)
	}
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

type EmergencyService interface {
	// Intake
	AnalyzeEmergency(ctx context.Context, request *models.AnalyzeEmergencyRequest) (*models.AnalyzeEmergencyResponse, error)

	// Queries
	GetEmergency(ctx context.Context, id string) (*models.Emergency, error)
	GetHighPriority(ctx context.Context, limit int) ([]*models.Emergency, error)
	GetByLocation(ctx context.Context, area string) ([]*models.Emergency, error)
	GetByType(ctx context.Context, emergencyType string) ([]*models.Emergency, error)
	GetRecent(ctx context.Context, limit int) ([]*models.Emergency, error)
	GetAll(ctx context.Context) ([]*models.Emergency, error)
	GetStats(ctx context.Context) (*models.EmergencyStats, error)
}

// Publisher fans new records out to other processes.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// Broadcaster pushes new records to connected dashboards.
type Broadcaster interface {
	BroadcastEmergency(emergencyID, emergencyType string, priorityScore int, data map[string]interface{}) bool
}

type MetricsRecorder interface {
	RecordAnalysis(emergencyType string, score int)
	RecordFallback()
	RecordCompletion(outcome string, duration time.Duration)
	RecordStoreError(operation string)
}

type EmergencyServiceDeps struct {
	Repository  interfaces.EmergencyRepository
	Provider    llm.CompletionProvider
	Normalizer  *triage.Normalizer
	Publisher   Publisher
	Broadcaster Broadcaster
	Alerter     Alerter
	Metrics     MetricsRecorder
	Logger      *logger.Logger

	DefaultLimit int
	MaxLimit     int
}

type emergencyService struct {
	repo         interfaces.EmergencyRepository
	provider     llm.CompletionProvider
	normalizer   *triage.Normalizer
	publisher    Publisher
	broadcaster  Broadcaster
	alerter      Alerter
	metrics      MetricsRecorder
	logger       *logger.Logger
	defaultLimit int
	maxLimit     int
}

func NewEmergencyService(deps EmergencyServiceDeps) EmergencyService {
	log := deps.Logger
	if log == nil {
		log = logger.NewNop()
	}
	normalizer := deps.Normalizer
	if normalizer == nil {
		normalizer = triage.NewNormalizer(log)
	}
	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	defaultLimit := deps.DefaultLimit
	if defaultLimit <= 0 {
		defaultLimit = utils.DefaultQueryLimit
	}
	maxLimit := deps.MaxLimit
	if maxLimit <= 0 {
		maxLimit = utils.MaxQueryLimit
	}

	return &emergencyService{
		repo:         deps.Repository,
		provider:     deps.Provider,
		normalizer:   normalizer,
		publisher:    deps.Publisher,
		broadcaster:  deps.Broadcaster,
		alerter:      deps.Alerter,
		metrics:      metrics,
		logger:       log,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

func (s *emergencyService) AnalyzeEmergency(ctx context.Context, request *models.AnalyzeEmergencyRequest) (*models.AnalyzeEmergencyResponse, error) {
	log := s.logger.WithContext(ctx)

	if errs := validators.ValidateStruct(request); errs != nil {
		return nil, &ValidationError{Details: errs.ToMap()}
	}

	raw, err := s.complete(ctx, request.Transcription)
	if err != nil {
		log.WithError(err).Error("Model completion failed")
		return nil, err
	}

	analysis, fellBack := s.normalizer.NormalizeWithStatus(raw, request.Transcription)
	if fellBack {
		s.metrics.RecordFallback()
	}

	breakdown := triage.Breakdown(&analysis)
	emergency := &models.Emergency{
		CallMetadata:     request.Metadata(),
		RawTranscription: request.Transcription,
		Analysis:         analysis,
		PriorityScore:    breakdown.Total,
	}

	log = log.WithField("emergency_type", analysis.EmergencyType)
	if err := s.repo.Create(ctx, emergency); err != nil {
		s.recordStoreError(err)
		if emergency.ID != "" {
			log = log.WithEmergencyID(emergency.ID)
		}
		log.WithError(err).Error("Failed to store emergency")
		return nil, classifyStoreError(err)
	}

	log = log.WithEmergencyID(emergency.ID)
	log.WithFields(map[string]interface{}{
		"score_breakdown": breakdown,
		"fallback":        fellBack,
	}).Debug("Priority score computed")

	s.metrics.RecordAnalysis(string(analysis.EmergencyType), emergency.PriorityScore)
	s.notify(ctx, log, emergency)

	log.LogEmergencyEvent(emergency.ID, "emergency_analyzed", map[string]interface{}{
		"emergency_type": analysis.EmergencyType,
		"priority_score": emergency.PriorityScore,
		"severity_level": analysis.SeverityLevel,
		"call_sid":       emergency.CallMetadata.CallSID,
		"caller_phone":   utils.MaskPhone(emergency.CallMetadata.CallerPhone),
	})

	return &models.AnalyzeEmergencyResponse{
		Success:       true,
		EmergencyID:   emergency.ID,
		PriorityScore: emergency.PriorityScore,
		Analysis:      emergency.Analysis,
		CallMetadata:  emergency.CallMetadata,
		Timestamp:     emergency.Timestamp,
	}, nil
}

// complete asks the model for an analysis. An empty completion is not an
// error; the normalizer turns it into the fallback record.
func (s *emergencyService) complete(ctx context.Context, transcription string) (string, error) {
	start := time.Now()
	raw, err := s.provider.Complete(ctx, triage.BuildPrompt(transcription))
	elapsed := time.Since(start)

	switch {
	case err == nil:
		s.metrics.RecordCompletion("ok", elapsed)
		return raw, nil
	case errors.Is(err, llm.ErrEmptyCompletion):
		s.metrics.RecordCompletion("empty", elapsed)
		return "", nil
	case errors.Is(err, llm.ErrProviderTimeout), errors.Is(err, context.DeadlineExceeded):
		s.metrics.RecordCompletion("timeout", elapsed)
		return "", fmt.Errorf("%w: %w", ErrUpstreamTimeout, err)
	default:
		s.metrics.RecordCompletion("error", elapsed)
		return "", fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
}

// notify is best-effort; the record is already durable.
func (s *emergencyService) notify(ctx context.Context, log *logger.Logger, emergency *models.Emergency) {
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, utils.EmergencyChannel, emergency); err != nil {
			log.WithError(err).Warn("Failed to publish new emergency")
		}
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastEmergency(emergency.ID, string(emergency.Analysis.EmergencyType), emergency.PriorityScore, map[string]interface{}{
			"summary":        emergency.Analysis.Summary,
			"severity_level": emergency.Analysis.SeverityLevel,
			"urgency":        emergency.Analysis.Urgency,
			"area":           emergency.Analysis.Location.Area,
			"timestamp":      emergency.Timestamp,
		})
	}

	if s.alerter != nil {
		s.alerter.Notify(ctx, emergency)
	}
}

func (s *emergencyService) GetEmergency(ctx context.Context, id string) (*models.Emergency, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &ValidationError{Details: map[string]string{"id": "id is required"}}
	}

	emergency, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrEmergencyNotFound) {
			return nil, err
		}
		return nil, s.readError(ctx, err, "GetByID")
	}
	return emergency, nil
}

func (s *emergencyService) GetHighPriority(ctx context.Context, limit int) ([]*models.Emergency, error) {
	emergencies, err := s.repo.GetTopByPriority(ctx, s.clampLimit(limit))
	if err != nil {
		return nil, s.readError(ctx, err, "GetTopByPriority")
	}
	return emergencies, nil
}

func (s *emergencyService) GetByLocation(ctx context.Context, area string) ([]*models.Emergency, error) {
	if strings.TrimSpace(area) == "" {
		return nil, &ValidationError{Details: map[string]string{"area": "area is required"}}
	}

	emergencies, err := s.repo.GetByArea(ctx, area)
	if err != nil {
		return nil, s.readError(ctx, err, "GetByArea")
	}
	return emergencies, nil
}

func (s *emergencyService) GetByType(ctx context.Context, emergencyType string) ([]*models.Emergency, error) {
	query := models.EmergencyTypeQuery{Type: models.EmergencyType(strings.ToLower(strings.TrimSpace(emergencyType)))}
	if errs := validators.ValidateStruct(&query); errs != nil {
		return nil, &ValidationError{Details: errs.ToMap()}
	}

	emergencies, err := s.repo.GetByType(ctx, query.Type)
	if err != nil {
		return nil, s.readError(ctx, err, "GetByType")
	}
	return emergencies, nil
}

func (s *emergencyService) GetRecent(ctx context.Context, limit int) ([]*models.Emergency, error) {
	emergencies, err := s.repo.GetRecent(ctx, s.clampLimit(limit))
	if err != nil {
		return nil, s.readError(ctx, err, "GetRecent")
	}
	return emergencies, nil
}

func (s *emergencyService) GetAll(ctx context.Context) ([]*models.Emergency, error) {
	emergencies, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, s.readError(ctx, err, "GetAll")
	}
	return emergencies, nil
}

func (s *emergencyService) GetStats(ctx context.Context) (*models.EmergencyStats, error) {
	stats, err := s.repo.GetStats(ctx)
	if err != nil {
		return nil, s.readError(ctx, err, "GetStats")
	}
	return stats, nil
}

func (s *emergencyService) clampLimit(limit int) int {
	return utils.ClampLimit(limit, s.defaultLimit, s.maxLimit)
}

func (s *emergencyService) readError(ctx context.Context, err error, op string) error {
	s.recordStoreError(err)
	s.logger.WithContext(ctx).WithError(err).WithField("operation", op).Error("Emergency query failed")
	return classifyStoreError(err)
}

func (s *emergencyService) recordStoreError(err error) {
	op := "unknown"
	var storeErr *interfaces.StoreError
	if errors.As(err, &storeErr) {
		op = storeErr.Op
	}
	s.metrics.RecordStoreError(op)
}

// classifyStoreError maps a deadline hit during a store round-trip to the
// upstream timeout fault. Everything else keeps its store classification.
func classifyStoreError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrUpstreamTimeout, err)
	}
	if !errors.Is(err, interfaces.ErrStoreUnavailable) {
		return fmt.Errorf("%w: %w", interfaces.ErrStoreUnavailable, err)
	}
	return err
}

type noopMetrics struct{}

func (noopMetrics) RecordAnalysis(string, int)             {}
func (noopMetrics) RecordFallback()                        {}
func (noopMetrics) RecordCompletion(string, time.Duration) {}
func (noopMetrics) RecordStoreError(string)                {}

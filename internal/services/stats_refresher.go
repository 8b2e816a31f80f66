package services

import (
	"context"

	"calltriage/internal/models"
)

// StatsSink receives the stored-record counts after each refresh.
type StatsSink interface {
	SetStoredEmergencies(emergencyType string, count int64)
	SetStoredByPriority(band string, count int64)
}

// StatsRefresher periodically copies store-wide counts into gauges so
// dashboards do not have to hit the stats endpoint.
type StatsRefresher struct {
	service EmergencyService
	sink    StatsSink
}

func NewStatsRefresher(service EmergencyService, sink StatsSink) *StatsRefresher {
	return &StatsRefresher{service: service, sink: sink}
}

func (r *StatsRefresher) Name() string { return "emergency_stats" }

func (r *StatsRefresher) Run(ctx context.Context) error {
	stats, err := r.service.GetStats(ctx)
	if err != nil {
		return err
	}

	for _, t := range models.EmergencyTypes {
		r.sink.SetStoredEmergencies(string(t), stats.ByType[t])
	}
	for band, n := range stats.ByPriority {
		r.sink.SetStoredByPriority(band, n)
	}
	return nil
}

package cached

import (
	"context"
	"fmt"

	"calltriage/internal/models"
	"calltriage/internal/repositories/interfaces"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Observer receives cache hit/miss notifications.
type Observer interface {
	RecordCacheLookup(hit bool)
}

// emergencyRepository keeps recently written or read records in memory.
// Records are append-only, so a cached copy never goes stale.
type emergencyRepository struct {
	interfaces.EmergencyRepository
	records  *lru.Cache[string, *models.Emergency]
	observer Observer
}

func NewEmergencyRepository(inner interfaces.EmergencyRepository, size int, observer Observer) (interfaces.EmergencyRepository, error) {
	if size <= 0 {
		return inner, nil
	}

	records, err := lru.New[string, *models.Emergency](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create record cache: %w", err)
	}

	return &emergencyRepository{
		EmergencyRepository: inner,
		records:             records,
		observer:            observer,
	}, nil
}

func (r *emergencyRepository) Create(ctx context.Context, emergency *models.Emergency) error {
	if err := r.EmergencyRepository.Create(ctx, emergency); err != nil {
		return err
	}
	r.records.Add(emergency.ID, clone(emergency))
	return nil
}

func (r *emergencyRepository) GetByID(ctx context.Context, id string) (*models.Emergency, error) {
	if emergency, ok := r.records.Get(id); ok {
		r.observe(true)
		return clone(emergency), nil
	}
	r.observe(false)

	emergency, err := r.EmergencyRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.records.Add(id, clone(emergency))
	return emergency, nil
}

func (r *emergencyRepository) observe(hit bool) {
	if r.observer != nil {
		r.observer.RecordCacheLookup(hit)
	}
}

// clone copies the record and its slices so callers cannot mutate the
// cached value.
func clone(e *models.Emergency) *models.Emergency {
	c := *e
	c.AssignedUnits = append([]string{}, e.AssignedUnits...)
	c.Analysis.MedicalInfo.Injuries = append([]string{}, e.Analysis.MedicalInfo.Injuries...)
	c.Analysis.ResourcesNeeded.SpecialUnits = append([]string{}, e.Analysis.ResourcesNeeded.SpecialUnits...)
	c.Analysis.KeyDetails = append([]string{}, e.Analysis.KeyDetails...)
	return &c
}

package mocks

import (
	"context"

	"calltriage/internal/models"

	"github.com/stretchr/testify/mock"
)

type EmergencyRepository struct {
	mock.Mock
}

func (m *EmergencyRepository) Create(ctx context.Context, emergency *models.Emergency) error {
	args := m.Called(ctx, emergency)
	return args.Error(0)
}

func (m *EmergencyRepository) GetByID(ctx context.Context, id string) (*models.Emergency, error) {
	args := m.Called(ctx, id)
	if e, ok := args.Get(0).(*models.Emergency); ok {
		return e, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *EmergencyRepository) GetTopByPriority(ctx context.Context, limit int) ([]*models.Emergency, error) {
	args := m.Called(ctx, limit)
	return emergencies(args.Get(0)), args.Error(1)
}

func (m *EmergencyRepository) GetByArea(ctx context.Context, area string) ([]*models.Emergency, error) {
	args := m.Called(ctx, area)
	return emergencies(args.Get(0)), args.Error(1)
}

func (m *EmergencyRepository) GetByType(ctx context.Context, emergencyType models.EmergencyType) ([]*models.Emergency, error) {
	args := m.Called(ctx, emergencyType)
	return emergencies(args.Get(0)), args.Error(1)
}

func (m *EmergencyRepository) GetRecent(ctx context.Context, limit int) ([]*models.Emergency, error) {
	args := m.Called(ctx, limit)
	return emergencies(args.Get(0)), args.Error(1)
}

func (m *EmergencyRepository) GetAll(ctx context.Context) ([]*models.Emergency, error) {
	args := m.Called(ctx)
	return emergencies(args.Get(0)), args.Error(1)
}

func (m *EmergencyRepository) GetStats(ctx context.Context) (*models.EmergencyStats, error) {
	args := m.Called(ctx)
	if s, ok := args.Get(0).(*models.EmergencyStats); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func emergencies(v interface{}) []*models.Emergency {
	if list, ok := v.([]*models.Emergency); ok {
		return list
	}
	return nil
}

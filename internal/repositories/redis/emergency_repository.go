package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"calltriage/internal/models"
	"calltriage/internal/repositories/interfaces"
	"calltriage/pkg/cache"
	"calltriage/pkg/logger"

	"github.com/google/uuid"
)

const (
	EmergencyKeyPrefix  = "emergency:"
	EmergencyDataField  = "data"
	PriorityIndexKey    = "emergencies_by_priority"
	SeverityIndexKey    = "emergencies_by_severity"
	RecencyIndexKey     = "emergencies_by_time"
	LocationIndexPrefix = "location:"
	TypeIndexPrefix     = "type:"

	DefaultTopLimit = 10
	scanBatchSize   = 200
)

// Store is the subset of the Redis cache the repository relies on.
type Store interface {
	HSet(ctx context.Context, key string, values ...interface{}) error
	HGet(ctx context.Context, key, field string) (string, error)
	SAdd(ctx context.Context, key string, members ...interface{}) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SCard(ctx context.Context, key string) (int64, error)
	ZAdd(ctx context.Context, key string, score float64, member interface{}) error
	ZRevRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	ZCard(ctx context.Context, key string) (int64, error)
	ZCount(ctx context.Context, key, min, max string) (int64, error)
	ScanKeys(ctx context.Context, pattern string, batch int64) ([]string, error)
}

var _ Store = (*cache.RedisCache)(nil)

type emergencyRepository struct {
	store  Store
	logger *logger.Logger
	now    func() time.Time
}

type Option func(*emergencyRepository)

// WithClock replaces time.Now, mainly for tests that need ordered timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *emergencyRepository) { r.now = now }
}

func NewEmergencyRepository(store Store, log *logger.Logger, opts ...Option) interfaces.EmergencyRepository {
	if log == nil {
		log = logger.NewNop()
	}
	r := &emergencyRepository{
		store:  store,
		logger: log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func EmergencyKey(id string) string {
	return EmergencyKeyPrefix + id
}

func LocationKey(area string) string {
	return LocationIndexPrefix + strings.ToLower(strings.TrimSpace(area))
}

func TypeKey(emergencyType models.EmergencyType) string {
	return TypeIndexPrefix + string(emergencyType)
}

// indexStep is one idempotent upsert of the write fan-out.
type indexStep struct {
	op    string
	key   string
	apply func(ctx context.Context) error
}

func (r *emergencyRepository) Create(ctx context.Context, emergency *models.Emergency) error {
	if emergency.ID == "" {
		emergency.ID = uuid.NewString()
	}
	if emergency.CreatedAt.IsZero() {
		now := r.now().UTC()
		emergency.CreatedAt = now
		emergency.UpdatedAt = now
	}
	if emergency.Timestamp.IsZero() {
		emergency.Timestamp = emergency.CreatedAt
	}
	if emergency.Status == "" {
		emergency.Status = models.EmergencyStatusPending
	}
	if emergency.AssignedUnits == nil {
		emergency.AssignedUnits = []string{}
	}

	data, err := json.Marshal(emergency)
	if err != nil {
		return fmt.Errorf("failed to encode emergency %s: %w", emergency.ID, err)
	}

	for _, step := range r.writeSteps(emergency, data) {
		if err := step.apply(ctx); err != nil {
			return &interfaces.StoreError{Op: step.op, Key: step.key, EmergencyID: emergency.ID, Err: err}
		}
	}

	r.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"emergency_id":   emergency.ID,
		"emergency_type": emergency.Analysis.EmergencyType,
		"priority_score": emergency.PriorityScore,
	}).Debug("Emergency record stored and indexed")

	return nil
}

// writeSteps lists the record write followed by its index entries, in the
// order they are applied.
func (r *emergencyRepository) writeSteps(e *models.Emergency, data []byte) []indexStep {
	id := e.ID
	key := EmergencyKey(id)

	steps := []indexStep{
		{op: "HSET", key: key, apply: func(ctx context.Context) error {
			return r.store.HSet(ctx, key, EmergencyDataField, string(data))
		}},
		{op: "ZADD", key: PriorityIndexKey, apply: func(ctx context.Context) error {
			return r.store.ZAdd(ctx, PriorityIndexKey, float64(e.PriorityScore), id)
		}},
		{op: "ZADD", key: SeverityIndexKey, apply: func(ctx context.Context) error {
			return r.store.ZAdd(ctx, SeverityIndexKey, float64(e.Analysis.SeverityLevel), id)
		}},
	}

	if e.Analysis.HasKnownArea() {
		locationKey := LocationKey(e.Analysis.Location.Area)
		steps = append(steps, indexStep{op: "SADD", key: locationKey, apply: func(ctx context.Context) error {
			return r.store.SAdd(ctx, locationKey, id)
		}})
	}

	typeKey := TypeKey(e.Analysis.EmergencyType)
	steps = append(steps,
		indexStep{op: "SADD", key: typeKey, apply: func(ctx context.Context) error {
			return r.store.SAdd(ctx, typeKey, id)
		}},
		indexStep{op: "ZADD", key: RecencyIndexKey, apply: func(ctx context.Context) error {
			return r.store.ZAdd(ctx, RecencyIndexKey, float64(e.CreatedAt.UnixMilli()), id)
		}},
	)

	return steps
}

func (r *emergencyRepository) GetByID(ctx context.Context, id string) (*models.Emergency, error) {
	key := EmergencyKey(id)
	data, err := r.store.HGet(ctx, key, EmergencyDataField)
	if err != nil {
		if cache.IsNil(err) {
			return nil, fmt.Errorf("%w: %s", interfaces.ErrEmergencyNotFound, id)
		}
		return nil, &interfaces.StoreError{Op: "HGET", Key: key, EmergencyID: id, Err: err}
	}

	var emergency models.Emergency
	if err := json.Unmarshal([]byte(data), &emergency); err != nil {
		return nil, fmt.Errorf("failed to decode emergency %s: %w", id, err)
	}

	return &emergency, nil
}

// GetTopByPriority returns records by descending priority score. Redis
// orders equal scores by member, so ties come back in reverse
// lexicographic id order.
func (r *emergencyRepository) GetTopByPriority(ctx context.Context, limit int) ([]*models.Emergency, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}

	ids, err := r.store.ZRevRange(ctx, PriorityIndexKey, 0, int64(limit-1))
	if err != nil {
		return nil, &interfaces.StoreError{Op: "ZREVRANGE", Key: PriorityIndexKey, Err: err}
	}

	return r.loadAll(ctx, ids)
}

func (r *emergencyRepository) GetByArea(ctx context.Context, area string) ([]*models.Emergency, error) {
	key := LocationKey(area)
	ids, err := r.store.SMembers(ctx, key)
	if err != nil {
		return nil, &interfaces.StoreError{Op: "SMEMBERS", Key: key, Err: err}
	}

	return r.loadAll(ctx, ids)
}

func (r *emergencyRepository) GetByType(ctx context.Context, emergencyType models.EmergencyType) ([]*models.Emergency, error) {
	key := TypeKey(emergencyType)
	ids, err := r.store.SMembers(ctx, key)
	if err != nil {
		return nil, &interfaces.StoreError{Op: "SMEMBERS", Key: key, Err: err}
	}

	return r.loadAll(ctx, ids)
}

func (r *emergencyRepository) GetRecent(ctx context.Context, limit int) ([]*models.Emergency, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}

	ids, err := r.store.ZRevRange(ctx, RecencyIndexKey, 0, int64(limit-1))
	if err != nil {
		return nil, &interfaces.StoreError{Op: "ZREVRANGE", Key: RecencyIndexKey, Err: err}
	}

	return r.loadAll(ctx, ids)
}

// GetAll scans every stored record and orders them by priority score,
// highest first. Records with equal scores keep their scan order.
func (r *emergencyRepository) GetAll(ctx context.Context) ([]*models.Emergency, error) {
	pattern := EmergencyKeyPrefix + "*"
	keys, err := r.store.ScanKeys(ctx, pattern, scanBatchSize)
	if err != nil {
		return nil, &interfaces.StoreError{Op: "SCAN", Key: pattern, Err: err}
	}

	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, strings.TrimPrefix(key, EmergencyKeyPrefix))
	}

	emergencies, err := r.loadAll(ctx, ids)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(emergencies, func(i, j int) bool {
		return emergencies[i].PriorityScore > emergencies[j].PriorityScore
	})

	return emergencies, nil
}

var priorityBands = []struct {
	name     string
	min, max string
}{
	{"critical", "80", "100"},
	{"high", "60", "(80"},
	{"medium", "40", "(60"},
	{"low", "0", "(40"},
}

func (r *emergencyRepository) GetStats(ctx context.Context) (*models.EmergencyStats, error) {
	stats := &models.EmergencyStats{
		ByType:     make(map[models.EmergencyType]int64, len(models.EmergencyTypes)),
		BySeverity: make(map[int]int64, 5),
		ByPriority: make(map[string]int64, len(priorityBands)),
	}

	total, err := r.store.ZCard(ctx, PriorityIndexKey)
	if err != nil {
		return nil, &interfaces.StoreError{Op: "ZCARD", Key: PriorityIndexKey, Err: err}
	}
	stats.Total = total

	for _, emergencyType := range models.EmergencyTypes {
		key := TypeKey(emergencyType)
		n, err := r.store.SCard(ctx, key)
		if err != nil {
			return nil, &interfaces.StoreError{Op: "SCARD", Key: key, Err: err}
		}
		stats.ByType[emergencyType] = n
	}

	for level := 1; level <= 5; level++ {
		score := strconv.Itoa(level)
		n, err := r.store.ZCount(ctx, SeverityIndexKey, score, score)
		if err != nil {
			return nil, &interfaces.StoreError{Op: "ZCOUNT", Key: SeverityIndexKey, Err: err}
		}
		stats.BySeverity[level] = n
	}

	for _, band := range priorityBands {
		n, err := r.store.ZCount(ctx, PriorityIndexKey, band.min, band.max)
		if err != nil {
			return nil, &interfaces.StoreError{Op: "ZCOUNT", Key: PriorityIndexKey, Err: err}
		}
		stats.ByPriority[band.name] = n
	}

	return stats, nil
}

// loadAll fetches records in the order of ids. An id whose record is gone
// or unreadable is skipped, since indexes may reference partially written
// or removed records.
func (r *emergencyRepository) loadAll(ctx context.Context, ids []string) ([]*models.Emergency, error) {
	emergencies := make([]*models.Emergency, 0, len(ids))
	for _, id := range ids {
		emergency, err := r.GetByID(ctx, id)
		if err != nil {
			if isStoreError(err) {
				return nil, err
			}
			r.logger.WithContext(ctx).WithEmergencyID(id).WithError(err).Warn("Skipping indexed emergency that could not be loaded")
			continue
		}
		emergencies = append(emergencies, emergency)
	}
	return emergencies, nil
}

func isStoreError(err error) bool {
	_, ok := err.(*interfaces.StoreError)
	return ok
}

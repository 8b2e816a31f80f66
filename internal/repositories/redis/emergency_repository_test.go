package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"calltriage/internal/models"
	"calltriage/internal/repositories/interfaces"
	"calltriage/internal/triage"
	"calltriage/pkg/cache"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*miniredis.Miniredis, *cache.RedisCache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, cache.NewRedisCacheFromClient(client)
}

// steppedClock returns a clock that advances one second per call.
func steppedClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func sampleEmergency(emergencyType models.EmergencyType, severity int, area string) *models.Emergency {
	analysis := triage.FallbackAnalysis("caller reports an incident")
	analysis.EmergencyType = emergencyType
	analysis.SeverityLevel = severity
	analysis.Location.Area = area
	return &models.Emergency{
		RawTranscription: "caller reports an incident",
		Analysis:         analysis,
		PriorityScore:    triage.ComputeScore(&analysis),
		CallMetadata:     (&models.AnalyzeEmergencyRequest{}).Metadata(),
	}
}

func TestCreate_RoundTripByID(t *testing.T) {
	_, store := newTestStore(t)
	repo := NewEmergencyRepository(store, nil)
	ctx := context.Background()

	emergency := sampleEmergency(models.EmergencyTypeFire, 4, "Downtown")
	require.NoError(t, repo.Create(ctx, emergency))

	require.NotEmpty(t, emergency.ID)
	assert.Equal(t, models.EmergencyStatusPending, emergency.Status)
	assert.NotNil(t, emergency.AssignedUnits)
	assert.False(t, emergency.CreatedAt.IsZero())
	assert.Equal(t, emergency.CreatedAt, emergency.Timestamp)

	loaded, err := repo.GetByID(ctx, emergency.ID)
	require.NoError(t, err)
	assert.Equal(t, emergency.ID, loaded.ID)
	assert.Equal(t, emergency.PriorityScore, loaded.PriorityScore)
	assert.Equal(t, emergency.Analysis, loaded.Analysis)
	assert.Equal(t, emergency.RawTranscription, loaded.RawTranscription)
	assert.True(t, emergency.CreatedAt.Equal(loaded.CreatedAt))
}

func TestCreate_WritesEveryIndex(t *testing.T) {
	mr, store := newTestStore(t)
	repo := NewEmergencyRepository(store, nil)

	emergency := sampleEmergency(models.EmergencyTypeMedical, 5, "  North Side ")
	require.NoError(t, repo.Create(context.Background(), emergency))

	id := emergency.ID
	data := mr.HGet(EmergencyKey(id), EmergencyDataField)
	assert.NotEmpty(t, data)

	score, err := mr.ZScore(PriorityIndexKey, id)
	require.NoError(t, err)
	assert.Equal(t, float64(emergency.PriorityScore), score)

	severity, err := mr.ZScore(SeverityIndexKey, id)
	require.NoError(t, err)
	assert.Equal(t, float64(5), severity)

	createdAt, err := mr.ZScore(RecencyIndexKey, id)
	require.NoError(t, err)
	assert.Equal(t, float64(emergency.CreatedAt.UnixMilli()), createdAt)

	assert.True(t, mr.Exists("location:north side"))
	isMember, err := mr.SIsMember("location:north side", id)
	require.NoError(t, err)
	assert.True(t, isMember)

	isMember, err = mr.SIsMember("type:medical", id)
	require.NoError(t, err)
	assert.True(t, isMember)
}

func TestCreate_UnknownAreaSkipsLocationIndex(t *testing.T) {
	mr, store := newTestStore(t)
	repo := NewEmergencyRepository(store, nil)
	ctx := context.Background()

	for _, area := range []string{"unknown", "Unknown", " UNKNOWN "} {
		emergency := sampleEmergency(models.EmergencyTypeOther, 3, area)
		require.NoError(t, repo.Create(ctx, emergency))

		_, err := repo.GetByID(ctx, emergency.ID)
		assert.NoError(t, err)

		for _, key := range []string{PriorityIndexKey, SeverityIndexKey, RecencyIndexKey} {
			_, err := mr.ZScore(key, emergency.ID)
			assert.NoError(t, err, key)
		}
		isMember, err := mr.SIsMember(TypeKey(models.EmergencyTypeOther), emergency.ID)
		require.NoError(t, err)
		assert.True(t, isMember)
	}

	for _, key := range mr.Keys() {
		assert.NotContains(t, key, LocationIndexPrefix)
	}
}

func TestGetTopByPriority_NonIncreasing(t *testing.T) {
	_, store := newTestStore(t)
	repo := NewEmergencyRepository(store, nil)
	ctx := context.Background()

	types := []models.EmergencyType{
		models.EmergencyTypeOther,
		models.EmergencyTypeRescue,
		models.EmergencyTypePolice,
		models.EmergencyTypeFire,
		models.EmergencyTypeMedical,
	}
	for i, emergencyType := range types {
		require.NoError(t, repo.Create(ctx, sampleEmergency(emergencyType, i%5+1, "Harbor")))
	}

	top, err := repo.GetTopByPriority(ctx, 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, top[i-1].PriorityScore, top[i].PriorityScore)
	}

	all, err := repo.GetTopByPriority(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, len(types))
}

func TestGetTopByPriority_TiesInReverseIDOrder(t *testing.T) {
	_, store := newTestStore(t)
	repo := NewEmergencyRepository(store, nil)
	ctx := context.Background()

	for _, id := range []string{"a", "c", "b"} {
		emergency := sampleEmergency(models.EmergencyTypeFire, 4, "Harbor")
		emergency.ID = id
		require.NoError(t, repo.Create(ctx, emergency))
	}

	top, err := repo.GetTopByPriority(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{top[0].ID, top[1].ID, top[2].ID})
}

func TestGetByArea_CaseInsensitive(t *testing.T) {
	_, store := newTestStore(t)
	repo := NewEmergencyRepository(store, nil)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleEmergency(models.EmergencyTypeFire, 4, "Downtown")))
	require.NoError(t, repo.Create(ctx, sampleEmergency(models.EmergencyTypeMedical, 2, "downtown")))
	require.NoError(t, repo.Create(ctx, sampleEmergency(models.EmergencyTypePolice, 2, "Uptown")))

	found, err := repo.GetByArea(ctx, "DOWNTOWN")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	none, err := repo.GetByArea(ctx, "nowhere")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetByType(t *testing.T) {
	_, store := newTestStore(t)
	repo := NewEmergencyRepository(store, nil)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleEmergency(models.EmergencyTypeFire, 4, "Downtown")))
	require.NoError(t, repo.Create(ctx, sampleEmergency(models.EmergencyTypeFire, 2, "Uptown")))
	require.NoError(t, repo.Create(ctx, sampleEmergency(models.EmergencyTypeMedical, 2, "Uptown")))

	fires, err := repo.GetByType(ctx, models.EmergencyTypeFire)
	require.NoError(t, err)
	assert.Len(t, fires, 2)
	for _, e := range fires {
		assert.Equal(t, models.EmergencyTypeFire, e.Analysis.EmergencyType)
	}
}

func TestGetRecent_NewestFirst(t *testing.T) {
	_, store := newTestStore(t)
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo := NewEmergencyRepository(store, nil, WithClock(steppedClock(start)))
	ctx := context.Background()

	var ids []string
	for i := 0; i < 4; i++ {
		emergency := sampleEmergency(models.EmergencyTypePolice, 2, "Harbor")
		require.NoError(t, repo.Create(ctx, emergency))
		ids = append(ids, emergency.ID)
	}

	recent, err := repo.GetRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, ids[3], recent[0].ID)
	assert.Equal(t, ids[2], recent[1].ID)
}

func TestGetAll_SortedByPriority(t *testing.T) {
	_, store := newTestStore(t)
	repo := NewEmergencyRepository(store, nil)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		require.NoError(t, repo.Create(ctx, sampleEmergency(models.EmergencyTypeMedical, i, "Harbor")))
	}

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i-1].PriorityScore, all[i].PriorityScore)
	}
}

func TestReads_SkipMissingAndCorruptRecords(t *testing.T) {
	mr, store := newTestStore(t)
	repo := NewEmergencyRepository(store, nil)
	ctx := context.Background()

	kept := sampleEmergency(models.EmergencyTypeFire, 4, "Harbor")
	require.NoError(t, repo.Create(ctx, kept))

	_, err := mr.ZAdd(PriorityIndexKey, 99, "dangling")
	require.NoError(t, err)
	mr.HSet(EmergencyKey("corrupt"), EmergencyDataField, "{not json")
	_, err = mr.ZAdd(PriorityIndexKey, 98, "corrupt")
	require.NoError(t, err)

	top, err := repo.GetTopByPriority(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, kept.ID, top[0].ID)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGetByID_NotFound(t *testing.T) {
	_, store := newTestStore(t)
	repo := NewEmergencyRepository(store, nil)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, interfaces.ErrEmergencyNotFound)
	assert.NotErrorIs(t, err, interfaces.ErrStoreUnavailable)
}

func TestGetStats(t *testing.T) {
	_, store := newTestStore(t)
	repo := NewEmergencyRepository(store, nil)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, sampleEmergency(models.EmergencyTypeFire, 5, "Harbor")))
	require.NoError(t, repo.Create(ctx, sampleEmergency(models.EmergencyTypeFire, 1, "Harbor")))
	require.NoError(t, repo.Create(ctx, sampleEmergency(models.EmergencyTypeMedical, 3, "unknown")))

	stats, err := repo.GetStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.ByType[models.EmergencyTypeFire])
	assert.Equal(t, int64(1), stats.ByType[models.EmergencyTypeMedical])
	assert.Equal(t, int64(0), stats.ByType[models.EmergencyTypeRobbery])
	assert.Equal(t, int64(1), stats.BySeverity[5])
	assert.Equal(t, int64(1), stats.BySeverity[1])
	assert.Equal(t, int64(1), stats.BySeverity[3])

	var banded int64
	for _, n := range stats.ByPriority {
		banded += n
	}
	assert.Equal(t, stats.Total, banded)
}

// failingStore fails the nth write operation (1-based) and passes the rest
// through to the wrapped store.
type failingStore struct {
	Store
	failAt int
	writes int
	err    error
}

func (f *failingStore) next() error {
	f.writes++
	if f.writes == f.failAt {
		return f.err
	}
	return nil
}

func (f *failingStore) HSet(ctx context.Context, key string, values ...interface{}) error {
	if err := f.next(); err != nil {
		return err
	}
	return f.Store.HSet(ctx, key, values...)
}

func (f *failingStore) SAdd(ctx context.Context, key string, members ...interface{}) error {
	if err := f.next(); err != nil {
		return err
	}
	return f.Store.SAdd(ctx, key, members...)
}

func (f *failingStore) ZAdd(ctx context.Context, key string, score float64, member interface{}) error {
	if err := f.next(); err != nil {
		return err
	}
	return f.Store.ZAdd(ctx, key, score, member)
}

func TestCreate_FailureAbortsRemainingSteps(t *testing.T) {
	steps := []struct {
		op  string
		key string
	}{
		{"HSET", "emergency:"},
		{"ZADD", PriorityIndexKey},
		{"ZADD", SeverityIndexKey},
		{"SADD", "location:harbor"},
		{"SADD", "type:fire"},
		{"ZADD", RecencyIndexKey},
	}

	for i, step := range steps {
		failAt := i + 1
		t.Run(fmt.Sprintf("step_%d_%s", failAt, step.op), func(t *testing.T) {
			mr, store := newTestStore(t)
			cause := errors.New("connection reset")
			wrapped := &failingStore{Store: store, failAt: failAt, err: cause}
			repo := NewEmergencyRepository(wrapped, nil)

			emergency := sampleEmergency(models.EmergencyTypeFire, 4, "Harbor")
			err := repo.Create(context.Background(), emergency)
			require.Error(t, err)
			assert.ErrorIs(t, err, interfaces.ErrStoreUnavailable)
			assert.ErrorIs(t, err, cause)

			var storeErr *interfaces.StoreError
			require.ErrorAs(t, err, &storeErr)
			assert.Equal(t, step.op, storeErr.Op)
			assert.Contains(t, storeErr.Key, step.key)
			assert.Equal(t, emergency.ID, storeErr.EmergencyID)

			assert.Equal(t, failAt, wrapped.writes, "no step may run after the failing one")
			assert.Equal(t, failAt > 1, mr.Exists(EmergencyKey(emergency.ID)), "earlier steps are not rolled back")
		})
	}
}

func TestCreate_DeadlineExceededIsStoreFault(t *testing.T) {
	_, store := newTestStore(t)
	wrapped := &failingStore{Store: store, failAt: 1, err: context.DeadlineExceeded}
	repo := NewEmergencyRepository(wrapped, nil)

	err := repo.Create(context.Background(), sampleEmergency(models.EmergencyTypeFire, 4, "Harbor"))
	assert.ErrorIs(t, err, interfaces.ErrStoreUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReads_StoreFailure(t *testing.T) {
	mr, store := newTestStore(t)
	repo := NewEmergencyRepository(store, nil)
	mr.Close()

	_, err := repo.GetTopByPriority(context.Background(), 5)
	assert.ErrorIs(t, err, interfaces.ErrStoreUnavailable)

	_, err = repo.GetStats(context.Background())
	assert.ErrorIs(t, err, interfaces.ErrStoreUnavailable)
}

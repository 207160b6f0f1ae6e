//go:generate mockgen -source=$GOFILE -destination=service_mocks_test.go -package=schedule_test

package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lgrbic/progressor/internal/progression"
	"github.com/lgrbic/progressor/internal/telemetry/metrics"
	"github.com/lgrbic/progressor/internal/telemetry/tracing"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	oneMinute           = 60
	scheduleCacheExpire = oneMinute * 10
)

var (
	ErrWorkoutIndexOutOfRange = errors.New("workout index out of range")
	ErrUnknownSlot            = errors.New("slot not scheduled on that workout")
	ErrInvalidResult          = errors.New("invalid workout result")
	ErrEmptyConfigKey         = errors.New("empty config key")
)

type programCatalog interface {
	Get(id string) (*progression.Definition, error)
	All() []*progression.Definition
	IDs() []string
}

type scheduleRepo interface {
	GetConfig(ctx context.Context, programID string) (progression.Config, error)
	ReplaceConfig(ctx context.Context, programID string, cfg progression.Config) error
	SetConfigValue(ctx context.Context, programID, key, value string) error
	GetResults(ctx context.Context, programID string) (progression.Results, error)
	UpsertResult(ctx context.Context, programID string, workoutIndex int, slotID string, res progression.SlotResult) error
	DeleteResult(ctx context.Context, programID string, workoutIndex int, slotID string) error
	ResultsCount(ctx context.Context, programID string) (int, error)
}

// ProgramProgress tells a lifter where they stand in a program.
type ProgramProgress struct {
	ProgramID        string `json:"programId"`
	TotalWorkouts    int    `json:"totalWorkouts"`
	ResultsCount     int    `json:"resultsCount"`
	NextWorkoutIndex int    `json:"nextWorkoutIndex"`
	Completed        bool   `json:"completed"`
}

// Service replays program schedules on demand and keeps the replayed rows
// in an in-memory cache until a config or result write invalidates them.
type Service struct {
	catalog programCatalog
	repo    scheduleRepo
	cache   *freecache.Cache
	metrics *metrics.Manager
}

func NewService(catalog programCatalog, repo scheduleRepo, metricsManager *metrics.Manager) *Service {
	megabyte := 1024 * 1024
	cacheSize := 50 * megabyte

	return &Service{
		catalog: catalog,
		repo:    repo,
		cache:   freecache.NewCache(cacheSize),
		metrics: metricsManager,
	}
}

// Workouts replays the full schedule of a program from its stored config
// and results.
func (s *Service) Workouts(ctx context.Context, programID string) (_ []progression.WorkoutRow, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.schedule.workouts")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(attribute.String("program.id", programID))

	def, err := s.catalog.Get(programID)
	if err != nil {
		return nil, err
	}

	cacheKey := cacheKeyForProgram(programID)
	if cachedRowsBytes, err := s.cache.Get([]byte(cacheKey)); err == nil {
		var rows []progression.WorkoutRow
		if err = json.Unmarshal(cachedRowsBytes, &rows); err == nil {
			log.Tracef("found replayed schedule for %s in cache", programID)
			s.metrics.CounterScheduleCacheHits.Inc()
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return rows, nil
		}
		log.Errorf("failed to unmarshal cached schedule for program %s: %s", programID, err)
	}
	s.metrics.CounterScheduleCacheMisses.Inc()

	cfg, err := s.repo.GetConfig(ctx, programID)
	if err != nil {
		return nil, fmt.Errorf("get config: %w", err)
	}
	results, err := s.repo.GetResults(ctx, programID)
	if err != nil {
		return nil, fmt.Errorf("get results: %w", err)
	}

	replayStart := time.Now()
	rows, err := progression.Compute(def, cfg, results)
	if err != nil {
		return nil, fmt.Errorf("replay program %s: %w", programID, err)
	}
	s.metrics.CounterReplays.Inc()
	s.metrics.HistReplayDuration.Observe(time.Since(replayStart).Seconds())

	rowsBytes, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("marshal schedule: %w", err)
	}
	if err := s.cache.Set([]byte(cacheKey), rowsBytes, scheduleCacheExpire); err != nil {
		log.Errorf("failed to write schedule cache for program %s: %s", programID, err)
	}

	return rows, nil
}

// Workout returns a single replayed workout of a program.
func (s *Service) Workout(ctx context.Context, programID string, workoutIndex int) (_ *progression.WorkoutRow, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.schedule.workout")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(attribute.String("program.id", programID))
	span.SetAttributes(attribute.Int("workout.index", workoutIndex))

	def, err := s.catalog.Get(programID)
	if err != nil {
		return nil, err
	}
	if workoutIndex < 0 || workoutIndex >= def.TotalWorkouts {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrWorkoutIndexOutOfRange, workoutIndex, def.TotalWorkouts)
	}

	rows, err := s.Workouts(ctx, programID)
	if err != nil {
		return nil, err
	}
	return &rows[workoutIndex], nil
}

// Config returns the stored config of a program.
func (s *Service) Config(ctx context.Context, programID string) (_ progression.Config, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.schedule.config.get")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(attribute.String("program.id", programID))

	if _, err := s.catalog.Get(programID); err != nil {
		return nil, err
	}
	cfg, err := s.repo.GetConfig(ctx, programID)
	if err != nil {
		return nil, fmt.Errorf("get config: %w", err)
	}
	return cfg, nil
}

// PutConfig replaces the whole config of a program.
func (s *Service) PutConfig(ctx context.Context, programID string, cfg progression.Config) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.schedule.config.put")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(attribute.String("program.id", programID))
	span.SetAttributes(attribute.Int("config.size", len(cfg)))

	if _, err := s.catalog.Get(programID); err != nil {
		return err
	}
	if err := s.repo.ReplaceConfig(ctx, programID, cfg); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	s.invalidate(programID)
	return nil
}

// SetConfigValue upserts one config entry of a program.
func (s *Service) SetConfigValue(ctx context.Context, programID, key, value string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.schedule.config.set")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(attribute.String("program.id", programID))
	span.SetAttributes(attribute.String("config.key", key))

	if _, err := s.catalog.Get(programID); err != nil {
		return err
	}
	if key == "" {
		return ErrEmptyConfigKey
	}
	if err := s.repo.SetConfigValue(ctx, programID, key, value); err != nil {
		return fmt.Errorf("set config value: %w", err)
	}
	s.invalidate(programID)
	return nil
}

// RecordResult stores what the lifter did on one scheduled slot. The slot
// must actually be scheduled on that workout.
func (s *Service) RecordResult(
	ctx context.Context,
	programID string,
	workoutIndex int,
	slotID string,
	res progression.SlotResult,
) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.schedule.results.record")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(attribute.String("program.id", programID))
	span.SetAttributes(attribute.Int("workout.index", workoutIndex))
	span.SetAttributes(attribute.String("slot.id", slotID))

	def, err := s.catalog.Get(programID)
	if err != nil {
		return err
	}
	if workoutIndex < 0 || workoutIndex >= def.TotalWorkouts {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrWorkoutIndexOutOfRange, workoutIndex, def.TotalWorkouts)
	}
	if !slotScheduledOn(def, workoutIndex, slotID) {
		return fmt.Errorf("%w: slot %s, workout %d", ErrUnknownSlot, slotID, workoutIndex)
	}
	if res.Result != "" && !res.Result.Valid() {
		return fmt.Errorf("%w: outcome %q", ErrInvalidResult, res.Result)
	}
	if res.AmrapReps != nil && *res.AmrapReps < 0 {
		return fmt.Errorf("%w: negative amrap reps", ErrInvalidResult)
	}
	if res.RPE != nil && (*res.RPE < 0 || *res.RPE > 10) {
		return fmt.Errorf("%w: rpe not in [0, 10]", ErrInvalidResult)
	}

	if err := s.repo.UpsertResult(ctx, programID, workoutIndex, slotID, res); err != nil {
		return fmt.Errorf("upsert result: %w", err)
	}
	s.metrics.CounterResultsRecorded.Inc()
	s.invalidate(programID)
	return nil
}

// ClearResult removes a logged result, turning the slot back into an
// implicit pass.
func (s *Service) ClearResult(ctx context.Context, programID string, workoutIndex int, slotID string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.schedule.results.clear")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(attribute.String("program.id", programID))
	span.SetAttributes(attribute.Int("workout.index", workoutIndex))
	span.SetAttributes(attribute.String("slot.id", slotID))

	def, err := s.catalog.Get(programID)
	if err != nil {
		return err
	}
	if workoutIndex < 0 || workoutIndex >= def.TotalWorkouts {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrWorkoutIndexOutOfRange, workoutIndex, def.TotalWorkouts)
	}

	if err := s.repo.DeleteResult(ctx, programID, workoutIndex, slotID); err != nil {
		return err
	}
	s.invalidate(programID)
	return nil
}

// Progress reports how far into a program the lifter is, judged by the
// highest workout index with a logged result.
func (s *Service) Progress(ctx context.Context, programID string) (_ *ProgramProgress, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.schedule.progress")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(attribute.String("program.id", programID))

	def, err := s.catalog.Get(programID)
	if err != nil {
		return nil, err
	}

	count, err := s.repo.ResultsCount(ctx, programID)
	if err != nil {
		return nil, fmt.Errorf("results count: %w", err)
	}

	nextIndex := 0
	if count > 0 {
		results, err := s.repo.GetResults(ctx, programID)
		if err != nil {
			return nil, fmt.Errorf("get results: %w", err)
		}
		for key := range results {
			idx, err := strconv.Atoi(key)
			if err != nil {
				continue
			}
			if idx+1 > nextIndex {
				nextIndex = idx + 1
			}
		}
		if nextIndex > def.TotalWorkouts {
			nextIndex = def.TotalWorkouts
		}
	}

	return &ProgramProgress{
		ProgramID:        programID,
		TotalWorkouts:    def.TotalWorkouts,
		ResultsCount:     count,
		NextWorkoutIndex: nextIndex,
		Completed:        nextIndex >= def.TotalWorkouts,
	}, nil
}

func (s *Service) invalidate(programID string) {
	affected := s.cache.Del([]byte(cacheKeyForProgram(programID)))
	log.Tracef("schedule cache invalidated for program %s: %t", programID, affected)
}

func cacheKeyForProgram(programID string) string {
	return fmt.Sprintf("schedule::%s", programID)
}

// slotScheduledOn reports whether a slot id appears on the day a workout
// index lands on.
func slotScheduledOn(def *progression.Definition, workoutIndex int, slotID string) bool {
	day := &def.Days[workoutIndex%def.CycleLength]
	for i := range day.Slots {
		if day.Slots[i].ID == slotID {
			return true
		}
	}
	return false
}

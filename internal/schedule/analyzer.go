package schedule

import (
	"context"
	"errors"

	"github.com/lgrbic/progressor/internal/progression"
	"github.com/lgrbic/progressor/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

var ErrExerciseNotFound = errors.New("exercise not found in program")

// HistoryPoint is one appearance of an exercise in the replayed schedule.
type HistoryPoint struct {
	WorkoutIndex int                 `json:"workoutIndex"`
	DayName      string              `json:"dayName"`
	SlotID       string              `json:"slotId"`
	Tier         string              `json:"tier"`
	Weight       float64             `json:"weight"`
	Stage        int                 `json:"stage"`
	Sets         int                 `json:"sets"`
	Reps         int                 `json:"reps"`
	Volume       float64             `json:"volume"`
	Result       progression.Outcome `json:"result,omitempty"`
	AmrapReps    *int                `json:"amrapReps,omitempty"`
	IsDeload     bool                `json:"isDeload,omitempty"`
}

// ExerciseHistory represents the full trajectory of one exercise across
// a program: every scheduled appearance plus aggregate load numbers.
type ExerciseHistory struct {
	ExerciseID   string         `json:"exerciseId"`
	ExerciseName string         `json:"exerciseName"`
	Points       []HistoryPoint `json:"points"`
	MaxWeight    float64        `json:"maxWeight"`
	TotalVolume  float64        `json:"totalVolume"`
}

type TierStats struct {
	Slots       int     `json:"slots"`
	Sets        int     `json:"sets"`
	Reps        int     `json:"reps"`
	Volume      float64 `json:"volume"`
	VolumeShare float64 `json:"volumeShare"`
}

type workoutsSource interface {
	Workouts(ctx context.Context, programID string) ([]progression.WorkoutRow, error)
}

type Analyzer struct {
	catalog programCatalog
	source  workoutsSource
}

func NewAnalyzer(catalog programCatalog, source workoutsSource) *Analyzer {
	return &Analyzer{
		catalog: catalog,
		source:  source,
	}
}

// ExerciseHistory collects every appearance of an exercise in the replayed
// schedule, regardless of which slot variant scheduled it.
func (a *Analyzer) ExerciseHistory(
	ctx context.Context,
	programID, exerciseID string,
) (_ *ExerciseHistory, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.schedule.exerciseHistory")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("program.id", programID))
	span.SetAttributes(attribute.String("exercise.id", exerciseID))

	def, err := a.catalog.Get(programID)
	if err != nil {
		return nil, err
	}
	if !programUsesExercise(def, exerciseID) {
		return nil, ErrExerciseNotFound
	}

	rows, err := a.source.Workouts(ctx, programID)
	if err != nil {
		return nil, err
	}

	history := &ExerciseHistory{
		ExerciseID:   exerciseID,
		ExerciseName: def.ExerciseName(exerciseID),
		Points:       []HistoryPoint{},
	}
	for _, row := range rows {
		for _, slot := range row.Slots {
			if slot.ExerciseID != exerciseID {
				continue
			}
			point := HistoryPoint{
				WorkoutIndex: row.Index,
				DayName:      row.DayName,
				SlotID:       slot.SlotID,
				Tier:         slot.Tier,
				Weight:       slot.Weight,
				Stage:        slot.Stage,
				Sets:         slot.Sets,
				Reps:         slot.Reps,
				Volume:       slotVolume(slot),
				Result:       slot.Result,
				AmrapReps:    slot.AmrapReps,
				IsDeload:     slot.IsDeload,
			}
			history.Points = append(history.Points, point)
			history.TotalVolume += point.Volume
			if point.Weight > history.MaxWeight {
				history.MaxWeight = point.Weight
			}
		}
	}

	return history, nil
}

// TierBreakdown aggregates the replayed schedule per tier, with each
// tier's share of the total lifted volume.
func (a *Analyzer) TierBreakdown(
	ctx context.Context,
	programID string,
) (_ map[string]TierStats, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.schedule.tierBreakdown")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("program.id", programID))

	rows, err := a.source.Workouts(ctx, programID)
	if err != nil {
		return nil, err
	}

	tier2stats := make(map[string]TierStats)
	var totalVolume float64
	for _, row := range rows {
		for _, slot := range row.Slots {
			stats := tier2stats[slot.Tier]
			stats.Slots++
			stats.Sets += slot.Sets
			stats.Reps += slot.Sets * slot.Reps
			stats.Volume += slotVolume(slot)
			tier2stats[slot.Tier] = stats
			totalVolume += slotVolume(slot)
		}
	}

	if totalVolume > 0 {
		for tier, stats := range tier2stats {
			p := stats.Volume / totalVolume * 100
			// leave only 2 decimals
			p = float64(int(p*100)) / 100
			stats.VolumeShare = p
			tier2stats[tier] = stats
		}
	}

	return tier2stats, nil
}

// slotVolume estimates the lifted tonnage of one slot. For prescription
// slots every prescribed set counts; for progressive slots a logged AMRAP
// rep count replaces the planned reps of the final set.
func slotVolume(slot progression.SlotRow) float64 {
	if len(slot.Prescriptions) > 0 {
		var volume float64
		for _, p := range slot.Prescriptions {
			volume += float64(p.Sets*p.Reps) * p.Weight
		}
		return volume
	}

	volume := float64(slot.Sets*slot.Reps) * slot.Weight
	if slot.IsAmrap && slot.AmrapReps != nil {
		volume += float64(*slot.AmrapReps-slot.Reps) * slot.Weight
	}
	return volume
}

func programUsesExercise(def *progression.Definition, exerciseID string) bool {
	for i := range def.Days {
		for j := range def.Days[i].Slots {
			if def.Days[i].Slots[j].ExerciseID == exerciseID {
				return true
			}
		}
	}
	return false
}

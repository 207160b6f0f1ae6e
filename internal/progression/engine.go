// Package progression implements the program replay engine: a pure function
// that reconstructs the full workout schedule of a declarative strength
// program from its definition, the lifter's config and the sparse history
// of logged results.
package progression

import (
	"fmt"
	"strconv"
)

// slotState is the replay-owned state of one slot id: its working weight,
// its position on the stage ladder, and whether a failure (or a training max
// bump) has ever altered it.
type slotState struct {
	weight      float64
	stage       int
	everChanged bool
}

type replay struct {
	def     *Definition
	cfg     Config
	results Results
	step    float64

	states map[string]*slotState
	// training maxes shared between all slots referencing the same key
	tms map[string]float64
	// last positive display weight per exercise id, for deload detection
	lastWeights map[string]float64
}

// Compute replays the definition against the logged results and returns the
// full schedule, one row per workout, with weight, stage and training max
// state resolved as of entering each workout. It holds no state between
// calls; concurrent calls with different arguments are safe.
func Compute(def *Definition, cfg Config, results Results) ([]WorkoutRow, error) {
	r := &replay{
		def:         def,
		cfg:         cfg,
		results:     results,
		step:        cfg.RoundingStep(),
		states:      make(map[string]*slotState),
		tms:         make(map[string]float64),
		lastWeights: make(map[string]float64),
	}
	r.init()

	rows := make([]WorkoutRow, 0, def.TotalWorkouts)
	for i := 0; i < def.TotalWorkouts; i++ {
		day := &def.Days[i%def.CycleLength]
		workoutResults := results[strconv.Itoa(i)]

		row := WorkoutRow{
			Index:   i,
			DayName: day.Name,
			Slots:   make([]SlotRow, 0, len(day.Slots)),
		}
		for j := range day.Slots {
			slot := &day.Slots[j]
			slotRow := r.snapshot(slot, workoutResults[slot.ID])
			row.IsChanged = row.IsChanged || slotRow.IsChanged
			row.Slots = append(row.Slots, slotRow)
		}

		// State moves only after the whole row is emitted, so every
		// displayed value reflects state entering the workout.
		for j := range day.Slots {
			slot := &day.Slots[j]
			if slot.IsPrescription() {
				continue
			}
			if err := r.mutate(slot, workoutResults[slot.ID]); err != nil {
				return nil, err
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// init builds per-slot and per-training-max state for one replay, walking
// slots in definition order so the first occurrence of an id wins.
func (r *replay) init() {
	for _, day := range r.def.Days {
		for i := range day.Slots {
			slot := &day.Slots[i]
			if _, ok := r.states[slot.ID]; !ok {
				r.states[slot.ID] = &slotState{weight: r.initialWeight(slot)}
			}
			if slot.TrainingMaxKey != "" {
				if _, ok := r.tms[slot.TrainingMaxKey]; !ok {
					r.tms[slot.TrainingMaxKey] = r.cfg.Weight(slot.TrainingMaxKey)
				}
			}
		}
	}
}

func (r *replay) initialWeight(slot *Slot) float64 {
	base := r.cfg.Weight(slot.StartWeightKey)
	if slot.StartWeightMultiplier != 0 {
		base = RoundToNearestHalf(base * slot.StartWeightMultiplier)
	}
	increment := r.def.Increments[slot.ExerciseID]
	return RoundToNearestHalf(base - slot.StartWeightOffset*increment)
}

// snapshot resolves one slot row from state entering the current workout.
// It only writes to the per-exercise last-weight tracker.
func (r *replay) snapshot(slot *Slot, res SlotResult) SlotRow {
	row := SlotRow{
		SlotID:       slot.ID,
		ExerciseID:   slot.ExerciseID,
		ExerciseName: r.def.ExerciseName(slot.ExerciseID),
		Tier:         slot.Tier,
		Role:         slot.EffectiveRole(),
		Notes:        slot.Notes,
		Result:       res.Result,
		AmrapReps:    res.AmrapReps,
		RPE:          res.RPE,
	}

	if slot.IsPrescription() {
		reference := r.cfg.Weight(slot.PercentOf)
		resolved := make([]ResolvedPrescription, 0, len(slot.Prescriptions))
		for _, p := range slot.Prescriptions {
			resolved = append(resolved, ResolvedPrescription{
				Percent: p.Percent,
				Reps:    p.Reps,
				Sets:    p.Sets,
				Weight:  RoundToNearest(reference*p.Percent/100, r.step),
			})
		}
		// the last prescription is the working set
		working := resolved[len(resolved)-1]
		row.Weight = working.Weight
		row.Sets = working.Sets
		row.Reps = working.Reps
		row.Prescriptions = resolved
		row.IsGPP = slot.IsGPP
		row.ComplexReps = slot.ComplexReps
		return row
	}

	state := r.states[slot.ID]
	weight := state.weight
	if slot.TrainingMaxKey != "" && slot.TMPercent > 0 {
		weight = RoundToNearestHalf(r.tms[slot.TrainingMaxKey] * slot.TMPercent)
	}
	stage := slot.Stages[state.stage]

	row.Weight = weight
	row.Stage = state.stage
	row.Sets = stage.Sets
	row.Reps = stage.Reps
	row.RepsMax = stage.RepsMax
	row.IsAmrap = stage.Amrap
	row.IsChanged = state.everChanged

	if prev, ok := r.lastWeights[slot.ExerciseID]; ok && weight > 0 && weight < prev {
		row.IsDeload = true
	}
	if weight > 0 {
		r.lastWeights[slot.ExerciseID] = weight
	}
	return row
}

// mutate applies the rule selected by the recorded (or implicit) outcome to
// the slot's state for the next occurrence.
func (r *replay) mutate(slot *Slot, res SlotResult) error {
	state := r.states[slot.ID]
	maxStageIdx := len(slot.Stages) - 1

	var rule Rule
	var failed bool
	switch res.Result {
	case OutcomeFail:
		failed = true
		if state.stage >= maxStageIdx {
			rule = slot.OnFinalStageFail
		} else {
			rule = slot.OnMidStageFail
		}
	case OutcomeSuccess:
		if state.stage >= maxStageIdx && slot.OnFinalStageSuccess != nil {
			rule = slot.OnFinalStageSuccess
		} else {
			rule = slot.OnSuccess
		}
	default:
		// no result logged, an implicit pass
		if slot.OnUndefined != nil {
			rule = slot.OnUndefined
		} else {
			rule = slot.OnSuccess
		}
	}

	increment := r.def.Increments[slot.ExerciseID]
	switch rl := rule.(type) {
	case AddWeight:
		state.weight += increment
	case AdvanceStage:
		if state.stage < maxStageIdx {
			state.stage++
		}
	case AdvanceStageAddWeight:
		if state.stage < maxStageIdx {
			state.stage++
		}
		state.weight += increment
	case DeloadPercent:
		state.weight = RoundToNearestHalf(state.weight * (1 - rl.Percent/100))
		state.stage = 0
	case AddWeightResetStage:
		state.weight = RoundToNearestHalf(state.weight + rl.Amount)
		state.stage = 0
	case NoChange:
	case UpdateTM:
		if slot.TrainingMaxKey == "" {
			return fmt.Errorf("slot %s: update_tm rule requires a trainingMaxKey", slot.ID)
		}
		if res.AmrapReps != nil && *res.AmrapReps >= rl.MinAmrapReps {
			r.tms[slot.TrainingMaxKey] = RoundToNearestHalf(r.tms[slot.TrainingMaxKey] + rl.Amount)
			state.everChanged = true
		}
		return nil
	case nil:
		return nil
	default:
		return fmt.Errorf("slot %s: unhandled progression rule %q", slot.ID, rule.Tag())
	}

	// Only a failure that actually transforms the slot makes it count as
	// changed; implicit passes never do.
	if failed {
		if _, ok := rule.(NoChange); !ok {
			state.everChanged = true
		}
	}
	return nil
}

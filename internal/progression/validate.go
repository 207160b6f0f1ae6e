package progression

import "fmt"

// ValidateDefinition checks the structural contract a definition must meet
// before it is handed to a replay. Rule shape errors are already caught at
// decode time; this covers everything the decoder cannot see.
func ValidateDefinition(def *Definition) error {
	if def.ID == "" {
		return fmt.Errorf("program id is empty")
	}
	if def.Name == "" {
		return fmt.Errorf("program %s: name is empty", def.ID)
	}
	if def.CycleLength < 1 {
		return fmt.Errorf("program %s: cycleLength %d, must be at least 1", def.ID, def.CycleLength)
	}
	if def.TotalWorkouts < 1 {
		return fmt.Errorf("program %s: totalWorkouts %d, must be at least 1", def.ID, def.TotalWorkouts)
	}
	if len(def.Days) == 0 {
		return fmt.Errorf("program %s: no days", def.ID)
	}
	if def.CycleLength > len(def.Days) {
		return fmt.Errorf("program %s: cycleLength %d exceeds day count %d", def.ID, def.CycleLength, len(def.Days))
	}
	for exerciseID, increment := range def.Increments {
		if increment < 0 {
			return fmt.Errorf("program %s: negative increment %v for exercise %s", def.ID, increment, exerciseID)
		}
	}

	slotExercise := make(map[string]string)
	for _, day := range def.Days {
		if day.Name == "" {
			return fmt.Errorf("program %s: day with empty name", def.ID)
		}
		if len(day.Slots) == 0 {
			return fmt.Errorf("program %s: day %s has no slots", def.ID, day.Name)
		}
		for i := range day.Slots {
			slot := &day.Slots[i]
			if err := validateSlot(slot); err != nil {
				return fmt.Errorf("program %s: day %s: %w", def.ID, day.Name, err)
			}
			if prev, ok := slotExercise[slot.ID]; ok && prev != slot.ExerciseID {
				return fmt.Errorf(
					"program %s: slot %s bound to both exercise %s and %s",
					def.ID, slot.ID, prev, slot.ExerciseID,
				)
			}
			slotExercise[slot.ID] = slot.ExerciseID
		}
	}
	return nil
}

func validateSlot(slot *Slot) error {
	if slot.ID == "" {
		return fmt.Errorf("slot with empty id")
	}
	if slot.ExerciseID == "" {
		return fmt.Errorf("slot %s: exerciseId is empty", slot.ID)
	}
	if slot.Tier == "" {
		return fmt.Errorf("slot %s: tier is empty", slot.ID)
	}
	switch slot.Role {
	case "", RolePrimary, RoleSecondary, RoleAccessory:
	default:
		return fmt.Errorf("slot %s: unknown role %q", slot.ID, slot.Role)
	}
	if slot.TMPercent != 0 {
		if slot.TMPercent < 0 || slot.TMPercent > 1 {
			return fmt.Errorf("slot %s: tmPercent %v outside (0, 1]", slot.ID, slot.TMPercent)
		}
		if slot.TrainingMaxKey == "" {
			return fmt.Errorf("slot %s: tmPercent set without trainingMaxKey", slot.ID)
		}
	}

	if slot.IsPrescription() {
		if len(slot.Stages) > 0 {
			return fmt.Errorf("slot %s: carries both prescriptions and stages", slot.ID)
		}
		if slot.PercentOf == "" {
			return fmt.Errorf("slot %s: prescriptions without percentOf", slot.ID)
		}
		for i, p := range slot.Prescriptions {
			if p.Percent < 0 || p.Percent > 120 {
				return fmt.Errorf("slot %s: prescription %d: percent %v outside [0, 120]", slot.ID, i, p.Percent)
			}
			if p.Sets < 1 || p.Reps < 1 {
				return fmt.Errorf("slot %s: prescription %d: sets and reps must be positive", slot.ID, i)
			}
		}
		return nil
	}

	if len(slot.Stages) == 0 {
		return fmt.Errorf("slot %s: no stages", slot.ID)
	}
	for i, stage := range slot.Stages {
		if stage.Sets < 1 || stage.Reps < 1 {
			return fmt.Errorf("slot %s: stage %d: sets and reps must be positive", slot.ID, i)
		}
	}
	if slot.OnSuccess == nil {
		return fmt.Errorf("slot %s: onSuccess rule is required", slot.ID)
	}
	if slot.OnMidStageFail == nil {
		return fmt.Errorf("slot %s: onMidStageFail rule is required", slot.ID)
	}
	if slot.OnFinalStageFail == nil {
		return fmt.Errorf("slot %s: onFinalStageFail rule is required", slot.ID)
	}
	return nil
}

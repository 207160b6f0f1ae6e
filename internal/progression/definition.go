package progression

import (
	"encoding/json"
	"fmt"
	"io"
)

// Definition is a complete declarative program: identity, the day rotation,
// and per-exercise display names and weight increments. A definition is
// loaded once and treated as immutable by every replay.
type Definition struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Version       int                `json:"version"`
	Category      string             `json:"category,omitempty"`
	CycleLength   int                `json:"cycleLength"`
	TotalWorkouts int                `json:"totalWorkouts"`
	ExerciseNames map[string]string  `json:"exerciseNames,omitempty"`
	Increments    map[string]float64 `json:"increments,omitempty"`
	Days          []Day              `json:"days"`
}

// ExerciseName returns the display name for an exercise id, falling back to
// the id itself when the definition carries no mapping for it.
func (d *Definition) ExerciseName(exerciseID string) string {
	if name, ok := d.ExerciseNames[exerciseID]; ok {
		return name
	}
	return exerciseID
}

// Day is one step of the rotation: day i%cycleLength is active on workout i.
type Day struct {
	Name  string `json:"name"`
	Slots []Slot `json:"slots"`
}

// Stage is one rung of a slot's sets×reps ladder.
type Stage struct {
	Sets    int  `json:"sets"`
	Reps    int  `json:"reps"`
	Amrap   bool `json:"amrap,omitempty"`
	RepsMax int  `json:"repsMax,omitempty"`
}

// Prescription is a fixed percentage-of-max target. Prescription work
// carries no replay state.
type Prescription struct {
	Percent float64 `json:"percent"`
	Reps    int     `json:"reps"`
	Sets    int     `json:"sets"`
}

// Roles a slot can play within a day.
const (
	RolePrimary   = "primary"
	RoleSecondary = "secondary"
	RoleAccessory = "accessory"
)

// Slot places one exercise in a day together with its progression contract.
// A slot is either progressive (stages plus outcome rules drive its weight)
// or a prescription slot (percentages of a configured max, stateless).
type Slot struct {
	ID         string  `json:"id"`
	ExerciseID string  `json:"exerciseId"`
	Tier       string  `json:"tier"`
	Stages     []Stage `json:"stages,omitempty"`

	OnSuccess           Rule `json:"onSuccess,omitempty"`
	OnFinalStageSuccess Rule `json:"onFinalStageSuccess,omitempty"`
	OnUndefined         Rule `json:"onUndefined,omitempty"`
	OnMidStageFail      Rule `json:"onMidStageFail,omitempty"`
	OnFinalStageFail    Rule `json:"onFinalStageFail,omitempty"`

	StartWeightKey        string  `json:"startWeightKey,omitempty"`
	StartWeightMultiplier float64 `json:"startWeightMultiplier,omitempty"`
	StartWeightOffset     float64 `json:"startWeightOffset,omitempty"`
	TrainingMaxKey        string  `json:"trainingMaxKey,omitempty"`
	TMPercent             float64 `json:"tmPercent,omitempty"`

	Role  string `json:"role,omitempty"`
	Notes string `json:"notes,omitempty"`

	Prescriptions []Prescription `json:"prescriptions,omitempty"`
	PercentOf     string         `json:"percentOf,omitempty"`
	IsGPP         bool           `json:"isGpp,omitempty"`
	ComplexReps   bool           `json:"complexReps,omitempty"`
}

// IsPrescription reports whether the slot is driven by percentage
// prescriptions instead of the stage ladder.
func (s *Slot) IsPrescription() bool {
	return len(s.Prescriptions) > 0
}

// EffectiveRole returns the explicit role when set, otherwise one inferred
// from the tier label. Note that legacy plans label their third tier t3 but
// still present it as a primary movement.
func (s *Slot) EffectiveRole() string {
	if s.Role != "" {
		return s.Role
	}
	switch s.Tier {
	case "t1":
		return RolePrimary
	case "t2":
		return RoleSecondary
	case "t3":
		return RolePrimary
	}
	return ""
}

type slotWire struct {
	ID         string  `json:"id"`
	ExerciseID string  `json:"exerciseId"`
	Tier       string  `json:"tier"`
	Stages     []Stage `json:"stages"`

	OnSuccess           json.RawMessage `json:"onSuccess"`
	OnFinalStageSuccess json.RawMessage `json:"onFinalStageSuccess"`
	OnUndefined         json.RawMessage `json:"onUndefined"`
	OnMidStageFail      json.RawMessage `json:"onMidStageFail"`
	OnFinalStageFail    json.RawMessage `json:"onFinalStageFail"`

	StartWeightKey        string  `json:"startWeightKey"`
	StartWeightMultiplier float64 `json:"startWeightMultiplier"`
	StartWeightOffset     float64 `json:"startWeightOffset"`
	TrainingMaxKey        string  `json:"trainingMaxKey"`
	TMPercent             float64 `json:"tmPercent"`

	Role  string `json:"role"`
	Notes string `json:"notes"`

	Prescriptions []Prescription `json:"prescriptions"`
	PercentOf     string         `json:"percentOf"`
	IsGPP         bool           `json:"isGpp"`
	ComplexReps   bool           `json:"complexReps"`
}

// UnmarshalJSON decodes a slot strictly: unknown fields at any level are
// rejected, and each bound rule must match exactly one known rule shape.
func (s *Slot) UnmarshalJSON(data []byte) error {
	var wire slotWire
	if err := strictDecode(data, &wire); err != nil {
		return err
	}

	*s = Slot{
		ID:                    wire.ID,
		ExerciseID:            wire.ExerciseID,
		Tier:                  wire.Tier,
		Stages:                wire.Stages,
		StartWeightKey:        wire.StartWeightKey,
		StartWeightMultiplier: wire.StartWeightMultiplier,
		StartWeightOffset:     wire.StartWeightOffset,
		TrainingMaxKey:        wire.TrainingMaxKey,
		TMPercent:             wire.TMPercent,
		Role:                  wire.Role,
		Notes:                 wire.Notes,
		Prescriptions:         wire.Prescriptions,
		PercentOf:             wire.PercentOf,
		IsGPP:                 wire.IsGPP,
		ComplexReps:           wire.ComplexReps,
	}

	bindings := []struct {
		name string
		raw  json.RawMessage
		dst  *Rule
	}{
		{"onSuccess", wire.OnSuccess, &s.OnSuccess},
		{"onFinalStageSuccess", wire.OnFinalStageSuccess, &s.OnFinalStageSuccess},
		{"onUndefined", wire.OnUndefined, &s.OnUndefined},
		{"onMidStageFail", wire.OnMidStageFail, &s.OnMidStageFail},
		{"onFinalStageFail", wire.OnFinalStageFail, &s.OnFinalStageFail},
	}
	for _, b := range bindings {
		if len(b.raw) == 0 || string(b.raw) == "null" {
			continue
		}
		rule, err := DecodeRule(b.raw)
		if err != nil {
			return fmt.Errorf("slot %s: %s: %w", s.ID, b.name, err)
		}
		*b.dst = rule
	}
	return nil
}

// DecodeDefinition parses one program definition document. Unknown fields
// anywhere in the document are rejected.
func DecodeDefinition(r io.Reader) (*Definition, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var def Definition
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("decode program definition: %w", err)
	}
	return &def, nil
}

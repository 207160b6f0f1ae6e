package progression

// ResolvedPrescription is one prescription entry with its weight resolved
// against the configured reference max and rounding step.
type ResolvedPrescription struct {
	Percent float64 `json:"percent"`
	Reps    int     `json:"reps"`
	Sets    int     `json:"sets"`
	Weight  float64 `json:"weight"`
}

// SlotRow is the resolved view of one slot on one workout: what to lift,
// where the slot's ladder stands, and what was logged for it.
type SlotRow struct {
	SlotID       string  `json:"slotId"`
	ExerciseID   string  `json:"exerciseId"`
	ExerciseName string  `json:"exerciseName"`
	Tier         string  `json:"tier"`
	Role         string  `json:"role,omitempty"`
	Weight       float64 `json:"weight"`
	Stage        int     `json:"stage"`
	Sets         int     `json:"sets"`
	Reps         int     `json:"reps"`
	RepsMax      int     `json:"repsMax,omitempty"`
	IsAmrap      bool    `json:"isAmrap,omitempty"`
	Notes        string  `json:"notes,omitempty"`

	Result    Outcome `json:"result,omitempty"`
	AmrapReps *int    `json:"amrapReps,omitempty"`
	RPE       *int    `json:"rpe,omitempty"`

	IsChanged bool `json:"isChanged"`
	IsDeload  bool `json:"isDeload"`

	Prescriptions []ResolvedPrescription `json:"prescriptions,omitempty"`
	IsGPP         bool                   `json:"isGpp,omitempty"`
	ComplexReps   bool                   `json:"complexReps,omitempty"`
}

// WorkoutRow is one computed workout occurrence. IsChanged rolls up the
// per-slot flags.
type WorkoutRow struct {
	Index     int       `json:"index"`
	DayName   string    `json:"dayName"`
	Slots     []SlotRow `json:"slots"`
	IsChanged bool      `json:"isChanged"`
}

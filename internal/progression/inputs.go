package progression

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// KeyRounding is the config key holding the plate rounding step used to
	// resolve percentage prescriptions.
	KeyRounding = "rounding"

	// DefaultRoundingStep applies when no rounding step is configured.
	DefaultRoundingStep = 2.5
)

// Outcome is the recorded result of one slot within one workout.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFail    Outcome = "fail"
)

func (o Outcome) Valid() bool {
	return o == OutcomeSuccess || o == OutcomeFail
}

// SlotResult is what the lifter logged for a single slot: the outcome plus
// an optional AMRAP rep count and RPE.
type SlotResult struct {
	Result    Outcome `json:"result,omitempty"`
	AmrapReps *int    `json:"amrapReps,omitempty"`
	RPE       *int    `json:"rpe,omitempty"`
}

// WorkoutResults maps slot id to the logged result within one workout.
type WorkoutResults map[string]SlotResult

// Results is the sparse history of logged outcomes, keyed by workout index
// rendered as a string. A missing entry at any level is an implicit pass.
type Results map[string]WorkoutResults

// Config holds the per-user program inputs: starting weights, reference
// maxes, the rounding step. Values stay strings and are parsed on access, so
// a missing or malformed entry reads as zero instead of failing a replay.
type Config map[string]string

// UnmarshalJSON accepts both string and bare numeric values, so documents
// like {"squat": 100, "bench": "72.5"} both load.
func (c *Config) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Config, len(raw))
	for key, val := range raw {
		switch v := val.(type) {
		case string:
			out[key] = v
		case float64:
			out[key] = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			out[key] = fmt.Sprint(v)
		}
	}
	*c = out
	return nil
}

// Lookup parses the value under key as a number. The boolean reports whether
// the key exists and holds a finite numeric value.
func (c Config) Lookup(key string) (float64, bool) {
	raw, ok := c[key]
	if !ok {
		return 0, false
	}
	val, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(val) || math.IsInf(val, 0) {
		return 0, false
	}
	return val, true
}

// Weight returns the numeric value under key, or 0 when absent or malformed.
func (c Config) Weight(key string) float64 {
	val, _ := c.Lookup(key)
	return val
}

// RoundingStep returns the configured plate rounding step, or the default
// when the key is absent or not numeric.
func (c Config) RoundingStep() float64 {
	if step, ok := c.Lookup(KeyRounding); ok {
		return step
	}
	return DefaultRoundingStep
}

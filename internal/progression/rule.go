package progression

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Wire tags for the progression rule set.
const (
	RuleAddWeight             = "add_weight"
	RuleAdvanceStage          = "advance_stage"
	RuleAdvanceStageAddWeight = "advance_stage_add_weight"
	RuleDeloadPercent         = "deload_percent"
	RuleAddWeightResetStage   = "add_weight_reset_stage"
	RuleNoChange              = "no_change"
	RuleUpdateTM              = "update_tm"
)

// Rule is one of the closed set of state transitions a slot binds to an
// outcome. The concrete types in this file are the only implementations;
// the replay dispatches on them exhaustively.
type Rule interface {
	Tag() string
	isRule()
}

// AddWeight bumps the slot weight by the exercise increment.
type AddWeight struct{}

// AdvanceStage moves the slot to the next stage, capped at the last one.
type AdvanceStage struct{}

// AdvanceStageAddWeight advances the stage and bumps the weight in one go.
type AdvanceStageAddWeight struct{}

// DeloadPercent cuts the slot weight by the given percentage and resets the
// stage ladder.
type DeloadPercent struct {
	Percent float64 `json:"percent"`
}

// AddWeightResetStage adds a fixed amount to the slot weight and resets the
// stage ladder.
type AddWeightResetStage struct {
	Amount float64 `json:"amount"`
}

// NoChange leaves the slot state as it is.
type NoChange struct{}

// UpdateTM raises the slot's shared training max by Amount when the reported
// AMRAP rep count reaches MinAmrapReps. It never touches the slot's own
// weight or stage.
type UpdateTM struct {
	Amount       float64 `json:"amount"`
	MinAmrapReps int     `json:"minAmrapReps"`
}

func (AddWeight) Tag() string             { return RuleAddWeight }
func (AdvanceStage) Tag() string          { return RuleAdvanceStage }
func (AdvanceStageAddWeight) Tag() string { return RuleAdvanceStageAddWeight }
func (DeloadPercent) Tag() string         { return RuleDeloadPercent }
func (AddWeightResetStage) Tag() string   { return RuleAddWeightResetStage }
func (NoChange) Tag() string              { return RuleNoChange }
func (UpdateTM) Tag() string              { return RuleUpdateTM }

func (AddWeight) isRule()             {}
func (AdvanceStage) isRule()          {}
func (AdvanceStageAddWeight) isRule() {}
func (DeloadPercent) isRule()         {}
func (AddWeightResetStage) isRule()   {}
func (NoChange) isRule()              {}
func (UpdateTM) isRule()              {}

type taggedRule struct {
	Type string `json:"type"`
}

func (r AddWeight) MarshalJSON() ([]byte, error) {
	return json.Marshal(taggedRule{r.Tag()})
}

func (r AdvanceStage) MarshalJSON() ([]byte, error) {
	return json.Marshal(taggedRule{r.Tag()})
}

func (r AdvanceStageAddWeight) MarshalJSON() ([]byte, error) {
	return json.Marshal(taggedRule{r.Tag()})
}

func (r NoChange) MarshalJSON() ([]byte, error) {
	return json.Marshal(taggedRule{r.Tag()})
}

func (r DeloadPercent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string  `json:"type"`
		Percent float64 `json:"percent"`
	}{r.Tag(), r.Percent})
}

func (r AddWeightResetStage) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string  `json:"type"`
		Amount float64 `json:"amount"`
	}{r.Tag(), r.Amount})
}

func (r UpdateTM) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type         string  `json:"type"`
		Amount       float64 `json:"amount"`
		MinAmrapReps int     `json:"minAmrapReps"`
	}{r.Tag(), r.Amount, r.MinAmrapReps})
}

// DecodeRule parses a single progression rule object. Unknown type tags and
// stray fields are both rejected.
func DecodeRule(raw []byte) (Rule, error) {
	var head taggedRule
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode rule: %w", err)
	}

	switch head.Type {
	case RuleAddWeight:
		var wire taggedRule
		if err := strictDecode(raw, &wire); err != nil {
			return nil, fmt.Errorf("decode %s: %w", head.Type, err)
		}
		return AddWeight{}, nil
	case RuleAdvanceStage:
		var wire taggedRule
		if err := strictDecode(raw, &wire); err != nil {
			return nil, fmt.Errorf("decode %s: %w", head.Type, err)
		}
		return AdvanceStage{}, nil
	case RuleAdvanceStageAddWeight:
		var wire taggedRule
		if err := strictDecode(raw, &wire); err != nil {
			return nil, fmt.Errorf("decode %s: %w", head.Type, err)
		}
		return AdvanceStageAddWeight{}, nil
	case RuleNoChange:
		var wire taggedRule
		if err := strictDecode(raw, &wire); err != nil {
			return nil, fmt.Errorf("decode %s: %w", head.Type, err)
		}
		return NoChange{}, nil
	case RuleDeloadPercent:
		var wire struct {
			Type    string  `json:"type"`
			Percent float64 `json:"percent"`
		}
		if err := strictDecode(raw, &wire); err != nil {
			return nil, fmt.Errorf("decode %s: %w", head.Type, err)
		}
		return DeloadPercent{Percent: wire.Percent}, nil
	case RuleAddWeightResetStage:
		var wire struct {
			Type   string  `json:"type"`
			Amount float64 `json:"amount"`
		}
		if err := strictDecode(raw, &wire); err != nil {
			return nil, fmt.Errorf("decode %s: %w", head.Type, err)
		}
		return AddWeightResetStage{Amount: wire.Amount}, nil
	case RuleUpdateTM:
		var wire struct {
			Type         string  `json:"type"`
			Amount       float64 `json:"amount"`
			MinAmrapReps int     `json:"minAmrapReps"`
		}
		if err := strictDecode(raw, &wire); err != nil {
			return nil, fmt.Errorf("decode %s: %w", head.Type, err)
		}
		return UpdateTM{Amount: wire.Amount, MinAmrapReps: wire.MinAmrapReps}, nil
	default:
		return nil, fmt.Errorf("unknown progression rule type %q", head.Type)
	}
}

func strictDecode(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

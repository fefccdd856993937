package tools

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kaptinlin/jsonrepair"
)

// wireStep is the planner's JSON shape for one step.
type wireStep struct {
	Tool        string          `json:"tool"`
	Args        json.RawMessage `json:"args,omitempty"`
	HoldSeconds float64         `json:"hold_seconds,omitempty"`
}

type wirePlan struct {
	Steps []wireStep `json:"steps"`
}

// DecodePlan parses planner output into a Plan. Malformed JSON is first run
// through jsonrepair, which covers the usual model mistakes (code fences,
// trailing commas); if it still does not decode the error is returned and
// the caller abandons the interaction.
func DecodePlan(raw string) (*Plan, error) {
	var wire wirePlan
	if err := unmarshalRepaired(raw, &wire); err != nil {
		return nil, fmt.Errorf("tools: decode plan: %w", err)
	}

	plan := &Plan{Steps: make([]Step, 0, len(wire.Steps))}
	for i, ws := range wire.Steps {
		action, err := decodeAction(ws)
		if err != nil {
			return nil, fmt.Errorf("tools: step %d: %w", i, err)
		}
		hold := time.Duration(ws.HoldSeconds * float64(time.Second))
		if hold < 0 {
			hold = 0
		}
		plan.Steps = append(plan.Steps, Step{Action: action, Hold: hold})
	}
	return plan, nil
}

func decodeAction(ws wireStep) (Action, error) {
	switch ws.Tool {
	case "drive":
		var a DriveAction
		if err := unmarshalArgs(ws.Args, &a); err != nil {
			return nil, fmt.Errorf("drive args: %w", err)
		}
		return a, nil
	case "stop":
		return StopAction{}, nil
	case "set_emotion":
		var a SetEmotionAction
		if err := unmarshalArgs(ws.Args, &a); err != nil {
			return nil, fmt.Errorf("set_emotion args: %w", err)
		}
		return a, nil
	case "get_sensors":
		return GetSensorsAction{}, nil
	}
	return UnknownAction{Tool: ws.Tool, Args: ws.Args}, nil
}

func unmarshalArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

// unmarshalRepaired decodes s into v, repairing the JSON on syntax errors
// before retrying once.
func unmarshalRepaired(s string, v any) error {
	err := json.Unmarshal([]byte(s), v)
	if err == nil {
		return nil
	}
	fixed, rerr := jsonrepair.JSONRepair(s)
	if rerr != nil {
		return err
	}
	return json.Unmarshal([]byte(fixed), v)
}

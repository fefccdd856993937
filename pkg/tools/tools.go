// Package tools defines the closed set of physical actions the planner may
// request and executes plans built from them.
//
// The action vocabulary is fixed: drive, stop, set_emotion, get_sensors.
// Anything else the planner invents decodes to UnknownAction, which the
// executor logs and skips instead of failing the interaction.
package tools

import (
	"encoding/json"
	"time"
)

// Action is one physical operation. The set of implementations is closed;
// unknown planner output is represented by UnknownAction.
type Action interface {
	isAction()
}

// DriveAction sets wheel power, normalized to [-1, 1].
type DriveAction struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

// StopAction halts both wheels.
type StopAction struct{}

// SetEmotionAction switches the face display.
type SetEmotionAction struct {
	Emotion string `json:"emotion"`
}

// GetSensorsAction samples the telemetry snapshot.
type GetSensorsAction struct{}

// UnknownAction preserves a tool name the vocabulary does not contain.
type UnknownAction struct {
	Tool string
	Args json.RawMessage
}

func (DriveAction) isAction()      {}
func (StopAction) isAction()       {}
func (SetEmotionAction) isAction() {}
func (GetSensorsAction) isAction() {}
func (UnknownAction) isAction()    {}

// Step is one plan entry: the action plus how long to hold it before the
// next step runs.
type Step struct {
	Action Action
	Hold   time.Duration
}

// Plan is an ordered list of steps.
type Plan struct {
	Steps []Step
}

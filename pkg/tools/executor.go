package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chaosbotics/chaos/pkg/canbus"
	"github.com/chaosbotics/chaos/pkg/telemetry"
)

// Executor runs plans against the actuator bus and the telemetry store.
type Executor struct {
	bus     canbus.Bus
	sensors *telemetry.Store
	log     *slog.Logger
}

// NewExecutor creates an executor. sensors may be nil if get_sensors is not
// in the planner's vocabulary for this deployment.
func NewExecutor(bus canbus.Bus, sensors *telemetry.Store, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{bus: bus, sensors: sensors, log: log.With("component", "tools")}
}

// Execute runs the plan's steps in order, holding each for its configured
// duration, and returns a one-line summary for the voice response. Steps
// that cannot run (unknown tool, unknown emotion, bus error) are logged and
// skipped; only ctx cancelation aborts the plan. The wheels are always
// stopped on the way out.
func (e *Executor) Execute(ctx context.Context, plan *Plan) (string, error) {
	if plan == nil || len(plan.Steps) == 0 {
		return "No actions to execute.", nil
	}
	defer e.stopWheels()

	completed := 0
	for i, step := range plan.Steps {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := e.run(ctx, step.Action); err != nil {
			e.log.Warn("step skipped", "step", i, "error", err)
			continue
		}
		completed++
		if step.Hold > 0 && !hold(ctx, step.Hold) {
			return "", ctx.Err()
		}
	}
	return fmt.Sprintf("Done - %d steps completed.", completed), nil
}

func (e *Executor) run(ctx context.Context, action Action) error {
	switch a := action.(type) {
	case DriveAction:
		e.log.Info("drive", "left", a.Left, "right", a.Right)
		return e.bus.Drive(ctx, a.Left, a.Right)
	case StopAction:
		e.log.Info("stop")
		return e.bus.Drive(ctx, 0, 0)
	case SetEmotionAction:
		e.log.Info("set emotion", "emotion", a.Emotion)
		return e.bus.SetEmotion(ctx, canbus.Emotion(a.Emotion))
	case GetSensorsAction:
		if e.sensors == nil {
			return fmt.Errorf("tools: no telemetry store attached")
		}
		s := e.sensors.Snapshot()
		e.log.Info("sensors sampled",
			"source", s.Source,
			"odometry_linear", s.Odometry.Linear,
			"odometry_angular", s.Odometry.Angular,
			"rpm_left", s.RPM.Left,
			"rpm_right", s.RPM.Right,
			"lidar_points", len(s.Lidar))
		return nil
	case UnknownAction:
		return fmt.Errorf("tools: unknown tool %q", a.Tool)
	}
	return fmt.Errorf("tools: unhandled action %T", action)
}

// stopWheels is the end-of-plan safety: whatever the plan did, the robot
// does not keep rolling.
func (e *Executor) stopWheels() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := e.bus.Drive(ctx, 0, 0); err != nil {
		e.log.Error("failed to stop wheels after plan", "error", err)
	}
}

// hold waits for d; reports false if ctx ended the wait early.
func hold(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

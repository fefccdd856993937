// Package telemetry maintains the robot's latest sensor snapshot.
//
// A background reader consumes newline-delimited $TAG sentences from the
// chassis microcontroller over a serial port and folds them into a shared
// store. The store holds one immutable snapshot replaced atomically on every
// update, so readers on any goroutine get a consistent view without locks.
//
// When the serial device does not exist the reader degrades permanently to a
// synthetic generator so the rest of the system keeps working on a bench
// without the chassis attached.
package telemetry

import (
	"sync/atomic"
	"time"
)

// Source tells whether a snapshot came from real hardware.
type Source string

const (
	SourceSerial    Source = "serial"
	SourceSynthetic Source = "synthetic"
)

// IMU is one inertial sample: accelerometer in g, gyroscope in deg/s.
type IMU struct {
	AccelX float64 `json:"accel_x"`
	AccelY float64 `json:"accel_y"`
	AccelZ float64 `json:"accel_z"`
	GyroX  float64 `json:"gyro_x"`
	GyroY  float64 `json:"gyro_y"`
	GyroZ  float64 `json:"gyro_z"`
}

// Compass is one magnetometer sample in microtesla.
type Compass struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Odometry is the integrated platform motion: linear velocity in m/s and
// angular velocity in rad/s.
type Odometry struct {
	Linear  float64 `json:"linear"`
	Angular float64 `json:"angular"`
}

// RPM is the current wheel speeds.
type RPM struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

// Snapshot is one consistent view of all sensors. Snapshots are immutable
// once published; the Lidar slice must not be modified by readers.
type Snapshot struct {
	IMU      IMU      `json:"imu"`
	Compass  Compass  `json:"compass"`
	Odometry Odometry `json:"odometry"`
	RPM      RPM      `json:"rpm"`
	// Lidar is the latest ring of range readings in millimeters.
	Lidar []int `json:"lidar,omitempty"`

	Source    Source    `json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store publishes sensor snapshots to any number of readers. All writes must
// come from a single goroutine (the telemetry reader); reads are lock-free.
type Store struct {
	cur atomic.Pointer[Snapshot]
}

// NewStore creates a store holding an empty snapshot.
func NewStore() *Store {
	s := &Store{}
	s.cur.Store(&Snapshot{})
	return s
}

// Snapshot returns the latest published snapshot. The result must be treated
// as read-only.
func (s *Store) Snapshot() *Snapshot {
	return s.cur.Load()
}

// apply copies the current snapshot, lets mut update the copy, stamps it,
// and publishes it. Single writer only.
func (s *Store) apply(src Source, mut func(*Snapshot)) {
	next := *s.cur.Load()
	mut(&next)
	next.Source = src
	next.UpdatedAt = time.Now()
	s.cur.Store(&next)
}

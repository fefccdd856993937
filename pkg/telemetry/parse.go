package telemetry

import (
	"fmt"
	"strconv"
	"strings"
)

// Update is one parsed sensor sentence, applied to a snapshot by the reader.
// The set of implementations is closed.
type Update interface {
	apply(*Snapshot)
}

type imuUpdate IMU
type compassUpdate Compass
type odometryUpdate Odometry
type rpmUpdate RPM
type lidarUpdate []int

func (u imuUpdate) apply(s *Snapshot)      { s.IMU = IMU(u) }
func (u compassUpdate) apply(s *Snapshot)  { s.Compass = Compass(u) }
func (u odometryUpdate) apply(s *Snapshot) { s.Odometry = Odometry(u) }
func (u rpmUpdate) apply(s *Snapshot)      { s.RPM = RPM(u) }
func (u lidarUpdate) apply(s *Snapshot)    { s.Lidar = []int(u) }

// ParseLine parses one $TAG sentence from the chassis. The returned error
// marks a malformed line; the reader discards those without logging since
// partial lines are routine at open time.
//
// Sentences:
//
//	$IMU,ax,ay,az,gx,gy,gz
//	$CMP,x,y,z
//	$ODO,linear,angular
//	$RPM,left,right
//	$LDR,rpm,r0,r1,...   (motor rpm discarded, at least one range)
func ParseLine(line string) (Update, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return nil, fmt.Errorf("telemetry: no sentence tag in %q", line)
	}
	fields := strings.Split(line[1:], ",")
	tag, args := fields[0], fields[1:]

	switch tag {
	case "IMU":
		v, err := parseFloats(args, 6)
		if err != nil {
			return nil, fmt.Errorf("telemetry: $IMU: %w", err)
		}
		return imuUpdate{
			AccelX: v[0], AccelY: v[1], AccelZ: v[2],
			GyroX: v[3], GyroY: v[4], GyroZ: v[5],
		}, nil
	case "CMP":
		v, err := parseFloats(args, 3)
		if err != nil {
			return nil, fmt.Errorf("telemetry: $CMP: %w", err)
		}
		return compassUpdate{X: v[0], Y: v[1], Z: v[2]}, nil
	case "ODO":
		v, err := parseFloats(args, 2)
		if err != nil {
			return nil, fmt.Errorf("telemetry: $ODO: %w", err)
		}
		return odometryUpdate{Linear: v[0], Angular: v[1]}, nil
	case "RPM":
		v, err := parseFloats(args, 2)
		if err != nil {
			return nil, fmt.Errorf("telemetry: $RPM: %w", err)
		}
		return rpmUpdate{Left: v[0], Right: v[1]}, nil
	case "LDR":
		// First field is the scanner's motor rpm, not a range.
		if len(args) < 2 {
			return nil, fmt.Errorf("telemetry: $LDR: %d fields, want rpm plus ranges", len(args))
		}
		ranges := make([]int, len(args)-1)
		for i, a := range args[1:] {
			n, err := strconv.Atoi(strings.TrimSpace(a))
			if err != nil {
				return nil, fmt.Errorf("telemetry: $LDR range %d: %w", i, err)
			}
			ranges[i] = n
		}
		return lidarUpdate(ranges), nil
	}
	return nil, fmt.Errorf("telemetry: unknown sentence tag %q", tag)
}

func parseFloats(args []string, want int) ([]float64, error) {
	if len(args) != want {
		return nil, fmt.Errorf("%d fields, want %d", len(args), want)
	}
	v := make([]float64, want)
	for i, a := range args {
		f, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		v[i] = f
	}
	return v, nil
}

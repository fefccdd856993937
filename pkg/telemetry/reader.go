package telemetry

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"go.bug.st/serial"
)

// State is the reader's connection state.
type State int32

const (
	// Connecting is the initial state before the first dial attempt.
	Connecting State = iota
	// Connected means sentences are flowing from the serial device.
	Connected
	// RetryingTransient means the last attempt failed recoverably; the
	// reader redials after a fixed backoff.
	RetryingTransient
	// PermanentFallback means the device does not exist. The reader serves
	// synthetic data and never dials again.
	PermanentFallback
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case RetryingTransient:
		return "retrying"
	case PermanentFallback:
		return "fallback"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// ErrDeviceAbsent marks a dial failure meaning the device is not present at
// all, as opposed to present but momentarily unusable.
var ErrDeviceAbsent = errors.New("telemetry: serial device absent")

const (
	defaultBaud     = 115200
	defaultBackoff  = 5 * time.Second
	defaultInterval = 100 * time.Millisecond
)

// Config describes the telemetry endpoint.
type Config struct {
	// Port is the serial device path, e.g. /dev/ttyUSB0.
	Port string
	// Baud is the line rate. Defaults to 115200.
	Baud int
	// ForceStub skips the hardware entirely and starts in PermanentFallback.
	ForceStub bool
	// Backoff is the fixed delay between transient reconnect attempts.
	// Defaults to 5s.
	Backoff time.Duration
	// SyntheticInterval is the fallback update period. Defaults to 100ms.
	SyntheticInterval time.Duration
}

func (c *Config) backoff() time.Duration {
	if c.Backoff > 0 {
		return c.Backoff
	}
	return defaultBackoff
}

func (c *Config) syntheticInterval() time.Duration {
	if c.SyntheticInterval > 0 {
		return c.SyntheticInterval
	}
	return defaultInterval
}

// dialFunc opens the telemetry byte stream. Errors wrapping ErrDeviceAbsent
// put the reader into permanent fallback; any other error is transient.
type dialFunc func() (io.ReadCloser, error)

// Reader drives the serial connection state machine and publishes parsed
// snapshots into a Store.
type Reader struct {
	cfg   Config
	store *Store
	dial  dialFunc
	log   *slog.Logger

	state atomic.Int32
}

// NewReader creates a reader over the configured serial port.
func NewReader(cfg Config, store *Store, log *slog.Logger) *Reader {
	r := newReader(cfg, store, log)
	r.dial = func() (io.ReadCloser, error) { return dialSerial(r.cfg) }
	return r
}

func newReader(cfg Config, store *Store, log *slog.Logger) *Reader {
	if log == nil {
		log = slog.Default()
	}
	return &Reader{
		cfg:   cfg,
		store: store,
		log:   log.With("component", "telemetry"),
	}
}

// State returns the current connection state.
func (r *Reader) State() State {
	return State(r.state.Load())
}

// Run drives the state machine until ctx is done. It never returns an error
// other than ctx.Err(): every hardware condition degrades to retry or
// fallback instead of failing the caller.
func (r *Reader) Run(ctx context.Context) error {
	if r.cfg.ForceStub {
		r.log.Info("hardware stub forced, serving synthetic telemetry")
		r.state.Store(int32(PermanentFallback))
		return r.runSynthetic(ctx)
	}

	for {
		port, err := r.dial()
		if err != nil {
			if errors.Is(err, ErrDeviceAbsent) {
				r.log.Warn("device absent, degrading to synthetic telemetry",
					"port", r.cfg.Port, "error", err)
				r.state.Store(int32(PermanentFallback))
				return r.runSynthetic(ctx)
			}
			r.state.Store(int32(RetryingTransient))
			r.log.Warn("open failed, retrying", "port", r.cfg.Port,
				"backoff", r.cfg.backoff(), "error", err)
			if !sleep(ctx, r.cfg.backoff()) {
				return ctx.Err()
			}
			continue
		}

		r.state.Store(int32(Connected))
		r.log.Info("connected", "port", r.cfg.Port)
		err = r.consume(ctx, port)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.state.Store(int32(RetryingTransient))
		r.log.Warn("connection lost, retrying", "backoff", r.cfg.backoff(), "error", err)
		if !sleep(ctx, r.cfg.backoff()) {
			return ctx.Err()
		}
	}
}

// consume reads sentences until the stream fails or ctx is done. Malformed
// lines are discarded; partial lines are routine right after open.
func (r *Reader) consume(ctx context.Context, port io.ReadCloser) error {
	// A blocked Read does not observe ctx; closing the port unblocks it.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			port.Close()
		case <-done:
			port.Close()
		}
	}()

	sc := bufio.NewScanner(port)
	for sc.Scan() {
		update, err := ParseLine(sc.Text())
		if err != nil {
			continue
		}
		r.store.apply(SourceSerial, update.apply)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return io.EOF
}

// dialSerial opens the configured port, classifying "not there" as absent.
func dialSerial(cfg Config) (io.ReadCloser, error) {
	ports, err := serial.GetPortsList()
	if err == nil && !slices.Contains(ports, cfg.Port) {
		return nil, fmt.Errorf("%w: %s not in port list", ErrDeviceAbsent, cfg.Port)
	}

	baud := cfg.Baud
	if baud <= 0 {
		baud = defaultBaud
	}
	port, err := serial.Open(cfg.Port, &serial.Mode{BaudRate: baud})
	if err != nil {
		if isAbsentError(err) {
			return nil, fmt.Errorf("%w: %v", ErrDeviceAbsent, err)
		}
		return nil, fmt.Errorf("telemetry: open %s: %w", cfg.Port, err)
	}
	return port, nil
}

func isAbsentError(err error) bool {
	var pe *serial.PortError
	if errors.As(err, &pe) && pe.Code() == serial.PortNotFound {
		return true
	}
	return strings.Contains(err.Error(), "no such file or directory")
}

// sleep waits for d or until ctx is done; reports whether the full wait
// elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

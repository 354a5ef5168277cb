// Package input provides the local tilt source. Raw readings are fed from
// any goroutine; a background loop smooths them and publishes the latest
// value, which the game tick reads without blocking.
package input

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/clash/internal/core"
)

// ErrAlreadyStarted is returned by Start on a running sensor.
var ErrAlreadyStarted = errors.New("input: sensor already started")

// Config tunes the sensor loop.
type Config struct {
	// Rate is the sampling period of the background loop.
	Rate time.Duration
	// Decay scales the held reading every period so the tilt returns to
	// neutral when no new readings arrive. 1 keeps it forever.
	Decay float64
	// Buffer is the size of the raw reading channel.
	Buffer int
	Logger *log.Logger
}

// DefaultConfig returns settings suited to keyboard tilt.
func DefaultConfig() Config {
	return Config{
		Rate:   10 * time.Millisecond,
		Decay:  0.9,
		Buffer: 16,
	}
}

// Sensor is a background tilt producer with calibration.
type Sensor struct {
	cfg    Config
	logger *log.Logger
	raw    chan core.Vector

	mu          sync.Mutex
	latest      core.Vector
	held        core.Vector
	offset      core.Vector
	calibrating bool
	calSum      core.Vector
	calCount    int

	running bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewSensor creates a stopped sensor.
func NewSensor(cfg Config) *Sensor {
	def := DefaultConfig()
	if cfg.Rate <= 0 {
		cfg.Rate = def.Rate
	}
	if cfg.Decay <= 0 || cfg.Decay > 1 {
		cfg.Decay = def.Decay
	}
	if cfg.Buffer < 1 {
		cfg.Buffer = def.Buffer
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	return &Sensor{
		cfg:    cfg,
		logger: cfg.Logger,
		raw:    make(chan core.Vector, cfg.Buffer),
	}
}

// Feed submits a raw reading. It never blocks; when the buffer is full the
// reading is dropped, since a newer one will follow.
func (s *Sensor) Feed(v core.Vector) {
	select {
	case s.raw <- v:
	default:
	}
}

// Sample returns the latest calibrated reading, clamped to unit length.
func (s *Sensor) Sample() core.Vector {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Calibrate starts collecting the neutral position. Readings are averaged
// until StopCalibrate.
func (s *Sensor) Calibrate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calibrating = true
	s.calSum = core.Vector{}
	s.calCount = 0
}

// StopCalibrate ends calibration and uses the averaged reading as the new
// neutral position. Without collected readings the offset is unchanged.
func (s *Sensor) StopCalibrate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.calibrating {
		return
	}
	s.calibrating = false
	if s.calCount > 0 {
		s.offset = s.calSum.Scale(1 / float64(s.calCount))
		s.logger.Debug("input calibrated", "x", s.offset.X, "y", s.offset.Y, "samples", s.calCount)
	}
	s.publishLocked()
}

// Offset returns the current neutral position.
func (s *Sensor) Offset() core.Vector {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset
}

// Start launches the background loop.
func (s *Sensor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyStarted
	}
	s.running = true
	s.done = make(chan struct{})

	s.wg.Add(1)
	go s.loop(s.done)
	return nil
}

// Stop halts the background loop and waits for it to exit. Stopping a
// stopped sensor is a no-op.
func (s *Sensor) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *Sensor) loop(done <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Rate)
	defer ticker.Stop()

	for {
		select {
		case v := <-s.raw:
			s.reading(v)
		case <-ticker.C:
			s.tick()
		case <-done:
			return
		}
	}
}

// reading replaces the held value with a fresh raw reading.
func (s *Sensor) reading(v core.Vector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.held = v
	s.publishLocked()
}

// tick decays the held value and feeds calibration.
func (s *Sensor) tick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calibrating {
		s.calSum = s.calSum.Add(s.held)
		s.calCount++
	}
	s.held = s.held.Scale(s.cfg.Decay)
	s.publishLocked()
}

func (s *Sensor) publishLocked() {
	s.latest = s.held.Sub(s.offset).ClampLen(1)
}

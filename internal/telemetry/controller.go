package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/depth.survey/internal/config"
	"github.com/banshee-data/depth.survey/internal/timeutil"
)

// State is the controller's mode.
type State string

const (
	StateIdle       State = "idle"
	StateLogging    State = "logging"
	StateSimulating State = "simulating"
)

// ErrBusy is returned when a session is started while another is running.
var ErrBusy = errors.New("a session is already running")

// Session describes one logging or simulation run.
type Session struct {
	ID        string     `json:"id"`
	Mode      State      `json:"mode"`
	Files     []string   `json:"files"`
	Rows      int        `json:"rows"`
	Errors    int        `json:"errors"`
	StartedAt time.Time  `json:"started_at"`
	StoppedAt *time.Time `json:"stopped_at,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// SessionRecorder persists session lifecycle events.
type SessionRecorder interface {
	SessionStarted(ctx context.Context, s Session) error
	SessionStopped(ctx context.Context, s Session) error
}

// Dialer opens the live vehicle source for a logging session.
type Dialer func(ctx context.Context) (Source, error)

// ControllerConfig tunes the polling loop.
type ControllerConfig struct {
	RateHz           float64
	ProgressInterval time.Duration
}

// ControllerConfigFrom reads the polling rate from cfg.
func ControllerConfigFrom(cfg *config.SurveyConfig) ControllerConfig {
	return ControllerConfig{RateHz: cfg.GetLogRateHz(), ProgressInterval: 5 * time.Second}
}

// Status is a snapshot of the controller.
type Status struct {
	State   State    `json:"state"`
	Session *Session `json:"session,omitempty"`
	Last    *Session `json:"last,omitempty"`
}

// Controller runs at most one session at a time. A single goroutine owns
// the source and the recorder for the lifetime of the session; the mutex
// only guards the published snapshot.
type Controller struct {
	store    *LogStore
	dial     Dialer
	clock    timeutil.Clock
	sessions SessionRecorder
	cfg      ControllerConfig

	mu      sync.RWMutex
	state   State
	current *Session
	last    *Session
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewController wires a controller. sessions may be nil.
func NewController(store *LogStore, dial Dialer, clock timeutil.Clock, sessions SessionRecorder, cfg ControllerConfig) *Controller {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	if cfg.RateHz <= 0 {
		cfg.RateHz = 2
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = 5 * time.Second
	}
	return &Controller{store: store, dial: dial, clock: clock, sessions: sessions, cfg: cfg, state: StateIdle}
}

// Store returns the log store the controller writes to.
func (c *Controller) Store() *LogStore { return c.store }

// StartLogging dials the vehicle and begins recording.
func (c *Controller) StartLogging(ctx context.Context) (Session, error) {
	if err := c.checkIdle(); err != nil {
		return Session{}, err
	}
	if c.dial == nil {
		return Session{}, errors.New("no vehicle source configured")
	}
	src, err := c.dial(ctx)
	if err != nil {
		return Session{}, fmt.Errorf("connect to vehicle: %w", err)
	}
	return c.start(StateLogging, src)
}

// StartSimulation replays the named log from the store as if it came from
// the vehicle, recording a fresh log alongside.
func (c *Controller) StartSimulation(name string) (Session, error) {
	if err := c.checkIdle(); err != nil {
		return Session{}, err
	}
	path, err := c.store.Resolve(name)
	if err != nil {
		return Session{}, err
	}
	src, err := NewReplaySource(path, c.clock)
	if err != nil {
		return Session{}, err
	}
	return c.start(StateSimulating, src)
}

func (c *Controller) checkIdle() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateIdle {
		return fmt.Errorf("%w (%s)", ErrBusy, c.state)
	}
	return nil
}

func (c *Controller) start(mode State, src Source) (Session, error) {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return Session{}, fmt.Errorf("%w (%s)", ErrBusy, c.state)
	}
	ctx, cancel := context.WithCancel(context.Background())
	sess := &Session{ID: uuid.NewString(), Mode: mode, StartedAt: c.clock.Now().UTC()}
	c.state, c.current, c.cancel, c.done = mode, sess, cancel, make(chan struct{})
	snapshot := *sess
	done := c.done
	c.mu.Unlock()

	if c.sessions != nil {
		if err := c.sessions.SessionStarted(ctx, snapshot); err != nil {
			opsf("record session start %s: %v", sess.ID, err)
		}
	}
	opsf("%s session %s started at %.1f Hz", mode, sess.ID, c.cfg.RateHz)

	go c.run(ctx, src, done)
	return snapshot, nil
}

// Stop ends the running session and waits for the loop to exit. It is a
// no-op when idle and returns the final session, if any.
func (c *Controller) Stop() *Session {
	c.mu.RLock()
	cancel, done := c.cancel, c.done
	c.mu.RUnlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.last == nil {
		return nil
	}
	last := *c.last
	return &last
}

// Status returns a snapshot of the controller state.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st := Status{State: c.state}
	if c.current != nil {
		s := *c.current
		s.Files = append([]string(nil), c.current.Files...)
		st.Session = &s
	}
	if c.last != nil {
		s := *c.last
		st.Last = &s
	}
	return st
}

func (c *Controller) run(ctx context.Context, src Source, done chan struct{}) {
	defer close(done)

	rec := c.store.NewRecorder()
	period := time.Duration(float64(time.Second) / c.cfg.RateHz)
	ticker := c.clock.NewTicker(period)
	defer ticker.Stop()

	lastProgress := c.clock.Now()
	var loopErr error

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C():
		}

		s, err := src.Next(ctx)
		switch {
		case errors.Is(err, io.EOF):
			diagf("source exhausted")
			break loop
		case errors.Is(err, context.Canceled):
			break loop
		case err != nil:
			diagf("sample: %v", err)
			c.update(rec, err)
			continue
		}

		if err := rec.Write(s); err != nil {
			opsf("write sample: %v", err)
			loopErr = err
			break loop
		}
		tracef("row %d: %.1fcm at %.7f,%.7f", rec.Rows(), s.DistanceCM, s.Lat, s.Lon)
		c.update(rec, nil)

		if c.clock.Since(lastProgress) >= c.cfg.ProgressInterval {
			lastProgress = c.clock.Now()
			opsf("rows added to log: %d", rec.Rows())
		}
	}

	if err := rec.Close(); err != nil && loopErr == nil {
		loopErr = err
	}
	c.finish(rec, loopErr)
}

func (c *Controller) update(rec *Recorder, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return
	}
	c.current.Rows = rec.Rows()
	c.current.Files = rec.Files()
	if err != nil {
		c.current.Errors++
		c.current.LastError = err.Error()
	}
}

func (c *Controller) finish(rec *Recorder, err error) {
	now := c.clock.Now().UTC()

	c.mu.RLock()
	snapshot := *c.current
	c.mu.RUnlock()
	snapshot.Rows = rec.Rows()
	snapshot.Files = rec.Files()
	snapshot.StoppedAt = &now
	if err != nil {
		snapshot.LastError = err.Error()
	}

	// Persist before going idle so a caller that sees StateIdle also sees
	// the stored session.
	if c.sessions != nil {
		if err := c.sessions.SessionStopped(context.Background(), snapshot); err != nil {
			opsf("record session stop %s: %v", snapshot.ID, err)
		}
	}

	c.mu.Lock()
	last := snapshot
	c.last, c.current = &last, nil
	cancel := c.cancel
	c.state, c.cancel = StateIdle, nil
	c.mu.Unlock()
	cancel()

	opsf("%s session %s stopped after %d rows in %d file(s)", snapshot.Mode, snapshot.ID, snapshot.Rows, len(snapshot.Files))
}

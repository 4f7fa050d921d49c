// Package pipeline synthesises antenna status packets and delivers them to
// the receiving device at a fixed cadence.
//
// A running pipeline consists of two goroutines sharing one bounded queue:
// the generator advances the antenna and pushes packets as long as the queue
// is below its ceiling, the deliverer pops, encodes and sends one packet per
// transmission period. Both poll the queue with a short sleep instead of
// waiting on a signal.
package pipeline

import (
	"sync"
	"time"

	"github.com/LeoCommon/egrim/internal/transport"
	"github.com/LeoCommon/egrim/pkg/log"
	"github.com/LeoCommon/egrim/pkg/packet"
	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// PollInterval is how long a task sleeps before re-checking a full or empty queue
const PollInterval = 50 * time.Microsecond

type State int32

const (
	Idle State = iota
	Running
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	}
	return "unknown"
}

// Config is fixed for the lifetime of a running episode
type Config struct {
	Address       string
	Port          uint16
	QueueCapacity int
	Period        time.Duration
	InitialAngle  float64
	RotationRate  float64 // degrees per second

	// Template supplies the static fields of every generated packet
	Template packet.StatusPacket
}

func (c Config) Endpoint() transport.Endpoint {
	return transport.Endpoint{Address: c.Address, Port: c.Port}
}

type Option func(*Pipeline)

// WithDialer replaces the UDP dialer
func WithDialer(d transport.Dialer) Option {
	return func(p *Pipeline) {
		if d != nil {
			p.dial = d
		}
	}
}

// WithClock replaces the time source used for the time reference and the cadence statistics
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithPollInterval replaces PollInterval
func WithPollInterval(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.poll = d
		}
	}
}

type Pipeline struct {
	dial transport.Dialer
	now  func() time.Time
	poll time.Duration

	// serialises Start and Stop
	lifecycle sync.Mutex
	state     atomic.Int32

	// guards queue and running
	mu      sync.Mutex
	queue   *Queue
	running bool

	stop    chan struct{}
	wg      sync.WaitGroup
	sender  transport.Sender
	cfg     Config
	episode atomic.String
	stats   *counters
	logger  *zap.Logger
}

func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		dial:   transport.UDP,
		now:    time.Now,
		poll:   PollInterval,
		queue:  NewQueue(0),
		stats:  newCounters(),
		logger: log.Named("pipeline"),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Config returns the configuration of the current or last episode
func (p *Pipeline) Config() Config {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()
	return p.cfg
}

// Start opens the transport and spawns the generator and the deliverer
func (p *Pipeline) Start(cfg Config) error {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	if p.State() != Idle {
		return ErrAlreadyRunning
	}

	sender, err := p.dial(cfg.Endpoint())
	if err != nil {
		p.logger.Error("could not open transport", zap.Stringer("endpoint", cfg.Endpoint()), zap.Error(err))
		return &InitializationError{Endpoint: cfg.Endpoint(), Err: err}
	}

	episode := uuid.NewString()
	p.episode.Store(episode)
	p.cfg = cfg
	p.sender = sender
	p.stop = make(chan struct{})

	stats := newCounters()
	p.mu.Lock()
	p.queue = NewQueue(cfg.QueueCapacity)
	p.stats = stats
	p.running = true
	p.mu.Unlock()

	p.state.Store(int32(Running))

	logger := p.logger.With(zap.String("episode", episode))
	p.wg.Add(2)
	go p.generate(cfg, logger)
	go p.deliver(cfg, sender, stats, p.stop, logger)

	logger.Info("pipeline started",
		zap.Stringer("transport", sender),
		zap.Int("queue_capacity", cfg.QueueCapacity),
		zap.Duration("period", cfg.Period),
		zap.Float64("rotation_rate", cfg.RotationRate))

	return nil
}

// Stop clears the continue flag, waits for both tasks, drops the queued
// packets and closes the transport. There is no timeout, a send blocked in
// the kernel delays Stop until it returns.
func (p *Pipeline) Stop() error {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	if p.State() != Running {
		return ErrNotRunning
	}
	p.state.Store(int32(Stopping))

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	close(p.stop)
	p.wg.Wait()

	p.mu.Lock()
	dropped := p.queue.Drain()
	p.mu.Unlock()

	logger := p.logger.With(zap.String("episode", p.episode.Load()))
	if err := p.sender.Close(); err != nil {
		logger.Warn("failed to close transport", zap.Error(err))
	}
	p.sender = nil

	p.state.Store(int32(Idle))

	stats := p.Stats()
	logger.Info("pipeline stopped",
		zap.Int("dropped", dropped),
		zap.Uint64("generated", stats.Generated),
		zap.Uint64("sent", stats.Sent),
		zap.Uint64("failed", stats.Failed))

	return nil
}

// Stats returns the counters of the current or last episode
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	depth := p.queue.Len()
	c := p.stats
	p.mu.Unlock()

	mean, stddev := c.cadence()
	return Stats{
		Episode:        p.episode.Load(),
		State:          p.State(),
		Generated:      c.generated.Load(),
		Sent:           c.sent.Load(),
		Failed:         c.failed.Load(),
		QueueDepth:     depth,
		LastError:      c.lastErr.Load(),
		IntervalMean:   mean,
		IntervalStdDev: stddev,
	}
}

func (p *Pipeline) generate(cfg Config, logger *zap.Logger) {
	defer p.wg.Done()

	// Every episode starts from the template, numbering and position restart
	smpl := cfg.Template
	smpl.PacketLength = packet.Length
	smpl.SetInitialPosition(cfg.InitialAngle)

	period := cfg.Period.Seconds()
	for {
		pushed, ok := p.produce(&smpl, period, cfg.RotationRate)
		if !ok {
			logger.Debug("generator terminated")
			return
		}

		if !pushed {
			time.Sleep(p.poll)
		}
	}
}

// produce pushes the next packet if the queue is below its ceiling.
// ok is false once the pipeline is stopping.
func (p *Pipeline) produce(smpl *packet.StatusPacket, period, rate float64) (pushed bool, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return false, false
	}

	// Soft ceiling: a push happens only while at most capacity-1 packets are
	// queued, so the queue itself can still fill up to capacity. Stalling
	// already at capacity-1 queued packets would deadlock a capacity 1 queue.
	if p.queue.Len() > p.queue.Cap()-1 {
		return false, true
	}

	smpl.AdvancePosition(rate, period)
	smpl.TimeReference = packet.TimeOfDayMillis(p.now())

	if !p.queue.Push(*smpl) {
		return false, true
	}

	smpl.PacketNumber = (smpl.PacketNumber + 1) & 0xFFFFFF
	p.stats.generated.Inc()

	return true, true
}

func (p *Pipeline) deliver(cfg Config, sender transport.Sender, c *counters, stop <-chan struct{}, logger *zap.Logger) {
	defer p.wg.Done()

	var buf [packet.EncodedLength]byte

	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for {
		smpl, popped, ok := p.consume(buf[:])
		if !ok {
			logger.Debug("deliverer terminated")
			return
		}

		if !popped {
			time.Sleep(p.poll)
			continue
		}

		p.send(sender, c, smpl, buf[:packet.WireLength], logger)

		if cfg.Period <= 0 {
			continue
		}

		timer.Reset(cfg.Period)
		select {
		case <-timer.C:
		case <-stop:
			// the flag is already cleared, consume observes it next
		}
	}
}

// consume pops the oldest packet and encodes it into buf while holding the lock
func (p *Pipeline) consume(buf []byte) (smpl packet.StatusPacket, popped bool, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return smpl, false, false
	}

	smpl, popped = p.queue.Pop()
	if popped {
		packet.PutWords(buf, smpl.Encode())
	}

	return smpl, popped, true
}

func (p *Pipeline) send(sender transport.Sender, c *counters, smpl packet.StatusPacket, b []byte, logger *zap.Logger) {
	if err := sender.Send(b); err != nil {
		terr := &TransmissionError{PacketNumber: smpl.PacketNumber, Err: err}
		c.recordFailure(terr)

		if !c.failing {
			logger.Warn("transmission failing, dropping packets", zap.Error(terr))
			c.failing = true
		}
		return
	}

	if c.failing {
		logger.Info("transmission recovered", zap.Uint64("failed", c.failed.Load()))
		c.failing = false
	}

	c.recordSent(p.now())
}

package control

import (
	"errors"
	"sync"

	"github.com/LeoCommon/egrim/internal/pipeline"
	"github.com/LeoCommon/egrim/pkg/log"
	"github.com/LeoCommon/egrim/pkg/packet"
	"go.uber.org/zap"
)

// Controller owns one pipeline and applies operator actions to it
type Controller struct {
	mu       sync.Mutex
	pipeline *pipeline.Pipeline
	template packet.StatusPacket
	params   Params
}

func NewController(p *pipeline.Pipeline, template packet.StatusPacket) *Controller {
	return &Controller{
		pipeline: p,
		template: template,
		params:   DefaultParams(),
	}
}

// Start validates params and starts a new episode with them
func (c *Controller) Start(params Params) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start(params)
}

func (c *Controller) start(params Params) error {
	if err := params.Validate(); err != nil {
		log.Warn("rejected parameters", zap.Error(err))
		return err
	}

	if err := c.pipeline.Start(params.PipelineConfig(c.template)); err != nil {
		return err
	}
	c.params = params

	return nil
}

// Stop ends the running episode
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pipeline.Stop()
}

// Toggle acts like the single Generate/Terminate button: it stops a running
// pipeline and starts an idle one with params. It reports whether the
// pipeline is running afterwards.
func (c *Controller) Toggle(params Params) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pipeline.State() == pipeline.Running {
		return false, c.pipeline.Stop()
	}

	if err := c.start(params); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Controller) Running() bool {
	return c.pipeline.State() == pipeline.Running
}

// Params returns the parameters of the current or last started episode
func (c *Controller) Params() Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params
}

// SetTemplate replaces the packet template, it applies from the next Start
func (c *Controller) SetTemplate(t packet.StatusPacket) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.template = t
}

func (c *Controller) Stats() pipeline.Stats {
	return c.pipeline.Stats()
}

// Close stops the pipeline if it is running
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.pipeline.Stop(); err != nil && !errors.Is(err, pipeline.ErrNotRunning) {
		return err
	}
	return nil
}

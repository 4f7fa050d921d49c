package control

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/LeoCommon/egrim/internal/pipeline"
	"github.com/LeoCommon/egrim/internal/transport"
	"github.com/LeoCommon/egrim/pkg/log"
	"github.com/LeoCommon/egrim/pkg/packet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func SetupControlTest(t *testing.T) func() {
	t.Helper()
	log.Init(true)

	return func() {
		goleak.VerifyNone(t)
	}
}

func newMockController() (*Controller, *transport.MockSender, *transport.MockDialer) {
	sender := transport.NewMockSender(nil)
	dialer := &transport.MockDialer{Sender: sender}
	tmpl := packet.New()
	tmpl.SystemID = 0x0101
	return NewController(pipeline.New(pipeline.WithDialer(dialer.Dial)), tmpl), sender, dialer
}

func fastParams() Params {
	p := DefaultParams()
	p.Period = time.Millisecond
	return p
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t, Params{
		QueueLength:   100,
		Period:        83 * time.Millisecond,
		RotationStart: 0,
		RotationRate:  60,
		Address:       "224.0.0.0",
		Port:          1024,
	}, p)
	assert.NoError(t, p.Validate())
}

func TestValidateRanges(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Params)
		field  string
	}{
		{"queue too small", func(p *Params) { p.QueueLength = 0 }, "queue_length"},
		{"queue too large", func(p *Params) { p.QueueLength = 101 }, "queue_length"},
		{"negative period", func(p *Params) { p.Period = -time.Millisecond }, "period"},
		{"period too long", func(p *Params) { p.Period = 10*time.Second + time.Millisecond }, "period"},
		{"start negative", func(p *Params) { p.RotationStart = -0.5 }, "rotation_start"},
		{"start too large", func(p *Params) { p.RotationStart = 360.5 }, "rotation_start"},
		{"start NaN", func(p *Params) { p.RotationStart = math.NaN() }, "rotation_start"},
		{"rate too large", func(p *Params) { p.RotationRate = 61 }, "rotation_rate"},
		{"rate negative", func(p *Params) { p.RotationRate = -1 }, "rotation_rate"},
		{"port too small", func(p *Params) { p.Port = 1023 }, "port"},
		{"port too large", func(p *Params) { p.Port = 49152 }, "port"},
		{"hostname", func(p *Params) { p.Address = "example.org" }, "address"},
		{"ipv6", func(p *Params) { p.Address = "ff02::1" }, "address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.modify(&p)

			err := p.Validate()
			require.Error(t, err)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
			assert.NotEmpty(t, verr.Error())
		})
	}
}

func TestValidateBounds(t *testing.T) {
	p := Params{
		QueueLength:   1,
		Period:        0,
		RotationStart: 360,
		RotationRate:  0,
		Address:       "127.0.0.1",
		Port:          49151,
	}
	assert.NoError(t, p.Validate())

	p.QueueLength = 100
	p.Period = 10 * time.Second
	p.RotationRate = 60
	p.Port = 1024
	assert.NoError(t, p.Validate())
}

func TestPipelineConfig(t *testing.T) {
	tmpl := packet.New()
	tmpl.AGC = 1

	cfg := fastParams().PipelineConfig(tmpl)
	assert.Equal(t, "224.0.0.0", cfg.Address)
	assert.Equal(t, uint16(1024), cfg.Port)
	assert.Equal(t, 100, cfg.QueueCapacity)
	assert.Equal(t, time.Millisecond, cfg.Period)
	assert.Equal(t, 60.0, cfg.RotationRate)
	assert.Equal(t, tmpl, cfg.Template)
}

func TestToggle(t *testing.T) {
	defer SetupControlTest(t)()

	c, sender, dialer := newMockController()
	assert.False(t, c.Running())

	running, err := c.Toggle(fastParams())
	require.NoError(t, err)
	assert.True(t, running)
	assert.True(t, c.Running())
	assert.Equal(t, fastParams(), c.Params())

	require.Eventually(t, func() bool { return len(sender.Sent()) > 0 }, 5*time.Second, time.Millisecond)

	running, err = c.Toggle(fastParams())
	require.NoError(t, err)
	assert.False(t, running)
	assert.False(t, c.Running())
	assert.True(t, sender.Closed())
	assert.Len(t, dialer.Endpoints, 1)

	w, _ := packet.Words(sender.Sent()[0])
	assert.Equal(t, uint16(0x0101), packet.Decode(w).SystemID)
}

func TestToggleRejectsInvalidParams(t *testing.T) {
	defer SetupControlTest(t)()

	c, _, dialer := newMockController()

	bad := fastParams()
	bad.Port = 80

	running, err := c.Toggle(bad)
	assert.ErrorIs(t, err, &ValidationError{})
	assert.False(t, running)
	assert.False(t, c.Running())
	assert.Empty(t, dialer.Endpoints, "nothing is opened for invalid input")
	assert.Equal(t, DefaultParams(), c.Params())
}

func TestStartInitializationFailure(t *testing.T) {
	defer SetupControlTest(t)()

	c, _, dialer := newMockController()
	dialer.Err = errors.New("no route")

	err := c.Start(fastParams())
	assert.ErrorIs(t, err, &pipeline.InitializationError{})
	assert.False(t, c.Running())

	// the button stays usable
	dialer.Err = nil
	require.NoError(t, c.Start(fastParams()))
	require.NoError(t, c.Close())
}

func TestStopAndClose(t *testing.T) {
	defer SetupControlTest(t)()

	c, _, _ := newMockController()

	assert.ErrorIs(t, c.Stop(), pipeline.ErrNotRunning)
	assert.NoError(t, c.Close(), "closing an idle controller is fine")

	require.NoError(t, c.Start(fastParams()))
	assert.ErrorIs(t, c.Start(fastParams()), pipeline.ErrAlreadyRunning)
	require.NoError(t, c.Stop())
	assert.NoError(t, c.Close())
}

func TestSetTemplateAppliesOnNextStart(t *testing.T) {
	defer SetupControlTest(t)()

	c, sender, _ := newMockController()

	tmpl := packet.New()
	tmpl.SystemID = 0x0BEE
	c.SetTemplate(tmpl)

	require.NoError(t, c.Start(fastParams()))
	require.Eventually(t, func() bool { return len(sender.Sent()) > 0 }, 5*time.Second, time.Millisecond)
	require.NoError(t, c.Stop())

	w, _ := packet.Words(sender.Sent()[0])
	assert.Equal(t, uint16(0x0BEE), packet.Decode(w).SystemID)
}

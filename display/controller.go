package display

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/zabeloliver/wethermo-remote/wethermo-api/wethermoStructs"
	"go.uber.org/zap"
)

// Remote is the thermostat API the controller talks to.
type Remote interface {
	GetInfo(ctx context.Context) (wethermoStructs.StatusReport, error)
	SendCommand(ctx context.Context, cmd wethermoStructs.Command) (wethermoStructs.ControlAck, error)
}

// Operation names accepted by Invoke.
const (
	OpInfo  = "info"
	OpClear = "clear"
)

var ErrUnknownOperation = errors.New("unknown operation")

// Controller binds the thermostat API to one display region.
//
// Every request runs in its own goroutine and returns a channel closed when
// it is finished. Completion handlers run one at a time, in whatever order
// the responses arrive. A failed request only produces an error log entry.
type Controller struct {
	remote Remote
	region Region
	logger *zap.SugaredLogger

	// held while a completion handler or ClearRegion runs
	loop sync.Mutex

	OnStatus  func(report wethermoStructs.StatusReport)
	OnAck     func(cmd wethermoStructs.Command, ack wethermoStructs.ControlAck)
	OnFailure func(op string, err error)
}

func NewController(remote Remote, region Region, logger *zap.SugaredLogger) *Controller {
	return &Controller{
		remote: remote,
		region: region,
		logger: logger,
	}
}

func (c *Controller) Region() Region { return c.region }

// FetchStatus loads the status report and replaces the region with it.
func (c *Controller) FetchStatus(ctx context.Context) <-chan struct{} {
	c.logger.Info("Job started.")
	return c.do(ctx, OpInfo, func(ctx context.Context) (func(), error) {
		report, err := c.remote.GetInfo(ctx)
		if err != nil {
			return nil, err
		}
		return func() {
			c.region.Replace(RenderLines(report))
			c.logger.Infow("Status report", "report", report)
			c.logger.Info("Job done.")
			if c.OnStatus != nil {
				c.OnStatus(report)
			}
		}, nil
	})
}

func (c *Controller) TurnOff(ctx context.Context) <-chan struct{} {
	return c.command(ctx, wethermoStructs.CommandOff)
}

func (c *Controller) SetAuto(ctx context.Context) <-chan struct{} {
	return c.command(ctx, wethermoStructs.CommandAuto)
}

func (c *Controller) SetHeat(ctx context.Context) <-chan struct{} {
	return c.command(ctx, wethermoStructs.CommandHeat)
}

func (c *Controller) RequestDisplay(ctx context.Context) <-chan struct{} {
	return c.command(ctx, wethermoStructs.CommandDisplay)
}

// ClearRegion empties r. It does not touch the network.
func (c *Controller) ClearRegion(r Region) {
	c.loop.Lock()
	defer c.loop.Unlock()
	c.logger.Infow("Clearing region", "region", r.Name())
	r.Empty()
}

// Invoke runs the operation called name: "info", "clear" or one of the
// control commands. "clear" acts on the controller's own region.
func (c *Controller) Invoke(ctx context.Context, name string) (<-chan struct{}, error) {
	switch name {
	case OpInfo:
		return c.FetchStatus(ctx), nil
	case OpClear:
		c.ClearRegion(c.region)
		done := make(chan struct{})
		close(done)
		return done, nil
	}
	cmd, err := wethermoStructs.ParseCommand(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
	}
	return c.command(ctx, cmd), nil
}

func (c *Controller) command(ctx context.Context, cmd wethermoStructs.Command) <-chan struct{} {
	return c.do(ctx, string(cmd), func(ctx context.Context) (func(), error) {
		ack, err := c.remote.SendCommand(ctx, cmd)
		if err != nil {
			return nil, err
		}
		return func() {
			c.logger.Infow("Control acknowledgement", "operation", string(cmd), "response", string(ack))
			if c.OnAck != nil {
				c.OnAck(cmd, ack)
			}
		}, nil
	})
}

func (c *Controller) do(ctx context.Context, op string, request func(context.Context) (func(), error)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		complete, err := request(ctx)

		c.loop.Lock()
		defer c.loop.Unlock()
		if err != nil {
			c.logger.Errorw("Request failed", "operation", op, "error", err)
			if c.OnFailure != nil {
				c.OnFailure(op, err)
			}
			return
		}
		complete()
	}()
	return done
}

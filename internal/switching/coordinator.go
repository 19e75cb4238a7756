package switching

import (
	"context"
	"fmt"
)

// MetadataCodec converts a payment method's typed metadata to and from the
// Metadata carried in the descriptor.
type MetadataCodec[M any] interface {
	Encode(meta M) Metadata
	Decode(md Metadata) (M, error)
}

// ResultMapper turns outcomes into a payment method's result type.
// Methods without a distinct cancel signal return their no-result value from Cancel.
type ResultMapper[M, R any] interface {
	Success(meta M, p Payload) (R, error)
	Cancel(meta M) R
	NoResult() R
	Failure(err error) R
}

// LaunchTarget describes the surface a coordinator should launch for one request.
type LaunchTarget struct {
	Kind        Target
	Destination string

	// ReturnScheme overrides the coordinator's default when non-empty.
	ReturnScheme string

	// NotifyOnCancel overrides the coordinator's default when non-nil.
	NotifyOnCancel *bool
}

// CoordinatorConfig configures a Coordinator for one payment method.
type CoordinatorConfig struct {
	RequestCode    int
	ReturnScheme   string
	NotifyOnCancel bool
	Rules          Rules
}

// Coordinator drives the launch → persist → resolve → map cycle for one
// payment method. M is the method's metadata type, R its result type.
type Coordinator[M, R any] struct {
	launcher *Launcher
	resolver Resolver
	codec    MetadataCodec[M]
	mapper   ResultMapper[M, R]
	cfg      CoordinatorConfig
}

// NewCoordinator creates a coordinator.
func NewCoordinator[M, R any](launcher *Launcher, codec MetadataCodec[M], mapper ResultMapper[M, R], cfg CoordinatorConfig) *Coordinator[M, R] {
	if launcher == nil {
		launcher = NewLauncher(nil)
	}
	return &Coordinator[M, R]{
		launcher: launcher,
		resolver: NewResolver(cfg.Rules),
		codec:    codec,
		mapper:   mapper,
		cfg:      cfg,
	}
}

// Descriptor builds the descriptor Start would launch.
func (c *Coordinator[M, R]) Descriptor(meta M, target LaunchTarget) (Descriptor, error) {
	scheme := c.cfg.ReturnScheme
	if target.ReturnScheme != "" {
		scheme = target.ReturnScheme
	}
	notify := c.cfg.NotifyOnCancel
	if target.NotifyOnCancel != nil {
		notify = *target.NotifyOnCancel
	}
	return NewDescriptor(target.Kind, target.Destination, scheme, c.cfg.RequestCode, notify, c.codec.Encode(meta))
}

// Start builds a descriptor for meta and launches it on host.
func (c *Coordinator[M, R]) Start(ctx context.Context, host Host, meta M, target LaunchTarget) PendingRequest {
	d, err := c.Descriptor(meta, target)
	if err != nil {
		return &LaunchFailure{Err: err}
	}
	return c.launcher.Launch(ctx, host, d)
}

// Finish restores a persisted pending request and maps the return signal into R.
// The only error is a malformed pending string; every other problem is a result.
func (c *Coordinator[M, R]) Finish(pending string, sig ReturnSignal) (R, error) {
	started, err := ParseStarted(pending)
	if err != nil {
		var zero R
		return zero, err
	}
	return c.Resolve(started, sig), nil
}

// Resolve maps the return signal for an already restored pending request.
// A pending request launched under another request code belongs to a
// different switch and yields no result.
func (c *Coordinator[M, R]) Resolve(started *Started, sig ReturnSignal) R {
	if started != nil && started.Descriptor.RequestCode != c.cfg.RequestCode {
		return c.mapper.NoResult()
	}
	outcome := c.resolver.Resolve(started, sig)
	switch o := outcome.(type) {
	case *NoResult:
		return c.mapper.NoResult()
	case *Failure:
		return c.mapper.Failure(o.Err)
	}

	meta, err := c.codec.Decode(started.Descriptor.Metadata)
	if err != nil {
		return c.mapper.Failure(fmt.Errorf("%w: %v", ErrMalformedPending, err))
	}
	return c.Map(meta, outcome)
}

// Map translates an outcome into R, preserving which case occurred.
func (c *Coordinator[M, R]) Map(meta M, o Outcome) R {
	switch o := o.(type) {
	case *Success:
		r, err := c.mapper.Success(meta, o.Payload)
		if err != nil {
			return c.mapper.Failure(err)
		}
		return r
	case *Cancel:
		return c.mapper.Cancel(meta)
	case *Failure:
		return c.mapper.Failure(o.Err)
	default:
		return c.mapper.NoResult()
	}
}

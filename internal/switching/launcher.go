package switching

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
)

// Capabilities answers whether the host environment can perform a switch.
// Implementations are supplied by the host integration layer.
type Capabilities interface {
	// HandlesReturnScheme reports whether deep links with scheme are routed back to the host.
	HandlesReturnScheme(scheme string) bool

	// CanResolveURL reports whether a browser (or other handler) can open u.
	CanResolveURL(u *url.URL) bool

	// IsAppInstalled reports whether the app identified by pkg is installed.
	IsAppInstalled(pkg string) bool
}

// Host performs the platform-specific handoff after capabilities are checked.
type Host interface {
	Capabilities

	// Open hands control to the surface described by d.
	Open(ctx context.Context, d Descriptor) error
}

// Launcher validates and performs switches.
// It holds no state beyond its logger and is safe for concurrent use.
type Launcher struct {
	logger *slog.Logger
}

// NewLauncher creates a Launcher. A nil logger discards output.
func NewLauncher(logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Launcher{logger: logger}
}

// Launch checks that host can perform the switch described by d and, if so,
// hands control off. It never panics and never returns an error: failures are
// reported as *LaunchFailure, and the handoff is not attempted when a
// capability check fails. Each call performs a separate switch.
func (l *Launcher) Launch(ctx context.Context, host Host, d Descriptor) (pending PendingRequest) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.ErrorContext(ctx, "switch handoff panicked",
				slog.Any("panic", r),
				slog.Int("request_code", d.RequestCode),
			)
			pending = &LaunchFailure{Err: fmt.Errorf("%w: host panicked: %v", ErrHandoffFailed, r)}
		}
	}()

	if err := l.check(host, d); err != nil {
		l.logger.WarnContext(ctx, "switch launch rejected",
			slog.String("target", string(d.Target)),
			slog.String("return_scheme", d.ReturnScheme),
			slog.Int("request_code", d.RequestCode),
			slog.String("error", err.Error()),
		)
		return &LaunchFailure{Err: err}
	}

	if err := host.Open(ctx, d); err != nil {
		l.logger.WarnContext(ctx, "switch handoff failed",
			slog.String("target", string(d.Target)),
			slog.Int("request_code", d.RequestCode),
			slog.String("error", err.Error()),
		)
		return &LaunchFailure{Err: fmt.Errorf("%w: %v", ErrHandoffFailed, err)}
	}

	l.logger.DebugContext(ctx, "switch started",
		slog.String("target", string(d.Target)),
		slog.String("return_scheme", d.ReturnScheme),
		slog.Int("request_code", d.RequestCode),
	)
	return &Started{Descriptor: d}
}

// check runs the capability checks in order: descriptor, return route, destination.
func (l *Launcher) check(host Host, d Descriptor) error {
	if host == nil {
		return fmt.Errorf("%w: no host available", ErrNoHandler)
	}
	if err := d.Validate(); err != nil {
		return err
	}
	if !host.HandlesReturnScheme(d.ReturnScheme) {
		return fmt.Errorf("%w: %q", ErrReturnSchemeMismatch, d.ReturnScheme)
	}

	switch d.Target {
	case TargetBrowser:
		u, err := d.URL()
		if err != nil {
			return err
		}
		if !host.CanResolveURL(u) {
			return fmt.Errorf("%w: %s", ErrNoHandler, u.Scheme+"://"+u.Host)
		}
	case TargetApp:
		if !host.IsAppInstalled(d.Destination) {
			return fmt.Errorf("%w: app %s is not installed", ErrNoHandler, d.Destination)
		}
	}
	return nil
}

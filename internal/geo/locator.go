// Package geo defines how shift commands obtain the caller's position.
package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spec-kit/ticket-desk/internal/domain"
)

var (
	// ErrUnavailable means no position could be determined.
	ErrUnavailable = errors.New("geolocation unavailable")
	// ErrDenied means the user refused to share a position.
	ErrDenied = errors.New("geolocation denied")
	// ErrTimeout means the position was not obtained in time.
	ErrTimeout = errors.New("geolocation timeout")
)

// Locator yields the current position of the command issuer.
type Locator interface {
	CurrentPosition(ctx context.Context) (domain.GeolocationSample, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context) (domain.GeolocationSample, error)

// CurrentPosition implements Locator.
func (f LocatorFunc) CurrentPosition(ctx context.Context) (domain.GeolocationSample, error) {
	return f(ctx)
}

// Failure is the cause a client reports when its device could not produce a position.
type Failure string

const (
	FailureDenied      Failure = "denied"
	FailureUnavailable Failure = "unavailable"
	FailureTimeout     Failure = "timeout"
)

// Err maps the reported cause onto its sentinel error.
func (f Failure) Err() error {
	switch Failure(strings.ToLower(string(f))) {
	case FailureDenied:
		return ErrDenied
	case FailureTimeout:
		return ErrTimeout
	default:
		return ErrUnavailable
	}
}

// Reported is a Locator backed by what the client sent alongside the
// command: either a sample captured by the device or a failure cause.
type Reported struct {
	Sample  *domain.GeolocationSample
	Failure Failure
	Now     func() time.Time
}

// CurrentPosition implements Locator.
func (r Reported) CurrentPosition(ctx context.Context) (domain.GeolocationSample, error) {
	if err := ctx.Err(); err != nil {
		return domain.GeolocationSample{}, fromContext(err)
	}
	if r.Failure != "" {
		return domain.GeolocationSample{}, r.Failure.Err()
	}
	if r.Sample == nil {
		return domain.GeolocationSample{}, ErrUnavailable
	}
	sample := *r.Sample
	if err := Validate(sample); err != nil {
		return domain.GeolocationSample{}, err
	}
	if sample.CapturedAt.IsZero() {
		if r.Now != nil {
			sample.CapturedAt = r.Now()
		} else {
			sample.CapturedAt = time.Now()
		}
	}
	return sample, nil
}

// Validate checks coordinate and accuracy ranges.
func Validate(s domain.GeolocationSample) error {
	switch {
	case math.IsNaN(s.Lat) || s.Lat < -90 || s.Lat > 90:
		return fmt.Errorf("%w: latitude %v out of range", ErrUnavailable, s.Lat)
	case math.IsNaN(s.Lon) || s.Lon < -180 || s.Lon > 180:
		return fmt.Errorf("%w: longitude %v out of range", ErrUnavailable, s.Lon)
	case math.IsNaN(s.Accuracy) || s.Accuracy < 0:
		return fmt.Errorf("%w: accuracy %v invalid", ErrUnavailable, s.Accuracy)
	}
	return nil
}

// WithTimeout bounds a Locator; a deadline hit is reported as ErrTimeout.
func WithTimeout(l Locator, d time.Duration) Locator {
	if d <= 0 {
		return l
	}
	return LocatorFunc(func(ctx context.Context) (domain.GeolocationSample, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		sample, err := l.CurrentPosition(ctx)
		if err != nil && errors.Is(err, context.DeadlineExceeded) {
			return domain.GeolocationSample{}, ErrTimeout
		}
		return sample, err
	})
}

func fromContext(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

package kpfu

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrAuthFailure means the login could not be completed, either the login
	// form never showed up or the portal did not accept the credentials.
	ErrAuthFailure = errors.New("kpfu: authentication failed")
	// ErrTimeout is attached to every failure caused by a wait running out of
	// time, alongside the failure kind.
	ErrTimeout = errors.New("kpfu: timed out")
	// ErrNotFound means the curriculum table could not be located.
	ErrNotFound = errors.New("kpfu: curriculum table not found")
)

// stepError wraps a failed step with its kind. A failure caused by the caller
// cancelling ctx keeps only the context error.
func stepError(ctx context.Context, kind error, step string, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", step, ctx.Err())
	}
	return fmt.Errorf("%s: %w: %w", step, kind, err)
}

// timeoutError marks err with ErrTimeout when the wait bounded by waitCtx ran
// out of time.
func timeoutError(waitCtx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}

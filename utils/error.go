package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// ErrExec executes the functions concurrently and returns the first error.
func ErrExec(functions ...func() error) error {
	group, ctx := errgroup.WithContext(context.Background())

	for _, one := range functions {
		group.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return one()
			}
		})
	}

	return group.Wait()
}

// ErrExecSequential executes the functions in order, accumulating every
// error instead of stopping at the first.
func ErrExecSequential(functions ...func() error) error {
	var multErr error
	for _, one := range functions {
		if err := one(); err != nil {
			multErr = multierror.Append(multErr, err)
		}
	}
	return multErr
}

// ErrExecFormat wraps the error returned by function with the format string.
func ErrExecFormat(format string, function func() error) func() error {
	return func() error {
		if err := function(); err != nil {
			return fmt.Errorf(format, err)
		}
		return nil
	}
}

// RetryExec retries function up to retries times with a delay in between.
func RetryExec(function func() error, retries int, delay time.Duration) error {
	var err error
	for i := 0; i <= retries; i++ {
		if err = function(); err == nil {
			return nil
		}
		time.Sleep(delay)
	}
	return fmt.Errorf("failed after %d retries: %w", retries, err)
}

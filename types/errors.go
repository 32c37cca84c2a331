package types

import (
	"errors"
	"fmt"

	"github.com/seqsift/seqsift/constants"
)

// ConfigError marks a bad invocation or an unusable output target.
// The process exits with constants.ExitConfig.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

// Configf builds a ConfigError from a format string.
func Configf(format string, v ...any) error {
	return &ConfigError{Message: fmt.Sprintf(format, v...)}
}

// DataError marks invalid input data (duplicate identifiers, an empty
// result). The process exits with constants.ExitData.
type DataError struct {
	Message string
}

func (e *DataError) Error() string { return e.Message }

// Dataf builds a DataError from a format string.
func Dataf(format string, v ...any) error {
	return &DataError{Message: fmt.Sprintf(format, v...)}
}

// ExitCode maps an error to the process exit status. Unclassified errors
// count as usage faults.
func ExitCode(err error) int {
	if err == nil {
		return constants.ExitOK
	}

	var dataErr *DataError
	if errors.As(err, &dataErr) {
		return constants.ExitData
	}

	return constants.ExitConfig
}

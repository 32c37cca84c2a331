package utils

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

// Ternary mimics the conditional operator; callers assert the result back
// to the operand type.
func Ternary(cond bool, a, b any) any {
	if cond {
		return a
	}
	return b
}

// ForEach runs apply over every element, stopping at the first error.
func ForEach[T any](elements []T, apply func(element T) error) error {
	for _, elem := range elements {
		if err := apply(elem); err != nil {
			return err
		}
	}
	return nil
}

// Contains reports whether value is present in the slice.
func Contains[T comparable](elements []T, value T) bool {
	for _, elem := range elements {
		if elem == value {
			return true
		}
	}
	return false
}

// IsValidSubcommand reports whether sub names one of the registered
// subcommands.
func IsValidSubcommand(available []*cobra.Command, sub string) bool {
	for _, cmd := range available {
		if sub == cmd.Name() {
			return true
		}
	}
	return false
}

// UnmarshalFile loads a YAML or JSON file into dest, optionally running
// struct validation afterwards.
func UnmarshalFile(path string, dest any, validate bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file[%s]: %s", path, err)
	}

	if err := yaml.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal file[%s]: %s", path, err)
	}

	if validate {
		if err := Validate(dest); err != nil {
			return fmt.Errorf("invalid configuration in file[%s]: %s", path, err)
		}
	}

	return nil
}

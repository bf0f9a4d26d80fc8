package codec

import "fmt"

// DecodeError represents a failure while reading or decoding input.
type DecodeError struct {
	Op     string
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("%s %s image: %v", e.Op, e.Format, e.Err)
	}
	return fmt.Sprintf("%s image: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

package trial

import (
	"context"
	"errors"
)

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func asErr[T error](err error, target *T) bool {
	return errors.As(err, target)
}

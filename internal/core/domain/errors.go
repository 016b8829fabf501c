package domain

import (
	"errors"
	"fmt"
)

// ErrUnknownAccountType is matched by every UnknownAccountTypeError.
var ErrUnknownAccountType = errors.New("unknown account type")

// UnknownAccountTypeError names an account type tag outside the supported set.
type UnknownAccountTypeError struct {
	Type AccountType
}

func (e *UnknownAccountTypeError) Error() string {
	return fmt.Sprintf("unknown account type: %q", string(e.Type))
}

func (e *UnknownAccountTypeError) Is(target error) bool {
	return target == ErrUnknownAccountType
}

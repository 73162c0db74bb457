package insurance

import (
	"errors"
	"fmt"
)

// Error kinds reported by ledger operations. Every failed operation wraps
// exactly one of them, so callers can branch with errors.Is.
var (
	ErrUnauthorized        = errors.New("unauthorized caller")
	ErrNotFound            = errors.New("not found")
	ErrDuplicate           = errors.New("already exists")
	ErrCapacity            = errors.New("capacity exceeded")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrTiming              = errors.New("cooldown not elapsed")
	ErrInvalidArgument     = errors.New("invalid argument")
)

// Result codes, one per error kind. Zero means success.
const (
	CodeTypeOK                  uint32 = 0
	CodeTypeInternal            uint32 = 1
	CodeTypeUnauthorized        uint32 = 2
	CodeTypeNotFound            uint32 = 3
	CodeTypeDuplicate           uint32 = 4
	CodeTypeCapacity            uint32 = 5
	CodeTypeInsufficientBalance uint32 = 6
	CodeTypeTiming              uint32 = 7
	CodeTypeInvalidArgument     uint32 = 8
)

var kindCodes = []struct {
	kind error
	code uint32
}{
	{ErrUnauthorized, CodeTypeUnauthorized},
	{ErrNotFound, CodeTypeNotFound},
	{ErrDuplicate, CodeTypeDuplicate},
	{ErrCapacity, CodeTypeCapacity},
	{ErrInsufficientBalance, CodeTypeInsufficientBalance},
	{ErrTiming, CodeTypeTiming},
	{ErrInvalidArgument, CodeTypeInvalidArgument},
}

// Error describes a rejected operation.
type Error struct {
	Op     string // boundary method name, e.g. "admitMember"
	Kind   error  // one of the Err* kinds above
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Kind }

func fail(op string, kind error, format string, args ...interface{}) error {
	return &Error{Op: op, Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Code maps an operation outcome to its result code.
func Code(err error) uint32 {
	if err == nil {
		return CodeTypeOK
	}
	for _, kc := range kindCodes {
		if errors.Is(err, kc.kind) {
			return kc.code
		}
	}
	return CodeTypeInternal
}

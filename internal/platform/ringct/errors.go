package ringct

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DoubleVotingCode is the signer's error code for a spent key image.
const DoubleVotingCode = "CORE_DOUBLE_VOTING"

var (
	ErrDoubleVoting = errors.New("ringct: double voting detected")
	ErrTransport    = errors.New("ringct: transport failure")
	ErrRejected     = errors.New("ringct: request rejected")
)

// Error is returned by every Client call. Kind is one of ErrDoubleVoting,
// ErrTransport or ErrRejected and is matched with errors.Is.
type Error struct {
	Op   string
	Code string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("ringct %s failed: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("ringct %s failed: %s: %v", e.Op, e.Code, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Op: op, Code: codes.DeadlineExceeded.String(), Kind: ErrTransport, Err: err}
	}

	st, ok := status.FromError(err)
	if !ok {
		return &Error{Op: op, Code: codes.Unknown.String(), Kind: ErrTransport, Err: err}
	}
	if strings.Contains(st.Message(), DoubleVotingCode) {
		return &Error{Op: op, Code: DoubleVotingCode, Kind: ErrDoubleVoting, Err: err}
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.Canceled, codes.ResourceExhausted, codes.Aborted:
		return &Error{Op: op, Code: st.Code().String(), Kind: ErrTransport, Err: err}
	default:
		return &Error{Op: op, Code: st.Code().String(), Kind: ErrRejected, Err: err}
	}
}

func mismatch(op string, detail string) error {
	return &Error{Op: op, Code: "OUTPUT_MISMATCH", Kind: ErrRejected, Err: errors.New(detail)}
}

func invalidInput(op string, detail string) error {
	return &Error{Op: op, Code: "INVALID_INPUT", Kind: ErrRejected, Err: errors.New(detail)}
}

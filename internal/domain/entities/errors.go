package entities

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	ErrValidation             = errors.New("validation failed")
	ErrNotFound               = errors.New("not found")
	ErrConflict               = errors.New("conflict")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrInvoiceLocked          = errors.New("invoice is locked")
	ErrDuplicateInvoice       = errors.New("invoice already exists for service and billing period")
	ErrDuplicateTransaction   = errors.New("payment transaction already exists for provider reference")
	ErrVersionConflict        = errors.New("record was modified concurrently")
	ErrNoBillableAmount       = errors.New("no billable amount")
	ErrServiceNotEligible     = errors.New("service not eligible for billing")

	ErrInvalidSignature   = errors.New("invalid webhook signature")
	ErrUnknownTransaction = errors.New("unknown payment transaction")
	ErrAmountMismatch     = errors.New("payment amount mismatch")
	ErrOverpayment        = errors.New("payment exceeds amount due")
	ErrInvoiceNotPayable  = errors.New("invoice is not payable")

	ErrCompletedAfterFailure = errors.New("gateway reported completion for a failed transaction")

	ErrUnknownProvider = errors.New("unknown payment provider")
	ErrNotSupported    = errors.New("operation not supported by provider")
	ErrExternal        = errors.New("external dependency failed")
	ErrTransient       = errors.New("transient failure")
)

// InvalidStateTransitionError names the rejected from/to pair.
type InvalidStateTransitionError struct {
	From InvoiceStatus
	To   InvoiceStatus
	// Conflict is set when the rejected move repeats work already done,
	// e.g. sending an invoice that is already out.
	Conflict bool
	// Guard is the operator-facing rule that failed.
	Guard string
}

func (e *InvalidStateTransitionError) Error() string {
	if e.Guard != "" {
		return fmt.Sprintf("invalid state transition %s -> %s: %s", e.From, e.To, e.Guard)
	}
	return fmt.Sprintf("invalid state transition %s -> %s", e.From, e.To)
}

func (e *InvalidStateTransitionError) Is(target error) bool {
	if target == ErrInvalidStateTransition {
		return true
	}
	return e.Conflict && target == ErrConflict
}

func NewInvalidTransition(from, to InvoiceStatus) error {
	return &InvalidStateTransitionError{From: from, To: to}
}

// ErrorClass groups failures by how callers should react to them.
type ErrorClass string

const (
	ClassValidation ErrorClass = "validation"
	ClassConflict   ErrorClass = "conflict"
	ClassExternal   ErrorClass = "external"
	ClassIntegrity  ErrorClass = "integrity"
	ClassTransient  ErrorClass = "transient"
	ClassFatal      ErrorClass = "fatal"
)

// Classify maps an error onto the billing error taxonomy.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound), errors.Is(err, ErrUnknownProvider),
		errors.Is(err, ErrServiceNotEligible), errors.Is(err, ErrNoBillableAmount):
		return ClassValidation
	case errors.Is(err, ErrInvalidSignature), errors.Is(err, ErrUnknownTransaction), errors.Is(err, ErrAmountMismatch),
		errors.Is(err, ErrOverpayment), errors.Is(err, ErrInvoiceNotPayable), errors.Is(err, ErrCompletedAfterFailure):
		return ClassIntegrity
	case errors.Is(err, ErrVersionConflict), errors.Is(err, ErrTransient),
		errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return ClassTransient
	case errors.Is(err, ErrInvalidStateTransition), errors.Is(err, ErrConflict), errors.Is(err, ErrInvoiceLocked),
		errors.Is(err, ErrDuplicateInvoice), errors.Is(err, ErrDuplicateTransaction):
		return ClassConflict
	case errors.Is(err, ErrExternal), errors.Is(err, ErrNotSupported):
		return ClassExternal
	default:
		return ClassFatal
	}
}

type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func (e *validationError) Is(target error) bool { return target == ErrValidation }

// Validationf builds a validation error whose message is shown to the caller as is.
func Validationf(format string, args ...interface{}) error {
	return errors.WithStack(&validationError{msg: fmt.Sprintf(format, args...)})
}

type externalError struct {
	op  string
	err error
}

func (e *externalError) Error() string { return e.op + ": " + e.err.Error() }

func (e *externalError) Unwrap() error { return e.err }

func (e *externalError) Is(target error) bool { return target == ErrExternal }

// External marks err as a failure of a collaborator outside the billing core.
func External(op string, err error) error {
	if err == nil {
		return nil
	}
	return &externalError{op: op, err: err}
}

package reset

import "errors"

// Kind classifies a reset failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindExpired
	KindMismatch
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindExpired:
		return "expired"
	case KindMismatch:
		return "mismatch"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// Step names the part of the reset flow a client should show next.
type Step string

const (
	StepRequest  Step = "request"
	StepVerify   Step = "verify"
	StepChange   Step = "change"
	StepLogin    Step = "login"
	StepRegister Step = "register"
)

// Error is a user-facing reset failure. The exported Err* values are the
// only instances, so callers compare with errors.Is.
type Error struct {
	Kind Kind
	Next Step
	msg  string
}

func (e *Error) Error() string {
	return e.msg
}

var (
	ErrEmailRequired    = &Error{KindValidation, StepRequest, "Email is required"}
	ErrCodeRequired     = &Error{KindValidation, StepVerify, "Reset code is required"}
	ErrPasswordTooShort = &Error{KindValidation, StepChange, "Password must be at least 6 characters long"}
	ErrNoCode           = &Error{KindNotFound, StepRequest, "No reset code found for this email. Request a new one"}
	ErrNoUser           = &Error{KindNotFound, StepRegister, "User not found"}
	ErrCodeExpired      = &Error{KindExpired, StepRequest, "Reset code expired. Request a new one"}
	ErrCodeMismatch     = &Error{KindMismatch, StepVerify, "Incorrect reset code"}
	ErrNotVerified      = &Error{KindUnauthorized, StepRequest, "You must verify your reset code first"}
)

// KindOf returns the Kind of err, or KindUnknown for infrastructure errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return KindUnknown
}

// NextStep returns where the client should go after err. Errors that are not
// reset errors are transient, so the client stays on current and retries.
func NextStep(err error, current Step) Step {
	var e *Error
	if errors.As(err, &e) {
		return e.Next
	}

	return current
}

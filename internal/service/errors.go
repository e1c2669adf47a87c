package service

import (
    "errors"
    "fmt"

    "github.com/iliyamo/bookable/internal/repository"
)

// Kind classifies a service failure.  Handlers map each kind to one HTTP
// status; callers should branch on Kind rather than on messages.
type Kind int

const (
    KindInternal Kind = iota
    KindValidation
    KindNotFound
    KindPermissionDenied
    KindConflict
)

func (k Kind) String() string {
    switch k {
    case KindValidation:
        return "validation"
    case KindNotFound:
        return "not_found"
    case KindPermissionDenied:
        return "permission_denied"
    case KindConflict:
        return "conflict"
    default:
        return "internal"
    }
}

// Error is the single error type returned by services.  Code is a stable
// machine readable identifier (e.g. "past_booking_date"); Message is safe
// to show to the user.  Err keeps the underlying cause for logs.
type Error struct {
    Kind    Kind
    Code    string
    Message string
    Err     error
}

func (e *Error) Error() string {
    if e.Err != nil {
        return fmt.Sprintf("%s: %s: %v", e.Kind, e.Code, e.Err)
    }
    return fmt.Sprintf("%s: %s: %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Error codes shared by services and handlers.
const (
    CodeInvalidInput      = "invalid_input"
    CodeInvalidQuantity   = "invalid_quantity"
    CodePastBookingDate   = "past_booking_date"
    CodeItemUnavailable   = "item_unavailable"
    CodeDuplicateBooking  = "duplicate_booking"
    CodeInvalidTransition = "invalid_transition"
    CodeExceedsCapacity   = "exceeds_capacity"
    CodeBookingFinalized  = "booking_finalized"
    CodeInvalidRating     = "invalid_rating"
    CodeInvalidPricing    = "invalid_pricing"
    CodeNameRequired      = "name_required"
    CodeInvalidEmail      = "invalid_email"
    CodeInvalidPhone      = "invalid_phone"
    CodeInvalidColor      = "invalid_color"
    CodeCategoryCycle     = "category_cycle"
    CodeAlreadyExists     = "already_exists"
    CodeInUse             = "in_use"
    CodeNotFound          = "not_found"
    CodeForbidden         = "forbidden"
    CodeInternal          = "internal_error"
)

// Validation reports a violated business rule.
func Validation(code, msg string) *Error {
    return &Error{Kind: KindValidation, Code: code, Message: msg}
}

// NotFound reports an unknown record.
func NotFound(what string) *Error {
    return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: what + " not found"}
}

// Forbidden reports an action the actor may not perform.
func Forbidden(code, msg string) *Error {
    return &Error{Kind: KindPermissionDenied, Code: code, Message: msg}
}

// Conflict reports a state conflict such as exceeded capacity.
func Conflict(code, msg string) *Error {
    return &Error{Kind: KindConflict, Code: code, Message: msg}
}

// Internal wraps an unexpected failure.  The message never reaches the
// client.
func Internal(err error) *Error {
    return &Error{Kind: KindInternal, Code: CodeInternal, Message: "internal error", Err: err}
}

// KindOf returns the kind of err, KindInternal for foreign errors.
func KindOf(err error) Kind {
    var se *Error
    if errors.As(err, &se) {
        return se.Kind
    }
    return KindInternal
}

// AsError converts any error into an *Error.  Repository sentinels are
// translated; anything unknown becomes an internal failure.
func AsError(err error) *Error {
    if err == nil {
        return nil
    }
    var se *Error
    if errors.As(err, &se) {
        return se
    }
    switch {
    case errors.Is(err, repository.ErrNotFound):
        return NotFound("record")
    case errors.Is(err, repository.ErrForbidden):
        return Forbidden(CodeForbidden, "forbidden")
    case errors.Is(err, repository.ErrDuplicate):
        return Validation(CodeAlreadyExists, "record already exists")
    case errors.Is(err, repository.ErrConflict):
        return Conflict(CodeInUse, "record is referenced by other records")
    }
    return Internal(err)
}

// translate maps repository sentinels to service errors naming what.
func translate(err error, what string) error {
    switch {
    case err == nil:
        return nil
    case errors.Is(err, repository.ErrNotFound):
        return NotFound(what)
    case errors.Is(err, repository.ErrDuplicate):
        return Validation(CodeAlreadyExists, what+" already exists")
    case errors.Is(err, repository.ErrConflict):
        return Conflict(CodeInUse, what+" is still referenced")
    }
    var se *Error
    if errors.As(err, &se) {
        return se
    }
    return Internal(err)
}

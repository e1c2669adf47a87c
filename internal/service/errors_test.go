package service

import (
    "errors"
    "fmt"
    "testing"

    "github.com/stretchr/testify/assert"

    "github.com/iliyamo/bookable/internal/repository"
)

func TestAsErrorTranslatesSentinels(t *testing.T) {
    cases := []struct {
        err  error
        kind Kind
    }{
        {fmt.Errorf("get item: %w", repository.ErrNotFound), KindNotFound},
        {repository.ErrForbidden, KindPermissionDenied},
        {repository.ErrDuplicate, KindValidation},
        {repository.ErrConflict, KindConflict},
        {errors.New("boom"), KindInternal},
        {Conflict(CodeExceedsCapacity, "full"), KindConflict},
    }
    for _, tc := range cases {
        assert.Equal(t, tc.kind, AsError(tc.err).Kind, tc.err.Error())
    }
    assert.Nil(t, AsError(nil))
}

func TestInternalHidesCause(t *testing.T) {
    cause := errors.New("dial tcp 10.0.0.1:3306: connection refused")
    e := Internal(cause)

    assert.Equal(t, "internal error", e.Message)
    assert.ErrorIs(t, e, cause)
    assert.Equal(t, KindInternal, KindOf(e))
    assert.Equal(t, KindInternal, KindOf(cause))
}

func TestTranslateNamesTheRecord(t *testing.T) {
    err := translate(repository.ErrNotFound, "booking")
    var se *Error
    assert.ErrorAs(t, err, &se)
    assert.Equal(t, "booking not found", se.Message)
}

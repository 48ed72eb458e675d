package core

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	notFound := NewNotFoundError("tactic")
	readOnly := NewForbiddenError("canvas is read-only")

	tests := []struct {
		name          string
		err           error
		wantNotFound  bool
		wantForbidden bool
	}{
		{name: "not found", err: notFound, wantNotFound: true},
		{name: "wrapped not found", err: errors.Wrap(notFound, "loading tactic"), wantNotFound: true},
		{name: "forbidden", err: ErrForbidden, wantForbidden: true},
		{name: "wrapped read-only", err: errors.Wrap(readOnly, "saving"), wantForbidden: true},
		{name: "validation", err: NewValidationError(errors.New("blank title"))},
		{name: "other", err: errors.New("boom")},
		{name: "nil", err: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantNotFound, IsNotFound(tt.err))
			assert.Equal(t, tt.wantForbidden, IsForbidden(tt.err))
		})
	}

	assert.Equal(t, "tactic not found", notFound.Error())
	assert.Equal(t, "permission denied", ErrForbidden.Error())
}

func TestValidationError_Error(t *testing.T) {
	assert.Equal(t, "title: cannot be blank", NewValidationError(nil, FieldError{Field: "title", Error: "cannot be blank"}).Error())
	assert.Equal(t, "malformed message", NewValidationError(errors.New("malformed message")).Error())
	assert.Empty(t, NewValidationError(nil).Error())
}

package validation_test

import (
	"errors"
	"net/http"
	"testing"

	domainerrors "github.com/amarpathagar/pathagar-server/internal/errors"
	"github.com/amarpathagar/pathagar-server/internal/validation"
	"github.com/stretchr/testify/assert"
)

type registerRequest struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=1024"`
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"notblank,max=500"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	err := v.Validate(registerRequest{
		Username: "rahim_01",
		Email:    "rahim@example.com",
		Password: "password123",
	})
	assert.NoError(t, err)
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       any
		wantField string
	}{
		{
			name:      "bad username",
			req:       registerRequest{Username: "a b", Email: "x@y.com", Password: "password123"},
			wantField: "username",
		},
		{
			name:      "invalid email",
			req:       registerRequest{Username: "rahim", Email: "not-an-email", Password: "password123"},
			wantField: "email",
		},
		{
			name:      "password too short",
			req:       registerRequest{Username: "rahim", Email: "x@y.com", Password: "short"},
			wantField: "password",
		},
		{
			name:      "blank reason",
			req:       rejectRequest{Reason: "   "},
			wantField: "reason",
		},
		{
			name:      "empty reason",
			req:       rejectRequest{},
			wantField: "reason",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			assert.Error(t, err)

			var domErr *domainerrors.Error
			if assert.True(t, errors.As(err, &domErr)) {
				assert.Equal(t, domainerrors.CodeValidation, domErr.Code)
				assert.Equal(t, http.StatusBadRequest, domErr.HTTPStatus())
				assert.Contains(t, domErr.Message, tt.wantField)
				details, ok := domErr.Details.(map[string]string)
				if assert.True(t, ok) {
					assert.Contains(t, details, tt.wantField)
				}
			}
		})
	}
}

func TestValidator_JSONFieldNames(t *testing.T) {
	v := validation.New()

	err := v.Validate(registerRequest{Username: "rahim", Password: "password123"})
	assert.Error(t, err)

	// Should use JSON tag name "email", not struct field name "Email"
	assert.Contains(t, err.Error(), "email")
	assert.NotContains(t, err.Error(), "Email")
}

type reviewRequest struct {
	Rating int      `json:"rating" validate:"required,min=1,max=5"`
	Tags   []string `json:"tags" validate:"max=2"`
}

func TestValidator_BoundMessagesFollowKind(t *testing.T) {
	v := validation.New()

	err := v.Validate(reviewRequest{Rating: 9, Tags: []string{"a", "b", "c"}})
	var domErr *domainerrors.Error
	if assert.True(t, errors.As(err, &domErr)) {
		details := domErr.Details.(map[string]string)
		assert.Equal(t, "must not exceed 5", details["rating"])
		assert.Equal(t, "must not exceed 2 items", details["tags"])
	}

	err = v.Validate(registerRequest{Username: "rahim", Email: "x@y.com", Password: "short"})
	if assert.True(t, errors.As(err, &domErr)) {
		assert.Equal(t, "must be at least 8 characters", domErr.Details.(map[string]string)["password"])
	}
}

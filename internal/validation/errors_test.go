package validation_test

import (
	"errors"
	"testing"

	"github.com/boddenberg/fintrack-go/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
	Period   string `validate:"omitempty,oneof=weekly monthly"`
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, validation.Struct(signup{Email: "a@b.co", Password: "longenough"}))
}

func TestStruct_FieldMessages(t *testing.T) {
	err := validation.Struct(signup{Email: "nope", Password: "short", Period: "daily"})
	require.Error(t, err)

	var verr *validation.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Email must be a valid email address", verr.Errors["Email"])
	assert.Equal(t, "Password must be at least 8 characters long", verr.Errors["Password"])
	assert.Equal(t, "Period must be one of: weekly monthly", verr.Errors["Period"])
	assert.Equal(t,
		"Email: Email must be a valid email address; Password: Password must be at least 8 characters long; Period: Period must be one of: weekly monthly",
		verr.Error())
}

func TestValidationError_AddError(t *testing.T) {
	var v validation.ValidationError
	assert.False(t, v.HasErrors())
	v.AddError("amount", "amount must not be negative")
	assert.True(t, v.HasErrors())
}

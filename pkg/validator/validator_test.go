package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type createRoomRequest struct {
	Title    string `json:"title" validate:"required,max=8"`
	JoinCode string `json:"join_code" validate:"omitempty,alphanum,min=4"`
}

func TestValidate(t *testing.T) {
	v := NewValidator()

	errs, ok := v.Validate(createRoomRequest{Title: "movie", JoinCode: "AB12CD"})
	assert.True(t, ok)
	assert.Empty(t, errs)

	errs, ok = v.Validate(createRoomRequest{JoinCode: "a-"})
	assert.False(t, ok)
	require.Len(t, errs, 2)
	assert.Equal(t, ValidationError{Field: "title", Code: "REQUIRED", Message: "title is required"}, errs[0])
	assert.Equal(t, "join_code", errs[1].Field)
	assert.Equal(t, "ALPHANUM", errs[1].Code)
}

type seekRequest struct {
	Action      string   `json:"action" validate:"required,oneof=play pause seek"`
	CurrentTime *float64 `json:"current_time" validate:"required,min=0"`
}

func TestValidateNumbersAndEnums(t *testing.T) {
	v := NewValidator()

	negative := -1.5
	errs, ok := v.Validate(seekRequest{Action: "rewind", CurrentTime: &negative})
	assert.False(t, ok)
	require.Len(t, errs, 2)
	assert.Equal(t, "action must be one of: play pause seek", errs[0].Message)
	assert.Equal(t, "current_time must be at least 0", errs[1].Message)

	errs, ok = v.Validate(seekRequest{Action: "seek"})
	assert.False(t, ok)
	require.Len(t, errs, 1)
	assert.Equal(t, "current_time is required", errs[0].Message)
}

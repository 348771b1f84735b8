package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapWithCode(t *testing.T) {
	base := errors.New("deadline exceeded")
	err := Backend(base, "Failed to update like")

	assert.Equal(t, CodeBackend, GetCode(err))
	assert.Equal(t, "Failed to update like", GetMessage(err))
	assert.True(t, Is(err, base))
	assert.Equal(t, "Failed to update like: deadline exceeded", err.Error())
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "x"))
	assert.Nil(t, Backend(nil, "x"))
	assert.Nil(t, Partial(nil, "x"))
}

func TestClassification(t *testing.T) {
	v := Validation("Display name cannot be empty")
	assert.True(t, IsValidation(v))
	assert.False(t, IsPartial(v))
	assert.Equal(t, "Display name cannot be empty", GetMessage(v))

	p := Partial(errors.New("boom"), "Like saved but notification failed")
	assert.True(t, IsPartial(p))

	f := fmt.Errorf("delete post: %w", Forbidden("Only the owner can delete this post"))
	assert.True(t, IsForbidden(f))
	assert.Equal(t, CodeForbidden, GetCode(f))

	assert.True(t, IsUnauthenticated(Unauthenticated("Sign in first")))
	assert.Equal(t, "plain", GetMessage(errors.New("plain")))
	assert.Equal(t, "", GetMessage(nil))
}

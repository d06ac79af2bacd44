package session

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	err := NewClosedError("s-1", ActionSelect)
	assert.Equal(t, "SESSION_CLOSED: session is closed (session=s-1)", err.Error())

	err = &Error{Code: ErrCodeAuthorization, Message: "missing capability"}
	assert.Equal(t, "AUTHORIZATION_FAILURE: missing capability", err.Error())
}

func TestError_HelpersSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("handle press: %w", newCapacityError("s-1", 4))
	assert.True(t, IsCapacityError(wrapped))
	assert.False(t, IsClosedError(wrapped))
	assert.Equal(t, ActionSelect, ActionOf(wrapped))

	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
	assert.Equal(t, "", ActionOf(nil))
}

func TestError_Constructors(t *testing.T) {
	assert.True(t, IsAuthorizationError(NewAuthorizationError("s", ActionReset, "bob")))
	assert.True(t, IsIncompleteError(newIncompleteError("s", 2, 4)))
	assert.Contains(t, newIncompleteError("s", 2, 4).Error(), "2 of 4")
}

package firebaseauth

import (
	"errors"
	"testing"

	"github.com/anonto42/nano-midea/app/internal/platform"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestMapError(t *testing.T) {
	assert.ErrorIs(t, mapError(&googleapi.Error{Code: 400, Message: "EMAIL_EXISTS"}), platform.ErrEmailExists)
	assert.ErrorIs(t, mapError(&googleapi.Error{Code: 400, Message: "INVALID_LOGIN_CREDENTIALS"}), platform.ErrInvalidCredentials)
	assert.ErrorIs(t, mapError(&googleapi.Error{Code: 400, Message: "INVALID_IDP_RESPONSE : bad token"}), platform.ErrInvalidToken)

	other := errors.New("dial tcp: timeout")
	assert.Equal(t, other, mapError(other))
}

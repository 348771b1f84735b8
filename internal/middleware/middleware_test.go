package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anonto42/nano-midea/app/internal/platform"
	"github.com/anonto42/nano-midea/app/internal/platform/mocks"
	"github.com/anonto42/nano-midea/app/internal/ratelimit"
	apperrors "github.com/anonto42/nano-midea/app/pkg/errors"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type principals struct {
	p  platform.Principal
	ok bool
}

func (s principals) Current() (platform.Principal, bool) { return s.p, s.ok }

func serve(t *testing.T, mw echo.MiddlewareFunc, header string) (echo.Context, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	c := e.NewContext(req, httptest.NewRecorder())
	err := mw(func(c echo.Context) error { return nil })(c)
	return c, err
}

func TestSessionAuth(t *testing.T) {
	ann := platform.Principal{UID: "ann", Email: "ann@x.io"}

	t.Run("signed out passes through", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		creds := mocks.NewMockCredentialService(ctrl)

		c, err := serve(t, SessionAuth(creds, principals{}), "")
		require.NoError(t, err)
		_, ok := PrincipalFrom(c)
		assert.False(t, ok)
	})

	t.Run("missing header", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		creds := mocks.NewMockCredentialService(ctrl)

		_, err := serve(t, SessionAuth(creds, principals{p: ann, ok: true}), "")
		assert.True(t, apperrors.IsUnauthenticated(err))
		assert.Equal(t, "Missing Authorization header", apperrors.GetMessage(err))
	})

	t.Run("malformed header", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		creds := mocks.NewMockCredentialService(ctrl)

		_, err := serve(t, SessionAuth(creds, principals{p: ann, ok: true}), "Token abc")
		assert.True(t, apperrors.IsUnauthenticated(err))
	})

	t.Run("invalid token", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		creds := mocks.NewMockCredentialService(ctrl)
		creds.EXPECT().Verify(gomock.Any(), "abc").Return(platform.Principal{}, errors.New("expired"))

		_, err := serve(t, SessionAuth(creds, principals{p: ann, ok: true}), "Bearer abc")
		assert.True(t, apperrors.IsUnauthenticated(err))
	})

	t.Run("token of someone else", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		creds := mocks.NewMockCredentialService(ctrl)
		creds.EXPECT().Verify(gomock.Any(), "abc").Return(platform.Principal{UID: "bob"}, nil)

		_, err := serve(t, SessionAuth(creds, principals{p: ann, ok: true}), "Bearer abc")
		assert.True(t, apperrors.IsUnauthenticated(err))
	})

	t.Run("valid token", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		creds := mocks.NewMockCredentialService(ctrl)
		creds.EXPECT().Verify(gomock.Any(), "abc").Return(platform.Principal{UID: "ann"}, nil)

		c, err := serve(t, SessionAuth(creds, principals{p: ann, ok: true}), "bearer abc")
		require.NoError(t, err)
		p, ok := PrincipalFrom(c)
		require.True(t, ok)
		assert.Equal(t, ann, p)

		require.NoError(t, RequirePrincipal()(func(echo.Context) error { return nil })(c))
	})
}

func TestRequirePrincipal(t *testing.T) {
	_, err := serve(t, RequirePrincipal(), "")
	assert.True(t, apperrors.IsUnauthenticated(err))
}

func TestRateLimit(t *testing.T) {
	mw := RateLimit(ratelimit.NewInMemoryLimiter(1, time.Hour, 1))

	_, err := serve(t, mw, "")
	require.NoError(t, err)
	_, err = serve(t, mw, "")
	assert.Equal(t, apperrors.CodeRateLimited, apperrors.GetCode(err))
}

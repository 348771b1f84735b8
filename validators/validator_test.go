package validators

import (
	"testing"

	"github.com/anonto42/nano-midea/app/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Validate(&models.LoginRequest{Email: "ann@x.io", Password: "secret1"}))

	err := v.Validate(&models.RegisterRequest{Email: "not-an-email", Password: "123", Username: "ann"})
	require.Error(t, err)
	var errs validator.ValidationErrors
	require.ErrorAs(t, err, &errs)
	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field())
	}
	assert.ElementsMatch(t, []string{"Email", "Password"}, fields)
}

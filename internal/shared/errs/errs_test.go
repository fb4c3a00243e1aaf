package errs

import (
	"errors"
	"fmt"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errThingMissing = New(KindNotFound, "THING_NOT_FOUND", "thing not found")

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "sentinel", err: errThingMissing, want: KindNotFound},
		{name: "wrapped sentinel", err: fmt.Errorf("lookup: %w", errThingMissing), want: KindNotFound},
		{name: "storage", err: Storage("find book", errors.New("conn refused")), want: KindUnavailable},
		{name: "invalid", err: Invalid("bad"), want: KindInvalid},
		{name: "foreign", err: errors.New("boom"), want: KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestSentinelIdentitySurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("borrow: %w", errThingMissing)
	assert.ErrorIs(t, err, errThingMissing)
	assert.False(t, IsRetryable(err))
}

func TestStorageUnwrapsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Storage("lock book", cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsRetryable(err))
	assert.Contains(t, err.Error(), "lock book")
}

func TestFromValidation(t *testing.T) {
	type req struct{ Email string }
	r := req{}
	verr := validation.ValidateStruct(&r, validation.Field(&r.Email, validation.Required))
	require.Error(t, verr)

	err := FromValidation(verr)
	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, KindInvalid, appErr.Kind)
	details, ok := appErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "Email")
}

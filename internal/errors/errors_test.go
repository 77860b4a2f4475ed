package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *BridgeError
		expected string
	}{
		{
			name:     "error without cause",
			err:      New(CategoryConfig, SeverityFatal, "configuration invalid"),
			expected: "config (fatal): configuration invalid",
		},
		{
			name:     "error with cause",
			err:      Wrap(fmt.Errorf("connection refused"), CategoryNetwork, SeverityWarning, "server unreachable"),
			expected: "network (warning): server unreachable: connection refused",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestWithContext(t *testing.T) {
	err := ServerUnreachable("localhost", 3035, stdErrors.New("refused"))
	assert.Equal(t, "localhost", err.Context["host"])
	assert.Equal(t, 3035, err.Context["port"])
	assert.True(t, err.Retryable)
}

func TestClassificationSeesThroughWrapping(t *testing.T) {
	inner := WrongService("10.0.0.1", 3030)
	wrapped := fmt.Errorf("test connection: %w", inner)

	assert.True(t, IsCategory(wrapped, CategoryIdentity))
	assert.False(t, IsRetryable(wrapped))
	assert.Equal(t, CategoryIdentity, GetCategory(wrapped))
	assert.Equal(t, CategoryInternal, GetCategory(stdErrors.New("plain")))

	be, ok := As(wrapped)
	require.True(t, ok)
	assert.Same(t, inner, be)
}

func TestUnwrap(t *testing.T) {
	cause := stdErrors.New("disk full")
	err := StorageError("save", cause)
	assert.ErrorIs(t, err, cause)
}

func TestCLIErrorAdapter(t *testing.T) {
	a := NewCLIErrorAdapter(false, nil)

	assert.Equal(t, 0, a.ExitCodeFor(nil))
	assert.Equal(t, 1, a.ExitCodeFor(stdErrors.New("x")))
	assert.Equal(t, 7, a.ExitCodeFor(ConfigNotFound("bridgewatch.yaml")))
	assert.Equal(t, 2, a.ExitCodeFor(ValidationFailed("port", "out of range")))
	assert.Equal(t, 8, a.ExitCodeFor(WrongService("localhost", 3035)))
	assert.Equal(t, 9, a.ExitCodeFor(DiscoveryExhausted(12)))

	assert.Equal(t, "configuration file not found", a.FormatError(ConfigNotFound("x")))
	assert.Equal(t, "discovery: no server found", a.FormatError(DiscoveryExhausted(3)))
	assert.Equal(t, "Error: x", a.FormatError(stdErrors.New("x")))

	verbose := NewCLIErrorAdapter(true, nil)
	assert.Equal(t, "discovery (warning): no server found", verbose.FormatError(DiscoveryExhausted(3)))
}

package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_EmptyEndpointIsNoop(t *testing.T) {
	shutdown, err := Setup(context.Background(), "gramstore-test", "")
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	assert.NoError(t, shutdown(context.Background()))
}

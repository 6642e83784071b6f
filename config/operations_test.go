package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOps(t *testing.T) {
	ops, err := Ops("EntityCreate", "EntityRead")
	require.NoError(t, err)
	assert.True(t, ops.IsSupported(EntityCreate))
	assert.True(t, ops.IsSupported(EntityRead))
	assert.False(t, ops.IsSupported(EntityUpdate))
	assert.False(t, ops.IsSupported(EntityDelete))

	_, err = Ops("EntityRename")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid operation")
}

func TestOperationsSetAndClear(t *testing.T) {
	ops := AllOperations
	ops.Clear(EntityDelete)
	assert.True(t, ops.IsSupported(EntityCreate))
	assert.True(t, ops.IsSupported(EntityUpdate))
	assert.False(t, ops.IsSupported(EntityDelete))

	ops.Set(EntityDelete)
	assert.True(t, ops.IsSupported(EntityDelete))
}

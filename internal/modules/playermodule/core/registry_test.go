package core

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mantonx/playerd/internal/errors"
	"github.com/mantonx/playerd/internal/modules/enginemodule"
	"github.com/mantonx/playerd/internal/types"
)

func TestRegistryHandlesMonotonic(t *testing.T) {
	registry := testRegistry()
	engine := enginemodule.NewFakeEngine("fake")
	ctx := context.Background()
	defer registry.DisposeAll(ctx)

	var handles []int64
	for i := 0; i < 3; i++ {
		session, err := registry.Create(ctx, engine, testSource(), types.SessionOptions{})
		require.NoError(t, err)
		handles = append(handles, session.Handle())
	}
	assert.Equal(t, []int64{0, 1, 2}, handles)

	// A freed handle is never handed out again.
	require.NoError(t, registry.Dispose(ctx, 1))
	session, err := registry.Create(ctx, engine, testSource(), types.SessionOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), session.Handle())
}

func TestRegistryGetUnknownHandle(t *testing.T) {
	registry := testRegistry()

	_, err := registry.Get(42)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestRegistryDisposeUnknownHandleIsNoOp(t *testing.T) {
	registry := testRegistry()
	assert.NoError(t, registry.Dispose(context.Background(), 42))
}

func TestRegistryDoubleDispose(t *testing.T) {
	registry := testRegistry()
	engine := enginemodule.NewFakeEngine("fake")
	ctx := context.Background()

	session, err := registry.Create(ctx, engine, testSource(), types.SessionOptions{})
	require.NoError(t, err)

	require.NoError(t, registry.Dispose(ctx, session.Handle()))
	// The handle is already gone, so this is the unknown-handle path.
	assert.NoError(t, registry.Dispose(ctx, session.Handle()))
}

func TestRegistryCreateFailsWhenEngineRefuses(t *testing.T) {
	registry := testRegistry()
	engine := enginemodule.NewFakeEngine("fake")
	engine.OpenErr = fmt.Errorf("binary not found")

	_, err := registry.Create(context.Background(), engine, testSource(), types.SessionOptions{})
	require.Error(t, err)
	// A failed open must not burn a handle.
	assert.Equal(t, 0, registry.SessionCount())

	engine.OpenErr = nil
	session, err := registry.Create(context.Background(), engine, testSource(), types.SessionOptions{})
	require.NoError(t, err)
	defer registry.DisposeAll(context.Background())
	assert.Equal(t, int64(0), session.Handle())
}

func TestRegistryDisposeAll(t *testing.T) {
	registry := testRegistry()
	engine := enginemodule.NewFakeEngine("fake")
	ctx := context.Background()

	// Trivially succeeds with nothing live.
	require.NoError(t, registry.DisposeAll(ctx))

	for i := 0; i < 3; i++ {
		_, err := registry.Create(ctx, engine, testSource(), types.SessionOptions{})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, registry.SessionCount())

	require.NoError(t, registry.DisposeAll(ctx))
	assert.Equal(t, 0, registry.SessionCount())
	assert.Empty(t, registry.ActiveHandles())

	for _, player := range engine.Players() {
		assert.True(t, player.Closed())
	}
}

func TestRegistryActiveHandles(t *testing.T) {
	registry := testRegistry()
	engine := enginemodule.NewFakeEngine("fake")
	ctx := context.Background()
	defer registry.DisposeAll(ctx)

	first, err := registry.Create(ctx, engine, testSource(), types.SessionOptions{})
	require.NoError(t, err)
	second, err := registry.Create(ctx, engine, testSource(), types.SessionOptions{})
	require.NoError(t, err)

	handles := registry.ActiveHandles()
	assert.ElementsMatch(t, []int64{first.Handle(), second.Handle()}, handles)

	require.NoError(t, registry.Dispose(ctx, first.Handle()))
	assert.ElementsMatch(t, []int64{second.Handle()}, registry.ActiveHandles())
}

package services

import (
	"context"

	"github.com/mantonx/playerd/internal/types"
)

// Standard service interface pattern for all modules
//
// Each module should define a clean interface following this pattern:
// - Clear, focused functionality
// - Context-aware operations
// - Proper error handling
// - No internal types exposed

// EngineService defines the clean interface for engine discovery and lookup
type EngineService interface {
	// ListEngines returns the currently discovered engines
	ListEngines() []types.EngineInfo

	// GetEngine retrieves a discovered engine by ID
	GetEngine(engineID string) (types.Engine, error)

	// DefaultEngine returns the engine new sessions use when the caller does
	// not request one explicitly
	DefaultEngine() (types.Engine, error)

	// Refresh rescans the engine directory immediately
	Refresh(ctx context.Context) error
}

// AssetService defines the interface for resolving bundled asset names to
// playable paths
type AssetService interface {
	// ResolveAsset maps an asset name (and optional owning package) to an
	// absolute path an engine can open
	ResolveAsset(ctx context.Context, assetName, assetPackage string) (string, error)

	// ListAssets returns the asset names available under a package ("" for the
	// root package)
	ListAssets(ctx context.Context, assetPackage string) ([]string, error)

	// TitleFor returns a display title for an asset, read from embedded media
	// tags when present and derived from the file name otherwise
	TitleFor(ctx context.Context, assetName, assetPackage string) string
}

// PlayerService defines the interface for playback session control exposed to
// other modules and the server status surface
type PlayerService interface {
	// ActiveHandles returns the handles of all live sessions
	ActiveHandles() []int64

	// SessionCount returns the number of live sessions
	SessionCount() int

	// DisposeAll tears down every live session
	DisposeAll(ctx context.Context) error
}

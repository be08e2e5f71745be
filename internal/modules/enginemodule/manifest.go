package enginemodule

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/mantonx/playerd/internal/types"
)

// SupportedProtocolVersion is the engine protocol this daemon speaks. An
// engine manifest declaring a different version is rejected at discovery
// time instead of failing mid-playback.
const SupportedProtocolVersion = 1

// ManifestFileName is the manifest every engine directory must carry
const ManifestFileName = "engine.cue"

// Manifest describes one playback engine, parsed from its engine.cue file
type Manifest struct {
	SchemaVersion   int    `json:"schema_version"`
	ID              string `json:"id"`
	Name            string `json:"name"`
	Version         string `json:"version"`
	Description     string `json:"description"`
	ProtocolVersion int    `json:"protocol_version"`

	// Type selects the engine driver: "mpv" or "fake"
	Type string `json:"type"`

	// Binary is the player executable. Relative paths resolve against the
	// engine directory; an empty value falls back to the driver default.
	Binary string `json:"binary"`

	// ExtraArgs are appended to the driver's own command line
	ExtraArgs []string `json:"extra_args"`

	Enabled      bool               `json:"enabled"`
	Capabilities types.Capabilities `json:"capabilities"`

	// Path of the manifest this was loaded from, filled by the loader
	Path string `json:"-"`
}

// ManifestParser parses engine.cue manifests
type ManifestParser struct {
	ctx *cue.Context
}

// NewManifestParser creates a new manifest parser
func NewManifestParser() *ManifestParser {
	return &ManifestParser{
		ctx: cuecontext.New(),
	}
}

// ParseManifest loads and validates the engine.cue file in an engine directory.
func (p *ManifestParser) ParseManifest(engineDir string) (*Manifest, error) {
	cueFile := filepath.Join(engineDir, ManifestFileName)
	if _, err := os.Stat(cueFile); err != nil {
		return nil, fmt.Errorf("no %s in %s: %w", ManifestFileName, engineDir, err)
	}

	buildInstances := load.Instances([]string{cueFile}, nil)
	if len(buildInstances) == 0 {
		return nil, fmt.Errorf("no CUE instances found in %s", cueFile)
	}

	buildInstance := buildInstances[0]
	if buildInstance.Err != nil {
		return nil, fmt.Errorf("error loading CUE file: %v", buildInstance.Err)
	}

	value := p.ctx.BuildInstance(buildInstance)
	if value.Err() != nil {
		return nil, fmt.Errorf("error building CUE instance: %v", value.Err())
	}

	engineDef := value.LookupPath(cue.ParsePath("#Engine"))
	if !engineDef.Exists() {
		// Plain top-level manifests without the definition wrapper are
		// accepted too.
		engineDef = value
	}

	manifest := &Manifest{
		// Defaults applied before decode so manifests can omit them.
		SchemaVersion:   1,
		ProtocolVersion: SupportedProtocolVersion,
		Enabled:         true,
	}
	if err := engineDef.Decode(manifest); err != nil {
		return nil, fmt.Errorf("error decoding manifest: %v", err)
	}

	manifest.Path = cueFile
	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	if manifest.Binary != "" && !filepath.IsAbs(manifest.Binary) {
		manifest.Binary = filepath.Join(engineDir, manifest.Binary)
	}

	return manifest, nil
}

// Validate checks the manifest invariants.
func (m *Manifest) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("manifest is missing required field: id")
	}
	if m.Name == "" {
		return fmt.Errorf("manifest %s is missing required field: name", m.ID)
	}
	switch m.Type {
	case "mpv", "fake":
	case "":
		return fmt.Errorf("manifest %s is missing required field: type", m.ID)
	default:
		return fmt.Errorf("manifest %s has unknown engine type: %s", m.ID, m.Type)
	}
	if m.ProtocolVersion != SupportedProtocolVersion {
		return fmt.Errorf("manifest %s declares protocol version %d, this daemon supports %d",
			m.ID, m.ProtocolVersion, SupportedProtocolVersion)
	}
	return nil
}

// Info converts the manifest to the public engine descriptor.
func (m *Manifest) Info() types.EngineInfo {
	return types.EngineInfo{
		ID:              m.ID,
		Name:            m.Name,
		Version:         m.Version,
		ProtocolVersion: m.ProtocolVersion,
		Binary:          m.Binary,
		ManifestPath:    m.Path,
		Description:     m.Description,
	}
}

package enginemodule

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFileName), []byte(content), 0o644))
}

func TestParseManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
#Engine: {
	id:               "mpv-main"
	name:             "MPV"
	version:          "1.2.0"
	description:      "System mpv"
	type:             "mpv"
	protocol_version: 1
	binary:           "/usr/bin/mpv"
	extra_args: ["--hwdec=auto"]
	capabilities: {
		playback_speed: true
		http_headers:   true
	}
}
`)

	parser := NewManifestParser()
	manifest, err := parser.ParseManifest(dir)
	require.NoError(t, err)

	assert.Equal(t, "mpv-main", manifest.ID)
	assert.Equal(t, "MPV", manifest.Name)
	assert.Equal(t, "mpv", manifest.Type)
	assert.Equal(t, "/usr/bin/mpv", manifest.Binary)
	assert.Equal(t, []string{"--hwdec=auto"}, manifest.ExtraArgs)
	assert.True(t, manifest.Enabled)
	assert.True(t, manifest.Capabilities.PlaybackSpeed)
	assert.True(t, manifest.Capabilities.HTTPHeaders)
	assert.False(t, manifest.Capabilities.ContentURI)
	assert.Equal(t, filepath.Join(dir, ManifestFileName), manifest.Path)
}

func TestParseManifestWithoutDefinitionWrapper(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
id:   "fake-dev"
name: "Fake"
type: "fake"
`)

	manifest, err := NewManifestParser().ParseManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, "fake-dev", manifest.ID)
	assert.Equal(t, SupportedProtocolVersion, manifest.ProtocolVersion)
}

func TestParseManifestRelativeBinary(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
id:     "mpv-bundled"
name:   "Bundled MPV"
type:   "mpv"
binary: "bin/mpv"
`)

	manifest, err := NewManifestParser().ParseManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "bin/mpv"), manifest.Binary)
}

func TestParseManifestErrors(t *testing.T) {
	tests := []struct {
		name     string
		manifest string
	}{
		{
			name: "missing id",
			manifest: `
name: "No ID"
type: "fake"
`,
		},
		{
			name: "missing type",
			manifest: `
id:   "no-type"
name: "No Type"
`,
		},
		{
			name: "unknown type",
			manifest: `
id:   "weird"
name: "Weird"
type: "gstreamer"
`,
		},
		{
			name: "unsupported protocol version",
			manifest: `
id:               "future"
name:             "Future"
type:             "fake"
protocol_version: 99
`,
		},
	}

	parser := NewManifestParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeManifest(t, dir, tt.manifest)

			_, err := parser.ParseManifest(dir)
			assert.Error(t, err)
		})
	}
}

func TestParseManifestMissingFile(t *testing.T) {
	_, err := NewManifestParser().ParseManifest(t.TempDir())
	assert.Error(t, err)
}

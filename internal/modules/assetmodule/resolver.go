package assetmodule

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dhowden/tag"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"

	"github.com/mantonx/playerd/internal/errors"
)

// packagePrefix is the subdirectory assets owned by a named package live under
const packagePrefix = "pkg"

// Resolver maps asset names to paths under the asset directory. The
// filesystem is abstracted behind afero so tests run against an in-memory
// backend.
type Resolver struct {
	fs          afero.Afero
	baseDir     string
	maxFileSize int64
	logger      hclog.Logger
}

// NewResolver creates an asset resolver rooted at baseDir. Assets larger
// than maxFileSize bytes are rejected; zero disables the limit.
func NewResolver(fs afero.Fs, baseDir string, maxFileSize int64, logger hclog.Logger) *Resolver {
	return &Resolver{
		fs:          afero.Afero{Fs: fs},
		baseDir:     baseDir,
		maxFileSize: maxFileSize,
		logger:      logger.Named("assets"),
	}
}

// ResolveAsset maps an asset name (and optional owning package) to a path an
// engine can open. Assets owned by a package live under pkg/<package>/.
func (r *Resolver) ResolveAsset(ctx context.Context, assetName, assetPackage string) (string, error) {
	path, err := r.assetPath(assetName, assetPackage)
	if err != nil {
		return "", err
	}

	exists, err := r.fs.Exists(path)
	if err != nil {
		return "", errors.NewInternalError("failed to check asset", err)
	}
	if !exists {
		return "", errors.NewNotFoundError("asset", displayName(assetName, assetPackage))
	}

	info, err := r.fs.Stat(path)
	if err != nil {
		return "", errors.NewInternalError("failed to check asset", err)
	}
	if info.IsDir() {
		return "", errors.NewNotFoundError("asset", displayName(assetName, assetPackage))
	}
	if r.maxFileSize > 0 && info.Size() > r.maxFileSize {
		return "", errors.NewValidationError(
			fmt.Sprintf("asset %s exceeds the configured size limit (%d > %d bytes)",
				displayName(assetName, assetPackage), info.Size(), r.maxFileSize), "asset")
	}

	return path, nil
}

// ListAssets returns the asset names available under a package ("" for the
// root package), sorted.
func (r *Resolver) ListAssets(ctx context.Context, assetPackage string) ([]string, error) {
	dir := r.baseDir
	if assetPackage != "" {
		var err error
		if dir, err = r.packageDir(assetPackage); err != nil {
			return nil, err
		}
	}

	entries, err := afero.ReadDir(r.fs, dir)
	if err != nil {
		return nil, errors.NewNotFoundError("asset package", assetPackage)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// TitleFor returns a display title for an asset. Embedded media tags win;
// otherwise the file name without its extension is used.
func (r *Resolver) TitleFor(ctx context.Context, assetName, assetPackage string) string {
	fallback := strings.TrimSuffix(filepath.Base(assetName), filepath.Ext(assetName))

	path, err := r.ResolveAsset(ctx, assetName, assetPackage)
	if err != nil {
		return fallback
	}

	f, err := r.fs.Open(path)
	if err != nil {
		return fallback
	}
	defer f.Close()

	meta, err := tag.ReadFrom(f)
	if err != nil || meta.Title() == "" {
		return fallback
	}
	return meta.Title()
}

// assetPath joins and validates the path for an asset, rejecting traversal
// outside the asset directory.
func (r *Resolver) assetPath(assetName, assetPackage string) (string, error) {
	if assetName == "" {
		return "", errors.NewValidationError("asset name is required", "asset")
	}

	dir := r.baseDir
	if assetPackage != "" {
		var err error
		if dir, err = r.packageDir(assetPackage); err != nil {
			return "", err
		}
	}

	path := filepath.Join(dir, filepath.FromSlash(assetName))
	if !strings.HasPrefix(filepath.Clean(path), filepath.Clean(r.baseDir)+string(filepath.Separator)) {
		return "", errors.NewValidationError("asset name escapes the asset directory", "asset")
	}
	return path, nil
}

func (r *Resolver) packageDir(assetPackage string) (string, error) {
	if strings.ContainsAny(assetPackage, `/\`) || assetPackage == ".." {
		return "", errors.NewValidationError("invalid package name", "package")
	}
	return filepath.Join(r.baseDir, packagePrefix, assetPackage), nil
}

func displayName(assetName, assetPackage string) string {
	if assetPackage == "" {
		return assetName
	}
	return fmt.Sprintf("%s/%s", assetPackage, assetName)
}

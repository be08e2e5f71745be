// Command validate-engines checks engine.cue manifests without starting the
// daemon. Point it at an engine directory (or a directory of engine
// directories) and it reports what playerd would discover.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mantonx/playerd/internal/modules/enginemodule"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <engine-dir> [engine-dir...]\n", filepath.Base(os.Args[0]))
		os.Exit(2)
	}

	parser := enginemodule.NewManifestParser()
	failures := 0

	for _, root := range os.Args[1:] {
		for _, dir := range engineDirs(root) {
			manifest, err := parser.ParseManifest(dir)
			if err != nil {
				fmt.Printf("FAIL %s: %v\n", dir, err)
				failures++
				continue
			}

			mark := "PASS"
			if !manifest.Enabled {
				mark = "SKIP"
			}
			fmt.Printf("%s %s: %s %q version=%s protocol=%d\n",
				mark, dir, manifest.Type, manifest.ID, manifest.Version, manifest.ProtocolVersion)
		}
	}

	if failures > 0 {
		fmt.Printf("\n%d manifest(s) failed validation\n", failures)
		os.Exit(1)
	}
}

// engineDirs returns root itself when it holds a manifest, otherwise its
// immediate subdirectories that do.
func engineDirs(root string) []string {
	if _, err := os.Stat(filepath.Join(root, "engine.cue")); err == nil {
		return []string{root}
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot read %s: %v\n", root, err)
		return nil
	}

	var dirs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, "engine.cue")); err == nil {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

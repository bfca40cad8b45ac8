/*
Copyright 2025-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package generator

import (
	"bufio"
	"bytes"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// ManifestName lists the bundle directories owned by the last run, so that
// bundles of members that left the ensemble can be removed.
const ManifestName = ".zkensemble-bundles"

// WriteBundles writes every bundle of result below dir.  All files are
// written to a staging directory first and each bundle directory is then
// swapped in with a rename, so a reader of one bundle never sees a mix of
// two runs.  Bundle directories from the previous run that are not part of
// result are removed.
func WriteBundles(fs afero.Fs, dir string, result *Result) error {
	err := fs.MkdirAll(dir, 0o755)
	if err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}

	stagingDir, err := afero.TempDir(fs, dir, ".staging-")
	if err != nil {
		return errors.Wrap(err, "failed to create staging directory")
	}
	defer func() { _ = fs.RemoveAll(stagingDir) }()

	retiredDir, err := afero.TempDir(fs, dir, ".retired-")
	if err != nil {
		return errors.Wrap(err, "failed to create retired directory")
	}
	defer func() { _ = fs.RemoveAll(retiredDir) }()

	bundleDirs := make([]string, 0, len(result.Bundles))
	for _, bundle := range result.Bundles {
		err := stageBundle(fs, stagingDir, bundle)
		if err != nil {
			return err
		}
		bundleDirs = append(bundleDirs, bundle.Dir())
	}

	previousDirs, err := readManifest(fs, dir)
	if err != nil {
		return err
	}

	for _, bundleDir := range bundleDirs {
		targetPath := filepath.Join(dir, bundleDir)

		err := retire(fs, targetPath, filepath.Join(retiredDir, bundleDir))
		if err != nil {
			return err
		}

		err = fs.Rename(filepath.Join(stagingDir, bundleDir), targetPath)
		if err != nil {
			return errors.Wrapf(err, "failed to move bundle %s into place", bundleDir)
		}
	}

	current := make(map[string]struct{}, len(bundleDirs))
	for _, bundleDir := range bundleDirs {
		current[bundleDir] = struct{}{}
	}
	for _, previousDir := range previousDirs {
		if _, ok := current[previousDir]; ok {
			continue
		}

		err := retire(fs, filepath.Join(dir, previousDir), filepath.Join(retiredDir, previousDir))
		if err != nil {
			return err
		}
	}

	return writeManifest(fs, dir, stagingDir, bundleDirs)
}

func stageBundle(fs afero.Fs, stagingDir string, bundle *Bundle) error {
	bundleDir := bundle.Dir()

	for _, file := range bundle.Files {
		relPath := path.Clean(file.Path)
		if path.IsAbs(relPath) || relPath == ".." || strings.HasPrefix(relPath, "../") {
			return errors.Errorf("bundle %s has file outside of its directory: %s", bundleDir, file.Path)
		}

		filePath := filepath.Join(stagingDir, bundleDir, filepath.FromSlash(relPath))
		err := fs.MkdirAll(filepath.Dir(filePath), 0o755)
		if err != nil {
			return errors.Wrapf(err, "failed to create directory for %s", filePath)
		}

		mode := file.Mode
		if mode == 0 {
			mode = 0o644
		}

		err = afero.WriteFile(fs, filePath, file.Data, mode)
		if err != nil {
			return errors.Wrapf(err, "failed to write %s", filePath)
		}
	}

	return nil
}

func retire(fs afero.Fs, fromPath, toPath string) error {
	exists, err := afero.Exists(fs, fromPath)
	if err != nil {
		return errors.Wrapf(err, "failed to stat %s", fromPath)
	}
	if !exists {
		return nil
	}

	err = fs.Rename(fromPath, toPath)
	if err != nil {
		return errors.Wrapf(err, "failed to retire %s", fromPath)
	}

	return nil
}

func readManifest(fs afero.Fs, dir string) ([]string, error) {
	manifestPath := filepath.Join(dir, ManifestName)

	exists, err := afero.Exists(fs, manifestPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to stat manifest")
	}
	if !exists {
		return nil, nil
	}

	data, err := afero.ReadFile(fs, manifestPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read manifest")
	}

	var bundleDirs []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// never follow entries that would escape the output directory
		if line == "" || strings.ContainsAny(line, `/\`) || line == ".." || line == "." {
			continue
		}
		bundleDirs = append(bundleDirs, line)
	}

	return bundleDirs, scanner.Err()
}

func writeManifest(fs afero.Fs, dir, stagingDir string, bundleDirs []string) error {
	var buf bytes.Buffer
	for _, bundleDir := range bundleDirs {
		buf.WriteString(bundleDir)
		buf.WriteByte('\n')
	}

	stagedPath := filepath.Join(stagingDir, ManifestName)
	err := afero.WriteFile(fs, stagedPath, buf.Bytes(), 0o644)
	if err != nil {
		return errors.Wrap(err, "failed to write manifest")
	}

	err = fs.Rename(stagedPath, filepath.Join(dir, ManifestName))
	if err != nil {
		return errors.Wrap(err, "failed to move manifest into place")
	}

	return nil
}

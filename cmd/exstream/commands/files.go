package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/fivetwenty-io/exstream-client/internal/constants"
	"github.com/fivetwenty-io/exstream-client/pkg/exstream"
)

// openInputFile opens a regular file for upload.
func openInputFile(fs afero.Fs, path string) (afero.File, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to access %s: %w", path, err)
	}

	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", constants.ErrNotRegularFile, path)
	}

	file, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	return file, nil
}

// readInputFile reads a regular file, such as a driver data file.
func readInputFile(fs afero.Fs, path string) ([]byte, error) {
	file, err := openInputFile(fs, path)
	if err != nil {
		return nil, err
	}

	defer func() { _ = file.Close() }()

	data, err := afero.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return data, nil
}

// outputPath joins name to dir, refusing names that leave dir.
func outputPath(dir, name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: %q", constants.ErrDirectoryTraversalDetected, name)
	}

	return filepath.Join(dir, name), nil
}

// saveOutputs writes each output to dir as fileName.fileExtension and
// returns the written paths.
func saveOutputs(fs afero.Fs, dir string, outputs []exstream.GeneratedOutput) ([]string, error) {
	err := fs.MkdirAll(dir, constants.ConfigDirPerm)
	if err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	paths := make([]string, 0, len(outputs))

	for index := range outputs {
		path, err := outputPath(dir, outputs[index].OutputFileName())
		if err != nil {
			return paths, err
		}

		err = afero.WriteFile(fs, path, outputs[index].Content, constants.OutputFilePerm)
		if err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", path, err)
		}

		paths = append(paths, path)
	}

	return paths, nil
}

// saveContent writes raw content to path.
func saveContent(fs afero.Fs, path string, content []byte) error {
	dir := filepath.Dir(path)

	err := fs.MkdirAll(dir, constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	err = afero.WriteFile(fs, path, content, constants.OutputFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}

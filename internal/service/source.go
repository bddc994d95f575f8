package service

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// sampleExts are the file extensions offered by the sample-data loader.
var sampleExts = map[string]string{
	".geojson": "GeoJSON",
	".json":    "GeoJSON",
}

// SampleService lists and resolves bundled sample GeoJSON files.
type SampleService struct {
	samplesDir string
}

// NewSampleService creates a sample service rooted at <dataDir>/samples.
func NewSampleService(dataDir string) *SampleService {
	return &SampleService{
		samplesDir: filepath.Join(dataDir, "samples"),
	}
}

// List returns all available sample files.
func (s *SampleService) List() ([]SampleFile, error) {
	entries, err := os.ReadDir(s.samplesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []SampleFile{}, nil
		}
		return nil, errors.Wrap(err, "reading samples directory")
	}

	files := []SampleFile{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		fileType, ok := sampleExts[strings.ToLower(filepath.Ext(entry.Name()))]
		if !ok {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		files = append(files, SampleFile{
			Name:     entry.Name(),
			Size:     formatSize(info.Size()),
			FileType: fileType,
		})
	}

	return files, nil
}

// Path validates a sample file name and returns its full path.
func (s *SampleService) Path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", errors.Wrapf(ErrInvalidName, "sample %q", name)
	}
	if _, ok := sampleExts[strings.ToLower(filepath.Ext(name))]; !ok {
		return "", errors.Wrapf(ErrInvalidName, "unsupported sample type %q", filepath.Ext(name))
	}

	p := filepath.Join(s.samplesDir, name)
	if _, err := os.Stat(p); err != nil {
		if os.IsNotExist(err) {
			return "", errors.Wrap(ErrNotFound, "sample "+name)
		}
		return "", errors.Wrap(err, "stat sample")
	}
	return p, nil
}

// SamplesDir returns the path to the samples directory.
func (s *SampleService) SamplesDir() string {
	return s.samplesDir
}

// formatSize returns a human-readable file size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

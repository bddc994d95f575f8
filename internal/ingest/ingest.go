// Package ingest reads user-supplied GeoJSON files and hands each parsed
// FeatureCollection to the layer store as soon as it is ready.
package ingest

import (
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// DefaultLimit caps concurrent file reads per batch.
const DefaultLimit = 4

// Extensions accepted for upload.
var Extensions = []string{".geojson", ".json"}

// File is one user-supplied file.
type File struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// FromPath wraps a file on disk.
func FromPath(path string) File {
	return File{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// FromMultipart wraps an uploaded multipart file.
func FromMultipart(fh *multipart.FileHeader) File {
	return File{
		Name: fh.Filename,
		Open: func() (io.ReadCloser, error) { return fh.Open() },
	}
}

// Alert reports a file that could not be loaded.
type Alert struct {
	File    string `json:"file" doc:"File name"`
	Message string `json:"message" doc:"Why the file was skipped"`
}

// Report summarizes one batch.
type Report struct {
	Batch  string   `json:"batch" doc:"Batch id"`
	Added  []string `json:"added" doc:"IDs of layers created, in completion order"`
	Alerts []Alert  `json:"alerts" doc:"Files that failed to load"`
}

// ApplyFunc hands a parsed collection to the layer store and returns the
// new layer id.
type ApplyFunc func(fc *geojson.FeatureCollection, name string) (string, error)

// Ingester loads batches of files.
type Ingester struct {
	limit int
}

// New creates an ingester reading at most limit files at once.
func New(limit int) *Ingester {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Ingester{limit: limit}
}

// Ingest reads every file concurrently. Each success is applied as soon as
// it is parsed, so layers from one batch arrive in no particular order. A
// failing file is reported and skipped; it never aborts the batch.
func (i *Ingester) Ingest(files []File, apply ApplyFunc) Report {
	report := Report{Batch: uuid.NewString(), Added: []string{}, Alerts: []Alert{}}
	logger := log.WithField("batch", report.Batch)

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(i.limit)

	for _, f := range files {
		g.Go(func() error {
			id, err := load(f, apply)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.WithField("file", f.Name).WithError(err).Warn("skipping file")
				report.Alerts = append(report.Alerts, Alert{File: f.Name, Message: err.Error()})
				return nil
			}
			logger.WithFields(log.Fields{"file": f.Name, "layer": id}).Info("layer loaded")
			report.Added = append(report.Added, id)
			return nil
		})
	}
	_ = g.Wait()

	return report
}

func load(f File, apply ApplyFunc) (string, error) {
	if !Accepts(f.Name) {
		return "", errors.Errorf("unsupported file type %q, expected .geojson or .json", filepath.Ext(f.Name))
	}

	rc, err := f.Open()
	if err != nil {
		return "", errors.Wrap(err, "opening file")
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", errors.Wrap(err, "reading file")
	}

	fc, err := Parse(data)
	if err != nil {
		return "", err
	}
	return apply(fc, f.Name)
}

// Accepts reports whether name has an accepted extension.
func Accepts(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Parse decodes a GeoJSON FeatureCollection.
func Parse(data []byte) (*geojson.FeatureCollection, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrap(err, "invalid GeoJSON")
	}
	if fc.Type != "FeatureCollection" {
		return nil, errors.Errorf("invalid GeoJSON: type %q is not a FeatureCollection", fc.Type)
	}
	for i, f := range fc.Features {
		if f == nil {
			return nil, errors.Errorf("invalid GeoJSON: feature %d is null", i)
		}
	}
	return fc, nil
}

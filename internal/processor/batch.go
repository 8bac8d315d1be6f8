package processor

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/woozymasta/kadastr/internal/geo"

	"github.com/rs/zerolog/log"
)

type job struct {
	pos  int
	path string
}

type result struct {
	pos int
	res *Result
}

// ProcessBatch processes files with a bounded worker pool. Results are
// returned in input order; a file that cannot be read or parsed yields a
// Result with Err set and does not stop the batch.
func ProcessBatch(paths []string, concurrency int, opts Options) []*Result {
	if concurrency <= 0 {
		concurrency = 1
	}
	if concurrency > len(paths) {
		concurrency = len(paths)
	}

	jobs := make(chan job, len(paths))
	results := make(chan result, len(paths))

	go func() {
		for i, p := range paths {
			jobs <- job{pos: i, path: p}
		}
		close(jobs)
	}()

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				fileOpts := opts
				fileOpts.Logger = opts.Logger.With().Str("file", j.path).Logger()
				fileOpts.Measure.Logger = fileOpts.Logger

				res, err := ProcessFile(j.path, fileOpts)
				if err != nil {
					fileOpts.Logger.Error().Err(err).Msg("Failed to process KML file")
					res = &Result{Path: j.path, Err: err, Collection: geo.NewFeatureCollection(nil)}
				}
				results <- result{pos: j.pos, res: res}
			}
		}()
	}
	wg.Wait()
	close(results)

	ordered := make([]*Result, len(paths))
	for r := range results {
		ordered[r.pos] = r.res
	}
	return ordered
}

// OutputPath returns the default output file for a KML input: the same
// directory and base name with a .geojson (or .yaml) extension.
func OutputPath(input, format string) string {
	ext := ".geojson"
	if format == "yaml" {
		ext = ".yaml"
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + ext
}

// SaveFeatureCollection writes the collection to path, creating the parent
// directory when needed.
func SaveFeatureCollection(path string, fc geo.GeoJSONFeatureCollection, format string, indent int) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	// We care about write errors on close
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Error().Err(closeErr).Str("path", path).Msg("Failed to close file")
			if err == nil {
				err = closeErr
			}
		}
	}()

	return geo.EncodeFeatureCollection(f, fc, format, indent)
}

// Merge combines the features of several results into one collection, in
// result order. Failed results contribute nothing.
func Merge(results []*Result) geo.GeoJSONFeatureCollection {
	var features []geo.GeoJSONFeature
	for _, r := range results {
		if r == nil || r.Err != nil {
			continue
		}
		features = append(features, r.Collection.Features...)
	}
	return geo.NewFeatureCollection(features)
}

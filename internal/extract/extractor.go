package extract

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ferrors "git.home.luguber.info/inful/formulary/internal/foundation/errors"
	"git.home.luguber.info/inful/formulary/internal/logfields"
	"git.home.luguber.info/inful/formulary/internal/recordset"
	"git.home.luguber.info/inful/formulary/internal/timefmt"
)

// Stats summarizes one extraction run.
type Stats struct {
	FilesScanned int `json:"filesScanned"`
	Records      int `json:"records"`
	Skipped      int `json:"skipped"`
	Duplicates   int `json:"duplicates"`
}

// Extractor walks a source tree and produces a RecordSet.
type Extractor struct {
	root       string
	sourceName string
	extensions []string
	timestamps TimestampSource
	clock      timefmt.Clock
	logger     *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithExtensions replaces the candidate file extensions (default ".rb").
func WithExtensions(exts ...string) Option {
	return func(e *Extractor) {
		if len(exts) > 0 {
			e.extensions = exts
		}
	}
}

// WithTimestampSource selects where record timestamps come from.
func WithTimestampSource(src TimestampSource) Option {
	return func(e *Extractor) {
		if src != nil {
			e.timestamps = src
		}
	}
}

// WithClock sets the clock used for generatedAt.
func WithClock(c timefmt.Clock) Option {
	return func(e *Extractor) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithLogger sets the logger used for per-file warnings.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Extractor for the definition files under root.
func New(root, sourceName string, opts ...Option) *Extractor {
	e := &Extractor{
		root:       root,
		sourceName: sourceName,
		extensions: []string{".rb"},
		timestamps: MTimeSource{},
		clock:      timefmt.SystemClock{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run extracts every definition file and returns the sorted record set.
// Unreadable or undeclared files are skipped with a warning; only a missing
// or unreadable source root fails the run.
func (e *Extractor) Run(ctx context.Context) (*recordset.RecordSet, Stats, error) {
	var stats Stats

	info, err := os.Stat(e.root)
	if err != nil {
		return nil, stats, ferrors.ExtractError("source directory not accessible").
			WithCause(err).UserAction().WithContext("path", e.root).Build()
	}
	if !info.IsDir() {
		return nil, stats, ferrors.ExtractError("source path is not a directory").
			UserAction().WithContext("path", e.root).Build()
	}

	paths, err := e.discover()
	if err != nil {
		return nil, stats, err
	}

	byName := make(map[string]recordset.Record, len(paths))
	for _, rel := range paths {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		stats.FilesScanned++
		rec, ok := e.extractFile(rel)
		if !ok {
			stats.Skipped++
			continue
		}
		if prev, dup := byName[rec.Name]; dup {
			stats.Duplicates++
			e.logger.Warn("Duplicate package name, later file wins",
				logfields.Name(rec.Name),
				slog.String("previous", prev.RelativeFilePath),
				logfields.File(rec.RelativeFilePath))
		}
		byName[rec.Name] = rec
	}

	records := make([]recordset.Record, 0, len(byName))
	for _, rec := range byName {
		records = append(records, rec)
	}
	set := recordset.New(e.sourceName, e.clock.Now(), records)
	stats.Records = set.Count
	return set, stats, nil
}

// discover returns candidate files as sorted slash-separated relative paths.
func (e *Extractor) discover() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(e.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == e.root {
				return err
			}
			e.logger.Warn("Skipping unreadable path", logfields.Path(path), logfields.Error(err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path != e.root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !e.hasExtension(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(e.root, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, ferrors.ExtractError("walk source directory").WithCause(err).
			WithContext("path", e.root).Build()
	}
	sort.Strings(paths)
	return paths, nil
}

func (e *Extractor) hasExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range e.extensions {
		if ext == want {
			return true
		}
	}
	return false
}

func (e *Extractor) extractFile(rel string) (recordset.Record, bool) {
	abs := filepath.Join(e.root, filepath.FromSlash(rel))
	info, err := os.Stat(abs)
	if err != nil {
		e.logger.Warn("Skipping unreadable definition", logfields.File(rel), logfields.Error(err))
		return recordset.Record{}, false
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		e.logger.Warn("Skipping unreadable definition", logfields.File(rel), logfields.Error(err))
		return recordset.Record{}, false
	}
	def, ok := ParseDefinition(string(data))
	if !ok {
		e.logger.Warn("Skipping definition without a type declaration", logfields.File(rel))
		return recordset.Record{}, false
	}
	name := KebabName(def.TypeName)
	if name == "" {
		e.logger.Warn("Skipping definition with an empty name", logfields.File(rel))
		return recordset.Record{}, false
	}
	return recordset.Record{
		Name:                  name,
		DeclaredTypeName:      def.TypeName,
		Description:           def.Description,
		HomepageURL:           def.Homepage,
		SourceURL:             def.SourceURL,
		Version:               def.Version,
		Checksum:              def.Checksum,
		License:               def.License,
		Dependencies:          def.Dependencies,
		BuildDependencies:     def.BuildDependencies,
		RelativeFilePath:      rel,
		LastModifiedTimestamp: recordset.FormatTimestamp(e.timestamps.ModTime(abs, info)),
	}, true
}

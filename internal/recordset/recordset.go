// Package recordset defines the package records produced by extraction and
// the JSON document that hands them to rendering.
package recordset

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	ferrors "git.home.luguber.info/inful/formulary/internal/foundation/errors"
)

// Record is the metadata extracted from one definition file.
type Record struct {
	Name                  string   `json:"name"`
	DeclaredTypeName      string   `json:"declaredTypeName"`
	Description           string   `json:"description,omitempty"`
	HomepageURL           string   `json:"homepageUrl,omitempty"`
	SourceURL             string   `json:"sourceUrl,omitempty"`
	Version               string   `json:"version,omitempty"`
	Checksum              string   `json:"checksum,omitempty"`
	License               string   `json:"license,omitempty"`
	Dependencies          []string `json:"dependencies"`
	BuildDependencies     []string `json:"buildDependencies,omitempty"`
	RelativeFilePath      string   `json:"relativeFilePath"`
	LastModifiedTimestamp string   `json:"lastModifiedTimestamp"`
}

// RecordSet is the intermediate data file written by extraction.
type RecordSet struct {
	SourceName  string   `json:"sourceName"`
	GeneratedAt string   `json:"generatedAt"`
	Count       int      `json:"count"`
	Records     []Record `json:"records"`
}

// New assembles a RecordSet with records sorted by name and Count set.
func New(sourceName string, generatedAt time.Time, records []Record) *RecordSet {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	for i := range sorted {
		if sorted[i].Dependencies == nil {
			sorted[i].Dependencies = []string{}
		}
	}
	return &RecordSet{
		SourceName:  sourceName,
		GeneratedAt: FormatTimestamp(generatedAt),
		Count:       len(sorted),
		Records:     sorted,
	}
}

// FormatTimestamp renders t the way every timestamp in a RecordSet is stored.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// Find returns the record named name. A hand-edited data file may not be
// sorted, so the lookup does not rely on order.
func (s *RecordSet) Find(name string) (Record, bool) {
	i := slices.IndexFunc(s.Records, func(r Record) bool { return r.Name == name })
	if i < 0 {
		return Record{}, false
	}
	return s.Records[i], true
}

// Marshal encodes the set with two-space indentation and a trailing newline.
func (s *RecordSet) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write stores the set at path, creating parent directories. The file is
// written to a temporary sibling and renamed into place.
func Write(path string, s *RecordSet) error {
	data, err := s.Marshal()
	if err != nil {
		return ferrors.InternalError("encode record set").WithCause(err).Build()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return ferrors.FileSystemError("create data directory").WithCause(err).
			WithContext("path", filepath.Dir(path)).Build()
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return ferrors.FileSystemError("write data file").WithCause(err).WithContext("path", tmp).Build()
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return ferrors.FileSystemError("replace data file").WithCause(err).WithContext("path", path).Build()
	}
	return nil
}

// Read loads and validates the set stored at path.
func Read(path string) (*RecordSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ferrors.NewError(ferrors.CategoryNotFound, "data file not found (run parse first)").
				Fatal().UserAction().WithCause(err).WithContext("path", path).Build()
		}
		return nil, ferrors.FileSystemError("read data file").WithCause(err).WithContext("path", path).Build()
	}
	s, err := Decode(data)
	if err != nil {
		if ce, ok := ferrors.AsClassified(err); ok {
			return nil, ce.WithContext("path", path)
		}
		return nil, err
	}
	return s, nil
}

// Decode validates data against the record set schema and decodes it.
func Decode(data []byte) (*RecordSet, error) {
	if err := Validate(data); err != nil {
		return nil, ferrors.RenderError("data file failed schema validation").WithCause(err).Build()
	}
	var s RecordSet
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, ferrors.RenderError("decode data file").WithCause(err).Build()
	}
	if s.Count != len(s.Records) {
		return nil, ferrors.RenderError(fmt.Sprintf("data file count %d does not match %d records", s.Count, len(s.Records))).Build()
	}
	for i := range s.Records {
		if s.Records[i].Dependencies == nil {
			s.Records[i].Dependencies = []string{}
		}
	}
	return &s, nil
}

//go:embed schema.json
var schemaJSON string

var schemaLoader = gojsonschema.NewStringLoader(schemaJSON)

// SchemaError lists every violation reported by schema validation.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return "schema violations: " + strings.Join(e.Violations, "; ")
}

// Validate checks data against the embedded draft-07 record set schema.
func Validate(data []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if result.Valid() {
		return nil
	}
	violations := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		violations = append(violations, field+": "+desc.Description())
	}
	return &SchemaError{Violations: violations}
}

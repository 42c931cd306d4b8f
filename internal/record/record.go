// Package record loads dataset metadata from the supported repository APIs
// and normalizes it into models.Record.
package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/microcosm-cc/bluemonday"
	"github.com/tidwall/gjson"

	"github.com/joescharf/curate/internal/models"
)

// ErrUnknownFormat is returned when a document matches none of the
// supported schemas.
var ErrUnknownFormat = errors.New("unknown record format")

// Detect identifies the schema of a raw API document by its shape.
func Detect(raw []byte) (models.Source, error) {
	if !gjson.ValidBytes(raw) {
		return "", fmt.Errorf("%w: invalid JSON", ErrUnknownFormat)
	}
	doc := gjson.ParseBytes(raw)
	switch {
	case doc.Get("data.attributes").IsObject():
		return models.SourceDataCite, nil
	case doc.Get(`metadata.dc\.title`).Exists() || (doc.Get("uuid").Exists() && doc.Get("metadata").IsObject() && doc.Get("handle").Exists()):
		return models.SourceDSpace, nil
	case doc.Get("metadata.creators.0.person_or_org").Exists() || doc.Get("access.record").Exists() || doc.Get("pids").IsObject():
		return models.SourceInvenioRDM, nil
	case doc.Get("metadata").IsObject():
		return models.SourceZenodo, nil
	}
	return "", ErrUnknownFormat
}

// Decode detects the schema of raw and converts it to a Record.
func Decode(raw []byte) (*models.Record, error) {
	src, err := Detect(raw)
	if err != nil {
		return nil, err
	}
	return DecodeAs(src, raw)
}

// DecodeAs converts raw using the adapter of the given schema.
func DecodeAs(src models.Source, raw []byte) (*models.Record, error) {
	var (
		r   *models.Record
		err error
	)
	switch src {
	case models.SourceDataCite:
		r, err = decodeDataCite(raw)
	case models.SourceZenodo:
		r, err = decodeZenodo(raw)
	case models.SourceInvenioRDM:
		r, err = decodeInvenio(raw)
	case models.SourceDSpace:
		r, err = decodeDSpace(raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, src)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s record: %w", src, err)
	}
	r.Source = src
	return r, nil
}

// unmarshalLenient decodes raw into v. Members whose JSON type does not match
// their field are left at their zero value instead of failing the whole
// document; only syntax errors are returned.
func unmarshalLenient(raw []byte, v any) error {
	err := json.Unmarshal(raw, v)
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		slog.Debug("record field skipped", "field", typeErr.Field, "json_type", typeErr.Value)
		return nil
	}
	return err
}

// flexString accepts either a JSON string or an object carrying the text
// under one of a few well-known keys. Numbers and booleans keep their
// literal text, an array yields its first element and anything else is
// read as empty.
type flexString string

var flexKeys = []string{"name", "subject", "value", "title", "id", "en"}

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil || len(items) == 0 {
			*f = ""
			return nil
		}
		return f.UnmarshalJSON(items[0])
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		for _, k := range flexKeys {
			if v, ok := obj[k]; ok {
				return f.UnmarshalJSON(v)
			}
		}
		*f = ""
		return nil
	}
	*f = flexString(data)
	return nil
}

// flexList accepts a single flexString or an array of them. A JSON null
// leaves the list nil.
type flexList []flexString

func (l *flexList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] == '[' {
		var items []flexString
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		if items == nil {
			items = []flexString{}
		}
		*l = items
		return nil
	}
	var one flexString
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*l = flexList{one}
	return nil
}

// fileSize is a byte count that stays unset unless the JSON value is a
// non-negative integer.
type fileSize struct{ n *int64 }

func (s *fileSize) UnmarshalJSON(data []byte) error {
	s.n = nil
	if n, err := strconv.ParseInt(string(bytes.TrimSpace(data)), 10, 64); err == nil && n >= 0 {
		s.n = &n
	}
	return nil
}

// values returns the non-empty trimmed values. A nil list stays nil.
func (l flexList) values() []string {
	if l == nil {
		return nil
	}
	out := make([]string, 0, len(l))
	for _, s := range l {
		if v := strings.TrimSpace(string(s)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

var (
	strictPolicy = bluemonday.StrictPolicy()
	blockTags    = regexp.MustCompile(`(?i)<\s*(br|/p|/div|/li|/h[1-6])\s*/?>`)
	spaces       = regexp.MustCompile(`[ \t]+`)
	blankLines   = regexp.MustCompile(`\n{3,}`)
)

// PlainText strips all markup from an HTML fragment.
func PlainText(fragment string) string {
	s := blockTags.ReplaceAllString(fragment, "$0\n")
	s = html.UnescapeString(strictPolicy.Sanitize(s))
	s = spaces.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	s = blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(s)
}

// Markdown converts an HTML fragment to markdown. It falls back to plain
// text when conversion fails.
func Markdown(fragment string) string {
	conv := md.NewConverter("", true, nil)
	out, err := conv.ConvertString(fragment)
	if err != nil {
		return PlainText(fragment)
	}
	return strings.TrimSpace(out)
}

// setDescription stores the description of r. present tells whether the
// upstream document carried the field at all.
func setDescription(r *models.Record, fragment string, present bool) {
	if !present {
		return
	}
	text := PlainText(fragment)
	r.Description = &text
	r.DescriptionHTML = fragment
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func normalizeORCID(v string) string {
	v = strings.TrimSpace(v)
	for _, p := range []string{"https://orcid.org/", "http://orcid.org/", "orcid.org/"} {
		v = strings.TrimPrefix(v, p)
	}
	return v
}

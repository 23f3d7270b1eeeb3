// Package source turns a raw byte stream into the in-memory value tree the
// analyzer consumes: character-set detection, format detection (JSON, CSV
// or YAML), CSV dialect sniffing, and decoding. Extension-keyed loaders for
// binary tabular formats live in the tabular sub-package.
package source

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/ianaindex"
	"gopkg.in/yaml.v3"
)

// Format identifies a detected input format.
type Format string

const (
	FormatAuto    Format = "auto"
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
	FormatYAML    Format = "yaml"
	FormatXML     Format = "xml"
	FormatUnknown Format = "unknown"
)

// ErrUnknownFormat is returned when no format could be guessed from the
// sample.
var ErrUnknownFormat = errors.New("source: unable to guess data format")

// ErrXMLUnsupported is returned for XML inputs, which are detected but not
// analyzed.
var ErrXMLUnsupported = errors.New("source: XML input is not supported")

// Options control sniffing and decoding. The zero value means detect
// everything.
type Options struct {
	// Encoding is an IANA character set name, or "auto"/"" to detect.
	Encoding string
	// EncodingStrict fails on undecodable bytes instead of replacing
	// them.
	EncodingStrict bool
	// Format forces the input format instead of detecting it.
	Format Format
	// CSVDelimiter is a single delimiter character, or "auto"/"" to
	// sniff among comma, semicolon, tab and space.
	CSVDelimiter string
	// SampleLimit bounds the bytes read for detection (default 1 MiB).
	SampleLimit int
	// OnWarning receives non-fatal sniffing observations.
	OnWarning func(msg string)
}

// Source wraps a byte stream and lazily detects its encoding, format and
// CSV dialect before decoding the full payload.
type Source struct {
	opts     Options
	reader   io.Reader
	sample   []byte
	sampled  bool
	encoding string
	format   Format
	delim    rune
}

// New returns a Source over r.
func New(r io.Reader, opts Options) *Source {
	if opts.SampleLimit <= 0 {
		opts.SampleLimit = 1 << 20
	}
	if opts.Format == "" {
		opts.Format = FormatAuto
	}
	return &Source{opts: opts, reader: r}
}

func (s *Source) warn(msg string) {
	slog.Debug("source warning", "msg", msg)
	if s.opts.OnWarning != nil {
		s.opts.OnWarning(msg)
	}
}

func (s *Source) sampleBytes() ([]byte, error) {
	if !s.sampled {
		buf := make([]byte, s.opts.SampleLimit)
		n, err := io.ReadFull(s.reader, buf)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return nil, err
		}
		s.sample = buf[:n]
		s.sampled = true
	}
	return s.sample, nil
}

// Encoding returns the detected (or configured) IANA character set name.
func (s *Source) Encoding() (string, error) {
	if s.encoding != "" {
		return s.encoding, nil
	}
	if s.opts.Encoding != "" && s.opts.Encoding != "auto" {
		s.encoding = s.opts.Encoding
		return s.encoding, nil
	}
	sample, err := s.sampleBytes()
	if err != nil {
		return "", err
	}
	if len(sample) == 0 {
		s.encoding = "UTF-8"
		return s.encoding, nil
	}
	best, err := chardet.NewTextDetector().DetectBest(sample)
	if err != nil {
		s.warn(fmt.Sprintf("character set detection failed (%v); assuming UTF-8", err))
		s.encoding = "UTF-8"
		return s.encoding, nil
	}
	if best.Confidence < 90 {
		s.warn(fmt.Sprintf("low confidence (%d) in detected character set %s",
			best.Confidence, best.Charset))
	}
	s.encoding = best.Charset
	return s.encoding, nil
}

func (s *Source) decode(data []byte) (string, error) {
	name, err := s.Encoding()
	if err != nil {
		return "", err
	}
	if strings.EqualFold(name, "UTF-8") || strings.EqualFold(name, "ASCII") {
		return string(data), nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		if s.opts.EncodingStrict {
			return "", fmt.Errorf("source: unsupported character set %q", name)
		}
		s.warn(fmt.Sprintf("unsupported character set %q; decoding as UTF-8", name))
		return string(data), nil
	}
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		if s.opts.EncodingStrict {
			return "", fmt.Errorf("source: decoding as %s: %w", name, err)
		}
		s.warn(fmt.Sprintf("decoding errors under %s were replaced", name))
	}
	return string(decoded), nil
}

// DetectedFormat returns the detected (or configured) input format.
func (s *Source) DetectedFormat() (Format, error) {
	if s.format != "" {
		return s.format, nil
	}
	if s.opts.Format != FormatAuto {
		s.format = s.opts.Format
		return s.format, nil
	}
	raw, err := s.sampleBytes()
	if err != nil {
		return "", err
	}
	sample, err := s.decode(raw)
	if err != nil {
		return "", err
	}
	s.format = s.detectFormat(sample)
	return s.format, nil
}

func (s *Source) detectFormat(sample string) Format {
	if strings.HasPrefix(sample, "<?xml") {
		return FormatXML
	}
	trimmed := strings.TrimLeft(sample, " \t\r\n")
	switch {
	case strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{"):
		return FormatJSON
	case strings.HasPrefix(trimmed, "<?xml"):
		s.warn("whitespace before xml header")
		return FormatXML
	case strings.HasPrefix(trimmed, "<"):
		s.warn("missing xml header")
		return FormatXML
	default:
		return s.detectYAMLOrCSV(sample)
	}
}

// detectYAMLOrCSV scores each complete sample line for YAML-ish and
// CSV-ish features and returns the stronger signal.
func (s *Source) detectYAMLOrCSV(sample string) Format {
	lines := strings.SplitAfter(sample, "\n")
	if len(lines) > 1 {
		// The final line may be truncated mid-record.
		lines = lines[:len(lines)-1]
	}
	csvScore, yamlScore := 0, 0
	for _, line := range lines {
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, " ") ||
			strings.HasPrefix(line, "-") || strings.HasSuffix(line, ":") {
			// Comments, indentation, "-" items and colon suffixes are all
			// atypical in CSV and strong indicators of YAML.
			yamlScore += 2
			continue
		}
		hasFieldDelims := strings.ContainsAny(line, ",; \t")
		quotes := strings.Count(line, `"`)
		if n := strings.Count(line, "'"); n > quotes {
			quotes = n
		}
		switch {
		case hasFieldDelims && quotes > 0 && quotes%2 == 0:
			// Paired quotes alongside field delimiters strongly suggest
			// CSV.
			csvScore += 2
		case strings.Count(line, ":") == 1:
			yamlScore++
		case hasFieldDelims:
			csvScore++
		}
	}
	switch {
	case yamlScore > csvScore:
		return FormatYAML
	case csvScore > 0:
		return FormatCSV
	default:
		return FormatUnknown
	}
}

// CSVDelimiter returns the detected (or configured) CSV delimiter.
func (s *Source) CSVDelimiter() (rune, error) {
	if s.delim != 0 {
		return s.delim, nil
	}
	if d := s.opts.CSVDelimiter; d != "" && d != "auto" {
		s.delim = []rune(d)[0]
		return s.delim, nil
	}
	raw, err := s.sampleBytes()
	if err != nil {
		return 0, err
	}
	sample, err := s.decode(raw)
	if err != nil {
		return 0, err
	}
	s.delim = sniffDelimiter(sample)
	return s.delim, nil
}

// sniffDelimiter picks the candidate delimiter with the most consistent
// non-zero per-line count, skipping the (possible) header line.
func sniffDelimiter(sample string) rune {
	lines := strings.Split(sample, "\n")
	if len(lines) > 1 {
		lines = lines[1:]
	}
	best, bestCount := ',', 0
	for _, cand := range []rune{',', ';', '\t', ' '} {
		counts := map[int]int{}
		for _, line := range lines {
			line = strings.TrimRight(line, "\r")
			if line == "" {
				continue
			}
			if n := strings.Count(line, string(cand)); n > 0 {
				counts[n]++
			}
		}
		for _, lineTotal := range counts {
			if lineTotal > bestCount {
				best, bestCount = cand, lineTotal
			}
		}
	}
	return best
}

// Data reads the remaining stream and decodes it into the analyzer's value
// domain: mappings, sequences and leaf scalars, with integers kept
// integral.
func (s *Source) Data() (any, error) {
	format, err := s.DetectedFormat()
	if err != nil {
		return nil, err
	}
	raw, err := s.sampleBytes()
	if err != nil {
		return nil, err
	}
	rest, err := io.ReadAll(s.reader)
	if err != nil {
		return nil, err
	}
	text, err := s.decode(append(append([]byte{}, raw...), rest...))
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatJSON:
		return DecodeJSON(text)
	case FormatCSV:
		delim, err := s.CSVDelimiter()
		if err != nil {
			return nil, err
		}
		return decodeCSV(text, delim)
	case FormatYAML:
		return decodeYAML(text)
	case FormatXML:
		return nil, ErrXMLUnsupported
	default:
		return nil, ErrUnknownFormat
	}
}

// DecodeJSON decodes JSON text into the analyzer's value domain, keeping
// integral numbers integral.
func DecodeJSON(text string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("source: invalid JSON: %w", err)
	}
	return normalizeTree(value), nil
}

func decodeCSV(text string, delim rune) (any, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.FieldsPerRecord = -1
	// The first row is excluded from analysis in case it is a header.
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return []any{}, nil
		}
		return nil, fmt.Errorf("source: invalid CSV: %w", err)
	}
	var rows []any
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("source: invalid CSV: %w", err)
		}
		row := make([]any, len(record))
		for i, cell := range record {
			row[i] = cell
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func decodeYAML(text string) (any, error) {
	var value any
	if err := yaml.Unmarshal([]byte(text), &value); err != nil {
		return nil, fmt.Errorf("source: invalid YAML: %w", err)
	}
	return normalizeTree(value), nil
}

// normalizeTree rewrites decoder-specific shapes into the analyzer's value
// domain: json.Number becomes int64 or float64 and non-string-keyed maps
// become map[any]any.
func normalizeTree(v any) any {
	switch n := v.(type) {
	case json.Number:
		text := n.String()
		if !strings.ContainsAny(text, ".eE") {
			if i, err := n.Int64(); err == nil {
				return i
			}
		}
		f, err := n.Float64()
		if err != nil {
			return text
		}
		return f
	case []any:
		out := make([]any, len(n))
		for i, item := range n {
			out[i] = normalizeTree(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, item := range n {
			out[k] = normalizeTree(item)
		}
		return out
	case map[any]any:
		out := make(map[any]any, len(n))
		for k, item := range n {
			out[normalizeTree(k)] = normalizeTree(item)
		}
		return out
	default:
		return v
	}
}

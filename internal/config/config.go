package config

import (
	stdlibErrors "errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueErrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/waveform80/structa/internal/analyzer"
	"github.com/waveform80/structa/internal/conv"
	"github.com/waveform80/structa/internal/source"
	"github.com/waveform80/structa/internal/source/tabular"
)

// Config holds the application configuration, loaded from structa.yml and
// environment variables.
type Config struct {
	Analyzer AnalyzerConfig `yaml:"analyzer" json:"analyzer"`
	Source   SourceConfig   `yaml:"source" json:"source"`
	Output   OutputConfig   `yaml:"output" json:"output"`
	Server   ServerConfig   `yaml:"server" json:"server"`
}

// AnalyzerConfig matches the 'analyzer' section of structa.yml. Thresholds
// are written as rationals ("2/100") or decimals ("0.02"); the timestamp
// window entries accept a duration relative to now ("20 years") or an
// absolute instant ("2001-01-01").
type AnalyzerConfig struct {
	BadThreshold    string `yaml:"bad_threshold" json:"bad_threshold" cue:"bad_threshold"`
	EmptyThreshold  string `yaml:"empty_threshold" json:"empty_threshold" cue:"empty_threshold"`
	FieldThreshold  int    `yaml:"field_threshold" json:"field_threshold" cue:"field_threshold"`
	MaxNumericLen   int    `yaml:"max_numeric_len" json:"max_numeric_len" cue:"max_numeric_len"`
	StripWhitespace bool   `yaml:"strip_whitespace" json:"strip_whitespace" cue:"strip_whitespace"`
	MinTimestamp    string `yaml:"min_timestamp" json:"min_timestamp" cue:"min_timestamp"`
	MaxTimestamp    string `yaml:"max_timestamp" json:"max_timestamp" cue:"max_timestamp"`
	TrackProgress   bool   `yaml:"track_progress" json:"track_progress" cue:"track_progress"`
}

// SourceConfig matches the 'source' section of structa.yml.
type SourceConfig struct {
	Encoding       string `yaml:"encoding" json:"encoding" cue:"encoding"`
	EncodingStrict bool   `yaml:"encoding_strict" json:"encoding_strict" cue:"encoding_strict"`
	Format         string `yaml:"format" json:"format" cue:"format"`
	CSVDelimiter   string `yaml:"csv_delimiter" json:"csv_delimiter" cue:"csv_delimiter"`
	SampleLimit    int    `yaml:"sample_limit" json:"sample_limit" cue:"sample_limit"`
	MaxRows        int    `yaml:"max_rows" json:"max_rows" cue:"max_rows"`
}

// OutputConfig matches the 'output' section of structa.yml.
type OutputConfig struct {
	Format       string `yaml:"format" json:"format" cue:"format"`
	File         string `yaml:"file" json:"file" cue:"file"`
	ShowProgress bool   `yaml:"show_progress" json:"show_progress" cue:"show_progress"`
}

// ServerConfig matches the 'server' section of structa.yml.
type ServerConfig struct {
	Host string `yaml:"host" json:"host" cue:"host"`
	Port int    `yaml:"port" json:"port" cue:"port"`
}

// ErrUnknownField is a custom error type for unknown configuration fields.
type ErrUnknownField struct {
	Err error
}

func (e *ErrUnknownField) Error() string {
	return fmt.Sprintf("unknown field in configuration: %v", e.Err)
}

func (e *ErrUnknownField) Unwrap() error {
	return e.Err
}

// DefaultConfigPath is the default path for the configuration file.
const DefaultConfigPath = "structa.yml"

// DefaultCueSchemaPath is the on-disk CUE schema; when absent the schema
// compiled into the binary is used instead.
const DefaultCueSchemaPath = "docs/config.cue"

// expandWithDefault expands "${VAR:=default_value}" and "$VAR" forms; "~"
// prefixes resolve against the user's home directory.
var envVarWithDefaultRegex = regexp.MustCompile(`\$\{([^:}]+):=([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[1:])
		}
	}
	return path
}

func expandWithDefault(s string) string {
	return envVarWithDefaultRegex.ReplaceAllStringFunc(s, func(match string) string {
		expandedSimple := os.ExpandEnv(match)
		if expandedSimple != match && expandedSimple != "" && !strings.Contains(expandedSimple, ":=") {
			return expandPath(expandedSimple)
		}

		parts := envVarWithDefaultRegex.FindStringSubmatch(match)
		var varName, defaultValue string

		if len(parts) > 2 && parts[1] != "" && parts[2] != "" { // ${VAR:=default} form
			varName = parts[1]
			defaultValue = parts[2]
		} else if len(parts) > 3 && parts[3] != "" { // $VAR or ${VAR} form
			varName = parts[3]
			val, _ := os.LookupEnv(varName)
			return expandPath(val)
		} else {
			return expandPath(match)
		}

		value, exists := os.LookupEnv(varName)
		if exists {
			return expandPath(value)
		}
		return expandPath(expandWithDefault(defaultValue))
	})
}

// Load reads the configuration from the given path and validates it
// against the CUE schema (the file at cueSchemaPath when present, the
// embedded schema otherwise).
func Load(configPath string, cueSchemaPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	if cueSchemaPath == "" {
		cueSchemaPath = DefaultCueSchemaPath
	}

	schemaBytes, err := os.ReadFile(cueSchemaPath)
	if err != nil {
		schemaBytes = embeddedCueSchema
		cueSchemaPath = "embedded config_schema.cue"
	}

	yamlData, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := GetDefaultConfig()
	if err := yaml.Unmarshal(yamlData, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML data from %s: %w", configPath, err)
	}

	ctx := cuecontext.New()
	schemaVal := ctx.CompileBytes(schemaBytes, cue.Filename(cueSchemaPath))
	if err := schemaVal.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile CUE schema from %s: %w", cueSchemaPath, err)
	}

	cueVal := ctx.Encode(cfg)
	if err := cueVal.Err(); err != nil {
		return nil, fmt.Errorf("failed to encode config struct to CUE value: %w", err)
	}

	configDef := schemaVal.LookupPath(cue.ParsePath("#Config"))
	if !configDef.Exists() {
		return nil, fmt.Errorf("#Config definition not found in CUE schema %s", cueSchemaPath)
	}

	instanceVal := configDef.Unify(cueVal)
	if err := instanceVal.Err(); err != nil {
		if unknown := classifyUnknownField(err); unknown != nil {
			return nil, unknown
		}
		return nil, fmt.Errorf("failed to unify CUE #Config definition with config data from %s: %w", configPath, err)
	}

	if err := instanceVal.Validate(cue.Concrete(true)); err != nil {
		if unknown := classifyUnknownField(err); unknown != nil {
			return nil, unknown
		}
		return nil, fmt.Errorf("CUE validation failed for %s (schema %s, def #Config): %w", configPath, cueSchemaPath, err)
	}

	cfg.Output.File = expandWithDefault(cfg.Output.File)
	return cfg, nil
}

func classifyUnknownField(err error) error {
	var cueErrList cueErrors.Error
	if stdlibErrors.As(err, &cueErrList) {
		for _, e := range cueErrors.Errors(cueErrList) {
			details := cueErrors.Details(e, nil)
			if strings.Contains(details, "field not allowed") ||
				strings.Contains(details, "is not a field in") {
				return &ErrUnknownField{Err: err}
			}
		}
	}
	return nil
}

// GetDefaultConfig returns a Config populated with default values.
func GetDefaultConfig() *Config {
	return &Config{
		Analyzer: AnalyzerConfig{
			BadThreshold:    "2/100",
			EmptyThreshold:  "98/100",
			FieldThreshold:  20,
			MaxNumericLen:   30,
			StripWhitespace: true,
			MinTimestamp:    "20 years",
			MaxTimestamp:    "10 years",
			TrackProgress:   true,
		},
		Source: SourceConfig{
			Encoding:     "auto",
			Format:       "auto",
			CSVDelimiter: "auto",
			SampleLimit:  1 << 20,
			MaxRows:      tabular.DefaultMaxRows,
		},
		Output: OutputConfig{
			Format:       "text",
			File:         "",
			ShowProgress: true,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8171,
		},
	}
}

// WriteDefaultConfig writes the default configuration to the specified
// path, or DefaultConfigPath when empty.
func WriteDefaultConfig(configPath string) error {
	if configPath == "" {
		configPath = DefaultConfigPath
	}

	data, err := yaml.Marshal(GetDefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	dir := filepath.Dir(configPath)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory for config file %s: %w", configPath, err)
		}
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write default config to %s: %w", configPath, err)
	}
	return nil
}

// AnalyzerOptions resolves the analyzer section into the core's
// configuration, interpreting the timestamp window entries relative to
// now.
func (c *Config) AnalyzerOptions(now time.Time) (analyzer.Config, error) {
	out := analyzer.DefaultConfig()

	if c.Analyzer.BadThreshold != "" {
		r, ok := new(big.Rat).SetString(c.Analyzer.BadThreshold)
		if !ok {
			return out, fmt.Errorf("invalid bad_threshold %q", c.Analyzer.BadThreshold)
		}
		out.BadThreshold = r
	}
	if c.Analyzer.EmptyThreshold != "" {
		r, ok := new(big.Rat).SetString(c.Analyzer.EmptyThreshold)
		if !ok {
			return out, fmt.Errorf("invalid empty_threshold %q", c.Analyzer.EmptyThreshold)
		}
		out.EmptyThreshold = r
	}
	out.FieldThreshold = c.Analyzer.FieldThreshold
	out.MaxNumericLen = c.Analyzer.MaxNumericLen
	out.StripWhitespace = c.Analyzer.StripWhitespace
	out.TrackProgress = c.Analyzer.TrackProgress

	if c.Analyzer.MinTimestamp != "" {
		ts, err := resolveInstant(c.Analyzer.MinTimestamp, now, true)
		if err != nil {
			return out, fmt.Errorf("invalid min_timestamp: %w", err)
		}
		out.MinTimestamp = ts
	}
	if c.Analyzer.MaxTimestamp != "" {
		ts, err := resolveInstant(c.Analyzer.MaxTimestamp, now, false)
		if err != nil {
			return out, fmt.Errorf("invalid max_timestamp: %w", err)
		}
		out.MaxTimestamp = ts
	}
	return out, nil
}

// resolveInstant parses s as a duration (relative to now: backwards for
// the window minimum, forwards for the maximum) or an absolute timestamp.
func resolveInstant(s string, now time.Time, backwards bool) (time.Time, error) {
	if d, err := conv.ParseDuration(s); err == nil {
		if backwards {
			return d.SubFrom(now), nil
		}
		return d.AddTo(now), nil
	}
	return conv.ParseTimestamp(s)
}

// SourceOptions resolves the source section into sniffing options.
func (c *Config) SourceOptions(onWarning func(string)) source.Options {
	return source.Options{
		Encoding:       c.Source.Encoding,
		EncodingStrict: c.Source.EncodingStrict,
		Format:         source.Format(c.Source.Format),
		CSVDelimiter:   c.Source.CSVDelimiter,
		SampleLimit:    c.Source.SampleLimit,
		OnWarning:      onWarning,
	}
}

// TabularOptions resolves the source section into tabular loader limits.
func (c *Config) TabularOptions() tabular.Config {
	return tabular.Config{MaxRows: c.Source.MaxRows}
}

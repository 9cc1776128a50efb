package reportconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/IgorBayerl/mfp/internal/logging"
	"github.com/IgorBayerl/mfp/internal/processor"
	"github.com/IgorBayerl/mfp/internal/reporter"
)

// Configuration holds every setting of a run. It can be loaded from a YAML
// or TOML file and is then overridden by command line flags.
type Configuration struct {
	// Files are paths or glob patterns of the files to process.
	Files []string `yaml:"files" toml:"files"`
	// Format is the output format: text, json or html.
	Format string `yaml:"format" toml:"format"`
	// Verbose adds total word counts to the output.
	Verbose bool `yaml:"verbose" toml:"verbose"`
	// Verbosity is the logging level: Verbose, Info, Warning, Error or Off.
	Verbosity string `yaml:"verbosity" toml:"verbosity"`
	// Concurrency caps the number of files read at once. 0 uses the processor default.
	Concurrency int `yaml:"concurrency" toml:"concurrency"`
	// FileTimeout is a Go duration bounding each file, e.g. "30s". Empty means none.
	FileTimeout string `yaml:"file_timeout" toml:"file_timeout"`
	// BatchTimeout is a Go duration bounding the whole run. Empty means none.
	BatchTimeout string `yaml:"batch_timeout" toml:"batch_timeout"`
	// Output is the file the report is written to. Empty means stdout.
	Output string `yaml:"output" toml:"output"`
	// MetricsFile, when set, receives Prometheus metrics after the run.
	MetricsFile string `yaml:"metrics_file" toml:"metrics_file"`
	// RenderPartial renders the files that succeeded even when some failed.
	RenderPartial bool `yaml:"render_partial" toml:"render_partial"`
}

// Default returns the configuration used when neither a file nor flags set a value.
func Default() *Configuration {
	return &Configuration{
		Format:    string(reporter.FormatText),
		Verbosity: logging.Info.String(),
	}
}

// Load reads a configuration file. The decoder is chosen by extension:
// .yaml and .yml use YAML, .toml uses TOML. Unset keys keep their defaults.
func Load(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("failed to parse config %s: unknown keys %v", path, undecoded)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q (want .yaml, .yml or .toml)", ext)
	}
	return cfg, nil
}

// Validate checks that every value can be used.
func (c *Configuration) Validate() error {
	if _, err := reporter.ParseFormat(c.Format); err != nil {
		return err
	}
	if _, err := logging.ParseVerbosity(c.Verbosity); err != nil {
		return err
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	if _, err := c.FileTimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.BatchTimeoutDuration(); err != nil {
		return err
	}
	return nil
}

// OutputFormat returns the parsed output format.
func (c *Configuration) OutputFormat() reporter.Format {
	format, _ := reporter.ParseFormat(c.Format)
	return format
}

// VerbosityLevel returns the parsed logging level, Info when invalid.
func (c *Configuration) VerbosityLevel() logging.VerbosityLevel {
	level, _ := logging.ParseVerbosity(c.Verbosity)
	return level
}

// FileTimeoutDuration parses FileTimeout. An empty value is zero.
func (c *Configuration) FileTimeoutDuration() (time.Duration, error) {
	return parseTimeout("file_timeout", c.FileTimeout)
}

// BatchTimeoutDuration parses BatchTimeout. An empty value is zero.
func (c *Configuration) BatchTimeoutDuration() (time.Duration, error) {
	return parseTimeout("batch_timeout", c.BatchTimeout)
}

// ProcessorOptions translates the configuration into processor options.
// The filesystem and observer are left for the caller to set.
func (c *Configuration) ProcessorOptions() processor.Options {
	fileTimeout, _ := c.FileTimeoutDuration()
	return processor.Options{
		Concurrency: c.Concurrency,
		FileTimeout: fileTimeout,
	}
}

func parseTimeout(key, value string) (time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s %q: must not be negative", key, value)
	}
	return d, nil
}

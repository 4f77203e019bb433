package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// PipelineConfig holds the settings of the pcap-to-text conversion run.
type PipelineConfig struct {
	InputDir    string `yaml:"input_dir"`
	OutputDir   string `yaml:"output_dir"`
	FilteredDir string `yaml:"filtered_dir"`
	NumWorkers  int    `yaml:"num_workers"`
	DatasetName string `yaml:"dataset_name"`
	Task        string `yaml:"task"`
	Granularity string `yaml:"granularity"`
}

// ExtractorConfig configures the external field extraction tool.
type ExtractorConfig struct {
	TSharkPath string   `yaml:"tshark_path"`
	Fields     []string `yaml:"fields"`
}

// FeaturesConfig selects where session statistics come from.
type FeaturesConfig struct {
	Mode      string   `yaml:"mode"` // tuple, flowid or none
	TablePath string   `yaml:"table_path"`
	TableDir  string   `yaml:"table_dir"`
	Exclude   []string `yaml:"exclude"`
}

// ClickHouseConfig holds the connection details for ClickHouse.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// WriterDef defines a single dataset sink.
type WriterDef struct {
	Type       string           `yaml:"type"`
	Enabled    bool             `yaml:"enabled"`
	RootPath   string           `yaml:"root_path"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// EventsConfig configures the NATS progress publisher.
type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// SMTPConfig holds the SMTP server settings for the run summary mail.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// APIConfig holds the settings for the dataset API server.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	DatasetDir string `yaml:"dataset_dir"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Features  FeaturesConfig  `yaml:"features"`
	Writers   []WriterDef     `yaml:"writers"`
	Events    EventsConfig    `yaml:"events"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	API       APIConfig       `yaml:"api"`
}

// LoadConfig reads the configuration from a YAML file and returns a Config struct
// with defaults applied.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// Default returns a configuration populated only with defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every unset value. It is safe to call more than once.
func (c *Config) ApplyDefaults() {
	if c.Pipeline.NumWorkers <= 0 {
		c.Pipeline.NumWorkers = runtime.NumCPU()
	}
	if c.Pipeline.Granularity == "" {
		c.Pipeline.Granularity = "session"
	}
	if c.Pipeline.FilteredDir == "" && c.Pipeline.InputDir != "" {
		c.Pipeline.FilteredDir = filepath.Join(c.Pipeline.InputDir, "filtered")
	}
	if c.Extractor.TSharkPath == "" {
		c.Extractor.TSharkPath = "tshark"
	}
	if c.Features.Mode == "" {
		c.Features.Mode = "none"
	}
	if len(c.Writers) == 0 {
		c.Writers = []WriterDef{{Type: "csv", Enabled: true}}
	}
	for i := range c.Writers {
		if c.Writers[i].RootPath == "" {
			c.Writers[i].RootPath = c.Pipeline.OutputDir
		}
	}
	if c.Events.NATSURL == "" {
		c.Events.NATSURL = "nats://127.0.0.1:4222"
	}
	if c.Events.Subject == "" {
		c.Events.Subject = "flowtext.classes"
	}
	if c.API.ListenAddr == "" {
		c.API.ListenAddr = ":8080"
	}
	if c.API.DatasetDir == "" {
		c.API.DatasetDir = c.Pipeline.OutputDir
	}
}

// SetInputDir overrides the raw dataset path. A filtered directory that was
// derived from the previous input path follows the new one.
func (c *Config) SetInputDir(dir string) {
	old := c.Pipeline.InputDir
	if old != "" && c.Pipeline.FilteredDir == filepath.Join(old, "filtered") {
		c.Pipeline.FilteredDir = ""
	}
	c.Pipeline.InputDir = dir
	c.ApplyDefaults()
}

// SetOutputDir overrides the output path. Writer roots and the API dataset
// directory that were unset or defaulted from the previous output path follow
// the new one; explicitly configured roots are kept.
func (c *Config) SetOutputDir(dir string) {
	old := c.Pipeline.OutputDir
	for i := range c.Writers {
		if c.Writers[i].RootPath == old {
			c.Writers[i].RootPath = ""
		}
	}
	if c.API.DatasetDir == old {
		c.API.DatasetDir = ""
	}
	c.Pipeline.OutputDir = dir
	c.ApplyDefaults()
}

// Validate reports configuration errors that would make a pipeline run impossible.
func (c *Config) Validate() error {
	if c.Pipeline.InputDir == "" {
		return fmt.Errorf("pipeline.input_dir is required")
	}
	if c.Pipeline.OutputDir == "" {
		return fmt.Errorf("pipeline.output_dir is required")
	}
	switch c.Features.Mode {
	case "none":
	case "tuple":
		if c.Features.TablePath == "" {
			return fmt.Errorf("features.table_path is required for mode 'tuple'")
		}
	case "flowid":
		if c.Features.TableDir == "" {
			return fmt.Errorf("features.table_dir is required for mode 'flowid'")
		}
	default:
		return fmt.Errorf("unknown features.mode: '%s'", c.Features.Mode)
	}
	return nil
}

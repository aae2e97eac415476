/*
 *  Copyright 2021 qitoi
 *
 *  Licensed under the Apache License, Version 2.0 (the "License");
 *  you may not use this file except in compliance with the License.
 *  You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *  Unless required by applicable law or agreed to in writing, software
 *  distributed under the License is distributed on an "AS IS" BASIS,
 *  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *  See the License for the specific language governing permissions and
 *  limitations under the License.
 */

package main

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"time"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/qitoi/archive-extractor/classify"
	"github.com/qitoi/archive-extractor/expand"
	"github.com/qitoi/archive-extractor/pipeline"
)

const (
	BackendNone   = "none"
	BackendOpenAI = "openai"
)

type Config struct {
	Input  InputConfig  `yaml:"input"`
	Output OutputConfig `yaml:"output"`
	Expand ExpandConfig `yaml:"expand"`
	Images ImagesConfig `yaml:"images"`
	Logger LoggerConfig `yaml:"logger"`
}

type InputConfig struct {
	Archive string `yaml:"archive"`
}

type OutputConfig struct {
	Dir         string `yaml:"dir"`
	SQLite      string `yaml:"sqlite,omitempty"`
	MetricsFile string `yaml:"metrics_file,omitempty"`
}

type ExpandConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Timeout     time.Duration `yaml:"timeout"`
	Hosts       []string      `yaml:"hosts"`
	Rate        float64       `yaml:"rate"`
	Burst       int           `yaml:"burst"`
	Concurrency int           `yaml:"concurrency"`
	UserAgent   string        `yaml:"user_agent,omitempty"`
}

type ImagesConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Backend       string        `yaml:"backend"`
	Model         string        `yaml:"model,omitempty"`
	BaseURL       string        `yaml:"base_url,omitempty"`
	APIKey        string        `yaml:"api_key,omitempty"`
	Categories    []string      `yaml:"categories"`
	MaxImageBytes int64         `yaml:"max_image_bytes"`
	MaxDim        int           `yaml:"max_dim"`
	Timeout       time.Duration `yaml:"timeout"`
}

type LoggerConfig struct {
	Level *LogLevel `yaml:"level"`
	Info  *string   `yaml:"info"`
	Error *string   `yaml:"error"`
}

type LogLevel zapcore.Level

func (l *LogLevel) MarshalYAML() (interface{}, error) {
	b, err := zapcore.Level(*l).MarshalText()
	return string(b), err
}

func (l *LogLevel) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return err
	}
	*l = LogLevel(level)
	return nil
}

func (c LoggerConfig) level() zapcore.Level {
	if c.Level == nil {
		return zapcore.InfoLevel
	}
	return zapcore.Level(*c.Level)
}

func DefaultConfig() Config {
	return Config{
		Input: InputConfig{
			Archive: "input/twitter-archive.zip",
		},
		Output: OutputConfig{
			Dir: "output",
		},
		Expand: ExpandConfig{
			Enabled:     true,
			Timeout:     expand.DefaultTimeout,
			Hosts:       append([]string{}, expand.DefaultHosts...),
			Rate:        10,
			Burst:       5,
			Concurrency: pipeline.DefaultConcurrency,
		},
		Images: ImagesConfig{
			Enabled:    false,
			Backend:    BackendOpenAI,
			Model:      classify.DefaultModel,
			Categories: append([]string{}, classify.DefaultCategories...),
		},
	}
}

// LoadConfig reads path over the defaults. A missing file is only an error
// when required is set.
func LoadConfig(path string, required bool) (*Config, error) {
	config := DefaultConfig()

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			config.ResolveEnv()
			return &config, nil
		}
		return nil, err
	}
	defer file.Close()

	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	config.ResolveEnv()
	return &config, nil
}

// ResolveEnv fills the classifier credentials from the environment when
// the file leaves them empty.
func (c *Config) ResolveEnv() {
	if c.Images.APIKey == "" {
		c.Images.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Images.BaseURL == "" {
		c.Images.BaseURL = os.Getenv("OPENAI_BASE_URL")
	}
}

func CheckValidConfig(config *Config) error {
	if config.Input.Archive == "" {
		return errors.New("invalid config: input.archive")
	}
	if config.Output.Dir == "" {
		return errors.New("invalid config: output.dir")
	}

	// Expand
	if config.Expand.Timeout < 0 {
		return errors.New("invalid config: expand.timeout")
	}
	if config.Expand.Rate < 0 {
		return errors.New("invalid config: expand.rate")
	}
	if config.Expand.Burst < 0 {
		return errors.New("invalid config: expand.burst")
	}
	if config.Expand.Concurrency < 0 {
		return errors.New("invalid config: expand.concurrency")
	}

	// Images
	switch config.Images.Backend {
	case BackendNone, BackendOpenAI:
	default:
		return errors.New("invalid config: images.backend")
	}
	if config.Images.Enabled && config.Images.Backend == BackendOpenAI && config.Images.APIKey == "" {
		return errors.New("invalid config: images.api_key")
	}
	if config.Images.MaxImageBytes < 0 {
		return errors.New("invalid config: images.max_image_bytes")
	}
	if config.Images.MaxDim < 0 {
		return errors.New("invalid config: images.max_dim")
	}
	if config.Images.Timeout < 0 {
		return errors.New("invalid config: images.timeout")
	}

	return nil
}

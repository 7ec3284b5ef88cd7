// Copyright 2015-2017 Piprate Limited
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ld

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"
)

// LoaderConfig describes a document loader stack:
// file or HTTP loading, optionally wrapped in retries and a cache.
//
//	http:
//	  timeout: 10s
//	cache:
//	  ttl: 1h
//	  max_entries: 500
//	retry:
//	  max_retries: 3
//	preload:
//	  https://schema.org/: ./contexts/schema.jsonld
type LoaderConfig struct {
	HTTP    HTTPLoaderConfig  `yaml:"http"`
	Cache   CacheConfig       `yaml:"cache"`
	Retry   RetryConfig       `yaml:"retry"`
	Files   FilesConfig       `yaml:"files"`
	Preload map[string]string `yaml:"preload"`
}

// HTTPLoaderConfig configures remote fetches.
type HTTPLoaderConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	Accept  string        `yaml:"accept"`
}

// CacheConfig configures the shared document cache.
type CacheConfig struct {
	Disabled   bool          `yaml:"disabled"`
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
}

// RetryConfig configures retries of transient load failures.
type RetryConfig struct {
	MaxRetries      int           `yaml:"max_retries"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
}

// FilesConfig configures loading of local files.
type FilesConfig struct {
	BaseDir string `yaml:"base_dir"`
}

// DefaultLoaderConfig returns the configuration used when no file is given.
func DefaultLoaderConfig() *LoaderConfig {
	return &LoaderConfig{
		HTTP: HTTPLoaderConfig{
			Timeout: 30 * time.Second,
			Accept:  acceptHeader,
		},
		Cache: CacheConfig{
			TTL:        time.Hour,
			MaxEntries: 1000,
		},
		Retry: RetryConfig{
			MaxRetries:      DefaultMaxRetries,
			InitialInterval: DefaultInitialInterval,
			MaxInterval:     DefaultMaxInterval,
		},
	}
}

// LoadLoaderConfig reads YAML from r over the defaults and validates the result.
func LoadLoaderConfig(r io.Reader) (*LoaderConfig, error) {
	cfg := DefaultLoaderConfig()
	if err := yaml.NewDecoder(r).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse loader config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadLoaderConfigFile reads a LoaderConfig from a YAML file.
func LoadLoaderConfigFile(path string) (*LoaderConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadLoaderConfig(f)
}

// Validate checks that the configuration is usable.
func (c *LoaderConfig) Validate() error {
	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("http.timeout must not be negative")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache.max_entries must not be negative")
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must not be negative")
	}
	if c.Retry.MaxInterval > 0 && c.Retry.InitialInterval > c.Retry.MaxInterval {
		return fmt.Errorf("retry.initial_interval exceeds retry.max_interval")
	}
	if len(c.Preload) > 0 && c.Cache.Disabled {
		return fmt.Errorf("preload requires the cache to be enabled")
	}
	return nil
}

// Build assembles the loader stack. Metrics are registered with reg when
// it is not nil. Preloaded documents are fetched before Build returns.
func (c *LoaderConfig) Build(ctx context.Context, logger *slog.Logger, reg prometheus.Registerer) (DocumentLoader, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var metrics *LoaderMetrics
	if reg != nil {
		var err error
		if metrics, err = NewLoaderMetrics(reg); err != nil {
			return nil, err
		}
	}

	files := NewFileLoader(c.Files.BaseDir).WithLogger(logger)
	var loader DocumentLoader = NewDefaultDocumentLoader(&http.Client{Timeout: c.HTTP.Timeout}).
		WithAccept(c.HTTP.Accept).
		WithFileLoader(files).
		WithLogger(logger).
		WithMetrics(metrics)

	if c.Retry.MaxRetries > 0 {
		loader = NewRetryingDocumentLoader(loader).
			WithPolicy(c.Retry.MaxRetries, c.Retry.InitialInterval, c.Retry.MaxInterval).
			WithLogger(logger).
			WithMetrics(metrics)
	}

	if c.Cache.Disabled {
		return loader, nil
	}

	cache := NewCachingDocumentLoader(loader,
		WithTTL(c.Cache.TTL),
		WithMaxEntries(c.Cache.MaxEntries),
		WithCacheLogger(logger),
		WithCacheMetrics(metrics),
	)
	if len(c.Preload) > 0 {
		if err := cache.PreloadWithMapping(ctx, c.Preload); err != nil {
			return nil, err
		}
		logger.Debug("preloaded documents", "count", len(c.Preload))
	}
	return cache, nil
}

// Copyright (c) 2026 John Earle
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

// Package config holds the adapter's invocation parameters. They are fixed
// constants for this adapter instance; an optional config.yaml and
// environment variables can override them for local runs and tests.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for the eTenders adapter instance. The API URL requests 100
// tenders per page with status=1 (open tenders only); the User-Agent mimics
// a browser because the portal rejects unidentified clients. The group ID
// separates this source's stream from the other adapters feeding the same
// FIFO queue.
const (
	DefaultAPIURL = "https://www.etenders.gov.za/Home/PaginatedTenderOpportunities?draw=1&length=100&status=1"

	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	DefaultQueueURL = "https://sqs.us-east-1.amazonaws.com/211635102441/AIQueue.fifo"

	DefaultMessageGroupID = "eTenderScrape"

	DefaultFetchTimeout = 30 * time.Second
)

// Config holds all configuration for one adapter run.
type Config struct {
	APIURL         string
	UserAgent      string
	QueueURL       string
	MessageGroupID string
	AWSRegion      string
	FetchTimeout   time.Duration
}

// rawConfig mirrors the optional YAML structure for unmarshalling.
type rawConfig struct {
	Source struct {
		APIURL    string `yaml:"api_url"`
		UserAgent string `yaml:"user_agent"`
	} `yaml:"source"`
	Queue struct {
		URL            string `yaml:"url"`
		MessageGroupID string `yaml:"message_group_id"`
		Region         string `yaml:"region"`
	} `yaml:"queue"`
}

// Load builds the configuration from the built-in defaults, an optional
// config.yaml (with env var expansion), and environment variable overrides,
// in that precedence order.
func Load() (*Config, error) {
	var raw rawConfig

	configPath := envOrDefault("CONFIG_PATH", "config.yaml")
	if data, err := os.ReadFile(configPath); err == nil {
		// Expand ${VAR} references in the YAML
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
			return nil, fmt.Errorf("parse config YAML %s: %w", configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}

	cfg := &Config{
		APIURL:         envOrDefault("ETENDERS_API_URL", firstNonEmpty(raw.Source.APIURL, DefaultAPIURL)),
		UserAgent:      envOrDefault("ETENDERS_USER_AGENT", firstNonEmpty(raw.Source.UserAgent, DefaultUserAgent)),
		QueueURL:       envOrDefault("QUEUE_URL", firstNonEmpty(raw.Queue.URL, DefaultQueueURL)),
		MessageGroupID: envOrDefault("MESSAGE_GROUP_ID", firstNonEmpty(raw.Queue.MessageGroupID, DefaultMessageGroupID)),
		AWSRegion:      envOrDefault("AWS_REGION", raw.Queue.Region),
		FetchTimeout:   envOrDefaultDuration("FETCH_TIMEOUT", DefaultFetchTimeout),
	}

	if cfg.APIURL == "" {
		return nil, fmt.Errorf("source API URL must not be empty")
	}
	if cfg.QueueURL == "" {
		return nil, fmt.Errorf("queue URL must not be empty")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

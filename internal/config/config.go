package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the complete server configuration.
// All fields must have explicit defaults or be required.
type Config struct {
	Bind   string       `yaml:"bind,omitempty"`   // Address services listen on
	RTMP   RTMPConfig   `yaml:"rtmp"`             // Plain RTMP ingest/playback
	RTMPS  *RTMPSConfig `yaml:"rtmps,omitempty"`  // TLS RTMP, enabled when present
	HTTP   HTTPConfig   `yaml:"http"`             // HTTP-FLV, WebSocket-FLV, API
	Auth   AuthConfig   `yaml:"auth,omitempty"`   // Signed-token stream auth
	Notify NotifyConfig `yaml:"notify,omitempty"` // Lifecycle webhook
	HLS    HLSConfig    `yaml:"hls,omitempty"`    // ffmpeg HLS segmenting trigger
	FFmpeg string       `yaml:"ffmpeg,omitempty"` // Path to the ffmpeg binary
	Static StaticConfig `yaml:"static,omitempty"` // Static file serving (HLS output)
}

// RTMPConfig defines the plain TCP listener.
type RTMPConfig struct {
	Port int `yaml:"port"`
}

// RTMPSConfig defines the TLS listener and its key material.
type RTMPSConfig struct {
	Port int    `yaml:"port"`
	Key  string `yaml:"key"`
	Cert string `yaml:"cert"`
}

// HTTPConfig defines the HTTP listener shared by FLV transport and the API.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// AuthConfig enables signed-expiry token checks per direction.
type AuthConfig struct {
	Play    bool   `yaml:"play,omitempty"`
	Publish bool   `yaml:"publish,omitempty"`
	Secret  string `yaml:"secret,omitempty"`
}

// NotifyConfig points lifecycle events at a webhook endpoint.
type NotifyConfig struct {
	URL string `yaml:"url,omitempty"`
}

// HLSConfig controls the ffmpeg segmenting trigger.
type HLSConfig struct {
	Active bool `yaml:"active,omitempty"` // Segment every published stream
	Keep   bool `yaml:"keep,omitempty"`   // Keep segments after the stream ends
}

// StaticConfig serves a directory over HTTP, used for HLS output.
type StaticConfig struct {
	Router string `yaml:"router,omitempty"` // URL prefix
	Root   string `yaml:"root,omitempty"`   // Directory to serve
}

// Load reads configuration from a YAML file.
// Returns an error if the file cannot be read or decoded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields

	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults applies explicit default values to unset fields.
func (c *Config) setDefaults() {
	if c.Bind == "" {
		c.Bind = "0.0.0.0"
	}
	if c.RTMP.Port == 0 {
		c.RTMP.Port = 1935
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8000
	}
	if c.FFmpeg == "" {
		c.FFmpeg = "ffmpeg"
	}
	if c.Static.Router == "" {
		c.Static.Router = "/static"
	}
	if c.Static.Root == "" {
		c.Static.Root = "html"
	}
}

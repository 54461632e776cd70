package config

import (
	"fmt"
)

// Validate checks that all configuration values are within acceptable ranges.
// Returns an error describing the first validation failure found.
func (c *Config) Validate() error {
	if err := validatePort("rtmp.port", c.RTMP.Port); err != nil {
		return err
	}
	if err := validatePort("http.port", c.HTTP.Port); err != nil {
		return err
	}
	if c.RTMP.Port == c.HTTP.Port {
		return fmt.Errorf("rtmp.port and http.port must be different, both are %d", c.RTMP.Port)
	}
	if c.RTMPS != nil {
		if err := validatePort("rtmps.port", c.RTMPS.Port); err != nil {
			return err
		}
		if c.RTMPS.Port == c.RTMP.Port || c.RTMPS.Port == c.HTTP.Port {
			return fmt.Errorf("rtmps.port collides with another listener, got %d", c.RTMPS.Port)
		}
		if c.RTMPS.Key == "" || c.RTMPS.Cert == "" {
			return fmt.Errorf("rtmps requires both key and cert")
		}
	}
	if (c.Auth.Play || c.Auth.Publish) && c.Auth.Secret == "" {
		return fmt.Errorf("auth is enabled but auth.secret is empty")
	}
	if c.HLS.Active && c.Static.Root == "" {
		return fmt.Errorf("hls.active requires static.root")
	}
	return nil
}

func validatePort(name string, port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535, got %d", name, port)
	}
	return nil
}

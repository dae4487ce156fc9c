package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateAuth(); err != nil {
		return err
	}
	return c.validateModel()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Bind == "" {
		return errors.New("server.bind must be set")
	}
	return nil
}

func (c *Config) validateAuth() error {
	_, err := c.Identities()
	return err
}

func (c *Config) validateModel() error {
	for tracer, pair := range c.Model.Endmembers {
		if strings.TrimSpace(tracer) == "" {
			return errors.New("model.endmembers: tracer name must not be empty")
		}
		if pair.High == pair.Low {
			return fmt.Errorf("model.endmembers.%s: high and low reference concentrations must differ", tracer)
		}
	}
	return nil
}

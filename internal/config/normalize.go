package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizePipeline()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = ExpandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = defaultRequestTimeout
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = defaultMaxUploadMB
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = defaultWorkers
	}
	if c.Pipeline.QueueDepth <= 0 {
		c.Pipeline.QueueDepth = defaultQueueDepth
	}
	if c.Pipeline.StageWarnSeconds <= 0 {
		c.Pipeline.StageWarnSeconds = defaultStageWarnSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCategories()
	c.normalizeOrganize()
	c.normalizeScan()
	c.normalizeSMTP()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeCategories() {
	if c.OrganizeMap == nil {
		c.OrganizeMap = DefaultCategories()
	}
	c.OrganizeMap = normalizeCategories(c.OrganizeMap)
	if c.SuspiciousExts == nil {
		c.SuspiciousExts = DefaultSuspiciousExtensions()
	}
	c.SuspiciousExts = normalizeExtensions(c.SuspiciousExts)
}

func (c *Config) normalizeOrganize() {
	c.Organize.Layout = strings.ToLower(strings.TrimSpace(c.Organize.Layout))
	if c.Organize.Layout == "" {
		c.Organize.Layout = defaultLayout
	}
	c.Organize.OnCollision = strings.ToLower(strings.TrimSpace(c.Organize.OnCollision))
	if c.Organize.OnCollision == "" {
		c.Organize.OnCollision = defaultOnCollision
	}
}

func (c *Config) normalizeScan() {
	if c.Scan.MaxFiles == 0 {
		c.Scan.MaxFiles = defaultScanMaxFiles
	}
	if c.Scan.LargeFileBytes == 0 {
		c.Scan.LargeFileBytes = defaultLargeFileBytes
	}
}

func (c *Config) normalizeSMTP() {
	c.SMTP.Host = strings.TrimSpace(c.SMTP.Host)
	c.SMTP.Username = strings.TrimSpace(c.SMTP.Username)
	c.SMTP.FromAddr = strings.TrimSpace(c.SMTP.FromAddr)
	c.SMTP.ToAddr = strings.TrimSpace(c.SMTP.ToAddr)
	if c.SMTP.Password == "" {
		if value, ok := os.LookupEnv("TIDYUP_SMTP_PASSWORD"); ok {
			c.SMTP.Password = value
		}
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = defaultSMTPPort
	}
	if c.SMTP.TimeoutSeconds <= 0 {
		c.SMTP.TimeoutSeconds = defaultSMTPTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

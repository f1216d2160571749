package config

import (
	"fmt"
	"strings"

	"tidyup/internal/ops"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCategories(); err != nil {
		return err
	}
	if err := c.validateOrganize(); err != nil {
		return err
	}
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateSMTP(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCategories() error {
	for i, cat := range c.OrganizeMap {
		if cat.Name == "" {
			return invalid("organize_map[%d]: category name must be set", i)
		}
		if cat.Name == "." || cat.Name == ".." || strings.ContainsAny(cat.Name, `/\`) {
			return invalid("organize_map.%s: category name must be a single folder name", cat.Name)
		}
	}
	return nil
}

func (c *Config) validateOrganize() error {
	switch c.Organize.Layout {
	case LayoutCategory, LayoutExtension:
	default:
		return invalid("organize.layout must be %q or %q, got %q", LayoutCategory, LayoutExtension, c.Organize.Layout)
	}
	switch c.Organize.OnCollision {
	case CollisionOverwrite, CollisionRename:
	default:
		return invalid("organize.on_collision must be %q or %q, got %q", CollisionOverwrite, CollisionRename, c.Organize.OnCollision)
	}
	return nil
}

func (c *Config) validateScan() error {
	if c.Scan.MaxFiles < 0 {
		return invalid("scan.max_files must be positive")
	}
	if c.Scan.LargeFileBytes < 0 {
		return invalid("scan.large_file_bytes must be positive")
	}
	return nil
}

func (c *Config) validateSMTP() error {
	if c.SMTP.Port < 1 || c.SMTP.Port > 65535 {
		return invalid("smtp.port must be between 1 and 65535")
	}
	if c.SMTP.Username != "" && c.SMTP.Host == "" {
		return invalid("smtp.host must be set when smtp.username is set")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ops.ErrConfiguration, fmt.Sprintf(format, args...))
}

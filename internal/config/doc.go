// Package config loads, normalizes, and validates tidyup configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads JSON or TOML files, and honours environment fallbacks such
// as TIDYUP_SMTP_PASSWORD. The Config type centralizes the category map, the
// scanner heuristics, SMTP credentials and the state/log locations so every
// command discovers them in one pass.
//
// Always obtain settings through this package so downstream code receives
// lowercased dotted extensions, absolute paths, and clear validation errors.
package config

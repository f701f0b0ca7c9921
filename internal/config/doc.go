// Package config provides configuration structures and utilities for notionsync.
// It defines export settings, the .notionsync YAML file with per-database
// overrides, and .env loading of Notion credentials.
package config

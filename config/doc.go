// Package config provides environment-driven configuration for the
// response cache.
//
// All settings are optional and carry defaults; Config values are plain
// data and safe to copy.
package config

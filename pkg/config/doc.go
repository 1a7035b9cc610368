// Package config loads typed configuration structs from environment
// variables (with optional .env file support for local development).
// Each configuration type is parsed once and cached for the process
// lifetime.
package config

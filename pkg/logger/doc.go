// Package logger provides the slog factory and typed attribute helpers
// used across the notification pipeline. Typed attrs keep log field names
// consistent (user_key, entity_type, ...) so records from the rules
// engine, orchestrator and store facade correlate in aggregation systems.
package logger

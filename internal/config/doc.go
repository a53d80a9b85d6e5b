// Package config handles configuration loading, parsing, and validation
// from environment variables (prefix TASKFLOW_) and an optional config.yaml.
// Components receive the typed sub-structs they need rather than reading
// configuration themselves.
package config

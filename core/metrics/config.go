package metrics

import "github.com/kilianp07/chargeguard/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks" yaml:"sinks"`
	// HTTPAddr is the listen address of the /metrics and status API server.
	// Empty disables the server.
	HTTPAddr string `json:"http_addr" yaml:"http_addr"`
}

package bootstrap

import (
	"github.com/kbukum/transcribekit/config"
)

// Config is the interface constraint for application configuration types.
// Any struct that embeds config.ServiceConfig satisfies it through promoted
// methods, provided it also exposes ApplyDefaults and Validate for its own
// sections.
//
// Example:
//
//	type Config struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Relay relay.Config    `yaml:"relay" mapstructure:"relay"`
//	}
//
//	app, err := bootstrap.NewApp(&cfg)
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}

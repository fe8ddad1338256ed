package bootstrap

import (
	"github.com/kbukum/flowtorch/config"
)

// Config is the constraint for application configuration types. A struct
// embedding config.ServiceConfig gets GetServiceConfig by promotion and
// adds its own ApplyDefaults and Validate covering every section.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}

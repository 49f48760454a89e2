package commands

import (
	"time"

	"github.com/mosaicnetworks/firefly/src/config"
)

var _config = NewDefaultCLIConfig()

//CLIConfig contains configuration for the Run command
type CLIConfig struct {
	Firefly       config.Config `mapstructure:",squash"`
	StatsInterval time.Duration `mapstructure:"stats-interval"`
}

//NewDefaultCLIConfig creates a CLIConfig with default values
func NewDefaultCLIConfig() *CLIConfig {
	return &CLIConfig{
		Firefly:       *config.NewDefaultConfig(),
		StatsInterval: 10 * time.Second,
	}
}

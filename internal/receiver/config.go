package receiver

import (
	"fmt"
	"framelink/internal/config"
	"framelink/internal/global"
	"time"
)

// Parses the receiver section of the shared file into daemon config
func NewDaemonConf(file config.File, path string) (cfg Config, err error) {
	section := file.Receiver

	cfg.File = file
	cfg.ConfigPath = path

	// Network settings
	cfg.ListenIP = section.Network.ListenAddress
	cfg.VideoPort = section.Network.VideoPort
	cfg.MetricsPort = section.Network.MetricsPort
	cfg.ReceiveBuffer = section.Network.ReceiveBufferBytes
	cfg.KernelFilter = section.Network.KernelFilter

	// Reassembly settings
	cfg.Reassembly.EvictionLag = section.Reassembly.EvictionLag
	cfg.Reassembly.MaxBufferedBytes = section.Reassembly.MaxBufferedBytes
	cfg.Reassembly.IdleTimeout, err = time.ParseDuration(section.Reassembly.FrameIdleTimeout)
	if err != nil {
		err = fmt.Errorf("failed to parse frame idle timeout: %w", err)
		return
	}

	cfg.WebIP = section.HTTP.Address
	cfg.WebPort = section.HTTP.Port

	cfg.BeatsEndpoint = section.Outputs.BeatsAddress
	cfg.CaptureFile = section.Outputs.CaptureFile

	// Metric settings
	cfg.MetricMaxAge, err = time.ParseDuration(section.Metrics.MaximumRetention)
	if err != nil {
		err = fmt.Errorf("failed to parse metric max age time: %w", err)
		return
	}
	cfg.MetricCollectionInterval, err = time.ParseDuration(section.Metrics.CollectionInterval)
	if err != nil {
		err = fmt.Errorf("failed to parse metric collection interval time: %w", err)
		return
	}

	cfg.AutoStartListeners = section.AutoStartListeners
	cfg.PIDFile = section.PIDFile
	return
}

// Sets defaults for any missing/invalid values
func (cfg *Config) setDefaults() {
	// Network
	if cfg.ListenIP == "" {
		cfg.ListenIP = global.DefaultListenAddr
	}
	if cfg.VideoPort == 0 {
		cfg.VideoPort = global.DefaultVideoPort
	}
	if cfg.MetricsPort == 0 {
		cfg.MetricsPort = global.DefaultMetricsPort
	}
	if cfg.WebIP == "" {
		cfg.WebIP = global.DefaultWebAddr
	}
	if cfg.WebPort == 0 {
		cfg.WebPort = global.DefaultWebPort
	}

	// Reassembly
	if cfg.Reassembly.EvictionLag <= 0 {
		cfg.Reassembly.EvictionLag = global.DefaultEvictionLag
	}

	// Metrics
	if cfg.MetricMaxAge == 0 {
		cfg.MetricMaxAge = 1 * time.Hour
	}
	if cfg.MetricCollectionInterval == 0 {
		cfg.MetricCollectionInterval = 10 * time.Second
	}
}

// Settings that need the listeners rebound to take effect
func (cfg Config) linkSettings() (settings [6]interface{}) {
	settings = [6]interface{}{
		cfg.ListenIP,
		cfg.VideoPort,
		cfg.MetricsPort,
		cfg.ReceiveBuffer,
		cfg.KernelFilter,
		cfg.Reassembly,
	}
	return
}

// Settings only read at startup
func (cfg Config) restartSettings() (settings [7]interface{}) {
	settings = [7]interface{}{
		cfg.WebIP,
		cfg.WebPort,
		cfg.BeatsEndpoint,
		cfg.CaptureFile,
		cfg.MetricCollectionInterval,
		cfg.MetricMaxAge,
		cfg.PIDFile,
	}
	return
}

// Carries the running values of startup-only settings into cfg
func (cfg *Config) keepRestartSettings(running Config) {
	cfg.WebIP = running.WebIP
	cfg.WebPort = running.WebPort
	cfg.BeatsEndpoint = running.BeatsEndpoint
	cfg.CaptureFile = running.CaptureFile
	cfg.MetricCollectionInterval = running.MetricCollectionInterval
	cfg.MetricMaxAge = running.MetricMaxAge
	cfg.PIDFile = running.PIDFile
}

package sender

import (
	"fmt"
	"framelink/internal/config"
	"framelink/internal/global"
	"framelink/internal/sender/source"
	"framelink/pkg/protocol"
	"time"
)

// Parses the sender section of the shared file into daemon config
func NewDaemonConf(file config.File, path string) (cfg Config, err error) {
	section := file.Sender

	cfg.File = file
	cfg.ConfigPath = path

	// Network settings
	cfg.ClientIP = section.Network.ClientAddress
	cfg.VideoPort = section.Network.VideoPort
	cfg.MetricsPort = section.Network.MetricsPort

	// Source settings
	cfg.Source = source.Config{
		Kind:    section.Source.Kind,
		Path:    section.Source.Path,
		Width:   section.Source.Width,
		Height:  section.Source.Height,
		Quality: section.JPEGQuality,
	}
	cfg.MaxPayload = section.MaxPayload
	cfg.FPSLimit = section.FPSLimit

	cfg.MetricsEncoding = section.MetricsEncoding
	cfg.InhibitSleep = section.InhibitSleep
	cfg.PIDFile = section.PIDFile

	// Metric settings
	cfg.MetricQueryServerPort = section.Metrics.QueryServerPort
	cfg.MetricMaxAge, err = time.ParseDuration(section.Metrics.MaximumRetention)
	if err != nil {
		err = fmt.Errorf("failed to parse metric max age time: %w", err)
		return
	}
	cfg.MetricCollectionInterval, err = time.ParseDuration(section.Metrics.CollectionInterval)
	if err != nil {
		err = fmt.Errorf("failed to parse collection interval time: %w", err)
		return
	}
	return
}

// Sets defaults for any missing/invalid values
func (cfg *Config) setDefaults() {
	// Network
	if cfg.ClientIP == "" {
		cfg.ClientIP = global.DefaultClientAddr
	}
	if cfg.VideoPort == 0 {
		cfg.VideoPort = global.DefaultVideoPort
	}
	if cfg.MetricsPort == 0 {
		cfg.MetricsPort = global.DefaultMetricsPort
	}

	// Frames
	if cfg.MaxPayload <= 0 {
		cfg.MaxPayload = protocol.DefaultFragmentPayload
	}
	if cfg.FPSLimit < 0 {
		cfg.FPSLimit = 0
	}
	if cfg.Source.Quality == 0 {
		cfg.Source.Quality = global.DefaultJPEGQuality
	}
	if cfg.MetricsEncoding == "" {
		cfg.MetricsEncoding = protocol.EncodingJSON
	}

	// Metrics
	if cfg.MetricMaxAge == 0 {
		cfg.MetricMaxAge = 1 * time.Hour
	}
	if cfg.MetricCollectionInterval == 0 {
		cfg.MetricCollectionInterval = 10 * time.Second
	}
}

// Settings only read at startup
func (cfg Config) restartSettings() (settings [9]interface{}) {
	settings = [9]interface{}{
		cfg.ClientIP,
		cfg.VideoPort,
		cfg.MetricsPort,
		cfg.Source,
		cfg.MetricsEncoding,
		cfg.InhibitSleep,
		cfg.MetricQueryServerPort,
		cfg.MetricCollectionInterval,
		cfg.MetricMaxAge,
	}
	return
}

package config

import (
	"fmt"
	"framelink/pkg/protocol"
	"time"
)

func validPort(name string, port int, allowZero bool) (err error) {
	if allowZero && port == 0 {
		return
	}
	if port < 1 || port > 65535 {
		err = fmt.Errorf("invalid %s %d: must be between 1 and 65535", name, port)
	}
	return
}

func validDuration(name, value string) (err error) {
	parsed, err := time.ParseDuration(value)
	if err != nil {
		err = fmt.Errorf("invalid %s %q: %w", name, value, err)
		return
	}
	if parsed < 0 {
		err = fmt.Errorf("invalid %s %q: cannot be negative", name, value)
	}
	return
}

// Checks value ranges of both sections
func (file File) Validate() (err error) {
	receiver := file.Receiver
	checks := []error{
		validPort("receiver video port", receiver.Network.VideoPort, false),
		validPort("receiver metrics port", receiver.Network.MetricsPort, false),
		validPort("receiver http port", receiver.HTTP.Port, false),
		validDuration("receiver frame idle timeout", receiver.Reassembly.FrameIdleTimeout),
		validDuration("receiver metric collection interval", receiver.Metrics.CollectionInterval),
		validDuration("receiver metric retention", receiver.Metrics.MaximumRetention),
	}

	sender := file.Sender
	checks = append(checks,
		validPort("sender client video port", sender.Network.VideoPort, false),
		validPort("sender client metrics port", sender.Network.MetricsPort, false),
		validPort("sender metric query port", sender.Metrics.QueryServerPort, true),
		validDuration("sender metric collection interval", sender.Metrics.CollectionInterval),
		validDuration("sender metric retention", sender.Metrics.MaximumRetention),
	)

	for _, check := range checks {
		if check != nil {
			err = check
			return
		}
	}

	if receiver.Network.VideoPort == receiver.Network.MetricsPort {
		err = fmt.Errorf("receiver video and metrics ports must differ (both %d)", receiver.Network.VideoPort)
		return
	}
	if receiver.Reassembly.EvictionLag < 1 {
		err = fmt.Errorf("invalid receiver eviction lag %d: must be at least 1", receiver.Reassembly.EvictionLag)
		return
	}
	if receiver.Network.ReceiveBufferBytes < 0 {
		err = fmt.Errorf("invalid receiver buffer size %d", receiver.Network.ReceiveBufferBytes)
		return
	}
	if sender.Network.ClientAddress == "" {
		err = fmt.Errorf("sender client address cannot be empty")
		return
	}
	if sender.MaxPayload < 1 {
		err = fmt.Errorf("invalid sender max payload %d", sender.MaxPayload)
		return
	}
	if sender.JPEGQuality < 1 || sender.JPEGQuality > 100 {
		err = fmt.Errorf("invalid sender jpeg quality %d: must be between 1 and 100", sender.JPEGQuality)
		return
	}
	if sender.FPSLimit < 0 {
		err = fmt.Errorf("invalid sender fps limit %g: cannot be negative", sender.FPSLimit)
		return
	}

	switch sender.MetricsEncoding {
	case protocol.EncodingJSON, protocol.EncodingMsgpack:
	default:
		err = fmt.Errorf("unknown sender metrics encoding %q", sender.MetricsEncoding)
		return
	}

	switch sender.Source.Kind {
	case SourceSynthetic:
		if sender.Source.Width < 16 || sender.Source.Height < 16 {
			err = fmt.Errorf("synthetic source dimensions %dx%d too small", sender.Source.Width, sender.Source.Height)
			return
		}
	case SourceDirectory, SourceMJPEG:
		if sender.Source.Path == "" {
			err = fmt.Errorf("source kind %s requires a path", sender.Source.Kind)
			return
		}
	default:
		err = fmt.Errorf("unknown source kind %q", sender.Source.Kind)
		return
	}
	return
}

// Parses a duration field already checked by Validate
func Duration(value string) (parsed time.Duration) {
	parsed, _ = time.ParseDuration(value)
	return
}

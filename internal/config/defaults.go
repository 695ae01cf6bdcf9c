package config

import (
	"framelink/internal/global"
	"framelink/pkg/protocol"

	"github.com/spf13/viper"
)

const (
	SourceSynthetic string = "synthetic"
	SourceDirectory string = "directory"
	SourceMJPEG     string = "mjpeg"

	defaultFrameWidth  int = 640
	defaultFrameHeight int = 480
	defaultMaxPayload  int = 1300
)

// Configuration used when no file exists
func Defaults() (file File) {
	metrics := Metrics{
		CollectionInterval: global.DefaultMetricInterval,
		MaximumRetention:   global.DefaultMetricRetention,
	}

	file.Receiver = Receiver{
		Network: ReceiverNetwork{
			ListenAddress:      global.DefaultListenAddr,
			VideoPort:          global.DefaultVideoPort,
			MetricsPort:        global.DefaultMetricsPort,
			ReceiveBufferBytes: global.DefaultReceiveBufferBytes,
			KernelFilter:       true,
		},
		HTTP: HTTP{
			Address: global.DefaultWebAddr,
			Port:    global.DefaultWebPort,
		},
		Reassembly: Reassembly{
			EvictionLag:      global.DefaultEvictionLag,
			FrameIdleTimeout: "0s",
		},
		Metrics:            metrics,
		AutoStartListeners: true,
	}

	file.Sender = Sender{
		Network: SenderNetwork{
			ClientAddress: global.DefaultClientAddr,
			VideoPort:     global.DefaultVideoPort,
			MetricsPort:   global.DefaultMetricsPort,
		},
		Source: Source{
			Kind:   SourceSynthetic,
			Width:  defaultFrameWidth,
			Height: defaultFrameHeight,
		},
		MaxPayload:      defaultMaxPayload,
		JPEGQuality:     global.DefaultJPEGQuality,
		MetricsEncoding: protocol.EncodingJSON,
		Metrics:         metrics,
	}
	return
}

// Registers every key so env overrides and partial files resolve
func setDefaults(v *viper.Viper) {
	d := Defaults()

	v.SetDefault("receiver.network.listenAddress", d.Receiver.Network.ListenAddress)
	v.SetDefault("receiver.network.videoPort", d.Receiver.Network.VideoPort)
	v.SetDefault("receiver.network.metricsPort", d.Receiver.Network.MetricsPort)
	v.SetDefault("receiver.network.receiveBufferBytes", d.Receiver.Network.ReceiveBufferBytes)
	v.SetDefault("receiver.network.kernelFilter", d.Receiver.Network.KernelFilter)
	v.SetDefault("receiver.http.address", d.Receiver.HTTP.Address)
	v.SetDefault("receiver.http.port", d.Receiver.HTTP.Port)
	v.SetDefault("receiver.reassembly.evictionLag", d.Receiver.Reassembly.EvictionLag)
	v.SetDefault("receiver.reassembly.frameIdleTimeout", d.Receiver.Reassembly.FrameIdleTimeout)
	v.SetDefault("receiver.reassembly.maxBufferedBytes", d.Receiver.Reassembly.MaxBufferedBytes)
	v.SetDefault("receiver.outputs.beatsAddress", d.Receiver.Outputs.BeatsAddress)
	v.SetDefault("receiver.outputs.captureFile", d.Receiver.Outputs.CaptureFile)
	v.SetDefault("receiver.metrics.collectionInterval", d.Receiver.Metrics.CollectionInterval)
	v.SetDefault("receiver.metrics.maximumRetention", d.Receiver.Metrics.MaximumRetention)
	v.SetDefault("receiver.autoStartListeners", d.Receiver.AutoStartListeners)
	v.SetDefault("receiver.pidFile", d.Receiver.PIDFile)

	v.SetDefault("sender.network.clientAddress", d.Sender.Network.ClientAddress)
	v.SetDefault("sender.network.videoPort", d.Sender.Network.VideoPort)
	v.SetDefault("sender.network.metricsPort", d.Sender.Network.MetricsPort)
	v.SetDefault("sender.source.kind", d.Sender.Source.Kind)
	v.SetDefault("sender.source.path", d.Sender.Source.Path)
	v.SetDefault("sender.source.width", d.Sender.Source.Width)
	v.SetDefault("sender.source.height", d.Sender.Source.Height)
	v.SetDefault("sender.maxPayload", d.Sender.MaxPayload)
	v.SetDefault("sender.jpegQuality", d.Sender.JPEGQuality)
	v.SetDefault("sender.fpsLimit", d.Sender.FPSLimit)
	v.SetDefault("sender.metricsEncoding", d.Sender.MetricsEncoding)
	v.SetDefault("sender.inhibitSleep", d.Sender.InhibitSleep)
	v.SetDefault("sender.pidFile", d.Sender.PIDFile)
	v.SetDefault("sender.metrics.collectionInterval", d.Sender.Metrics.CollectionInterval)
	v.SetDefault("sender.metrics.maximumRetention", d.Sender.Metrics.MaximumRetention)
	v.SetDefault("sender.metrics.queryServerPort", d.Sender.Metrics.QueryServerPort)
}

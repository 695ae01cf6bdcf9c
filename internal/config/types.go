package config

// Shared configuration file holding both roles
type File struct {
	Receiver Receiver `json:"receiver" mapstructure:"receiver"`
	Sender   Sender   `json:"sender" mapstructure:"sender"`
}

// Adjusts every file a daemon loads, so command line flags outlive reloads
type Override func(file *File) (err error)

type Receiver struct {
	Network            ReceiverNetwork `json:"network" mapstructure:"network"`
	HTTP               HTTP            `json:"http" mapstructure:"http"`
	Reassembly         Reassembly      `json:"reassembly" mapstructure:"reassembly"`
	Outputs            Outputs         `json:"outputs" mapstructure:"outputs"`
	Metrics            Metrics         `json:"metrics" mapstructure:"metrics"`
	AutoStartListeners bool            `json:"autoStartListeners" mapstructure:"autoStartListeners"`
	PIDFile            string          `json:"pidFile" mapstructure:"pidFile"`
}

type ReceiverNetwork struct {
	ListenAddress      string `json:"listenAddress" mapstructure:"listenAddress"`
	VideoPort          int    `json:"videoPort" mapstructure:"videoPort"`
	MetricsPort        int    `json:"metricsPort" mapstructure:"metricsPort"`
	ReceiveBufferBytes int    `json:"receiveBufferBytes" mapstructure:"receiveBufferBytes"`
	KernelFilter       bool   `json:"kernelFilter" mapstructure:"kernelFilter"`
}

type HTTP struct {
	Address string `json:"address" mapstructure:"address"`
	Port    int    `json:"port" mapstructure:"port"`
}

type Reassembly struct {
	EvictionLag      int    `json:"evictionLag" mapstructure:"evictionLag"`
	FrameIdleTimeout string `json:"frameIdleTimeout" mapstructure:"frameIdleTimeout"` // "0s" disables
	MaxBufferedBytes uint64 `json:"maxBufferedBytes" mapstructure:"maxBufferedBytes"` // 0 derives from system memory
}

type Outputs struct {
	BeatsAddress string `json:"beatsAddress" mapstructure:"beatsAddress"`
	CaptureFile  string `json:"captureFile" mapstructure:"captureFile"`
}

type Metrics struct {
	CollectionInterval string `json:"collectionInterval" mapstructure:"collectionInterval"`
	MaximumRetention   string `json:"maximumRetention" mapstructure:"maximumRetention"`
	QueryServerPort    int    `json:"queryServerPort,omitempty" mapstructure:"queryServerPort"` // sender only, 0 disables
}

type Sender struct {
	Network         SenderNetwork `json:"network" mapstructure:"network"`
	Source          Source        `json:"source" mapstructure:"source"`
	MaxPayload      int           `json:"maxPayload" mapstructure:"maxPayload"`
	JPEGQuality     int           `json:"jpegQuality" mapstructure:"jpegQuality"`
	FPSLimit        float64       `json:"fpsLimit" mapstructure:"fpsLimit"` // 0 = unlimited
	MetricsEncoding string        `json:"metricsEncoding" mapstructure:"metricsEncoding"`
	InhibitSleep    bool          `json:"inhibitSleep" mapstructure:"inhibitSleep"`
	PIDFile         string        `json:"pidFile" mapstructure:"pidFile"`
	Metrics         Metrics       `json:"metrics" mapstructure:"metrics"`
}

type SenderNetwork struct {
	ClientAddress string `json:"clientAddress" mapstructure:"clientAddress"`
	VideoPort     int    `json:"videoPort" mapstructure:"videoPort"`
	MetricsPort   int    `json:"metricsPort" mapstructure:"metricsPort"`
}

type Source struct {
	Kind   string `json:"kind" mapstructure:"kind"` // synthetic, directory, mjpeg
	Path   string `json:"path" mapstructure:"path"`
	Width  int    `json:"width" mapstructure:"width"`
	Height int    `json:"height" mapstructure:"height"`
}

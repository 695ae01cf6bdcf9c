package global

import "time"

const (
	// Descriptive Names for available verbosity levels
	VerbosityNone int = iota
	VerbosityStandard
	VerbosityProgress
	VerbosityData
	VerbosityFullData
	VerbosityDebug

	// Descriptive names for available severity levels
	ErrorLog string = "Error"
	WarnLog  string = "Warn"
	InfoLog  string = "Info"
)

const (
	ProgVersion  string = "v0.3.1"
	ProgBaseName string = "framelink"

	// Context keys
	LoggerKey  CtxKey = "logger"  // Event queue (mostly for variable log verbosity handling)
	LogTagsKey CtxKey = "logtags" // List of tags in order of broad->specific appended/popped at various parts of the program

	DefaultConfigPath string = "/etc/framelink.json"
	EnvPrefix         string = "FRAMELINK"

	// Network defaults
	DefaultListenAddr         string = "0.0.0.0"
	DefaultVideoPort          int    = 4001
	DefaultMetricsPort        int    = 7001
	DefaultClientAddr         string = "127.0.0.1"
	DefaultReceiveBufferBytes int    = 4 * 1024 * 1024
	DefaultJPEGQuality        int    = 70
	VideoReadBufferSize       int    = 65535
	MetricsReadBufferSize     int    = 4096

	// Bounded socket waits
	ReceivePollInterval time.Duration = 1 * time.Second
	DefaultSendTimeout  time.Duration = 250 * time.Millisecond

	// Receiver listener restart pause
	ListenerRestartPause time.Duration = 200 * time.Millisecond

	// Reassembly defaults
	DefaultEvictionLag      int    = 5
	MinBufferedFrameBytes   uint64 = 8 * 1024 * 1024
	MaxBufferedFrameBytes   uint64 = 256 * 1024 * 1024
	BufferedFrameMemoryFrac uint64 = 64 // share of total system memory (1/N)

	// Receiver statistics
	StatsWindowSize int = 60

	// Sender statistics cadence
	SenderStatsInterval time.Duration = 1 * time.Second

	// Pause before retrying a frame source that failed or returned nothing
	SourceRetryPause time.Duration = 100 * time.Millisecond

	// Timeout values
	ReceiveShutdownTimeout time.Duration = 10 * time.Second
	SendShutdownTimeout    time.Duration = 5 * time.Second

	// Metric collection
	DefaultMetricInterval  string = "10s"
	DefaultMetricRetention string = "1h"

	// HTTP server
	DefaultWebAddr        string        = "0.0.0.0"
	DefaultWebPort        int           = 8000
	HTTPListenPortSender  int           = 18000
	HTTPListenAddr        string        = "localhost" // Sender metric queries only exposed to local machine
	HTTPReadTimeout       time.Duration = 30 * time.Second
	HTTPWriteTimeout      time.Duration = 10 * time.Second
	HTTPIdleTimeout       time.Duration = 180 * time.Second
	MJPEGPollInterval     time.Duration = 5 * time.Millisecond
	MJPEGBoundary         string        = "frame"
	DataPath              string        = "/data/"
	DiscoveryPath         string        = "/discover/"
	AggregationPath       string        = "/aggregate/"
	MetricHelpPath        string        = "/help"
	ControlPath           string        = "/control/"
	ExporterQueueCapacity uint64        = 256

	// Namespacing Name Components
	NSMetric    string = "Metrics"
	NSMetricSrv string = "Server"
	NSTest      string = "Test"
	NSCLI       string = "CLI"
	NSRecv      string = "Receiver"
	NSSend      string = "Sender"
	NSListen    string = "Listener"
	NSVideo     string = "Video"
	NSSideChan  string = "SideChannel"
	NSReasm     string = "Reassembly"
	NSOut       string = "Output"
	NSSource    string = "Source"
	NSQueue     string = "Queue"
	NSWatcher   string = "Watcher"
	NSConfig    string = "Config"
	NSoBeats    string = "Beats"
	NSoCapture  string = "Capture"
	NSKernel    string = "Kernel"
)

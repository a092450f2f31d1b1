package param

import (
	"io"
	"log"
)

var (
	// reduced logging: only LogServices prefixes are written via syslog.Log.
	// Disabled (-rlog 0) every component prefix is written.
	ReducedLog = true
	// debug logging: can be modified by -debug argument on each program
	DebugOn = false
	// statistics collection: can be modified by -stats argument
	StatsSystem = false
)

const (
	// Logging

	Logid = "main:"

	AppName = "SmartGraph"

	// progress notification - report record count and elapsed time every ProgressInterval records
	ProgressInterval = 1000000

	// TimeZone
	TZ = "Australia/Sydney"

	// CloudWatch Logs writer (build tag cwlog)
	// number of log events per PutLogEvents upload
	CWLogLoadSize = 500
	// buffer on the log event channel feeding the uploader
	LogChBufSize = 100

	// stats: default duration between kept samples when a label has no registered limit
	SampleDurWaits = "100ms"
	// stats: max kept samples per label/event
	MaxSampleSet = 10000

	StatsSystemTag = "stats"
)

var (
	// run scoped - populated by run.New() and syslog.Start()
	RunId   string
	Environ = "dev"
	LogFile string

	// support logger for the main log writer (file or CW Logs)
	FileLogr   *log.Logger
	FileWriter io.Writer
)

// LogServices - services whose log output is always written even when DebugOn is false.
var LogServices = []string{Logid, "errlog"}

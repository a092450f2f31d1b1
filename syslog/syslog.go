package syslog

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	param "github.com/SmartGraph/smgparam"
	"github.com/SmartGraph/syslog/internal/wrt"
)

const (
	logrFlags = log.LstdFlags | log.Lshortfile

	logDir  = "/SmartGraph/"
	logName = "SmartGraph"
	idFile  = "log.id"
)

// one logger per prefix, all sharing the one io.Writer. A full lock is taken only
// when a new prefix is registered, otherwise a read lock - multiple writers can
// run concurrently as the underlying io.Writer serialises access to its resource.
var (
	iow     io.Writer
	logrMap map[string]*log.Logger
	logWRm  sync.RWMutex
)

// Start is called from main before any logging. It assigns either an os file
// io.Writer or the CloudWatchLogs io.Writer - determined by build tag cwlog.
func Start() error {
	logrMap = make(map[string]*log.Logger)

	// logger used to support the main log writer itself (file open errors, CW upload errors)
	if param.FileLogr == nil {
		fileLogr := log.New(NewBaseErrFile(), "main", logrFlags)
		fileLogr.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
		param.FileLogr = fileLogr
	}

	iow = wrt.New()
	return wrt.Start(param.FileLogr)
}

func Stop() {
	wrt.Stop()
}

func newLogr(prefix string) *log.Logger {
	w := iow
	if w == nil {
		// Start() not called - e.g. package tests
		w = os.Stderr
	}
	logr := log.New(w, prefix, logrFlags)
	logr.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	return logr
}

func getLogr(prefix string) *log.Logger {

	logWRm.RLock()
	logr, ok := logrMap[prefix]
	logWRm.RUnlock()
	if ok {
		return logr
	}

	logWRm.Lock()
	if logrMap == nil {
		logrMap = make(map[string]*log.Logger)
	}
	logr, ok = logrMap[prefix]
	if !ok {
		logr = newLogr(prefix)
		logrMap[prefix] = logr
	}
	logWRm.Unlock()
	return logr
}

// NewLogr returns a std log.Logger writing to the syslog io.Writer - used to pass
// a logger into packages that accept one (e.g. grmgr).
func NewLogr(prefix string) *log.Logger {
	return getLogr(prefix)
}

// logit decides whether a prefix is written: a prefix on param.LogServices
// always is, everything else only when DebugOn or reduced logging is off.
func logit(prefix string) bool {
	if param.DebugOn || !param.ReducedLog {
		return true
	}
	for _, v := range param.LogServices {
		if strings.HasPrefix(prefix, v) {
			return true
		}
	}
	return false
}

// Log writes debug-level text to the underlying storage system, either an os file
// or AWS Cloudwatch logs. Output is gated - see logit.
func Log(prefix string, s string, panic_ ...bool) {

	if !logit(prefix) {
		return
	}

	logr := getLogr(prefix)
	if len(panic_) > 0 && panic_[0] {
		logr.Panic(s)
		return
	}
	logr.Print(s)
}

// LogAlert is ungated - operational messages (service start/stop, warnings, summaries).
func LogAlert(prefix string, s string) {
	var out strings.Builder
	out.WriteString("|alert|")
	out.WriteString(s)
	getLogr(prefix).Print(out.String())
}

// LogErr is ungated.
func LogErr(prefix string, e error) {
	var out strings.Builder
	out.WriteString("|error|")
	out.WriteString(e.Error())
	getLogr(prefix).Print(out.String())
}

func LogDebug(prefix string, s string) {
	if !param.DebugOn {
		return
	}
	var out strings.Builder
	out.WriteString("|info|")
	out.WriteString(s)
	getLogr(prefix).Print(out.String())
}

func LogFail(prefix string, e error) {
	var out strings.Builder
	out.WriteString("|fatal|")
	out.WriteString(e.Error())
	getLogr(prefix).Fatal(out.String())
}

// NewBaseErrFile opens the log file the base (support) logger writes to.
// A log id file (contains: a..z) generates log files with naming convention
// <LOGDIR><logDir><logName>.<a..z>.log
func NewBaseErrFile() io.Writer {

	if s := os.Getenv("LOGDIR"); len(s) == 0 {
		log.Fatal(fmt.Errorf("LOGDIR not defined. Define LOGDIR as the full path to the log directory"))
	}
	idf, err := os.OpenFile(os.Getenv("LOGDIR")+logDir+idFile, os.O_RDWR|os.O_CREATE, 0744)
	if err != nil {
		log.Fatal(err)
	}

	// read log id into postfix, increment and save back to file
	var n int
	postfix := make([]uint8, 1, 1)
	n, err = idf.Read(postfix)
	if err != nil && err != io.EOF {
		log.Fatalf("log: error in reading log.id, %s", err.Error())
	}
	if n == 0 {
		postfix[0] = 'a'
	} else {
		if postfix[0] == 'z' {
			postfix[0] = 'a'
		} else {
			postfix[0] += 1
		}
	}
	idf.Seek(0, 0)
	_, err = idf.Write(postfix)
	if err != nil {
		log.Fatalf("log: error in writing to id file, %s", err.Error())
	}
	err = idf.Close()
	if err != nil {
		panic(err)
	}

	var s strings.Builder
	s.WriteString(os.Getenv("LOGDIR"))
	s.WriteString(logDir)
	s.WriteString(logName)
	s.WriteByte('.')
	s.WriteByte(postfix[0])
	s.WriteString(".log")

	param.LogFile = s.String()

	logf, err := os.OpenFile(s.String(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0755)
	if err != nil {
		log.Fatal(err)
	}
	param.FileWriter = logf
	return logf
}

package run

import (
	"fmt"
	"time"

	param "github.com/SmartGraph/smgparam"
	slog "github.com/SmartGraph/syslog"

	guuid "github.com/satori/go.uuid"
)

// run holds the identity and clock of the current program execution. Every
// component that reports elapsed time reads the one start instant allocated
// in New() - there is no process-wide mutable start time.

var (
	runid   string
	program string
	tstart  time.Time
)

func init() {
	// replaced by New() - keeps Elapsed() sane when a driver is exercised directly
	tstart = time.Now()
}

// New allocates a run id and starts the run clock.
func New(logid string, prog string) (string, error) {

	u := guuid.NewV4()
	uuibin, err := u.MarshalBinary()
	if err != nil {
		return "", err
	}
	runid = fmt.Sprintf("%x", uuibin)
	program = prog
	param.RunId = runid
	tstart = time.Now()

	slog.LogAlert(logid, fmt.Sprintf("Run %s started. Program: %s", runid, prog))

	return runid, nil
}

// Elapsed returns the duration since the run started.
func Elapsed() time.Duration {
	return time.Now().Sub(tstart)
}

// ElapsedSec renders the run clock the way progress messages print it.
func ElapsedSec() string {
	return fmt.Sprintf("%.3f", Elapsed().Seconds())
}

// Finish completes the run state for the program.
func Finish(err error) {

	status := "C"
	if err != nil {
		status = "E"
	}
	slog.LogAlert(param.Logid, fmt.Sprintf("Run %s finished. Program: %s  Status: %s  Elapsed: %s", runid, program, status, Elapsed().String()))
}

func GetRunId() string {
	return runid
}

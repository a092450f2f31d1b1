package errlog

import (
	"context"
	"fmt"
	"strings"
	"sync"

	slog "github.com/SmartGraph/syslog"
)

// errlog collects per-record diagnostics for the run. Diagnostics are never
// fatal - they are logged as they arrive and reported in bulk at end of run.

type Errors_ []*payload

type payload struct {
	Id  string
	Err error
}

const (
	logid = "errlog"
)

var (
	addCh        chan *payload
	PrintCh      chan chan struct{}
	ErrCntByIdCh chan string
	ErrCntRespCh chan int
	ErrCntCh     chan chan int
	ResetCntCh   chan string
)

// Add one or more errors grouped under a logid.
func Add(logid string, err ...error) {

	if len(err) == 0 {
		panic(fmt.Errorf("errlog Add had no second (error) argument"))
	}

	logid = strings.TrimRight(logid, " :")

	if addCh == nil {
		// service not powered on - log directly
		for _, e := range err {
			slog.LogErr(logid, e)
		}
		return
	}

	for _, e := range err {
		addCh <- &payload{logid, e}
	}
}

func PrintErrors() {
	respCh := make(chan struct{})
	PrintCh <- respCh
	<-respCh
}

// ErrCnt returns the number of errors recorded under an id, -1 when none.
func ErrCnt(id string) int {
	ErrCntByIdCh <- id
	return <-ErrCntRespCh
}

func errCount() int {
	respCh := make(chan int)
	ErrCntCh <- respCh
	return <-respCh
}

func RunErrored() bool {
	return errCount() > 0
}

func Errors() bool {
	return RunErrored()
}

func PowerOn(ctx context.Context, wpStart *sync.WaitGroup, wgEnd *sync.WaitGroup) {

	defer wgEnd.Done()

	var (
		pld    *payload
		errors Errors_
	)

	errCnt := make(map[string]int) // count errors by Id

	addCh = make(chan *payload)
	PrintCh = make(chan chan struct{})
	ErrCntByIdCh = make(chan string)
	ErrCntRespCh = make(chan int)
	ErrCntCh = make(chan chan int)
	ResetCntCh = make(chan string)

	wpStart.Done()
	slog.LogAlert(logid, "Powering up...")

	for {

		select {

		case pld = <-addCh:

			// log to log file or CW logs as it arrives
			slog.LogErr(pld.Id, pld.Err)

			errCnt[pld.Id]++
			errors = append(errors, pld)

		case id := <-ErrCntByIdCh:

			if c, ok := errCnt[id]; !ok {
				ErrCntRespCh <- -1
			} else {
				ErrCntRespCh <- c
			}

		case respCh := <-ErrCntCh:

			respCh <- len(errors)

		case id := <-ResetCntCh:

			if _, ok := errCnt[id]; ok {
				errCnt[id] = 0
			}

		case respch := <-PrintCh:

			slog.LogAlert(logid, fmt.Sprintf(" ==================== ERRORS : %d	==============", len(errors)))
			fmt.Printf(" ==================== ERRORS : %d	==============\n", len(errors))
			for _, e := range errors {
				slog.LogAlert(logid, fmt.Sprintf(" %s %s", e.Id, e.Err))
				fmt.Println(e.Id, e.Err)
			}

			respch <- struct{}{}

		case <-ctx.Done():
			slog.LogAlert(logid, "Shutdown.")
			return

		}
	}
}

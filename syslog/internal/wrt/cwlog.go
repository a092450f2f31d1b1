//go:build cwlog
// +build cwlog

package wrt

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	param "github.com/SmartGraph/smgparam"
	"github.com/SmartGraph/stats"
	"github.com/SmartGraph/syslog/internal/wrt/dbuf"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	cwlogs "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
)

// io.Writer over a channel feeding the uploader goroutine.
type cwLog byte

func (b cwLog) Write(p []byte) (i int, err error) {

	s := string(p)
	t := time.Now().UnixMilli()

	logCh <- &types.InputLogEvent{Message: &s, Timestamp: &t}

	return len(s), nil
}

var (
	uploadInterval = 2
	lastUpload     time.Time
	logStream      *string
	client         *cwlogs.Client
	//
	logGroup string
	//
	firstTimeCh  chan bool
	closeFirstCh chan struct{}
	uploadCh     chan struct{}
	errorCh      chan error
	logCh        chan *types.InputLogEvent
	setSeqCh     chan *string
	//
	cancel         context.CancelFunc
	ctx            context.Context
	wgStart, wgEnd sync.WaitGroup
	// fileLogr supports cwlogger errors
	fileLogr *log.Logger
	//
	EOD int64 = -1
)

func New() io.Writer {
	var w cwLog
	return w
}

func newCWLogClient() *cwlogs.Client {

	cfg, err := config.LoadDefaultConfig(context.TODO())
	if err != nil {
		panic("configuration error, " + err.Error())
	}

	return cwlogs.NewFromConfig(cfg)
}

func createLogStream() error {

	var s strings.Builder
	s.WriteByte('/')
	s.WriteString(param.Environ)
	s.WriteByte('/')
	if len(param.RunId) >= 6 {
		s.WriteString(param.RunId[:6])
	} else {
		s.WriteString(time.Now().Format("150405"))
	}
	s.WriteString(".log")

	logStream = aws.String(s.String())

	_, err := client.CreateLogStream(context.Background(), &cwlogs.CreateLogStreamInput{LogGroupName: &logGroup, LogStreamName: logStream})
	return err
}

func Start(flogr *log.Logger) error {

	client = newCWLogClient()

	fileLogr = flogr

	ctx, cancel = context.WithCancel(context.Background())

	dur, err := time.ParseDuration("500ms")
	if err != nil {
		panic(err)
	}
	stats.Register("PutLogEvents", dur)

	wgStart.Add(1)
	wgEnd.Add(1)

	go powerOn(ctx, &wgStart, &wgEnd)

	wgStart.Wait()

	logGroup = param.AppName + "-" + param.Environ

	return createLogStream()
}

func Stop() {

	// place EOD on logCh - which will empty logCh and then close down.
	logCh <- &types.InputLogEvent{Timestamp: &EOD}

	wgEnd.Wait()
}

// upload to Cloudwatch logs using PutLogEvents(). NextSequenceToken is passed
// between uploads via channel setSeqCh. Called only when there are events to upload.
func upload(b []types.InputLogEvent) {

	var seqid *string
	t0 := time.Now()

	// very first upload must pass a nil sequence token. firstTimeCh is closed
	// afterwards (issues zero value, false) - thereafter seqid comes from setSeqCh.
	first := <-firstTimeCh

	if first {
		seqid = nil
	} else {
		seqid = <-setSeqCh
	}

	plei := &cwlogs.PutLogEventsInput{LogEvents: b, LogGroupName: &logGroup, LogStreamName: logStream, SequenceToken: seqid}

	pleo, err := client.PutLogEvents(ctx, plei)
	if err != nil {
		errorCh <- fmt.Errorf("Error in PutLogEvents of CloudwatchLogs %w", err)
		return
	}

	if v := pleo.RejectedLogEventsInfo; v != nil {
		if v.ExpiredLogEventEndIndex != nil {
			fileLogr.Printf("Rejected: ExpiredLogEventEndIndex %d", *v.ExpiredLogEventEndIndex)
		}
		if v.TooNewLogEventStartIndex != nil {
			fileLogr.Printf("Rejected: TooNewLogEventStartIndex %d", *v.TooNewLogEventStartIndex)
		}
		if v.TooOldLogEventEndIndex != nil {
			fileLogr.Printf("Rejected: TooOldLogEventEndIndex %d", *v.TooOldLogEventEndIndex)
		}
	}

	setSeqCh <- pleo.NextSequenceToken
	stats.SaveEventStats(stats.EvAPI, time.Now().Sub(t0), "PutLogEvents")

	if first {
		closeFirstCh <- struct{}{}
	}

	// free any waiting uploads - channel with buffer 1 serialises access to this routine.
	uploadCh <- struct{}{}
}

func powerOn(ctx context.Context, wgStart *sync.WaitGroup, wgEnd *sync.WaitGroup) {

	defer wgEnd.Done()

	var timedUpLoad chan struct{}

	logCh = make(chan *types.InputLogEvent, param.LogChBufSize)
	timedUpLoad = make(chan struct{})
	setSeqCh = make(chan *string, 1)
	errorCh = make(chan error)
	closeFirstCh = make(chan struct{}, 1)

	// serialise execution of upload() using uploadCh
	uploadCh = make(chan struct{}, 1)
	uploadCh <- struct{}{}

	// timed upload goroutine
	ctxTim, cancelTimed := context.WithCancel(context.Background())
	var timedUpldEnd sync.WaitGroup
	var timedUpldStart sync.WaitGroup
	timedUpldEnd.Add(1)
	timedUpldStart.Add(1)

	go func() {
		timedUpldStart.Done()
		defer timedUpldEnd.Done()
		for {
			select {
			case <-time.After(time.Duration(uploadInterval) * time.Second):
				timedUpLoad <- struct{}{}
			case <-ctxTim.Done():
				return
			}
		}
	}()

	timedUpldStart.Wait()
	lastUpload = time.Now()

	// serialise first time access to upload()
	firstTimeCh = make(chan bool, 1)
	firstTimeCh <- true

	wgStart.Done()

	evBuf := dbuf.New()

	for {

		select {

		case <-closeFirstCh:

			close(firstTimeCh)

		case ie := <-logCh:

			// check for EOD (end-of-data)
			if ie.Timestamp == &EOD {

				if evBuf.WriteBuf() > 0 {
					stats.RecvOnCh(uploadCh, "EOFUpload")
					evBuf.Swap()
					upload(evBuf.Read())
				}
				cancelTimed()
				timedUpldEnd.Wait()

				return
			}

			if evBuf.Write(ie) == param.CWLogLoadSize {

				// wait on channel until any currently executing upload() finishes
				stats.RecvOnCh(uploadCh, "FullBufUpload")

				evBuf.Swap()
				lastUpload = time.Now()

				go upload(evBuf.Read())
			}

		case <-timedUpLoad:

			if time.Now().Sub(lastUpload) > time.Duration(uploadInterval)*time.Second && evBuf.WriteBuf() > 0 {

				stats.RecvOnCh(uploadCh, "TimedUpload")

				evBuf.Swap()
				lastUpload = time.Now()

				go upload(evBuf.Read())
			}

		case e := <-errorCh:

			fileLogr.Print(e)

		case <-ctx.Done():
			cancelTimed()
			timedUpldEnd.Wait()
			return

		}
	}
}

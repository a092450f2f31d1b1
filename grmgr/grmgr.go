package grmgr

import (
	"context"
	"fmt"
	"sync"
	"time"

	slog "github.com/SmartGraph/syslog"
)

// grmgr sets a ceiling on the number of concurrent instances of a go routine.
// A single service goroutine has sole access to the shared maps - clients
// request or release capacity via channels.
// "don't communicate by sharing memory, share memory by communicating"

const logid = "grmgr: "

type Routine = string

type Ceiling = int

type rCntMap map[Routine]Ceiling

var rCnt rCntMap

type rWaitMap map[Routine]int

var rWait rWaitMap

var EndCh = make(chan Routine, 1)
var rAskCh = make(chan Routine)

type respCh chan struct{}

type Limiter struct {
	c  Ceiling
	r  Routine
	ch respCh
}

// Ask requests a run slot. Receive on RespCh() before starting the goroutine.
func (l *Limiter) Ask() {
	rAskCh <- l.r
}

// EndR releases a run slot - call from the goroutine when it finishes.
func (l *Limiter) EndR() {
	EndCh <- l.r
}

func (l *Limiter) Unregister() {
	unRegisterCh <- l.r
}

func (l Limiter) RespCh() respCh {
	return l.ch
}

func (l Limiter) Routine() Routine {
	return l.r
}

type rLimiterMap map[Routine]*Limiter

var (
	rLimit       rLimiterMap
	registerCh   = make(chan *Limiter)
	unRegisterCh = make(chan Routine)
)

func syslog(s string) {
	slog.Log(logid, s)
}

func New(r string, c Ceiling) *Limiter {
	l := Limiter{c: c, r: Routine(r), ch: make(chan struct{})}
	registerCh <- &l
	syslog(fmt.Sprintf("New Routine %q   Ceiling: %d ", r, c))
	return &l
}

var (
	// take a snapshot of running counts every snapInterval seconds
	snapInterval = 2
	// report averages to the log every snapReportInterval seconds
	snapReportInterval = 10
)

func PowerOn(ctx context.Context, wpStart *sync.WaitGroup, wgEnd *sync.WaitGroup) {

	defer wgEnd.Done()

	var (
		r Routine
		l *Limiter
		// snapshot reporting
		s, rsnap int
	)

	rCnt = make(rCntMap)
	rLimit = make(rLimiterMap)
	rWait = make(rWaitMap)
	csnap := make(map[string][]int) // cumulative snapshots

	snapCh := make(chan time.Time)

	ctxSnap, cancelSnap := context.WithCancel(context.Background())
	var wgSnap sync.WaitGroup
	var wgStart sync.WaitGroup
	wgStart.Add(1)
	wgSnap.Add(1)

	// snapshot interrupter
	go func() {
		wgStart.Done()
		defer wgSnap.Done()
		for {
			select {
			case t := <-time.After(time.Duration(snapInterval) * time.Second):
				select {
				case snapCh <- t:
				case <-ctxSnap.Done():
					slog.Log(logid, "Report-snapshot Shutdown.")
					return
				}
			case <-ctxSnap.Done():
				slog.Log(logid, "Report-snapshot Shutdown.")
				return
			}
		}
	}()

	// wait for snap interrupter to start
	wgStart.Wait()
	slog.Log(logid, "Fully powered up...")
	wpStart.Done()

	for {

		select {

		case l = <-registerCh:

			// ensure unique label
			var e byte = 65
			for {
				if _, ok := rLimit[l.r]; !ok {
					break
				}
				l.r += string(e)
				e++
			}

			rLimit[l.r] = l
			rCnt[l.r] = 0
			rWait[l.r] = 0

		case r = <-EndCh:

			rCnt[r] -= 1

			if b, ok := rWait[r]; ok {
				if b > 0 && rCnt[r] < rLimit[r].c {
					// free a waiting routine
					rLimit[r].ch <- struct{}{}
					rCnt[r] += 1
					rWait[r] -= 1
				}
			}

		case r = <-rAskCh:

			if rCnt[r] < rLimit[r].c {
				rLimit[r].ch <- struct{}{} // proceed to run gr
				rCnt[r] += 1
			} else {
				rWait[r] += 1 // mark as waiting to proceed
			}

		case <-snapCh:

			s++
			rsnap += snapInterval
			for k, v := range rCnt {
				csnap[k] = append(csnap[k], v)
			}
			if rsnap >= snapReportInterval {
				for k, v := range csnap {
					if len(v) == 0 {
						continue
					}
					sum := 0
					for _, vv := range v {
						sum += vv
					}
					syslog(fmt.Sprintf("Routine %q average concurrency %.2f over %ds", k, float64(sum)/float64(len(v)), len(v)*snapInterval))
				}
				rsnap, s = 0, 0
			}

		case r = <-unRegisterCh:

			delete(rLimit, r)
			delete(rCnt, r)
			delete(rWait, r)
			delete(csnap, r)

		case <-ctx.Done():
			cancelSnap()
			wgSnap.Wait()
			slog.Log(logid, "Shutdown.")
			return

		}
	}
}

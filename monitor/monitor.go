package monitor

import (
	"context"
	"fmt"
	"sync"

	slog "github.com/SmartGraph/syslog"
)

// monitor is the repository of run counters. Components send Stat values on
// StatCh; Report() dumps the accumulated counts at end of run.

const (
	// record flow
	RecordIn = iota
	RecordOut
	RecordDropped
	// vertex transform
	VertexTransformed
	KeyCorrected
	TableInsert
	// edge resolution
	EdgeTransformed
	EndpointTruncated
	TableHit
	TableMiss
	AlreadyComposite
	EdgeKeySet
	LIMIT
)

var statName = map[int]string{
	RecordIn:          "records read",
	RecordOut:         "records written",
	RecordDropped:     "records dropped",
	VertexTransformed: "vertices transformed",
	KeyCorrected:      "keys corrected",
	TableInsert:       "table inserts",
	EdgeTransformed:   "edges transformed",
	EndpointTruncated: "endpoints resolved by truncation",
	TableHit:          "endpoints resolved by table",
	TableMiss:         "endpoints unresolved",
	AlreadyComposite:  "endpoints already composite",
	EdgeKeySet:        "edge keys composed",
}

type Stat struct {
	Id    int
	Value int
}

type Request struct {
	Id      int
	ReplyCh chan<- int
}

var (
	StatCh  chan Stat
	GetCh   chan Request
	ClearCh chan struct{}
	PrintCh chan chan struct{}
	on      bool
)

// Incr adds 1 to a counter. No-op before PowerOn - package tests exercise the
// transforms without the service.
func Incr(id int) {
	if !on {
		return
	}
	StatCh <- Stat{Id: id, Value: 1}
}

func Add(id int, v int) {
	if !on {
		return
	}
	StatCh <- Stat{Id: id, Value: v}
}

// Get returns the current value of a counter.
func Get(id int) int {
	if !on {
		return 0
	}
	reply := make(chan int)
	GetCh <- Request{Id: id, ReplyCh: reply}
	return <-reply
}

func Report() {
	if !on {
		return
	}
	resp := make(chan struct{})
	PrintCh <- resp
	<-resp
}

func PowerOn(ctx context.Context, wps *sync.WaitGroup, wgEnd *sync.WaitGroup) {

	defer wgEnd.Done()

	stats := make([]int, LIMIT, LIMIT)

	StatCh = make(chan Stat, 64)
	ClearCh = make(chan struct{})
	GetCh = make(chan Request)
	PrintCh = make(chan chan struct{})

	slog.LogAlert("monitor", "Started")
	on = true
	wps.Done()

	for {

		select {

		case s := <-StatCh:

			if s.Id < 0 || s.Id >= LIMIT {
				panic(fmt.Errorf("Monitor Error: stat id %d out of range", s.Id))
			}
			stats[s.Id] += s.Value

		case <-ClearCh:

			for i := range stats {
				stats[i] = 0
			}

		case x := <-GetCh:

			// drain any queued increments first so reads are consistent
			for done := false; !done; {
				select {
				case s := <-StatCh:
					stats[s.Id] += s.Value
				default:
					done = true
				}
			}
			x.ReplyCh <- stats[x.Id]

		case resp := <-PrintCh:

			for done := false; !done; {
				select {
				case s := <-StatCh:
					stats[s.Id] += s.Value
				default:
					done = true
				}
			}
			for i := 0; i < LIMIT; i++ {
				if stats[i] == 0 {
					continue
				}
				slog.LogAlert("monitor", fmt.Sprintf("%s: %d", statName[i], stats[i]))
				fmt.Printf("%s: %d\n", statName[i], stats[i])
			}
			resp <- struct{}{}

		case <-ctx.Done():

			on = false
			slog.LogAlert("monitor", "Shutdown.")
			return

		}
	}
}

package stats

import (
	"fmt"
	"sync"
	"time"

	param "github.com/SmartGraph/smgparam"
	slog "github.com/SmartGraph/syslog"

	hdr "github.com/HdrHistogram/hdrhistogram-go"
)

// duration based statistics: transform batch times, channel waits, api elapsed
// time. Samples are collected per (label, event) and aggregated with
// HdrHistogram at end of run.

type Event int8
type Label string

const (
	EvWaitOnCh Event = iota + 1
	EvWaitSendOnCh
	EvWaitRecvOnCh
	EvAPI
	EvBatch
	_limit_
)

func (e Event) String() string {
	switch e {
	case 0:
		return "NA"
	case EvWaitOnCh:
		return "OnCh"
	case EvWaitSendOnCh:
		return "SendOnCh"
	case EvWaitRecvOnCh:
		return "RecvOnCh"
	case EvAPI:
		return "API"
	case EvBatch:
		return "Batch"
	}
	return "NoString"
}

type durStats struct {
	event  Event
	last   time.Time
	d      []int64 // duration samples
	mean   float64
	stddev float64
	p50    float64 // milliseconds
	p80    float64 // milliseconds
	m      *i64mmx // min,max,cnt,sum over all saves (not only kept samples)
}

func (d *durStats) Mean() float64 { return d.mean }
func (d *durStats) SD() float64   { return d.stddev }
func (d *durStats) P50() float64  { return d.p50 }
func (d *durStats) P80() float64  { return d.p80 }

func (s *durStats) SampleSize() int {
	return len(s.d)
}

// keep decides whether a new sample should be stored based on the label's
// registered sample duration - throttles memory for hot paths.
func (s *durStats) keep(l Label) (time.Time, bool) {
	var (
		saveit    bool
		sampledur time.Duration
	)
	t := time.Now()
	if r, ok := regMap[l]; !ok {
		sampledur = SampleDuration
	} else {
		sampledur = r.sampleDur
	}

	if t.Sub(s.last).Milliseconds() > sampledur.Milliseconds() {
		saveit = true
	}
	return t, saveit
}

type eventS []*durStats
type evLabelMap map[Label]*eventS

var (
	lblMap evLabelMap
	save   sync.RWMutex
	// duration between kept samples when no limit registered for the label
	SampleDuration time.Duration
)

type i64mmx struct {
	min int64
	max int64
	cnt int64
	sum int64
}

func newi64mmx(v int64) *i64mmx {
	return &i64mmx{min: v, max: v, sum: v, cnt: 1}
}

func (c *i64mmx) update(v int64) {
	if c.min > v {
		c.min = v
	}
	if c.max < v {
		c.max = v
	}
	c.sum += v
	c.cnt++
}

func (c *i64mmx) String() string {
	if c != nil {
		return fmt.Sprintf("Min: %d, Max: %d  Cnt: %d  Sum: %d  Avg: %g", c.min, c.max, c.cnt, c.sum, float64(c.sum)/float64(c.cnt))
	}
	return ""
}

type limits struct {
	sampleDur time.Duration
	maxSample int
}

var regMap map[Label]*limits

func init() {
	lblMap = make(evLabelMap)
	regMap = make(map[Label]*limits)

	var err error
	SampleDuration, err = time.ParseDuration(param.SampleDurWaits)
	if err != nil {
		panic(err)
	}
}

func Register(lbl Label, sampledur time.Duration, maxSam ...int) {

	save.Lock()

	if l, ok := regMap[lbl]; !ok {
		if len(maxSam) > 0 {
			regMap[lbl] = &limits{sampleDur: sampledur, maxSample: maxSam[0]}
		} else {
			regMap[lbl] = &limits{sampleDur: sampledur}
		}
	} else {
		l.sampleDur = sampledur
		if len(maxSam) > 0 {
			l.maxSample = maxSam[0]
		}
	}

	save.Unlock()
}

func RecvOnCh(ch chan struct{}, label Label) {
	t0 := time.Now()

	<-ch

	saveEventStats(EvWaitRecvOnCh, time.Now().Sub(t0), label)
}

func SendOnCh(ch chan struct{}, label Label) {
	t0 := time.Now()

	ch <- struct{}{}

	saveEventStats(EvWaitSendOnCh, time.Now().Sub(t0), label)
}

// Run times the execution of f under label.
func Run(f func(), label Label) {
	t0 := time.Now()
	f()
	saveEventStats(EvAPI, time.Now().Sub(t0), label)
}

func SaveEventStats(ev Event, dur time.Duration, label Label) {
	saveEventStats(ev, dur, label)
}

// saveEventStats stores the sample. Concurrency safe.
func saveEventStats(ev Event, dur time.Duration, label Label) {

	if !param.StatsSystem {
		return
	}

	save.Lock()

	if l, ok := lblMap[label]; !ok {

		evs := make(eventS, _limit_, _limit_)
		evs[ev] = &durStats{event: ev, d: []int64{int64(dur)}, m: newi64mmx(int64(dur)), last: time.Now()}
		lblMap[label] = &evs

	} else {

		dr := (*l)[ev]
		if dr == nil {
			dr = &durStats{event: ev, d: []int64{int64(dur)}, m: newi64mmx(int64(dur)), last: time.Now()}
			(*l)[ev] = dr
			save.Unlock()
			return
		}
		if t, sv := dr.keep(label); sv {
			if len(dr.d) < param.MaxSampleSet {
				dr.d = append(dr.d, int64(dur))
				dr.last = t
			}
		}
		dr.m.update(int64(dur))
	}
	save.Unlock()
}

// Report aggregates the samples per label/event with HdrHistogram and writes
// the result to syslog. Run once at end of run.
func Report() {

	if !param.StatsSystem {
		return
	}

	save.RLock()
	defer save.RUnlock()

	for k, v := range lblMap {
		var first int
		if v == nil {
			continue
		}
		for _, e := range *v {
			hist := hdr.New(-900000000, 900000000, 5)
			if e == nil {
				continue
			}
			// ignore first value in sample set if more than one in sample
			if len(e.d) == 1 {
				first = 0
			} else {
				first = 1
			}
			for _, val := range e.d[first:] {
				val := val / 1000 // microseconds
				if err := hist.RecordValue(val); err != nil {
					panic(err)
				}
			}
			// output in milliseconds (1000 microseconds)
			e.mean = float64(hist.Mean()) / 1000
			e.stddev = float64(hist.StdDev()) / 1000
			e.p50 = float64(hist.ValueAtQuantile(50)) / 1000
			e.p80 = float64(hist.ValueAtQuantile(80)) / 1000

			slog.LogAlert(param.StatsSystemTag,
				fmt.Sprintf("label %q event %s  samples: %d  mean: %.3fms  stddev: %.3fms  p50: %.3fms  p80: %.3fms  [%s]",
					k, e.event.String(), e.SampleSize(), e.mean, e.stddev, e.p50, e.p80, e.m.String()))
		}
	}
}

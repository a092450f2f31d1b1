package edge

import (
	"bufio"
	"fmt"
	"os"
	"time"

	elog "github.com/SmartGraph/errlog"
	"github.com/SmartGraph/monitor"
	"github.com/SmartGraph/run"
	param "github.com/SmartGraph/smgparam"
	"github.com/SmartGraph/stats"
	slog "github.com/SmartGraph/syslog"
	"github.com/SmartGraph/translate"
)

// ProcessFile statuses.
const (
	StatusOK          = 0
	StatusOpenInput   = 1
	StatusOpenOutput  = 2
	StatusHeader      = 3
	StatusMissingCols = 4
	StatusFlush       = 5
)

const maxLine = 16 * 1024 * 1024

// ProcessFile rewrites the edge file named in the spec in place: the result
// is written to <file>.out, the input removed, and the result renamed over
// it. typ is "csv" or "jsonl".
func ProcessFile(spec *Spec, typ string, cfg *Config, tbl *translate.Table) int {

	in, err := os.Open(spec.File)
	if err != nil {
		elog.Add(logid, fmt.Errorf("cannot open edge file %s: %w", spec.File, err))
		return StatusOpenInput
	}
	defer in.Close()

	tmpFile := spec.File + ".out"
	out, err := os.Create(tmpFile)
	if err != nil {
		elog.Add(logid, fmt.Errorf("cannot create temporary file %s: %w", tmpFile, err))
		return StatusOpenOutput
	}

	w := bufio.NewWriterSize(out, 1024*1024)
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), maxLine)

	var n int
	t0 := time.Now()

	switch typ {
	case "jsonl":
		for sc.Scan() {
			n++
			monitor.Incr(monitor.RecordIn)
			rec, ok := TransformJSON(sc.Bytes(), n, spec, cfg, tbl)
			if !ok {
				continue
			}
			w.Write(rec)
			w.WriteByte('\n')
			monitor.Incr(monitor.RecordOut)
			if n%param.ProgressInterval == 0 {
				progress(spec, n, &t0)
			}
		}

	default:
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				elog.Add(logid, fmt.Errorf("cannot read header of %s: %w", spec.File, err))
			} else {
				elog.Add(logid, fmt.Errorf("edge file %s is empty, no header found", spec.File))
			}
			out.Close()
			os.Remove(tmpFile)
			return StatusHeader
		}
		c, err := NewCSV(sc.Text(), spec, cfg)
		if err != nil {
			elog.Add(logid, err)
			out.Close()
			os.Remove(tmpFile)
			return StatusMissingCols
		}
		w.WriteString(c.Header())
		w.WriteByte('\n')
		n = 1

		for sc.Scan() {
			n++
			monitor.Incr(monitor.RecordIn)
			w.WriteString(c.Transform(sc.Text(), n, tbl))
			w.WriteByte('\n')
			monitor.Incr(monitor.RecordOut)
			if (n-1)%param.ProgressInterval == 0 {
				progress(spec, n-1, &t0)
			}
		}
	}

	if err := sc.Err(); err != nil {
		elog.Add(logid, fmt.Errorf("read error on %s: %w", spec.File, err))
	}

	if err := w.Flush(); err != nil {
		elog.Add(logid, fmt.Errorf("cannot flush temporary file %s: %w", tmpFile, err))
		out.Close()
		return StatusFlush
	}
	if err := out.Close(); err != nil {
		elog.Add(logid, fmt.Errorf("cannot close temporary file %s: %w", tmpFile, err))
		return StatusFlush
	}
	in.Close()

	if err := os.Remove(spec.File); err != nil {
		elog.Add(logid, fmt.Errorf("cannot remove input file %s: %w", spec.File, err))
		return StatusFlush
	}
	if err := os.Rename(tmpFile, spec.File); err != nil {
		elog.Add(logid, fmt.Errorf("cannot rename %s to %s: %w", tmpFile, spec.File, err))
		return StatusFlush
	}

	slog.Log(logid, fmt.Sprintf("Done %s, %d records in %s sec", spec.File, n, run.ElapsedSec()))

	return StatusOK
}

func progress(spec *Spec, n int, t0 *time.Time) {
	now := time.Now()
	stats.SaveEventStats(stats.EvBatch, now.Sub(*t0), stats.Label("edge "+spec.File))
	*t0 = now
	msg := fmt.Sprintf("%s sec: Have transformed %d edges in %s.", run.ElapsedSec(), n, spec.File)
	fmt.Println(msg)
	slog.Log(logid, msg)
}

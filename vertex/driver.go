package vertex

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

// Process statuses. The program exits with the status of the first file that
// fails.
const (
	StatusOK         = 0
	StatusOpenInput  = 1
	StatusOpenOutput = 2
	StatusHeader     = 3
	StatusFlush      = 4
)

const maxLine = 16 * 1024 * 1024

func newScanner(f *os.File) *bufio.Scanner {
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLine)
	return sc
}

// Process streams inFile through the vertex transform into outFile. typ is
// "csv" or "jsonl".
func Process(inFile, outFile, typ string, cfg *Config, tbl *translate.Table) int {

	in, err := os.Open(inFile)
	if err != nil {
		elog.Add(cfg.logid(), fmt.Errorf("cannot open input file %s: %w", inFile, err))
		return StatusOpenInput
	}
	defer in.Close()

	out, err := os.Create(outFile)
	if err != nil {
		elog.Add(cfg.logid(), fmt.Errorf("cannot create output file %s: %w", outFile, err))
		return StatusOpenOutput
	}

	w := bufio.NewWriterSize(out, 1024*1024)
	sc := newScanner(in)

	var n int // 1-based line number
	t0 := time.Now()

	switch typ {
	case "jsonl":
		for sc.Scan() {
			n++
			monitor.Incr(monitor.RecordIn)
			rec, ok := TransformJSON(sc.Bytes(), n, cfg, tbl)
			if !ok {
				continue
			}
			w.Write(rec)
			w.WriteByte('\n')
			monitor.Incr(monitor.RecordOut)
			if n%param.ProgressInterval == 0 {
				progress(cfg, n, &t0)
			}
		}

	default:
		// header row first
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				elog.Add(cfg.logid(), fmt.Errorf("cannot read header of %s: %w", inFile, err))
			} else {
				elog.Add(cfg.logid(), fmt.Errorf("file %s is empty, no header found", inFile))
			}
			out.Close()
			return StatusHeader
		}
		c := NewCSV(sc.Text(), cfg)
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
				progress(cfg, n-1, &t0)
			}
		}
	}

	if err := sc.Err(); err != nil {
		elog.Add(cfg.logid(), fmt.Errorf("read error on %s: %w", inFile, err))
	}

	if err := w.Flush(); err != nil {
		elog.Add(cfg.logid(), fmt.Errorf("cannot flush output file %s: %w", outFile, err))
		out.Close()
		return StatusFlush
	}
	if err := out.Close(); err != nil {
		elog.Add(cfg.logid(), fmt.Errorf("cannot close output file %s: %w", outFile, err))
		return StatusFlush
	}

	slog.Log(cfg.logid(), fmt.Sprintf("Done %s, %d records in %s sec", inFile, n, run.ElapsedSec()))

	return StatusOK
}

func progress(cfg *Config, n int, t0 *time.Time) {
	now := time.Now()
	stats.SaveEventStats(stats.EvBatch, now.Sub(*t0), stats.Label(cfg.logid()))
	*t0 = now
	msg := fmt.Sprintf("%s sec: Have transformed %d vertices.", run.ElapsedSec(), n)
	fmt.Println(msg)
	slog.Log(cfg.logid(), msg)
}

// Populate streams a vertex file through the transform for the side effect of
// filling the translation table. Nothing is written - the edge phase uses this
// to learn the key to attribute mapping of already smartified vertex files.
func Populate(file, typ string, cfg *Config, tbl *translate.Table) int {

	in, err := os.Open(file)
	if err != nil {
		elog.Add(cfg.logid(), fmt.Errorf("cannot open vertex file %s: %w", file, err))
		return StatusOpenInput
	}
	defer in.Close()

	sc := newScanner(in)
	var n int

	if typ == "jsonl" {
		for sc.Scan() {
			n++
			TransformJSON(sc.Bytes(), n, cfg, tbl)
		}
	} else {
		if !sc.Scan() {
			elog.Add(cfg.logid(), fmt.Errorf("file %s is empty, no header found", file))
			return StatusHeader
		}
		c := NewCSV(sc.Text(), cfg)
		n = 1
		for sc.Scan() {
			n++
			c.Transform(sc.Text(), n, tbl)
		}
	}

	if err := sc.Err(); err != nil {
		elog.Add(cfg.logid(), fmt.Errorf("read error on %s: %w", file, err))
	}
	slog.Log(cfg.logid(), fmt.Sprintf("Populated translation table from %s, %d identifiers held", file, tbl.Len()))

	return StatusOK
}

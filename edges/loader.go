package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/SmartGraph/edge"
	elog "github.com/SmartGraph/errlog"
	"github.com/SmartGraph/grmgr"
	"github.com/SmartGraph/monitor"
	"github.com/SmartGraph/run"
	param "github.com/SmartGraph/smgparam"
	"github.com/SmartGraph/stats"
	slog "github.com/SmartGraph/syslog"
	"github.com/SmartGraph/translate"
	"github.com/SmartGraph/vertex"
)

const logid = param.Logid

func syslog(s string) {
	slog.Log(logid, s)
}

// repeated collects the values of a repeatable flag.
type repeated []string

func (r *repeated) String() string {
	return strings.Join(*r, " ")
}

func (r *repeated) Set(v string) error {
	*r = append(*r, v)
	return nil
}

var (
	edgeSpecs   repeated // -e file:fromColl:toColl[:col:name]*
	vertexFiles repeated // -vertices file:collection

	manifestFile = flag.String("manifest", "", "YAML manifest naming vertex and edge files")
	ftype        = flag.String("t", "csv", `input data format ["csv"|"jsonl"]`)
	smartAttr    = flag.String("attr", "smart_id", "smart graph attribute name")
	smartValue   = flag.String("value", "", "attribute from which the smart graph attribute value is taken")
	smartDflt    = flag.String("default", "", "default smart graph attribute value when absent or null (jsonl)")
	smartIndex   = flag.Int("index", 0, "resolve endpoint keys by truncation to this many characters [0: table lookup only]")
	keyValue     = flag.String("keyvalue", "_key", "vertex attribute from which the key value is taken")
	separator    = flag.String("sep", ",", "column separator (csv)")
	quoteChar    = flag.String("quo", `"`, "quote character (csv)")
	concurrent   = flag.Int("c", 1, "# edge files processed in parallel")
	environ      = flag.String("env", "dev", "environment [dev: development prd: production]")
	debug        = flag.String("debug", "", `enable logging by component "c1,c2,c3" or switch on complete logging "all"`)
	showStats    = flag.Int("stats", 0, "collect and report system stats [1: enable 0: disable]")
	reduceLog    = flag.Int("rlog", 1, "reduced logging [1: enable 0: disable]")
)

func init() {
	flag.Var(&edgeSpecs, "e", "edge file spec file:fromColl:toColl[:column:newName]... (repeatable)")
	flag.Var(&vertexFiles, "vertices", "smartified vertex file file:collection to populate the translation table (repeatable)")
}

func main() {

	flag.Parse()

	// flags given on the command line take precedence over manifest values
	setFlags := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	fmt.Printf("Argument: manifest: %s\n", *manifestFile)
	fmt.Printf("Argument: type: %s\n", *ftype)
	fmt.Printf("Argument: attr: %s\n", *smartAttr)
	fmt.Printf("Argument: value: %s\n", *smartValue)
	fmt.Printf("Argument: default: %s\n", *smartDflt)
	fmt.Printf("Argument: index: %d\n", *smartIndex)
	fmt.Printf("Argument: keyvalue: %s\n", *keyValue)
	fmt.Printf("Argument: edge specs: %s\n", edgeSpecs.String())
	fmt.Printf("Argument: vertex files: %s\n", vertexFiles.String())
	fmt.Printf("Argument: concurrent: %d\n", *concurrent)
	fmt.Printf("Argument: env: %s\n", *environ)
	fmt.Printf("Argument: stats: %d\n", *showStats)
	fmt.Printf("Argument: debug: %v\n", *debug)
	fmt.Printf("Argument: reduced logging: %v\n", *reduceLog)

	var manifest *edge.Manifest
	if len(*manifestFile) > 0 {
		var err error
		manifest, err = edge.LoadManifest(*manifestFile)
		if err != nil {
			fmt.Println("Error: ", err)
			os.Exit(1)
		}
		if !setFlags["t"] && len(manifest.Type) > 0 {
			*ftype = manifest.Type
		}
		if !setFlags["attr"] && len(manifest.SmartAttr) > 0 {
			*smartAttr = manifest.SmartAttr
		}
		if !setFlags["index"] && manifest.SmartIndex > 0 {
			*smartIndex = manifest.SmartIndex
		}
		if !setFlags["sep"] && len(manifest.Separator) > 0 {
			*separator = manifest.Separator
		}
		if !setFlags["quo"] && len(manifest.QuoteChar) > 0 {
			*quoteChar = manifest.QuoteChar
		}
	}

	if *ftype != "csv" && *ftype != "jsonl" {
		fmt.Printf("Type must be either %q or %q\n", "csv", "jsonl")
		os.Exit(1)
	}
	if len(*separator) != 1 || len(*quoteChar) != 1 {
		fmt.Println("Separator and quote character must be single characters")
		os.Exit(1)
	}
	if *concurrent < 1 {
		*concurrent = 1
	}

	param.ReducedLog = *reduceLog == 1
	if *showStats == 1 {
		param.StatsSystem = true
	}
	if len(*debug) > 0 {
		if strings.ToUpper(*debug) == "ALL" {
			param.DebugOn = true
		} else {
			for _, v := range strings.Split(*debug, ",") {
				param.LogServices = append(param.LogServices, strings.TrimSpace(v))
			}
		}
	}
	*environ = strings.ToLower(*environ)
	if *environ != "prd" && *environ != "dev" {
		fmt.Printf("Environment must be either %q or %q\n", "prd", "dev")
		os.Exit(1)
	}
	param.Environ = *environ

	// start any syslog services
	if err := slog.Start(); err != nil {
		fmt.Println("Error: ", err)
		panic(err)
	}

	_, err := run.New(logid, "edges")
	if err != nil {
		fmt.Printf("Error in run.New(): %s\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	var (
		wpStart sync.WaitGroup
		ctxEnd  sync.WaitGroup
	)

	// capture OS signals
	appSignal := make(chan os.Signal, 3)
	signal.Notify(appSignal, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		<-appSignal
		cancel()
		ctxEnd.Wait()
		syslog(fmt.Sprintf("Terminated.....Duration: %s", run.Elapsed().String()))
		slog.Stop()
		os.Exit(2)
	}()

	// dump program parameters to syslog
	syslog(fmt.Sprintf("Argument: manifest: %s", *manifestFile))
	syslog(fmt.Sprintf("Argument: type: %s", *ftype))
	syslog(fmt.Sprintf("Argument: attr: %s", *smartAttr))
	syslog(fmt.Sprintf("Argument: value: %s", *smartValue))
	syslog(fmt.Sprintf("Argument: default: %s", *smartDflt))
	syslog(fmt.Sprintf("Argument: index: %d", *smartIndex))
	syslog(fmt.Sprintf("Argument: keyvalue: %s", *keyValue))
	syslog(fmt.Sprintf("Argument: edge specs: %s", edgeSpecs.String()))
	syslog(fmt.Sprintf("Argument: vertex files: %s", vertexFiles.String()))
	syslog(fmt.Sprintf("Argument: concurrent: %d", *concurrent))
	syslog(fmt.Sprintf("Argument: env: %s", *environ))
	syslog(fmt.Sprintf("Argument: stats: %d", *showStats))
	syslog(fmt.Sprintf("Argument: debug: %v", *debug))
	syslog(fmt.Sprintf("Argument: reduced logging: %v", *reduceLog))

	// start supporting services
	wpStart.Add(3)
	ctxEnd.Add(3)
	go elog.PowerOn(ctx, &wpStart, &ctxEnd)
	go monitor.PowerOn(ctx, &wpStart, &ctxEnd)
	go grmgr.PowerOn(ctx, &wpStart, &ctxEnd)

	syslog("waiting on services to start....")
	wpStart.Wait()
	syslog("all services started")

	// assemble edge specs - command line first, then manifest
	var specs []edge.Spec
	for _, s := range edgeSpecs {
		if sp, ok := edge.ParseSpec(s); ok {
			specs = append(specs, sp)
		}
	}
	if manifest != nil {
		specs = append(specs, manifest.Specs()...)
	}

	keyVal := *keyValue
	if keyVal == "_key" {
		keyVal = ""
	}

	// populate the translation table from the smartified vertex files
	tbl := translate.New()
	status := 0

	populate := func(file, coll string) {
		vcfg := &vertex.Config{
			Name:         file,
			SmartAttr:    *smartAttr,
			SmartValue:   *smartValue,
			SmartIndex:   *smartIndex,
			SmartDefault: *smartDflt,
			KeyValue:     keyVal,
			Collection:   coll,
			Sep:          (*separator)[0],
			Quo:          (*quoteChar)[0],
		}
		if st := vertex.Populate(file, *ftype, vcfg, tbl); st != 0 && status == 0 {
			status = st
		}
	}

	for _, v := range vertexFiles {
		colon := strings.LastIndexByte(v, ':')
		if colon < 0 {
			elog.Add(logid, fmt.Errorf("vertex file spec %q malformed, expecting file:collection. Skipping", v))
			continue
		}
		populate(v[:colon], v[colon+1:])
	}
	if manifest != nil {
		for _, v := range manifest.Vertices {
			populate(v.File, v.Collection)
		}
	}
	syslog(fmt.Sprintf("translation table populated: %d identifiers, %d attributes", tbl.Len(), tbl.NumAttributes()))

	ecfg := &edge.Config{
		SmartIndex: *smartIndex,
		Sep:        (*separator)[0],
		Quo:        (*quoteChar)[0],
	}

	// process edge files, up to -c files at a time. The run stops at the
	// first failed file - no further files are started.
	limiter := grmgr.New("edgeFile", *concurrent)
	statusCh := make(chan int, len(specs))
	var failed int32
	var wg sync.WaitGroup

	for i := range specs {
		if atomic.LoadInt32(&failed) != 0 {
			break
		}
		limiter.Ask()
		<-limiter.RespCh()

		wg.Add(1)
		go func(sp *edge.Spec) {
			defer wg.Done()
			defer limiter.EndR()
			st := edge.ProcessFile(sp, *ftype, ecfg, tbl)
			if st != 0 {
				atomic.StoreInt32(&failed, 1)
			}
			statusCh <- st
		}(&specs[i])
	}
	wg.Wait()
	limiter.Unregister()
	close(statusCh)

	for st := range statusCh {
		if st != 0 && status == 0 {
			status = st
		}
	}

	monitor.Report()
	elog.PrintErrors()
	stats.Report()

	if status != 0 {
		run.Finish(fmt.Errorf("edges finished with status %d", status))
	} else if elog.RunErrored() {
		run.Finish(fmt.Errorf("edges finished with diagnostics"))
	} else {
		run.Finish(nil)
	}
	syslog(fmt.Sprintf("edges exiting with status %d....", status))

	cancel()
	ctxEnd.Wait()
	slog.Stop()

	os.Exit(status)
}

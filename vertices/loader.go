package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	elog "github.com/SmartGraph/errlog"
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

var (
	inputFile  = flag.String("i", "", "vertex input file")
	outputFile = flag.String("o", "", "output file")
	ftype      = flag.String("t", "csv", `input data format ["csv"|"jsonl"]`)
	smartAttr  = flag.String("attr", "smart_id", "smart graph attribute name")
	smartValue = flag.String("value", "", "attribute from which the smart graph attribute value is taken")
	smartDflt  = flag.String("default", "", "default smart graph attribute value when absent or null (jsonl)")
	smartIndex = flag.Int("index", 0, "truncate the smart graph attribute value to this many characters [0: off]")
	writeKey   = flag.Bool("writekey", true, "materialise the _key attribute in the output")
	keyValue   = flag.String("keyvalue", "_key", "attribute from which the key value is taken")
	collection = flag.String("coll", "", "vertex collection name, enables translation table recording")
	separator  = flag.String("sep", ",", "column separator (csv)")
	quoteChar  = flag.String("quo", `"`, "quote character (csv)")
	environ    = flag.String("env", "dev", "environment [dev: development prd: production]")
	debug      = flag.String("debug", "", `enable logging by component "c1,c2,c3" or switch on complete logging "all"`)
	showStats  = flag.Int("stats", 0, "collect and report system stats [1: enable 0: disable]")
	reduceLog  = flag.Int("rlog", 1, "reduced logging [1: enable 0: disable]")
)

func main() {

	flag.Parse()

	fmt.Printf("Argument: input: %s\n", *inputFile)
	fmt.Printf("Argument: output: %s\n", *outputFile)
	fmt.Printf("Argument: type: %s\n", *ftype)
	fmt.Printf("Argument: attr: %s\n", *smartAttr)
	fmt.Printf("Argument: value: %s\n", *smartValue)
	fmt.Printf("Argument: default: %s\n", *smartDflt)
	fmt.Printf("Argument: index: %d\n", *smartIndex)
	fmt.Printf("Argument: writekey: %v\n", *writeKey)
	fmt.Printf("Argument: keyvalue: %s\n", *keyValue)
	fmt.Printf("Argument: coll: %s\n", *collection)
	fmt.Printf("Argument: env: %s\n", *environ)
	fmt.Printf("Argument: stats: %d\n", *showStats)
	fmt.Printf("Argument: debug: %v\n", *debug)
	fmt.Printf("Argument: reduced logging: %v\n", *reduceLog)

	if len(*inputFile) == 0 || len(*outputFile) == 0 {
		fmt.Println("Both -i (input) and -o (output) must be supplied")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *ftype != "csv" && *ftype != "jsonl" {
		fmt.Printf("Type must be either %q or %q\n", "csv", "jsonl")
		os.Exit(1)
	}
	if len(*separator) != 1 || len(*quoteChar) != 1 {
		fmt.Println("Separator and quote character must be single characters")
		os.Exit(1)
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

	_, err := run.New(logid, "vertices")
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
	syslog(fmt.Sprintf("Argument: input: %s", *inputFile))
	syslog(fmt.Sprintf("Argument: output: %s", *outputFile))
	syslog(fmt.Sprintf("Argument: type: %s", *ftype))
	syslog(fmt.Sprintf("Argument: attr: %s", *smartAttr))
	syslog(fmt.Sprintf("Argument: value: %s", *smartValue))
	syslog(fmt.Sprintf("Argument: default: %s", *smartDflt))
	syslog(fmt.Sprintf("Argument: index: %d", *smartIndex))
	syslog(fmt.Sprintf("Argument: writekey: %v", *writeKey))
	syslog(fmt.Sprintf("Argument: keyvalue: %s", *keyValue))
	syslog(fmt.Sprintf("Argument: coll: %s", *collection))
	syslog(fmt.Sprintf("Argument: env: %s", *environ))
	syslog(fmt.Sprintf("Argument: stats: %d", *showStats))
	syslog(fmt.Sprintf("Argument: debug: %v", *debug))
	syslog(fmt.Sprintf("Argument: reduced logging: %v", *reduceLog))

	// start supporting services
	wpStart.Add(2)
	ctxEnd.Add(2)
	go elog.PowerOn(ctx, &wpStart, &ctxEnd)
	go monitor.PowerOn(ctx, &wpStart, &ctxEnd)

	syslog("waiting on services to start....")
	wpStart.Wait()
	syslog("all services started")

	keyVal := *keyValue
	if keyVal == "_key" {
		keyVal = ""
	}

	cfg := &vertex.Config{
		Name:         *inputFile,
		SmartAttr:    *smartAttr,
		SmartValue:   *smartValue,
		SmartIndex:   *smartIndex,
		SmartDefault: *smartDflt,
		WriteKey:     *writeKey,
		KeyValue:     keyVal,
		Collection:   *collection,
		Sep:          (*separator)[0],
		Quo:          (*quoteChar)[0],
	}

	tbl := translate.New()
	status := vertex.Process(*inputFile, *outputFile, *ftype, cfg, tbl)
	if len(*collection) > 0 {
		syslog(fmt.Sprintf("translation table: %d identifiers, %d attributes", tbl.Len(), tbl.NumAttributes()))
	}

	monitor.Report()
	elog.PrintErrors()
	stats.Report()

	if status != 0 {
		run.Finish(fmt.Errorf("vertices finished with status %d", status))
	} else if elog.RunErrored() {
		run.Finish(fmt.Errorf("vertices finished with diagnostics"))
	} else {
		run.Finish(nil)
	}
	syslog(fmt.Sprintf("vertices exiting with status %d....", status))

	cancel()
	ctxEnd.Wait()
	slog.Stop()

	os.Exit(status)
}

package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"github.com/funvibe/irslots/internal/config"
	"github.com/funvibe/irslots/internal/irvar"
	"github.com/funvibe/irslots/internal/layout"
	"github.com/funvibe/irslots/internal/pipeline"
	"github.com/funvibe/irslots/internal/rpc"
	"github.com/funvibe/irslots/internal/snapshot"
	"github.com/funvibe/irslots/internal/utils"
)

const usage = `Usage:
  irslots [-debug] [-format text|yaml] [-snapshot db] [-verify] [layout.yaml]
  irslots serve [-addr host:port]
  irslots runs [-snapshot db]
  irslots -version
  irslots help

Without a layout argument, slots.yaml is searched for in the current
directory and its parents.
`

const (
	colorReset = "\033[0m"
	colorBold  = "\033[1m"
	colorDim   = "\033[2m"
	colorRed   = "\033[31m"
)

// Run executes the command line and returns the process exit code.
func Run(args []string, stdout, stderr io.Writer) (code int) {
	// Catch panics and show user-friendly error
	defer func() {
		if r := recover(); r != nil {
			if os.Getenv("DEBUG") == "1" {
				panic(r)
			}
			fmt.Fprintf(stderr, "Internal error: %v\n", r)
			fmt.Fprintln(stderr, "This is a bug. Please report it.")
			code = 1
		}
	}()

	log.SetOutput(stderr)
	log.SetFlags(0)
	log.SetPrefix("irslots: ")

	if os.Getenv(config.TestModeEnv) == "1" {
		config.IsTestMode = true
	}

	if ok, code := handleHelp(args, stdout); ok {
		return code
	}
	if ok, code := handleVersion(args, stdout); ok {
		return code
	}
	if ok, code := handleServe(args, stderr); ok {
		return code
	}
	if ok, code := handleRuns(args, stdout, stderr); ok {
		return code
	}
	return runNaming(args, stdout, stderr)
}

func handleHelp(args []string, stdout io.Writer) (bool, int) {
	if len(args) == 0 {
		return false, 0
	}
	if args[0] != "help" && args[0] != "-help" && args[0] != "--help" && args[0] != "-h" {
		return false, 0
	}
	fmt.Fprint(stdout, usage)
	return true, 0
}

func handleVersion(args []string, stdout io.Writer) (bool, int) {
	if len(args) == 0 || (args[0] != "-version" && args[0] != "--version") {
		return false, 0
	}
	fmt.Fprintf(stdout, "irslots %s\n", config.Version)
	return true, 0
}

// handleServe runs the SlotNaming service until interrupted.
func handleServe(args []string, stderr io.Writer) (bool, int) {
	if len(args) == 0 || args[0] != "serve" {
		return false, 0
	}
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", config.DefaultServiceAddr, "listen address")
	if err := fs.Parse(args[1:]); err != nil {
		return true, 2
	}

	srv, err := rpc.NewServer()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return true, 1
	}
	lis, err := net.Listen("tcp", *addr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return true, 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		srv.Stop()
	}()

	if err := srv.Serve(lis); err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return true, 1
	}
	return true, 0
}

// handleRuns lists the recording sessions in a snapshot database.
func handleRuns(args []string, stdout, stderr io.Writer) (bool, int) {
	if len(args) == 0 || args[0] != "runs" {
		return false, 0
	}
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dbPath := fs.String("snapshot", config.DefaultSnapshotDB, "snapshot database")
	if err := fs.Parse(args[1:]); err != nil {
		return true, 2
	}

	store, err := snapshot.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return true, 1
	}
	defer store.Close()

	runs, err := store.Runs(context.Background())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return true, 1
	}
	if len(runs) == 0 {
		fmt.Fprintf(stdout, "No runs recorded in %s\n", *dbPath)
		return true, 0
	}
	for _, r := range runs {
		fmt.Fprintf(stdout, "%s  %s  %s\n", r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Label)
	}
	return true, 0
}

func runNaming(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("irslots", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	debug := fs.Bool("debug", false, "report pipeline progress")
	format := fs.String("format", "text", "output format: text or yaml")
	dbPath := fs.String("snapshot", "", "record slot names in this snapshot database")
	verify := fs.Bool("verify", false, "check slot names against the snapshot instead of recording")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *format != "text" && *format != "yaml" {
		fmt.Fprintf(stderr, "Error: unknown format %q\n", *format)
		return 2
	}
	if *verify && *dbPath == "" {
		fmt.Fprintln(stderr, "Error: -verify needs -snapshot")
		return 2
	}

	var path string
	switch fs.NArg() {
	case 0:
		found, err := layout.FindDocument(".")
		if err != nil {
			fmt.Fprintf(stderr, "Error: %s\n", err)
			return 1
		}
		if found == "" {
			fmt.Fprintf(stderr, "Error: no %s found\n", strings.Join(config.LayoutFileNames, " or "))
			return 1
		}
		path = found
	case 1:
		path = fs.Arg(0)
	default:
		fmt.Fprint(stderr, usage)
		return 2
	}

	processors := []pipeline.Processor{layout.NewProcessor()}
	if *debug {
		processors = append(processors, stageLog("layout", func(ctx *pipeline.PipelineContext) int { return len(ctx.Variables) }, "bindings"))
	}
	processors = append(processors, pipeline.NewNamingProcessor())
	if *debug {
		processors = append(processors, stageLog("naming", func(ctx *pipeline.PipelineContext) int { return len(ctx.Listings) }, "listings"))
	}
	if *dbPath != "" {
		store, err := snapshot.Open(*dbPath)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %s\n", err)
			return 1
		}
		defer store.Close()
		processors = append(processors, snapshot.NewProcessor(store, utils.ExtractDocumentName(path), *verify))
	}

	ctx := pipeline.New(processors...).Run(pipeline.NewPipelineContext(path))

	if len(ctx.Errors) > 0 {
		fmt.Fprintln(stderr, "Slot naming failed with errors:")
		for _, err := range ctx.Errors {
			var ie *irvar.InvariantError
			if *debug && errors.As(err, &ie) {
				fmt.Fprintf(stderr, "- %s\n%+v\n", err, ie)
			} else {
				fmt.Fprintf(stderr, "- %s\n", err)
			}
		}
		return 1
	}

	if *format == "yaml" {
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(ctx.Listings); err != nil {
			fmt.Fprintf(stderr, "Error: %s\n", err)
			return 1
		}
		enc.Close()
	} else {
		printListings(stdout, ctx.Listings, useColor(stdout))
	}

	if ctx.RunID != "" && *debug {
		log.Printf("recorded run %s in %s", ctx.RunID, filepath.Clean(*dbPath))
	}
	if *verify && *debug {
		log.Printf("%d listings match %s", len(ctx.Listings), filepath.Clean(*dbPath))
	}
	return 0
}

func stageLog(stage string, count func(*pipeline.PipelineContext) int, what string) pipeline.Processor {
	return pipeline.ProcessorFunc(func(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
		if ctx.Failed() {
			log.Printf("%s: %d errors", stage, len(ctx.Errors))
		} else {
			log.Printf("%s: %d %s", stage, count(ctx), what)
		}
		return ctx
	})
}

func printListings(w io.Writer, listings []pipeline.Listing, color bool) {
	paint := func(code, s string) string {
		if !color {
			return s
		}
		return code + s + colorReset
	}
	for i, l := range listings {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s %s\n", paint(colorBold, l.Label), paint(colorDim, "("+l.Type+")"))
		if len(l.Components) == 0 {
			fmt.Fprintf(w, "  %s\n", paint(colorRed, "no stack slots"))
			continue
		}
		for _, c := range l.Components {
			fmt.Fprintf(w, "  %s\n", c)
		}
		fmt.Fprintf(w, "  %s %s\n", paint(colorDim, "="), l.List)
	}
}

// useColor reports whether w is a terminal and NO_COLOR is unset.
func useColor(w io.Writer) bool {
	// NO_COLOR convention: https://no-color.org/
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

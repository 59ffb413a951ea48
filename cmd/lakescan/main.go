// Command lakescan samples and queries delimited datasets in object storage.
//
// Usage:
//
//	lakescan sample  [-config file] [-strategy name] [-question text] dataset
//	lakescan query   [-config file] [-f key=value]... [-max n] dataset
//	lakescan extract question
//	lakescan put     [-config file] key file
//	lakescan serve   [-config file]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/hupe1980/lakescan/codec"
	"github.com/hupe1980/lakescan/config"
)

const usage = `usage: lakescan <command> [flags] [args]

commands:
  sample   take an intelligent sample of a dataset
  query    scan a dataset for rows matching filters
  extract  print the filters derived from a question
  put      upload a local file to the configured store
  serve    run the cache warmer and expose Prometheus metrics
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var cmd func(context.Context, *env, []string) error
	switch args[0] {
	case "sample":
		cmd = runSample
	case "query":
		cmd = runQuery
	case "extract":
		cmd = runExtract
	case "put":
		cmd = runPut
	case "serve":
		cmd = runServe
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	e := &env{name: args[0], stdout: stdout, stderr: stderr}
	if err := cmd(ctx, e, args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "lakescan %s: %v\n", args[0], err)
		return 1
	}
	return 0
}

// env carries the flags shared by every command.
type env struct {
	name       string
	stdout     io.Writer
	stderr     io.Writer
	configPath string
	codecName  string
	pretty     bool
}

func (e *env) flags() *flag.FlagSet {
	fs := flag.NewFlagSet(e.name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.StringVar(&e.configPath, "config", os.Getenv("LAKESCAN_CONFIG"), "path to the YAML configuration")
	fs.StringVar(&e.codecName, "codec", "go-json", "output codec: json or go-json")
	fs.BoolVar(&e.pretty, "pretty", true, "indent JSON output")
	return fs
}

func (e *env) config() (*config.Config, error) {
	if e.configPath == "" {
		return config.Default(), nil
	}
	return config.LoadConfig(e.configPath)
}

func (e *env) write(v any) error {
	c, ok := codec.ByName(e.codecName)
	if !ok {
		return fmt.Errorf("unknown codec %q", e.codecName)
	}
	return codec.Write(e.stdout, c, v, e.pretty)
}

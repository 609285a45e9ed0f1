// Command webcontent extracts normalized content from web pages. It
// runs either as a one-shot CLI against a URL, file or stdin, or as a
// stateless HTTP service with --serve.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/thomasgraf-at/webcontent-api/internal/config"
	"github.com/thomasgraf-at/webcontent-api/internal/server"
)

func main() {
	var (
		scopeArg   string
		excludeArg string
		formatArg  string
		dataArg    string
		debug      bool
		withMeta   bool
		serve      bool
	)

	flag.StringVar(&scopeArg, "scope", "main", "extraction scope: main|full|auto|selector:...|{json}")
	flag.StringVar(&scopeArg, "s", "main", "shorthand for -scope")
	flag.StringVar(&excludeArg, "exclude", "", "comma-separated exclude selectors (with selector: scopes)")
	flag.StringVar(&excludeArg, "x", "", "shorthand for -exclude")
	flag.StringVar(&formatArg, "format", "html", "output format: html|markdown|text")
	flag.StringVar(&formatArg, "f", "html", "shorthand for -format")
	flag.StringVar(&dataArg, "data", "", "comma-separated data plugins: headings,links,xpath")
	flag.BoolVar(&debug, "debug", false, "include the scope resolution in the output")
	flag.BoolVar(&withMeta, "meta", false, "include page metadata in the output")
	flag.BoolVar(&serve, "serve", false, "run the HTTP service instead of a one-shot extraction")
	flag.Parse()

	cfg := config.LoadOrDefault()

	if serve {
		runServer(cfg)
		return
	}

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: webcontent [flags] <url|file|->")
		flag.PrintDefaults()
		os.Exit(2)
	}

	opts := cliOptions{
		target:   flag.Arg(0),
		scope:    scopeArg,
		exclude:  excludeArg,
		format:   formatArg,
		data:     dataArg,
		debug:    debug,
		withMeta: withMeta,
	}
	if err := runExtract(cfg, opts, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runServer(cfg *config.Config) {
	srv, err := server.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "server error:", err)
		os.Exit(1)
	}
}

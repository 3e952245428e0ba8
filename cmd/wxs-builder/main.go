package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/kolide/kit/version"
	"github.com/peterbourgon/ff/v3"
)

const envPrefix = "WXS_BUILDER"

func runVersion(args []string) error {
	version.PrintFull()
	return nil
}

// parseFlags parses a mode's flags. Any flag can also come from a
// plain config file (-config) or a WXS_BUILDER_ prefixed env var.
func parseFlags(fs *flag.FlagSet, args []string) error {
	fs.String("config", "", "config file (optional)")
	return ff.Parse(fs, args,
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithEnvVarPrefix(envPrefix),
	)
}

func usageFor(fs *flag.FlagSet, short string) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "USAGE\n")
		fmt.Fprintf(os.Stderr, "  %s\n", short)
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "FLAGS\n")
		w := tabwriter.NewWriter(os.Stderr, 0, 2, 2, ' ', 0)
		fs.VisitAll(func(f *flag.Flag) {
			def := f.DefValue
			if def == "" {
				def = "..."
			}
			fmt.Fprintf(w, "\t-%s %s\t%s\n", f.Name, def, f.Usage)
		})
		w.Flush()
		fmt.Fprintf(os.Stderr, "\n")
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "USAGE\n")
	fmt.Fprintf(os.Stderr, "  %s <mode> --help\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "MODES\n")
	fmt.Fprintf(os.Stderr, "  generate     Generate Components.wxs from a staged SDK\n")
	fmt.Fprintf(os.Stderr, "  ids          List the component identifier cache\n")
	fmt.Fprintf(os.Stderr, "  check        Check wxs files for bad or duplicate identifiers\n")
	fmt.Fprintf(os.Stderr, "  compile      Build an msi with candle and light\n")
	fmt.Fprintf(os.Stderr, "  version      Print full version information\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "VERSION\n")
	fmt.Fprintf(os.Stderr, "  %s\n", version.Version().Version)
	fmt.Fprintf(os.Stderr, "\n")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var run func([]string) error
	switch strings.ToLower(os.Args[1]) {
	case "version":
		run = runVersion
	case "generate":
		run = runGenerate
	case "ids":
		run = runIDs
	case "check":
		run = runCheck
	case "compile":
		run = runCompile
	default:
		usage()
		os.Exit(1)
	}

	if err := run(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

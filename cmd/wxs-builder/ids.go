package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/branchmetrics/wxs-builder/pkg/guidcache"
)

func runIDs(args []string) error {
	flagset := flag.NewFlagSet("ids", flag.ExitOnError)
	var (
		flRepoRoot = flagset.String(
			"repo_root",
			cwd(),
			"the repository root",
		)
		flCache = flagset.String(
			"cache",
			"",
			"the component identifier cache (default <repo_root>/BranchSDK/tools/component-ids.json)",
		)
		flCacheBackend = flagset.String(
			"cache_backend",
			"json",
			"identifier cache format, json or bolt",
		)
	)

	flagset.Usage = usageFor(flagset, "wxs-builder ids [flags]")
	if err := parseFlags(flagset, args); err != nil {
		return err
	}

	cachePath := *flCache
	if cachePath == "" {
		cachePath = repoDefaults{root: *flRepoRoot}.cache(*flCacheBackend)
	}

	cache, err := openCache(*flCacheBackend, cachePath)
	if err != nil {
		return err
	}

	return printIDs(os.Stdout, cache)
}

func printIDs(out io.Writer, cache *guidcache.Cache) error {
	entries, err := cache.Entries()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 4, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\n", e.Key, e.Guid)
	}
	return w.Flush()
}

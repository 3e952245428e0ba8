package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/branchmetrics/wxs-builder/pkg/contexts/ctxlog"
	"github.com/branchmetrics/wxs-builder/pkg/guidcache"
	"github.com/branchmetrics/wxs-builder/pkg/wxsgen"
	"github.com/go-kit/kit/log/level"
	"github.com/kolide/kit/logutil"
	"github.com/pkg/errors"
)

// repoDefaults holds the paths the generator uses inside a checkout
// of the SDK repository.
type repoDefaults struct {
	root string
}

func (r repoDefaults) output() string {
	return filepath.Join(r.root, "BranchSDK", "Windows", "BranchInstaller", "Components.wxs")
}

func (r repoDefaults) cache(backend string) string {
	if backend == "bolt" {
		return filepath.Join(r.root, "BranchSDK", "tools", "component-ids.db")
	}
	return filepath.Join(r.root, "BranchSDK", "tools", "component-ids.json")
}

func openCache(backend, path string) (*guidcache.Cache, error) {
	switch backend {
	case "json", "":
		return guidcache.New(guidcache.NewFileStore(path)), nil
	case "bolt":
		return guidcache.New(guidcache.NewBoltStore(path)), nil
	default:
		return nil, errors.Errorf("unknown cache backend %q, want json or bolt", backend)
	}
}

func cwd() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	return dir
}

func runGenerate(args []string) error {
	flagset := flag.NewFlagSet("generate", flag.ExitOnError)
	var (
		flDebug = flagset.Bool(
			"debug",
			false,
			"enable debug logging",
		)
		flStage = flagset.String(
			"stage",
			"",
			"the staged SDK tree to describe (required)",
		)
		flRepoRoot = flagset.String(
			"repo_root",
			cwd(),
			"the repository root; file sources are made relative to it",
		)
		flOutput = flagset.String(
			"output",
			"",
			"where to write the wxs (default <repo_root>/BranchSDK/Windows/BranchInstaller/Components.wxs)",
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
		flLayout = flagset.String(
			"layout",
			"",
			"a yaml stage layout, overriding the built in one",
		)
		flSDKVersion = flagset.String(
			"sdk_version",
			"",
			"the SDK version to stamp as a wix variable",
		)
		flStrict = flagset.Bool(
			"strict",
			false,
			"fail when two paths normalize to the same identifier",
		)
	)

	flagset.Usage = usageFor(flagset, "wxs-builder generate [flags]")
	if err := parseFlags(flagset, args); err != nil {
		return err
	}

	logger := logutil.NewCLILogger(*flDebug)
	ctx := ctxlog.NewContext(context.Background(), logger)

	if *flStage == "" {
		return errors.New("stage undefined")
	}

	repo := repoDefaults{root: *flRepoRoot}

	output := *flOutput
	if output == "" {
		output = repo.output()
	}

	cachePath := *flCache
	if cachePath == "" {
		cachePath = repo.cache(*flCacheBackend)
	}

	cache, err := openCache(*flCacheBackend, cachePath)
	if err != nil {
		return err
	}

	opts := []wxsgen.Option{
		wxsgen.WithRepoRoot(*flRepoRoot),
	}
	if *flLayout != "" {
		l, err := wxsgen.LoadLayout(*flLayout)
		if err != nil {
			return err
		}
		opts = append(opts, wxsgen.WithLayout(l))
	}
	if *flSDKVersion != "" {
		opts = append(opts, wxsgen.WithSDKVersion(*flSDKVersion))
	}
	if *flStrict {
		opts = append(opts, wxsgen.WithStrictIdentifiers())
	}

	gen, err := wxsgen.New(*flStage, cache, opts...)
	if err != nil {
		return errors.Wrap(err, "creating generator")
	}

	level.Debug(logger).Log(
		"msg", "generating",
		"stage", *flStage,
		"repo_root", *flRepoRoot,
		"cache", cachePath,
	)

	if err := gen.WriteFile(ctx, output); err != nil {
		return errors.Wrap(err, "generating components")
	}

	return nil
}

package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/branchmetrics/wxs-builder/pkg/contexts/ctxlog"
	"github.com/branchmetrics/wxs-builder/pkg/packagekit/wix"
	"github.com/go-kit/kit/log/level"
	"github.com/kolide/kit/env"
	"github.com/kolide/kit/logutil"
	"github.com/pkg/errors"
)

// defaultWixPath uses the WIX variable the wix installer sets.
func defaultWixPath() string {
	if root := env.String("WIX", ""); root != "" {
		return filepath.Join(root, "bin")
	}
	return ""
}

func runCompile(args []string) error {
	flagset := flag.NewFlagSet("compile", flag.ExitOnError)
	var (
		flDebug = flagset.Bool(
			"debug",
			false,
			"enable debug logging",
		)
		flRepoRoot = flagset.String(
			"repo_root",
			cwd(),
			"the repository root, bound to $(var.SourceDir)",
		)
		flWixPath = flagset.String(
			"wix",
			defaultWixPath(),
			"directory holding candle.exe and light.exe",
		)
		flDocker = flagset.String(
			"docker",
			"",
			"run the toolchain under wine in this docker image (eg felfert/wix)",
		)
		flArch = flagset.String(
			"arch",
			"x86",
			"installer architecture, x86 or x64",
		)
		flSkipValidation = flagset.Bool(
			"skip_validation",
			false,
			"skip ICE validation in light",
		)
		flExtensions = flagset.String(
			"ext",
			"",
			"comma separated wix extensions (eg WixUIExtension)",
		)
		flOut = flagset.String(
			"out",
			"BranchSDK.msi",
			"where to write the msi",
		)
	)

	flagset.Usage = usageFor(flagset, "wxs-builder compile [flags] <file.wxs>...")
	if err := parseFlags(flagset, args); err != nil {
		return err
	}

	if flagset.NArg() == 0 {
		return errors.New("no wxs files given")
	}

	logger := logutil.NewCLILogger(*flDebug)
	ctx := ctxlog.NewContext(context.Background(), logger)

	opts, err := toolchainOpts(*flArch, *flWixPath, *flDocker, *flExtensions, *flSkipValidation)
	if err != nil {
		return err
	}

	tc, err := wix.NewToolchain(*flRepoRoot, opts...)
	if err != nil {
		return errors.Wrap(err, "making toolchain")
	}
	defer tc.Cleanup()

	outFH, err := os.Create(*flOut)
	if err != nil {
		return errors.Wrap(err, "creating msi")
	}
	defer outFH.Close()

	if err := tc.Compile(ctx, outFH, flagset.Args()...); err != nil {
		return err
	}

	level.Info(logger).Log("msg", "built msi", "path", *flOut)
	return nil
}

func toolchainOpts(arch, wixPath, docker, extensions string, skipValidation bool) ([]wix.ToolchainOpt, error) {
	var opts []wix.ToolchainOpt

	switch arch {
	case "x86", "":
		opts = append(opts, wix.As32bit())
	case "x64":
		opts = append(opts, wix.As64bit())
	default:
		return nil, errors.Errorf("unknown arch %q, want x86 or x64", arch)
	}

	if wixPath != "" {
		opts = append(opts, wix.WithWix(wixPath))
	}
	if docker != "" {
		opts = append(opts, wix.WithDocker(docker))
	}
	if skipValidation {
		opts = append(opts, wix.SkipValidation())
	}
	for _, ext := range strings.Split(extensions, ",") {
		if ext = strings.TrimSpace(ext); ext != "" {
			opts = append(opts, wix.WithExtension(ext))
		}
	}

	return opts, nil
}

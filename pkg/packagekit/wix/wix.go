package wix

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/branchmetrics/wxs-builder/pkg/contexts/ctxlog"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

// Toolchain runs the wix compiler and linker over a set of wxs
// sources.
type Toolchain struct {
	wixPath        string   // Where is wix installed
	sourceDir      string   // Resolves $(var.SourceDir) in the wxs sources
	buildDir       string   // The wix tools want to work in a build dir.
	msArch         string   // What's the microsoft archtecture name?
	extensions     []string // -ext arguments for candle and light
	dockerImage    string   // If in docker, what image?
	skipValidation bool     // Skip light validation. Seems to be needed for running in 32bit wine environments.
	cleanDirs      []string // directories to rm on cleanup

	execCC func(context.Context, string, ...string) *exec.Cmd // Allows test overrides
}

type ToolchainOpt func(*Toolchain)

func As64bit() ToolchainOpt {
	return func(t *Toolchain) {
		t.msArch = "x64"
	}
}

func As32bit() ToolchainOpt {
	return func(t *Toolchain) {
		t.msArch = "x86"
	}
}

// If you're running this in a virtual win environment, you probably
// need to skip validation. LGHT0216 is a common error.
func SkipValidation() ToolchainOpt {
	return func(t *Toolchain) {
		t.skipValidation = true
	}
}

func WithWix(path string) ToolchainOpt {
	return func(t *Toolchain) {
		t.wixPath = path
	}
}

func WithExtension(ext string) ToolchainOpt {
	return func(t *Toolchain) {
		t.extensions = append(t.extensions, ext)
	}
}

func WithBuildDir(path string) ToolchainOpt {
	return func(t *Toolchain) {
		t.buildDir = path
	}
}

func WithDocker(image string) ToolchainOpt {
	return func(t *Toolchain) {
		t.dockerImage = image
	}
}

// NewToolchain returns a Toolchain that compiles sources referring to
// $(var.SourceDir), which is bound to sourceDir. The installer is
// built for x86 unless As64bit is given, matching the Program Files
// (x86) layout of the SDK installer.
func NewToolchain(sourceDir string, opts ...ToolchainOpt) (*Toolchain, error) {
	t := &Toolchain{
		wixPath:   `C:\wix311`,
		sourceDir: sourceDir,
		msArch:    "x86",

		execCC: exec.CommandContext,
	}

	for _, opt := range opts {
		opt(t)
	}

	var err error
	if t.buildDir == "" {
		t.buildDir, err = ioutil.TempDir("", "wix-build-dir")
		if err != nil {
			return nil, errors.Wrap(err, "making temp wix-build-dir")
		}
		t.cleanDirs = append(t.cleanDirs, t.buildDir)
	}

	return t, nil
}

// Cleanup removes temp directories. Meant to be called in a defer.
func (t *Toolchain) Cleanup() {
	for _, d := range t.cleanDirs {
		os.RemoveAll(d)
	}
}

// Compile copies the wxs sources into the build dir, runs candle and
// light, and writes the resulting msi into out.
func (t *Toolchain) Compile(ctx context.Context, out io.Writer, sources ...string) error {
	ctx, span := trace.StartSpan(ctx, "wix.Compile")
	defer span.End()

	if len(sources) == 0 {
		return errors.New("no wxs sources")
	}

	var names []string
	seen := make(map[string]string, len(sources))
	for _, src := range sources {
		name := filepath.Base(src)
		if prev, ok := seen[name]; ok {
			return errors.Errorf("sources %s and %s share the name %s", prev, src, name)
		}
		seen[name] = src

		data, err := ioutil.ReadFile(src)
		if err != nil {
			return errors.Wrapf(err, "reading %s", src)
		}
		if err := ioutil.WriteFile(filepath.Join(t.buildDir, name), data, 0644); err != nil {
			return errors.Wrapf(err, "copying %s into build dir", src)
		}
		names = append(names, name)
	}

	if err := t.candle(ctx, names); err != nil {
		return errors.Wrap(err, "running candle")
	}

	if err := t.light(ctx, names); err != nil {
		return errors.Wrap(err, "running light")
	}

	msiFH, err := os.Open(filepath.Join(t.buildDir, "out.msi"))
	if err != nil {
		return errors.Wrap(err, "opening msi output file")
	}
	defer msiFH.Close()

	if _, err := io.Copy(out, msiFH); err != nil {
		return errors.Wrap(err, "copying output")
	}

	return nil
}

// candle invokes wix's candle command. This is the wix compiler, It
// preprocesses and compiles WiX source files into object files
// (.wixobj).
func (t *Toolchain) candle(ctx context.Context, names []string) error {
	args := []string{
		"-nologo",
		"-arch", t.msArch,
		"-dSourceDir=" + t.sourceDir,
	}
	for _, ext := range t.extensions {
		args = append(args, "-ext", ext)
	}
	args = append(args, names...)

	_, err := t.execOut(ctx, filepath.Join(t.wixPath, "candle.exe"), args...)
	return err
}

// light invokes wix's light command. This links and binds one or more
// .wixobj files and creates a Windows Installer database (.msi or
// .msm). See http://wixtoolset.org/documentation/manual/v3/overview/light.html for options
func (t *Toolchain) light(ctx context.Context, names []string) error {
	args := []string{
		"-nologo",
		"-dcl:high", // compression level
		"-dSourceDir=" + t.sourceDir,
	}
	for _, ext := range t.extensions {
		args = append(args, "-ext", ext)
	}
	for _, name := range names {
		args = append(args, strings.TrimSuffix(name, filepath.Ext(name))+".wixobj")
	}
	args = append(args, "-out", "out.msi")

	if t.skipValidation {
		args = append(args, "-sval")
	}

	_, err := t.execOut(ctx, filepath.Join(t.wixPath, "light.exe"), args...)
	return err
}

func (t *Toolchain) execOut(ctx context.Context, argv0 string, args ...string) (string, error) {
	logger := ctxlog.FromContext(ctx)

	if t.dockerImage != "" {
		dockerArgs := []string{
			"run",
			"--entrypoint", "",
			"-v", fmt.Sprintf("%s:%s", t.sourceDir, t.sourceDir),
			"-v", fmt.Sprintf("%s:%s", t.buildDir, t.buildDir),
			"-w", t.buildDir,
			t.dockerImage,
			"wine",
			argv0,
		}
		argv0 = "docker"
		args = append(dockerArgs, args...)
	}

	cmd := t.execCC(ctx, argv0, args...)

	level.Debug(logger).Log(
		"msg", "execing",
		"cmd", strings.Join(cmd.Args, " "),
	)

	cmd.Dir = t.buildDir
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	cmd.Stdout, cmd.Stderr = stdout, stderr
	if err := cmd.Run(); err != nil {
		return "", errors.Wrapf(err, "run command %s %v\nstdout=%s\nstderr=%s", argv0, args, stdout, stderr)
	}
	return strings.TrimSpace(stdout.String()), nil
}

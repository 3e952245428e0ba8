package wxsgen

import (
	"bytes"
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/branchmetrics/wxs-builder/pkg/guidcache"
	"github.com/branchmetrics/wxs-builder/pkg/packagekit/wix"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

// makeStage creates the given files, relative to root, with some
// content.
func makeStage(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, ioutil.WriteFile(path, []byte(f), 0644))
	}
}

func newTestGenerator(t *testing.T, stage string, opts ...Option) *Generator {
	t.Helper()
	g, err := New(stage, guidcache.New(guidcache.NewMemoryStore(nil)), opts...)
	require.NoError(t, err)
	return g
}

func TestBuildDirectoryTree(t *testing.T) {
	t.Parallel()

	stage := t.TempDir()
	makeStage(t, stage, "include/BranchIO/Event/foo.h")

	g := newTestGenerator(t, stage)
	include, err := g.BuildDirectoryTree(filepath.Join(stage, "include"))
	require.NoError(t, err)

	// use require, not assert, so we don't traverse into a 0 length array
	require.Equal(t, "include", include.Name)
	require.Len(t, include.Directories, 1)
	branch := include.Directories[0]
	require.Equal(t, "BranchIO", branch.Name)
	require.Len(t, branch.Directories, 1)
	event := branch.Directories[0]
	require.Equal(t, "Event", event.Name)
	require.Empty(t, event.Directories, "files are not directories")

	ids := map[string]bool{}
	for _, d := range []*wix.Directory{include, branch, event} {
		require.True(t, wix.ValidIdentifier(d.Id), d.Id)
		require.LessOrEqual(t, len(d.Id), wix.MaxIdentifierLength)
		ids[d.Id] = true
	}
	require.Len(t, ids, 3, "ids are distinct")
	require.Equal(t, "include.BranchIO.Event", event.Id)
}

func TestBuildDirectoryTreeMissing(t *testing.T) {
	t.Parallel()

	g := newTestGenerator(t, t.TempDir())
	d, err := g.BuildDirectoryTree(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	require.Nil(t, d)
}

func TestBuildComponentsExclusions(t *testing.T) {
	t.Parallel()

	stage := t.TempDir()
	makeStage(t, stage, "lib/a.lib", "lib/BranchIO.lib", "lib/BranchIO.pdb")

	g := newTestGenerator(t, stage)
	components, err := g.BuildComponents([]string{filepath.Join(stage, "lib")}, false)
	require.NoError(t, err)

	require.Len(t, components, 1)
	require.Len(t, components[0].Files, 1)
	require.Equal(t, "a.lib", components[0].Files[0].Name)
	require.Equal(t, "lib.a.lib", components[0].Files[0].Id)
	require.Equal(t, "lib", components[0].Directory)
}

func TestBuildComponentsRecurse(t *testing.T) {
	t.Parallel()

	stage := t.TempDir()
	makeStage(t, stage,
		"include/BranchIO/Branch.h",
		"include/BranchIO/Event/Event.h",
		"include/BranchIO/Event/CustomEvent.h",
		"include/BranchIO/Util/Log.h",
	)

	g := newTestGenerator(t, stage)
	root := filepath.Join(stage, "include", "BranchIO")

	flat, err := g.BuildComponents([]string{root}, false)
	require.NoError(t, err)
	require.Len(t, flat, 1)

	all, err := g.BuildComponents([]string{root}, true)
	require.NoError(t, err)
	require.Len(t, all, 3, "one component per directory")

	var ids []string
	for _, c := range all {
		require.Equal(t, c.Id, c.Directory)
		require.NotEmpty(t, c.Guid)
		ids = append(ids, c.Id)
	}
	require.Equal(t, []string{"include.BranchIO", "include.BranchIO.Event", "include.BranchIO.Util"}, ids)
	require.Len(t, all[1].Files, 2)

	// component directories must line up with the directory tree
	tree, err := g.BuildDirectoryTree(filepath.Join(stage, "include"))
	require.NoError(t, err)
	for _, c := range all {
		require.NotNil(t, tree.Find(c.Directory), c.Directory)
	}
}

func TestBuildComponentsMissingDir(t *testing.T) {
	t.Parallel()

	stage := t.TempDir()
	g := newTestGenerator(t, stage)

	components, err := g.BuildComponents([]string{filepath.Join(stage, "include", "Poco")}, true)
	require.NoError(t, err)
	require.Empty(t, components)

	c, err := g.BuildBoundComponent(filepath.Join(stage, "lib", "x86", "debug"), "X86DEBUGLIBFOLDER")
	require.NoError(t, err)
	require.Nil(t, c)
}

func TestSourceRewrite(t *testing.T) {
	t.Parallel()

	repo := t.TempDir()
	stage := filepath.Join(repo, "build", "stage")
	makeStage(t, stage, "licenses/LICENSE")

	g := newTestGenerator(t, stage, WithRepoRoot(repo))
	c, err := g.BuildBoundComponent(filepath.Join(stage, "licenses"), "LICENSEFOLDER")
	require.NoError(t, err)
	require.Len(t, c.Files, 1)

	want := "$(var.SourceDir)" + string(filepath.Separator) + filepath.Join("build", "stage", "licenses", "LICENSE")
	require.Equal(t, want, c.Files[0].Source)
	require.Equal(t, "LICENSEFOLDER", c.Id)
	require.Equal(t, "LICENSEFOLDER", c.Directory)
}

func TestSourceOutsideRepoPassesThrough(t *testing.T) {
	t.Parallel()

	stage := t.TempDir()
	makeStage(t, stage, "licenses/LICENSE")

	// the repo root does not contain the stage
	g := newTestGenerator(t, stage, WithRepoRoot(filepath.Join(t.TempDir(), "elsewhere")))
	c, err := g.BuildBoundComponent(filepath.Join(stage, "licenses"), "LICENSEFOLDER")
	require.NoError(t, err)
	require.Len(t, c.Files, 1)
	require.Equal(t, filepath.Join(stage, "licenses", "LICENSE"), c.Files[0].Source)
}

// chdir moves the process into dir until the test ends. Tests using it
// must not call t.Parallel.
func chdir(t *testing.T, dir string) string {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(prev)) })

	wd, err := os.Getwd()
	require.NoError(t, err)
	return wd
}

func TestSourceRelativeRoots(t *testing.T) {
	repo := t.TempDir()
	makeStage(t, filepath.Join(repo, "build", "stage"), "include/BranchIO/foo.h")
	repo = chdir(t, repo)

	want := "$(var.SourceDir)" + string(filepath.Separator) + filepath.Join("build", "stage", "include", "BranchIO", "foo.h")

	var tests = []struct {
		name  string
		stage string
		root  string
	}{
		{"relative stage", filepath.Join("build", "stage"), repo},
		{"relative repo root", filepath.Join(repo, "build", "stage"), "."},
		{"both relative", filepath.Join("build", ".", "stage"), "."},
	}

	for _, tt := range tests {
		g := newTestGenerator(t, tt.stage, WithRepoRoot(tt.root))

		doc, err := g.Generate(context.Background())
		require.NoError(t, err, tt.name)

		files := doc.RetFiles()
		require.Len(t, files, 1, tt.name)
		require.Equal(t, want, files[0].Source, tt.name)
		require.Equal(t, "include.BranchIO.foo.h", files[0].Id, tt.name)
	}
}

func TestTruncationCollision(t *testing.T) {
	t.Parallel()

	stage := t.TempDir()
	long := strings.Repeat("d", wix.MaxIdentifierLength)
	makeStage(t, stage, "docs/"+long+"/a1.html", "docs/"+long+"/a2.html")

	// Both files truncate to the same Id. By default that goes
	// through unnoticed.
	g := newTestGenerator(t, stage)
	components, err := g.BuildComponents([]string{filepath.Join(stage, "docs")}, true)
	require.NoError(t, err)
	require.Len(t, components, 2)
	files := components[1].Files
	require.Len(t, files, 2)
	require.Equal(t, files[0].Id, files[1].Id)

	strict := newTestGenerator(t, stage, WithStrictIdentifiers())
	_, err = strict.BuildComponents([]string{filepath.Join(stage, "docs")}, true)
	require.Error(t, err)

	var collision *IdentifierCollisionError
	require.True(t, errors.As(err, &collision))
	require.Equal(t, "File", collision.Kind)
}

func TestNewRejectsBadVersion(t *testing.T) {
	t.Parallel()

	_, err := New(t.TempDir(), guidcache.New(guidcache.NewMemoryStore(nil)), WithSDKVersion("not-a-version"))
	require.Error(t, err)

	_, err = New(t.TempDir(), nil)
	require.Error(t, err)
}

func TestGenerateEndToEnd(t *testing.T) {
	t.Parallel()

	repo := t.TempDir()
	stage := filepath.Join(repo, "stage")
	makeStage(t, stage,
		"include/BranchIO/foo.h",
		"lib/x64/release/BranchIO.lib",
		"licenses/LICENSE",
	)

	g := newTestGenerator(t, stage, WithRepoRoot(repo))
	doc, err := g.Generate(context.Background())
	require.NoError(t, err)
	require.Len(t, doc.Fragments, 2)

	groups := doc.Fragments[1].ComponentGroups
	var groupIDs []string
	for _, cg := range groups {
		require.NotEmpty(t, cg.Components, cg.Id)
		groupIDs = append(groupIDs, cg.Id)
	}
	require.ElementsMatch(t, []string{"BranchHeaders", "BranchLicense", "BranchLibrariesX64"}, groupIDs)

	headers := doc.ComponentGroup("BranchHeaders")
	require.Len(t, headers.Components, 1)
	require.Len(t, headers.Components[0].Files, 1)
	require.True(t, strings.HasPrefix(headers.Components[0].Files[0].Source, "$(var.SourceDir)"), headers.Components[0].Files[0].Source)

	libs := doc.ComponentGroup("BranchLibrariesX64")
	require.Len(t, libs.Components, 1)
	lib := libs.Components[0]
	require.Equal(t, "BranchLibrariesReleaseX64", lib.Id)
	require.Equal(t, "X64RELEASELIBFOLDER", lib.Directory)
	require.Len(t, lib.Files, 1)
	require.Equal(t, "BranchIOmd.lib", lib.Files[0].Name)

	// every component directory is declared
	root := doc.Fragments[0].Directories[0]
	require.Equal(t, "TARGETDIR", root.Id)
	for _, cg := range groups {
		for _, c := range cg.Components {
			require.NotNil(t, root.Find(c.Directory), c.Directory)
		}
	}
	for _, id := range []string{"INSTALLFOLDER", "LIBFOLDER", "X86LIBFOLDER", "X86DEBUGLIBFOLDER", "X64RELEASELIBFOLDER", "LICENSEFOLDER"} {
		require.NotNil(t, root.Find(id), id)
	}

	var buf bytes.Buffer
	require.NoError(t, doc.Encode(&buf))
	require.NoError(t, Verify(buf.Bytes()))
	require.NotContains(t, buf.String(), stage, "sources are relative to the placeholder")
}

func TestGenerateRerunKeepsIdentifiers(t *testing.T) {
	t.Parallel()

	repo := t.TempDir()
	stage := filepath.Join(repo, "stage")
	makeStage(t, stage,
		"include/BranchIO/Branch.h",
		"include/BranchIO/Event/Event.h",
		"include/Poco/Foundation.h",
		"lib/x86/debug/BranchIO.lib",
		"lib/x86/debug/BranchIO.pdb",
		"lib/x86/debug/PocoFoundationmdd.lib",
		"licenses/LICENSE",
		"licenses/LICENSE-Poco.txt",
		"docs/html/index.html",
		"docs/html/search/all_0.js",
	)
	cachePath := filepath.Join(repo, "component-ids.json")

	run := func() (map[string]string, []byte) {
		g, err := New(stage, guidcache.New(guidcache.NewFileStore(cachePath)), WithRepoRoot(repo))
		require.NoError(t, err)

		out := filepath.Join(repo, "Components.wxs")
		require.NoError(t, g.WriteFile(context.Background(), out))

		data, err := ioutil.ReadFile(out)
		require.NoError(t, err)

		doc, err := wix.Decode(data)
		require.NoError(t, err)

		guids := make(map[string]string)
		for _, f := range doc.Fragments {
			for _, cg := range f.ComponentGroups {
				for _, c := range cg.Components {
					guids[c.Id] = c.Guid
				}
			}
		}
		return guids, data
	}

	first, firstData := run()
	second, secondData := run()

	require.Equal(t, first, second)
	require.Equal(t, firstData, secondData)
	require.NoError(t, Verify(firstData))

	for _, id := range []string{"BranchLibrariesDebugX86", "X86DEBUGLIBFOLDER", "LICENSEFOLDER", "docs.html.search"} {
		require.Contains(t, first, id)
	}
}

func TestGenerateVersionDefine(t *testing.T) {
	t.Parallel()

	stage := t.TempDir()
	makeStage(t, stage, "include/BranchIO/foo.h")

	g := newTestGenerator(t, stage, WithSDKVersion("1.2.2-beta.1"))
	doc, err := g.Generate(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, doc.Encode(&buf))
	require.Contains(t, buf.String(), `<?define BranchSDKVersion="1.2.2"?>`)
	require.Contains(t, buf.String(), "<!-- Generated by wxs-builder. Do not edit by hand. -->")
}

func TestVerifyFindsProblems(t *testing.T) {
	t.Parallel()

	doc := `<?xml version="1.0" encoding="UTF-8"?>
<Wix xmlns="http://schemas.microsoft.com/wix/2006/wi">
  <Fragment>
    <ComponentGroup Id="Headers">
      <Component Id="a" Directory="a" Guid="0b6d7d3c-39a8-4f7a-9a0b-6d0a4c3f6f1e">
        <File Id="1bad" Source="x"></File>
      </Component>
      <Component Id="a" Directory="a" Guid="0B6D7D3C-39A8-4F7A-9A0B-6D0A4C3F6F1E">
        <File Id="ok" Source="y"></File>
      </Component>
    </ComponentGroup>
  </Fragment>
</Wix>`

	err := Verify([]byte(doc))
	require.Error(t, err)

	var verr *VerifyError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Problems, 3, verr.Problems)
}

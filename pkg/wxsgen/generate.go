package wxsgen

import (
	"bytes"
	"context"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/branchmetrics/wxs-builder/pkg/contexts/ctxlog"
	"github.com/branchmetrics/wxs-builder/pkg/packagekit/wix"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

const generatedComment = " Generated by wxs-builder. Do not edit by hand. "

// VersionVariable is the candle variable WithSDKVersion defines.
const VersionVariable = "BranchSDKVersion"

// Generate builds the whole document: a Directory fragment rooted at
// TARGETDIR, and a ComponentGroup fragment. Components without files
// and groups without components are left out, so a stage holding a
// subset of the library matrix still produces a linkable document.
func (g *Generator) Generate(ctx context.Context) (*wix.Wix, error) {
	ctx, span := trace.StartSpan(ctx, "wxsgen.Generate")
	defer span.End()

	logger := ctxlog.FromContext(ctx)
	g.resetClaims()

	doc := &wix.Wix{Comment: generatedComment}
	if g.version != "" {
		doc.Defines = append(doc.Defines, wix.Define{Name: VersionVariable, Value: g.version})
	}

	root, err := g.directoryFragment()
	if err != nil {
		return nil, errors.Wrap(err, "building directory fragment")
	}

	groups, err := g.componentGroups()
	if err != nil {
		return nil, errors.Wrap(err, "building component groups")
	}

	doc.Fragments = []*wix.Fragment{
		{Directories: []*wix.Directory{root}},
		{ComponentGroups: groups},
	}

	level.Debug(logger).Log(
		"msg", "generated components",
		"stage", g.stageRoot,
		"groups", len(groups),
		"files", len(doc.RetFiles()),
	)

	return doc, nil
}

// WriteFile generates the document and writes it to path, replacing
// anything already there.
func (g *Generator) WriteFile(ctx context.Context, path string) error {
	ctx, span := trace.StartSpan(ctx, "wxsgen.WriteFile")
	defer span.End()

	logger := ctxlog.FromContext(ctx)

	doc, err := g.Generate(ctx)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := doc.Encode(&buf); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "creating directory for %s", path)
	}

	if err := ioutil.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}

	level.Info(logger).Log(
		"msg", "wrote components",
		"path", path,
		"files", len(doc.RetFiles()),
	)

	return nil
}

// directoryFragment produces:
//
//	TARGETDIR (SourceDir)
//	  ProgramFilesFolder
//	    INSTALLFOLDER (Branch SDK)
//	      include/...      mirrored from the stage
//	      LIBFOLDER (lib)
//	        X64LIBFOLDER (x64)
//	          X64DEBUGLIBFOLDER (Debug)
//	          ...
//	      LICENSEFOLDER (licenses)
//	      docs/...         mirrored from the stage
func (g *Generator) directoryFragment() (*wix.Directory, error) {
	l := g.layout

	target := &wix.Directory{Id: "TARGETDIR", Name: "SourceDir"}
	programFiles := target.Append(&wix.Directory{Id: l.ProgramFilesID})
	install := programFiles.Append(&wix.Directory{Id: l.InstallFolderID, Name: l.ProductFolder})

	include, err := g.BuildDirectoryTree(g.stagePath(l.Include))
	if err != nil {
		return nil, err
	}
	if include != nil {
		install.Append(include)
	}

	lib := install.Append(&wix.Directory{Id: l.Libs.DirectoryID, Name: l.Libs.Name})
	for _, arch := range l.Libs.Architectures {
		archDir := lib.Append(&wix.Directory{Id: l.ArchDirectoryID(arch), Name: arch.folder()})
		for _, config := range l.Libs.Configurations {
			archDir.Append(&wix.Directory{
				Id:   l.CellDirectoryID(Cell{Arch: arch, Config: config}),
				Name: config.folder(),
			})
		}
	}

	install.Append(&wix.Directory{Id: l.Licenses.DirectoryID, Name: l.Licenses.Name})

	if l.Docs != nil {
		docs, err := g.BuildDirectoryTree(g.stagePath(l.Docs.Path))
		if err != nil {
			return nil, err
		}
		if docs != nil {
			install.Append(docs)
		}
	}

	return target, nil
}

func (g *Generator) componentGroups() ([]*wix.ComponentGroup, error) {
	l := g.layout
	var groups []*wix.ComponentGroup

	add := func(id string, components ...*wix.Component) {
		cg := &wix.ComponentGroup{Id: id}
		for _, c := range components {
			if c == nil || len(c.Files) == 0 {
				continue
			}
			cg.Components = append(cg.Components, c)
		}
		if len(cg.Components) > 0 {
			groups = append(groups, cg)
		}
	}

	for _, h := range l.Headers {
		components, err := g.BuildComponents([]string{g.stagePath(h.Path)}, true)
		if err != nil {
			return nil, errors.Wrapf(err, "headers %s", h.Path)
		}
		add(GroupID(h.Group), components...)
	}

	license, err := g.BuildBoundComponent(g.stagePath(l.Licenses.Path), l.Licenses.DirectoryID)
	if err != nil {
		return nil, errors.Wrapf(err, "licenses %s", l.Licenses.Path)
	}
	add(GroupID(l.Licenses.Group), license)

	for _, arch := range l.Libs.Architectures {
		var sdk, thirdParty []*wix.Component
		for _, config := range l.Libs.Configurations {
			cell := Cell{Arch: arch, Config: config}

			c, err := g.sdkComponent(cell)
			if err != nil {
				return nil, errors.Wrapf(err, "sdk libraries %s %s", arch.Name, config.Name)
			}
			sdk = append(sdk, c)

			dir := g.stagePath(filepath.Join(l.Libs.Path, arch.Name, config.Name))
			c, err = g.BuildBoundComponent(dir, l.CellDirectoryID(cell))
			if err != nil {
				return nil, errors.Wrapf(err, "third party libraries %s %s", arch.Name, config.Name)
			}
			thirdParty = append(thirdParty, c)
		}
		add(l.SDKGroupID(arch), sdk...)
		add(l.ThirdPartyGroupID(arch), thirdParty...)
	}

	if l.Docs != nil {
		components, err := g.BuildComponents([]string{g.stagePath(l.Docs.Path)}, true)
		if err != nil {
			return nil, errors.Wrapf(err, "docs %s", l.Docs.Path)
		}
		add(GroupID(l.Docs.Group), components...)
	}

	return groups, nil
}

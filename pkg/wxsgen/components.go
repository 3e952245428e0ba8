package wxsgen

import (
	"os"
	"path/filepath"

	"github.com/branchmetrics/wxs-builder/pkg/packagekit/wix"
	"github.com/pkg/errors"
)

// BuildComponents emits one Component per directory in dirs, and per
// descendant directory when recurse is set. Each component's Id and
// Directory are the directory's Id, so they line up with
// BuildDirectoryTree. Missing directories contribute nothing.
func (g *Generator) BuildComponents(dirs []string, recurse bool) ([]*wix.Component, error) {
	var components []*wix.Component
	for _, dir := range dirs {
		targets, err := subdirs(dir, recurse)
		if err != nil {
			return nil, err
		}

		for _, target := range targets {
			c, err := g.component(target, g.keys.Normalize(target))
			if err != nil {
				return nil, err
			}
			components = append(components, c)
		}
	}
	return components, nil
}

// BuildBoundComponent emits a single Component for the files directly
// in dir, installed into the hand-declared directory directoryID. It
// returns nil if dir is missing.
func (g *Generator) BuildBoundComponent(dir, directoryID string) (*wix.Component, error) {
	targets, err := subdirs(dir, false)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, nil
	}
	return g.component(targets[0], directoryID)
}

func (g *Generator) component(dir, id string) (*wix.Component, error) {
	if err := g.claim("Component", id, dir); err != nil {
		return nil, err
	}

	guid, err := g.cache.GetOrCreate(id)
	if err != nil {
		return nil, errors.Wrapf(err, "guid for component %s", id)
	}

	c := &wix.Component{
		Id:        id,
		Directory: id,
		Guid:      guid,
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading directory %s", dir)
	}

	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if g.exclude[e.Name()] {
			continue
		}

		path := filepath.Join(dir, e.Name())
		f, err := g.file(g.keys.Normalize(path), e.Name(), path)
		if err != nil {
			return nil, err
		}
		c.Files = append(c.Files, f)
	}

	return c, nil
}

func (g *Generator) file(id, name, path string) (*wix.File, error) {
	if err := g.claim("File", id, path); err != nil {
		return nil, err
	}
	return &wix.File{
		Id:     id,
		Name:   name,
		Source: g.source(path),
	}, nil
}

// sdkComponent emits the hand-declared component for the SDK's own
// files in one library cell. Only files present in the stage are
// listed; a cell with none yields nil.
func (g *Generator) sdkComponent(cell Cell) (*wix.Component, error) {
	dir := g.stagePath(filepath.Join(g.layout.Libs.Path, cell.Arch.Name, cell.Config.Name))
	id := g.layout.SDKComponentID(cell)

	var files []*wix.File
	for _, sf := range g.layout.Libs.SDKFiles {
		path := filepath.Join(dir, sf.Name)
		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, errors.Wrapf(err, "stat %s", path)
		}
		if !info.Mode().IsRegular() {
			continue
		}

		f, err := g.file(g.plain.Normalize(id+"/"+sf.Name), sf.installName(cell.Config), path)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}

	if len(files) == 0 {
		return nil, nil
	}

	if err := g.claim("Component", id, dir); err != nil {
		return nil, err
	}

	guid, err := g.cache.GetOrCreate(id)
	if err != nil {
		return nil, errors.Wrapf(err, "guid for component %s", id)
	}

	return &wix.Component{
		Id:        id,
		Directory: g.layout.CellDirectoryID(cell),
		Guid:      guid,
		Files:     files,
	}, nil
}

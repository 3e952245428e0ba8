package wxsgen

import (
	"os"
	"path/filepath"

	"github.com/branchmetrics/wxs-builder/pkg/packagekit/wix"
	"github.com/pkg/errors"
)

// BuildDirectoryTree mirrors root and every directory below it into
// nested Directory elements. Files are ignored. Siblings come out in
// directory listing order. A missing root yields nil.
//
// Symlinked directories are not descended into, so the walk cannot
// loop.
func (g *Generator) BuildDirectoryTree(root string) (*wix.Directory, error) {
	root, err := absPath(root)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}
	return g.directory(root)
}

// absPath resolves path against the working directory, so Ids and
// sources come out the same however the path was given.
func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", errors.Wrapf(err, "resolving %s", path)
	}
	return abs, nil
}

func (g *Generator) directory(path string) (*wix.Directory, error) {
	id := g.keys.Normalize(path)
	if err := g.claim("Directory", id, path); err != nil {
		return nil, err
	}

	d := &wix.Directory{
		Id:   id,
		Name: filepath.Base(path),
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading directory %s", path)
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		child, err := g.directory(filepath.Join(path, e.Name()))
		if err != nil {
			return nil, err
		}
		d.Directories = append(d.Directories, child)
	}

	return d, nil
}

// subdirs returns root followed by, when recurse is set, every
// directory below it in the same pre-order BuildDirectoryTree visits
// them. A missing root yields nothing.
func subdirs(root string, recurse bool) ([]string, error) {
	root, err := absPath(root)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", root)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%s isn't a directory", root)
	}

	dirs := []string{root}
	if !recurse {
		return dirs, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Wrapf(err, "reading directory %s", root)
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		nested, err := subdirs(filepath.Join(root, e.Name()), true)
		if err != nil {
			return nil, err
		}
		dirs = append(dirs, nested...)
	}

	return dirs, nil
}

package wxsgen

import (
	_ "embed"
	"io/ioutil"
	"strings"

	"github.com/branchmetrics/wxs-builder/pkg/packagekit/wix"
	"github.com/ghodss/yaml"
	"github.com/pkg/errors"
	"github.com/serenize/snaker"
)

//go:embed layout.yaml
var defaultLayout []byte

// Layout describes where things live in the stage, and where they go
// on install. Everything the generator would otherwise hard code (the
// architecture and configuration matrix, the files pulled out of the
// generic walk) lives here.
type Layout struct {
	ProductFolder   string   `json:"product_folder"`
	ProgramFilesID  string   `json:"program_files_id"`
	InstallFolderID string   `json:"install_folder_id"`
	Placeholder     string   `json:"placeholder"`
	StripPrefixes   []string `json:"strip_prefixes"`

	Include string `json:"include"`
	Headers []Tree `json:"headers"`

	Licenses Folder    `json:"licenses"`
	Docs     *Tree     `json:"docs"`
	Libs     Libraries `json:"libraries"`
}

// Tree is a staged directory installed recursively, one component per
// directory.
type Tree struct {
	Group string `json:"group"`
	Path  string `json:"path"`
}

// Folder is a staged directory installed flat into a hand-declared
// directory.
type Folder struct {
	Group       string `json:"group"`
	Path        string `json:"path"`
	DirectoryID string `json:"directory_id"`
	Name        string `json:"name"`
}

// Libraries is the lib/<arch>/<configuration> matrix.
type Libraries struct {
	Path            string    `json:"path"`
	DirectoryID     string    `json:"directory_id"`
	Name            string    `json:"name"`
	SDKGroup        string    `json:"sdk_group"`
	ThirdPartyGroup string    `json:"third_party_group"`
	Architectures   []Target  `json:"architectures"`
	Configurations  []Target  `json:"configurations"`
	SDKFiles        []SDKFile `json:"sdk_files"`
}

// Target is one axis value of the library matrix. Name is the stage
// directory, Folder the installed directory name.
type Target struct {
	Name   string `json:"name"`
	Folder string `json:"folder"`
}

func (t Target) folder() string {
	if t.Folder != "" {
		return t.Folder
	}
	return t.Name
}

// SDKFile is a library file that gets its own component per matrix
// cell, optionally renamed per configuration.
type SDKFile struct {
	Name         string            `json:"name"`
	InstallNames map[string]string `json:"install_names"`
}

func (f SDKFile) installName(config Target) string {
	if n, ok := f.InstallNames[config.Name]; ok && n != "" {
		return n
	}
	return f.Name
}

// Cell is one arch/configuration pair of the library matrix.
type Cell struct {
	Arch   Target
	Config Target
}

// DefaultLayout returns the layout of the Branch SDK stage.
func DefaultLayout() (*Layout, error) {
	return ParseLayout(defaultLayout)
}

// LoadLayout reads a yaml layout file.
func LoadLayout(path string) (*Layout, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading layout %s", path)
	}
	l, err := ParseLayout(data)
	if err != nil {
		return nil, errors.Wrapf(err, "layout %s", path)
	}
	return l, nil
}

func ParseLayout(data []byte) (*Layout, error) {
	l := &Layout{}
	if err := yaml.Unmarshal(data, l); err != nil {
		return nil, errors.Wrap(err, "unmarshal layout")
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}

// Validate checks that every Id the layout contributes is a legal wix
// identifier.
func (l *Layout) Validate() error {
	if l.ProductFolder == "" {
		return errors.New("layout: product_folder is required")
	}

	if len(l.Libs.Architectures) == 0 || len(l.Libs.Configurations) == 0 {
		return errors.New("layout: libraries needs at least one architecture and one configuration")
	}

	ids := []string{l.ProgramFilesID, l.InstallFolderID, l.Licenses.DirectoryID, l.Libs.DirectoryID}
	for _, cell := range l.Cells() {
		ids = append(ids,
			l.ArchDirectoryID(cell.Arch),
			l.CellDirectoryID(cell),
			l.SDKComponentID(cell),
			l.SDKGroupID(cell.Arch),
			l.ThirdPartyGroupID(cell.Arch),
		)
	}
	for _, h := range l.Headers {
		ids = append(ids, GroupID(h.Group))
	}
	ids = append(ids, GroupID(l.Licenses.Group))
	if l.Docs != nil {
		ids = append(ids, GroupID(l.Docs.Group))
	}

	for _, id := range ids {
		if !wix.ValidIdentifier(id) {
			return errors.Errorf("layout: %q is not a valid wix identifier", id)
		}
	}

	return nil
}

// Exclusions returns the file names the directory walk must skip.
func (l *Layout) Exclusions() map[string]bool {
	ex := make(map[string]bool, len(l.Libs.SDKFiles))
	for _, f := range l.Libs.SDKFiles {
		ex[f.Name] = true
	}
	return ex
}

// Cells returns the library matrix, architecture major.
func (l *Layout) Cells() []Cell {
	var cells []Cell
	for _, a := range l.Libs.Architectures {
		for _, c := range l.Libs.Configurations {
			cells = append(cells, Cell{Arch: a, Config: c})
		}
	}
	return cells
}

// ArchDirectoryID is the directory Id of lib/<arch>, eg X64LIBFOLDER.
func (l *Layout) ArchDirectoryID(arch Target) string {
	return strings.ToUpper(arch.Name) + l.Libs.DirectoryID
}

// CellDirectoryID is the directory Id of lib/<arch>/<config>, eg
// X64DEBUGLIBFOLDER.
func (l *Layout) CellDirectoryID(cell Cell) string {
	return strings.ToUpper(cell.Arch.Name+cell.Config.Name) + l.Libs.DirectoryID
}

// SDKComponentID is the Id of the hand-declared component holding the
// SDK's own files for a cell, eg BranchLibrariesDebugX64.
func (l *Layout) SDKComponentID(cell Cell) string {
	return GroupID(l.Libs.SDKGroup + "_" + cell.Config.Name + "_" + cell.Arch.Name)
}

// SDKGroupID is eg BranchLibrariesX64.
func (l *Layout) SDKGroupID(arch Target) string {
	return GroupID(l.Libs.SDKGroup + "_" + arch.Name)
}

// ThirdPartyGroupID is eg ThirdPartyLibrariesX64.
func (l *Layout) ThirdPartyGroupID(arch Target) string {
	return GroupID(l.Libs.ThirdPartyGroup + "_" + arch.Name)
}

// GroupID converts a snake_case layout name into a ComponentGroup Id.
func GroupID(name string) string {
	return snaker.SnakeToCamel(name)
}

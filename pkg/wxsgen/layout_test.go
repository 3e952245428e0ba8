package wxsgen

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultLayout(t *testing.T) {
	t.Parallel()

	l, err := DefaultLayout()
	require.NoError(t, err)

	require.Equal(t, "Branch SDK", l.ProductFolder)
	require.Equal(t, "$(var.SourceDir)", l.Placeholder)
	require.Equal(t, map[string]bool{"BranchIO.lib": true, "BranchIO.pdb": true}, l.Exclusions())

	cells := l.Cells()
	require.Len(t, cells, 4, "x86/x64 by debug/release")

	var tests = []struct {
		cell        Cell
		directoryID string
		componentID string
	}{
		{cells[0], "X64DEBUGLIBFOLDER", "BranchLibrariesDebugX64"},
		{cells[1], "X64RELEASELIBFOLDER", "BranchLibrariesReleaseX64"},
		{cells[2], "X86DEBUGLIBFOLDER", "BranchLibrariesDebugX86"},
		{cells[3], "X86RELEASELIBFOLDER", "BranchLibrariesReleaseX86"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.directoryID, l.CellDirectoryID(tt.cell))
		require.Equal(t, tt.componentID, l.SDKComponentID(tt.cell))
	}

	require.Equal(t, "X64LIBFOLDER", l.ArchDirectoryID(cells[0].Arch))
	require.Equal(t, "BranchLibrariesX86", l.SDKGroupID(cells[2].Arch))
	require.Equal(t, "ThirdPartyLibrariesX64", l.ThirdPartyGroupID(cells[0].Arch))
	require.Equal(t, "BranchIOmdd.lib", l.Libs.SDKFiles[0].installName(cells[0].Config))
	require.Equal(t, "BranchIO.pdb", l.Libs.SDKFiles[1].installName(cells[0].Config))
	require.Equal(t, "Release", cells[1].Config.folder())
	require.Equal(t, "x64", cells[1].Arch.folder())
}

func TestGroupID(t *testing.T) {
	t.Parallel()

	var tests = []struct {
		in  string
		out string
	}{
		{"branch_headers", "BranchHeaders"},
		{"third_party_headers", "ThirdPartyHeaders"},
		{"branch_docs", "BranchDocs"},
		{"branch_libraries_x64", "BranchLibrariesX64"},
	}

	for _, tt := range tests {
		require.Equal(t, tt.out, GroupID(tt.in))
	}
}

func TestLoadLayout(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "layout.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte(`
product_folder: Branch SDK ARM
program_files_id: ProgramFiles64Folder
install_folder_id: INSTALLFOLDER
placeholder: "$(var.StageDir)"
include: include
headers:
  - group: branch_headers
    path: include/BranchIO
licenses:
  group: branch_license
  path: licenses
  directory_id: LICENSEFOLDER
  name: licenses
libraries:
  path: lib
  directory_id: LIBFOLDER
  name: lib
  sdk_group: branch_libraries
  third_party_group: third_party_libraries
  architectures:
    - name: arm64
  configurations:
    - name: release
  sdk_files:
    - name: BranchIO.lib
`), 0644))

	l, err := LoadLayout(path)
	require.NoError(t, err)
	require.Nil(t, l.Docs)
	require.Len(t, l.Cells(), 1)
	require.Equal(t, "ARM64RELEASELIBFOLDER", l.CellDirectoryID(l.Cells()[0]))
	require.Equal(t, "release", l.Cells()[0].Config.folder())
}

func TestLayoutValidate(t *testing.T) {
	t.Parallel()

	var tests = []struct {
		name string
		yaml string
	}{
		{
			name: "no product",
			yaml: `libraries: {architectures: [{name: x64}], configurations: [{name: debug}]}`,
		},
		{
			name: "empty matrix",
			yaml: `product_folder: Branch SDK`,
		},
		{
			name: "bad id",
			yaml: `
product_folder: Branch SDK
program_files_id: ProgramFilesFolder
install_folder_id: INSTALL-FOLDER
licenses: {group: branch_license, directory_id: LICENSEFOLDER}
libraries:
  directory_id: LIBFOLDER
  sdk_group: branch_libraries
  third_party_group: third_party_libraries
  architectures: [{name: x64}]
  configurations: [{name: debug}]
`,
		},
		{
			name: "not yaml",
			yaml: `product_folder: [`,
		},
	}

	for _, tt := range tests {
		_, err := ParseLayout([]byte(tt.yaml))
		require.Error(t, err, tt.name)
	}
}

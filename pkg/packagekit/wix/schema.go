package wix

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// Namespace is the wix v3 source schema.
const Namespace = "http://schemas.microsoft.com/wix/2006/wi"

// Wix is the root of a wxs document. It covers the subset of
// http://wixtoolset.org/documentation/manual/v3/xsd/wix/wix.html that
// a component fragment file needs.
type Wix struct {
	XMLName   xml.Name    `xml:"http://schemas.microsoft.com/wix/2006/wi Wix"`
	Comment   string      `xml:",comment"`
	Fragments []*Fragment `xml:"Fragment"`

	// Defines are emitted as <?define name="value"?> preprocessor
	// instructions ahead of the root element.
	Defines []Define `xml:"-"`
}

// Define is a candle preprocessor variable.
type Define struct {
	Name  string
	Value string
}

// Fragment implements http://wixtoolset.org/documentation/manual/v3/xsd/wix/fragment.html
type Fragment struct {
	Directories     []*Directory      `xml:"Directory,omitempty"`
	ComponentGroups []*ComponentGroup `xml:"ComponentGroup,omitempty"`
}

// Directory implements http://wixtoolset.org/documentation/manual/v3/xsd/wix/directory.html
type Directory struct {
	Id          string       `xml:",attr"`
	Name        string       `xml:",attr,omitempty"`
	Directories []*Directory `xml:"Directory,omitempty"`
}

// ComponentGroup implements http://wixtoolset.org/documentation/manual/v3/xsd/wix/componentgroup.html
type ComponentGroup struct {
	Id         string       `xml:",attr"`
	Components []*Component `xml:"Component,omitempty"`
}

// Component implements http://wixtoolset.org/documentation/manual/v3/xsd/wix/component.html
type Component struct {
	Id        string  `xml:",attr"`
	Directory string  `xml:",attr,omitempty"`
	Guid      string  `xml:",attr,omitempty"`
	Files     []*File `xml:"File,omitempty"`
}

// File implements http://wixtoolset.org/documentation/manual/v3/xsd/wix/file.html
type File struct {
	Id     string `xml:",attr"`
	Name   string `xml:",attr,omitempty"`
	Source string `xml:",attr"`
}

// Append adds child as the last subdirectory of d and returns it, so
// hand-declared trees can be chained.
func (d *Directory) Append(child *Directory) *Directory {
	d.Directories = append(d.Directories, child)
	return child
}

// Find does a depth first search for the directory with the given id.
func (d *Directory) Find(id string) *Directory {
	if d == nil {
		return nil
	}
	if d.Id == id {
		return d
	}
	for _, child := range d.Directories {
		if found := child.Find(id); found != nil {
			return found
		}
	}
	return nil
}

// ComponentGroup returns the group with the given id, or nil.
func (w *Wix) ComponentGroup(id string) *ComponentGroup {
	for _, f := range w.Fragments {
		for _, cg := range f.ComponentGroups {
			if cg.Id == id {
				return cg
			}
		}
	}
	return nil
}

// RetFiles returns every File element in the document.
func (w *Wix) RetFiles() []*File {
	var files []*File
	for _, f := range w.Fragments {
		for _, cg := range f.ComponentGroups {
			for _, c := range cg.Components {
				files = append(files, c.Files...)
			}
		}
	}
	return files
}

// Encode writes w as indented xml.
func (w *Wix) Encode(out io.Writer) error {
	if _, err := io.WriteString(out, xml.Header); err != nil {
		return errors.Wrap(err, "writing xml header")
	}

	// encoding/xml won't indent processing instructions, so write the
	// defines by hand, one per line.
	for _, d := range w.Defines {
		if _, err := fmt.Fprintf(out, "<?define %s=%q?>\n", d.Name, d.Value); err != nil {
			return errors.Wrapf(err, "writing define %s", d.Name)
		}
	}

	enc := xml.NewEncoder(out)
	enc.Indent("", "  ")

	if err := enc.Encode(w); err != nil {
		return errors.Wrap(err, "encoding wix document")
	}

	if _, err := io.WriteString(out, "\n"); err != nil {
		return errors.Wrap(err, "writing trailing newline")
	}

	return nil
}

// Decode parses a wxs document.
func Decode(data []byte) (*Wix, error) {
	w := &Wix{}
	if err := xml.Unmarshal(data, w); err != nil {
		return nil, errors.Wrap(err, "unmarshal wix document")
	}
	return w, nil
}

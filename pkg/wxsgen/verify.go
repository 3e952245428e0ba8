package wxsgen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/branchmetrics/wxs-builder/pkg/packagekit/wix"
	"github.com/clbanning/mxj"
	"github.com/pkg/errors"
)

// VerifyError lists everything wrong with a wxs document.
type VerifyError struct {
	Problems []string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("%d problems: %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

// Verify checks a wxs document for the problems light reports late or
// not at all: Ids that break the identifier syntax, Ids reused within
// one element type, and component GUIDs reused across components. It
// works on any wxs, generated or not.
func Verify(data []byte) error {
	mv, err := mxj.NewMapXml(data)
	if err != nil {
		return errors.Wrap(err, "mxj parse")
	}

	ids := make(map[string]map[string]int)
	guids := make(map[string]int)

	for _, leaf := range mv.LeafNodes() {
		segments := strings.Split(leaf.Path, ".")
		if len(segments) < 2 {
			continue
		}
		attr := segments[len(segments)-1]
		element := segments[len(segments)-2]
		if i := strings.IndexByte(element, '['); i >= 0 {
			element = element[:i]
		}
		value := fmt.Sprint(leaf.Value)

		switch {
		case attr == "-Id":
			if ids[element] == nil {
				ids[element] = make(map[string]int)
			}
			ids[element][value]++
		case attr == "-Guid" && element == "Component":
			guids[strings.ToUpper(value)]++
		}
	}

	var problems []string
	for element, byID := range ids {
		for id, n := range byID {
			if !wix.ValidIdentifier(id) {
				problems = append(problems, fmt.Sprintf("%s Id %q is not a valid identifier", element, id))
			}
			if n > 1 {
				problems = append(problems, fmt.Sprintf("%s Id %q used %d times", element, id, n))
			}
		}
	}
	for guid, n := range guids {
		if n > 1 {
			problems = append(problems, fmt.Sprintf("Component Guid %s used %d times", guid, n))
		}
	}

	if len(problems) == 0 {
		return nil
	}

	sort.Strings(problems)
	return &VerifyError{Problems: problems}
}

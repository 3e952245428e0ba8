// Package wxsgen generates the Components.wxs fragment for the SDK
// installer from a staged SDK tree.
//
// The generator walks the stage twice: once to mirror its directories
// into a Directory fragment, and once to emit one Component per
// directory holding that directory's files. Component GUIDs come from
// a guidcache.Cache, so unchanged directories keep their GUIDs across
// releases and upgrades work.
//
// Ids are derived from paths (see wix.Normalizer) and are truncated to
// 72 characters without any collision check. WithStrictIdentifiers
// turns collisions into errors.
package wxsgen

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver"
	"github.com/branchmetrics/wxs-builder/pkg/guidcache"
	"github.com/branchmetrics/wxs-builder/pkg/packagekit/wix"
	"github.com/pkg/errors"
)

// IdentifierCollisionError reports two paths that normalized to the
// same Id within one run.
type IdentifierCollisionError struct {
	Kind   string
	ID     string
	First  string
	Second string
}

func (e *IdentifierCollisionError) Error() string {
	return fmt.Sprintf("%s id %s used by both %s and %s", e.Kind, e.ID, e.First, e.Second)
}

type Generator struct {
	stageRoot string
	repoRoot  string
	layout    *Layout
	cache     *guidcache.Cache
	strict    bool
	version   string

	keys    *wix.Normalizer
	plain   *wix.Normalizer
	exclude map[string]bool
	claims  map[string]map[string]string
}

type Option func(*Generator)

// WithRepoRoot sets the root that file sources are made relative to.
// It defaults to the stage root.
func WithRepoRoot(path string) Option {
	return func(g *Generator) {
		g.repoRoot = filepath.Clean(path)
	}
}

func WithLayout(l *Layout) Option {
	return func(g *Generator) {
		g.layout = l
	}
}

// WithStrictIdentifiers fails generation when two distinct paths
// normalize to the same Id.
func WithStrictIdentifiers() Option {
	return func(g *Generator) {
		g.strict = true
	}
}

// WithSDKVersion stamps the SDK version into the document as the
// BranchSDKVersion preprocessor variable.
func WithSDKVersion(v string) Option {
	return func(g *Generator) {
		g.version = v
	}
}

// New returns a Generator for the stage at stageRoot. The cache is
// shared with the caller, who owns its store.
func New(stageRoot string, cache *guidcache.Cache, opts ...Option) (*Generator, error) {
	if cache == nil {
		return nil, errors.New("nil identifier cache")
	}

	g := &Generator{
		stageRoot: filepath.Clean(stageRoot),
		cache:     cache,
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.repoRoot == "" {
		g.repoRoot = g.stageRoot
	}

	// Sources are rewritten by prefix, so both roots must be absolute
	// no matter how they were given.
	var err error
	if g.stageRoot, err = filepath.Abs(g.stageRoot); err != nil {
		return nil, errors.Wrapf(err, "resolving stage root %s", stageRoot)
	}
	if g.repoRoot, err = filepath.Abs(g.repoRoot); err != nil {
		return nil, errors.Wrapf(err, "resolving repo root %s", g.repoRoot)
	}

	if g.layout == nil {
		l, err := DefaultLayout()
		if err != nil {
			return nil, errors.Wrap(err, "default layout")
		}
		g.layout = l
	}

	if g.version != "" {
		v, err := msiVersion(g.version)
		if err != nil {
			return nil, err
		}
		g.version = v
	}

	prefixes := append([]string{g.stageRoot, g.repoRoot}, g.layout.StripPrefixes...)
	g.keys = wix.NewNormalizer(prefixes...)
	g.plain = wix.NewNormalizer()
	g.exclude = g.layout.Exclusions()
	g.resetClaims()

	return g, nil
}

// msiVersion reduces a semver to major.minor.patch. Windows Installer
// versions can't carry a prerelease suffix like -beta.1.
func msiVersion(raw string) (string, error) {
	v, err := semver.NewVersion(raw)
	if err != nil {
		return "", errors.Wrapf(err, "parsing sdk version %q", raw)
	}
	return fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch()), nil
}

func (g *Generator) resetClaims() {
	g.claims = map[string]map[string]string{}
}

// claim records that id names path. Outside strict mode a second path
// silently shares the id.
func (g *Generator) claim(kind, id, path string) error {
	byID, ok := g.claims[kind]
	if !ok {
		byID = make(map[string]string)
		g.claims[kind] = byID
	}

	prev, seen := byID[id]
	if !seen {
		byID[id] = path
		return nil
	}

	if prev != path && g.strict {
		return &IdentifierCollisionError{Kind: kind, ID: id, First: prev, Second: path}
	}
	return nil
}

func (g *Generator) stagePath(rel string) string {
	return filepath.Join(g.stageRoot, filepath.FromSlash(rel))
}

// source rewrites path relative to the layout placeholder. Paths
// outside the repo root pass through untouched.
func (g *Generator) source(path string) string {
	if !strings.HasPrefix(path, g.repoRoot) {
		return path
	}
	rest := path[len(g.repoRoot):]
	if rest != "" && rest[0] != filepath.Separator {
		return path
	}
	return g.layout.Placeholder + rest
}

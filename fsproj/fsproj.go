// Package fsproj implements the scheduler's filesystem contract (scandir,
// readlink, content) against a real OS build root.
//
// Grounded on original_source's pants/base/project_tree.py ProjectTree role
// as used by engine/fs.py's scan_directory/read_link/file_content
// functions: that file was not itself copied into the pack, so this is
// reconstructed from its three call sites rather than transliterated.
package fsproj

import (
	"fmt"
	"os"
	"path/filepath"
)

// StatKind closes the set of filesystem entry kinds a Tree can report,
// mirroring project_tree.py's Dir/File/Link triple.
type StatKind int

const (
	KindFile StatKind = iota
	KindDir
	KindLink
)

func (k StatKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	case KindLink:
		return "link"
	default:
		return "unknown"
	}
}

// Stat is a single filesystem entry, relative to a Tree's root.
type Stat struct {
	Path string
	Kind StatKind
}

// Tree is a project tree rooted at a single build root directory. All paths
// passed to and returned from its methods are root-relative.
type Tree struct {
	root string
}

// New returns a Tree rooted at root, which must be an existing directory.
func New(root string) (*Tree, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("fsproj: resolving root %q: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("fsproj: stat root %q: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("fsproj: root %q is not a directory", root)
	}
	return &Tree{root: abs}, nil
}

func (t *Tree) abs(rel string) string {
	return filepath.Join(t.root, filepath.FromSlash(rel))
}

// Scandir lists the direct children of dir (root-relative), failing if dir
// does not exist or is not a directory — the caller is expected to have
// already confirmed that via a prior Stat-producing demand, matching
// scan_directory's "fails eagerly" contract in fs.py.
func (t *Tree) Scandir(dir string) ([]Stat, error) {
	entries, err := os.ReadDir(t.abs(dir))
	if err != nil {
		return nil, fmt.Errorf("fsproj: scandir %q: %w", dir, err)
	}
	out := make([]Stat, 0, len(entries))
	for _, e := range entries {
		childPath := filepath.ToSlash(filepath.Join(dir, e.Name()))
		info, err := os.Lstat(t.abs(childPath))
		if err != nil {
			return nil, fmt.Errorf("fsproj: lstat %q: %w", childPath, err)
		}
		out = append(out, Stat{Path: childPath, Kind: kindOf(info)})
	}
	return out, nil
}

func kindOf(info os.FileInfo) StatKind {
	switch {
	case info.Mode()&os.ModeSymlink != 0:
		return KindLink
	case info.IsDir():
		return KindDir
	default:
		return KindFile
	}
}

// Readlink returns the symbolic target of a link path, root-relative.
func (t *Tree) Readlink(path string) (string, error) {
	target, err := os.Readlink(t.abs(path))
	if err != nil {
		return "", fmt.Errorf("fsproj: readlink %q: %w", path, err)
	}
	if filepath.IsAbs(target) {
		rel, err := filepath.Rel(t.root, target)
		if err != nil {
			return "", fmt.Errorf("fsproj: link %q escapes build root: %w", path, err)
		}
		return filepath.ToSlash(rel), nil
	}
	return filepath.ToSlash(filepath.Join(filepath.Dir(path), target)), nil
}

// Content returns the bytes of a known-existing File path. Callers must
// only call Content after confirming (via Scandir or an explicit Stat)
// that path names a File, matching file_content's "fails eagerly" contract.
func (t *Tree) Content(path string) ([]byte, error) {
	data, err := os.ReadFile(t.abs(path))
	if err != nil {
		return nil, fmt.Errorf("fsproj: content %q: %w", path, err)
	}
	return data, nil
}

// Stat reports the kind of a single root-relative path, or an error if it
// does not exist.
func (t *Tree) Stat(path string) (Stat, error) {
	info, err := os.Lstat(t.abs(path))
	if err != nil {
		return Stat{}, fmt.Errorf("fsproj: stat %q: %w", path, err)
	}
	return Stat{Path: path, Kind: kindOf(info)}, nil
}

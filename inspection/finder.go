package inspection

import (
	"io/fs"
	"path"
	"path/filepath"
	"sort"

	"github.com/golang/glog"
	"github.com/spf13/afero"
)

// Visitor defines the contract for a visitor of discovered files.
type Visitor interface {
	VisitDir(relPath string, info fs.FileInfo)
	VisitFile(relPath string, info fs.FileInfo)
}

// Options controls discovery.
type Options struct {
	// Recursive descends into sub directories when set. Otherwise only the
	// files directly inside the root are visited.
	Recursive bool
}

// Discover visits the files below root in lexical order. Relative paths
// handed to the visitor are slash-separated.
func Discover(fsys afero.Fs, root string, opts Options, visitor Visitor) error {
	info, err := fsys.Stat(root)
	if nil != err {
		return err
	} else if !info.IsDir() {
		return &fs.PathError{Op: "discover", Path: root, Err: fs.ErrInvalid}
	}

	return discoverDir(fsys, root, "", opts, visitor)
}

func discoverDir(fsys afero.Fs, root, relDir string, opts Options, visitor Visitor) error {
	absDir := filepath.Join(root, filepath.FromSlash(relDir))
	items, err := afero.ReadDir(fsys, absDir)
	if nil != err {
		return err
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Name() < items[j].Name() })

	for _, item := range items {
		relPath := path.Join(relDir, item.Name())

		if item.IsDir() {
			visitor.VisitDir(relPath, item)
			if !opts.Recursive {
				continue
			}

			if err := discoverDir(fsys, root, relPath, opts, visitor); nil != err {
				glog.Errorf("Could not read directory '%s': %v", relPath, err)
			}
		} else if item.Mode().IsRegular() {
			visitor.VisitFile(relPath, item)
		} else if glog.V(2) {
			glog.Infof("Skipping '%s' with mode %v.", relPath, item.Mode())
		}
	}

	return nil
}

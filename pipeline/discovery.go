package pipeline

import (
	"os"
	"path/filepath"
	"sort"
)

// ListFrames returns the raw frame files present in dir, in ordinal order.
// Files whose name carries no ordinal sort last, by name.
func ListFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != RawExt {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}

	sort.SliceStable(paths, func(i, j int) bool {
		oi, erri := ParseOrdinal(paths[i])
		oj, errj := ParseOrdinal(paths[j])
		switch {
		case erri == nil && errj == nil && oi != oj:
			return oi < oj
		case erri == nil && errj != nil:
			return true
		case erri != nil && errj == nil:
			return false
		default:
			return paths[i] < paths[j]
		}
	})
	return paths, nil
}

// ListArtifacts returns the encoded stills in dir, in ordinal order.
func ListArtifacts(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*"+ArtifactExt))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

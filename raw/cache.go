package raw

import (
	"os"
	"path/filepath"
	"time"
)

// Decoder turns one downloaded raw file into decoded fields under their
// provider-native names; the adaptor's job then renames them via the
// canonical parameter registry and drops those the model does not expect.
// It is supplied by the caller at repository-construction time, treating
// the binary decode step as an external collaborator never imported by
// either reference adaptor directly.
type Decoder func(path string) ([]DecodedField, error)

// DecodedField is one variable's worth of raw, not-yet-reshaped decoded
// data, as handed back by a Decoder before canonical renaming and
// cropping to a store's coordinate map.
type DecodedField struct {
	Name    string                 `json:"name"` // provider-native name, resolved via parameter.Resolve
	Indexes map[string]interface{} `json:"indexes"`
	Values  []float64              `json:"values"`
}

// CachePath renders the deterministic local cache path for one raw file:
// $RAWDIR/<repo>/<model>/raw/<it>/<remoteName>.
func CachePath(rawDir, repoName, modelName string, it time.Time, remoteName string) string {
	return filepath.Join(rawDir, repoName, modelName, "raw", it.UTC().Format("20060102T1504"), remoteName)
}

// AlreadyCached reports whether path exists locally with exactly
// remoteSize bytes, in which case the adaptor skips re-downloading.
// remoteSize < 0 means unknown, so the cache is never trusted.
func AlreadyCached(path string, remoteSize int64) bool {
	if remoteSize < 0 {
		return false
	}
	fi, err := os.Stat(path)
	if err != nil {
		return false
	}
	return fi.Size() == remoteSize
}

package main

import (
	"encoding/json"
	"io"
	"path/filepath"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/base/errorreporter"

	"github.com/grailbio/padindex/catalog"
)

// fileChecksum is the seahash digest of one catalog input file, along with
// its byte count for a quick sanity check alongside the hash.
type fileChecksum struct {
	Name  string
	Bytes int64
	Sum   uint64
}

// catalogChecksum is what checksumCatalog prints: one entry per catalog
// file, plus one for the filter file when one is given, so two builds of the
// same snapshot can be compared without diffing the files themselves. A
// missing file makes checksumCatalog fail rather than be left out.
type catalogChecksum struct {
	Dir       string
	IndexPath string `json:",omitempty"`
	Files     []fileChecksum
}

var catalogFiles = []string{
	"pad.txt",
	"pad_relation.txt",
	"user.txt",
	"campaign.txt",
	"targeting_user.txt",
	"targeting_package.txt",
	"targeting_campaign.txt",
}

func sumFile(path string) (fileChecksum, error) {
	r, err := catalog.Open(path)
	if err != nil {
		return fileChecksum{}, err
	}
	var rep errorreporter.T
	h := seahash.New()
	n, err := io.Copy(h, r)
	rep.Set(err)
	rep.Set(r.Close())
	if rep.Err() != nil {
		return fileChecksum{}, rep.Err()
	}
	return fileChecksum{Name: filepath.Base(path), Bytes: n, Sum: h.Sum64()}, nil
}

// checksumCatalog hashes every catalog flat file under dir, and the
// precomputed filter file at indexPath if one is given, and renders the
// result as JSON. It does not parse any of the files, so it also succeeds
// on a catalog this binary's own loader would reject -- useful for
// confirming two snapshots are byte-identical before debugging a build
// difference.
func checksumCatalog(dir, indexPath string) (string, error) {
	result := catalogChecksum{Dir: dir, IndexPath: indexPath}
	for _, name := range catalogFiles {
		sum, err := sumFile(filepath.Join(dir, name))
		if err != nil {
			return "", err
		}
		result.Files = append(result.Files, sum)
	}
	if indexPath != "" {
		sum, err := sumFile(indexPath)
		if err != nil {
			return "", err
		}
		result.Files = append(result.Files, sum)
	}
	js, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(js), nil
}

// Package vdf contains minimal parsers for the Valve Data Format text files
// steamback cares about: flat key/value lookups (appmanifest_*.acf),
// libraryfolders.vdf library paths and remotecache.vdf filename lists.
//
// These are not general VDF parsers. Hierarchy is ignored on purpose: the
// files we read keep the interesting keys unique across the whole document.
package vdf

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"
)

var (
	kvPattern   = regexp.MustCompile(`^\s*"(.+)"\s+"(.+)"\s*$`)
	pathPattern = regexp.MustCompile(`^\s*"path"\s+"(.+)"\s*$`)
)

// ParseFlat returns every quoted key/value pair found in r, ignoring nesting.
// Later occurrences of a key overwrite earlier ones.
func ParseFlat(r io.Reader) map[string]string {
	kv := map[string]string{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if m := kvPattern.FindStringSubmatch(sc.Text()); m != nil {
			kv[m[1]] = m[2]
		}
	}
	return kv
}

// ParseFlatFile is ParseFlat over a file on disk.
func ParseFlatFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ParseFlat(f), nil
}

// ParseLibraryFolders extracts the "path" entries from a libraryfolders.vdf
// document, one per Steam library.
func ParseLibraryFolders(r io.Reader) []string {
	var paths []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if m := pathPattern.FindStringSubmatch(sc.Text()); m != nil {
			paths = append(paths, m[1])
		}
	}
	return paths
}

// ParseLibraryFoldersFile is ParseLibraryFolders over a file on disk.
func ParseLibraryFoldersFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ParseLibraryFolders(f), nil
}

// ParseRemoteCache extracts the tracked filenames from a remotecache.vdf
// document. The format is: two header lines ("appid" and an open brace),
// then for each file a quoted relative path on its own line followed by a
// brace-delimited attribute record, which we skip.
func ParseRemoteCache(r io.Reader) []string {
	var files []string
	sc := bufio.NewScanner(r)

	lineNum := 0
	prev := ""
	skipping := false
	for sc.Scan() {
		lineNum++
		if lineNum <= 2 {
			continue
		}
		s := strings.TrimSpace(sc.Text())
		switch {
		case skipping:
			if s == "}" {
				skipping = false
			}
		case s == "{":
			if len(prev) >= 2 {
				// prev is a quoted filename, strip the quotes
				files = append(files, prev[1:len(prev)-1])
				prev = ""
			}
			skipping = true
		default:
			prev = s
		}
	}
	return files
}

// ParseRemoteCacheFile is ParseRemoteCache over a file on disk.
func ParseRemoteCacheFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ParseRemoteCache(f), nil
}

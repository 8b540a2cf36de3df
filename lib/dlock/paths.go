package dlock

import (
	"sort"
	"strings"

	"github.com/ValentinKolb/dlock/lib/coord"
)

// --------------------------------------------------------------------------
// Reserved names
// --------------------------------------------------------------------------

const (
	attrPrefix    = "zoo_attr_"
	lockDirName   = attrPrefix + "lock"
	lockAttrName  = "lock"
	processedAttr = "delt"
)

// --------------------------------------------------------------------------
// Path helpers
// --------------------------------------------------------------------------

// baseName returns the last path component.
func baseName(p string) (string, error) {
	pos := strings.LastIndexByte(p, '/')
	if pos < 0 {
		return "", coord.ErrBadPath
	}
	return p[pos+1:], nil
}

// parentPath returns everything before the last separator ("" for "/x").
func parentPath(p string) (string, error) {
	pos := strings.LastIndexByte(p, '/')
	if pos < 0 {
		return "", coord.ErrBadPath
	}
	return p[:pos], nil
}

// checkPath rejects paths the service would never accept before any call is made.
func checkPath(p string) error {
	if !strings.HasPrefix(p, "/") {
		return coord.ErrBadPath
	}
	return nil
}

// isAttrNode reports whether the last component of p carries the attribute prefix.
func isAttrNode(p string) bool {
	name := p
	if pos := strings.LastIndexByte(p, '/'); pos >= 0 {
		name = p[pos+1:]
	}
	return strings.HasPrefix(name, attrPrefix)
}

// isLockDir reports whether p names a lock directory.
func isLockDir(p string) bool {
	return p == lockDirName || strings.HasSuffix(p, "/"+lockDirName)
}

// pureAttrName strips the attribute prefix from the last component of p.
func pureAttrName(p string) string {
	name := p
	if pos := strings.LastIndexByte(p, '/'); pos >= 0 {
		name = p[pos+1:]
	}
	return strings.TrimPrefix(name, attrPrefix)
}

func attrPath(node, name string) string {
	return node + "/" + attrPrefix + name
}

func lockDirOf(node string) string {
	return node + "/" + lockDirName
}

// lockOwnerOf returns the node guarded by the lock directory p is in (or is).
// The second return value is false if p is not inside a lock directory.
func lockOwnerOf(p string) (string, bool) {
	if isLockDir(p) {
		owner, err := parentPath(p)
		return owner, err == nil
	}
	pos := strings.Index(p, "/"+lockDirName+"/")
	if pos < 0 {
		return "", false
	}
	return p[:pos], true
}

// --------------------------------------------------------------------------
// Contender ordering
// --------------------------------------------------------------------------

// sequenceOf returns the service assigned suffix of a contender name.
func sequenceOf(name string) string {
	return name[strings.LastIndexByte(name, '-')+1:]
}

// sortContenders orders lock contenders by ascending sequence suffix. The
// service pads suffixes to a fixed width, so comparing them as strings is a
// numeric comparison. Foreign names without a suffix sort first.
func sortContenders(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		di, dj := strings.IndexByte(names[i], '-') >= 0, strings.IndexByte(names[j], '-') >= 0
		if di != dj {
			return dj
		}
		return sequenceOf(names[i]) < sequenceOf(names[j])
	})
}

// entryOf returns the contender owned by the session with the given prefix.
func entryOf(names []string, prefix string) (string, bool) {
	for _, name := range names {
		if strings.HasPrefix(name, prefix) {
			return name, true
		}
	}
	return "", false
}

// predecessorOf returns the contender directly ahead of entry in sorted
// names. found is false if entry is not in names.
func predecessorOf(sorted []string, entry string) (pred string, found bool) {
	for _, name := range sorted {
		if name == entry {
			return pred, true
		}
		pred = name
	}
	return "", false
}

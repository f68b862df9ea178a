package tree

import "strings"

// SplitPath splits a path into its segments, dropping empty ones.
func SplitPath(path string) []string {
	parts := strings.Split(path, Separator)
	segments := parts[:0]
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}

// JoinPath joins segments into a path.
func JoinPath(segments ...string) string {
	return strings.Join(segments, Separator)
}

// NormalizePath returns the canonical form of a site path: rooted at ROOT,
// without empty segments. "Lab/RackA", "/Lab/RackA/" and "ROOT/Lab/RackA"
// all normalize to "ROOT/Lab/RackA". The root segment is never duplicated.
func NormalizePath(site string) string {
	segments := SplitPath(site)
	if len(segments) == 0 || segments[0] != RootName {
		segments = append([]string{RootName}, segments...)
	}
	return JoinPath(segments...)
}

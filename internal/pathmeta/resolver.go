// Package pathmeta derives repository and program identifiers from file paths.
package pathmeta

import "strings"

// DefaultRootMarker is the path segment that precedes <program>/<repo> in a
// conventional checkout layout such as ~/dev/<program>/<repo>/...
const DefaultRootMarker = "dev"

// Unknown is returned when a path carries no usable segment.
const Unknown = "unknown"

// Resolver maps a path to (repo, program). The zero value uses DefaultRootMarker.
type Resolver struct {
	RootMarker string
}

// NewResolver returns a Resolver for the given marker. An empty marker
// selects DefaultRootMarker.
func NewResolver(marker string) Resolver {
	return Resolver{RootMarker: marker}
}

func (r Resolver) marker() string {
	if r.RootMarker == "" {
		return DefaultRootMarker
	}
	return strings.ToLower(r.RootMarker)
}

// Resolve never fails. When the root marker is present with at least two
// segments after it, program is the segment right after the marker and repo
// the one after that. Otherwise repo is the first segment and program is the
// portion of repo before its first hyphen.
func (r Resolver) Resolve(path string) (repo, program string) {
	parts := Segments(path)
	marker := r.marker()

	for i, p := range parts {
		if p == marker {
			if len(parts) > i+2 {
				return nonEmpty(parts[i+2]), nonEmpty(parts[i+1])
			}
			break
		}
	}

	repo = Unknown
	if len(parts) > 0 && parts[0] != "" {
		repo = parts[0]
	}
	program, _, _ = strings.Cut(repo, "-")
	return repo, nonEmpty(program)
}

// Segments lower-cases path, normalizes separators to '/', and splits it.
func Segments(path string) []string {
	norm := strings.ReplaceAll(strings.ToLower(path), `\`, "/")
	if norm == "" {
		return nil
	}
	return strings.Split(norm, "/")
}

func nonEmpty(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}

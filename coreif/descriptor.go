package coreif

import (
	"path/filepath"
	"sort"
	"strings"
)

// extensionSeparator separates entries in a declared extension list.
const extensionSeparator = "|"

// ExtensionSet is a normalized set of file extensions. Every entry is
// lowercase and starts with a dot.
type ExtensionSet map[string]struct{}

// ParseExtensions builds a set from a "|"-separated list such as
// "nes|.UNF|fds". Empty entries are dropped.
func ParseExtensions(list string) ExtensionSet {
	set := make(ExtensionSet)
	for _, ext := range strings.Split(list, extensionSeparator) {
		set.Add(ext)
	}
	return set
}

// NewExtensionSet builds a set from individual extensions.
func NewExtensionSet(exts ...string) ExtensionSet {
	set := make(ExtensionSet, len(exts))
	for _, ext := range exts {
		set.Add(ext)
	}
	return set
}

// NormalizeExtension lowercases ext and ensures a leading dot. Blank input
// returns "".
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// Add inserts a normalized copy of ext.
func (s ExtensionSet) Add(ext string) {
	if ext = NormalizeExtension(ext); ext != "" {
		s[ext] = struct{}{}
	}
}

// Contains reports whether ext is in the set.
func (s ExtensionSet) Contains(ext string) bool {
	_, ok := s[NormalizeExtension(ext)]
	return ok
}

// Accepts reports whether a file with the given extension may be opened.
// An empty set accepts everything.
func (s ExtensionSet) Accepts(ext string) bool {
	return len(s) == 0 || s.Contains(ext)
}

// AcceptsPath applies Accepts to the extension of path.
func (s ExtensionSet) AcceptsPath(path string) bool {
	return s.Accepts(filepath.Ext(path))
}

// Equal reports whether both sets hold the same extensions.
func (s ExtensionSet) Equal(other ExtensionSet) bool {
	if len(s) != len(other) {
		return false
	}
	for ext := range s {
		if _, ok := other[ext]; !ok {
			return false
		}
	}
	return true
}

// Sorted returns the extensions in lexical order.
func (s ExtensionSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for ext := range s {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// String joins the sorted extensions with "|".
func (s ExtensionSet) String() string {
	return strings.Join(s.Sorted(), extensionSeparator)
}

// Descriptor is the statically declared identity of a core. It is compared
// against what the core reports when loaded.
type Descriptor struct {
	ID             string
	Name           string
	Version        string
	Author         string
	Path           string
	Extensions     ExtensionSet
	SupportsVFS    bool
	SupportsNoGame bool
	Disabled       bool
}

// DisplayName returns Name, falling back to ID.
func (d Descriptor) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}

// Mismatch compares reported values against the descriptor and returns a
// description of each difference. Name and version are only compared when
// the descriptor declares them.
func (d Descriptor) Mismatch(info SystemInfo) []string {
	var problems []string
	if d.Name != "" && d.Name != info.Name {
		problems = append(problems, "name "+quote(info.Name)+" does not match "+quote(d.Name))
	}
	if d.Version != "" && d.Version != info.Version {
		problems = append(problems, "version "+quote(info.Version)+" does not match "+quote(d.Version))
	}
	if !d.Extensions.Equal(info.Extensions) {
		problems = append(problems, "extensions "+quote(info.Extensions.String())+" do not match "+quote(d.Extensions.String()))
	}
	if d.SupportsVFS != info.SupportsVFS {
		problems = append(problems, "vfs support does not match")
	}
	if d.SupportsNoGame != info.SupportsNoGame {
		problems = append(problems, "no-game support does not match")
	}
	return problems
}

func quote(s string) string {
	return "(" + s + ")"
}

package plugin

import (
	"fmt"
	"regexp"
	"strings"
)

// LatestVersion selects the newest registered version.
const LatestVersion = "latest"

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]*$`)

// Ref identifies a plugin as [@namespace/]name[:version].
type Ref struct {
	Namespace string
	Name      string
	Version   string
}

// ParseRef parses a node type. Names and namespaces are case-insensitive;
// an empty version or "latest" means the newest version.
func ParseRef(typ string) (Ref, error) {
	s := strings.TrimSpace(typ)
	if s == "" {
		return Ref{}, fmt.Errorf("plugin: empty type")
	}

	var ref Ref
	if strings.HasPrefix(s, "@") {
		ns, rest, ok := strings.Cut(s[1:], "/")
		if !ok {
			return Ref{}, fmt.Errorf("plugin: type %q: namespace without name", typ)
		}
		ref.Namespace = strings.ToLower(ns)
		s = rest
		if !namePattern.MatchString(ref.Namespace) {
			return Ref{}, fmt.Errorf("plugin: type %q: invalid namespace", typ)
		}
	}

	name, version, _ := strings.Cut(s, ":")
	ref.Name = strings.ToLower(name)
	ref.Version = strings.TrimSpace(version)
	if !namePattern.MatchString(ref.Name) {
		return Ref{}, fmt.Errorf("plugin: type %q: invalid name", typ)
	}
	if strings.EqualFold(ref.Version, LatestVersion) {
		ref.Version = ""
	}
	return ref, nil
}

// Latest reports whether the reference asks for the newest version.
func (r Ref) Latest() bool {
	return r.Version == ""
}

// String renders the reference in canonical form.
func (r Ref) String() string {
	var b strings.Builder
	if r.Namespace != "" {
		b.WriteString("@" + r.Namespace + "/")
	}
	b.WriteString(r.Name)
	if r.Version != "" {
		b.WriteString(":" + r.Version)
	}
	return b.String()
}

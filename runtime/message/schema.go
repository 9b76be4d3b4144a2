// Package message defines the immutable typed envelope exchanged between
// connectors and processors, and the schema identity attached to it.
package message

import "fmt"

// Schema identifies the shape of a Message's content: a name plus a
// major.minor.patch version. Two schemas are compatible iff their names
// match; version negotiation happens at plan time (see runtime/planner).
type Schema struct {
	Name  string
	Major int
	Minor int
	Patch int
}

// String renders the schema as "name/major.minor.patch".
func (s Schema) String() string {
	return fmt.Sprintf("%s/%d.%d.%d", s.Name, s.Major, s.Minor, s.Patch)
}

// Less reports whether s sorts before other by (major, minor, patch),
// lexicographically on the integer components. Names are not compared; this
// is only meaningful for schemas sharing a name.
func (s Schema) Less(other Schema) bool {
	if s.Major != other.Major {
		return s.Major < other.Major
	}
	if s.Minor != other.Minor {
		return s.Minor < other.Minor
	}
	return s.Patch < other.Patch
}

// Equal reports whether s and other identify the same schema (name and
// version all equal).
func (s Schema) Equal(other Schema) bool {
	return s.Name == other.Name && s.Major == other.Major && s.Minor == other.Minor && s.Patch == other.Patch
}

// MaxVersion returns the schema in versions with the highest (major, minor,
// patch), by lexicographic comparison. versions must be non-empty and share
// a name; the name of the first element is used for the result.
func MaxVersion(versions []Schema) Schema {
	best := versions[0]
	for _, v := range versions[1:] {
		if best.Less(v) {
			best = v
		}
	}
	return best
}

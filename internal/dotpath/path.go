// internal/dotpath/path.go
package dotpath

import (
	"fmt"
	"reflect"
	"strings"
)

// String serializes the path back into its dotted form.
func (p *Path) String() string {
	if p == nil {
		return ""
	}

	var sb strings.Builder
	for i, segment := range p.Segments {
		if i > 0 {
			sb.WriteRune('.')
		}
		sb.WriteString(segment.Name)
		if segment.HasIndex() {
			sb.WriteString(fmt.Sprintf("[%d]", segment.Index))
		}
	}
	return sb.String()
}

// Equal checks for deep equality between two paths.
func (p *Path) Equal(other *Path) bool {
	if p == nil || other == nil {
		return p == other
	}
	return reflect.DeepEqual(p.Segments, other.Segments)
}

// Root returns the name of the first segment.
func (p *Path) Root() string {
	if p == nil || len(p.Segments) == 0 {
		return ""
	}
	return p.Segments[0].Name
}

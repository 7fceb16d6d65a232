// internal/dotpath/parser.go
package dotpath

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// segmentRegex parses a single segment, e.g. `name` or `name[1]`. Names may
// contain characters common in metadata keys and registry names.
var segmentRegex = regexp.MustCompile(`^([a-zA-Z0-9_/:@+-]+)(?:\[(\d+)\])?$`)

// isValidSegmentName rejects names that are technically matched but
// meaningless as field names.
func isValidSegmentName(name string) bool {
	return name != "-" && name != "/"
}

// Parse converts a dotted path into its structured form.
func Parse(raw string) (*Path, error) {
	if raw == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	p := &Path{}
	for _, segmentStr := range strings.Split(raw, ".") {
		if segmentStr == "" {
			return nil, fmt.Errorf("path %q contains an empty segment", raw)
		}

		matches := segmentRegex.FindStringSubmatch(segmentStr)
		if matches == nil {
			return nil, fmt.Errorf("invalid path segment format: %q", segmentStr)
		}

		name := matches[1]
		if !isValidSegmentName(name) {
			return nil, fmt.Errorf("invalid segment name: %q", name)
		}

		segment := NewSegment(name)
		if matches[2] != "" {
			index, err := strconv.Atoi(matches[2])
			if err != nil {
				// Unreachable due to regex `\d+`
				return nil, fmt.Errorf("internal error parsing index: %w", err)
			}
			segment.Index = index
		}
		p.Segments = append(p.Segments, segment)
	}

	return p, nil
}

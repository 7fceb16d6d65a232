package document

import (
	"fmt"

	"github.com/vk/evalflow/internal/dotpath"
)

// Lookup walks p through d. The boolean is false when any segment is absent.
func Lookup(d Document, p *dotpath.Path) (any, bool) {
	var cur any = d
	for _, seg := range p.Segments {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg.Name]
		if !ok {
			return nil, false
		}
		if seg.HasIndex() {
			list, ok := cur.([]any)
			if !ok || seg.Index >= len(list) {
				return nil, false
			}
			cur = list[seg.Index]
		}
	}
	return cur, true
}

// Update replaces the value at p with fn(current, exists). Intermediate
// mappings are created as needed; indexed segments must address an existing
// list element. d is modified in place; callers clone first.
func Update(d Document, p *dotpath.Path, fn func(cur any, exists bool) any) error {
	if len(p.Segments) == 0 {
		return fmt.Errorf("empty path")
	}

	cur := d
	for i, seg := range p.Segments {
		last := i == len(p.Segments)-1

		if !seg.HasIndex() {
			if last {
				old, exists := cur[seg.Name]
				cur[seg.Name] = fn(old, exists)
				return nil
			}
			next, exists := cur[seg.Name]
			switch n := next.(type) {
			case map[string]any:
				cur = n
			default:
				if exists && next != nil {
					return fmt.Errorf("%s is not a mapping", prefix(p, i))
				}
				m := map[string]any{}
				cur[seg.Name] = m
				cur = m
			}
			continue
		}

		list, ok := cur[seg.Name].([]any)
		if !ok {
			return fmt.Errorf("%s is not a list", seg.Name)
		}
		if seg.Index >= len(list) {
			return fmt.Errorf("index %d out of range for %s (length %d)", seg.Index, prefix(p, i), len(list))
		}
		if last {
			list[seg.Index] = fn(list[seg.Index], true)
			return nil
		}
		m, ok := list[seg.Index].(map[string]any)
		if !ok {
			return fmt.Errorf("%s is not a mapping", prefix(p, i))
		}
		cur = m
	}
	return nil
}

func prefix(p *dotpath.Path, upto int) string {
	return (&dotpath.Path{Segments: p.Segments[:upto+1]}).String()
}

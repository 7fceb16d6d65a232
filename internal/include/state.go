package include

import (
	"github.com/vk/evalflow/internal/document"
)

// DiscoveredHook is an after_load entry together with the file declaring it.
type DiscoveredHook struct {
	Name     string
	Args     map[string]any
	File     string
	Declared document.Document
}

// LoadState tracks one expansion. It replaces any notion of a global
// "currently loading" job: everything the loader needs is passed down
// explicitly.
type LoadState struct {
	visiting []string
	done     map[string]bool

	// Files lists every file that contributed to the job, in load order.
	Files []string
	// Hooks lists the discovered post-load hooks, in load order.
	Hooks []DiscoveredHook
}

// NewLoadState creates an empty LoadState.
func NewLoadState() *LoadState {
	return &LoadState{done: map[string]bool{}}
}

func (s *LoadState) indexOf(path string) int {
	for i, p := range s.visiting {
		if p == path {
			return i
		}
	}
	return -1
}

func (s *LoadState) push(path string) { s.visiting = append(s.visiting, path) }

func (s *LoadState) pop() { s.visiting = s.visiting[:len(s.visiting)-1] }

func (s *LoadState) finish(path string) {
	s.done[path] = true
	s.Files = append(s.Files, path)
}

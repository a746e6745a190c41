package composing

import "strings"

// CompositionStep is one link in the chain of documents being composed,
// from the root template down to the fragment currently fetched
type CompositionStep struct {
	path   string
	parent *CompositionStep
	depth  int
}

// RootStep starts a chain at the template fetched from path
func RootStep(path string) CompositionStep {
	return CompositionStep{path: path}
}

// ChildWith returns the step for a fragment at path included by s
func (s CompositionStep) ChildWith(path string) CompositionStep {
	parent := s
	return CompositionStep{path: path, parent: &parent, depth: s.depth + 1}
}

func (s CompositionStep) Path() string {
	return s.path
}

// Parent returns the including step, false for the root
func (s CompositionStep) Parent() (CompositionStep, bool) {
	if s.parent == nil {
		return CompositionStep{}, false
	}
	return *s.parent, true
}

// Depth is 0 for the root template
func (s CompositionStep) Depth() int {
	return s.depth
}

// IsCycle reports whether the path of s already appears among its ancestors
func (s CompositionStep) IsCycle() bool {
	for ancestor := s.parent; ancestor != nil; ancestor = ancestor.parent {
		if ancestor.path == s.path {
			return true
		}
	}
	return false
}

func (s CompositionStep) String() string {
	paths := make([]string, s.depth+1)
	for step, i := &s, s.depth; step != nil; step, i = step.parent, i-1 {
		paths[i] = step.path
	}
	return strings.Join(paths, " -> ")
}

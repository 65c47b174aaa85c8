package label

import "github.com/Spiderbuttons/autosort/container"

// Label is an annotation attached to a container declaring which category
// tag it accepts. An empty tag is the catch-all marker: the container
// accepts any category as a last resort.
type Label struct {
	Tag string `json:"tag" msgpack:"tag"`
}

// CatchAll returns the catch-all label.
func CatchAll() Label { return Label{} }

// For returns a label accepting the given category tag.
func For(tag string) Label { return Label{Tag: tag} }

// IsCatchAll reports whether the label accepts any category.
func (l Label) IsCatchAll() bool { return l.Tag == "" }

// Binding pairs a container with its label as discovered at a site.
// A nil Label means the container carries no label and is not a routing
// candidate.
type Binding struct {
	Container container.Container
	Label     *Label
}

package models

// ModelInstance is an element of the architecture or code model. It is owned by the
// model side of the pipeline and treated as read-only here.
type ModelInstance struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
}

// Package opt provides Field, a tri-state optional value.
//
// A Field is in exactly one of three states:
//
//   - unset: the field was never mentioned. It always yields to defaults and
//     is never serialized.
//   - null: the field was explicitly set to null. It is a real value for
//     merging purposes and serializes as null.
//   - value: the field holds a value of type T.
//
// Struct fields of type Field should be tagged `json:"name,omitzero"` and
// `yaml:"name,omitempty"`; both encoders consult IsZero, which reports true
// only for the unset state.
package opt

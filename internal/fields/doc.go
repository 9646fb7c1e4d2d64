// Package fields converts definition units into JSON manifests.
//
// A definition unit is a source file (by default fields.js) exporting a function.
// The function is invoked with an empty context and returns a sequence of field
// entries, possibly nested to any depth. The transformer flattens that sequence,
// serializes every entry and writes the result as an indented JSON document next
// to the source (or at the legacy location, the scan root).
//
// A transformation moves through Loading, Invoking and Serializing to either
// Written or Failed. Failures are reported and never retried.
package fields

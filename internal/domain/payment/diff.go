package payment

// Patch is the update payload sent to the remote service: a wire-named field
// map holding every known field, with edited values where they differ from
// the original. The identifier is never part of the payload; it addresses
// the update operation out of band.
type Patch map[string]any

// Diff builds the patch for an edit by overlaying the edited form onto a
// copy of the original record and dropping the identifier. Fields outside
// the form's field set are carried through unchanged, so even an edit that
// changes nothing yields the full record minus the identifier. Comparison is
// strict per-field value equality; records are flat, so no deeper diffing
// is needed.
func Diff(original Payment, edited EditForm) Patch {
	patch := Patch(original.Fields())
	for field, value := range edited.Fields() {
		if patch[field] != value {
			patch[field] = value
		}
	}
	delete(patch, FieldID)
	return patch
}

package domain

// OwnerKind tags which business-record collection owns a document tree root.
// Resolution probes candidate collections in priority order and falls back to
// OwnerKindFolder when none match, so the fallback is an explicit value rather
// than an error path.
type OwnerKind string

const (
	OwnerKindRenewal   OwnerKind = "renewal"
	OwnerKindVariation OwnerKind = "variation"
	OwnerKindFolder    OwnerKind = "folder"
)

package cli

// Default values for CLI flags and output.
const (
	// MaxDescriptionLength is the maximum length of a genome description in tables.
	MaxDescriptionLength = 50
	// DefaultSearchLimit caps the rows printed by search (0 = unlimited).
	DefaultSearchLimit = 0
)

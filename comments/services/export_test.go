package services

// Exported aliases for the external services_test package.
const (
	DefaultCommentLimit = defaultCommentLimit
	MaxFlatLimit        = maxFlatLimit
)

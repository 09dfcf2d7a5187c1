package store

// Kind identifies which generation a cached record holds.
type Kind string

const (
	KindSummary Kind = "summary"
	KindLogic   Kind = "logic"
	KindPersona Kind = "persona"
)

// Key is the composite cache key for a generated text. A repeat write
// with the same key overwrites the previous record.
type Key struct {
	PostID string
	Kind   Kind
	Locale string
}

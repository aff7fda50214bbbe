package store

// Domain models mirroring the SQL tables in schema.go. Lightweight data
// transfer structs, not an ORM layer.

type CodeChunkRow struct {
	Identity        string
	Path            string
	QualifiedName   string
	Language        string
	Kind            string
	Visibility      string
	Signature       string
	SignatureHash   string
	DocComment      string
	ContentHash     string
	LineStart       int
	LineEnd         int
	RevisionAdded   string
	RevisionRemoved string // empty when still present
	UpdatedRevision string
	Embedding       []float32 // nil until embedded
}

type DocChunkRow struct {
	Identity        string
	Path            string
	HeadingPath     string // heading_path joined with " > "
	Level           int
	Content         string
	ContentHash     string
	LineStart       int
	LineEnd         int
	RevisionAdded   string
	RevisionRemoved string
	UpdatedRevision string
	Embedding       []float32
}

type EventStatus string

const (
	EventPending  EventStatus = "pending"
	EventAccepted EventStatus = "accepted"
	EventFixed    EventStatus = "fixed"
	EventIgnored  EventStatus = "ignored"
)

type EventRow struct {
	ID              string
	Kind            string
	Severity        string
	Confidence      float64
	Description     string
	Evidence        string
	RelatedCode     []string
	RelatedDoc      []string
	SuggestedFix    string
	Status          EventStatus
	IgnoreReason    string
	IgnorePermanent bool
	CreatedRevision string
	UpdatedRevision string
}

type ScanRow struct {
	ID         string
	FromRev    string
	ToRev      string
	Mode       string
	StartedAt  string
	FinishedAt string // empty while in-flight
	EventCount int
}

package vectorstore

// Metadata keys stored with every entry.
const (
	MetaUserName  = "user_name"
	MetaUserID    = "user_id"
	MetaTimestamp = "timestamp"
	MetaDomain    = "domain"
)

// DomainMessage tags entries derived from member messages.
const DomainMessage = "message"

// Entry is an indexed message: its text, embedding and metadata copy.
type Entry struct {
	// ID is the source message identifier
	ID string

	// Text is the message text
	Text string

	// Embedding is the L2-normalized vector for Text
	Embedding []float32

	// Metadata holds user_name, user_id, timestamp (raw) and domain
	Metadata map[string]string
}

// Hit is a single query result.
type Hit struct {
	// ID is the source message identifier
	ID string

	// Text is the message text
	Text string

	// Metadata is the metadata stored with the entry
	Metadata map[string]string

	// Distance is the cosine distance to the query vector (lower = more similar)
	Distance float32

	// Embedding is the stored vector, used for centroid expansion
	Embedding []float32
}

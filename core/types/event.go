package types

// Event is the flattened form of a contract event as stored in the journal.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

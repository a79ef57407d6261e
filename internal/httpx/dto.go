package httpx

// SubmissionDTO is one item of the submit request body.
type SubmissionDTO struct {
	UniqueID string `json:"unique_id"`
	Payload  string `json:"payload"`
}

// SubmitResponse acknowledges durable intake only: stage outcomes are never
// reported synchronously.
type SubmitResponse struct {
	Accepted int `json:"accepted"`
}

// CustomerResponse is the query-surface view of a record.
type CustomerResponse struct {
	UniqueID string `json:"unique_id"`
	Payload  string `json:"payload"`
}

// AuditEntryResponse is one ledger row of a record's audit trail.
type AuditEntryResponse struct {
	Stage        string `json:"stage"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	Timestamp    string `json:"timestamp"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

package dtos

// APIError standardizes JSON error responses.
type APIError struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// DeleteAccountRequest is the body of the self-service account deletion
// endpoint. Confirmation must match the server-side phrase exactly.
type DeleteAccountRequest struct {
	ConfirmationString string `json:"confirmationString" validate:"required"`
	Reason             string `json:"reason" validate:"max=512"`
}

// DeleteAccountDetails reports what the deletion cascade touched.
type DeleteAccountDetails struct {
	TablesProcessed   []string `json:"tablesProcessed"`
	RecordsDeleted    int      `json:"recordsDeleted"`
	RecordsAnonymized int      `json:"recordsAnonymized"`
	FilesDeleted      int      `json:"filesDeleted"`
	DurationMs        int64    `json:"duration"`
}

type DeleteAccountResponse struct {
	Success bool                 `json:"success"`
	Message string               `json:"message"`
	Details DeleteAccountDetails `json:"details"`
}

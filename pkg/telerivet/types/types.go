package types

// SendMessageRequest is the body of POST /v1/projects/{project}/messages/send
type SendMessageRequest struct {
	PhoneID  string `json:"phone_id,omitempty"`
	ToNumber string `json:"to_number"`
	Content  string `json:"content"`
}

// Message is the subset of the Telerivet message object the gateway reads
type Message struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	PhoneID string `json:"phone_id"`
}

// ErrorResponse is returned by Telerivet on non-2xx responses
type ErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

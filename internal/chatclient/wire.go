package chatclient

import (
	"encoding/json"
	"errors"
)

// PlaceholderReply is shown when a successful response carries no reply text.
const PlaceholderReply = "Sorry, I didn't get a response. Please try again."

// chatRequest is the JSON body of POST /chat.
type chatRequest struct {
	Message   string `json:"message"`
	UserID    string `json:"userId,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

// chatResponse covers every reply shape the chatbot has used.
// Pointers distinguish absent fields from empty ones.
type chatResponse struct {
	Success      *bool   `json:"success"`
	Response     *string `json:"response"`
	Message      *string `json:"message"`
	ErrorMessage *string `json:"error_message"`
	Error        *string `json:"error"`
}

var errNotObject = errors.New("response body is not a JSON object")

// decodeChatResponse parses a 2xx body. Non-object JSON and wrongly typed
// fields are malformed.
func decodeChatResponse(body []byte) (*chatResponse, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errNotObject
	}
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// succeeded treats an absent success field as success.
func (r *chatResponse) succeeded() bool {
	return r.Success == nil || *r.Success
}

// replyText resolves the reply: response, then message, then the placeholder.
func (r *chatResponse) replyText() string {
	if r.Response != nil && *r.Response != "" {
		return *r.Response
	}
	if r.Message != nil && *r.Message != "" {
		return *r.Message
	}
	return PlaceholderReply
}

// errorText resolves the rejection reason: error_message, then error.
func (r *chatResponse) errorText() string {
	if r.ErrorMessage != nil && *r.ErrorMessage != "" {
		return *r.ErrorMessage
	}
	if r.Error != nil && *r.Error != "" {
		return *r.Error
	}
	return ""
}

package types

type SuccessEnvelope struct {
	Data any `json:"data"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// Page wraps list responses with the cursor for the next page, when any.
type Page struct {
	Items      any     `json:"items"`
	NextCursor *string `json:"next_cursor,omitempty"`
}

package api

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message" doc:"Human-readable result"`
}

// MessageOutput wraps a message response for Huma.
type MessageOutput struct {
	Body MessageResponse
}

// BookIDInput addresses a single book.
type BookIDInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// UserIDInput addresses a single member.
type UserIDInput struct {
	ID string `path:"id" doc:"User ID"`
}

// PageInput carries 1-based page parameters.
type PageInput struct {
	Page  int `query:"page" minimum:"0" doc:"Page number, starting at 1"`
	Limit int `query:"limit" minimum:"0" maximum:"100" doc:"Items per page (default 20)"`
}

func message(msg string) *MessageOutput {
	return &MessageOutput{Body: MessageResponse{Message: msg}}
}

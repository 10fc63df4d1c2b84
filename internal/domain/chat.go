package domain

// ChatPart is a single text segment of a chat API turn.
type ChatPart struct {
	Text string `json:"text"`
}

// ChatTurn is the provider-facing turn shape: a role plus ordered parts.
type ChatTurn struct {
	Role  string     `json:"role"`
	Parts []ChatPart `json:"parts"`
}

// ChatRequest is everything an LLM integration needs for one reply.
type ChatRequest struct {
	SystemInstruction string
	History           []ChatTurn
	Message           string
}

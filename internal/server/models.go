package server

// MessageObject is one inbound counterparty message.
type MessageObject struct {
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// HistoryTurn is one prior message, forwarded verbatim to the dialogue
// service. The ledger never reads history.
type HistoryTurn struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// EngageRequest is the body of POST /scam-detect.
type EngageRequest struct {
	SessionID           string         `json:"sessionId"`
	Message             MessageObject  `json:"message"`
	ConversationHistory []HistoryTurn  `json:"conversationHistory"`
	Metadata            map[string]any `json:"metadata,omitempty"`
}

// IntelligenceView is the entity snapshot echoed back for UI display.
type IntelligenceView struct {
	UPI   []string `json:"upi"`
	Phone []string `json:"phone"`
	Bank  []string `json:"bank"`
	Links []string `json:"links"`
}

// EngageResponse is the body returned by POST /scam-detect.
type EngageResponse struct {
	Status       string           `json:"status"`
	Reply        string           `json:"reply"`
	Intelligence IntelligenceView `json:"intelligence"`
}

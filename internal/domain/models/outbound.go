package models

// OutboundMessageRequest represents a text message sent to a customer's phone.
type OutboundMessageRequest struct {
	To         string `json:"to" binding:"required"`
	Message    string `json:"message" binding:"required"`
	PreviewURL bool   `json:"preview_url"`
}

// ShareMessage is the per-customer month report ready to be sent or linked.
type ShareMessage struct {
	CustomerID string `json:"customerId"`
	Phone      string `json:"phone"`
	Text       string `json:"text"`
	Link       string `json:"link"`
}

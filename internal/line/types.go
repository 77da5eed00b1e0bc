package line

// TextMessage is a LINE text message object
type TextMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewTextMessage builds a text message object
func NewTextMessage(text string) TextMessage {
	return TextMessage{Type: "text", Text: text}
}

// pushRequest is the body of the Messaging API push endpoint
type pushRequest struct {
	To       string        `json:"to"`
	Messages []TextMessage `json:"messages"`
}

// broadcastRequest is the body of the Messaging API broadcast endpoint
type broadcastRequest struct {
	Messages []TextMessage `json:"messages"`
}

// WebhookRequest is the envelope LINE delivers to the webhook endpoint
type WebhookRequest struct {
	Destination string         `json:"destination"`
	Events      []WebhookEvent `json:"events"`
}

// WebhookEvent is a single event within a webhook delivery
type WebhookEvent struct {
	Type       string `json:"type"`
	Timestamp  int64  `json:"timestamp"`
	ReplyToken string `json:"replyToken,omitempty"`
	Source     struct {
		Type   string `json:"type"`
		UserID string `json:"userId"`
	} `json:"source"`
	Message struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"message"`
}

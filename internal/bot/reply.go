package bot

// ReplyType tells the front end how to deliver a reply.
type ReplyType string

const (
	ReplyText     ReplyType = "text"
	ReplyInfo     ReplyType = "info"
	ReplyError    ReplyType = "error"
	// ReplyImageURL is never emitted here: image-create queries get no reply.
	ReplyImageURL ReplyType = "image_url"
)

// Reply is the outcome of one query.
type Reply struct {
	Type    ReplyType `json:"type"`
	Content string    `json:"content"`
}

// QueryKind is the kind of request the front end forwarded.
type QueryKind int

const (
	QueryText QueryKind = iota
	QueryImageCreate
)

// Query is one incoming message.
type Query struct {
	Kind      QueryKind
	SessionID string
	Text      string
}

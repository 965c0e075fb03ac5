package domain

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// AttachmentKind tags an Attachment.
type AttachmentKind string

const (
	AttachmentBook  AttachmentKind = "book"
	AttachmentCart  AttachmentKind = "cart"
	AttachmentOrder AttachmentKind = "order"
)

// BookCard is the structured book summary rendered by clients.
type BookCard struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Price    Money  `json:"price"`
	Stock    int    `json:"stock"`
	CoverURL string `json:"cover_url,omitempty"`
}

// CardFor summarises a book.
func CardFor(b Book) BookCard {
	return BookCard{ID: b.ID, Title: b.Title, Author: b.Author, Price: b.Price, Stock: b.Stock, CoverURL: b.CoverURL}
}

// Attachment is structured data sent along with a reply.
type Attachment struct {
	Kind  AttachmentKind `json:"kind"`
	Book  *BookCard      `json:"book,omitempty"`
	Cart  *Cart          `json:"cart,omitempty"`
	Order *Order         `json:"order,omitempty"`
}

// Message is a single entry of the conversation.
type Message struct {
	ID          string       `json:"id"`
	Role        Role         `json:"role"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Intent      Intent       `json:"intent,omitempty"`
	Turn        uint64       `json:"turn"`
	CreatedAt   time.Time    `json:"created_at"`
}

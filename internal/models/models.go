package models

import "time"

type Document struct {
	DocumentID string    `json:"document_id"`
	UserID     string    `json:"user_id"`
	Filename   string    `json:"filename"`
	CreatedAt  time.Time `json:"created_at"`
}

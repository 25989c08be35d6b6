package models

import "time"

// AdminNotification fans out one row per active admin for every audited
// administrative mutation.
type AdminNotification struct {
	ID        string     `db:"id" json:"id"`
	AdminID   string     `db:"admin_id" json:"admin_id"`
	Title     string     `db:"title" json:"title"`
	Body      string     `db:"body" json:"body"`
	Resource  string     `db:"resource" json:"resource"`
	Read      bool       `db:"read" json:"read"`
	ReadAt    *time.Time `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

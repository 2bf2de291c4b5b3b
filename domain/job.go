package domain

import "time"

// JobDescription is a named role description that résumés are evaluated against.
type JobDescription struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255;uniqueIndex;not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime;<-:create" json:"created_at"`
}

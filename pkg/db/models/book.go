package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/pageturnhq/bookshelf-backend/pkg/enums"
)

// Book is the catalog record: one entry per title, one lending status.
// Physical copies are not tracked individually.
type Book struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Title       string           `gorm:"column:title;size:200;not null" json:"title"`
	Author      string           `gorm:"column:author;size:100;not null" json:"author"`
	Description *string          `gorm:"column:description;size:500" json:"description,omitempty"`
	PublishYear int              `gorm:"column:publish_year;not null" json:"publish_year"`
	ISBN        string           `gorm:"column:isbn;size:20;not null;uniqueIndex:idx_books_isbn" json:"isbn"`
	Price       *float64         `gorm:"column:price" json:"price,omitempty"`
	CoverURL    *string          `gorm:"column:cover_url" json:"cover_url,omitempty"`
	Status      enums.BookStatus `gorm:"column:status;not null;default:available" json:"status"`
	CreatedAt   time.Time        `gorm:"column:created_at" json:"created_at"`
	UpdatedAt   time.Time        `gorm:"column:updated_at" json:"updated_at"`
}

// TableName pins the table used by the goose migrations.
func (Book) TableName() string {
	return "books"
}

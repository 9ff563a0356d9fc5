package db

import (
	"collaborative-review-editor/internal/change"
	"collaborative-review-editor/internal/content"
	"log"
)

// Migrate runs database migrations
func Migrate() {
	err := AppDb.AutoMigrate(
		&change.Change{},
		&change.ChangeComment{},
		&content.DocumentContent{},
	)

	if err != nil {
		log.Fatal(err)
	}

	log.Println("Database schema migrated successfully")
}

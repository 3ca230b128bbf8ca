package datamodel

import (
	attachmentDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/attachment"
	categoryDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/category"
	commentDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/comment"
	ticketDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/ticket"
	userDatamodel "github.com/frahmantamala/support-ticketing/internal/core/datamodel/user"
	"gorm.io/gorm"
)

// AutoMigrate creates the schema from the models. Used for sqlite development
// databases and tests; postgres deployments run the goose migrations instead.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&userDatamodel.User{},
		&categoryDatamodel.Category{},
		&ticketDatamodel.Ticket{},
		&commentDatamodel.Comment{},
		&attachmentDatamodel.File{},
	)
}

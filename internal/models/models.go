package models

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// SetupModels configures GORM models and runs migrations
func SetupModels(db *gorm.DB) error {
	// Apply all migrations
	err := db.AutoMigrate(
		&Deal{},
		&DealParty{},
		&DealStage{},
		&DealTask{},
		&TaskDependency{},
		&DealCP{},
		&DealRequisition{},
		&Drawdown{},
		&DrawdownDocument{},
		&DealMessageThread{},
		&ThreadParticipant{},
		&DealMessage{},
		&DealDocumentLink{},
		&DealProviderSelection{},
		&ProviderDeliverable{},
		&AuditEvent{},
	)

	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}

	return nil
}

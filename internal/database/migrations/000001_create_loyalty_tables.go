package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/storeline/backend/internal/models"
	"gorm.io/gorm"
)

func init() {
	migrationsList = append(migrationsList, &gormigrate.Migration{
		ID: "000001_create_loyalty_tables",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(
				&models.LoyaltyProgram{},
				&models.LoyaltyTier{},
				&models.LoyaltyMember{},
				&models.LoyaltyReward{},
				&models.LoyaltyTransaction{},
			)
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(
				&models.LoyaltyTransaction{},
				&models.LoyaltyReward{},
				&models.LoyaltyMember{},
				&models.LoyaltyTier{},
				&models.LoyaltyProgram{},
			)
		},
	})
}

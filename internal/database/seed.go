package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/societyhub/society_backend/internal/config"
	"github.com/societyhub/society_backend/internal/logging"
	"github.com/societyhub/society_backend/internal/models"
)

// SeedSuperAdmin makes the configured identity a SUPER_ADMIN, creating the
// person if it has never signed in. It is a no-op without an external id.
func SeedSuperAdmin(ctx context.Context, db *gorm.DB, cfg *config.Config, log logging.Logger) error {
	if cfg.SuperAdminExternalID == "" {
		log.Warn(ctx, "SUPER_ADMIN_EXTERNAL_ID not set; skipping super admin seed")
		return nil
	}
	admin := models.Person{
		ExternalID: cfg.SuperAdminExternalID,
		Name:       cfg.SuperAdminName,
		Email:      cfg.SuperAdminEmail,
		Role:       models.RoleSuperAdmin,
	}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.Assignments(map[string]any{"role": models.RoleSuperAdmin}),
	}).Create(&admin).Error
	if err != nil {
		return fmt.Errorf("seed super admin: %w", err)
	}
	log.Info(ctx, "super admin ensured", "external_id", cfg.SuperAdminExternalID)
	return nil
}

type demoBuilding struct {
	Name   string
	Floors int
	Flats  []string
}

// SeedDemoSociety creates a small society for local development. Existing
// rows are left alone so the seed can be rerun.
func SeedDemoSociety(ctx context.Context, db *gorm.DB, log logging.Logger) error {
	db = db.WithContext(ctx)
	society := models.Society{Name: "Green Meadows", Address: "12 Lake Road", RegistrationNumber: "GM-2024-001"}
	if err := db.Where("name = ?", society.Name).First(&society).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := db.Create(&society).Error; err != nil {
			return err
		}
	}

	buildings := []demoBuilding{
		{Name: "A", Floors: 4, Flats: []string{"A101", "A102", "A201", "A202"}},
		{Name: "B", Floors: 4, Flats: []string{"B101", "B102"}},
	}
	for _, d := range buildings {
		b := models.Building{SocietyID: society.ID, Name: d.Name, NumberOfFloors: d.Floors}
		if err := db.Where("society_id = ? AND name = ?", society.ID, d.Name).FirstOrCreate(&b).Error; err != nil {
			return err
		}
		for _, number := range d.Flats {
			f := models.Flat{BuildingID: b.ID, FlatNumber: number, Bedrooms: 2, AreaSqFt: 950}
			if err := db.Where("building_id = ? AND flat_number = ?", b.ID, number).FirstOrCreate(&f).Error; err != nil {
				return err
			}
		}
	}
	log.Info(ctx, "seeded demo society", "society_id", society.ID, "name", society.Name)
	return nil
}

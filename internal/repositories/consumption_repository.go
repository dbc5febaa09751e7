package repositories

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bakehouse/server/internal/models"
)

// consumptionRepository хранилище агрегатов расхода ингредиентов на PostgreSQL
type consumptionRepository struct {
	db *gorm.DB
}

// Upsert пишет агрегат по ingredient_id: одна строка на ингредиент
func (r *consumptionRepository) Upsert(record *models.IngredientConsumption) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "ingredient_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"ingredient_name", "total_consumed", "unit",
			"items_completed", "window_start", "window_end", "updated_at",
		}),
	}).Create(record).Error
}

func (r *consumptionRepository) List() ([]models.IngredientConsumption, error) {
	var records []models.IngredientConsumption
	err := r.db.Order("total_consumed DESC").Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// PruneOrphans вычищает агрегаты ингредиентов, которых больше нет на складе
func (r *consumptionRepository) PruneOrphans() (int64, error) {
	result := r.db.Exec(`
		DELETE FROM ingredient_consumptions
		WHERE ingredient_id NOT IN (
			SELECT id FROM inventory_items WHERE deleted_at IS NULL
		)`)
	return result.RowsAffected, result.Error
}

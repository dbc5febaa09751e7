package repositories

import (
	"errors"

	"gorm.io/gorm"

	"bakehouse/server/internal/models"
)

// inventoryRepository хранилище остатков склада на PostgreSQL
type inventoryRepository struct {
	db *gorm.DB
}

func (r *inventoryRepository) GetItem(id string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := r.db.First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *inventoryRepository) ListItems() ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	if err := r.db.Order("name ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// DeductStock списывает количество одним UPDATE с ограничением нулем —
// конкурентные списания не уводят остаток в минус
func (r *inventoryRepository) DeductStock(id string, amount float64) error {
	return r.db.Model(&models.InventoryItem{}).
		Where("id = ?", id).
		Update("current_stock", gorm.Expr("GREATEST(current_stock - ?, 0)", amount)).
		Error
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InventoryItem представляет позицию склада с текущим остатком
// Остаток не может стать отрицательным: списание ограничено нулем
type InventoryItem struct {
	ID           string         `json:"id" gorm:"type:uuid;primaryKey"`
	Name         string         `json:"name" gorm:"type:varchar(255);not null"`
	CurrentStock float64        `json:"current_stock" gorm:"type:decimal(12,2);not null;default:0"`
	Unit         string         `json:"unit" gorm:"type:varchar(20);not null;default:'g'"`
	MinStock     float64        `json:"min_stock" gorm:"type:decimal(12,2);default:0"` // Порог для предупреждений о закупке
	CreatedAt    time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt    gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName указывает имя таблицы
func (InventoryItem) TableName() string {
	return "inventory_items"
}

// BeforeCreate генерирует UUID
func (i *InventoryItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	return nil
}

// IngredientConsumption представляет агрегат расхода ингредиента
// Строки пересчитываются фоновой задачей по завершенным позициям производства;
// строки для удаленных позиций склада вычищаются при пересчете
type IngredientConsumption struct {
	ID             string    `json:"id" gorm:"type:uuid;primaryKey"`
	IngredientID   string    `json:"ingredient_id" gorm:"type:uuid;not null;uniqueIndex"`
	IngredientName string    `json:"ingredient_name" gorm:"type:varchar(255)"` // Денормализованный снимок названия
	TotalConsumed  float64   `json:"total_consumed" gorm:"type:decimal(14,2);not null;default:0"`
	Unit           string    `json:"unit" gorm:"type:varchar(20)"`
	ItemsCompleted int       `json:"items_completed" gorm:"default:0"` // Сколько позиций производства учтено
	WindowStart    time.Time `json:"window_start"`
	WindowEnd      time.Time `json:"window_end"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName указывает имя таблицы
func (IngredientConsumption) TableName() string {
	return "ingredient_consumptions"
}

// BeforeCreate генерирует UUID
func (ic *IngredientConsumption) BeforeCreate(tx *gorm.DB) error {
	if ic.ID == "" {
		ic.ID = uuid.New().String()
	}
	return nil
}

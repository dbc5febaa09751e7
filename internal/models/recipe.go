package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Recipe представляет рецепт/технологическую карту изделия
// Для движка производства рецепты доступны только на чтение
type Recipe struct {
	ID          string         `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string         `json:"name" gorm:"type:varchar(255);not null"`
	Description string         `json:"description" gorm:"type:text"`
	YieldQty    float64        `json:"yield_qty" gorm:"type:decimal(10,2);default:1"` // Выход рецепта
	Unit        string         `json:"unit" gorm:"type:varchar(20);default:'pcs'"`    // Единица измерения выхода
	IsActive    bool           `json:"is_active" gorm:"default:true"`
	CreatedAt   time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt   gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	// Relations
	Ingredients []RecipeIngredient `json:"ingredients" gorm:"foreignKey:RecipeID"`
}

// TableName указывает имя таблицы
func (Recipe) TableName() string {
	return "recipes"
}

// BeforeCreate генерирует UUID
func (r *Recipe) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}

// RecipeIngredient представляет ингредиент рецепта (BOM)
type RecipeIngredient struct {
	ID           string    `json:"id" gorm:"type:uuid;primaryKey"`
	RecipeID     string    `json:"recipe_id" gorm:"type:uuid;not null;index"`
	IngredientID string    `json:"ingredient_id" gorm:"type:uuid;not null;index"` // Позиция склада
	QtyPerUnit   float64   `json:"qty_per_unit" gorm:"type:decimal(10,4);not null"` // Количество на 1 единицу выхода
	Unit         string    `json:"unit" gorm:"type:varchar(20);not null;default:'g'"`
	Position     int       `json:"position" gorm:"default:0"` // Порядок в рецепте
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName указывает имя таблицы
func (RecipeIngredient) TableName() string {
	return "recipe_ingredients"
}

// BeforeCreate генерирует UUID
func (ri *RecipeIngredient) BeforeCreate(tx *gorm.DB) error {
	if ri.ID == "" {
		ri.ID = uuid.New().String()
	}
	return nil
}

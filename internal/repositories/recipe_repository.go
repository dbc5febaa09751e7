package repositories

import (
	"errors"

	"gorm.io/gorm"

	"bakehouse/server/internal/models"
)

// recipeRepository доступ к рецептам на PostgreSQL (только чтение)
type recipeRepository struct {
	db *gorm.DB
}

func (r *recipeRepository) GetRecipe(id string) (*models.Recipe, error) {
	var recipe models.Recipe
	err := r.db.Preload("Ingredients").First(&recipe, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &recipe, nil
}

func (r *recipeRepository) GetIngredients(recipeID string) ([]models.RecipeIngredient, error) {
	var ingredients []models.RecipeIngredient
	err := r.db.Where("recipe_id = ?", recipeID).
		Order("position ASC").
		Find(&ingredients).Error
	if err != nil {
		return nil, err
	}
	return ingredients, nil
}

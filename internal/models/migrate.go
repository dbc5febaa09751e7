package models

import (
	"log"

	"gorm.io/gorm"
)

// AutoMigrate выполняет миграцию всех таблиц
// Ошибка миграции отдельной таблицы не останавливает остальные —
// сервис стартует с тем, что удалось мигрировать
func AutoMigrate(db *gorm.DB) error {
	log.Println("🔄 Запуск миграции базы данных...")

	if err := db.AutoMigrate(&InventoryItem{}); err != nil {
		log.Printf("⚠️ Ошибка миграции inventory_items: %v", err)
	}

	if err := db.AutoMigrate(&Recipe{}); err != nil {
		log.Printf("⚠️ Ошибка миграции recipes: %v", err)
	}

	if err := db.AutoMigrate(&RecipeIngredient{}); err != nil {
		log.Printf("⚠️ Ошибка миграции recipe_ingredients: %v", err)
	}

	if err := db.AutoMigrate(&Product{}); err != nil {
		log.Printf("⚠️ Ошибка миграции products: %v", err)
	}

	if err := db.AutoMigrate(&InternalOrder{}); err != nil {
		log.Printf("⚠️ Ошибка миграции internal_orders: %v", err)
	}

	if err := db.AutoMigrate(&InternalOrderItem{}); err != nil {
		log.Printf("⚠️ Ошибка миграции internal_order_items: %v", err)
	}

	if err := db.AutoMigrate(&CustomerOrder{}); err != nil {
		log.Printf("⚠️ Ошибка миграции customer_orders: %v", err)
	}

	if err := db.AutoMigrate(&CustomerOrderItem{}); err != nil {
		log.Printf("⚠️ Ошибка миграции customer_order_items: %v", err)
	}

	if err := db.AutoMigrate(&ProductionSchedule{}); err != nil {
		log.Printf("⚠️ Ошибка миграции production_schedules: %v", err)
	}

	if err := db.AutoMigrate(&ProductionItem{}); err != nil {
		log.Printf("⚠️ Ошибка миграции production_items: %v", err)
	}

	if err := db.AutoMigrate(&IngredientConsumption{}); err != nil {
		log.Printf("⚠️ Ошибка миграции ingredient_consumptions: %v", err)
	}

	log.Println("✅ Миграция базы данных завершена")
	return nil
}

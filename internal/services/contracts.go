package services

import (
	"time"

	"bakehouse/server/internal/models"
)

// ScheduleRepository хранилище расписаний производства и их позиций
type ScheduleRepository interface {
	// CreateSchedule сохраняет расписание вместе с позициями
	CreateSchedule(schedule *models.ProductionSchedule, items []models.ProductionItem) error

	// GetSchedule возвращает расписание с позициями, nil если не найдено
	GetSchedule(id string) (*models.ProductionSchedule, error)

	// ListSchedules возвращает расписания в диапазоне дат (границы опциональны)
	ListSchedules(from, to *time.Time) ([]models.ProductionSchedule, error)

	// SaveSchedule сохраняет изменения расписания
	SaveSchedule(schedule *models.ProductionSchedule) error

	// DeleteSchedule удаляет расписание вместе с позициями
	DeleteSchedule(id string) error

	// GetItem возвращает позицию производства, nil если не найдена
	GetItem(id string) (*models.ProductionItem, error)

	// GetItems возвращает все позиции расписания
	GetItems(scheduleID string) ([]models.ProductionItem, error)

	// SaveItem сохраняет изменения позиции
	SaveItem(item *models.ProductionItem) error

	// ReplaceItems заменяет все позиции расписания на новые
	ReplaceItems(scheduleID string, items []models.ProductionItem) error

	// ListCompletedItems возвращает позиции, завершенные после указанного времени
	ListCompletedItems(since time.Time) ([]models.ProductionItem, error)
}

// RecipeRepository доступ к рецептам (только чтение)
type RecipeRepository interface {
	// GetRecipe возвращает рецепт, nil если не найден
	GetRecipe(id string) (*models.Recipe, error)

	// GetIngredients возвращает ингредиенты рецепта
	// Пустой список для рецепта без ингредиентов или неизвестного рецепта
	GetIngredients(recipeID string) ([]models.RecipeIngredient, error)
}

// InventoryRepository хранилище остатков склада
type InventoryRepository interface {
	// GetItem возвращает позицию склада, nil если не найдена
	GetItem(id string) (*models.InventoryItem, error)

	// ListItems возвращает все позиции склада
	ListItems() ([]models.InventoryItem, error)

	// DeductStock атомарно списывает количество с остатка,
	// ограничивая результат нулем (остаток не уходит в минус)
	DeductStock(id string, amount float64) error
}

// OrderRepository доступ к внутренним и клиентским заказам
type OrderRepository interface {
	// OrderExists проверяет существование заказа указанного вида
	OrderExists(kind models.OrderKind, orderID string) (bool, error)

	// GetOrderLines возвращает позиции заказа в общем виде
	// (с рецептом товара, если он задан)
	GetOrderLines(kind models.OrderKind, orderID string) ([]models.OrderLine, error)

	// GetProductionItemsByOrder возвращает все позиции производства,
	// привязанные к заказу
	GetProductionItemsByOrder(kind models.OrderKind, orderID string) ([]models.ProductionItem, error)

	// SetOrderStatus обновляет статус заказа
	SetOrderStatus(kind models.OrderKind, orderID, status string, completedAt *time.Time) error
}

// ConsumptionRepository хранилище агрегатов расхода ингредиентов
type ConsumptionRepository interface {
	// Upsert создает или обновляет агрегат по ingredient_id
	Upsert(record *models.IngredientConsumption) error

	// List возвращает все агрегаты расхода
	List() ([]models.IngredientConsumption, error)

	// PruneOrphans удаляет агрегаты для несуществующих позиций склада,
	// возвращает количество удаленных строк
	PruneOrphans() (int64, error)
}

// Repositories набор хранилищ движка производства
type Repositories struct {
	Schedules   ScheduleRepository
	Recipes     RecipeRepository
	Inventory   InventoryRepository
	Orders      OrderRepository
	Consumption ConsumptionRepository
}

// UnitOfWork выполняет функцию в одной транзакции:
// все операции через переданный набор хранилищ фиксируются или откатываются вместе
type UnitOfWork interface {
	Do(fn func(r *Repositories) error) error
}

package repositories

import (
	"database/sql"

	"gorm.io/gorm"

	"bakehouse/server/internal/services"
)

// New собирает набор хранилищ поверх переданного подключения
// Вызывается и для основного подключения, и для транзакции внутри UnitOfWork
func New(db *gorm.DB) *services.Repositories {
	return &services.Repositories{
		Schedules:   &scheduleRepository{db: db},
		Recipes:     &recipeRepository{db: db},
		Inventory:   &inventoryRepository{db: db},
		Orders:      &orderRepository{db: db},
		Consumption: &consumptionRepository{db: db},
	}
}

// gormUnitOfWork выполняет функцию в транзакции SERIALIZABLE
// Конфликты сериализации пробрасываются вызывающему для повтора
type gormUnitOfWork struct {
	db *gorm.DB
}

// NewUnitOfWork создает транзакционную обертку над подключением
func NewUnitOfWork(db *gorm.DB) services.UnitOfWork {
	return &gormUnitOfWork{db: db}
}

// Do выполняет функцию в одной транзакции: все изменения через
// переданные хранилища фиксируются или откатываются вместе
func (u *gormUnitOfWork) Do(fn func(r *services.Repositories) error) error {
	return u.db.Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
}

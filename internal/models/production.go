package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Статусы позиции производства
const (
	StatusScheduled  = "scheduled"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Вид заказа, к которому привязана позиция производства
type OrderKind string

const (
	OrderKindNone     OrderKind = ""
	OrderKindInternal OrderKind = "internal"
	OrderKindCustomer OrderKind = "customer"
)

// OrderLink связь позиции производства с заказом (внутренним или клиентским)
// Kind == OrderKindNone означает отсутствие связи
type OrderLink struct {
	Kind    OrderKind
	OrderID string
}

// IsSet возвращает true, если связь с заказом установлена
func (l OrderLink) IsSet() bool {
	return l.Kind != OrderKindNone && l.OrderID != ""
}

// ProductionSchedule представляет план производства на день
type ProductionSchedule struct {
	ID             string         `json:"id" gorm:"type:uuid;primaryKey"`
	Date           time.Time      `json:"date" gorm:"type:date;not null;index"`
	TotalItems     int            `json:"total_items" gorm:"default:0"`
	CompletedItems int            `json:"completed_items" gorm:"default:0"`
	Notes          string         `json:"notes" gorm:"type:text"`
	CreatedBy      string         `json:"created_by" gorm:"type:varchar(255)"`
	CreatedAt      time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt      gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	// Relations
	Items []ProductionItem `json:"items" gorm:"foreignKey:ScheduleID"`
}

// TableName указывает имя таблицы
func (ProductionSchedule) TableName() string {
	return "production_schedules"
}

// BeforeCreate генерирует UUID
func (s *ProductionSchedule) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// ProductionItem представляет одну позицию плана производства
// Связь с заказом хранится как tagged union: order_kind + order_id,
// что исключает одновременную привязку к внутреннему и клиентскому заказу
type ProductionItem struct {
	ID            string         `json:"id" gorm:"type:uuid;primaryKey"`
	ScheduleID    string         `json:"schedule_id" gorm:"type:uuid;not null;index"`
	RecipeID      string         `json:"recipe_id" gorm:"type:uuid;not null;index"`
	RecipeName    string         `json:"recipe_name" gorm:"type:varchar(255)"` // Денормализованный снимок названия рецепта
	Quantity      int            `json:"quantity" gorm:"not null"`             // В единицах выхода рецепта
	Status        string         `json:"status" gorm:"type:varchar(20);not null;default:'scheduled';index"`
	ScheduledTime time.Time      `json:"scheduled_time"`
	StartTime     *time.Time     `json:"start_time"`
	CompletedTime *time.Time     `json:"completed_time"`
	AssignedTo    string         `json:"assigned_to" gorm:"type:varchar(255)"`
	Notes         string         `json:"notes" gorm:"type:text"`
	BatchNumber   string         `json:"batch_number" gorm:"type:varchar(100)"`
	QualityCheck  bool           `json:"quality_check" gorm:"default:false"`
	QualityNotes  string         `json:"quality_notes" gorm:"type:text"`
	OrderKind     OrderKind      `json:"order_kind" gorm:"type:varchar(20);default:'';index:idx_production_items_order"`
	OrderID       *string        `json:"order_id" gorm:"type:uuid;index:idx_production_items_order"`
	CreatedAt     time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt     gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName указывает имя таблицы
func (ProductionItem) TableName() string {
	return "production_items"
}

// BeforeCreate генерирует UUID
func (i *ProductionItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	return nil
}

// BeforeSave проверяет согласованность связи с заказом
func (i *ProductionItem) BeforeSave(tx *gorm.DB) error {
	switch i.OrderKind {
	case OrderKindNone:
		if i.OrderID != nil {
			return fmt.Errorf("order_id установлен без order_kind")
		}
	case OrderKindInternal, OrderKindCustomer:
		if i.OrderID == nil || *i.OrderID == "" {
			return fmt.Errorf("order_kind '%s' установлен без order_id", i.OrderKind)
		}
	default:
		return fmt.Errorf("неизвестный order_kind: %s", i.OrderKind)
	}
	return nil
}

// Link возвращает связь позиции с заказом как tagged union
func (i *ProductionItem) Link() OrderLink {
	if i.OrderID == nil {
		return OrderLink{}
	}
	return OrderLink{Kind: i.OrderKind, OrderID: *i.OrderID}
}

// SetLink устанавливает связь позиции с заказом
func (i *ProductionItem) SetLink(link OrderLink) {
	if !link.IsSet() {
		i.OrderKind = OrderKindNone
		i.OrderID = nil
		return
	}
	id := link.OrderID
	i.OrderKind = link.Kind
	i.OrderID = &id
}

var statusRank = map[string]int{
	StatusScheduled:  0,
	StatusInProgress: 1,
	StatusCompleted:  2,
}

// CanTransition проверяет допустимость перехода статуса
// Переходы монотонны вперед; cancelled достижим из любого нетерминального статуса,
// но выхода из cancelled нет
func CanTransition(from, to string) bool {
	if from == to {
		return true // Повторная установка того же статуса допустима (no-op)
	}
	if from == StatusCancelled {
		return false
	}
	if to == StatusCancelled {
		return from != StatusCompleted
	}
	fromRank, okFrom := statusRank[from]
	toRank, okTo := statusRank[to]
	return okFrom && okTo && toRank > fromRank
}

// IsValidStatus проверяет, что статус входит в известный набор
func IsValidStatus(status string) bool {
	_, ok := statusRank[status]
	return ok || status == StatusCancelled
}

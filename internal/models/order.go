package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Статусы внутреннего заказа (заявки точки продаж)
const (
	InternalOrderStatusPending   = "pending"
	InternalOrderStatusCompleted = "completed"
)

// Статусы клиентского заказа
const (
	CustomerOrderStatusPending   = "pending"
	CustomerOrderStatusConfirmed = "confirmed"
	CustomerOrderStatusReady     = "ready"
	CustomerOrderStatusCompleted = "completed"
	CustomerOrderStatusCancelled = "cancelled"
)

// Product представляет товар каталога
// Товар может ссылаться на рецепт; без рецепта производство по нему не планируется
type Product struct {
	ID        string         `json:"id" gorm:"type:uuid;primaryKey"`
	Name      string         `json:"name" gorm:"type:varchar(255);not null"`
	Price     float64        `json:"price" gorm:"type:decimal(10,2);default:0"`
	RecipeID  *string        `json:"recipe_id" gorm:"type:uuid;index"`
	IsActive  bool           `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	// Relations
	Recipe *Recipe `json:"recipe,omitempty" gorm:"foreignKey:RecipeID"`
}

// TableName указывает имя таблицы
func (Product) TableName() string {
	return "products"
}

// BeforeCreate генерирует UUID
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// InternalOrder представляет внутренний заказ точки продаж на пополнение витрины
type InternalOrder struct {
	ID          string         `json:"id" gorm:"type:uuid;primaryKey"`
	ShopName    string         `json:"shop_name" gorm:"type:varchar(255)"`
	Status      string         `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	Notes       string         `json:"notes" gorm:"type:text"`
	CompletedAt *time.Time     `json:"completed_at"`
	CreatedAt   time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt   gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	// Relations
	Items []InternalOrderItem `json:"items" gorm:"foreignKey:OrderID"`
}

// TableName указывает имя таблицы
func (InternalOrder) TableName() string {
	return "internal_orders"
}

// BeforeCreate генерирует UUID
func (o *InternalOrder) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return nil
}

// InternalOrderItem представляет позицию внутреннего заказа
type InternalOrderItem struct {
	ID                  string    `json:"id" gorm:"type:uuid;primaryKey"`
	OrderID             string    `json:"order_id" gorm:"type:uuid;not null;index"`
	ProductID           string    `json:"product_id" gorm:"type:uuid;not null"`
	Quantity            int       `json:"quantity" gorm:"not null"`
	SpecialInstructions string    `json:"special_instructions" gorm:"type:text"`
	CreatedAt           time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt           time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Relations
	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

// TableName указывает имя таблицы
func (InternalOrderItem) TableName() string {
	return "internal_order_items"
}

// BeforeCreate генерирует UUID
func (i *InternalOrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	return nil
}

// CustomerOrder представляет клиентский заказ (предзаказ на выпечку)
type CustomerOrder struct {
	ID            string         `json:"id" gorm:"type:uuid;primaryKey"`
	CustomerName  string         `json:"customer_name" gorm:"type:varchar(255)"`
	CustomerPhone string         `json:"customer_phone" gorm:"type:varchar(20)"`
	Status        string         `json:"status" gorm:"type:varchar(20);not null;default:'pending';index"`
	PickupTime    *time.Time     `json:"pickup_time"`
	Notes         string         `json:"notes" gorm:"type:text"`
	CompletedAt   *time.Time     `json:"completed_at"`
	CreatedAt     time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt     time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt     gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	// Relations
	Items []CustomerOrderItem `json:"items" gorm:"foreignKey:OrderID"`
}

// TableName указывает имя таблицы
func (CustomerOrder) TableName() string {
	return "customer_orders"
}

// BeforeCreate генерирует UUID
func (o *CustomerOrder) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return nil
}

// CustomerOrderItem представляет позицию клиентского заказа
type CustomerOrderItem struct {
	ID                  string    `json:"id" gorm:"type:uuid;primaryKey"`
	OrderID             string    `json:"order_id" gorm:"type:uuid;not null;index"`
	ProductID           string    `json:"product_id" gorm:"type:uuid;not null"`
	Quantity            int       `json:"quantity" gorm:"not null"`
	SpecialInstructions string    `json:"special_instructions" gorm:"type:text"`
	CreatedAt           time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt           time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Relations
	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

// TableName указывает имя таблицы
func (CustomerOrderItem) TableName() string {
	return "customer_order_items"
}

// BeforeCreate генерирует UUID
func (i *CustomerOrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	return nil
}

// OrderLine представление позиции заказа для планирования производства
// Общий вид для внутренних и клиентских заказов
type OrderLine struct {
	ProductID           string  `json:"product_id"`
	ProductName         string  `json:"product_name"`
	RecipeID            *string `json:"recipe_id"`
	RecipeName          string  `json:"recipe_name"`
	Quantity            int     `json:"quantity"`
	SpecialInstructions string  `json:"special_instructions"`
}

package repositories

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"bakehouse/server/internal/models"
)

// orderRepository доступ к внутренним и клиентским заказам на PostgreSQL
type orderRepository struct {
	db *gorm.DB
}

func (r *orderRepository) OrderExists(kind models.OrderKind, orderID string) (bool, error) {
	var count int64
	var err error

	switch kind {
	case models.OrderKindInternal:
		err = r.db.Model(&models.InternalOrder{}).Where("id = ?", orderID).Count(&count).Error
	case models.OrderKindCustomer:
		err = r.db.Model(&models.CustomerOrder{}).Where("id = ?", orderID).Count(&count).Error
	default:
		return false, fmt.Errorf("неизвестный вид заказа: %s", kind)
	}

	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *orderRepository) GetOrderLines(kind models.OrderKind, orderID string) ([]models.OrderLine, error) {
	switch kind {
	case models.OrderKindInternal:
		var orderItems []models.InternalOrderItem
		err := r.db.Preload("Product").Preload("Product.Recipe").
			Where("order_id = ?", orderID).
			Find(&orderItems).Error
		if err != nil {
			return nil, err
		}

		lines := make([]models.OrderLine, 0, len(orderItems))
		for _, oi := range orderItems {
			lines = append(lines, toOrderLine(oi.ProductID, oi.Product, oi.Quantity, oi.SpecialInstructions))
		}
		return lines, nil

	case models.OrderKindCustomer:
		var orderItems []models.CustomerOrderItem
		err := r.db.Preload("Product").Preload("Product.Recipe").
			Where("order_id = ?", orderID).
			Find(&orderItems).Error
		if err != nil {
			return nil, err
		}

		lines := make([]models.OrderLine, 0, len(orderItems))
		for _, oi := range orderItems {
			lines = append(lines, toOrderLine(oi.ProductID, oi.Product, oi.Quantity, oi.SpecialInstructions))
		}
		return lines, nil

	default:
		return nil, fmt.Errorf("неизвестный вид заказа: %s", kind)
	}
}

func (r *orderRepository) GetProductionItemsByOrder(kind models.OrderKind, orderID string) ([]models.ProductionItem, error) {
	var items []models.ProductionItem
	err := r.db.Where("order_kind = ? AND order_id = ?", kind, orderID).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *orderRepository) SetOrderStatus(kind models.OrderKind, orderID, status string, completedAt *time.Time) error {
	updates := map[string]interface{}{"status": status}
	if completedAt != nil {
		updates["completed_at"] = completedAt
	}

	switch kind {
	case models.OrderKindInternal:
		return r.db.Model(&models.InternalOrder{}).Where("id = ?", orderID).Updates(updates).Error
	case models.OrderKindCustomer:
		return r.db.Model(&models.CustomerOrder{}).Where("id = ?", orderID).Updates(updates).Error
	default:
		return fmt.Errorf("неизвестный вид заказа: %s", kind)
	}
}

func toOrderLine(productID string, product *models.Product, quantity int, instructions string) models.OrderLine {
	line := models.OrderLine{
		ProductID:           productID,
		Quantity:            quantity,
		SpecialInstructions: instructions,
	}
	if product != nil {
		line.ProductName = product.Name
		line.RecipeID = product.RecipeID
		if product.Recipe != nil {
			line.RecipeName = product.Recipe.Name
		}
	}
	return line
}

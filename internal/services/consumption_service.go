package services

import (
	"log"
	"time"

	"bakehouse/server/internal/models"
)

// Окно анализа расхода по умолчанию
const defaultConsumptionWindowDays = 30

// ConsumptionService фоновый пересчет агрегатов расхода ингредиентов
// по завершенным позициям производства
// Задача только читает производство и склад — остатки она не меняет
type ConsumptionService struct {
	repos      *Repositories
	windowDays int
}

// NewConsumptionService создает сервис пересчета расхода
func NewConsumptionService(repos *Repositories) *ConsumptionService {
	return &ConsumptionService{
		repos:      repos,
		windowDays: defaultConsumptionWindowDays,
	}
}

// Recalculate пересчитывает агрегаты расхода за окно анализа
// и вычищает строки для удаленных позиций склада
func (s *ConsumptionService) Recalculate() error {
	windowEnd := time.Now().UTC()
	windowStart := windowEnd.AddDate(0, 0, -s.windowDays)

	log.Printf("🔄 Пересчет расхода ингредиентов за период %s — %s",
		windowStart.Format("2006-01-02"), windowEnd.Format("2006-01-02"))

	items, err := s.repos.Schedules.ListCompletedItems(windowStart)
	if err != nil {
		return err
	}

	type aggregate struct {
		total float64
		count int
		unit  string
	}
	totals := make(map[string]*aggregate)

	for _, item := range items {
		ingredients, err := s.repos.Recipes.GetIngredients(item.RecipeID)
		if err != nil {
			return err
		}
		for _, ing := range ingredients {
			agg, ok := totals[ing.IngredientID]
			if !ok {
				agg = &aggregate{unit: ing.Unit}
				totals[ing.IngredientID] = agg
			}
			agg.total += ing.QtyPerUnit * float64(item.Quantity)
			agg.count++
		}
	}

	updated := 0
	for ingredientID, agg := range totals {
		stock, err := s.repos.Inventory.GetItem(ingredientID)
		if err != nil {
			return err
		}
		if stock == nil {
			// Позиция склада удалена — агрегат вычистит PruneOrphans
			continue
		}

		record := &models.IngredientConsumption{
			IngredientID:   ingredientID,
			IngredientName: stock.Name,
			TotalConsumed:  agg.total,
			Unit:           agg.unit,
			ItemsCompleted: agg.count,
			WindowStart:    windowStart,
			WindowEnd:      windowEnd,
		}
		if err := s.repos.Consumption.Upsert(record); err != nil {
			return err
		}
		updated++
	}

	pruned, err := s.repos.Consumption.PruneOrphans()
	if err != nil {
		return err
	}

	log.Printf("✅ Пересчет расхода завершен: позиций производства %d, агрегатов %d, вычищено %d",
		len(items), updated, pruned)
	return nil
}

// ListConsumption возвращает текущие агрегаты расхода
func (s *ConsumptionService) ListConsumption() ([]models.IngredientConsumption, error) {
	return s.repos.Consumption.List()
}

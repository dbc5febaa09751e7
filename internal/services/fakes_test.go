package services

import (
	"fmt"
	"sort"
	"time"

	"bakehouse/server/internal/models"
)

// fakeState общее состояние in-memory хранилищ для тестов
type fakeState struct {
	seq int

	schedules map[string]models.ProductionSchedule
	items     map[string]models.ProductionItem
	itemSeq   map[string]int

	recipes     map[string]models.Recipe
	ingredients map[string][]models.RecipeIngredient

	stock map[string]models.InventoryItem

	orders map[models.OrderKind]map[string]*fakeOrder

	consumption map[string]models.IngredientConsumption
}

type fakeOrder struct {
	status      string
	completedAt *time.Time
	lines       []models.OrderLine
}

func newFakeState() *fakeState {
	return &fakeState{
		schedules:   make(map[string]models.ProductionSchedule),
		items:       make(map[string]models.ProductionItem),
		itemSeq:     make(map[string]int),
		recipes:     make(map[string]models.Recipe),
		ingredients: make(map[string][]models.RecipeIngredient),
		stock:       make(map[string]models.InventoryItem),
		orders: map[models.OrderKind]map[string]*fakeOrder{
			models.OrderKindInternal: {},
			models.OrderKindCustomer: {},
		},
		consumption: make(map[string]models.IngredientConsumption),
	}
}

func (s *fakeState) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

type fakeSchedules struct{ s *fakeState }

func (f *fakeSchedules) CreateSchedule(schedule *models.ProductionSchedule, items []models.ProductionItem) error {
	if schedule.ID == "" {
		schedule.ID = f.s.nextID("sched")
	}
	f.s.schedules[schedule.ID] = *schedule

	for i := range items {
		if items[i].ID == "" {
			items[i].ID = f.s.nextID("item")
		}
		items[i].ScheduleID = schedule.ID
		f.s.items[items[i].ID] = items[i]
		f.s.itemSeq[items[i].ID] = f.s.seq
	}
	return nil
}

func (f *fakeSchedules) GetSchedule(id string) (*models.ProductionSchedule, error) {
	schedule, ok := f.s.schedules[id]
	if !ok {
		return nil, nil
	}
	items, _ := f.GetItems(id)
	schedule.Items = items
	return &schedule, nil
}

func (f *fakeSchedules) ListSchedules(from, to *time.Time) ([]models.ProductionSchedule, error) {
	var result []models.ProductionSchedule
	for id, schedule := range f.s.schedules {
		if from != nil && schedule.Date.Before(*from) {
			continue
		}
		if to != nil && schedule.Date.After(*to) {
			continue
		}
		items, _ := f.GetItems(id)
		schedule.Items = items
		result = append(result, schedule)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

func (f *fakeSchedules) SaveSchedule(schedule *models.ProductionSchedule) error {
	stored := *schedule
	stored.Items = nil
	f.s.schedules[schedule.ID] = stored
	return nil
}

func (f *fakeSchedules) DeleteSchedule(id string) error {
	delete(f.s.schedules, id)
	for itemID, item := range f.s.items {
		if item.ScheduleID == id {
			delete(f.s.items, itemID)
			delete(f.s.itemSeq, itemID)
		}
	}
	return nil
}

func (f *fakeSchedules) GetItem(id string) (*models.ProductionItem, error) {
	item, ok := f.s.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (f *fakeSchedules) GetItems(scheduleID string) ([]models.ProductionItem, error) {
	var items []models.ProductionItem
	for _, item := range f.s.items {
		if item.ScheduleID == scheduleID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return f.s.itemSeq[items[i].ID] < f.s.itemSeq[items[j].ID]
	})
	return items, nil
}

func (f *fakeSchedules) SaveItem(item *models.ProductionItem) error {
	if item.ID == "" {
		item.ID = f.s.nextID("item")
		f.s.itemSeq[item.ID] = f.s.seq
	}
	f.s.items[item.ID] = *item
	return nil
}

func (f *fakeSchedules) ReplaceItems(scheduleID string, items []models.ProductionItem) error {
	for itemID, item := range f.s.items {
		if item.ScheduleID == scheduleID {
			delete(f.s.items, itemID)
			delete(f.s.itemSeq, itemID)
		}
	}
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = f.s.nextID("item")
		}
		items[i].ScheduleID = scheduleID
		f.s.items[items[i].ID] = items[i]
		f.s.itemSeq[items[i].ID] = f.s.seq
	}
	return nil
}

func (f *fakeSchedules) ListCompletedItems(since time.Time) ([]models.ProductionItem, error) {
	var items []models.ProductionItem
	for _, item := range f.s.items {
		if item.Status != models.StatusCompleted || item.CompletedTime == nil {
			continue
		}
		if item.CompletedTime.Before(since) {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

type fakeRecipes struct{ s *fakeState }

func (f *fakeRecipes) GetRecipe(id string) (*models.Recipe, error) {
	recipe, ok := f.s.recipes[id]
	if !ok {
		return nil, nil
	}
	return &recipe, nil
}

func (f *fakeRecipes) GetIngredients(recipeID string) ([]models.RecipeIngredient, error) {
	return f.s.ingredients[recipeID], nil
}

type fakeInventory struct{ s *fakeState }

func (f *fakeInventory) GetItem(id string) (*models.InventoryItem, error) {
	item, ok := f.s.stock[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (f *fakeInventory) ListItems() ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	for _, item := range f.s.stock {
		items = append(items, item)
	}
	return items, nil
}

func (f *fakeInventory) DeductStock(id string, amount float64) error {
	item, ok := f.s.stock[id]
	if !ok {
		return nil
	}
	item.CurrentStock -= amount
	if item.CurrentStock < 0 {
		item.CurrentStock = 0
	}
	f.s.stock[id] = item
	return nil
}

type fakeOrders struct{ s *fakeState }

func (f *fakeOrders) OrderExists(kind models.OrderKind, orderID string) (bool, error) {
	byKind, ok := f.s.orders[kind]
	if !ok {
		return false, fmt.Errorf("неизвестный вид заказа: %s", kind)
	}
	_, exists := byKind[orderID]
	return exists, nil
}

func (f *fakeOrders) GetOrderLines(kind models.OrderKind, orderID string) ([]models.OrderLine, error) {
	order, ok := f.s.orders[kind][orderID]
	if !ok {
		return nil, nil
	}
	return order.lines, nil
}

func (f *fakeOrders) GetProductionItemsByOrder(kind models.OrderKind, orderID string) ([]models.ProductionItem, error) {
	var items []models.ProductionItem
	for _, item := range f.s.items {
		if item.OrderKind == kind && item.OrderID != nil && *item.OrderID == orderID {
			items = append(items, item)
		}
	}
	return items, nil
}

func (f *fakeOrders) SetOrderStatus(kind models.OrderKind, orderID, status string, completedAt *time.Time) error {
	order, ok := f.s.orders[kind][orderID]
	if !ok {
		return fmt.Errorf("заказ %s не найден", orderID)
	}
	order.status = status
	if completedAt != nil {
		order.completedAt = completedAt
	}
	return nil
}

type fakeConsumption struct{ s *fakeState }

func (f *fakeConsumption) Upsert(record *models.IngredientConsumption) error {
	if existing, ok := f.s.consumption[record.IngredientID]; ok {
		record.ID = existing.ID
	} else if record.ID == "" {
		record.ID = f.s.nextID("cons")
	}
	f.s.consumption[record.IngredientID] = *record
	return nil
}

func (f *fakeConsumption) List() ([]models.IngredientConsumption, error) {
	var records []models.IngredientConsumption
	for _, record := range f.s.consumption {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].TotalConsumed > records[j].TotalConsumed
	})
	return records, nil
}

func (f *fakeConsumption) PruneOrphans() (int64, error) {
	var pruned int64
	for ingredientID := range f.s.consumption {
		if _, ok := f.s.stock[ingredientID]; !ok {
			delete(f.s.consumption, ingredientID)
			pruned++
		}
	}
	return pruned, nil
}

// fakeUnitOfWork выполняет функцию напрямую; может имитировать
// заданное число сбоев перед успехом
type fakeUnitOfWork struct {
	repos        *Repositories
	failuresLeft int
	failWith     error
	calls        int
}

func (u *fakeUnitOfWork) Do(fn func(r *Repositories) error) error {
	u.calls++
	if u.failuresLeft > 0 {
		u.failuresLeft--
		return u.failWith
	}
	return fn(u.repos)
}

func newFakeRepos() (*Repositories, *fakeState) {
	state := newFakeState()
	repos := &Repositories{
		Schedules:   &fakeSchedules{s: state},
		Recipes:     &fakeRecipes{s: state},
		Inventory:   &fakeInventory{s: state},
		Orders:      &fakeOrders{s: state},
		Consumption: &fakeConsumption{s: state},
	}
	return repos, state
}

// Помощники наполнения состояния

func (s *fakeState) addRecipe(id, name string, ingredients ...models.RecipeIngredient) {
	s.recipes[id] = models.Recipe{ID: id, Name: name, IsActive: true}
	for i := range ingredients {
		ingredients[i].RecipeID = id
	}
	s.ingredients[id] = ingredients
}

func (s *fakeState) addStock(id, name string, qty float64, unit string) {
	s.stock[id] = models.InventoryItem{ID: id, Name: name, CurrentStock: qty, Unit: unit}
}

func (s *fakeState) addOrder(kind models.OrderKind, id, status string, lines ...models.OrderLine) {
	s.orders[kind][id] = &fakeOrder{status: status, lines: lines}
}

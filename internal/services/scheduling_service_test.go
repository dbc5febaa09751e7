package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"

	"bakehouse/server/internal/models"
)

func newTestService(cascadeIgnoreCancelled bool) (*SchedulingService, *fakeState, *fakeUnitOfWork) {
	repos, state := newFakeRepos()
	uow := &fakeUnitOfWork{repos: repos}
	svc := NewSchedulingService(repos, uow, cascadeIgnoreCancelled)
	return svc, state, uow
}

func seedBreadRecipe(state *fakeState) {
	state.addRecipe("recipe-bread", "Хлеб пшеничный",
		models.RecipeIngredient{IngredientID: "ing-flour", QtyPerUnit: 500, Unit: "g"},
		models.RecipeIngredient{IngredientID: "ing-butter", QtyPerUnit: 20, Unit: "g"},
	)
	state.addStock("ing-flour", "Мука пшеничная", 10000, "g")
	state.addStock("ing-butter", "Масло сливочное", 1000, "g")
}

func scheduleDate() time.Time {
	return time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
}

func TestCreateScheduleRejectsEmptyItems(t *testing.T) {
	svc, _, _ := newTestService(false)

	_, _, err := svc.CreateSchedule(CreateScheduleRequest{
		Date:  scheduleDate(),
		Items: nil,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("ожидалась ErrValidation, получено: %v", err)
	}
}

func TestCreateScheduleRejectsNonPositiveQuantity(t *testing.T) {
	svc, state, _ := newTestService(false)
	seedBreadRecipe(state)

	for _, qty := range []int{0, -3} {
		_, _, err := svc.CreateSchedule(CreateScheduleRequest{
			Date:  scheduleDate(),
			Items: []ScheduleItemInput{{RecipeID: "recipe-bread", Quantity: qty}},
		})
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("количество %d: ожидалась ErrValidation, получено: %v", qty, err)
		}
	}
	if len(state.schedules) != 0 {
		t.Fatalf("расписание не должно создаваться при ошибке валидации")
	}
}

func TestCreateScheduleExactStockNoWarnings(t *testing.T) {
	svc, state, _ := newTestService(false)
	seedBreadRecipe(state)
	// Остатки ровно под 20 единиц: 20*500=10000 муки, 20*20=400 масла
	state.addStock("ing-butter", "Масло сливочное", 400, "g")

	schedule, warnings, err := svc.CreateSchedule(CreateScheduleRequest{
		Date:      scheduleDate(),
		CreatedBy: "технолог",
		Items:     []ScheduleItemInput{{RecipeID: "recipe-bread", Quantity: 20}},
	})
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("при достаточных остатках предупреждений быть не должно: %v", warnings)
	}
	if schedule.TotalItems != 1 || schedule.CompletedItems != 0 {
		t.Fatalf("счетчики: total=%d completed=%d", schedule.TotalItems, schedule.CompletedItems)
	}
	if len(schedule.Items) != 1 {
		t.Fatalf("ожидалась 1 позиция, получено %d", len(schedule.Items))
	}
	item := schedule.Items[0]
	if item.Status != models.StatusScheduled {
		t.Fatalf("новая позиция должна быть scheduled, получено %s", item.Status)
	}
	if item.RecipeName != "Хлеб пшеничный" {
		t.Fatalf("название рецепта должно сниматься снимком, получено %q", item.RecipeName)
	}

	// Создание расписания не трогает склад
	if got := state.stock["ing-flour"].CurrentStock; got != 10000 {
		t.Fatalf("остаток муки изменился при создании: %v", got)
	}
}

func TestCreateScheduleShortfallWarnsButCreates(t *testing.T) {
	svc, state, _ := newTestService(false)
	seedBreadRecipe(state)
	state.addStock("ing-flour", "Мука пшеничная", 4000, "g") // Нужно 5000

	schedule, warnings, err := svc.CreateSchedule(CreateScheduleRequest{
		Date:  scheduleDate(),
		Items: []ScheduleItemInput{{RecipeID: "recipe-bread", Quantity: 10}},
	})
	if err != nil {
		t.Fatalf("нехватка остатков не должна блокировать создание: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("ожидалось 1 предупреждение, получено: %v", warnings)
	}
	if !strings.Contains(warnings[0], "Мука пшеничная") {
		t.Fatalf("предупреждение должно называть ингредиент: %s", warnings[0])
	}
	if schedule == nil || len(state.schedules) != 1 {
		t.Fatalf("расписание должно быть создано несмотря на предупреждения")
	}
}

func TestCreateScheduleWarnsOnMissingIngredient(t *testing.T) {
	svc, state, _ := newTestService(false)
	state.addRecipe("recipe-cake", "Торт",
		models.RecipeIngredient{IngredientID: "ing-ghost", QtyPerUnit: 100, Unit: "g"})

	_, warnings, err := svc.CreateSchedule(CreateScheduleRequest{
		Date:  scheduleDate(),
		Items: []ScheduleItemInput{{RecipeID: "recipe-cake", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "отсутствует на складе") {
		t.Fatalf("ожидалось предупреждение об отсутствующем ингредиенте: %v", warnings)
	}
}

func TestCompleteItemDeductsIngredients(t *testing.T) {
	svc, state, _ := newTestService(false)
	seedBreadRecipe(state)

	schedule, _, err := svc.CreateSchedule(CreateScheduleRequest{
		Date:  scheduleDate(),
		Items: []ScheduleItemInput{{RecipeID: "recipe-bread", Quantity: 10}},
	})
	if err != nil {
		t.Fatalf("создание: %v", err)
	}

	item, err := svc.CompleteItem(schedule.Items[0].ID, true, "партия в норме")
	if err != nil {
		t.Fatalf("завершение: %v", err)
	}
	if item.Status != models.StatusCompleted {
		t.Fatalf("статус должен быть completed, получено %s", item.Status)
	}
	if item.CompletedTime == nil {
		t.Fatalf("completed_time должен проставляться при завершении")
	}
	if !item.QualityCheck || item.QualityNotes != "партия в норме" {
		t.Fatalf("отметка качества не сохранена: %+v", item)
	}

	// 10 * 500 = 5000 муки, 10 * 20 = 200 масла
	if got := state.stock["ing-flour"].CurrentStock; got != 5000 {
		t.Fatalf("остаток муки: ожидалось 5000, получено %v", got)
	}
	if got := state.stock["ing-butter"].CurrentStock; got != 800 {
		t.Fatalf("остаток масла: ожидалось 800, получено %v", got)
	}

	updated, _ := svc.GetSchedule(schedule.ID)
	if updated.CompletedItems != 1 || updated.TotalItems != 1 {
		t.Fatalf("счетчики после завершения: total=%d completed=%d", updated.TotalItems, updated.CompletedItems)
	}
}

func TestCompleteItemClampsStockAtZero(t *testing.T) {
	svc, state, _ := newTestService(false)
	seedBreadRecipe(state)
	state.addStock("ing-flour", "Мука пшеничная", 3000, "g") // Спишется 5000

	schedule, _, _ := svc.CreateSchedule(CreateScheduleRequest{
		Date:  scheduleDate(),
		Items: []ScheduleItemInput{{RecipeID: "recipe-bread", Quantity: 10}},
	})

	if _, err := svc.CompleteItem(schedule.Items[0].ID, false, ""); err != nil {
		t.Fatalf("завершение при нехватке остатков должно проходить: %v", err)
	}
	if got := state.stock["ing-flour"].CurrentStock; got != 0 {
		t.Fatalf("остаток не должен уходить в минус, получено %v", got)
	}
}

func TestCompleteItemTwiceDoesNotDeductTwice(t *testing.T) {
	svc, state, _ := newTestService(false)
	seedBreadRecipe(state)

	schedule, _, _ := svc.CreateSchedule(CreateScheduleRequest{
		Date:  scheduleDate(),
		Items: []ScheduleItemInput{{RecipeID: "recipe-bread", Quantity: 10}},
	})
	itemID := schedule.Items[0].ID

	if _, err := svc.CompleteItem(itemID, true, ""); err != nil {
		t.Fatalf("первое завершение: %v", err)
	}
	firstStamp := state.items[itemID].CompletedTime

	// Повторное сохранение завершенной позиции — no-op по складу и меткам
	if _, err := svc.CompleteItem(itemID, true, "повтор"); err != nil {
		t.Fatalf("повторное завершение: %v", err)
	}

	if got := state.stock["ing-flour"].CurrentStock; got != 5000 {
		t.Fatalf("повторное завершение не должно списывать склад, остаток %v", got)
	}
	if !state.items[itemID].CompletedTime.Equal(*firstStamp) {
		t.Fatalf("completed_time не должен меняться при повторном завершении")
	}

	updated, _ := svc.GetSchedule(schedule.ID)
	if updated.CompletedItems != 1 {
		t.Fatalf("счетчик завершенных искажен: %d", updated.CompletedItems)
	}
}

func TestCancelledItemDoesNotDeduct(t *testing.T) {
	svc, state, _ := newTestService(false)
	seedBreadRecipe(state)

	schedule, _, _ := svc.CreateSchedule(CreateScheduleRequest{
		Date:  scheduleDate(),
		Items: []ScheduleItemInput{{RecipeID: "recipe-bread", Quantity: 10}},
	})

	status := models.StatusCancelled
	item, err := svc.UpdateItem(schedule.Items[0].ID, ItemPatch{Status: &status})
	if err != nil {
		t.Fatalf("отмена: %v", err)
	}
	if item.Status != models.StatusCancelled {
		t.Fatalf("статус должен быть cancelled, получено %s", item.Status)
	}
	if got := state.stock["ing-flour"].CurrentStock; got != 10000 {
		t.Fatalf("отмена не должна списывать склад, остаток %v", got)
	}

	updated, _ := svc.GetSchedule(schedule.ID)
	if updated.CompletedItems != 0 {
		t.Fatalf("отмененная позиция не считается завершенной")
	}
}

func TestStatusTransitionRules(t *testing.T) {
	cases := []struct {
		from, to string
		allowed  bool
	}{
		{models.StatusScheduled, models.StatusInProgress, true},
		{models.StatusScheduled, models.StatusCompleted, true},
		{models.StatusInProgress, models.StatusCompleted, true},
		{models.StatusScheduled, models.StatusCancelled, true},
		{models.StatusInProgress, models.StatusCancelled, true},
		{models.StatusCompleted, models.StatusCompleted, true},
		{models.StatusInProgress, models.StatusScheduled, false},
		{models.StatusCompleted, models.StatusInProgress, false},
		{models.StatusCompleted, models.StatusCancelled, false},
		{models.StatusCancelled, models.StatusScheduled, false},
		{models.StatusCancelled, models.StatusCompleted, false},
	}
	for _, tc := range cases {
		if got := models.CanTransition(tc.from, tc.to); got != tc.allowed {
			t.Errorf("%s → %s: ожидалось %v, получено %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestUpdateItemRejectsBackwardTransition(t *testing.T) {
	svc, state, _ := newTestService(false)
	seedBreadRecipe(state)

	schedule, _, _ := svc.CreateSchedule(CreateScheduleRequest{
		Date:  scheduleDate(),
		Items: []ScheduleItemInput{{RecipeID: "recipe-bread", Quantity: 1}},
	})
	itemID := schedule.Items[0].ID

	if _, err := svc.CompleteItem(itemID, false, ""); err != nil {
		t.Fatalf("завершение: %v", err)
	}

	status := models.StatusInProgress
	_, err := svc.UpdateItem(itemID, ItemPatch{Status: &status})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("откат статуса должен отклоняться, получено: %v", err)
	}
}

func TestUpdateItemRejectsUnknownStatus(t *testing.T) {
	svc, _, _ := newTestService(false)

	status := "burnt"
	_, err := svc.UpdateItem("any", ItemPatch{Status: &status})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("неизвестный статус должен отклоняться, получено: %v", err)
	}
}

func TestStartItemStampsStartTime(t *testing.T) {
	svc, state, _ := newTestService(false)
	seedBreadRecipe(state)

	schedule, _, _ := svc.CreateSchedule(CreateScheduleRequest{
		Date:  scheduleDate(),
		Items: []ScheduleItemInput{{RecipeID: "recipe-bread", Quantity: 2}},
	})

	item, err := svc.StartItem(schedule.Items[0].ID, "Анна")
	if err != nil {
		t.Fatalf("запуск: %v", err)
	}
	if item.Status != models.StatusInProgress {
		t.Fatalf("статус должен быть in_progress, получено %s", item.Status)
	}
	if item.StartTime == nil {
		t.Fatalf("start_time должен проставляться при запуске")
	}
	if item.AssignedTo != "Анна" {
		t.Fatalf("исполнитель не сохранен: %q", item.AssignedTo)
	}
	if got := state.stock["ing-flour"].CurrentStock; got != 10000 {
		t.Fatalf("запуск в работу не списывает склад, остаток %v", got)
	}
}

func linkedInput(recipeID string, qty int, kind models.OrderKind, orderID string) ScheduleItemInput {
	return ScheduleItemInput{
		RecipeID:  recipeID,
		Quantity:  qty,
		OrderLink: models.OrderLink{Kind: kind, OrderID: orderID},
	}
}

func TestInternalOrderCascadeOnLastCompletion(t *testing.T) {
	svc, state, _ := newTestService(false)
	seedBreadRecipe(state)
	state.addOrder(models.OrderKindInternal, "order-1", models.InternalOrderStatusPending)

	schedule, _, _ := svc.CreateSchedule(CreateScheduleRequest{
		Date: scheduleDate(),
		Items: []ScheduleItemInput{
			linkedInput("recipe-bread", 5, models.OrderKindInternal, "order-1"),
			linkedInput("recipe-bread", 3, models.OrderKindInternal, "order-1"),
		},
	})

	if _, err := svc.CompleteItem(schedule.Items[0].ID, false, ""); err != nil {
		t.Fatalf("первое завершение: %v", err)
	}
	if got := state.orders[models.OrderKindInternal]["order-1"].status; got != models.InternalOrderStatusPending {
		t.Fatalf("заказ не должен закрываться, пока есть незавершенные позиции: %s", got)
	}

	if _, err := svc.CompleteItem(schedule.Items[1].ID, false, ""); err != nil {
		t.Fatalf("второе завершение: %v", err)
	}
	order := state.orders[models.OrderKindInternal]["order-1"]
	if order.status != models.InternalOrderStatusCompleted {
		t.Fatalf("заказ должен закрыться каскадом: %s", order.status)
	}
	if order.completedAt == nil {
		t.Fatalf("у закрытого внутреннего заказа должен быть completed_at")
	}
}

func TestCustomerOrderCascadeSetsReady(t *testing.T) {
	svc, state, _ := newTestService(false)
	seedBreadRecipe(state)
	state.addOrder(models.OrderKindCustomer, "order-c1", models.CustomerOrderStatusConfirmed)

	schedule, _, _ := svc.CreateSchedule(CreateScheduleRequest{
		Date: scheduleDate(),
		Items: []ScheduleItemInput{
			linkedInput("recipe-bread", 2, models.OrderKindCustomer, "order-c1"),
		},
	})

	if _, err := svc.CompleteItem(schedule.Items[0].ID, false, ""); err != nil {
		t.Fatalf("завершение: %v", err)
	}
	order := state.orders[models.OrderKindCustomer]["order-c1"]
	if order.status != models.CustomerOrderStatusReady {
		t.Fatalf("клиентский заказ должен переходить в ready: %s", order.status)
	}
	if order.completedAt != nil {
		t.Fatalf("ready не означает завершение заказа")
	}
}

func TestCancelledSiblingBlocksCascadeByDefault(t *testing.T) {
	svc, state, _ := newTestService(false)
	seedBreadRecipe(state)
	state.addOrder(models.OrderKindInternal, "order-2", models.InternalOrderStatusPending)

	schedule, _, _ := svc.CreateSchedule(CreateScheduleRequest{
		Date: scheduleDate(),
		Items: []ScheduleItemInput{
			linkedInput("recipe-bread", 5, models.OrderKindInternal, "order-2"),
			linkedInput("recipe-bread", 3, models.OrderKindInternal, "order-2"),
		},
	})

	cancelled := models.StatusCancelled
	if _, err := svc.UpdateItem(schedule.Items[1].ID, ItemPatch{Status: &cancelled}); err != nil {
		t.Fatalf("отмена: %v", err)
	}
	if _, err := svc.CompleteItem(schedule.Items[0].ID, false, ""); err != nil {
		t.Fatalf("завершение: %v", err)
	}

	if got := state.orders[models.OrderKindInternal]["order-2"].status; got != models.InternalOrderStatusPending {
		t.Fatalf("отмененная позиция должна блокировать каскад, статус: %s", got)
	}
}

func TestCascadeIgnoresCancelledWhenConfigured(t *testing.T) {
	svc, state, _ := newTestService(true)
	seedBreadRecipe(state)
	state.addOrder(models.OrderKindInternal, "order-3", models.InternalOrderStatusPending)

	schedule, _, _ := svc.CreateSchedule(CreateScheduleRequest{
		Date: scheduleDate(),
		Items: []ScheduleItemInput{
			linkedInput("recipe-bread", 5, models.OrderKindInternal, "order-3"),
			linkedInput("recipe-bread", 3, models.OrderKindInternal, "order-3"),
		},
	})

	if _, err := svc.CompleteItem(schedule.Items[0].ID, false, ""); err != nil {
		t.Fatalf("завершение: %v", err)
	}

	cancelled := models.StatusCancelled
	if _, err := svc.UpdateItem(schedule.Items[1].ID, ItemPatch{Status: &cancelled}); err != nil {
		t.Fatalf("отмена: %v", err)
	}

	if got := state.orders[models.OrderKindInternal]["order-3"].status; got != models.InternalOrderStatusCompleted {
		t.Fatalf("при игнорировании отмен заказ должен закрыться: %s", got)
	}
}

func TestCreateScheduleFromInternalOrder(t *testing.T) {
	svc, state, _ := newTestService(false)
	seedBreadRecipe(state)
	state.addRecipe("recipe-bun", "Булочка с корицей",
		models.RecipeIngredient{IngredientID: "ing-flour", QtyPerUnit: 80, Unit: "g"})

	breadRecipe := "recipe-bread"
	bunRecipe := "recipe-bun"
	state.addOrder(models.OrderKindInternal, "order-4", models.InternalOrderStatusPending,
		models.OrderLine{ProductID: "prod-1", ProductName: "Хлеб", RecipeID: &breadRecipe, RecipeName: "Хлеб пшеничный", Quantity: 10},
		models.OrderLine{ProductID: "prod-2", ProductName: "Булочка", RecipeID: &bunRecipe, RecipeName: "Булочка с корицей", Quantity: 24, SpecialInstructions: "без глазури"},
	)

	schedule, _, err := svc.CreateScheduleFromOrder(models.OrderKindInternal, "order-4", scheduleDate(), "технолог")
	if err != nil {
		t.Fatalf("создание из заказа: %v", err)
	}
	if len(schedule.Items) != 2 {
		t.Fatalf("ожидалось 2 позиции, получено %d", len(schedule.Items))
	}
	for _, item := range schedule.Items {
		link := item.Link()
		if !link.IsSet() || link.Kind != models.OrderKindInternal || link.OrderID != "order-4" {
			t.Fatalf("позиция должна ссылаться на заказ: %+v", link)
		}
	}
	if schedule.Items[1].Notes != "без глазури" {
		t.Fatalf("пожелания из заказа должны переноситься в позицию: %q", schedule.Items[1].Notes)
	}
}

func TestCreateScheduleFromCustomerOrderConfirms(t *testing.T) {
	svc, state, _ := newTestService(false)
	seedBreadRecipe(state)

	breadRecipe := "recipe-bread"
	state.addOrder(models.OrderKindCustomer, "order-c2", models.CustomerOrderStatusPending,
		models.OrderLine{ProductID: "prod-1", ProductName: "Хлеб", RecipeID: &breadRecipe, Quantity: 2})

	_, _, err := svc.CreateScheduleFromOrder(models.OrderKindCustomer, "order-c2", scheduleDate(), "")
	if err != nil {
		t.Fatalf("создание из клиентского заказа: %v", err)
	}
	if got := state.orders[models.OrderKindCustomer]["order-c2"].status; got != models.CustomerOrderStatusConfirmed {
		t.Fatalf("клиентский заказ должен подтверждаться: %s", got)
	}
}

func TestCreateScheduleFromOrderAllOrNothing(t *testing.T) {
	svc, state, _ := newTestService(false)
	seedBreadRecipe(state)

	breadRecipe := "recipe-bread"
	state.addOrder(models.OrderKindInternal, "order-5", models.InternalOrderStatusPending,
		models.OrderLine{ProductID: "prod-1", ProductName: "Хлеб", RecipeID: &breadRecipe, Quantity: 10},
		models.OrderLine{ProductID: "prod-9", ProductName: "Лимонад", RecipeID: nil, Quantity: 5},
	)

	_, _, err := svc.CreateScheduleFromOrder(models.OrderKindInternal, "order-5", scheduleDate(), "")
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("товар без рецепта должен отклонять заказ целиком: %v", err)
	}
	if !strings.Contains(err.Error(), "Лимонад") {
		t.Fatalf("ошибка должна называть товар: %v", err)
	}
	if len(state.schedules) != 0 || len(state.items) != 0 {
		t.Fatalf("ничего не должно сохраняться при частично непригодном заказе")
	}
	if got := state.orders[models.OrderKindInternal]["order-5"].status; got != models.InternalOrderStatusPending {
		t.Fatalf("статус заказа не должен меняться: %s", got)
	}
}

func TestCreateScheduleFromOrderRejectsUnknownKindAndOrder(t *testing.T) {
	svc, state, _ := newTestService(false)
	seedBreadRecipe(state)

	if _, _, err := svc.CreateScheduleFromOrder("wholesale", "order-1", scheduleDate(), ""); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("неизвестный вид заказа: ожидалась ErrBadRequest, получено %v", err)
	}
	if _, _, err := svc.CreateScheduleFromOrder(models.OrderKindInternal, "no-such", scheduleDate(), ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("несуществующий заказ: ожидалась ErrNotFound, получено %v", err)
	}
}

func TestCreateScheduleFromEmptyOrder(t *testing.T) {
	svc, state, _ := newTestService(false)
	state.addOrder(models.OrderKindInternal, "order-empty", models.InternalOrderStatusPending)

	_, _, err := svc.CreateScheduleFromOrder(models.OrderKindInternal, "order-empty", scheduleDate(), "")
	if !errors.Is(err, ErrBadRequest) {
		t.Fatalf("пустой заказ: ожидалась ErrBadRequest, получено %v", err)
	}
}

func TestUpdateScheduleReplacesItemsAndRecounts(t *testing.T) {
	svc, state, _ := newTestService(false)
	seedBreadRecipe(state)

	schedule, _, _ := svc.CreateSchedule(CreateScheduleRequest{
		Date: scheduleDate(),
		Items: []ScheduleItemInput{
			{RecipeID: "recipe-bread", Quantity: 5},
			{RecipeID: "recipe-bread", Quantity: 7},
		},
	})
	if _, err := svc.CompleteItem(schedule.Items[0].ID, false, ""); err != nil {
		t.Fatalf("завершение: %v", err)
	}

	newItems := []ScheduleItemInput{
		{RecipeID: "recipe-bread", Quantity: 3},
	}
	notes := "пересобрано"
	updated, err := svc.UpdateSchedule(schedule.ID, SchedulePatch{Notes: &notes, Items: &newItems})
	if err != nil {
		t.Fatalf("обновление: %v", err)
	}
	if updated.TotalItems != 1 || updated.CompletedItems != 0 {
		t.Fatalf("счетчики после замены: total=%d completed=%d", updated.TotalItems, updated.CompletedItems)
	}
	if updated.Notes != "пересобрано" {
		t.Fatalf("заметки не обновлены: %q", updated.Notes)
	}
	if len(updated.Items) != 1 || updated.Items[0].Status != models.StatusScheduled {
		t.Fatalf("замененные позиции должны начинаться со scheduled: %+v", updated.Items)
	}
}

func TestDeleteScheduleRemovesItems(t *testing.T) {
	svc, state, _ := newTestService(false)
	seedBreadRecipe(state)

	schedule, _, _ := svc.CreateSchedule(CreateScheduleRequest{
		Date:  scheduleDate(),
		Items: []ScheduleItemInput{{RecipeID: "recipe-bread", Quantity: 5}},
	})

	if err := svc.DeleteSchedule(schedule.ID); err != nil {
		t.Fatalf("удаление: %v", err)
	}
	if len(state.schedules) != 0 || len(state.items) != 0 {
		t.Fatalf("расписание и позиции должны удаляться вместе")
	}

	if err := svc.DeleteSchedule(schedule.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("повторное удаление: ожидалась ErrNotFound, получено %v", err)
	}
}

func TestGetScheduleNotFound(t *testing.T) {
	svc, _, _ := newTestService(false)

	if _, err := svc.GetSchedule("ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ожидалась ErrNotFound, получено %v", err)
	}
	if _, err := svc.GetItem("ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("ожидалась ErrNotFound, получено %v", err)
	}
}

func TestTransactionRetriesOnSerializationFailure(t *testing.T) {
	svc, state, uow := newTestService(false)
	seedBreadRecipe(state)

	schedule, _, _ := svc.CreateSchedule(CreateScheduleRequest{
		Date:  scheduleDate(),
		Items: []ScheduleItemInput{{RecipeID: "recipe-bread", Quantity: 1}},
	})

	callsBefore := uow.calls
	uow.failuresLeft = 2
	uow.failWith = &pq.Error{Code: "40001"}

	if _, err := svc.CompleteItem(schedule.Items[0].ID, false, ""); err != nil {
		t.Fatalf("транзакция должна пройти после повторов: %v", err)
	}
	if got := uow.calls - callsBefore; got != 3 {
		t.Fatalf("ожидалось 3 попытки, получено %d", got)
	}
}

func TestTransactionFailsAfterMaxRetries(t *testing.T) {
	svc, state, uow := newTestService(false)
	seedBreadRecipe(state)

	schedule, _, _ := svc.CreateSchedule(CreateScheduleRequest{
		Date:  scheduleDate(),
		Items: []ScheduleItemInput{{RecipeID: "recipe-bread", Quantity: 1}},
	})

	callsBefore := uow.calls
	uow.failuresLeft = 100
	uow.failWith = &pq.Error{Code: "40P01"}

	_, err := svc.CompleteItem(schedule.Items[0].ID, false, "")
	if !errors.Is(err, ErrTransactionFailed) {
		t.Fatalf("ожидалась ErrTransactionFailed, получено %v", err)
	}
	if got := uow.calls - callsBefore; got != maxTxRetries {
		t.Fatalf("ожидалось %d попыток, получено %d", maxTxRetries, got)
	}
}

func TestTransactionDoesNotRetryDomainErrors(t *testing.T) {
	svc, state, uow := newTestService(false)
	seedBreadRecipe(state)

	schedule, _, _ := svc.CreateSchedule(CreateScheduleRequest{
		Date:  scheduleDate(),
		Items: []ScheduleItemInput{{RecipeID: "recipe-bread", Quantity: 1}},
	})

	callsBefore := uow.calls
	uow.failuresLeft = 1
	uow.failWith = errors.New("duplicate key value violates unique constraint")

	_, err := svc.CompleteItem(schedule.Items[0].ID, false, "")
	if err == nil || !strings.Contains(err.Error(), "duplicate key") {
		t.Fatalf("ошибка должна пробрасываться без повторов: %v", err)
	}
	if got := uow.calls - callsBefore; got != 1 {
		t.Fatalf("повторов быть не должно, попыток: %d", got)
	}
}

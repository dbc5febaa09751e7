package services

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/lib/pq"

	"bakehouse/server/internal/models"
	"bakehouse/server/internal/utils"
)

const (
	scheduleCacheTTL    = 5 * time.Minute
	scheduleCachePrefix = "bakehouse:schedule"

	maxTxRetries = 5
	txRetryDelay = 10 * time.Millisecond
)

// EventSink получатель событий производства (Kafka, WebSocket)
// Все методы best-effort: ошибки доставки не влияют на результат операции
type EventSink interface {
	PublishScheduleCreated(schedule *models.ProductionSchedule)
	PublishItemStatusChanged(item *models.ProductionItem, previousStatus string)
	PublishOrderCascade(kind models.OrderKind, orderID, newStatus string)
}

// ScheduleItemInput входные данные позиции при создании/замене расписания
type ScheduleItemInput struct {
	RecipeID      string           `json:"recipe_id" binding:"required"`
	RecipeName    string           `json:"recipe_name"`
	Quantity      int              `json:"quantity" binding:"required"`
	ScheduledTime *time.Time       `json:"scheduled_time"`
	AssignedTo    string           `json:"assigned_to"`
	Notes         string           `json:"notes"`
	OrderLink     models.OrderLink `json:"-"`
}

// CreateScheduleRequest запрос на создание расписания производства
type CreateScheduleRequest struct {
	Date      time.Time           `json:"date" binding:"required"`
	Notes     string              `json:"notes"`
	CreatedBy string              `json:"created_by"`
	Items     []ScheduleItemInput `json:"items" binding:"required"`
}

// ItemPatch частичное обновление позиции производства
// Неуказанные поля не меняются
type ItemPatch struct {
	Status        *string    `json:"status"`
	StartTime     *time.Time `json:"start_time"`
	CompletedTime *time.Time `json:"completed_time"`
	ScheduledTime *time.Time `json:"scheduled_time"`
	AssignedTo    *string    `json:"assigned_to"`
	Notes         *string    `json:"notes"`
	BatchNumber   *string    `json:"batch_number"`
	QualityCheck  *bool      `json:"quality_check"`
	QualityNotes  *string    `json:"quality_notes"`
}

// SchedulePatch частичное обновление расписания
// Если Items указан, позиции заменяются целиком
type SchedulePatch struct {
	Date  *time.Time           `json:"date"`
	Notes *string              `json:"notes"`
	Items *[]ScheduleItemInput `json:"items"`
}

// SchedulingService движок планирования производства:
// расписания, жизненный цикл позиций, списание склада, каскад по заказам
type SchedulingService struct {
	repos *Repositories
	uow   UnitOfWork

	events    EventSink
	redisUtil *utils.RedisClient

	// Учитывать ли отмененные позиции при каскаде заказа:
	// false — отмененная позиция блокирует каскад (консервативное поведение),
	// true — отмененные позиции игнорируются
	cascadeIgnoreCancelled bool
}

// NewSchedulingService создает движок планирования производства
func NewSchedulingService(repos *Repositories, uow UnitOfWork, cascadeIgnoreCancelled bool) *SchedulingService {
	return &SchedulingService{
		repos:                  repos,
		uow:                    uow,
		cascadeIgnoreCancelled: cascadeIgnoreCancelled,
	}
}

// SetEventSink устанавливает получателя событий производства (опционально)
func (s *SchedulingService) SetEventSink(sink EventSink) {
	s.events = sink
}

// SetRedisUtil устанавливает Redis клиент для кэширования расписаний (опционально)
func (s *SchedulingService) SetRedisUtil(redisUtil *utils.RedisClient) {
	s.redisUtil = redisUtil
}

// CreateSchedule создает расписание производства с позициями
// Возвращает предупреждения о прогнозируемой нехватке ингредиентов —
// нехватка не блокирует создание
func (s *SchedulingService) CreateSchedule(req CreateScheduleRequest) (*models.ProductionSchedule, []string, error) {
	if err := validateItemInputs(req.Items); err != nil {
		return nil, nil, err
	}

	items := s.buildItems(req.Date, req.Items)

	// Прогноз нехватки считается по текущим остаткам до записи
	warnings, err := s.projectShortfalls(items)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка прогноза остатков: %w", err)
	}
	for _, w := range warnings {
		log.Printf("⚠️ Прогноз склада: %s", w)
	}

	schedule := &models.ProductionSchedule{
		Date:       req.Date,
		Notes:      req.Notes,
		CreatedBy:  req.CreatedBy,
		TotalItems: len(items),
	}

	err = s.runInTransaction(func(r *Repositories) error {
		return r.Schedules.CreateSchedule(schedule, items)
	})
	if err != nil {
		return nil, nil, err
	}

	schedule.Items, _ = s.repos.Schedules.GetItems(schedule.ID)
	s.invalidateScheduleCache()

	if s.events != nil {
		s.events.PublishScheduleCreated(schedule)
	}

	log.Printf("✅ Создано расписание производства %s на %s (%d позиций)",
		schedule.ID, schedule.Date.Format("2006-01-02"), len(items))
	return schedule, warnings, nil
}

// CreateScheduleFromOrder создает расписание из заказа (внутреннего или клиентского)
// Все позиции заказа должны иметь рецепт, иначе ничего не создается
// Клиентский заказ после успеха переводится в confirmed
func (s *SchedulingService) CreateScheduleFromOrder(kind models.OrderKind, orderID string, date time.Time, createdBy string) (*models.ProductionSchedule, []string, error) {
	if kind != models.OrderKindInternal && kind != models.OrderKindCustomer {
		return nil, nil, BadRequestf("неизвестный вид заказа '%s'", kind)
	}

	exists, err := s.repos.Orders.OrderExists(kind, orderID)
	if err != nil {
		return nil, nil, err
	}
	if !exists {
		return nil, nil, NotFoundf("заказ %s (%s) не найден", orderID, kind)
	}

	lines, err := s.repos.Orders.GetOrderLines(kind, orderID)
	if err != nil {
		return nil, nil, err
	}
	if len(lines) == 0 {
		return nil, nil, BadRequestf("заказ %s не содержит позиций", orderID)
	}

	// Все или ничего: один товар без рецепта отменяет создание целиком
	inputs := make([]ScheduleItemInput, 0, len(lines))
	for _, line := range lines {
		if line.RecipeID == nil || *line.RecipeID == "" {
			return nil, nil, BadRequestf("товар '%s' не имеет рецепта, производство невозможно", line.ProductName)
		}
		inputs = append(inputs, ScheduleItemInput{
			RecipeID:   *line.RecipeID,
			RecipeName: line.RecipeName,
			Quantity:   line.Quantity,
			Notes:      line.SpecialInstructions,
			OrderLink:  models.OrderLink{Kind: kind, OrderID: orderID},
		})
	}

	if err := validateItemInputs(inputs); err != nil {
		return nil, nil, err
	}

	items := s.buildItems(date, inputs)

	warnings, err := s.projectShortfalls(items)
	if err != nil {
		return nil, nil, fmt.Errorf("ошибка прогноза остатков: %w", err)
	}
	for _, w := range warnings {
		log.Printf("⚠️ Прогноз склада: %s", w)
	}

	schedule := &models.ProductionSchedule{
		Date:       date,
		Notes:      fmt.Sprintf("Создано из заказа %s (%s)", orderID, kind),
		CreatedBy:  createdBy,
		TotalItems: len(items),
	}

	err = s.runInTransaction(func(r *Repositories) error {
		if err := r.Schedules.CreateSchedule(schedule, items); err != nil {
			return err
		}
		if kind == models.OrderKindCustomer {
			return r.Orders.SetOrderStatus(kind, orderID, models.CustomerOrderStatusConfirmed, nil)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	schedule.Items, _ = s.repos.Schedules.GetItems(schedule.ID)
	s.invalidateScheduleCache()

	if s.events != nil {
		s.events.PublishScheduleCreated(schedule)
	}

	log.Printf("✅ Создано расписание %s из заказа %s (%s), позиций: %d",
		schedule.ID, orderID, kind, len(items))
	return schedule, warnings, nil
}

// GetSchedule возвращает расписание с позициями
func (s *SchedulingService) GetSchedule(id string) (*models.ProductionSchedule, error) {
	cacheKey := fmt.Sprintf("%s:%s", scheduleCachePrefix, id)
	if s.redisUtil != nil {
		var cached models.ProductionSchedule
		if err := s.redisUtil.GetJSON(cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	schedule, err := s.repos.Schedules.GetSchedule(id)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, NotFoundf("расписание %s не найдено", id)
	}

	if s.redisUtil != nil {
		if err := s.redisUtil.Set(cacheKey, schedule, scheduleCacheTTL); err != nil {
			log.Printf("⚠️ Не удалось закэшировать расписание %s: %v", id, err)
		}
	}
	return schedule, nil
}

// ListSchedules возвращает расписания в диапазоне дат
func (s *SchedulingService) ListSchedules(from, to *time.Time) ([]models.ProductionSchedule, error) {
	return s.repos.Schedules.ListSchedules(from, to)
}

// UpdateSchedule обновляет расписание; если в патче передан список позиций,
// старые позиции заменяются целиком и счетчики пересчитываются
func (s *SchedulingService) UpdateSchedule(id string, patch SchedulePatch) (*models.ProductionSchedule, error) {
	if patch.Items != nil {
		if err := validateItemInputs(*patch.Items); err != nil {
			return nil, err
		}
	}

	var updated *models.ProductionSchedule
	err := s.runInTransaction(func(r *Repositories) error {
		schedule, err := r.Schedules.GetSchedule(id)
		if err != nil {
			return err
		}
		if schedule == nil {
			return NotFoundf("расписание %s не найдено", id)
		}

		if patch.Date != nil {
			schedule.Date = *patch.Date
		}
		if patch.Notes != nil {
			schedule.Notes = *patch.Notes
		}

		if patch.Items != nil {
			items := s.buildItems(schedule.Date, *patch.Items)
			if err := r.Schedules.ReplaceItems(id, items); err != nil {
				return err
			}
			schedule.TotalItems = len(items)
			schedule.CompletedItems = 0
		}

		schedule.Items = nil
		if err := r.Schedules.SaveSchedule(schedule); err != nil {
			return err
		}

		schedule.Items, err = r.Schedules.GetItems(id)
		if err != nil {
			return err
		}
		updated = schedule
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateScheduleCache()
	return updated, nil
}

// DeleteSchedule удаляет расписание вместе с позициями
func (s *SchedulingService) DeleteSchedule(id string) error {
	err := s.runInTransaction(func(r *Repositories) error {
		schedule, err := r.Schedules.GetSchedule(id)
		if err != nil {
			return err
		}
		if schedule == nil {
			return NotFoundf("расписание %s не найдено", id)
		}
		return r.Schedules.DeleteSchedule(id)
	})
	if err != nil {
		return err
	}

	s.invalidateScheduleCache()
	log.Printf("🗑️ Расписание %s удалено", id)
	return nil
}

// GetItem возвращает позицию производства
func (s *SchedulingService) GetItem(id string) (*models.ProductionItem, error) {
	item, err := s.repos.Schedules.GetItem(id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, NotFoundf("позиция производства %s не найдена", id)
	}
	return item, nil
}

// UpdateItem обновляет позицию производства
// При переходе в completed в одной транзакции выполняется:
// сохранение позиции, пересчет счетчиков расписания,
// списание ингредиентов по рецепту и каскад статуса связанного заказа
func (s *SchedulingService) UpdateItem(id string, patch ItemPatch) (*models.ProductionItem, error) {
	if patch.Status != nil && !models.IsValidStatus(*patch.Status) {
		return nil, Validationf("неизвестный статус '%s'", *patch.Status)
	}

	var (
		updated      *models.ProductionItem
		prevStatus   string
		cascadeKind  models.OrderKind
		cascadeOrder string
		cascadeTo    string
	)

	err := s.runInTransaction(func(r *Repositories) error {
		// Транзакция может повториться — сбрасываем накопленное
		updated, cascadeKind, cascadeOrder, cascadeTo = nil, models.OrderKindNone, "", ""

		item, err := r.Schedules.GetItem(id)
		if err != nil {
			return err
		}
		if item == nil {
			return NotFoundf("позиция производства %s не найдена", id)
		}

		prevStatus = item.Status
		now := time.Now().UTC()

		if patch.Status != nil && *patch.Status != item.Status {
			if !models.CanTransition(item.Status, *patch.Status) {
				return Validationf("недопустимый переход статуса: %s → %s", item.Status, *patch.Status)
			}
			item.Status = *patch.Status

			// Метки времени проставляются при первом входе в статус
			if item.Status == models.StatusInProgress && item.StartTime == nil {
				item.StartTime = &now
			}
			if item.Status == models.StatusCompleted && item.CompletedTime == nil {
				item.CompletedTime = &now
			}
		}

		if patch.StartTime != nil {
			item.StartTime = patch.StartTime
		}
		if patch.CompletedTime != nil {
			item.CompletedTime = patch.CompletedTime
		}
		if patch.ScheduledTime != nil {
			item.ScheduledTime = *patch.ScheduledTime
		}
		if patch.AssignedTo != nil {
			item.AssignedTo = *patch.AssignedTo
		}
		if patch.Notes != nil {
			item.Notes = *patch.Notes
		}
		if patch.BatchNumber != nil {
			item.BatchNumber = *patch.BatchNumber
		}
		if patch.QualityCheck != nil {
			item.QualityCheck = *patch.QualityCheck
		}
		if patch.QualityNotes != nil {
			item.QualityNotes = *patch.QualityNotes
		}

		if err := r.Schedules.SaveItem(item); err != nil {
			return err
		}

		// Счетчики расписания пересчитываются по фактическому состоянию позиций,
		// а не инкрементом — повторное обновление не искажает их
		if err := recountSchedule(r, item.ScheduleID); err != nil {
			return err
		}

		// Списание склада только при фактическом переходе в completed:
		// повторное сохранение завершенной позиции не списывает повторно
		newlyCompleted := item.Status == models.StatusCompleted && prevStatus != models.StatusCompleted
		if newlyCompleted {
			if err := deductIngredients(r, item); err != nil {
				return err
			}
		}

		// Каскад статуса заказа проверяется, когда позиция могла закрыть заказ
		checkCascade := newlyCompleted ||
			(s.cascadeIgnoreCancelled && item.Status == models.StatusCancelled && prevStatus != models.StatusCancelled)
		if checkCascade && item.Link().IsSet() {
			link := item.Link()
			done, err := s.orderFullyDone(r, link)
			if err != nil {
				return err
			}
			if done {
				switch link.Kind {
				case models.OrderKindInternal:
					completedAt := now
					if err := r.Orders.SetOrderStatus(link.Kind, link.OrderID, models.InternalOrderStatusCompleted, &completedAt); err != nil {
						return err
					}
					cascadeKind, cascadeOrder, cascadeTo = link.Kind, link.OrderID, models.InternalOrderStatusCompleted
				case models.OrderKindCustomer:
					if err := r.Orders.SetOrderStatus(link.Kind, link.OrderID, models.CustomerOrderStatusReady, nil); err != nil {
						return err
					}
					cascadeKind, cascadeOrder, cascadeTo = link.Kind, link.OrderID, models.CustomerOrderStatusReady
				}
			}
		}

		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateScheduleCache()

	if s.events != nil {
		if patch.Status != nil && prevStatus != updated.Status {
			s.events.PublishItemStatusChanged(updated, prevStatus)
		}
		if cascadeOrder != "" {
			s.events.PublishOrderCascade(cascadeKind, cascadeOrder, cascadeTo)
		}
	}

	if cascadeOrder != "" {
		log.Printf("📦 Заказ %s (%s) переведен в '%s' по завершению производства",
			cascadeOrder, cascadeKind, cascadeTo)
	}
	return updated, nil
}

// StartItem переводит позицию в работу
func (s *SchedulingService) StartItem(id string, assignedTo string) (*models.ProductionItem, error) {
	status := models.StatusInProgress
	patch := ItemPatch{Status: &status}
	if assignedTo != "" {
		patch.AssignedTo = &assignedTo
	}
	return s.UpdateItem(id, patch)
}

// CompleteItem завершает позицию с отметкой контроля качества
func (s *SchedulingService) CompleteItem(id string, qualityCheck bool, qualityNotes string) (*models.ProductionItem, error) {
	status := models.StatusCompleted
	return s.UpdateItem(id, ItemPatch{
		Status:       &status,
		QualityCheck: &qualityCheck,
		QualityNotes: &qualityNotes,
	})
}

// invalidateScheduleCache сбрасывает кэш расписаний после мутаций
// и оповещает подписчиков через Pub/Sub
func (s *SchedulingService) invalidateScheduleCache() {
	if s.redisUtil == nil {
		return
	}
	if err := s.redisUtil.DeleteByPattern(scheduleCachePrefix + "*"); err != nil {
		log.Printf("⚠️ Не удалось инвалидировать кэш расписаний: %v", err)
	}
	if err := s.redisUtil.Publish("bakehouse:production:updated", "invalidate"); err != nil {
		log.Printf("⚠️ Не удалось опубликовать событие инвалидации: %v", err)
	}
}

// buildItems строит позиции производства из входных данных
// Название рецепта снимается денормализованным снимком на момент создания
func (s *SchedulingService) buildItems(date time.Time, inputs []ScheduleItemInput) []models.ProductionItem {
	items := make([]models.ProductionItem, 0, len(inputs))
	for _, in := range inputs {
		name := in.RecipeName
		if name == "" {
			if recipe, err := s.repos.Recipes.GetRecipe(in.RecipeID); err == nil && recipe != nil {
				name = recipe.Name
			}
		}

		scheduledTime := date
		if in.ScheduledTime != nil {
			scheduledTime = *in.ScheduledTime
		}

		item := models.ProductionItem{
			RecipeID:      in.RecipeID,
			RecipeName:    name,
			Quantity:      in.Quantity,
			Status:        models.StatusScheduled,
			ScheduledTime: scheduledTime,
			AssignedTo:    in.AssignedTo,
			Notes:         in.Notes,
		}
		item.SetLink(in.OrderLink)
		items = append(items, item)
	}
	return items
}

// projectShortfalls прогнозирует нехватку ингредиентов для набора позиций
// Потребность агрегируется по всем позициям и сравнивается с текущими остатками
func (s *SchedulingService) projectShortfalls(items []models.ProductionItem) ([]string, error) {
	required := make(map[string]float64)
	units := make(map[string]string)

	for _, item := range items {
		ingredients, err := s.repos.Recipes.GetIngredients(item.RecipeID)
		if err != nil {
			return nil, err
		}
		for _, ing := range ingredients {
			required[ing.IngredientID] += ing.QtyPerUnit * float64(item.Quantity)
			units[ing.IngredientID] = ing.Unit
		}
	}

	var warnings []string
	for ingredientID, need := range required {
		stock, err := s.repos.Inventory.GetItem(ingredientID)
		if err != nil {
			return nil, err
		}
		if stock == nil {
			warnings = append(warnings, fmt.Sprintf(
				"ингредиент %s отсутствует на складе, требуется %.2f %s",
				ingredientID, need, units[ingredientID]))
			continue
		}
		if need > stock.CurrentStock {
			warnings = append(warnings, fmt.Sprintf(
				"недостаточно '%s': требуется %.2f %s, доступно %.2f %s",
				stock.Name, need, stock.Unit, stock.CurrentStock, stock.Unit))
		}
	}
	return warnings, nil
}

// orderFullyDone проверяет, что все позиции производства заказа завершены
// Отмененные позиции блокируют каскад, если не включен режим их игнорирования
func (s *SchedulingService) orderFullyDone(r *Repositories, link models.OrderLink) (bool, error) {
	siblings, err := r.Orders.GetProductionItemsByOrder(link.Kind, link.OrderID)
	if err != nil {
		return false, err
	}

	completed := 0
	for _, sibling := range siblings {
		switch sibling.Status {
		case models.StatusCompleted:
			completed++
		case models.StatusCancelled:
			if !s.cascadeIgnoreCancelled {
				return false, nil
			}
		default:
			return false, nil
		}
	}
	// Хотя бы одна завершенная позиция, иначе заказ из одних отмен не закрывается
	return completed > 0, nil
}

// recountSchedule пересчитывает счетчики расписания по фактическим позициям
func recountSchedule(r *Repositories, scheduleID string) error {
	items, err := r.Schedules.GetItems(scheduleID)
	if err != nil {
		return err
	}

	schedule, err := r.Schedules.GetSchedule(scheduleID)
	if err != nil {
		return err
	}
	if schedule == nil {
		return NotFoundf("расписание %s не найдено", scheduleID)
	}

	completed := 0
	for _, item := range items {
		if item.Status == models.StatusCompleted {
			completed++
		}
	}

	schedule.TotalItems = len(items)
	schedule.CompletedItems = completed
	schedule.Items = nil
	return r.Schedules.SaveSchedule(schedule)
}

// deductIngredients списывает ингредиенты рецепта со склада
// Списание атомарное с ограничением нулем; рецепт без ингредиентов — no-op
func deductIngredients(r *Repositories, item *models.ProductionItem) error {
	ingredients, err := r.Recipes.GetIngredients(item.RecipeID)
	if err != nil {
		return err
	}

	for _, ing := range ingredients {
		amount := ing.QtyPerUnit * float64(item.Quantity)
		if amount <= 0 {
			continue
		}
		if err := r.Inventory.DeductStock(ing.IngredientID, amount); err != nil {
			return fmt.Errorf("ошибка списания ингредиента %s: %w", ing.IngredientID, err)
		}
		log.Printf("📦 Списано %.2f %s ингредиента %s (позиция %s)",
			amount, ing.Unit, ing.IngredientID, item.ID)
	}
	return nil
}

// validateItemInputs проверяет список позиций: непустой, количества положительные
func validateItemInputs(inputs []ScheduleItemInput) error {
	if len(inputs) == 0 {
		return Validationf("список позиций пуст")
	}
	for i, in := range inputs {
		if in.RecipeID == "" {
			return Validationf("позиция %d: не указан рецепт", i+1)
		}
		if in.Quantity <= 0 {
			return Validationf("позиция %d: количество должно быть положительным, получено %d", i+1, in.Quantity)
		}
	}
	return nil
}

// runInTransaction выполняет функцию в транзакции с повторами
// при конфликтах сериализации (по образцу конкурентного сохранения заказов)
func (s *SchedulingService) runInTransaction(fn func(r *Repositories) error) error {
	var lastErr error
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		if attempt > 0 {
			// Экспоненциальная задержка с jitter, чтобы конкуренты разошлись
			delay := txRetryDelay * time.Duration(1<<uint(attempt-1))
			delay += time.Duration(rand.Int63n(int64(txRetryDelay)))
			log.Printf("🔄 Повтор транзакции (попытка %d/%d) через %v", attempt+1, maxTxRetries, delay)
			time.Sleep(delay)
		}

		lastErr = s.uow.Do(fn)
		if lastErr == nil {
			return nil
		}
		if !isSerializationFailure(lastErr) {
			return lastErr
		}
	}

	log.Printf("❌ Транзакция не выполнена после %d попыток: %v", maxTxRetries, lastErr)
	return fmt.Errorf("конфликт сериализации после %d попыток: %w", maxTxRetries, ErrTransactionFailed)
}

// isSerializationFailure распознает конфликты сериализации PostgreSQL
// 40001 — serialization_failure, 40P01 — deadlock_detected
func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}

	msg := err.Error()
	return strings.Contains(msg, "could not serialize access") ||
		strings.Contains(msg, "deadlock detected")
}

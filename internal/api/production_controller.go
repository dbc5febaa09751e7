package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bakehouse/server/internal/models"
	"bakehouse/server/internal/services"
)

// ProductionController HTTP API движка производства
type ProductionController struct {
	scheduling  *services.SchedulingService
	consumption *services.ConsumptionService
}

// NewProductionController создает контроллер производства
func NewProductionController(scheduling *services.SchedulingService, consumption *services.ConsumptionService) *ProductionController {
	return &ProductionController{
		scheduling:  scheduling,
		consumption: consumption,
	}
}

// RegisterRoutes регистрирует маршруты производства
func (pc *ProductionController) RegisterRoutes(router *gin.RouterGroup) {
	production := router.Group("/production")
	{
		production.POST("/schedules", pc.CreateSchedule)
		production.POST("/schedules/from-order", pc.CreateScheduleFromOrder)
		production.GET("/schedules", pc.ListSchedules)
		production.GET("/schedules/:id", pc.GetSchedule)
		production.PUT("/schedules/:id", pc.UpdateSchedule)
		production.DELETE("/schedules/:id", pc.DeleteSchedule)

		production.GET("/items/:id", pc.GetItem)
		production.PUT("/items/:id", pc.UpdateItem)
		production.POST("/items/:id/start", pc.StartItem)
		production.POST("/items/:id/complete", pc.CompleteItem)

		production.GET("/consumption", pc.ListConsumption)
		production.POST("/consumption/recalculate", pc.RecalculateConsumption)
	}
}

type createScheduleRequest struct {
	Date      string                       `json:"date" binding:"required"`
	Notes     string                       `json:"notes"`
	CreatedBy string                       `json:"created_by"`
	Items     []services.ScheduleItemInput `json:"items" binding:"required"`
}

// POST /api/v1/production/schedules
// Создает расписание производства; нехватка ингредиентов возвращается
// предупреждениями, не ошибкой
func (pc *ProductionController) CreateSchedule(c *gin.Context) {
	var req createScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные запроса", "details": err.Error()})
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректная дата, ожидается YYYY-MM-DD", "details": err.Error()})
		return
	}

	schedule, warnings, err := pc.scheduling.CreateSchedule(services.CreateScheduleRequest{
		Date:      date,
		Notes:     req.Notes,
		CreatedBy: req.CreatedBy,
		Items:     req.Items,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"schedule": schedule,
		"warnings": warnings,
	})
}

type createFromOrderRequest struct {
	OrderKind string `json:"order_kind" binding:"required"`
	OrderID   string `json:"order_id" binding:"required"`
	Date      string `json:"date" binding:"required"`
	CreatedBy string `json:"created_by"`
}

// POST /api/v1/production/schedules/from-order
// Создает расписание из заказа; все товары заказа должны иметь рецепт
func (pc *ProductionController) CreateScheduleFromOrder(c *gin.Context) {
	var req createFromOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные запроса", "details": err.Error()})
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректная дата, ожидается YYYY-MM-DD", "details": err.Error()})
		return
	}

	schedule, warnings, err := pc.scheduling.CreateScheduleFromOrder(
		models.OrderKind(req.OrderKind), req.OrderID, date, req.CreatedBy)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"schedule": schedule,
		"warnings": warnings,
	})
}

// GET /api/v1/production/schedules?from=YYYY-MM-DD&to=YYYY-MM-DD
func (pc *ProductionController) ListSchedules(c *gin.Context) {
	var from, to *time.Time

	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректный параметр from", "details": err.Error()})
			return
		}
		from = &parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректный параметр to", "details": err.Error()})
			return
		}
		to = &parsed
	}

	schedules, err := pc.scheduling.ListSchedules(from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"schedules": schedules,
		"count":     len(schedules),
	})
}

// GET /api/v1/production/schedules/:id
func (pc *ProductionController) GetSchedule(c *gin.Context) {
	schedule, err := pc.scheduling.GetSchedule(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedule)
}

// PUT /api/v1/production/schedules/:id
func (pc *ProductionController) UpdateSchedule(c *gin.Context) {
	var body struct {
		Date  *string                       `json:"date"`
		Notes *string                       `json:"notes"`
		Items *[]services.ScheduleItemInput `json:"items"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные запроса", "details": err.Error()})
		return
	}

	patch := services.SchedulePatch{Notes: body.Notes, Items: body.Items}
	if body.Date != nil {
		parsed, err := time.Parse("2006-01-02", *body.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректная дата, ожидается YYYY-MM-DD", "details": err.Error()})
			return
		}
		patch.Date = &parsed
	}

	schedule, err := pc.scheduling.UpdateSchedule(c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedule)
}

// DELETE /api/v1/production/schedules/:id
func (pc *ProductionController) DeleteSchedule(c *gin.Context) {
	if err := pc.scheduling.DeleteSchedule(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Расписание удалено"})
}

// GET /api/v1/production/items/:id
func (pc *ProductionController) GetItem(c *gin.Context) {
	item, err := pc.scheduling.GetItem(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// PUT /api/v1/production/items/:id
// Частичное обновление позиции; переход в completed запускает
// списание склада и каскад статуса заказа
func (pc *ProductionController) UpdateItem(c *gin.Context) {
	var patch services.ItemPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные запроса", "details": err.Error()})
		return
	}

	item, err := pc.scheduling.UpdateItem(c.Param("id"), patch)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// POST /api/v1/production/items/:id/start
func (pc *ProductionController) StartItem(c *gin.Context) {
	var body struct {
		AssignedTo string `json:"assigned_to"`
	}
	// Тело опционально
	_ = c.ShouldBindJSON(&body)

	item, err := pc.scheduling.StartItem(c.Param("id"), body.AssignedTo)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// POST /api/v1/production/items/:id/complete
func (pc *ProductionController) CompleteItem(c *gin.Context) {
	var body struct {
		QualityCheck bool   `json:"quality_check"`
		QualityNotes string `json:"quality_notes"`
	}
	// Тело опционально
	_ = c.ShouldBindJSON(&body)

	item, err := pc.scheduling.CompleteItem(c.Param("id"), body.QualityCheck, body.QualityNotes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// GET /api/v1/production/consumption
func (pc *ProductionController) ListConsumption(c *gin.Context) {
	records, err := pc.consumption.ListConsumption()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"consumption": records,
		"count":       len(records),
	})
}

// POST /api/v1/production/consumption/recalculate
// Запускает пересчет расхода вне расписания фоновой задачи
func (pc *ProductionController) RecalculateConsumption(c *gin.Context) {
	if err := pc.consumption.Recalculate(); err != nil {
		respondError(c, err)
		return
	}

	records, err := pc.consumption.ListConsumption()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "Пересчет расхода выполнен",
		"consumption": records,
	})
}

// respondError отображает категорию ошибки в HTTP статус
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Не найдено", "details": err.Error()})
	case errors.Is(err, services.ErrBadRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректный запрос", "details": err.Error()})
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Ошибка валидации", "details": err.Error()})
	case errors.Is(err, services.ErrTransactionFailed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Сервис временно перегружен, попробуйте позже", "details": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Внутренняя ошибка сервера", "details": err.Error()})
	}
}

package repositories

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"bakehouse/server/internal/models"
)

// scheduleRepository хранилище расписаний производства на PostgreSQL
type scheduleRepository struct {
	db *gorm.DB
}

func (r *scheduleRepository) CreateSchedule(schedule *models.ProductionSchedule, items []models.ProductionItem) error {
	if err := r.db.Create(schedule).Error; err != nil {
		return err
	}

	for i := range items {
		items[i].ScheduleID = schedule.ID
	}
	if len(items) > 0 {
		if err := r.db.Create(&items).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *scheduleRepository) GetSchedule(id string) (*models.ProductionSchedule, error) {
	var schedule models.ProductionSchedule
	err := r.db.Preload("Items").First(&schedule, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *scheduleRepository) ListSchedules(from, to *time.Time) ([]models.ProductionSchedule, error) {
	query := r.db.Preload("Items").Order("date ASC")
	if from != nil {
		query = query.Where("date >= ?", from.Format("2006-01-02"))
	}
	if to != nil {
		query = query.Where("date <= ?", to.Format("2006-01-02"))
	}

	var schedules []models.ProductionSchedule
	if err := query.Find(&schedules).Error; err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *scheduleRepository) SaveSchedule(schedule *models.ProductionSchedule) error {
	return r.db.Omit("Items").Save(schedule).Error
}

func (r *scheduleRepository) DeleteSchedule(id string) error {
	// Позиции удаляются вместе с расписанием
	if err := r.db.Where("schedule_id = ?", id).Delete(&models.ProductionItem{}).Error; err != nil {
		return err
	}
	return r.db.Delete(&models.ProductionSchedule{}, "id = ?", id).Error
}

func (r *scheduleRepository) GetItem(id string) (*models.ProductionItem, error) {
	var item models.ProductionItem
	err := r.db.First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *scheduleRepository) GetItems(scheduleID string) ([]models.ProductionItem, error) {
	var items []models.ProductionItem
	err := r.db.Where("schedule_id = ?", scheduleID).
		Order("scheduled_time ASC, created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *scheduleRepository) SaveItem(item *models.ProductionItem) error {
	return r.db.Save(item).Error
}

func (r *scheduleRepository) ReplaceItems(scheduleID string, items []models.ProductionItem) error {
	if err := r.db.Where("schedule_id = ?", scheduleID).Delete(&models.ProductionItem{}).Error; err != nil {
		return err
	}

	for i := range items {
		items[i].ScheduleID = scheduleID
	}
	if len(items) > 0 {
		if err := r.db.Create(&items).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *scheduleRepository) ListCompletedItems(since time.Time) ([]models.ProductionItem, error) {
	var items []models.ProductionItem
	err := r.db.Where("status = ? AND completed_time >= ?", models.StatusCompleted, since).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

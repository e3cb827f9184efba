package board

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var (
	// ErrTaskNotFound is returned when a task is not found.
	ErrTaskNotFound = errors.New("task not found")
	// ErrNotAssigned is returned when a user completes a task they are not assigned to.
	ErrNotAssigned = errors.New("task is not assigned to this user")
)

// Repository provides access to task storage.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new task repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Migrate creates the tasks and assignments tables.
func (r *Repository) Migrate() error {
	return r.db.AutoMigrate(&TaskRecord{}, &AssignmentRecord{})
}

// Create saves a new task with its assignments.
func (r *Repository) Create(record *TaskRecord) error {
	if err := r.db.Create(record).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// FindByID retrieves a task by its ID.
func (r *Repository) FindByID(id string) (*TaskRecord, error) {
	var record TaskRecord
	if err := r.withAssignments(r.db).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return &record, nil
}

// FindAll retrieves all tasks, oldest first.
func (r *Repository) FindAll() ([]TaskRecord, error) {
	var records []TaskRecord
	if err := r.withAssignments(r.db).Order("created_at asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to find tasks: %w", err)
	}
	return records, nil
}

// FindAssignedTo retrieves the tasks userID is assigned to, oldest first.
func (r *Repository) FindAssignedTo(userID string) ([]TaskRecord, error) {
	assigned := r.db.Model(&AssignmentRecord{}).Select("task_id").Where("user_id = ?", userID)

	var records []TaskRecord
	if err := r.withAssignments(r.db).
		Where("id IN (?)", assigned).
		Order("created_at asc").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to find tasks for %s: %w", userID, err)
	}
	return records, nil
}

// Replace overwrites the fields and the assignment list of a task.
func (r *Repository) Replace(record *TaskRecord) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&TaskRecord{}).Where("id = ?", record.ID).Updates(map[string]any{
			"title":       record.Title,
			"description": record.Description,
			"updated_at":  time.Now(),
		})
		if err := result.Error; err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}
		if result.RowsAffected == 0 {
			return ErrTaskNotFound
		}

		if err := tx.Where("task_id = ?", record.ID).Delete(&AssignmentRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear assignments: %w", err)
		}
		if len(record.Assignments) == 0 {
			return nil
		}
		if err := tx.Create(&record.Assignments).Error; err != nil {
			return fmt.Errorf("failed to store assignments: %w", err)
		}
		return nil
	})
}

// MarkCompleted sets the completed flag of one assignment.
func (r *Repository) MarkCompleted(taskID, userID string) error {
	result := r.db.Model(&AssignmentRecord{}).
		Where("task_id = ? AND user_id = ?", taskID, userID).
		Update("completed", true)
	if err := result.Error; err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// Either the task is missing or the user is not on it.
	if _, err := r.FindByID(taskID); err != nil {
		return err
	}
	return ErrNotAssigned
}

// Delete removes a task and its assignments.
func (r *Repository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&AssignmentRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete assignments: %w", err)
		}
		result := tx.Delete(&TaskRecord{}, "id = ?", id)
		if err := result.Error; err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}
		if result.RowsAffected == 0 {
			return ErrTaskNotFound
		}
		return nil
	})
}

func (r *Repository) withAssignments(db *gorm.DB) *gorm.DB {
	return db.Preload("Assignments", func(db *gorm.DB) *gorm.DB {
		return db.Order("position asc")
	})
}

package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BuildFund/New-Main-sub000/internal/db"
	"github.com/BuildFund/New-Main-sub000/internal/models"
)

// TaskRepository defines the interface for deal task persistence
type TaskRepository interface {
	Create(ctx context.Context, task *models.DealTask) (*models.DealTask, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.DealTask, error)
	FindByDeal(ctx context.Context, dealID uuid.UUID) ([]*models.DealTask, error)
	FindByStage(ctx context.Context, stageID uuid.UUID) ([]*models.DealTask, error)
	Update(ctx context.Context, task *models.DealTask) (*models.DealTask, error)
	Complete(ctx context.Context, taskID uuid.UUID, completedBy string) (*models.DealTask, error)
	FindDependenciesByDeal(ctx context.Context, dealID uuid.UUID) ([]models.TaskDependency, error)
	FindBlockingTasks(ctx context.Context, taskID uuid.UUID) ([]*models.DealTask, error)
	FindDependents(ctx context.Context, taskID uuid.UUID) ([]*models.DealTask, error)
	CreateDependency(ctx context.Context, dep *models.TaskDependency) (*models.TaskDependency, error)
	FindOverdue(ctx context.Context, asOf time.Time, limit int) ([]*models.DealTask, error)
	MarkOverdueNotified(ctx context.Context, taskID uuid.UUID) error
}

// taskRepository implements TaskRepository
type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

// Create creates a new task
func (r *taskRepository) Create(ctx context.Context, task *models.DealTask) (*models.DealTask, error) {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return nil, err
	}
	return task, nil
}

// GetByID gets a task by ID
func (r *taskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DealTask, error) {
	var task models.DealTask
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error
	if err != nil {
		if db.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

// FindByDeal finds all tasks of a deal
func (r *taskRepository) FindByDeal(ctx context.Context, dealID uuid.UUID) ([]*models.DealTask, error) {
	var tasks []*models.DealTask
	err := r.db.WithContext(ctx).
		Where("deal_id = ?", dealID).
		Order("created_at").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// FindByStage finds all tasks of a stage
func (r *taskRepository) FindByStage(ctx context.Context, stageID uuid.UUID) ([]*models.DealTask, error) {
	var tasks []*models.DealTask
	err := r.db.WithContext(ctx).
		Where("stage_id = ?", stageID).
		Order("created_at").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// Update updates a task
func (r *taskRepository) Update(ctx context.Context, task *models.DealTask) (*models.DealTask, error) {
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return nil, err
	}
	return task, nil
}

// Complete marks a task completed. The task row is locked and the
// dependency check re-runs inside the transaction so a dependency
// reopened concurrently cannot slip through.
func (r *taskRepository) Complete(ctx context.Context, taskID uuid.UUID, completedBy string) (*models.DealTask, error) {
	var task models.DealTask
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", taskID).
			First(&task).Error
		if err != nil {
			if db.IsRecordNotFoundError(err) {
				return ErrNotFound
			}
			return err
		}

		var blocking int64
		err = tx.Model(&models.DealTask{}).
			Joins("JOIN task_dependencies td ON td.depends_on_id = deal_tasks.id").
			Where("td.task_id = ?", taskID).
			Where("deal_tasks.status NOT IN ?", []models.TaskStatus{models.TaskCompleted, models.TaskCancelled}).
			Count(&blocking).Error
		if err != nil {
			return err
		}
		if blocking > 0 {
			return ErrDependenciesUnmet
		}

		now := time.Now()
		task.Status = models.TaskCompleted
		task.CompletedAt = &now
		task.CompletedBy = completedBy
		return tx.Save(&task).Error
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// FindDependenciesByDeal loads every dependency edge of a deal's tasks
func (r *taskRepository) FindDependenciesByDeal(ctx context.Context, dealID uuid.UUID) ([]models.TaskDependency, error) {
	var deps []models.TaskDependency
	err := r.db.WithContext(ctx).
		Joins("JOIN deal_tasks ON deal_tasks.id = task_dependencies.task_id").
		Where("deal_tasks.deal_id = ?", dealID).
		Find(&deps).Error
	if err != nil {
		return nil, err
	}
	return deps, nil
}

// FindBlockingTasks returns the uncompleted tasks the given task
// depends on
func (r *taskRepository) FindBlockingTasks(ctx context.Context, taskID uuid.UUID) ([]*models.DealTask, error) {
	var tasks []*models.DealTask
	err := r.db.WithContext(ctx).
		Joins("JOIN task_dependencies td ON td.depends_on_id = deal_tasks.id").
		Where("td.task_id = ?", taskID).
		Where("deal_tasks.status NOT IN ?", []models.TaskStatus{models.TaskCompleted, models.TaskCancelled}).
		Order("deal_tasks.created_at").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// FindDependents returns the tasks that directly depend on the given
// task, used for unblock cascades after completion
func (r *taskRepository) FindDependents(ctx context.Context, taskID uuid.UUID) ([]*models.DealTask, error) {
	var tasks []*models.DealTask
	err := r.db.WithContext(ctx).
		Joins("JOIN task_dependencies td ON td.task_id = deal_tasks.id").
		Where("td.depends_on_id = ?", taskID).
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// CreateDependency persists a dependency edge. Cycle checks belong to
// the caller; the unique index catches duplicate edges.
func (r *taskRepository) CreateDependency(ctx context.Context, dep *models.TaskDependency) (*models.TaskDependency, error) {
	if dep.ID == uuid.Nil {
		dep.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(dep).Error; err != nil {
		if IsDuplicateKeyError(err) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}
	return dep, nil
}

// FindOverdue finds open tasks past their due date that have not been
// flagged yet
func (r *taskRepository) FindOverdue(ctx context.Context, asOf time.Time, limit int) ([]*models.DealTask, error) {
	var tasks []*models.DealTask
	err := r.db.WithContext(ctx).
		Where("due_date IS NOT NULL AND due_date < ?", asOf).
		Where("status IN ?", []models.TaskStatus{models.TaskPending, models.TaskInProgress, models.TaskBlocked}).
		Where("overdue_notified = ?", false).
		Order("due_date").
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// MarkOverdueNotified flags a task so the sweep does not renotify
func (r *taskRepository) MarkOverdueNotified(ctx context.Context, taskID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.DealTask{}).
		Where("id = ?", taskID).
		Update("overdue_notified", true).Error
}

package work

import (
	"context"
	"strings"
	"time"

	"project-management-api/internal/apperr"
	"project-management-api/internal/metrics"
	"project-management-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TaskDraft struct {
	Title       string
	Description string
	Priority    models.Priority
	ProjectID   uint
	CreatedByID uint
	AssigneeIDs []uint
	StartDate   *time.Time
	EndDate     *time.Time
}

// TaskPatch carries only the fields to change. AssigneeIDs, when present,
// replaces the whole assignment set.
type TaskPatch struct {
	Title       *string
	Description *string
	Priority    *models.Priority
	ProjectID   *uint
	StartDate   *time.Time
	EndDate     *time.Time
	AssigneeIDs *[]uint
}

type TaskFilter struct {
	ProjectID   *uint
	EmployeeID  *uint
	CreatedByID *uint
	Priority    *models.Priority
}

func loadTask(tx *gorm.DB, id uint) (TaskView, error) {
	var t models.Task
	err := tx.
		Preload("Project").
		Preload("CreatedBy").
		Preload("AssignedEmployees", func(db *gorm.DB) *gorm.DB { return db.Order("employees.id") }).
		Preload("SubTasks", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("SubTasks.AssignedTo").
		First(&t, id).Error
	if err != nil {
		return TaskView{}, apperr.FromLookup(err, "task", id)
	}
	return toTaskView(t), nil
}

func addAssignments(tx *gorm.DB, taskID uint, employeeIDs []uint) error {
	if len(employeeIDs) == 0 {
		return nil
	}
	rows := make([]models.TaskAssignment, 0, len(employeeIDs))
	for _, id := range employeeIDs {
		rows = append(rows, models.TaskAssignment{TaskID: taskID, EmployeeID: id})
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func (s *Service) CreateTask(ctx context.Context, draft TaskDraft) (view TaskView, err error) {
	defer func(start time.Time) { metrics.ObserveOp("work.create_task", start, err) }(time.Now())
	s.logger.Debugw("CreateTask()", "projectID", draft.ProjectID, "createdBy", draft.CreatedByID)

	if err := validateEnums(nil, &draft.Priority); err != nil {
		return TaskView{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := requireProject(tx, draft.ProjectID); err != nil {
			return err
		}
		if err := resolveOptionalEmployee(tx, &draft.CreatedByID); err != nil {
			return err
		}
		assignees, err := resolveEmployees(tx, draft.AssigneeIDs)
		if err != nil {
			return err
		}

		t := models.Task{
			Title:       draft.Title,
			Description: strings.TrimSpace(draft.Description),
			Priority:    draft.Priority,
			ProjectID:   draft.ProjectID,
			CreatedByID: draft.CreatedByID,
			StartDate:   draft.StartDate,
			EndDate:     draft.EndDate,
		}
		if err := tx.Omit(clause.Associations).Create(&t).Error; err != nil {
			return err
		}
		if err := addAssignments(tx, t.ID, assignees); err != nil {
			return err
		}
		view, err = loadTask(tx, t.ID)
		return err
	})
	if err != nil {
		s.logger.Warnw("failed to create task", "projectID", draft.ProjectID, "err", err)
		return TaskView{}, err
	}

	s.logger.Infow("task created", "taskID", view.ID, "projectID", view.ProjectID)
	return view, nil
}

func (s *Service) UpdateTask(ctx context.Context, id uint, patch TaskPatch) (view TaskView, err error) {
	defer func(start time.Time) { metrics.ObserveOp("work.update_task", start, err) }(time.Now())
	s.logger.Debugw("UpdateTask()", "taskID", id)

	if err := validateEnums(nil, patch.Priority); err != nil {
		return TaskView{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := RequireTask(tx, id)
		if err != nil {
			return err
		}
		if patch.Title != nil {
			t.Title = *patch.Title
		}
		if patch.Description != nil {
			t.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.Priority != nil {
			t.Priority = *patch.Priority
		}
		if patch.ProjectID != nil {
			if _, err := requireProject(tx, *patch.ProjectID); err != nil {
				return err
			}
			t.ProjectID = *patch.ProjectID
		}
		if patch.StartDate != nil {
			t.StartDate = patch.StartDate
		}
		if patch.EndDate != nil {
			t.EndDate = patch.EndDate
		}
		if err := tx.Omit(clause.Associations).Save(&t).Error; err != nil {
			return err
		}

		if patch.AssigneeIDs != nil {
			assignees, err := resolveEmployees(tx, *patch.AssigneeIDs)
			if err != nil {
				return err
			}
			if err := tx.Where("task_id = ?", id).Delete(&models.TaskAssignment{}).Error; err != nil {
				return err
			}
			if err := addAssignments(tx, id, assignees); err != nil {
				return err
			}
		}
		view, err = loadTask(tx, id)
		return err
	})
	if err != nil {
		s.logger.Warnw("failed to update task", "taskID", id, "err", err)
		return TaskView{}, err
	}
	return view, nil
}

// AssignEmployees adds employees to the task. Existing assignments are kept.
func (s *Service) AssignEmployees(ctx context.Context, taskID uint, employeeIDs []uint) (view TaskView, err error) {
	defer func(start time.Time) { metrics.ObserveOp("work.assign_employees", start, err) }(time.Now())
	s.logger.Debugw("AssignEmployees()", "taskID", taskID, "employeeIDs", employeeIDs)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := RequireTask(tx, taskID); err != nil {
			return err
		}
		assignees, err := resolveEmployees(tx, employeeIDs)
		if err != nil {
			return err
		}
		if err := addAssignments(tx, taskID, assignees); err != nil {
			return err
		}
		view, err = loadTask(tx, taskID)
		return err
	})
	if err != nil {
		s.logger.Warnw("failed to assign employees", "taskID", taskID, "err", err)
		return TaskView{}, err
	}
	return view, nil
}

// UnassignEmployee drops one assignment. Removing an absent one is a no-op.
func (s *Service) UnassignEmployee(ctx context.Context, taskID, employeeID uint) (view TaskView, err error) {
	defer func(start time.Time) { metrics.ObserveOp("work.unassign_employee", start, err) }(time.Now())
	s.logger.Debugw("UnassignEmployee()", "taskID", taskID, "employeeID", employeeID)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := RequireTask(tx, taskID); err != nil {
			return err
		}
		err := tx.Where("task_id = ? AND employee_id = ?", taskID, employeeID).
			Delete(&models.TaskAssignment{}).Error
		if err != nil {
			return err
		}
		view, err = loadTask(tx, taskID)
		return err
	})
	if err != nil {
		s.logger.Warnw("failed to unassign employee", "taskID", taskID, "employeeID", employeeID, "err", err)
		return TaskView{}, err
	}
	return view, nil
}

// DeleteTask removes the task, its subtasks, its attachment records and its
// assignments in one transaction, then purges the stored files.
func (s *Service) DeleteTask(ctx context.Context, id uint) (view TaskView, err error) {
	defer func(start time.Time) { metrics.ObserveOp("work.delete_task", start, err) }(time.Now())
	s.logger.Debugw("DeleteTask()", "taskID", id)

	var locators []string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if view, err = loadTask(tx, id); err != nil {
			return err
		}
		locators, err = deleteTasks(tx, []uint{id})
		return err
	})
	if err != nil {
		s.logger.Warnw("failed to delete task", "taskID", id, "err", err)
		return TaskView{}, err
	}

	s.purge(ctx, locators)
	s.logger.Infow("task deleted", "taskID", id, "subTasks", len(view.SubTasks))
	return view, nil
}

func (s *Service) GetTask(ctx context.Context, id uint) (TaskView, error) {
	return loadTask(s.db.WithContext(ctx), id)
}

func (s *Service) ListTasks(ctx context.Context, f TaskFilter) ([]TaskView, error) {
	q := s.db.WithContext(ctx).
		Preload("Project").
		Preload("CreatedBy").
		Preload("AssignedEmployees", func(db *gorm.DB) *gorm.DB { return db.Order("employees.id") }).
		Preload("SubTasks", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("SubTasks.AssignedTo")
	if f.ProjectID != nil {
		q = q.Where("project_id = ?", *f.ProjectID)
	}
	if f.CreatedByID != nil {
		q = q.Where("created_by_id = ?", *f.CreatedByID)
	}
	if f.Priority != nil {
		q = q.Where("priority = ?", *f.Priority)
	}
	if f.EmployeeID != nil {
		q = q.Where("id IN (?)", s.db.WithContext(ctx).Model(&models.TaskAssignment{}).Select("task_id").Where("employee_id = ?", *f.EmployeeID))
	}

	var tasks []models.Task
	if err := q.Order("id").Find(&tasks).Error; err != nil {
		s.logger.Errorw("failed to list tasks", "err", err)
		return nil, err
	}
	out := make([]TaskView, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskView(t))
	}
	return out, nil
}

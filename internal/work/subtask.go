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

type SubTaskDraft struct {
	Name         string
	Description  string
	Status       models.Status
	AssignedToID *uint
	TaskID       uint
}

// SubTaskPatch carries only the fields to change. AssignedToID of 0 clears
// the assignee. A present Status goes through the same transition as
// UpdateSubTaskStatus.
type SubTaskPatch struct {
	Name         *string
	Description  *string
	Status       *models.Status
	AssignedToID *uint
}

type SubTaskFilter struct {
	TaskID       *uint
	Status       *models.Status
	AssignedToID *uint
}

func loadSubTask(tx *gorm.DB, id uint) (SubTaskView, error) {
	var st models.SubTask
	if err := tx.Preload("AssignedTo").Preload("Task").First(&st, id).Error; err != nil {
		return SubTaskView{}, apperr.FromLookup(err, "subtask", id)
	}
	return toSubTaskView(st), nil
}

func requireSubTask(tx *gorm.DB, id uint) (models.SubTask, error) {
	var st models.SubTask
	err := tx.First(&st, id).Error
	return st, apperr.FromLookup(err, "subtask", id)
}

// CreateSubTask stores a subtask under an existing task. Status defaults to
// TODO and the start date is stamped now.
func (s *Service) CreateSubTask(ctx context.Context, draft SubTaskDraft) (view SubTaskView, err error) {
	defer func(start time.Time) { metrics.ObserveOp("work.create_subtask", start, err) }(time.Now())
	s.logger.Debugw("CreateSubTask()", "taskID", draft.TaskID, "status", draft.Status)

	if err := validateEnums(&draft.Status, nil); err != nil {
		return SubTaskView{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := RequireTask(tx, draft.TaskID); err != nil {
			return err
		}
		if err := resolveOptionalEmployee(tx, draft.AssignedToID); err != nil {
			return err
		}

		st := models.SubTask{
			Name:        draft.Name,
			Description: strings.TrimSpace(draft.Description),
			Status:      draft.Status,
			TaskID:      draft.TaskID,
		}
		if present(draft.AssignedToID) {
			st.AssignedToID = draft.AssignedToID
		}
		if err := tx.Omit(clause.Associations).Create(&st).Error; err != nil {
			return err
		}
		view, err = loadSubTask(tx, st.ID)
		return err
	})
	if err != nil {
		s.logger.Warnw("failed to create subtask", "taskID", draft.TaskID, "err", err)
		return SubTaskView{}, err
	}
	return view, nil
}

func (s *Service) UpdateSubTask(ctx context.Context, id uint, patch SubTaskPatch) (view SubTaskView, err error) {
	defer func(start time.Time) { metrics.ObserveOp("work.update_subtask", start, err) }(time.Now())
	s.logger.Debugw("UpdateSubTask()", "subTaskID", id)

	if err := validateEnums(patch.Status, nil); err != nil {
		return SubTaskView{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st, err := requireSubTask(tx, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			st.Name = *patch.Name
		}
		if patch.Description != nil {
			st.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.AssignedToID != nil {
			if err := resolveOptionalEmployee(tx, patch.AssignedToID); err != nil {
				return err
			}
			st.AssignedToID = nil
			if present(patch.AssignedToID) {
				st.AssignedToID = patch.AssignedToID
			}
		}
		if patch.Status != nil && *patch.Status != "" {
			st.TransitionTo(*patch.Status)
		}
		if err := tx.Omit(clause.Associations).Save(&st).Error; err != nil {
			return err
		}
		view, err = loadSubTask(tx, id)
		return err
	})
	if err != nil {
		s.logger.Warnw("failed to update subtask", "subTaskID", id, "err", err)
		return SubTaskView{}, err
	}
	return view, nil
}

// UpdateSubTaskStatus changes only the status. Every transition stamps the
// update time; a transition to DONE also stamps the end date with the same
// instant, including DONE to DONE.
func (s *Service) UpdateSubTaskStatus(ctx context.Context, id uint, status models.Status) (view SubTaskView, err error) {
	defer func(start time.Time) { metrics.ObserveOp("work.update_subtask_status", start, err) }(time.Now())
	s.logger.Debugw("UpdateSubTaskStatus()", "subTaskID", id, "status", status)

	if !status.Valid() {
		return SubTaskView{}, apperr.Validation("invalid status %q", status)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st, err := requireSubTask(tx, id)
		if err != nil {
			return err
		}
		st.TransitionTo(status)
		if err := tx.Omit(clause.Associations).Save(&st).Error; err != nil {
			return err
		}
		view, err = loadSubTask(tx, id)
		return err
	})
	if err != nil {
		s.logger.Warnw("failed to update subtask status", "subTaskID", id, "err", err)
		return SubTaskView{}, err
	}
	return view, nil
}

func (s *Service) DeleteSubTask(ctx context.Context, id uint) (view SubTaskView, err error) {
	defer func(start time.Time) { metrics.ObserveOp("work.delete_subtask", start, err) }(time.Now())
	s.logger.Debugw("DeleteSubTask()", "subTaskID", id)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if view, err = loadSubTask(tx, id); err != nil {
			return err
		}
		return tx.Delete(&models.SubTask{}, id).Error
	})
	if err != nil {
		s.logger.Warnw("failed to delete subtask", "subTaskID", id, "err", err)
		return SubTaskView{}, err
	}
	return view, nil
}

func (s *Service) GetSubTask(ctx context.Context, id uint) (SubTaskView, error) {
	return loadSubTask(s.db.WithContext(ctx), id)
}

func (s *Service) ListSubTasks(ctx context.Context, f SubTaskFilter) ([]SubTaskView, error) {
	q := s.db.WithContext(ctx).Preload("AssignedTo").Preload("Task")
	if f.TaskID != nil {
		q = q.Where("task_id = ?", *f.TaskID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.AssignedToID != nil {
		q = q.Where("assigned_to_id = ?", *f.AssignedToID)
	}

	var subs []models.SubTask
	if err := q.Order("id").Find(&subs).Error; err != nil {
		s.logger.Errorw("failed to list subtasks", "err", err)
		return nil, err
	}
	out := make([]SubTaskView, 0, len(subs))
	for _, st := range subs {
		out = append(out, toSubTaskView(st))
	}
	return out, nil
}

// SubTaskProgress counts done subtasks against all subtasks of the task.
func (s *Service) SubTaskProgress(ctx context.Context, taskID uint) (Progress, error) {
	db := s.db.WithContext(ctx)
	if _, err := RequireTask(db, taskID); err != nil {
		return Progress{}, err
	}

	p := Progress{TaskID: taskID}
	if err := db.Model(&models.SubTask{}).Where("task_id = ?", taskID).Count(&p.Total).Error; err != nil {
		return Progress{}, err
	}
	err := db.Model(&models.SubTask{}).
		Where("task_id = ? AND status = ?", taskID, models.StatusDone).
		Count(&p.Done).Error
	if err != nil {
		return Progress{}, err
	}
	if p.Total > 0 {
		p.Percent = float64(p.Done) * 100 / float64(p.Total)
	}
	return p, nil
}

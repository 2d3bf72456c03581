package work

import (
	"context"
	"strings"
	"time"

	"project-management-api/internal/apperr"
	"project-management-api/internal/metrics"
	"project-management-api/internal/models"
	"project-management-api/internal/team"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProjectDraft is the input of CreateProject. Zero ids mean absent.
type ProjectDraft struct {
	Name              string
	Description       string
	Status            models.Status
	Priority          models.Priority
	StartDate         *time.Time
	EndDate           *time.Time
	Progress          float64
	CreatedByID       *uint
	AssignedManagerID *uint
	EmployeeID        *uint
	TeamID            *uint
}

// ProjectPatch carries only the fields to change. An EmployeeID or TeamID
// of 0 clears that owner.
type ProjectPatch struct {
	Name              *string
	Description       *string
	Status            *models.Status
	Priority          *models.Priority
	StartDate         *time.Time
	EndDate           *time.Time
	ActualEndDate     *time.Time
	Progress          *float64
	AssignedManagerID *uint
	EmployeeID        *uint
	TeamID            *uint
}

// ProjectFilter narrows ListProjects. Nil fields do not filter.
type ProjectFilter struct {
	Status     *models.Status
	Priority   *models.Priority
	EmployeeID *uint
	ManagerID  *uint
	TeamID     *uint
}

func present(id *uint) bool {
	return id != nil && *id != 0
}

func validateEnums(status *models.Status, priority *models.Priority) error {
	if status != nil && *status != "" && !status.Valid() {
		return apperr.Validation("invalid status %q", *status)
	}
	if priority != nil && *priority != "" && !priority.Valid() {
		return apperr.Validation("invalid priority %q", *priority)
	}
	return nil
}

func loadProject(tx *gorm.DB, id uint) (ProjectView, error) {
	var p models.Project
	err := tx.
		Preload("CreatedBy").
		Preload("AssignedManager").
		Preload("Employee").
		Preload("Team.Members").
		Preload("Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&p, id).Error
	if err != nil {
		return ProjectView{}, apperr.FromLookup(err, "project", id)
	}
	return toProjectView(p), nil
}

// assignOwner applies the requested owner ids. When both are given the
// employee wins and the team is dropped.
func (s *Service) assignOwner(tx *gorm.DB, p *models.Project, employeeID, teamID *uint) error {
	if employeeID != nil && teamID != nil && *employeeID != 0 && *teamID != 0 {
		s.logger.Warnw("project given both employee and team, keeping employee",
			"projectID", p.ID, "employeeID", *employeeID, "teamID", *teamID)
		teamID = nil
	}

	switch {
	case present(employeeID):
		if err := resolveOptionalEmployee(tx, employeeID); err != nil {
			return err
		}
		p.AssignToEmployee(*employeeID)
	case employeeID != nil:
		p.EmployeeID = nil
	}

	switch {
	case present(teamID):
		if _, err := team.RequireTeam(tx, *teamID); err != nil {
			return err
		}
		p.AssignToTeam(*teamID)
	case teamID != nil:
		p.TeamID = nil
	}
	return nil
}

func (s *Service) CreateProject(ctx context.Context, draft ProjectDraft) (view ProjectView, err error) {
	defer func(start time.Time) { metrics.ObserveOp("work.create_project", start, err) }(time.Now())
	s.logger.Debugw("CreateProject()", "name", draft.Name, "employeeID", draft.EmployeeID, "teamID", draft.TeamID)

	if err := validateEnums(&draft.Status, &draft.Priority); err != nil {
		return ProjectView{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := resolveOptionalEmployee(tx, draft.CreatedByID); err != nil {
			return err
		}
		if err := resolveOptionalEmployee(tx, draft.AssignedManagerID); err != nil {
			return err
		}

		p := models.Project{
			Name:        draft.Name,
			Description: strings.TrimSpace(draft.Description),
			Status:      draft.Status,
			Priority:    draft.Priority,
			StartDate:   draft.StartDate,
			EndDate:     draft.EndDate,
			Progress:    draft.Progress,
		}
		if present(draft.CreatedByID) {
			p.CreatedByID = draft.CreatedByID
		}
		if present(draft.AssignedManagerID) {
			p.AssignedManagerID = draft.AssignedManagerID
		}
		if err := s.assignOwner(tx, &p, draft.EmployeeID, draft.TeamID); err != nil {
			return err
		}

		// BeforeSave validates ownership inside this transaction
		if err := tx.Omit(clause.Associations).Create(&p).Error; err != nil {
			return err
		}
		view, err = loadProject(tx, p.ID)
		return err
	})
	if err != nil {
		s.logger.Warnw("failed to create project", "name", draft.Name, "err", err)
		return ProjectView{}, err
	}

	s.logger.Infow("project created", "projectID", view.ID)
	return view, nil
}

// UpdateProject applies the present fields of patch. Tasks are not touched.
// An update that would leave the project with no owner, or two, is rejected.
func (s *Service) UpdateProject(ctx context.Context, id uint, patch ProjectPatch) (view ProjectView, err error) {
	defer func(start time.Time) { metrics.ObserveOp("work.update_project", start, err) }(time.Now())
	s.logger.Debugw("UpdateProject()", "projectID", id)

	if err := validateEnums(patch.Status, patch.Priority); err != nil {
		return ProjectView{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := requireProject(tx, id)
		if err != nil {
			return err
		}

		if patch.Name != nil {
			p.Name = *patch.Name
		}
		if patch.Description != nil {
			p.Description = strings.TrimSpace(*patch.Description)
		}
		if patch.Priority != nil {
			p.Priority = *patch.Priority
		}
		if patch.StartDate != nil {
			p.StartDate = patch.StartDate
		}
		if patch.EndDate != nil {
			p.EndDate = patch.EndDate
		}
		if patch.ActualEndDate != nil {
			p.ActualEndDate = patch.ActualEndDate
		}
		if patch.Progress != nil {
			p.Progress = *patch.Progress
		}
		if patch.Status != nil {
			p.Status = *patch.Status
			if p.Status == models.StatusDone && p.ActualEndDate == nil {
				now := tx.NowFunc()
				p.ActualEndDate = &now
			}
		}
		if patch.AssignedManagerID != nil {
			if err := resolveOptionalEmployee(tx, patch.AssignedManagerID); err != nil {
				return err
			}
			p.AssignedManagerID = nil
			if present(patch.AssignedManagerID) {
				p.AssignedManagerID = patch.AssignedManagerID
			}
		}
		if err := s.assignOwner(tx, &p, patch.EmployeeID, patch.TeamID); err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Save(&p).Error; err != nil {
			return err
		}
		view, err = loadProject(tx, id)
		return err
	})
	if err != nil {
		s.logger.Warnw("failed to update project", "projectID", id, "err", err)
		return ProjectView{}, err
	}
	return view, nil
}

// UpdateProgress sets the completion percentage. Reaching 100 closes the
// project and stamps its actual end date.
func (s *Service) UpdateProgress(ctx context.Context, id uint, progress float64) (view ProjectView, err error) {
	defer func(start time.Time) { metrics.ObserveOp("work.update_progress", start, err) }(time.Now())
	s.logger.Debugw("UpdateProgress()", "projectID", id, "progress", progress)

	if progress < 0 || progress > 100 {
		return ProjectView{}, models.ErrProgressOutOfRange
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := requireProject(tx, id)
		if err != nil {
			return err
		}
		p.Progress = progress
		if progress == 100 {
			now := tx.NowFunc()
			p.Status = models.StatusDone
			p.ActualEndDate = &now
		}
		if err := tx.Omit(clause.Associations).Save(&p).Error; err != nil {
			return err
		}
		view, err = loadProject(tx, id)
		return err
	})
	if err != nil {
		s.logger.Warnw("failed to update project progress", "projectID", id, "err", err)
		return ProjectView{}, err
	}
	return view, nil
}

// DeleteProject removes the project together with its tasks, their subtasks,
// attachment records and assignments. Stored files are purged after commit.
func (s *Service) DeleteProject(ctx context.Context, id uint) (view ProjectView, err error) {
	defer func(start time.Time) { metrics.ObserveOp("work.delete_project", start, err) }(time.Now())
	s.logger.Debugw("DeleteProject()", "projectID", id)

	var locators []string
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if view, err = loadProject(tx, id); err != nil {
			return err
		}
		var taskIDs []uint
		if err := tx.Model(&models.Task{}).Where("project_id = ?", id).Pluck("id", &taskIDs).Error; err != nil {
			return err
		}
		if locators, err = deleteTasks(tx, taskIDs); err != nil {
			return err
		}
		return tx.Delete(&models.Project{}, id).Error
	})
	if err != nil {
		s.logger.Warnw("failed to delete project", "projectID", id, "err", err)
		return ProjectView{}, err
	}

	s.purge(ctx, locators)
	s.logger.Infow("project deleted", "projectID", id, "tasks", len(view.Tasks))
	return view, nil
}

func (s *Service) GetProject(ctx context.Context, id uint) (ProjectView, error) {
	return loadProject(s.db.WithContext(ctx), id)
}

func (s *Service) ListProjects(ctx context.Context, f ProjectFilter) ([]ProjectView, error) {
	q := s.db.WithContext(ctx).
		Preload("CreatedBy").
		Preload("AssignedManager").
		Preload("Employee").
		Preload("Team.Members").
		Preload("Tasks", func(db *gorm.DB) *gorm.DB { return db.Order("id") })
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.Priority != nil {
		q = q.Where("priority = ?", *f.Priority)
	}
	if f.EmployeeID != nil {
		q = q.Where("employee_id = ?", *f.EmployeeID)
	}
	if f.ManagerID != nil {
		q = q.Where("assigned_manager_id = ?", *f.ManagerID)
	}
	if f.TeamID != nil {
		q = q.Where("team_id = ?", *f.TeamID)
	}

	var projects []models.Project
	if err := q.Order("id").Find(&projects).Error; err != nil {
		s.logger.Errorw("failed to list projects", "err", err)
		return nil, err
	}
	out := make([]ProjectView, 0, len(projects))
	for _, p := range projects {
		out = append(out, toProjectView(p))
	}
	return out, nil
}

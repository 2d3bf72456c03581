package team

import (
	"context"
	"strings"
	"time"

	"project-management-api/internal/apperr"
	"project-management-api/internal/identity"
	"project-management-api/internal/metrics"
	"project-management-api/internal/models"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAlreadyMember   = apperr.New(apperr.ErrConflict, "employee is already a member of this team")
	ErrTeamHasProjects = apperr.New(apperr.ErrInvalidState, "team still owns projects")
)

// TeamView is a team with its memberships resolved.
type TeamView struct {
	ID           uint         `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Members      []MemberView `json:"members"`
	ProjectCount int64        `json:"projectCount"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// MemberView is one membership with its employee resolved.
type MemberView struct {
	ID       uint                 `json:"id"`
	TeamID   uint                 `json:"teamId"`
	Employee identity.EmployeeRef `json:"employee"`
	Role     models.TeamRole      `json:"role"`
	JoinedAt time.Time            `json:"joinedAt"`
}

type TeamDraft struct {
	Name        string
	Description string
}

// TeamPatch carries only the fields to change.
type TeamPatch struct {
	Name        *string
	Description *string
}

// Service manages teams and their memberships.
type Service struct {
	logger *zap.SugaredLogger
	db     *gorm.DB
}

func NewService(logger *zap.SugaredLogger, db *gorm.DB) *Service {
	return &Service{
		logger: logger,
		db:     db,
	}
}

// RequireTeam loads a team inside tx, NotFound when absent.
func RequireTeam(tx *gorm.DB, id uint) (models.Team, error) {
	var t models.Team
	err := tx.First(&t, id).Error
	return t, apperr.FromLookup(err, "team", id)
}

func toMemberView(m models.TeamMember) MemberView {
	v := MemberView{
		ID:       m.ID,
		TeamID:   m.TeamID,
		Role:     m.Role,
		JoinedAt: m.JoinedAt,
	}
	if ref := identity.RefOf(m.Employee); ref != nil {
		v.Employee = *ref
	} else {
		v.Employee = identity.EmployeeRef{ID: m.EmployeeID}
	}
	return v
}

func toMemberViews(list []models.TeamMember) []MemberView {
	out := make([]MemberView, 0, len(list))
	for _, m := range list {
		out = append(out, toMemberView(m))
	}
	return out
}

func toTeamView(t models.Team, projects int64) TeamView {
	return TeamView{
		ID:           t.ID,
		Name:         t.Name,
		Description:  t.Description,
		Members:      toMemberViews(t.Members),
		ProjectCount: projects,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func (s *Service) load(tx *gorm.DB, id uint) (TeamView, error) {
	var t models.Team
	if err := tx.Preload("Members.Employee").First(&t, id).Error; err != nil {
		return TeamView{}, apperr.FromLookup(err, "team", id)
	}
	var projects int64
	if err := tx.Model(&models.Project{}).Where("team_id = ?", id).Count(&projects).Error; err != nil {
		return TeamView{}, err
	}
	return toTeamView(t, projects), nil
}

func (s *Service) CreateTeam(ctx context.Context, draft TeamDraft) (view TeamView, err error) {
	defer func(start time.Time) { metrics.ObserveOp("team.create", start, err) }(time.Now())
	s.logger.Debugw("CreateTeam()", "name", draft.Name)

	t := models.Team{Name: draft.Name, Description: strings.TrimSpace(draft.Description)}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&t).Error; err != nil {
			return err
		}
		view, err = s.load(tx, t.ID)
		return err
	})
	if err != nil {
		s.logger.Warnw("failed to create team", "name", draft.Name, "err", err)
		return TeamView{}, err
	}
	return view, nil
}

func (s *Service) UpdateTeam(ctx context.Context, id uint, patch TeamPatch) (view TeamView, err error) {
	defer func(start time.Time) { metrics.ObserveOp("team.update", start, err) }(time.Now())
	s.logger.Debugw("UpdateTeam()", "teamID", id)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := RequireTeam(tx, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			t.Name = *patch.Name
		}
		if patch.Description != nil {
			t.Description = strings.TrimSpace(*patch.Description)
		}
		if err := tx.Omit(clause.Associations).Save(&t).Error; err != nil {
			return err
		}
		view, err = s.load(tx, id)
		return err
	})
	if err != nil {
		s.logger.Warnw("failed to update team", "teamID", id, "err", err)
		return TeamView{}, err
	}
	return view, nil
}

// GetTeam returns the team with its members and project count.
func (s *Service) GetTeam(ctx context.Context, id uint) (TeamView, error) {
	return s.load(s.db.WithContext(ctx), id)
}

func (s *Service) ListTeams(ctx context.Context) ([]TeamView, error) {
	var teams []models.Team
	if err := s.db.WithContext(ctx).Preload("Members.Employee").Order("id").Find(&teams).Error; err != nil {
		s.logger.Errorw("failed to list teams", "err", err)
		return nil, err
	}
	return s.withProjectCounts(ctx, teams)
}

// SearchTeams matches query against team names with Unicode case folding.
func (s *Service) SearchTeams(ctx context.Context, query string) ([]TeamView, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.ListTeams(ctx)
	}

	var teams []models.Team
	if err := s.db.WithContext(ctx).Preload("Members.Employee").Order("id").Find(&teams).Error; err != nil {
		s.logger.Errorw("failed to search teams", "query", query, "err", err)
		return nil, err
	}

	fold := cases.Fold()
	needle := fold.String(query)
	matched := teams[:0]
	for _, t := range teams {
		if strings.Contains(fold.String(t.Name), needle) {
			matched = append(matched, t)
		}
	}
	return s.withProjectCounts(ctx, matched)
}

// TeamsOf lists the teams the employee belongs to.
func (s *Service) TeamsOf(ctx context.Context, employeeID uint) ([]TeamView, error) {
	db := s.db.WithContext(ctx)
	if _, err := identity.RequireEmployee(db, employeeID); err != nil {
		return nil, err
	}

	var teams []models.Team
	err := db.Preload("Members.Employee").
		Joins("JOIN team_members ON team_members.team_id = teams.id").
		Where("team_members.employee_id = ?", employeeID).
		Order("teams.id").
		Find(&teams).Error
	if err != nil {
		s.logger.Errorw("failed to list teams of employee", "employeeID", employeeID, "err", err)
		return nil, err
	}
	return s.withProjectCounts(ctx, teams)
}

func (s *Service) withProjectCounts(ctx context.Context, teams []models.Team) ([]TeamView, error) {
	out := make([]TeamView, 0, len(teams))
	if len(teams) == 0 {
		return out, nil
	}

	ids := make([]uint, 0, len(teams))
	for _, t := range teams {
		ids = append(ids, t.ID)
	}
	type row struct {
		TeamID uint
		Count  int64
	}
	var rows []row
	err := s.db.WithContext(ctx).Model(&models.Project{}).
		Select("team_id, COUNT(*) as count").
		Where("team_id IN ?", ids).
		Group("team_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[uint]int64, len(rows))
	for _, r := range rows {
		counts[r.TeamID] = r.Count
	}

	for _, t := range teams {
		out = append(out, toTeamView(t, counts[t.ID]))
	}
	return out, nil
}

// DeleteTeam removes the team and its memberships. A team that still owns
// projects cannot be deleted.
func (s *Service) DeleteTeam(ctx context.Context, id uint) (err error) {
	defer func(start time.Time) { metrics.ObserveOp("team.delete", start, err) }(time.Now())
	s.logger.Debugw("DeleteTeam()", "teamID", id)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := RequireTeam(tx, id)
		if err != nil {
			return err
		}
		var projects int64
		if err := tx.Model(&models.Project{}).Where("team_id = ?", id).Count(&projects).Error; err != nil {
			return err
		}
		if projects > 0 {
			return ErrTeamHasProjects
		}
		if err := tx.Where("team_id = ?", id).Delete(&models.TeamMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&t).Error
	})
	if err != nil {
		s.logger.Warnw("failed to delete team", "teamID", id, "err", err)
	}
	return err
}

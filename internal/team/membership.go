package team

import (
	"context"
	"time"

	"project-management-api/internal/apperr"
	"project-management-api/internal/database"
	"project-management-api/internal/identity"
	"project-management-api/internal/metrics"
	"project-management-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func normalizeRole(role models.TeamRole) (models.TeamRole, error) {
	if role == "" {
		return models.TeamRoleMember, nil
	}
	return models.ParseTeamRole(string(role))
}

// AddMember links the employee to the team. The pair is checked before the
// insert and the unique index catches the insert that loses a race; both
// surface as ErrAlreadyMember.
func (s *Service) AddMember(ctx context.Context, teamID, employeeID uint, role models.TeamRole) (view MemberView, err error) {
	defer func(start time.Time) { metrics.ObserveOp("team.add_member", start, err) }(time.Now())
	s.logger.Debugw("AddMember()", "teamID", teamID, "employeeID", employeeID, "role", role)

	role, err = normalizeRole(role)
	if err != nil {
		return MemberView{}, err
	}

	var member models.TeamMember
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := RequireTeam(tx, teamID); err != nil {
			return err
		}
		employee, err := identity.RequireEmployee(tx, employeeID)
		if err != nil {
			return err
		}

		var count int64
		err = tx.Model(&models.TeamMember{}).
			Where("team_id = ? AND employee_id = ?", teamID, employeeID).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrAlreadyMember
		}

		member = models.TeamMember{TeamID: teamID, EmployeeID: employeeID, Role: role}
		if err := tx.Omit(clause.Associations).Create(&member).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return ErrAlreadyMember
			}
			return err
		}
		member.Employee = &employee
		return nil
	})
	if err != nil {
		s.logger.Warnw("failed to add member", "teamID", teamID, "employeeID", employeeID, "err", err)
		return MemberView{}, err
	}

	s.logger.Infow("member added", "teamID", teamID, "employeeID", employeeID, "memberID", member.ID)
	return toMemberView(member), nil
}

func (s *Service) listMembers(ctx context.Context, query string, args ...any) ([]MemberView, error) {
	var members []models.TeamMember
	err := s.db.WithContext(ctx).Preload("Employee").Where(query, args...).Find(&members).Error
	if err != nil {
		s.logger.Errorw("failed to list members", "query", query, "err", err)
		return nil, err
	}
	return toMemberViews(members), nil
}

func (s *Service) ListMembers(ctx context.Context, teamID uint) ([]MemberView, error) {
	return s.listMembers(ctx, "team_id = ?", teamID)
}

func (s *Service) ListMemberships(ctx context.Context, employeeID uint) ([]MemberView, error) {
	return s.listMembers(ctx, "employee_id = ?", employeeID)
}

func (s *Service) ListByTeamAndRole(ctx context.Context, teamID uint, role models.TeamRole) ([]MemberView, error) {
	return s.listMembers(ctx, "team_id = ? AND role = ?", teamID, role)
}

func (s *Service) ListByRole(ctx context.Context, role models.TeamRole) ([]MemberView, error) {
	return s.listMembers(ctx, "role = ?", role)
}

// GetMember returns one membership, NotFound when absent.
func (s *Service) GetMember(ctx context.Context, id uint) (MemberView, error) {
	var m models.TeamMember
	if err := s.db.WithContext(ctx).Preload("Employee").First(&m, id).Error; err != nil {
		return MemberView{}, apperr.FromLookup(err, "team member", id)
	}
	return toMemberView(m), nil
}

// ChangeRole sets the role of a membership. JoinedAt is left as is.
func (s *Service) ChangeRole(ctx context.Context, id uint, role models.TeamRole) (view MemberView, err error) {
	defer func(start time.Time) { metrics.ObserveOp("team.change_role", start, err) }(time.Now())
	s.logger.Debugw("ChangeRole()", "memberID", id, "role", role)

	role, err = models.ParseTeamRole(string(role))
	if err != nil {
		return MemberView{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m models.TeamMember
		if err := tx.First(&m, id).Error; err != nil {
			return apperr.FromLookup(err, "team member", id)
		}
		if err := tx.Model(&m).Update("role", role).Error; err != nil {
			return err
		}
		if err := tx.Preload("Employee").First(&m, id).Error; err != nil {
			return err
		}
		view = toMemberView(m)
		return nil
	})
	if err != nil {
		s.logger.Warnw("failed to change member role", "memberID", id, "err", err)
		return MemberView{}, err
	}
	return view, nil
}

// RemoveMember deletes the membership if it exists and returns what was
// removed. A missing id is not an error; removed is nil then.
func (s *Service) RemoveMember(ctx context.Context, id uint) (removed *MemberView, err error) {
	defer func(start time.Time) { metrics.ObserveOp("team.remove_member", start, err) }(time.Now())
	s.logger.Debugw("RemoveMember()", "memberID", id)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m models.TeamMember
		res := tx.Where("id = ?", id).Limit(1).Find(&m)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if err := tx.Delete(&m).Error; err != nil {
			return err
		}
		v := toMemberView(m)
		removed = &v
		return nil
	})
	if err != nil {
		s.logger.Errorw("failed to remove member", "memberID", id, "err", err)
		return nil, err
	}
	return removed, nil
}

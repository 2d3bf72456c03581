package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"project-management-api/internal/apperr"
	"project-management-api/internal/auth"
	"project-management-api/internal/database"
	"project-management-api/internal/metrics"
	"project-management-api/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken         = apperr.New(apperr.ErrConflict, "email is already registered")
	ErrPhoneTaken         = apperr.New(apperr.ErrConflict, "phone number is already registered")
	ErrRoleExists         = apperr.New(apperr.ErrConflict, "role already exists")
	ErrRoleInUse          = apperr.New(apperr.ErrInvalidState, "role is still assigned to employees")
	ErrRoleNameRequired   = apperr.New(apperr.ErrValidation, "role name is required")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// RoleView is the public shape of a role.
type RoleView struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// EmployeeView is an employee without its credential.
type EmployeeView struct {
	ID          uint     `json:"id"`
	FirstName   string   `json:"firstName"`
	LastName    string   `json:"lastName"`
	Email       string   `json:"email"`
	PhoneNumber string   `json:"phoneNumber"`
	Role        RoleView `json:"role"`
}

// EmployeeRef is the compact employee shape embedded in other aggregates.
type EmployeeRef struct {
	ID        uint   `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// Registration is the payload of a new employee sign-up.
type Registration struct {
	FirstName       string
	LastName        string
	Email           string
	PhoneNumber     string
	Password        string
	PasswordConfirm string
	RoleID          uint
}

// Service is the identity store: employees and roles.
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

// RequireEmployee loads an employee inside tx, NotFound when absent.
func RequireEmployee(tx *gorm.DB, id uint) (models.Employee, error) {
	var e models.Employee
	err := tx.First(&e, id).Error
	return e, apperr.FromLookup(err, "employee", id)
}

// RefOf converts a loaded employee, nil stays nil.
func RefOf(e *models.Employee) *EmployeeRef {
	if e == nil || e.ID == 0 {
		return nil
	}
	return &EmployeeRef{ID: e.ID, FirstName: e.FirstName, LastName: e.LastName, Email: e.Email}
}

// RefsOf converts a slice of loaded employees.
func RefsOf(list []models.Employee) []EmployeeRef {
	out := make([]EmployeeRef, 0, len(list))
	for i := range list {
		out = append(out, *RefOf(&list[i]))
	}
	return out
}

func toEmployeeView(e models.Employee) EmployeeView {
	v := EmployeeView{
		ID:          e.ID,
		FirstName:   e.FirstName,
		LastName:    e.LastName,
		Email:       e.Email,
		PhoneNumber: e.PhoneNumber,
	}
	if e.Role != nil {
		v.Role = RoleView{ID: e.Role.ID, Name: e.Role.Name}
	}
	return v
}

// Register validates and stores a new employee with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, reg Registration) (view EmployeeView, err error) {
	defer func(start time.Time) { metrics.ObserveOp("identity.register", start, err) }(time.Now())

	reg.normalize()
	s.logger.Debugw("Register()", "email", reg.Email, "roleID", reg.RoleID)

	if err := reg.validate(); err != nil {
		s.logger.Warnw("registration rejected", "email", reg.Email, "err", err)
		return EmployeeView{}, err
	}

	hash, err := auth.HashPassword(reg.Password)
	if err != nil {
		return EmployeeView{}, err
	}

	var employee models.Employee
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var role models.Role
		if err := tx.First(&role, reg.RoleID).Error; err != nil {
			return apperr.FromLookup(err, "role", reg.RoleID)
		}

		var count int64
		if err := tx.Model(&models.Employee{}).Where("email = ?", reg.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrEmailTaken
		}
		if err := tx.Model(&models.Employee{}).Where("phone_number = ?", reg.PhoneNumber).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrPhoneTaken
		}

		employee = models.Employee{
			FirstName:    reg.FirstName,
			LastName:     reg.LastName,
			Email:        reg.Email,
			PhoneNumber:  reg.PhoneNumber,
			PasswordHash: hash,
			RoleID:       role.ID,
		}
		if err := tx.Omit("Role").Create(&employee).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return ErrEmailTaken
			}
			return err
		}
		employee.Role = &role
		return nil
	})
	if err != nil {
		s.logger.Warnw("failed to register employee", "email", reg.Email, "err", err)
		return EmployeeView{}, err
	}

	s.logger.Infow("employee registered", "employeeID", employee.ID)
	return toEmployeeView(employee), nil
}

// Authenticate checks the credential pair and returns the employee.
func (s *Service) Authenticate(ctx context.Context, email, password string) (EmployeeView, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	s.logger.Debugw("Authenticate()", "email", email)

	var e models.Employee
	err := s.db.WithContext(ctx).Preload("Role").Where("email = ?", email).First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EmployeeView{}, ErrInvalidCredentials
		}
		return EmployeeView{}, err
	}
	if !auth.CheckPassword(e.PasswordHash, password) {
		s.logger.Warnw("password mismatch", "employeeID", e.ID)
		return EmployeeView{}, ErrInvalidCredentials
	}
	return toEmployeeView(e), nil
}

func (s *Service) GetEmployee(ctx context.Context, id uint) (EmployeeView, error) {
	var e models.Employee
	if err := s.db.WithContext(ctx).Preload("Role").First(&e, id).Error; err != nil {
		return EmployeeView{}, apperr.FromLookup(err, "employee", id)
	}
	return toEmployeeView(e), nil
}

func (s *Service) FindByEmail(ctx context.Context, email string) (EmployeeView, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var e models.Employee
	if err := s.db.WithContext(ctx).Preload("Role").Where("email = ?", email).First(&e).Error; err != nil {
		return EmployeeView{}, apperr.FromLookup(err, "employee", email)
	}
	return toEmployeeView(e), nil
}

func (s *Service) ListEmployees(ctx context.Context) ([]EmployeeView, error) {
	var list []models.Employee
	if err := s.db.WithContext(ctx).Preload("Role").Order("id").Find(&list).Error; err != nil {
		s.logger.Errorw("failed to list employees", "err", err)
		return nil, err
	}
	out := make([]EmployeeView, 0, len(list))
	for _, e := range list {
		out = append(out, toEmployeeView(e))
	}
	return out, nil
}

// AssignRole is the only mutation allowed on an existing identity.
func (s *Service) AssignRole(ctx context.Context, employeeID, roleID uint) (view EmployeeView, err error) {
	defer func(start time.Time) { metrics.ObserveOp("identity.assign_role", start, err) }(time.Now())
	s.logger.Debugw("AssignRole()", "employeeID", employeeID, "roleID", roleID)

	var employee models.Employee
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if employee, err = RequireEmployee(tx, employeeID); err != nil {
			return err
		}
		var role models.Role
		if err := tx.First(&role, roleID).Error; err != nil {
			return apperr.FromLookup(err, "role", roleID)
		}
		if err := tx.Model(&employee).Update("role_id", role.ID).Error; err != nil {
			return err
		}
		employee.RoleID = role.ID
		employee.Role = &role
		return nil
	})
	if err != nil {
		s.logger.Warnw("failed to assign role", "employeeID", employeeID, "roleID", roleID, "err", err)
		return EmployeeView{}, err
	}
	return toEmployeeView(employee), nil
}

func (s *Service) ListRoles(ctx context.Context) ([]RoleView, error) {
	var roles []models.Role
	if err := s.db.WithContext(ctx).Order("id").Find(&roles).Error; err != nil {
		return nil, err
	}
	out := make([]RoleView, 0, len(roles))
	for _, r := range roles {
		out = append(out, RoleView{ID: r.ID, Name: r.Name})
	}
	return out, nil
}

func (s *Service) GetRole(ctx context.Context, id uint) (RoleView, error) {
	var r models.Role
	if err := s.db.WithContext(ctx).First(&r, id).Error; err != nil {
		return RoleView{}, apperr.FromLookup(err, "role", id)
	}
	return RoleView{ID: r.ID, Name: r.Name}, nil
}

// CreateRole stores a role name in upper case.
func (s *Service) CreateRole(ctx context.Context, name string) (RoleView, error) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if name == "" {
		return RoleView{}, ErrRoleNameRequired
	}

	role := models.Role{Name: name}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Role{}).Where("name = ?", name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrRoleExists
		}
		if err := tx.Create(&role).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return ErrRoleExists
			}
			return err
		}
		return nil
	})
	if err != nil {
		s.logger.Warnw("failed to create role", "name", name, "err", err)
		return RoleView{}, err
	}
	return RoleView{ID: role.ID, Name: role.Name}, nil
}

// DeleteRole removes a role no employee references.
func (s *Service) DeleteRole(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var role models.Role
		if err := tx.First(&role, id).Error; err != nil {
			return apperr.FromLookup(err, "role", id)
		}
		var count int64
		if err := tx.Model(&models.Employee{}).Where("role_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrRoleInUse
		}
		return tx.Delete(&role).Error
	})
}

// EnsureRoles seeds the given role names if missing.
func (s *Service) EnsureRoles(ctx context.Context, names ...string) error {
	return database.SeedRoles(s.db.WithContext(ctx), names...)
}

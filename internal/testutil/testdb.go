package testutil

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"project-management-api/internal/database"
	"project-management-api/internal/models"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewInMemoryDB creates an in-memory SQLite DB and runs migrations.
// The pool is pinned to one connection because every sqlite ":memory:"
// connection is a separate database.
func NewInMemoryDB() (*gorm.DB, error) {
	return NewInMemoryDBWithClock(nil)
}

// NewInMemoryDBWithClock is NewInMemoryDB with gorm's NowFunc replaced.
func NewInMemoryDBWithClock(now func() time.Time) (*gorm.DB, error) {
	db, err := database.Open(database.Options{
		Driver:   "sqlite",
		DSN:      ":memory:",
		LogLevel: logger.Silent,
		NowFunc:  now,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// MustDB is NewInMemoryDB for tests.
func MustDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewInMemoryDB()
	require.NoError(t, err)
	return db
}

// Logger returns a no-op sugared logger.
func Logger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// Clock is a settable time source for gorm's NowFunc.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var seq struct {
	sync.Mutex
	n int
}

func next() int {
	seq.Lock()
	defer seq.Unlock()
	seq.n++
	return seq.n
}

// SeedEmployee inserts an employee with unique email and phone and the MEMBER role.
func SeedEmployee(t *testing.T, db *gorm.DB, first string) models.Employee {
	t.Helper()
	var role models.Role
	require.NoError(t, db.Where("name = ?", models.RoleMember).First(&role).Error)

	n := next()
	e := models.Employee{
		FirstName:    first,
		LastName:     "Tester",
		Email:        fmt.Sprintf("%s.%d@example.com", first, n),
		PhoneNumber:  fmt.Sprintf("(555) %03d-%04d", n%1000, n),
		PasswordHash: "x",
		RoleID:       role.ID,
	}
	require.NoError(t, db.Create(&e).Error)
	return e
}

// SeedTeam inserts a team.
func SeedTeam(t *testing.T, db *gorm.DB, name string) models.Team {
	t.Helper()
	team := models.Team{Name: name}
	require.NoError(t, db.Create(&team).Error)
	return team
}

// SeedProject inserts a project owned by the given employee.
func SeedProject(t *testing.T, db *gorm.DB, owner models.Employee) models.Project {
	t.Helper()
	p := models.Project{Name: fmt.Sprintf("project-%d", next())}
	p.AssignToEmployee(owner.ID)
	creator := owner.ID
	p.CreatedByID = &creator
	require.NoError(t, db.Create(&p).Error)
	return p
}

// SeedTask inserts a task under the project created by creator.
func SeedTask(t *testing.T, db *gorm.DB, project models.Project, creator models.Employee) models.Task {
	t.Helper()
	task := models.Task{
		Title:       fmt.Sprintf("task-%d", next()),
		ProjectID:   project.ID,
		CreatedByID: creator.ID,
	}
	require.NoError(t, db.Create(&task).Error)
	return task
}

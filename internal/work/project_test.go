package work

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"project-management-api/internal/apperr"
	"project-management-api/internal/models"
	"project-management-api/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingPurger struct {
	mu       sync.Mutex
	locators []string
}

func (p *recordingPurger) PurgeBlobs(_ context.Context, locators []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.locators = append(p.locators, locators...)
}

func newService(t *testing.T) (*Service, *gorm.DB, *recordingPurger) {
	t.Helper()
	db := testutil.MustDB(t)
	purger := &recordingPurger{}
	return NewService(testutil.Logger(), db, purger), db, purger
}

func ptr[T any](v T) *T { return &v }

func requireExclusive(t *testing.T, db *gorm.DB, id uint) models.Project {
	t.Helper()
	var p models.Project
	require.NoError(t, db.First(&p, id).Error)
	hasEmployee := p.EmployeeID != nil
	hasTeam := p.TeamID != nil
	require.True(t, hasEmployee != hasTeam, "project %d: employee=%v team=%v", id, p.EmployeeID, p.TeamID)
	return p
}

func TestProjectOwnership_Scenario(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()

	var member models.Role
	require.NoError(t, db.Where("name = ?", models.RoleMember).First(&member).Error)
	require.NoError(t, db.Create(&models.Employee{
		ID: 42, FirstName: "Forty", LastName: "Two", Email: "42@example.com",
		PhoneNumber: "(555) 000-0042", PasswordHash: "x", RoleID: member.ID,
	}).Error)
	require.NoError(t, db.Create(&models.Team{ID: 7, Name: "Seven"}).Error)

	created, err := svc.CreateProject(ctx, ProjectDraft{Name: "Apollo", EmployeeID: ptr(uint(42))})
	require.NoError(t, err)
	require.NotNil(t, created.Employee)
	require.Equal(t, uint(42), created.Employee.ID)
	require.Nil(t, created.Team)
	require.Equal(t, models.StatusTodo, created.Status)
	require.Equal(t, models.PriorityMedium, created.Priority)

	updated, err := svc.UpdateProject(ctx, created.ID, ProjectPatch{TeamID: ptr(uint(7))})
	require.NoError(t, err)
	require.Nil(t, updated.Employee)
	require.NotNil(t, updated.Team)
	require.Equal(t, uint(7), updated.Team.ID)
	require.Equal(t, "Apollo", updated.Name)

	p := requireExclusive(t, db, created.ID)
	require.Nil(t, p.EmployeeID)
	require.Equal(t, uint(7), *p.TeamID)
}

func TestCreateProject_BothOwnersEmployeeWins(t *testing.T) {
	svc, db, _ := newService(t)
	e := testutil.SeedEmployee(t, db, "ann")
	team := testutil.SeedTeam(t, db, "ops")

	view, err := svc.CreateProject(context.Background(), ProjectDraft{
		Name:       "Both",
		EmployeeID: ptr(e.ID),
		TeamID:     ptr(team.ID),
	})
	require.NoError(t, err)
	require.Equal(t, e.ID, view.Employee.ID)
	require.Nil(t, view.Team)
	requireExclusive(t, db, view.ID)
}

func TestCreateProject_Rejections(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	e := testutil.SeedEmployee(t, db, "ben")

	_, err := svc.CreateProject(ctx, ProjectDraft{Name: "Orphan"})
	require.ErrorIs(t, err, models.ErrProjectUnassigned)
	require.ErrorIs(t, err, apperr.ErrInvalidState)

	_, err = svc.CreateProject(ctx, ProjectDraft{Name: "Ghost", EmployeeID: ptr(uint(999))})
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.CreateProject(ctx, ProjectDraft{Name: "Ghost team", TeamID: ptr(uint(999))})
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.CreateProject(ctx, ProjectDraft{Name: "Bad creator", EmployeeID: ptr(e.ID), CreatedByID: ptr(uint(999))})
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.CreateProject(ctx, ProjectDraft{Name: "Bad status", EmployeeID: ptr(e.ID), Status: "PAUSED"})
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.CreateProject(ctx, ProjectDraft{Name: " ", EmployeeID: ptr(e.ID)})
	require.ErrorIs(t, err, models.ErrProjectNameRequired)

	var count int64
	require.NoError(t, db.Model(&models.Project{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestUpdateProject_InvariantAborts(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	e := testutil.SeedEmployee(t, db, "cat")
	p := testutil.SeedProject(t, db, e)

	_, err := svc.UpdateProject(ctx, p.ID, ProjectPatch{Name: ptr("renamed"), EmployeeID: ptr(uint(0))})
	require.ErrorIs(t, err, models.ErrProjectUnassigned)

	stored := requireExclusive(t, db, p.ID)
	require.Equal(t, p.Name, stored.Name)
	require.Equal(t, e.ID, *stored.EmployeeID)

	_, err = svc.UpdateProject(ctx, 999, ProjectPatch{Name: ptr("x")})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpdateProject_PartialKeepsTasks(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	e := testutil.SeedEmployee(t, db, "dan")
	mgr := testutil.SeedEmployee(t, db, "mgr")
	p := testutil.SeedProject(t, db, e)
	testutil.SeedTask(t, db, p, e)
	testutil.SeedTask(t, db, p, e)

	view, err := svc.UpdateProject(ctx, p.ID, ProjectPatch{
		Priority:          ptr(models.PriorityUrgent),
		AssignedManagerID: ptr(mgr.ID),
	})
	require.NoError(t, err)
	require.Equal(t, models.PriorityUrgent, view.Priority)
	require.Equal(t, p.Name, view.Name)
	require.Equal(t, mgr.ID, view.AssignedManager.ID)
	require.Equal(t, e.ID, view.Employee.ID)
	require.Len(t, view.Tasks, 2)
	require.ElementsMatch(t, []uint{e.ID, mgr.ID, e.ID}, view.Audience())
}

// Random create/update sequences, including patches naming both owners,
// never leave a project with zero or two owners.
func TestProjectExclusivity_Sequences(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()

	employees := []models.Employee{
		testutil.SeedEmployee(t, db, "p1"),
		testutil.SeedEmployee(t, db, "p2"),
	}
	teams := []models.Team{
		testutil.SeedTeam(t, db, "t1"),
		testutil.SeedTeam(t, db, "t2"),
	}

	rng := rand.New(rand.NewSource(1))
	owner := func() (*uint, *uint) {
		var emp, team *uint
		switch rng.Intn(5) {
		case 0:
			emp = ptr(employees[rng.Intn(2)].ID)
		case 1:
			team = ptr(teams[rng.Intn(2)].ID)
		case 2:
			emp, team = ptr(employees[rng.Intn(2)].ID), ptr(teams[rng.Intn(2)].ID)
		case 3:
			emp = ptr(uint(0))
		}
		return emp, team
	}

	for i := 0; i < 10; i++ {
		emp, team := owner()
		view, err := svc.CreateProject(ctx, ProjectDraft{Name: "seq", EmployeeID: emp, TeamID: team})
		if err != nil {
			require.ErrorIs(t, err, apperr.ErrInvalidState)
			continue
		}
		requireExclusive(t, db, view.ID)

		for j := 0; j < 20; j++ {
			emp, team := owner()
			_, err := svc.UpdateProject(ctx, view.ID, ProjectPatch{EmployeeID: emp, TeamID: team})
			if err != nil {
				require.ErrorIs(t, err, apperr.ErrInvalidState)
			}
			requireExclusive(t, db, view.ID)
		}
	}
}

func TestUpdateProgress(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	e := testutil.SeedEmployee(t, db, "eve")
	p := testutil.SeedProject(t, db, e)

	_, err := svc.UpdateProgress(ctx, p.ID, 101)
	require.ErrorIs(t, err, models.ErrProgressOutOfRange)
	_, err = svc.UpdateProgress(ctx, p.ID, -1)
	require.ErrorIs(t, err, apperr.ErrValidation)

	view, err := svc.UpdateProgress(ctx, p.ID, 40.5)
	require.NoError(t, err)
	require.InDelta(t, 40.5, view.Progress, 0.001)
	require.Nil(t, view.ActualEndDate)

	view, err = svc.UpdateProgress(ctx, p.ID, 100)
	require.NoError(t, err)
	require.Equal(t, models.StatusDone, view.Status)
	require.NotNil(t, view.ActualEndDate)
}

func TestDeleteProject_Cascades(t *testing.T) {
	svc, db, purger := newService(t)
	ctx := context.Background()
	e := testutil.SeedEmployee(t, db, "fay")
	p := testutil.SeedProject(t, db, e)
	task := testutil.SeedTask(t, db, p, e)

	_, err := svc.AssignEmployees(ctx, task.ID, []uint{e.ID})
	require.NoError(t, err)
	_, err = svc.CreateSubTask(ctx, SubTaskDraft{Name: "child", TaskID: task.ID})
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.TaskAttachment{
		FileURL: "blob:abc_plan.pdf", FileName: "plan.pdf", RevisionNumber: 1, TaskID: task.ID, UploadedByID: e.ID,
	}).Error)

	deleted, err := svc.DeleteProject(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, p.ID, deleted.ID)

	for _, model := range []any{&models.Project{}, &models.Task{}, &models.SubTask{}, &models.TaskAttachment{}, &models.TaskAssignment{}} {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		require.Zero(t, n, "%T rows left", model)
	}
	require.Equal(t, []string{"blob:abc_plan.pdf"}, purger.locators)

	_, err = svc.DeleteProject(ctx, p.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestListProjects_Filters(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	a := testutil.SeedEmployee(t, db, "gil")
	b := testutil.SeedEmployee(t, db, "hal")
	team := testutil.SeedTeam(t, db, "crew")

	_, err := svc.CreateProject(ctx, ProjectDraft{Name: "one", EmployeeID: ptr(a.ID), Priority: models.PriorityHigh})
	require.NoError(t, err)
	_, err = svc.CreateProject(ctx, ProjectDraft{Name: "two", EmployeeID: ptr(b.ID), AssignedManagerID: ptr(a.ID)})
	require.NoError(t, err)
	_, err = svc.CreateProject(ctx, ProjectDraft{Name: "three", TeamID: ptr(team.ID), Status: models.StatusInProgress})
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter ProjectFilter
		want   []string
	}{
		{"all", ProjectFilter{}, []string{"one", "two", "three"}},
		{"employee", ProjectFilter{EmployeeID: ptr(a.ID)}, []string{"one"}},
		{"manager", ProjectFilter{ManagerID: ptr(a.ID)}, []string{"two"}},
		{"team", ProjectFilter{TeamID: ptr(team.ID)}, []string{"three"}},
		{"status", ProjectFilter{Status: ptr(models.StatusInProgress)}, []string{"three"}},
		{"priority", ProjectFilter{Priority: ptr(models.PriorityHigh)}, []string{"one"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.ListProjects(ctx, tt.filter)
			require.NoError(t, err)
			names := make([]string, 0, len(got))
			for _, v := range got {
				names = append(names, v.Name)
			}
			require.Equal(t, tt.want, names)
		})
	}
}

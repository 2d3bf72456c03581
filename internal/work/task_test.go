package work

import (
	"context"
	"testing"

	"project-management-api/internal/apperr"
	"project-management-api/internal/identity"
	"project-management-api/internal/models"
	"project-management-api/internal/testutil"

	"github.com/stretchr/testify/require"
)

func assigneeIDs(refs []identity.EmployeeRef) []uint {
	out := make([]uint, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.ID)
	}
	return out
}

func TestCreateTask(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	owner := testutil.SeedEmployee(t, db, "ivy")
	helper := testutil.SeedEmployee(t, db, "jay")
	p := testutil.SeedProject(t, db, owner)

	view, err := svc.CreateTask(ctx, TaskDraft{
		Title:       "Write docs",
		ProjectID:   p.ID,
		CreatedByID: owner.ID,
		AssigneeIDs: []uint{helper.ID, owner.ID, helper.ID},
	})
	require.NoError(t, err)
	require.Equal(t, models.PriorityMedium, view.Priority)
	require.Equal(t, p.Name, view.ProjectName)
	require.Equal(t, owner.ID, view.CreatedBy.ID)
	require.ElementsMatch(t, []uint{owner.ID, helper.ID}, assigneeIDs(view.Assignees))
	require.Empty(t, view.SubTasks)
}

func TestCreateTask_Rejections(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	owner := testutil.SeedEmployee(t, db, "kay")
	p := testutil.SeedProject(t, db, owner)

	tests := []struct {
		name    string
		draft   TaskDraft
		wantErr error
	}{
		{"missing project", TaskDraft{Title: "x", ProjectID: 999, CreatedByID: owner.ID}, apperr.ErrNotFound},
		{"missing creator", TaskDraft{Title: "x", ProjectID: p.ID, CreatedByID: 999}, apperr.ErrNotFound},
		{"no creator", TaskDraft{Title: "x", ProjectID: p.ID}, models.ErrTaskCreatorRequired},
		{"missing assignee", TaskDraft{Title: "x", ProjectID: p.ID, CreatedByID: owner.ID, AssigneeIDs: []uint{999}}, apperr.ErrNotFound},
		{"blank title", TaskDraft{Title: "  ", ProjectID: p.ID, CreatedByID: owner.ID}, models.ErrTaskTitleRequired},
		{"bad priority", TaskDraft{Title: "x", ProjectID: p.ID, CreatedByID: owner.ID, Priority: "SOON"}, apperr.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTask(ctx, tt.draft)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	var count int64
	require.NoError(t, db.Model(&models.Task{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestUpdateTask_ReplacesAssignees(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	a := testutil.SeedEmployee(t, db, "lee")
	b := testutil.SeedEmployee(t, db, "max")
	p := testutil.SeedProject(t, db, a)

	created, err := svc.CreateTask(ctx, TaskDraft{Title: "t", ProjectID: p.ID, CreatedByID: a.ID, AssigneeIDs: []uint{a.ID}})
	require.NoError(t, err)

	updated, err := svc.UpdateTask(ctx, created.ID, TaskPatch{Priority: ptr(models.PriorityHigh)})
	require.NoError(t, err)
	require.Equal(t, models.PriorityHigh, updated.Priority)
	require.Equal(t, []uint{a.ID}, assigneeIDs(updated.Assignees))

	updated, err = svc.UpdateTask(ctx, created.ID, TaskPatch{AssigneeIDs: &[]uint{b.ID}})
	require.NoError(t, err)
	require.Equal(t, []uint{b.ID}, assigneeIDs(updated.Assignees))

	_, err = svc.UpdateTask(ctx, created.ID, TaskPatch{Title: ptr("")})
	require.ErrorIs(t, err, models.ErrTaskTitleRequired)

	_, err = svc.UpdateTask(ctx, created.ID, TaskPatch{AssigneeIDs: &[]uint{999}})
	require.ErrorIs(t, err, apperr.ErrNotFound)

	got, err := svc.GetTask(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "t", got.Title)
	require.Equal(t, []uint{b.ID}, assigneeIDs(got.Assignees))
}

func TestAssignAndUnassign(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	a := testutil.SeedEmployee(t, db, "ned")
	b := testutil.SeedEmployee(t, db, "oli")
	p := testutil.SeedProject(t, db, a)
	task := testutil.SeedTask(t, db, p, a)

	view, err := svc.AssignEmployees(ctx, task.ID, []uint{a.ID, b.ID})
	require.NoError(t, err)
	require.Len(t, view.Assignees, 2)

	// assigning again keeps a single row per pair
	view, err = svc.AssignEmployees(ctx, task.ID, []uint{a.ID})
	require.NoError(t, err)
	require.Len(t, view.Assignees, 2)

	byEmployee, err := svc.ListTasks(ctx, TaskFilter{EmployeeID: ptr(b.ID)})
	require.NoError(t, err)
	require.Len(t, byEmployee, 1)

	view, err = svc.UnassignEmployee(ctx, task.ID, b.ID)
	require.NoError(t, err)
	require.Equal(t, []uint{a.ID}, assigneeIDs(view.Assignees))

	byEmployee, err = svc.ListTasks(ctx, TaskFilter{EmployeeID: ptr(b.ID)})
	require.NoError(t, err)
	require.Empty(t, byEmployee)

	_, err = svc.AssignEmployees(ctx, 999, []uint{a.ID})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteTask_RemovesSubTasks(t *testing.T) {
	svc, db, purger := newService(t)
	ctx := context.Background()
	e := testutil.SeedEmployee(t, db, "pia")
	p := testutil.SeedProject(t, db, e)
	task := testutil.SeedTask(t, db, p, e)
	other := testutil.SeedTask(t, db, p, e)

	for _, name := range []string{"a", "b", "c"} {
		_, err := svc.CreateSubTask(ctx, SubTaskDraft{Name: name, TaskID: task.ID})
		require.NoError(t, err)
	}
	_, err := svc.CreateSubTask(ctx, SubTaskDraft{Name: "keep", TaskID: other.ID})
	require.NoError(t, err)

	deleted, err := svc.DeleteTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, deleted.SubTasks, 3)

	subs, err := svc.ListSubTasks(ctx, SubTaskFilter{TaskID: ptr(task.ID)})
	require.NoError(t, err)
	require.Empty(t, subs)

	var orphans int64
	require.NoError(t, db.Model(&models.SubTask{}).Where("task_id = ?", task.ID).Count(&orphans).Error)
	require.Zero(t, orphans)

	kept, err := svc.ListSubTasks(ctx, SubTaskFilter{TaskID: ptr(other.ID)})
	require.NoError(t, err)
	require.Len(t, kept, 1)

	_, err = svc.GetTask(ctx, task.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.Empty(t, purger.locators)
}

func TestListTasks_Filters(t *testing.T) {
	svc, db, _ := newService(t)
	ctx := context.Background()
	a := testutil.SeedEmployee(t, db, "quin")
	b := testutil.SeedEmployee(t, db, "ray")
	p1 := testutil.SeedProject(t, db, a)
	p2 := testutil.SeedProject(t, db, b)

	_, err := svc.CreateTask(ctx, TaskDraft{Title: "one", ProjectID: p1.ID, CreatedByID: a.ID, Priority: models.PriorityLow})
	require.NoError(t, err)
	_, err = svc.CreateTask(ctx, TaskDraft{Title: "two", ProjectID: p2.ID, CreatedByID: b.ID})
	require.NoError(t, err)

	byProject, err := svc.ListTasks(ctx, TaskFilter{ProjectID: ptr(p1.ID)})
	require.NoError(t, err)
	require.Len(t, byProject, 1)
	require.Equal(t, "one", byProject[0].Title)

	byCreator, err := svc.ListTasks(ctx, TaskFilter{CreatedByID: ptr(b.ID)})
	require.NoError(t, err)
	require.Len(t, byCreator, 1)
	require.Equal(t, "two", byCreator[0].Title)

	byPriority, err := svc.ListTasks(ctx, TaskFilter{Priority: ptr(models.PriorityLow)})
	require.NoError(t, err)
	require.Len(t, byPriority, 1)
}

func TestListTasks_EmployeeFilterHonoursCancel(t *testing.T) {
	svc, db, _ := newService(t)
	a := testutil.SeedEmployee(t, db, "sam")
	p := testutil.SeedProject(t, db, a)
	_, err := svc.CreateTask(context.Background(), TaskDraft{Title: "one", ProjectID: p.ID, CreatedByID: a.ID, AssigneeIDs: []uint{a.ID}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.ListTasks(ctx, TaskFilter{EmployeeID: ptr(a.ID)})
	require.ErrorIs(t, err, context.Canceled)
}

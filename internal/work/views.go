package work

import (
	"time"

	"project-management-api/internal/identity"
	"project-management-api/internal/models"
)

// TeamRef is the owning team of a project. Member ids are kept for event
// fan-out and are not serialized.
type TeamRef struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	MemberIDs []uint `json:"-"`
}

type TaskSummary struct {
	ID       uint            `json:"id"`
	Title    string          `json:"title"`
	Priority models.Priority `json:"priority"`
}

// ProjectView is a project with every relationship loaded.
type ProjectView struct {
	ID              uint                  `json:"id"`
	Name            string                `json:"name"`
	Description     string                `json:"description"`
	Status          models.Status         `json:"status"`
	Priority        models.Priority       `json:"priority"`
	StartDate       *time.Time            `json:"startDate"`
	EndDate         *time.Time            `json:"endDate"`
	ActualEndDate   *time.Time            `json:"actualEndDate"`
	Progress        float64               `json:"progress"`
	CreatedBy       *identity.EmployeeRef `json:"createdBy"`
	AssignedManager *identity.EmployeeRef `json:"assignedManager"`
	Employee        *identity.EmployeeRef `json:"employee"`
	Team            *TeamRef              `json:"team"`
	Tasks           []TaskSummary         `json:"tasks"`
	CreatedAt       time.Time             `json:"createdAt"`
	UpdatedAt       time.Time             `json:"updatedAt"`
}

// Audience lists the employees interested in changes to the project.
func (v ProjectView) Audience() []uint {
	var ids []uint
	for _, ref := range []*identity.EmployeeRef{v.CreatedBy, v.AssignedManager, v.Employee} {
		if ref != nil {
			ids = append(ids, ref.ID)
		}
	}
	if v.Team != nil {
		ids = append(ids, v.Team.MemberIDs...)
	}
	return ids
}

type TaskView struct {
	ID          uint                   `json:"id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Priority    models.Priority        `json:"priority"`
	ProjectID   uint                   `json:"projectId"`
	ProjectName string                 `json:"projectName"`
	CreatedBy   *identity.EmployeeRef  `json:"createdBy"`
	Assignees   []identity.EmployeeRef `json:"assignees"`
	SubTasks    []SubTaskView          `json:"subTasks"`
	StartDate   *time.Time             `json:"startDate"`
	EndDate     *time.Time             `json:"endDate"`
	CreatedAt   time.Time              `json:"createdAt"`
	UpdatedAt   time.Time              `json:"updatedAt"`
}

func (v TaskView) Audience() []uint {
	var ids []uint
	if v.CreatedBy != nil {
		ids = append(ids, v.CreatedBy.ID)
	}
	for _, a := range v.Assignees {
		ids = append(ids, a.ID)
	}
	return ids
}

type SubTaskView struct {
	ID            uint                  `json:"id"`
	Name          string                `json:"name"`
	Description   string                `json:"description"`
	Status        models.Status         `json:"status"`
	AssignedTo    *identity.EmployeeRef `json:"assignedTo"`
	TaskID        uint                  `json:"taskId"`
	TaskCreatorID uint                  `json:"-"`
	StartDate     *time.Time            `json:"startDate"`
	EndDate       *time.Time            `json:"endDate"`
	UpdatedAt     time.Time             `json:"updatedAt"`
}

func (v SubTaskView) Audience() []uint {
	var ids []uint
	if v.AssignedTo != nil {
		ids = append(ids, v.AssignedTo.ID)
	}
	if v.TaskCreatorID != 0 {
		ids = append(ids, v.TaskCreatorID)
	}
	return ids
}

// Progress counts the subtasks of one task.
type Progress struct {
	TaskID  uint    `json:"taskId"`
	Total   int64   `json:"total"`
	Done    int64   `json:"done"`
	Percent float64 `json:"percent"`
}

func toProjectView(p models.Project) ProjectView {
	v := ProjectView{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		Status:          p.Status,
		Priority:        p.Priority,
		StartDate:       p.StartDate,
		EndDate:         p.EndDate,
		ActualEndDate:   p.ActualEndDate,
		Progress:        p.Progress,
		CreatedBy:       identity.RefOf(p.CreatedBy),
		AssignedManager: identity.RefOf(p.AssignedManager),
		Employee:        identity.RefOf(p.Employee),
		Tasks:           make([]TaskSummary, 0, len(p.Tasks)),
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
	if p.Team != nil {
		ref := &TeamRef{ID: p.Team.ID, Name: p.Team.Name}
		for _, m := range p.Team.Members {
			ref.MemberIDs = append(ref.MemberIDs, m.EmployeeID)
		}
		v.Team = ref
	}
	for _, t := range p.Tasks {
		v.Tasks = append(v.Tasks, TaskSummary{ID: t.ID, Title: t.Title, Priority: t.Priority})
	}
	return v
}

func toTaskView(t models.Task) TaskView {
	v := TaskView{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		ProjectID:   t.ProjectID,
		CreatedBy:   identity.RefOf(t.CreatedBy),
		Assignees:   identity.RefsOf(t.AssignedEmployees),
		SubTasks:    make([]SubTaskView, 0, len(t.SubTasks)),
		StartDate:   t.StartDate,
		EndDate:     t.EndDate,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.Project != nil {
		v.ProjectName = t.Project.Name
	}
	for _, s := range t.SubTasks {
		sv := toSubTaskView(s)
		sv.TaskCreatorID = t.CreatedByID
		v.SubTasks = append(v.SubTasks, sv)
	}
	return v
}

func toSubTaskView(s models.SubTask) SubTaskView {
	v := SubTaskView{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Status:      s.Status,
		AssignedTo:  identity.RefOf(s.AssignedTo),
		TaskID:      s.TaskID,
		StartDate:   s.StartDate,
		EndDate:     s.EndDate,
		UpdatedAt:   s.UpdatedAt,
	}
	if s.Task != nil {
		v.TaskCreatorID = s.Task.CreatedByID
	}
	return v
}

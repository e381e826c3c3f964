package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goitProjects/SBC-backend/internal/board"
	"github.com/goitProjects/SBC-backend/internal/board/repository"
	"github.com/goitProjects/SBC-backend/internal/models"
	"github.com/goitProjects/SBC-backend/pkg/apperr"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrProjectNotFound = apperr.New(apperr.KindNotFound, "Project not found")
	ErrSprintNotFound  = apperr.New(apperr.KindNotFound, "Sprint not found")
	ErrTaskNotFound    = apperr.New(apperr.KindNotFound, "Task not found")
	ErrDayNotFound     = apperr.New(apperr.KindNotFound, "Day not found")
	ErrNotContributor  = apperr.New(apperr.KindForbidden, "You are not a contributor of this project")
	ErrAlreadyMember   = apperr.New(apperr.KindValidation, "This user is already a contributor")
)

// Members is the part of the credential store the board needs to keep
// users' project references in step with project membership.
type Members interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	AddProject(ctx context.Context, u *models.User, projectID primitive.ObjectID) error
	RemoveProject(ctx context.Context, projectID primitive.ObjectID) error
}

// Service implements the project, sprint and task operations. Every method
// acts on behalf of the authenticated user passed in.
type Service struct {
	repo    repository.Repository
	members Members
	now     func() time.Time
}

func New(repo repository.Repository, members Members) *Service {
	return &Service{repo: repo, members: members, now: time.Now}
}

func internal(op string, err error) error {
	return apperr.Internal(fmt.Errorf("%s: %w", op, err))
}

// ownedProject loads a project that is in the user's project list.
func (s *Service) ownedProject(ctx context.Context, user *models.User, id primitive.ObjectID) (*board.Project, error) {
	p, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, internal("get project", err)
	}
	if p == nil || !user.HasProject(id) {
		return nil, ErrProjectNotFound
	}
	return p, nil
}

func (s *Service) ownedSprint(ctx context.Context, user *models.User, id primitive.ObjectID) (*board.Sprint, error) {
	sp, err := s.repo.GetSprint(ctx, id)
	if err != nil {
		return nil, internal("get sprint", err)
	}
	if sp == nil || !user.HasProject(sp.ProjectID) {
		return nil, ErrSprintNotFound
	}
	return sp, nil
}

func (s *Service) ownedTask(ctx context.Context, user *models.User, id primitive.ObjectID) (*board.Task, error) {
	t, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return nil, internal("get task", err)
	}
	if t == nil {
		return nil, ErrTaskNotFound
	}
	sp, err := s.repo.GetSprint(ctx, t.SprintID)
	if err != nil {
		return nil, internal("get sprint", err)
	}
	if sp == nil || !user.HasProject(sp.ProjectID) {
		return nil, ErrTaskNotFound
	}
	return t, nil
}

// --- projects ---

// AddProject creates a project with the user as its only member.
func (s *Service) AddProject(ctx context.Context, user *models.User, title, description string) (*board.Project, error) {
	p := &board.Project{
		ID:          primitive.NewObjectID(),
		Title:       title,
		Description: description,
		Members:     []string{user.Email},
		Sprints:     []primitive.ObjectID{},
	}
	if err := s.repo.CreateProject(ctx, p); err != nil {
		return nil, internal("create project", err)
	}
	if err := s.members.AddProject(ctx, user, p.ID); err != nil {
		return nil, internal("link project", err)
	}
	return p, nil
}

// AddContributor adds email to the project's members and returns the new
// member list. A registered contributor also gets the project in their list.
func (s *Service) AddContributor(ctx context.Context, user *models.User, projectID primitive.ObjectID, email string) ([]string, error) {
	p, err := s.ownedProject(ctx, user, projectID)
	if err != nil {
		return nil, err
	}
	if p.HasMember(email) {
		return nil, ErrAlreadyMember
	}
	if err := s.repo.AddMember(ctx, projectID, email); err != nil {
		return nil, internal("add member", err)
	}
	contributor, err := s.members.FindByEmail(ctx, email)
	if err != nil {
		return nil, internal("find contributor", err)
	}
	if contributor != nil {
		if err := s.members.AddProject(ctx, contributor, projectID); err != nil {
			return nil, internal("link project", err)
		}
	}
	return append(p.Members, email), nil
}

// ListProjects returns the projects the user is a member of.
func (s *Service) ListProjects(ctx context.Context, user *models.User) ([]*board.Project, error) {
	ps, err := s.repo.ProjectsByMember(ctx, user.Email)
	if err != nil {
		return nil, internal("list projects", err)
	}
	return ps, nil
}

func (s *Service) RenameProject(ctx context.Context, user *models.User, projectID primitive.ObjectID, title string) (string, error) {
	if _, err := s.ownedProject(ctx, user, projectID); err != nil {
		return "", err
	}
	if err := s.repo.SetProjectTitle(ctx, projectID, title); err != nil {
		return "", internal("rename project", err)
	}
	return title, nil
}

// DeleteProject removes the project, its sprints and their tasks.
func (s *Service) DeleteProject(ctx context.Context, user *models.User, projectID primitive.ObjectID) error {
	p, err := s.ownedProject(ctx, user, projectID)
	if err != nil {
		return err
	}
	sprints, err := s.repo.SprintsByIDs(ctx, p.Sprints)
	if err != nil {
		return internal("load sprints", err)
	}
	var taskIDs []primitive.ObjectID
	for _, sp := range sprints {
		taskIDs = append(taskIDs, sp.Tasks...)
	}
	if err := s.repo.DeleteTasks(ctx, taskIDs); err != nil {
		return internal("delete tasks", err)
	}
	if err := s.repo.DeleteSprints(ctx, p.Sprints); err != nil {
		return internal("delete sprints", err)
	}
	if err := s.repo.DeleteProject(ctx, projectID); err != nil {
		return internal("delete project", err)
	}
	if err := s.members.RemoveProject(ctx, projectID); err != nil {
		return internal("unlink project", err)
	}
	return nil
}

// --- sprints ---

// AddSprint creates a sprint of duration days that ends on endDate.
func (s *Service) AddSprint(ctx context.Context, user *models.User, projectID primitive.ObjectID, title, endDate string, duration int) (*board.Sprint, error) {
	if _, err := s.ownedProject(ctx, user, projectID); err != nil {
		return nil, err
	}
	end, err := time.Parse(board.DateLayout, endDate)
	if err != nil {
		return nil, apperr.New(apperr.KindValidation, "Invalid 'date'. Please, use YYYY-MM-DD string format")
	}
	sp := &board.Sprint{
		ID:        primitive.NewObjectID(),
		Title:     title,
		Duration:  duration,
		StartDate: end.AddDate(0, 0, -(duration - 1)).Format(board.DateLayout),
		EndDate:   endDate,
		ProjectID: projectID,
		Tasks:     []primitive.ObjectID{},
	}
	if err := s.repo.CreateSprint(ctx, sp); err != nil {
		return nil, internal("create sprint", err)
	}
	if err := s.repo.LinkSprint(ctx, projectID, sp.ID); err != nil {
		return nil, internal("link sprint", err)
	}
	return sp, nil
}

// ListSprints returns the project's sprints to any of its members.
func (s *Service) ListSprints(ctx context.Context, user *models.User, projectID primitive.ObjectID) ([]*board.Sprint, error) {
	p, err := s.repo.GetProject(ctx, projectID)
	if err != nil {
		return nil, internal("get project", err)
	}
	if p == nil {
		return nil, ErrProjectNotFound
	}
	if !p.HasMember(user.Email) {
		return nil, ErrNotContributor
	}
	sprints, err := s.repo.SprintsByIDs(ctx, p.Sprints)
	if err != nil {
		return nil, internal("load sprints", err)
	}
	return sprints, nil
}

func (s *Service) RenameSprint(ctx context.Context, user *models.User, sprintID primitive.ObjectID, title string) (string, error) {
	if _, err := s.ownedSprint(ctx, user, sprintID); err != nil {
		return "", err
	}
	if err := s.repo.SetSprintTitle(ctx, sprintID, title); err != nil {
		return "", internal("rename sprint", err)
	}
	return title, nil
}

// DeleteSprint removes the sprint and its tasks and unlinks it from the project.
func (s *Service) DeleteSprint(ctx context.Context, user *models.User, sprintID primitive.ObjectID) error {
	sp, err := s.ownedSprint(ctx, user, sprintID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteTasks(ctx, sp.Tasks); err != nil {
		return internal("delete tasks", err)
	}
	if err := s.repo.DeleteSprints(ctx, []primitive.ObjectID{sprintID}); err != nil {
		return internal("delete sprint", err)
	}
	if err := s.repo.UnlinkSprint(ctx, sp.ProjectID, sprintID); err != nil {
		return internal("unlink sprint", err)
	}
	return nil
}

// --- tasks ---

// AddTask creates a task with a zeroed hours entry for every sprint day.
func (s *Service) AddTask(ctx context.Context, user *models.User, sprintID primitive.ObjectID, title string, hoursPlanned float64) (*board.Task, error) {
	sp, err := s.ownedSprint(ctx, user, sprintID)
	if err != nil {
		return nil, err
	}
	start, err := time.Parse(board.DateLayout, sp.StartDate)
	if err != nil {
		return nil, internal("parse sprint start", err)
	}
	days := make([]board.DayHours, 0, sp.Duration)
	for i := 0; i < sp.Duration; i++ {
		days = append(days, board.DayHours{CurrentDay: start.AddDate(0, 0, i).Format(board.DateLayout)})
	}
	t := &board.Task{
		ID:                primitive.NewObjectID(),
		SprintID:          sprintID,
		Title:             title,
		HoursPlanned:      hoursPlanned,
		HoursWastedPerDay: days,
	}
	if err := s.repo.CreateTask(ctx, t); err != nil {
		return nil, internal("create task", err)
	}
	if err := s.repo.LinkTask(ctx, sprintID, t.ID); err != nil {
		return nil, internal("link task", err)
	}
	return t, nil
}

// ListTasks returns the sprint's tasks, optionally filtered by a
// case-insensitive title substring.
func (s *Service) ListTasks(ctx context.Context, user *models.User, sprintID primitive.ObjectID, search string) ([]*board.Task, error) {
	sp, err := s.repo.GetSprint(ctx, sprintID)
	if err != nil {
		return nil, internal("get sprint", err)
	}
	if sp == nil {
		return nil, ErrSprintNotFound
	}
	p, err := s.repo.GetProject(ctx, sp.ProjectID)
	if err != nil {
		return nil, internal("get project", err)
	}
	if p == nil || !p.HasMember(user.Email) {
		return nil, ErrNotContributor
	}
	tasks, err := s.repo.TasksByIDs(ctx, sp.Tasks)
	if err != nil {
		return nil, internal("load tasks", err)
	}
	if search == "" {
		return tasks, nil
	}
	needle := strings.ToLower(search)
	found := tasks[:0]
	for _, t := range tasks {
		if strings.Contains(strings.ToLower(t.Title), needle) {
			found = append(found, t)
		}
	}
	return found, nil
}

// HoursChange is the outcome of SetWastedHours. Unchanged is set when the
// requested hours equal the stored ones and nothing was written.
type HoursChange struct {
	Day            board.DayHours
	NewWastedHours float64
	Unchanged      bool
}

// SetWastedHours records hours for one day of the task and adjusts the total.
func (s *Service) SetWastedHours(ctx context.Context, user *models.User, taskID primitive.ObjectID, date string, hours float64) (*HoursChange, error) {
	t, err := s.ownedTask(ctx, user, taskID)
	if err != nil {
		return nil, err
	}
	day := t.Day(date)
	if day == nil {
		return nil, ErrDayNotFound
	}
	if hours == day.SingleHoursWasted {
		return &HoursChange{Day: *day, NewWastedHours: t.HoursWasted, Unchanged: true}, nil
	}
	total := t.HoursWasted + hours - day.SingleHoursWasted
	if err := s.repo.SetDayHours(ctx, taskID, date, hours, total); err != nil {
		return nil, internal("set hours", err)
	}
	day.SingleHoursWasted = hours
	return &HoursChange{Day: *day, NewWastedHours: total}, nil
}

// ToggleStatus flips the task's done flag. Finishing stamps today's date;
// reopening clears it.
func (s *Service) ToggleStatus(ctx context.Context, user *models.User, taskID primitive.ObjectID) (*board.TaskStatus, error) {
	t, err := s.ownedTask(ctx, user, taskID)
	if err != nil {
		return nil, err
	}
	status := board.TaskStatus{IsDone: !t.Status.IsDone}
	if status.IsDone {
		today := s.now().Format(board.DateLayout)
		status.FinishDate = &today
	}
	if err := s.repo.SetTaskStatus(ctx, taskID, status); err != nil {
		return nil, internal("set status", err)
	}
	return &status, nil
}

// DeleteTask removes the task and unlinks it from its sprint.
func (s *Service) DeleteTask(ctx context.Context, user *models.User, taskID primitive.ObjectID) error {
	t, err := s.ownedTask(ctx, user, taskID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteTasks(ctx, []primitive.ObjectID{taskID}); err != nil {
		return internal("delete task", err)
	}
	if err := s.repo.UnlinkTask(ctx, t.SprintID, taskID); err != nil {
		return internal("unlink task", err)
	}
	return nil
}

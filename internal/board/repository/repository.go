package repository

import (
	"context"

	"github.com/goitProjects/SBC-backend/internal/board"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Repository persists projects, sprints and tasks. Single-record getters
// return (nil, nil) when the record does not exist; the *ByIDs fetches skip
// missing ids and keep the order of ids.
type Repository interface {
	CreateProject(ctx context.Context, p *board.Project) error
	GetProject(ctx context.Context, id primitive.ObjectID) (*board.Project, error)
	ProjectsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*board.Project, error)
	ProjectsByMember(ctx context.Context, email string) ([]*board.Project, error)
	AddMember(ctx context.Context, projectID primitive.ObjectID, email string) error
	SetProjectTitle(ctx context.Context, id primitive.ObjectID, title string) error
	LinkSprint(ctx context.Context, projectID, sprintID primitive.ObjectID) error
	UnlinkSprint(ctx context.Context, projectID, sprintID primitive.ObjectID) error
	DeleteProject(ctx context.Context, id primitive.ObjectID) error

	CreateSprint(ctx context.Context, s *board.Sprint) error
	GetSprint(ctx context.Context, id primitive.ObjectID) (*board.Sprint, error)
	SprintsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*board.Sprint, error)
	SetSprintTitle(ctx context.Context, id primitive.ObjectID, title string) error
	LinkTask(ctx context.Context, sprintID, taskID primitive.ObjectID) error
	UnlinkTask(ctx context.Context, sprintID, taskID primitive.ObjectID) error
	DeleteSprints(ctx context.Context, ids []primitive.ObjectID) error

	CreateTask(ctx context.Context, t *board.Task) error
	GetTask(ctx context.Context, id primitive.ObjectID) (*board.Task, error)
	TasksByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*board.Task, error)
	SetDayHours(ctx context.Context, id primitive.ObjectID, day string, hours, total float64) error
	SetTaskStatus(ctx context.Context, id primitive.ObjectID, status board.TaskStatus) error
	DeleteTasks(ctx context.Context, ids []primitive.ObjectID) error
}

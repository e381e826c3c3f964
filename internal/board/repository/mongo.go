package repository

import (
	"context"
	"fmt"

	"github.com/goitProjects/SBC-backend/internal/board"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoRepo implements Repository over the projects, sprints and tasks
// collections of one database.
type MongoRepo struct {
	projects *mongo.Collection
	sprints  *mongo.Collection
	tasks    *mongo.Collection
}

func NewMongoRepo(ctx context.Context, db *mongo.Database) (*MongoRepo, error) {
	r := &MongoRepo{
		projects: db.Collection("projects"),
		sprints:  db.Collection("sprints"),
		tasks:    db.Collection("tasks"),
	}
	// members drives GET /project
	idx := mongo.IndexModel{Keys: bson.D{{Key: "members", Value: 1}}}
	if _, err := r.projects.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, fmt.Errorf("create projects members index: %w", err)
	}
	return r, nil
}

func findOne[T any](ctx context.Context, col *mongo.Collection, id primitive.ObjectID) (*T, error) {
	var v T
	if err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&v); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func findMany[T any](ctx context.Context, col *mongo.Collection, filter bson.M) ([]*T, error) {
	cur, err := col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*T{}
	for cur.Next(ctx) {
		var v T
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, cur.Err()
}

// findByIDs fetches ids with $in and restores the order of ids.
func findByIDs[T any](ctx context.Context, col *mongo.Collection, ids []primitive.ObjectID, key func(*T) primitive.ObjectID) ([]*T, error) {
	if len(ids) == 0 {
		return []*T{}, nil
	}
	found, err := findMany[T](ctx, col, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]*T, len(found))
	for _, v := range found {
		byID[key(v)] = v
	}
	out := make([]*T, 0, len(found))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func updateByID(ctx context.Context, col *mongo.Collection, id primitive.ObjectID, update bson.M) error {
	_, err := col.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

func deleteByIDs(ctx context.Context, col *mongo.Collection, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := col.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return err
}

func (r *MongoRepo) CreateProject(ctx context.Context, p *board.Project) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	_, err := r.projects.InsertOne(ctx, p)
	return err
}

func (r *MongoRepo) GetProject(ctx context.Context, id primitive.ObjectID) (*board.Project, error) {
	return findOne[board.Project](ctx, r.projects, id)
}

func (r *MongoRepo) ProjectsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*board.Project, error) {
	return findByIDs(ctx, r.projects, ids, func(p *board.Project) primitive.ObjectID { return p.ID })
}

func (r *MongoRepo) ProjectsByMember(ctx context.Context, email string) ([]*board.Project, error) {
	return findMany[board.Project](ctx, r.projects, bson.M{"members": email})
}

func (r *MongoRepo) AddMember(ctx context.Context, projectID primitive.ObjectID, email string) error {
	return updateByID(ctx, r.projects, projectID, bson.M{"$addToSet": bson.M{"members": email}})
}

func (r *MongoRepo) SetProjectTitle(ctx context.Context, id primitive.ObjectID, title string) error {
	return updateByID(ctx, r.projects, id, bson.M{"$set": bson.M{"title": title}})
}

func (r *MongoRepo) LinkSprint(ctx context.Context, projectID, sprintID primitive.ObjectID) error {
	return updateByID(ctx, r.projects, projectID, bson.M{"$push": bson.M{"sprints": sprintID}})
}

func (r *MongoRepo) UnlinkSprint(ctx context.Context, projectID, sprintID primitive.ObjectID) error {
	return updateByID(ctx, r.projects, projectID, bson.M{"$pull": bson.M{"sprints": sprintID}})
}

func (r *MongoRepo) DeleteProject(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.projects.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *MongoRepo) CreateSprint(ctx context.Context, s *board.Sprint) error {
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	_, err := r.sprints.InsertOne(ctx, s)
	return err
}

func (r *MongoRepo) GetSprint(ctx context.Context, id primitive.ObjectID) (*board.Sprint, error) {
	return findOne[board.Sprint](ctx, r.sprints, id)
}

func (r *MongoRepo) SprintsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*board.Sprint, error) {
	return findByIDs(ctx, r.sprints, ids, func(s *board.Sprint) primitive.ObjectID { return s.ID })
}

func (r *MongoRepo) SetSprintTitle(ctx context.Context, id primitive.ObjectID, title string) error {
	return updateByID(ctx, r.sprints, id, bson.M{"$set": bson.M{"title": title}})
}

func (r *MongoRepo) LinkTask(ctx context.Context, sprintID, taskID primitive.ObjectID) error {
	return updateByID(ctx, r.sprints, sprintID, bson.M{"$push": bson.M{"tasks": taskID}})
}

func (r *MongoRepo) UnlinkTask(ctx context.Context, sprintID, taskID primitive.ObjectID) error {
	return updateByID(ctx, r.sprints, sprintID, bson.M{"$pull": bson.M{"tasks": taskID}})
}

func (r *MongoRepo) DeleteSprints(ctx context.Context, ids []primitive.ObjectID) error {
	return deleteByIDs(ctx, r.sprints, ids)
}

func (r *MongoRepo) CreateTask(ctx context.Context, t *board.Task) error {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	_, err := r.tasks.InsertOne(ctx, t)
	return err
}

func (r *MongoRepo) GetTask(ctx context.Context, id primitive.ObjectID) (*board.Task, error) {
	return findOne[board.Task](ctx, r.tasks, id)
}

func (r *MongoRepo) TasksByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*board.Task, error) {
	return findByIDs(ctx, r.tasks, ids, func(t *board.Task) primitive.ObjectID { return t.ID })
}

func (r *MongoRepo) SetDayHours(ctx context.Context, id primitive.ObjectID, day string, hours, total float64) error {
	filter := bson.M{"_id": id, "hoursWastedPerDay.currentDay": day}
	update := bson.M{"$set": bson.M{
		"hoursWastedPerDay.$.singleHoursWasted": hours,
		"hoursWasted":                           total,
	}}
	_, err := r.tasks.UpdateOne(ctx, filter, update)
	return err
}

func (r *MongoRepo) SetTaskStatus(ctx context.Context, id primitive.ObjectID, status board.TaskStatus) error {
	return updateByID(ctx, r.tasks, id, bson.M{"$set": bson.M{"status": status}})
}

func (r *MongoRepo) DeleteTasks(ctx context.Context, ids []primitive.ObjectID) error {
	return deleteByIDs(ctx, r.tasks, ids)
}

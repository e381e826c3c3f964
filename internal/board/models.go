package board

import "go.mongodb.org/mongo-driver/bson/primitive"

// DateLayout is the calendar-day format used for sprint and task dates.
const DateLayout = "2006-01-02"

// Project groups sprints. Members are the e-mails of its contributors.
type Project struct {
	ID          primitive.ObjectID   `json:"_id" bson:"_id"`
	Title       string               `json:"title" bson:"title"`
	Description string               `json:"description" bson:"description"`
	Members     []string             `json:"members" bson:"members"`
	Sprints     []primitive.ObjectID `json:"sprints" bson:"sprints"`
}

func (p *Project) HasMember(email string) bool {
	for _, m := range p.Members {
		if m == email {
			return true
		}
	}
	return false
}

func (p *Project) Clone() *Project {
	cp := *p
	cp.Members = append([]string(nil), p.Members...)
	cp.Sprints = append([]primitive.ObjectID(nil), p.Sprints...)
	return &cp
}

// Sprint spans Duration days ending on EndDate (inclusive).
type Sprint struct {
	ID        primitive.ObjectID   `json:"_id" bson:"_id"`
	Title     string               `json:"title" bson:"title"`
	Duration  int                  `json:"duration" bson:"duration"`
	StartDate string               `json:"startDate" bson:"startDate"`
	EndDate   string               `json:"endDate" bson:"endDate"`
	ProjectID primitive.ObjectID   `json:"projectId" bson:"projectId"`
	Tasks     []primitive.ObjectID `json:"tasks" bson:"tasks"`
}

func (s *Sprint) Clone() *Sprint {
	cp := *s
	cp.Tasks = append([]primitive.ObjectID(nil), s.Tasks...)
	return &cp
}

// DayHours is the time logged against a task on one sprint day.
type DayHours struct {
	CurrentDay        string  `json:"currentDay" bson:"currentDay"`
	SingleHoursWasted float64 `json:"singleHoursWasted" bson:"singleHoursWasted"`
}

type TaskStatus struct {
	IsDone     bool    `json:"isDone" bson:"isDone"`
	FinishDate *string `json:"finishDate" bson:"finishDate"`
}

// Task carries one DayHours entry per day of its sprint. HoursWasted is the
// sum of those entries.
type Task struct {
	ID                primitive.ObjectID `json:"_id" bson:"_id"`
	SprintID          primitive.ObjectID `json:"sprintId" bson:"sprintId"`
	Title             string             `json:"title" bson:"title"`
	HoursPlanned      float64            `json:"hoursPlanned" bson:"hoursPlanned"`
	HoursWasted       float64            `json:"hoursWasted" bson:"hoursWasted"`
	HoursWastedPerDay []DayHours         `json:"hoursWastedPerDay" bson:"hoursWastedPerDay"`
	Status            TaskStatus         `json:"status" bson:"status"`
}

func (t *Task) Clone() *Task {
	cp := *t
	cp.HoursWastedPerDay = append([]DayHours(nil), t.HoursWastedPerDay...)
	if t.Status.FinishDate != nil {
		d := *t.Status.FinishDate
		cp.Status.FinishDate = &d
	}
	return &cp
}

// Day returns the entry for date, or nil.
func (t *Task) Day(date string) *DayHours {
	for i := range t.HoursWastedPerDay {
		if t.HoursWastedPerDay[i].CurrentDay == date {
			return &t.HoursWastedPerDay[i]
		}
	}
	return nil
}

// SprintTree is a sprint with its tasks expanded.
type SprintTree struct {
	Sprint
	Tasks []*Task `json:"tasks"`
}

// ProjectTree is a project with its sprints and their tasks expanded.
type ProjectTree struct {
	Project
	Sprints []SprintTree `json:"sprints"`
}

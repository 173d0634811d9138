package tracker

import (
	"context"
	"fmt"

	"taskboard/pkg/task"
	"taskboard/pkg/user"
)

// AssigneePoints is one row of the assignee report.
type AssigneePoints struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// AssigneeTotals sums points per user in directory order. Users without
// any assignment get 0.
func AssigneeTotals(tasks []task.Task, users []user.User) []AssigneePoints {
	out := make([]AssigneePoints, 0, len(users))
	for _, u := range users {
		out = append(out, AssigneePoints{
			UserID: u.ID,
			Name:   u.Name,
			Points: task.PointsByAssignee(tasks, u.ID),
		})
	}
	return out
}

// Summaries returns every task with its derived totals.
func (s *Service) Summaries(ctx context.Context) ([]task.Summary, error) {
	tasks, err := s.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]task.Summary, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, task.Summarize(t))
	}
	return out, nil
}

// ReportByStatus sums points per status over tasks and subtasks.
func (s *Service) ReportByStatus(ctx context.Context) (map[task.Status]int, error) {
	tasks, err := s.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	return task.PointsByStatus(tasks), nil
}

// ReportByAssignee maps every known user id to its point total.
func (s *Service) ReportByAssignee(ctx context.Context) (map[string]int, error) {
	rows, err := s.AssigneeReport(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.UserID] = r.Points
	}
	return out, nil
}

// AssigneeReport is ReportByAssignee in directory order, with user names.
func (s *Service) AssigneeReport(ctx context.Context) ([]AssigneePoints, error) {
	users, err := s.Users(ctx)
	if err != nil {
		return nil, err
	}
	tasks, err := s.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	return AssigneeTotals(tasks, users), nil
}

// Users lists the user directory.
func (s *Service) Users(ctx context.Context) ([]user.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

package api

import (
	"net/http"
)

func (s *Server) handleReportStatus(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.ReportByStatus(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, 200, report)
}

// handleReportAssignees returns both the id→points map and the ordered,
// named rows.
func (s *Server) handleReportAssignees(w http.ResponseWriter, r *http.Request) {
	rows, err := s.svc.AssigneeReport(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	totals := make(map[string]int, len(rows))
	for _, row := range rows {
		totals[row.UserID] = row.Points
	}
	writeJSON(w, 200, map[string]any{
		"totals": totals,
		"users":  rows,
	})
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.svc.Users(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if users == nil {
		writeJSON(w, 200, []any{})
		return
	}
	writeJSON(w, 200, users)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskName string `json:"taskName"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	names, err := s.svc.SuggestSubtasks(r.Context(), req.TaskName)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, 200, map[string][]string{"subtasks": names})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sums, err := s.svc.Summaries(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	subtasks, points := 0, 0
	for _, sum := range sums {
		subtasks += len(sum.Subtasks)
		points += sum.TotalPoints
	}
	writeJSON(w, 200, map[string]any{
		"tasks":    len(sums),
		"subtasks": subtasks,
		"points":   points,
	})
}

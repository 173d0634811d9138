package api

import (
	"net/http"

	"taskboard/pkg/task"
)

type itemRequest struct {
	TaskName        string   `json:"taskName"`
	AssignedUserIDs []string `json:"assignedUserIds"`
	StoryPoints     int      `json:"storyPoints"`
}

func (s *Server) handleTaskList(w http.ResponseWriter, r *http.Request) {
	sums, err := s.svc.Summaries(r.Context())
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	if q := r.URL.Query().Get("status"); q != "" {
		status, err := task.ParseStatus(q)
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		filtered := make([]task.Summary, 0, len(sums))
		for _, sum := range sums {
			if sum.Status == status {
				filtered = append(filtered, sum)
			}
		}
		sums = filtered
	}
	writeJSON(w, 200, sums)
}

func (s *Server) handleTaskGet(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.GetTask(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, 200, task.Summarize(t))
}

func (s *Server) handleTaskCreate(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	t, err := s.svc.CreateTask(r.Context(), req.TaskName, req.AssignedUserIDs, req.StoryPoints)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, 201, t)
}

func (s *Server) handleTaskGenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskName string `json:"taskName"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	t, err := s.svc.GenerateTask(r.Context(), req.TaskName)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, 201, t)
}

func (s *Server) handleTaskUpdate(w http.ResponseWriter, r *http.Request) {
	var f task.Fields
	if err := decodeJSON(w, r, &f); err != nil {
		s.writeErr(w, r, err)
		return
	}
	t, err := s.svc.UpdateTask(r.Context(), r.PathValue("id"), f)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, 200, t)
}

func (s *Server) handleTaskDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteTask(r.Context(), r.PathValue("id")); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubtaskCreate(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeErr(w, r, err)
		return
	}
	st, err := s.svc.CreateSubtask(r.Context(), r.PathValue("id"), req.TaskName, req.AssignedUserIDs, req.StoryPoints)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, 201, st)
}

func (s *Server) handleSubtaskGet(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.GetSubtask(r.Context(), r.PathValue("id"), r.PathValue("subtaskId"))
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, 200, st)
}

func (s *Server) handleSubtaskUpdate(w http.ResponseWriter, r *http.Request) {
	var f task.Fields
	if err := decodeJSON(w, r, &f); err != nil {
		s.writeErr(w, r, err)
		return
	}
	st, err := s.svc.UpdateSubtask(r.Context(), r.PathValue("id"), r.PathValue("subtaskId"), f)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}
	writeJSON(w, 200, st)
}

func (s *Server) handleSubtaskDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteSubtask(r.Context(), r.PathValue("id"), r.PathValue("subtaskId")); err != nil {
		s.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package task

// TotalPoints is the task's own points plus those of every subtask,
// regardless of status.
func TotalPoints(t Task) int {
	total := t.StoryPoints
	for _, st := range t.Subtasks {
		total += st.StoryPoints
	}
	return total
}

// PointsByStatus sums points per status. Tasks and subtasks each land in the
// bucket of their own status. All three statuses are always present.
func PointsByStatus(tasks []Task) map[Status]int {
	out := make(map[Status]int, len(Statuses))
	for _, s := range Statuses {
		out[s] = 0
	}
	for _, t := range tasks {
		if t.Status.Valid() {
			out[t.Status] += t.StoryPoints
		}
		for _, st := range t.Subtasks {
			if st.Status.Valid() {
				out[st.Status] += st.StoryPoints
			}
		}
	}
	return out
}

// PointsByAssignee sums the points of every task and subtask whose own
// assignment set contains userID.
func PointsByAssignee(tasks []Task, userID string) int {
	total := 0
	for _, t := range tasks {
		if t.AssignedTo(userID) {
			total += t.StoryPoints
		}
		for _, st := range t.Subtasks {
			if st.AssignedTo(userID) {
				total += st.StoryPoints
			}
		}
	}
	return total
}

// Summary is a task annotated with derived totals for list views.
type Summary struct {
	Task
	TotalPoints    int            `json:"totalPoints"`
	SubtaskCounts  map[Status]int `json:"subtaskCounts"`
	CompletedRatio float64        `json:"completedRatio"`
}

// Summarize derives the list-view totals of t.
func Summarize(t Task) Summary {
	counts := make(map[Status]int, len(Statuses))
	for _, s := range Statuses {
		counts[s] = 0
	}
	for _, st := range t.Subtasks {
		if st.Status.Valid() {
			counts[st.Status]++
		}
	}
	var ratio float64
	if n := len(t.Subtasks); n > 0 {
		ratio = float64(counts[Completed]) / float64(n)
	}
	return Summary{
		Task:           t,
		TotalPoints:    TotalPoints(t),
		SubtaskCounts:  counts,
		CompletedRatio: ratio,
	}
}

package task

import "sort"

// Board is the three-column grouped view of a task set.
// The three columns form a complete, disjoint cover of the input;
// order within a column is the input (creation) order.
type Board struct {
	Todo       []Task `json:"todo"`
	InProgress []Task `json:"in_progress"`
	Done       []Task `json:"done"`
}

func NewBoard(tasks []Task) Board {
	b := Board{
		Todo:       []Task{},
		InProgress: []Task{},
		Done:       []Task{},
	}
	for _, t := range tasks {
		switch t.Status {
		case StatusInProgress:
			b.InProgress = append(b.InProgress, t)
		case StatusDone:
			b.Done = append(b.Done, t)
		default:
			b.Todo = append(b.Todo, t)
		}
	}
	return b
}

// Column returns the board column for the given status.
func (b Board) Column(s Status) []Task {
	switch s {
	case StatusInProgress:
		return b.InProgress
	case StatusDone:
		return b.Done
	default:
		return b.Todo
	}
}

func (b Board) Size() int {
	return len(b.Todo) + len(b.InProgress) + len(b.Done)
}

// All flattens the board back into a single task list, column by column.
func (b Board) All() []Task {
	all := make([]Task, 0, b.Size())
	all = append(all, b.Todo...)
	all = append(all, b.InProgress...)
	all = append(all, b.Done...)
	return all
}

// SortByDueDate returns a copy of tasks ordered by ascending due date,
// tasks without one last. Used by the "my tasks" dashboard view; board
// columns keep creation order.
func SortByDueDate(tasks []Task) []Task {
	sorted := make([]Task, len(tasks))
	copy(sorted, tasks)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti, tj := sorted[i], sorted[j]
		if ti.DueDate.Valid != tj.DueDate.Valid {
			return ti.DueDate.Valid
		}
		if !ti.DueDate.Valid {
			return false
		}
		return ti.DueDate.Time.Before(tj.DueDate.Time)
	})
	return sorted
}

package echoapi_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowtaskhq/flowtask/core/project"
	"github.com/flowtaskhq/flowtask/core/task"
	testutil "github.com/flowtaskhq/flowtask/tests"
)

func Test_taskApi_create(t *testing.T) {
	f := setup(t)

	teacher := testutil.CreateUser(t, f.usrRepo, "teacher", "teacher@flowtask.dev", "", true, false)
	student := testutil.CreateUser(t, f.usrRepo, "student", "student@flowtask.dev", "", false, false)
	outsider := testutil.CreateUser(t, f.usrRepo, "outsider", "outsider@flowtask.dev", "", false, false)
	proj := testutil.CreateProject(t, f.projRepo, "Semester Project", teacher, project.StatusInProgress, student)

	path := fmt.Sprintf("/api/projects/%d/tasks", proj.ID)
	today := time.Now().UTC().Format(task.DateLayout)
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format(task.DateLayout)

	payload := func(assignee int, dueDate string) []byte {
		return marchallObj(t, task.NewTask{
			Title:       "Write report",
			Description: "Summarize findings",
			AssignedTo:  assignee,
			DueDate:     dueDate,
		})
	}

	f.run(t, []httpTest{
		{name: "Auth required", method: http.MethodPost, path: path, body: payload(student.ID, today), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Students may not create", method: http.MethodPost, path: path,
			body: payload(student.ID, today), token: f.getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
		{
			name: "Due date in the past", method: http.MethodPost, path: path,
			body: payload(student.ID, yesterday), token: f.getToken(t, teacher),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"due_date": "due date cannot be in the past"}),
		},
		{
			name: "Assignee outside the project", method: http.MethodPost, path: path,
			body: payload(outsider.ID, today), token: f.getToken(t, teacher),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"assigned_to": "assignee must be a member of the project"}),
		},
	})

	t.Run("Task created, due today", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path, f.getToken(t, teacher), payload(student.ID, today))
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)

		var tsk task.Task
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tsk))
		assert.NotZero(t, tsk.ID)
		assert.Equal(t, proj.ID, tsk.ProjectID)
		assert.Equal(t, task.StatusTodo, tsk.Status) // defaulted
		assert.True(t, tsk.IsAssignedTo(student.ID))
	})
}

func Test_taskApi_listByProject(t *testing.T) {
	f := setup(t)

	teacher := testutil.CreateUser(t, f.usrRepo, "teacher", "teacher@flowtask.dev", "", true, false)
	student := testutil.CreateUser(t, f.usrRepo, "student", "student@flowtask.dev", "", false, false)
	other := testutil.CreateUser(t, f.usrRepo, "other", "other@flowtask.dev", "", false, false)
	proj := testutil.CreateProject(t, f.projRepo, "Semester Project", teacher, project.StatusInProgress, student, other)

	t1 := testutil.CreateTask(t, f.taskRepo, "T1", proj, student, task.StatusTodo)
	t2 := testutil.CreateTask(t, f.taskRepo, "T2", proj, student, task.StatusDone)
	t3 := testutil.CreateTask(t, f.taskRepo, "T3", proj, other, task.StatusTodo)

	path := fmt.Sprintf("/api/projects/%d/tasks/list", proj.ID)
	token := f.getToken(t, teacher)

	f.run(t, []httpTest{
		{name: "All tasks", path: path, token: token, wantData: marchallList(t, t1, t2, t3)},
		{name: "Filter by status", path: path + "?status=todo", token: token, wantData: marchallList(t, t1, t3)},
		{name: "Filter by assignee", path: path + fmt.Sprintf("?assigned_to=%d", student.ID), token: token, wantData: marchallList(t, t1, t2)},
		{
			name: "Combined filters", path: path + fmt.Sprintf("?status=todo&assigned_to=%d", student.ID),
			token: token, wantData: marchallList(t, t1),
		},
		{name: "Unknown status matches nothing", path: path + "?status=archived", token: token, wantData: marchallList(t)},
		{name: "Unknown project", path: "/api/projects/999/tasks/list", token: token, wantCode: http.StatusNotFound, wantData: marchallObj(t, errProjectNotFound)},
	})
}

func Test_taskApi_retrieve(t *testing.T) {
	f := setup(t)

	teacher := testutil.CreateUser(t, f.usrRepo, "teacher", "teacher@flowtask.dev", "", true, false)
	student := testutil.CreateUser(t, f.usrRepo, "student", "student@flowtask.dev", "", false, false)
	outsider := testutil.CreateUser(t, f.usrRepo, "outsider", "outsider@flowtask.dev", "", false, false)
	proj := testutil.CreateProject(t, f.projRepo, "Semester Project", teacher, project.StatusInProgress, student)
	tsk := testutil.CreateTask(t, f.taskRepo, "Research", proj, student, task.StatusTodo)

	path := fmt.Sprintf("/api/tasks/%d", tsk.ID)

	f.run(t, []httpTest{
		{name: "Auth required", path: path, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Assignee allowed", path: path, token: f.getToken(t, student), wantData: marchallObj(t, tsk)},
		{name: "Owner allowed", path: path, token: f.getToken(t, teacher), wantData: marchallObj(t, tsk)},
		{name: "Outsider denied", path: path, token: f.getToken(t, outsider), wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied)},
		{name: "Unknown task", path: "/api/tasks/999", token: f.getToken(t, teacher), wantCode: http.StatusNotFound, wantData: marchallObj(t, errTaskNotFound)},
	})
}

func Test_taskApi_update(t *testing.T) {
	f := setup(t)

	teacher := testutil.CreateUser(t, f.usrRepo, "teacher", "teacher@flowtask.dev", "", true, false)
	student := testutil.CreateUser(t, f.usrRepo, "student", "student@flowtask.dev", "", false, false)
	outsider := testutil.CreateUser(t, f.usrRepo, "outsider", "outsider@flowtask.dev", "", false, false)
	proj := testutil.CreateProject(t, f.projRepo, "Semester Project", teacher, project.StatusInProgress, student)
	tsk := testutil.CreateTask(t, f.taskRepo, "Research", proj, student, task.StatusInProgress)

	path := fmt.Sprintf("/api/tasks/%d", tsk.ID)
	statusBody := func(s task.Status) []byte {
		return marchallObj(t, task.UpdateTask{Status: &s})
	}

	t.Run("Non-assignee student denied", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPatch, path, f.getToken(t, outsider), statusBody(task.StatusDone))
		f.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("Board move to done celebrates", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPatch, path, f.getToken(t, student), statusBody(task.StatusDone))
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			task.Task
			Celebrate bool `json:"celebrate"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, task.StatusDone, resp.Status)
		assert.True(t, resp.Celebrate)
	})

	t.Run("Already done, no celebration", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPatch, path, f.getToken(t, student), statusBody(task.StatusDone))
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Celebrate bool `json:"celebrate"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.False(t, resp.Celebrate)
	})

	t.Run("Mixed update never celebrates", func(t *testing.T) {
		status := task.StatusTodo
		body := marchallObj(t, task.UpdateTask{Title: "Research sources", Status: &status})
		req, rec := newAuthRequest(http.MethodPatch, path, f.getToken(t, teacher), body)
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			task.Task
			Celebrate bool `json:"celebrate"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Research sources", resp.Title)
		assert.Equal(t, task.StatusTodo, resp.Status)
		assert.False(t, resp.Celebrate)
	})

	t.Run("Invalid status", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPatch, path, f.getToken(t, student), statusBody("archived"))
		f.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Due date in the past", func(t *testing.T) {
		yesterday := time.Now().UTC().AddDate(0, 0, -1).Format(task.DateLayout)
		body := marchallObj(t, task.UpdateTask{Title: "Research sources", DueDate: &yesterday})
		req, rec := newAuthRequest(http.MethodPatch, path, f.getToken(t, teacher), body)
		f.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"due_date": "due date cannot be in the past"}),
		}, rec)
	})
}

func Test_taskApi_update_hiddenProject(t *testing.T) {
	f := setup(t)

	teacher := testutil.CreateUser(t, f.usrRepo, "teacher", "teacher@flowtask.dev", "", true, false)
	student := testutil.CreateUser(t, f.usrRepo, "student", "student@flowtask.dev", "", false, false)
	// the project is still todo, so plain members cannot view it yet; the
	// assignee must nonetheless be able to work their own task
	proj := testutil.CreateProject(t, f.projRepo, "Draft Project", teacher, project.StatusTodo, student)
	tsk := testutil.CreateTask(t, f.taskRepo, "Research", proj, student, task.StatusTodo)

	path := fmt.Sprintf("/api/tasks/%d", tsk.ID)
	token := f.getToken(t, student)

	t.Run("Assignee moves it on the board", func(t *testing.T) {
		status := task.StatusInProgress
		req, rec := newAuthRequest(http.MethodPatch, path, token, marchallObj(t, task.UpdateTask{Status: &status}))
		f.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Assignee edits a field", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPatch, path, token, marchallObj(t, task.UpdateTask{Title: "Research sources"}))
		f.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp task.Task
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Research sources", resp.Title)
	})
}

func Test_taskApi_destroy(t *testing.T) {
	f := setup(t)

	teacher := testutil.CreateUser(t, f.usrRepo, "teacher", "teacher@flowtask.dev", "", true, false)
	student := testutil.CreateUser(t, f.usrRepo, "student", "student@flowtask.dev", "", false, false)
	proj := testutil.CreateProject(t, f.projRepo, "Semester Project", teacher, project.StatusInProgress, student)
	tsk := testutil.CreateTask(t, f.taskRepo, "Research", proj, student, task.StatusTodo)

	path := fmt.Sprintf("/api/tasks/%d", tsk.ID)

	f.run(t, []httpTest{
		{
			// even the assignee may not delete
			name: "Assignee denied", method: http.MethodDelete, path: path,
			token: f.getToken(t, student), wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
		{name: "Owner deletes", method: http.MethodDelete, path: path, token: f.getToken(t, teacher), wantCode: http.StatusNoContent},
		{
			name: "Already gone", method: http.MethodDelete, path: path,
			token: f.getToken(t, teacher), wantCode: http.StatusNotFound, wantData: marchallObj(t, errTaskNotFound),
		},
	})
}

func Test_taskApi_statistics(t *testing.T) {
	f := setup(t)

	teacher := testutil.CreateUser(t, f.usrRepo, "teacher", "teacher@flowtask.dev", "", true, false)
	student := testutil.CreateUser(t, f.usrRepo, "student", "student@flowtask.dev", "", false, false)
	other := testutil.CreateUser(t, f.usrRepo, "other", "other@flowtask.dev", "", false, false)
	proj := testutil.CreateProject(t, f.projRepo, "P1", teacher, project.StatusInProgress, student, other)
	proj2 := testutil.CreateProject(t, f.projRepo, "P2", teacher, project.StatusInProgress, student)

	testutil.CreateTask(t, f.taskRepo, "T1", proj, student, task.StatusTodo)
	testutil.CreateTask(t, f.taskRepo, "T2", proj, student, task.StatusDone)
	testutil.CreateTask(t, f.taskRepo, "T3", proj, other, task.StatusInProgress)
	testutil.CreateTask(t, f.taskRepo, "T4", proj2, student, task.StatusTodo)

	f.run(t, []httpTest{
		{
			// students count their assigned tasks across projects
			name: "Student statistics", path: "/api/tasks/statistics", token: f.getToken(t, student),
			wantData: marchallObj(t, task.Statistics{Todo: 2, Done: 1, Total: 3}),
		},
		{
			name: "Student statistics scoped to project", path: fmt.Sprintf("/api/tasks/statistics?project_id=%d", proj.ID),
			token:    f.getToken(t, student),
			wantData: marchallObj(t, task.Statistics{Todo: 1, Done: 1, Total: 2}),
		},
		{
			// teachers count every task of the projects they own
			name: "Teacher statistics", path: "/api/tasks/statistics", token: f.getToken(t, teacher),
			wantData: marchallObj(t, task.Statistics{Todo: 2, InProgress: 1, Done: 1, Total: 4}),
		},
		{
			name: "Bad project_id", path: "/api/tasks/statistics?project_id=abc", token: f.getToken(t, teacher),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
	})
}

package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"

	"github.com/shuweic/mp3/internal/logging"
	"github.com/shuweic/mp3/internal/store"
	"github.com/shuweic/mp3/internal/store/storetest"
)

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type apiUser struct {
	ID           string   `json:"_id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	PendingTasks []string `json:"pendingTasks"`
	DateCreated  string   `json:"dateCreated"`
}

type apiTask struct {
	ID               string `json:"_id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	Deadline         string `json:"deadline"`
	Completed        bool   `json:"completed"`
	AssignedUser     string `json:"assignedUser"`
	AssignedUserName string `json:"assignedUserName"`
	DateCreated      string `json:"dateCreated"`
}

// RouterTestSuite drives the full HTTP surface against an in-memory store.
type RouterTestSuite struct {
	suite.Suite
	db     store.Store
	router *gin.Engine
}

func (suite *RouterTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.db = storetest.NewSQLite(suite.T())
	suite.router = NewRouter(logging.NewWithWriter(io.Discard, "error", "text"), suite.db)
}

func (suite *RouterTestSuite) do(method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (suite *RouterTestSuite) decode(raw json.RawMessage, v any) {
	suite.Require().NoError(json.Unmarshal(raw, v), string(raw))
}

func (suite *RouterTestSuite) createUser(name, email string) apiUser {
	w, env := suite.do(http.MethodPost, "/api/users", map[string]any{"name": name, "email": email})
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	suite.Equal("Created", env.Message)

	var u apiUser
	suite.decode(env.Data, &u)
	return u
}

func (suite *RouterTestSuite) createTask(body map[string]any) apiTask {
	w, env := suite.do(http.MethodPost, "/api/tasks", body)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var t apiTask
	suite.decode(env.Data, &t)
	return t
}

func (suite *RouterTestSuite) getUser(id string) apiUser {
	w, env := suite.do(http.MethodGet, "/api/users/"+id, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var u apiUser
	suite.decode(env.Data, &u)
	return u
}

func (suite *RouterTestSuite) getTask(id string) apiTask {
	w, env := suite.do(http.MethodGet, "/api/tasks/"+id, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var t apiTask
	suite.decode(env.Data, &t)
	return t
}

func (suite *RouterTestSuite) TestAssignmentScenarios() {
	ada := suite.createUser("Ada", "a@x")
	suite.Empty(ada.PendingTasks)

	// create and assign
	task := suite.createTask(map[string]any{"name": "T1", "deadline": "2030-01-01", "assignedUser": ada.ID})
	suite.Equal("Ada", task.AssignedUserName)
	suite.Equal([]string{task.ID}, suite.getUser(ada.ID).PendingTasks)

	// completing removes from pending
	w, env := suite.do(http.MethodPut, "/api/tasks/"+task.ID, map[string]any{
		"name": "T1", "deadline": "2030-01-01", "completed": true, "assignedUser": ada.ID,
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.Equal("OK", env.Message)
	suite.Empty(suite.getUser(ada.ID).PendingTasks)
	got := suite.getTask(task.ID)
	suite.Equal(ada.ID, got.AssignedUser)
	suite.Equal("Ada", got.AssignedUserName)

	// reassigning moves membership
	vic := suite.createUser("Vic", "v@x")
	w, _ = suite.do(http.MethodPut, "/api/tasks/"+task.ID, map[string]any{
		"name": "T1", "deadline": "2030-01-01", "completed": false, "assignedUser": vic.ID,
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.Empty(suite.getUser(ada.ID).PendingTasks)
	suite.Equal([]string{task.ID}, suite.getUser(vic.ID).PendingTasks)
	suite.Equal("Vic", suite.getTask(task.ID).AssignedUserName)

	// deleting the task removes it from pending
	w, _ = suite.do(http.MethodDelete, "/api/tasks/"+task.ID, nil)
	suite.Equal(http.StatusNoContent, w.Code)
	suite.Empty(suite.getUser(vic.ID).PendingTasks)
	w, env = suite.do(http.MethodGet, "/api/tasks/"+task.ID, nil)
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Equal("Task not found", env.Message)
	suite.Equal("null", string(env.Data))
}

func (suite *RouterTestSuite) TestDeleteUserUnassignsIncomplete() {
	ada := suite.createUser("Ada", "a@x")
	open := suite.createTask(map[string]any{"name": "T1", "deadline": "2030-01-01", "assignedUser": ada.ID})
	done := suite.createTask(map[string]any{"name": "T2", "deadline": "2030-01-01", "assignedUser": ada.ID, "completed": true})

	w, _ := suite.do(http.MethodDelete, "/api/users/"+ada.ID, nil)
	suite.Require().Equal(http.StatusNoContent, w.Code)

	t1 := suite.getTask(open.ID)
	suite.Equal("", t1.AssignedUser)
	suite.Equal("unassigned", t1.AssignedUserName)
	suite.Equal(ada.ID, suite.getTask(done.ID).AssignedUser)

	w, env := suite.do(http.MethodGet, "/api/users/"+ada.ID, nil)
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Equal("User not found", env.Message)
}

func (suite *RouterTestSuite) TestDuplicateEmail() {
	suite.createUser("Ada", "a@x")
	w, env := suite.do(http.MethodPost, "/api/users", map[string]any{"name": "Other", "email": "a@x"})
	suite.Equal(http.StatusConflict, w.Code)
	suite.Equal("Email already exists", env.Message)
}

func (suite *RouterTestSuite) TestValidationAndReferenceErrors() {
	tests := []struct {
		method, path string
		body         map[string]any
		status       int
		message      string
	}{
		{http.MethodPost, "/api/users", map[string]any{"email": "a@x"}, http.StatusBadRequest, "name is required"},
		{http.MethodPost, "/api/tasks", map[string]any{"name": "T"}, http.StatusBadRequest, "deadline is required"},
		{http.MethodPost, "/api/tasks", map[string]any{"name": "T", "deadline": "2030-01-01", "assignedUser": "6f1c7f9e-0000-4000-8000-000000000000"}, http.StatusBadRequest, "assignedUser not found"},
		{http.MethodGet, "/api/users/not-an-id", nil, http.StatusBadRequest, "Invalid ID format"},
		{http.MethodPut, "/api/users/6f1c7f9e-0000-4000-8000-000000000000", map[string]any{"name": "A", "email": "a@x"}, http.StatusNotFound, "User not found"},
		{http.MethodPut, "/api/tasks/6f1c7f9e-0000-4000-8000-000000000000", map[string]any{"name": "A"}, http.StatusBadRequest, "name and deadline are required for replacement"},
		{http.MethodDelete, "/api/tasks/6f1c7f9e-0000-4000-8000-000000000000", nil, http.StatusNotFound, "Task not found"},
	}

	for _, tt := range tests {
		w, env := suite.do(tt.method, tt.path, tt.body)
		suite.Equal(tt.status, w.Code, "%s %s", tt.method, tt.path)
		suite.Equal(tt.message, env.Message, "%s %s", tt.method, tt.path)
	}

	// no task was left behind by the bad reference
	w, env := suite.do(http.MethodGet, "/api/tasks?count=true", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal("0", string(env.Data))
}

func (suite *RouterTestSuite) TestInvalidBody() {
	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.JSONEq(`{"message":"Invalid request body","data":null}`, w.Body.String())
}

func (suite *RouterTestSuite) TestFormEncodedBody() {
	ada := suite.createUser("Ada", "a@x")

	form := url.Values{}
	form.Set("name", "T1")
	form.Set("deadline", "2030-01-01")
	form.Set("assignedUser", ada.ID)
	form.Set("completed", "false")

	req := httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	suite.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	suite.Len(suite.getUser(ada.ID).PendingTasks, 1)
}

func (suite *RouterTestSuite) TestListQueries() {
	for i := 0; i < 3; i++ {
		suite.createUser(fmt.Sprintf("user%d", i), fmt.Sprintf("u%d@x", i))
	}
	for i := 0; i < 105; i++ {
		suite.createTask(map[string]any{"name": fmt.Sprintf("t%03d", i), "deadline": "2030-01-01", "completed": i%2 == 0})
	}

	var tasks []apiTask
	w, env := suite.do(http.MethodGet, "/api/tasks", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(env.Data, &tasks)
	suite.Len(tasks, 100)

	var users []apiUser
	w, env = suite.do(http.MethodGet, "/api/users", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.decode(env.Data, &users)
	suite.Len(users, 3)

	for _, path := range []string{"/api/tasks?limit=0", "/api/users?limit=0"} {
		w, env = suite.do(http.MethodGet, path, nil)
		suite.Require().Equal(http.StatusOK, w.Code)
		suite.Equal("OK", env.Message)
		suite.Equal("[]", string(env.Data))
	}

	w, env = suite.do(http.MethodGet, "/api/tasks?"+url.Values{
		"where": {`{"completed":true}`},
		"sort":  {`{"name":-1}`},
		"skip":  {"1"},
		"limit": {"2"},
	}.Encode(), nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	tasks = nil
	suite.decode(env.Data, &tasks)
	suite.Require().Len(tasks, 2)
	suite.Equal("t102", tasks[0].Name)
	suite.Equal("t100", tasks[1].Name)

	w, env = suite.do(http.MethodGet, "/api/tasks?count=true&where="+url.QueryEscape(`{"completed":false}`), nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal("52", string(env.Data))

	w, env = suite.do(http.MethodGet, "/api/users?count=true&limit=0", nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.Equal("3", string(env.Data))

	w, env = suite.do(http.MethodGet, "/api/users?select="+url.QueryEscape(`{"name":1,"_id":0}`), nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var projected []map[string]any
	suite.decode(env.Data, &projected)
	suite.Require().Len(projected, 3)
	suite.Equal([]string{"name"}, keys(projected[0]))
}

func (suite *RouterTestSuite) TestListQueryErrors() {
	paths := []string{
		"/api/tasks?count=true&select=" + url.QueryEscape(`{"name":1}`),
		"/api/users?where=not-json",
		"/api/tasks?where=not-json",
		"/api/tasks?skip=-1",
		"/api/users?limit=-1",
		"/api/users?sort=" + url.QueryEscape(`{"name":"sideways"}`),
		"/api/users?where=" + url.QueryEscape(`{"name":{"$regex":"A"}}`),
	}
	for _, path := range paths {
		w, env := suite.do(http.MethodGet, path, nil)
		suite.Equal(http.StatusBadRequest, w.Code, path)
		suite.NotEmpty(env.Message, path)
	}
}

func (suite *RouterTestSuite) TestUnsupportedOperatorMessage() {
	w, env := suite.do(http.MethodGet, "/api/users?where="+url.QueryEscape(`{"name":{"$regex":"A"}}`), nil)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("Invalid query parameter", env.Message)
}

func (suite *RouterTestSuite) TestGetWithSelect() {
	ada := suite.createUser("Ada", "a@x")

	w, env := suite.do(http.MethodGet, "/api/users/"+ada.ID+"?select="+url.QueryEscape(`{"email":1}`), nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	var doc map[string]any
	suite.decode(env.Data, &doc)
	suite.ElementsMatch([]string{"_id", "email"}, keys(doc))
}

func (suite *RouterTestSuite) TestIdentityReplace() {
	ada := suite.createUser("Ada", "a@x")
	suite.createTask(map[string]any{"name": "T1", "deadline": "2030-01-01", "assignedUser": ada.ID, "description": "d"})
	task := suite.createTask(map[string]any{"name": "T2", "deadline": "2030-01-01T10:00:00Z", "assignedUser": ada.ID})

	userBefore := suite.getUser(ada.ID)
	w, _ := suite.do(http.MethodPut, "/api/users/"+ada.ID, userBefore)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.Equal(userBefore, suite.getUser(ada.ID))

	taskBefore := suite.getTask(task.ID)
	w, _ = suite.do(http.MethodPut, "/api/tasks/"+task.ID, taskBefore)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.Equal(taskBefore, suite.getTask(task.ID))
	suite.Equal(userBefore, suite.getUser(ada.ID))
}

func (suite *RouterTestSuite) TestHealthAndNotFound() {
	w, env := suite.do(http.MethodGet, "/health", nil)
	suite.Equal(http.StatusOK, w.Code)
	suite.JSONEq(`{"status":"ok"}`, string(env.Data))

	w, env = suite.do(http.MethodGet, "/api/nothing", nil)
	suite.Equal(http.StatusNotFound, w.Code)
	suite.Equal("Not Found", env.Message)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}

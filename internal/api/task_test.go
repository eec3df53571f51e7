package api_test

import (
	"io"
	"testing"

	"empire/internal/models"
)

func TestBacklogTasks(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	app := setupTestApp(db)

	token := registerUser(t, app, "testuser")

	resp := authJSON(t, app, "POST", "/api/tasks/", token, models.CreateTaskRequest{Title: "Sharpen the saw"})
	if resp.StatusCode != 201 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 201, got %d: %s", resp.StatusCode, string(bodyBytes))
	}
	var task models.Task
	decodeBody(t, resp, &task)
	if task.Status != "todo" {
		t.Fatalf("Expected status todo, got %s", task.Status)
	}
	if task.DueDate != nil {
		t.Fatal("Backlog tasks carry no due date")
	}
	if task.Importance != 3 {
		t.Fatalf("Expected default importance 3, got %d", task.Importance)
	}

	// A dated task does not show up in the backlog.
	due := "2026-09-15"
	authJSON(t, app, "POST", "/api/tasks/", token, models.CreateTaskRequest{Title: "Dated task", DueDate: &due})

	resp = authJSON(t, app, "GET", "/api/tasks/", token, nil)
	var backlog []models.Task
	decodeBody(t, resp, &backlog)
	if len(backlog) != 1 {
		t.Fatalf("Expected 1 backlog task, got %d", len(backlog))
	}
	if backlog[0].Title != "Sharpen the saw" {
		t.Fatalf("Unexpected backlog task: %s", backlog[0].Title)
	}
}

func TestTaskStatusTransitions(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	app := setupTestApp(db)

	token := registerUser(t, app, "testuser")

	resp := authJSON(t, app, "POST", "/api/tasks/", token, models.CreateTaskRequest{Title: "Write docs"})
	var task models.Task
	decodeBody(t, resp, &task)

	resp = authJSON(t, app, "PUT", "/api/tasks/"+task.ID+"/status", token,
		models.UpdateTaskStatusRequest{Status: "done"})
	if resp.StatusCode != 200 {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	var done models.Task
	decodeBody(t, resp, &done)
	if done.Status != "done" || done.CompletedAt == nil {
		t.Fatalf("Expected done task with completion time, got %+v", done)
	}

	// Tasks can be reopened, unlike missions.
	resp = authJSON(t, app, "PUT", "/api/tasks/"+task.ID+"/status", token,
		models.UpdateTaskStatusRequest{Status: "todo"})
	var reopened models.Task
	decodeBody(t, resp, &reopened)
	if reopened.Status != "todo" || reopened.CompletedAt != nil {
		t.Fatalf("Expected reopened task without completion time, got %+v", reopened)
	}

	resp = authJSON(t, app, "PUT", "/api/tasks/"+task.ID+"/status", token,
		models.UpdateTaskStatusRequest{Status: "paused"})
	if resp.StatusCode != 400 {
		t.Fatalf("Expected status 400 for unknown status, got %d", resp.StatusCode)
	}
}

func TestTaskLinkedGoalMustBeOwned(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	app := setupTestApp(db)

	tokenA := registerUser(t, app, "alice")
	tokenB := registerUser(t, app, "bob")
	cat := createCategory(t, app, tokenA, "Work", nil)
	goal := createGoal(t, app, tokenA, models.GoalRequest{
		Title: "Alice's goal", Type: models.GoalProgressive, CategoryID: cat.ID,
	})

	resp := authJSON(t, app, "POST", "/api/tasks/", tokenB, models.CreateTaskRequest{
		Title: "Borrowed task", GoalID: &goal.ID,
	})
	if resp.StatusCode != 400 {
		t.Fatalf("Expected status 400 for another user's goal, got %d", resp.StatusCode)
	}
}

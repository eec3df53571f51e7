package api_test

import (
	"testing"
	"time"

	"empire/internal/models"
)

func TestProgressStats(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	app := setupTestApp(db)

	token := registerUser(t, app, "testuser")

	today := time.Now().UTC().Format("2006-01-02")
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")

	m1 := createMission(t, app, token, models.CreateMissionRequest{
		Type: models.MissionHighlight, Title: "Yesterday's focus", MissionDate: yesterday,
	})
	completeMission(t, app, token, m1.ID)

	m2 := createMission(t, app, token, models.CreateMissionRequest{
		Type: models.MissionHighlight, Title: "Today's focus", MissionDate: today,
	})
	completeMission(t, app, token, m2.ID)

	cat := createCategory(t, app, token, "Work", nil)
	goal := createGoal(t, app, token, models.GoalRequest{
		Title: "Done deal", Type: models.GoalProgressive, CategoryID: cat.ID,
	})
	authJSON(t, app, "PUT", "/api/goals/"+goal.ID+"/complete", token, nil)

	resp := authJSON(t, app, "GET", "/api/progress/", token, nil)
	if resp.StatusCode != 200 {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	var stats models.UserStats
	decodeBody(t, resp, &stats)

	if stats.TotalPoints != 60 {
		t.Fatalf("Expected 60 total points, got %d", stats.TotalPoints)
	}
	if stats.CurrentLevel != 1 {
		t.Fatalf("Expected level 1 at 60 points, got %d", stats.CurrentLevel)
	}
	if stats.MissionsCompletedToday != 1 {
		t.Fatalf("Expected 1 mission completed today, got %d", stats.MissionsCompletedToday)
	}
	if stats.GoalsCompleted != 1 {
		t.Fatalf("Expected 1 completed goal, got %d", stats.GoalsCompleted)
	}
	if stats.CurrentStreak != 2 {
		t.Fatalf("Expected 2-day streak, got %d", stats.CurrentStreak)
	}
}

func TestLedgerListsLatestEntriesFirst(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	app := setupTestApp(db)

	token := registerUser(t, app, "testuser")

	m1 := createMission(t, app, token, models.CreateMissionRequest{
		Type: models.MissionHighlight, Title: "First", MissionDate: "2026-08-31",
	})
	completeMission(t, app, token, m1.ID)
	m2 := createMission(t, app, token, models.CreateMissionRequest{
		Type: models.MissionHighlight, Title: "Second", MissionDate: "2026-09-01",
	})
	completeMission(t, app, token, m2.ID)

	resp := authJSON(t, app, "GET", "/api/progress/ledger", token, nil)
	var entries []models.PointsEntry
	decodeBody(t, resp, &entries)

	if len(entries) != 2 {
		t.Fatalf("Expected 2 ledger entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.Reason != "mission_completed" {
			t.Fatalf("Expected reason mission_completed, got %s", e.Reason)
		}
		if e.Points != 30 {
			t.Fatalf("Expected 30 points per entry, got %d", e.Points)
		}
	}
	if entries[0].MissionID == nil || *entries[0].MissionID != m2.ID {
		t.Fatal("Expected the most recent completion listed first")
	}
}

func TestLevelDefaultsForNewUser(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	app := setupTestApp(db)

	token := registerUser(t, app, "testuser")

	resp := authJSON(t, app, "GET", "/api/progress/level", token, nil)
	var level models.EmpireLevel
	decodeBody(t, resp, &level)
	if level.TotalPoints != 0 || level.Level != 1 {
		t.Fatalf("Expected a fresh user at 0 points, level 1; got %+v", level)
	}
}

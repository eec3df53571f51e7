package api_test

import (
	"io"
	"testing"

	"empire/internal/models"

	"github.com/gofiber/fiber/v2"
)

func createMission(t *testing.T, app *fiber.App, token string, req models.CreateMissionRequest) models.Mission {
	t.Helper()
	resp := authJSON(t, app, "POST", "/api/missions/", token, req)
	if resp.StatusCode != 201 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 201 creating mission, got %d: %s", resp.StatusCode, string(bodyBytes))
	}
	var m models.Mission
	decodeBody(t, resp, &m)
	return m
}

func completeMission(t *testing.T, app *fiber.App, token, missionID string) models.Mission {
	t.Helper()
	resp := authJSON(t, app, "PUT", "/api/missions/"+missionID+"/complete", token, nil)
	if resp.StatusCode != 200 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200 completing mission, got %d: %s", resp.StatusCode, string(bodyBytes))
	}
	var m models.Mission
	decodeBody(t, resp, &m)
	return m
}

func TestOneHighlightPerDay(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	app := setupTestApp(db)

	token := registerUser(t, app, "testuser")

	highlight := createMission(t, app, token, models.CreateMissionRequest{
		Type:        models.MissionHighlight,
		Title:       "Finish the report",
		MissionDate: "2026-08-31",
	})
	if !highlight.IsHighlight {
		t.Fatal("Expected highlight mission to be flagged")
	}
	if highlight.Points != 30 {
		t.Fatalf("Expected default highlight worth 30 points, got %d", highlight.Points)
	}

	resp := authJSON(t, app, "POST", "/api/missions/", token, models.CreateMissionRequest{
		Type:        models.MissionHighlight,
		Title:       "Another highlight",
		MissionDate: "2026-08-31",
	})
	if resp.StatusCode != 409 {
		t.Fatalf("Expected status 409 for second highlight on same day, got %d", resp.StatusCode)
	}

	// A highlight on a different day is fine.
	createMission(t, app, token, models.CreateMissionRequest{
		Type:        models.MissionHighlight,
		Title:       "Next day's highlight",
		MissionDate: "2026-09-01",
	})
}

func TestExtrasLockedUntilHighlightDone(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	app := setupTestApp(db)

	token := registerUser(t, app, "testuser")

	highlight := createMission(t, app, token, models.CreateMissionRequest{
		Type:        models.MissionHighlight,
		Title:       "Deep work session",
		MissionDate: "2026-08-31",
	})
	extra := createMission(t, app, token, models.CreateMissionRequest{
		Type:        models.MissionExtra,
		Title:       "Tidy the desk",
		MissionDate: "2026-08-31",
	})

	resp := authJSON(t, app, "PUT", "/api/missions/"+extra.ID+"/complete", token, nil)
	if resp.StatusCode != 409 {
		t.Fatalf("Expected status 409 completing extra before highlight, got %d", resp.StatusCode)
	}

	completeMission(t, app, token, highlight.ID)
	done := completeMission(t, app, token, extra.ID)
	if !done.IsCompleted {
		t.Fatal("Expected extra to complete after highlight is done")
	}
}

func TestMissionCompletionIsOneWayAndCreditsOnce(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	app := setupTestApp(db)

	token := registerUser(t, app, "testuser")

	highlight := createMission(t, app, token, models.CreateMissionRequest{
		Type:        models.MissionHighlight,
		Title:       "Study session",
		MissionDate: "2026-08-31",
	})

	done := completeMission(t, app, token, highlight.ID)
	if !done.IsCompleted || done.CompletedAt == nil {
		t.Fatalf("Expected completed mission with timestamp, got %+v", done)
	}

	// Completing again changes nothing and credits nothing.
	again := completeMission(t, app, token, highlight.ID)
	if !again.IsCompleted {
		t.Fatal("Expected mission to stay completed")
	}

	var ledgerCount, total int
	db.QueryRow("SELECT COUNT(*), COALESCE(SUM(points), 0) FROM points_ledger").Scan(&ledgerCount, &total)
	if ledgerCount != 1 {
		t.Fatalf("Expected exactly 1 ledger entry, got %d", ledgerCount)
	}
	if total != 30 {
		t.Fatalf("Expected 30 points credited, got %d", total)
	}
}

func TestCompleteMissionUpdatesLevel(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	app := setupTestApp(db)

	token := registerUser(t, app, "testuser")

	// Raise highlight value so three highlights cross the 100-point level line.
	authJSON(t, app, "PUT", "/api/settings", token, models.UserSettings{
		LongTermMonths: 3, CycleDays: 14, HighlightPoints: 40,
		HabitMin: 5, HabitMax: 10, ExtraPoints: 10,
	})

	dates := []string{"2026-08-31", "2026-09-01", "2026-09-02"}
	for _, d := range dates {
		m := createMission(t, app, token, models.CreateMissionRequest{
			Type: models.MissionHighlight, Title: "Highlight " + d, MissionDate: d,
		})
		completeMission(t, app, token, m.ID)
	}

	resp := authJSON(t, app, "GET", "/api/progress/level", token, nil)
	var level models.EmpireLevel
	decodeBody(t, resp, &level)
	if level.TotalPoints != 120 {
		t.Fatalf("Expected 120 total points, got %d", level.TotalPoints)
	}
	if level.Level != 2 {
		t.Fatalf("Expected level 2 at 120 points, got %d", level.Level)
	}
}

func TestSuggestHighlightPromotesOpenMission(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	app := setupTestApp(db)

	token := registerUser(t, app, "testuser")

	extra := createMission(t, app, token, models.CreateMissionRequest{
		Type:        models.MissionExtra,
		Title:       "Review notes",
		MissionDate: "2026-08-31",
	})

	resp := authJSON(t, app, "POST", "/api/missions/suggest-highlight", token,
		models.SuggestHighlightRequest{MissionDate: "2026-08-31"})
	if resp.StatusCode != 200 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, string(bodyBytes))
	}
	var promoted models.Mission
	decodeBody(t, resp, &promoted)
	if promoted.ID != extra.ID {
		t.Fatalf("Expected mission %s to be promoted, got %s", extra.ID, promoted.ID)
	}
	if !promoted.IsHighlight || promoted.Type != models.MissionHighlight {
		t.Fatalf("Expected promoted mission to be the highlight, got %+v", promoted)
	}
	if promoted.Points != 30 {
		t.Fatalf("Expected promoted mission worth highlight points, got %d", promoted.Points)
	}

	// With a highlight in place there is nothing left to suggest.
	resp = authJSON(t, app, "POST", "/api/missions/suggest-highlight", token,
		models.SuggestHighlightRequest{MissionDate: "2026-08-31"})
	if resp.StatusCode != 409 {
		t.Fatalf("Expected status 409 once a highlight exists, got %d", resp.StatusCode)
	}
}

func TestListMissionsByDate(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	app := setupTestApp(db)

	token := registerUser(t, app, "testuser")

	createMission(t, app, token, models.CreateMissionRequest{
		Type: models.MissionHighlight, Title: "Today's focus", MissionDate: "2026-08-31",
	})
	createMission(t, app, token, models.CreateMissionRequest{
		Type: models.MissionExtra, Title: "Bonus", MissionDate: "2026-08-31",
	})
	createMission(t, app, token, models.CreateMissionRequest{
		Type: models.MissionExtra, Title: "Tomorrow's bonus", MissionDate: "2026-09-01",
	})

	resp := authJSON(t, app, "GET", "/api/missions/?date=2026-08-31", token, nil)
	var missions []models.Mission
	decodeBody(t, resp, &missions)
	if len(missions) != 2 {
		t.Fatalf("Expected 2 missions on 2026-08-31, got %d", len(missions))
	}
	if !missions[0].IsHighlight {
		t.Fatal("Expected the highlight listed first")
	}
}

func TestManualHabitMissionRejected(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	app := setupTestApp(db)

	token := registerUser(t, app, "testuser")

	resp := authJSON(t, app, "POST", "/api/missions/", token, models.CreateMissionRequest{
		Type: models.MissionHabit, Title: "Fake habit", MissionDate: "2026-08-31",
	})
	if resp.StatusCode != 400 {
		t.Fatalf("Expected status 400 for manual habit mission, got %d", resp.StatusCode)
	}
}

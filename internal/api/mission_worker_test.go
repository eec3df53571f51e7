package api_test

import (
	"testing"
	"time"

	"empire/internal/api"
	"empire/internal/models"
)

func TestGenerateDailyMissionsIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	app := setupTestApp(db)

	token := registerUser(t, app, "testuser")
	cat := createCategory(t, app, token, "Health", nil)
	createGoal(t, app, token, models.GoalRequest{
		Title:      "Meditate",
		Type:       models.GoalHabitual,
		CategoryID: cat.ID,
		HabitPlan:  &models.HabitPlanDraft{Frequency: models.FrequencyDaily},
	})

	day, _ := time.Parse("2006-01-02", "2026-09-02") // Wednesday
	for i := 0; i < 3; i++ {
		if err := api.GenerateDailyMissions(db, day); err != nil {
			t.Fatal(err)
		}
	}

	var count int
	db.QueryRow("SELECT COUNT(*) FROM missions WHERE mission_date = '2026-09-02'").Scan(&count)
	if count != 1 {
		t.Fatalf("Expected 1 habit mission after repeated runs, got %d", count)
	}

	var missionType string
	var points int
	db.QueryRow("SELECT type, points FROM missions WHERE mission_date = '2026-09-02'").Scan(&missionType, &points)
	if missionType != models.MissionHabit {
		t.Fatalf("Expected habit mission, got %s", missionType)
	}
	if points != 5 {
		t.Fatalf("Expected habit worth habit_min 5, got %d", points)
	}
}

func TestWeeklyHabitsGenerateOnMondays(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	app := setupTestApp(db)

	token := registerUser(t, app, "testuser")
	cat := createCategory(t, app, token, "Home", nil)
	createGoal(t, app, token, models.GoalRequest{
		Title:      "Weekly review",
		Type:       models.GoalHabitual,
		CategoryID: cat.ID,
		HabitPlan:  &models.HabitPlanDraft{Frequency: models.FrequencyWeekly},
	})

	wednesday, _ := time.Parse("2006-01-02", "2026-09-02")
	if err := api.GenerateDailyMissions(db, wednesday); err != nil {
		t.Fatal(err)
	}
	var count int
	db.QueryRow("SELECT COUNT(*) FROM missions").Scan(&count)
	if count != 0 {
		t.Fatalf("Expected no weekly mission on Wednesday, got %d", count)
	}

	monday, _ := time.Parse("2006-01-02", "2026-08-31")
	if err := api.GenerateDailyMissions(db, monday); err != nil {
		t.Fatal(err)
	}
	db.QueryRow("SELECT COUNT(*) FROM missions").Scan(&count)
	if count != 1 {
		t.Fatalf("Expected 1 weekly mission on Monday, got %d", count)
	}
}

func TestTimesPerWeekHabitsFillEarlyWeekdays(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	app := setupTestApp(db)

	token := registerUser(t, app, "testuser")
	cat := createCategory(t, app, token, "Health", nil)
	three := 3
	createGoal(t, app, token, models.GoalRequest{
		Title:      "Gym",
		Type:       models.GoalHabitual,
		CategoryID: cat.ID,
		HabitPlan:  &models.HabitPlanDraft{Frequency: models.FrequencyTimesPerWeek, TimesPerWeek: &three},
	})

	// Three times a week lands on Monday, Tuesday and Wednesday.
	week := []struct {
		date string
		want int
	}{
		{"2026-08-31", 1}, // Monday
		{"2026-09-01", 1}, // Tuesday
		{"2026-09-02", 1}, // Wednesday
		{"2026-09-03", 0}, // Thursday
		{"2026-09-06", 0}, // Sunday
	}
	for _, d := range week {
		day, _ := time.Parse("2006-01-02", d.date)
		if err := api.GenerateDailyMissions(db, day); err != nil {
			t.Fatal(err)
		}
		var count int
		db.QueryRow("SELECT COUNT(*) FROM missions WHERE mission_date = ?", d.date).Scan(&count)
		if count != d.want {
			t.Errorf("Expected %d mission(s) on %s, got %d", d.want, d.date, count)
		}
	}
}

func TestCompletedGoalsStopGeneratingMissions(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	app := setupTestApp(db)

	token := registerUser(t, app, "testuser")
	cat := createCategory(t, app, token, "Health", nil)
	goal := createGoal(t, app, token, models.GoalRequest{
		Title:      "Morning run",
		Type:       models.GoalHabitual,
		CategoryID: cat.ID,
		HabitPlan:  &models.HabitPlanDraft{Frequency: models.FrequencyDaily},
	})

	authJSON(t, app, "PUT", "/api/goals/"+goal.ID+"/complete", token, nil)

	day, _ := time.Parse("2006-01-02", "2026-09-02")
	if err := api.GenerateDailyMissions(db, day); err != nil {
		t.Fatal(err)
	}
	var count int
	db.QueryRow("SELECT COUNT(*) FROM missions").Scan(&count)
	if count != 0 {
		t.Fatalf("Expected no missions for completed goal, got %d", count)
	}
}

func TestDifficultyScalingRaisesHabitPoints(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	app := setupTestApp(db)

	token := registerUser(t, app, "testuser")
	authJSON(t, app, "PUT", "/api/settings", token, models.UserSettings{
		LongTermMonths: 3, CycleDays: 14, HighlightPoints: 30,
		HabitMin: 5, HabitMax: 13, ExtraPoints: 10, DifficultyScaling: true,
	})

	cat := createCategory(t, app, token, "Health", nil)
	createGoal(t, app, token, models.GoalRequest{
		Title:      "Hard habit",
		Type:       models.GoalHabitual,
		CategoryID: cat.ID,
		Importance: 5,
		HabitPlan:  &models.HabitPlanDraft{Frequency: models.FrequencyDaily},
	})

	day, _ := time.Parse("2006-01-02", "2026-09-02")
	if err := api.GenerateDailyMissions(db, day); err != nil {
		t.Fatal(err)
	}

	// Importance 5 maps to the top of the habit_min..habit_max range.
	var points int
	db.QueryRow("SELECT points FROM missions LIMIT 1").Scan(&points)
	if points != 13 {
		t.Fatalf("Expected scaled habit worth 13 points, got %d", points)
	}
}

func TestLegacyPeriodMigration(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	app := setupTestApp(db)

	token := registerUser(t, app, "testuser")
	cat := createCategory(t, app, token, "Health", nil)
	goal := createGoal(t, app, token, models.GoalRequest{
		Title:      "Old habit",
		Type:       models.GoalHabitual,
		CategoryID: cat.ID,
		HabitPlan:  &models.HabitPlanDraft{Frequency: models.FrequencyDaily},
	})

	// Rewrite the plan into its legacy shape.
	if _, err := db.Exec(
		"UPDATE habit_plans SET frequency = NULL, period = 'week' WHERE goal_id = ?", goal.ID,
	); err != nil {
		t.Fatal(err)
	}

	// The read path normalizes legacy rows even before migration.
	resp := authJSON(t, app, "GET", "/api/goals/"+goal.ID, token, nil)
	var fetched models.Goal
	decodeBody(t, resp, &fetched)
	if fetched.Tracking == nil || fetched.Tracking.HabitPlan == nil {
		t.Fatal("Expected habit plan in tracking")
	}
	if fetched.Tracking.HabitPlan.Frequency != models.FrequencyWeekly {
		t.Fatalf("Expected legacy period 'week' read as weekly, got %s", fetched.Tracking.HabitPlan.Frequency)
	}

	if err := api.MigrateLegacyHabitPlanPeriods(db); err != nil {
		t.Fatal(err)
	}

	var frequency string
	var period any
	db.QueryRow("SELECT frequency, period FROM habit_plans WHERE goal_id = ?", goal.ID).Scan(&frequency, &period)
	if frequency != models.FrequencyWeekly {
		t.Fatalf("Expected migrated frequency weekly, got %s", frequency)
	}
	if period != nil {
		t.Fatalf("Expected period cleared after migration, got %v", period)
	}

	// Running the migration again changes nothing.
	if err := api.MigrateLegacyHabitPlanPeriods(db); err != nil {
		t.Fatal(err)
	}
}

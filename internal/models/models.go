package models

import "time"

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Profile struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Timezone    string    `json:"timezone"`
	CreatedAt   time.Time `json:"created_at"`
}

type UserSettings struct {
	UserID            string `json:"user_id"`
	LongTermMonths    int    `json:"long_term_months"`
	CycleDays         int    `json:"cycle_days"`
	HighlightPoints   int    `json:"highlight_points"`
	HabitMin          int    `json:"habit_min"`
	HabitMax          int    `json:"habit_max"`
	ExtraPoints       int    `json:"extra_points"`
	DifficultyScaling bool   `json:"difficulty_scaling"`
}

// DefaultSettings returns the point and plan configuration used until the
// user saves their own.
func DefaultSettings(userID string) UserSettings {
	return UserSettings{
		UserID:            userID,
		LongTermMonths:    3,
		CycleDays:         14,
		HighlightPoints:   30,
		HabitMin:          5,
		HabitMax:          10,
		ExtraPoints:       10,
		DifficultyScaling: false,
	}
}

type Category struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	ParentID  *string   `json:"parent_id"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	GoalProgressive = "progressive"
	GoalHabitual    = "habitual"
)

type Goal struct {
	ID                  string    `json:"id"`
	UserID              string    `json:"user_id"`
	CategoryID          string    `json:"category_id"`
	Title               string    `json:"title"`
	Description         string    `json:"description,omitempty"`
	Type                string    `json:"type"`
	Importance          int       `json:"importance"`
	EffortEstimateHours *float64  `json:"effort_estimate_hours,omitempty"`
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
	Tracking            *Tracking `json:"tracking,omitempty"`
}

// Tracking is the goal's kind-specific record, resolved once at the
// data-access boundary: progressive goals carry milestones, habitual goals
// carry a habit plan, never both.
type Tracking struct {
	Milestones []Milestone `json:"milestones,omitempty"`
	HabitPlan  *HabitPlan  `json:"habit_plan,omitempty"`
}

type Milestone struct {
	ID          string  `json:"id"`
	GoalID      string  `json:"goal_id"`
	Title       string  `json:"title"`
	TargetDate  *string `json:"target_date,omitempty"`
	OrderIndex  int     `json:"order_index"`
	IsCompleted bool    `json:"is_completed"`
}

const (
	FrequencyDaily        = "daily"
	FrequencyWeekly       = "weekly"
	FrequencyTimesPerWeek = "times_per_week"
)

type HabitPlan struct {
	ID           string `json:"id"`
	GoalID       string `json:"goal_id"`
	Frequency    string `json:"frequency"`
	TimesPerWeek *int   `json:"times_per_week,omitempty"`
}

type Task struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	GoalID         *string    `json:"goal_id"`
	Title          string     `json:"title"`
	DueDate        *string    `json:"due_date"`
	EstimatedHours *float64   `json:"estimated_hours"`
	Status         string     `json:"status"`
	Importance     int        `json:"importance"`
	IsGenerated    bool       `json:"is_generated"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

const (
	MissionHighlight = "highlight"
	MissionHabit     = "habit"
	MissionExtra     = "extra"
)

type Mission struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	CycleID     *string    `json:"cycle_id"`
	TaskID      *string    `json:"task_id"`
	HabitPlanID *string    `json:"habit_plan_id"`
	MissionDate string     `json:"mission_date"`
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	IsHighlight bool       `json:"is_highlight"`
	Points      int        `json:"points"`
	IsCompleted bool       `json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type PointsEntry struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	MissionID  *string   `json:"mission_id"`
	Points     int       `json:"points"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}

type LongTerm struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	StartDate string    `json:"start_date"`
	EndDate   string    `json:"end_date"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type Cycle struct {
	ID         string `json:"id"`
	LongTermID string `json:"long_term_id"`
	Title      string `json:"title"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	OrderIndex int    `json:"order_index"`
}

type CycleGoal struct {
	ID               string `json:"id"`
	CycleID          string `json:"cycle_id"`
	GoalID           string `json:"goal_id"`
	ExpectedProgress string `json:"expected_progress"`
	ExpectedHours    int    `json:"expected_hours"`
}

type EmpireLevel struct {
	UserID      string `json:"user_id"`
	TotalPoints int    `json:"total_points"`
	Level       int    `json:"level"`
}

type PushSubscription struct {
	UserID   string `json:"user_id"`
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

// Request payloads

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember,omitempty"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type CategoryRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id,omitempty"`
}

type MilestoneDraft struct {
	ID         string  `json:"id,omitempty"`
	Title      string  `json:"title"`
	TargetDate *string `json:"target_date,omitempty"`
}

type HabitPlanDraft struct {
	Frequency    string `json:"frequency"`
	TimesPerWeek *int   `json:"times_per_week,omitempty"`
}

type GoalRequest struct {
	Title               string           `json:"title"`
	Description         string           `json:"description,omitempty"`
	Type                string           `json:"type"`
	CategoryID          string           `json:"category_id"`
	Importance          int              `json:"importance"`
	EffortEstimateHours *float64         `json:"effort_estimate_hours,omitempty"`
	Milestones          []MilestoneDraft `json:"milestones,omitempty"`
	HabitPlan           *HabitPlanDraft  `json:"habit_plan,omitempty"`
}

type UpdateMilestoneRequest struct {
	IsCompleted bool `json:"is_completed"`
}

type CreateTaskRequest struct {
	Title          string   `json:"title"`
	GoalID         *string  `json:"goal_id,omitempty"`
	DueDate        *string  `json:"due_date,omitempty"`
	EstimatedHours *float64 `json:"estimated_hours,omitempty"`
	Importance     *int     `json:"importance,omitempty"`
}

type UpdateTaskStatusRequest struct {
	Status string `json:"status"`
}

type CreateMissionRequest struct {
	Type        string `json:"type"`
	Title       string `json:"title,omitempty"`
	MissionDate string `json:"mission_date,omitempty"`
}

type SuggestHighlightRequest struct {
	MissionDate string `json:"mission_date,omitempty"`
}

type PlanGoalConfig struct {
	GoalID           string `json:"goal_id"`
	ExpectedProgress string `json:"expected_progress"`
	ExpectedHours    *int   `json:"expected_hours,omitempty"`
}

type CreatePlanRequest struct {
	Title string           `json:"title"`
	Goals []PlanGoalConfig `json:"goals"`
}

type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name,omitempty"`
	Timezone    *string `json:"timezone,omitempty"`
}

type UserStats struct {
	TotalPoints            int `json:"total_points"`
	CurrentLevel           int `json:"current_level"`
	MissionsCompletedToday int `json:"missions_completed_today"`
	GoalsCompleted         int `json:"goals_completed"`
	CurrentStreak          int `json:"current_streak"`
}

// Package catalog holds the static lesson, mission and achievement definitions that seed
// every family's progress.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"coinzy/internal/models"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

// MissionMetric names the progress signal a daily mission counts
type MissionMetric string

const (
	MissionLessons MissionMetric = "lessons"
	MissionSavings MissionMetric = "savings"
	MissionXP      MissionMetric = "xp"
	MissionManual  MissionMetric = "manual"
)

// AchievementMetric names the progress value an achievement threshold is compared with
type AchievementMetric string

const (
	AchievementLessons AchievementMetric = "lessons"
	AchievementBalance AchievementMetric = "balance"
	AchievementXP      AchievementMetric = "xp"
	AchievementStreak  AchievementMetric = "streak"
	AchievementManual  AchievementMetric = "manual"
)

// Defaults seeds the bank settings of a new family
type Defaults struct {
	SavingsGoal  float64 `yaml:"savings_goal"`
	InterestRate float64 `yaml:"interest_rate"`
}

// OptionEntry is an answer choice in the catalog file
type OptionEntry struct {
	Text     string `yaml:"text"`
	Correct  bool   `yaml:"correct"`
	Feedback string `yaml:"feedback"`
}

// QuestionEntry is a lesson in the catalog file
type QuestionEntry struct {
	ID       string        `yaml:"id"`
	Title    string        `yaml:"title"`
	Emoji    string        `yaml:"emoji"`
	Topic    string        `yaml:"topic"`
	XPReward int           `yaml:"xp_reward"`
	Question string        `yaml:"question"`
	Options  []OptionEntry `yaml:"options"`
}

// MissionEntry is a daily mission in the catalog file
type MissionEntry struct {
	ID          string        `yaml:"id"`
	Title       string        `yaml:"title"`
	Description string        `yaml:"description"`
	Emoji       string        `yaml:"emoji"`
	Metric      MissionMetric `yaml:"metric"`
	Target      int           `yaml:"target"`
	XPReward    int           `yaml:"xp_reward"`
}

// AchievementEntry is an achievement and its unlock rule
type AchievementEntry struct {
	ID          string            `yaml:"id"`
	Title       string            `yaml:"title"`
	Description string            `yaml:"description"`
	Emoji       string            `yaml:"emoji"`
	Metric      AchievementMetric `yaml:"metric"`
	Threshold   float64           `yaml:"threshold"`
}

// Catalog is the parsed, validated set of definitions
type Catalog struct {
	Defaults     Defaults           `yaml:"defaults"`
	Questions    []QuestionEntry    `yaml:"questions"`
	Missions     []MissionEntry     `yaml:"missions"`
	Achievements []AchievementEntry `yaml:"achievements"`
}

// Default returns the catalog compiled into the binary
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file, falling back to the built-in catalog when path is empty
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates catalog YAML
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks ids are unique and every rule is well formed
func (c *Catalog) Validate() error {
	var errs []error

	if c.Defaults.SavingsGoal <= 0 {
		errs = append(errs, errors.New("defaults.savings_goal must be positive"))
	}
	if c.Defaults.InterestRate < 0 {
		errs = append(errs, errors.New("defaults.interest_rate must not be negative"))
	}

	seen := make(map[string]bool)
	for _, q := range c.Questions {
		if strings.TrimSpace(q.ID) == "" {
			errs = append(errs, errors.New("question with empty id"))
			continue
		}
		if seen[q.ID] {
			errs = append(errs, fmt.Errorf("duplicate question id %q", q.ID))
		}
		seen[q.ID] = true
		if q.XPReward <= 0 {
			errs = append(errs, fmt.Errorf("question %q: xp_reward must be positive", q.ID))
		}
		correct := 0
		for _, o := range q.Options {
			if o.Correct {
				correct++
			}
		}
		if len(q.Options) < 2 || correct == 0 {
			errs = append(errs, fmt.Errorf("question %q: needs at least two options and one correct answer", q.ID))
		}
	}

	seen = make(map[string]bool)
	for _, m := range c.Missions {
		if seen[m.ID] {
			errs = append(errs, fmt.Errorf("duplicate mission id %q", m.ID))
		}
		seen[m.ID] = true
		if m.Target <= 0 {
			errs = append(errs, fmt.Errorf("mission %q: target must be positive", m.ID))
		}
		switch m.Metric {
		case MissionLessons, MissionSavings, MissionXP, MissionManual:
		default:
			errs = append(errs, fmt.Errorf("mission %q: unknown metric %q", m.ID, m.Metric))
		}
	}

	seen = make(map[string]bool)
	for _, a := range c.Achievements {
		if seen[a.ID] {
			errs = append(errs, fmt.Errorf("duplicate achievement id %q", a.ID))
		}
		seen[a.ID] = true
		switch a.Metric {
		case AchievementLessons, AchievementBalance, AchievementXP, AchievementStreak:
			if a.Threshold <= 0 {
				errs = append(errs, fmt.Errorf("achievement %q: threshold must be positive", a.ID))
			}
		case AchievementManual:
		default:
			errs = append(errs, fmt.Errorf("achievement %q: unknown metric %q", a.ID, a.Metric))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid catalog: %w", errors.Join(errs...))
	}
	return nil
}

// InitialQuestions returns fresh, uncompleted copies of every lesson
func (c *Catalog) InitialQuestions() []models.Question {
	questions := make([]models.Question, 0, len(c.Questions))
	for _, q := range c.Questions {
		options := make([]models.Option, 0, len(q.Options))
		for _, o := range q.Options {
			options = append(options, models.Option{Text: o.Text, IsCorrect: o.Correct, Feedback: o.Feedback})
		}
		questions = append(questions, models.Question{
			ID:       q.ID,
			Title:    q.Title,
			Emoji:    q.Emoji,
			Question: q.Question,
			Options:  options,
			XPReward: q.XPReward,
			Topic:    q.Topic,
		})
	}
	return questions
}

// InitialMissions returns the daily missions with no progress
func (c *Catalog) InitialMissions() []models.DailyMission {
	missions := make([]models.DailyMission, 0, len(c.Missions))
	for _, m := range c.Missions {
		missions = append(missions, models.DailyMission{
			ID:          m.ID,
			Title:       m.Title,
			Description: m.Description,
			Target:      m.Target,
			XPReward:    m.XPReward,
			Emoji:       m.Emoji,
		})
	}
	return missions
}

// InitialAchievements returns every achievement locked
func (c *Catalog) InitialAchievements() []models.Achievement {
	achievements := make([]models.Achievement, 0, len(c.Achievements))
	for _, a := range c.Achievements {
		achievements = append(achievements, models.Achievement{
			ID:          a.ID,
			Title:       a.Title,
			Description: a.Description,
			Emoji:       a.Emoji,
		})
	}
	return achievements
}

// MissionMetric returns the metric a mission counts, or MissionManual for unknown ids
func (c *Catalog) MissionMetric(id string) MissionMetric {
	for _, m := range c.Missions {
		if m.ID == id {
			return m.Metric
		}
	}
	return MissionManual
}

// NewProgress builds the starting aggregate of a family
func (c *Catalog) NewProgress() *models.Progress {
	return &models.Progress{
		Level:               1,
		Questions:           c.InitialQuestions(),
		DailyMissions:       c.InitialMissions(),
		BankBalance:         decimal.Zero,
		SavingsGoal:         decimal.NewFromFloat(c.Defaults.SavingsGoal),
		Transactions:        []models.BankTransaction{},
		InterestRate:        decimal.NewFromFloat(c.Defaults.InterestRate),
		FamilyNotifications: []models.FamilyNotification{},
		Achievements:        c.InitialAchievements(),
	}
}

// Package progress implements the progress and ledger engine of a single family: XP and
// levels, streaks, lessons, daily missions, the savings bank, parent notifications and
// achievements.
//
// A Store is a plain in-memory state machine. It is not safe for concurrent use; callers
// serialise access per family (see the service package).
package progress

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"coinzy/internal/catalog"
	"coinzy/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrNotFound            = errors.New("not found")
	ErrMissionNotCompleted = errors.New("mission not completed")
	ErrRewardClaimed       = errors.New("mission reward already claimed")
	ErrInconsistentLedger  = errors.New("ledger does not match balance")
)

// dateLayout is how lastActiveDate is stored
const dateLayout = "2006-01-02"

// Store owns and mutates one family's progress aggregate
type Store struct {
	state   *models.Progress
	catalog *catalog.Catalog
	now     func() time.Time
	loc     *time.Location
	newID   func() string
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithLocation sets the time zone used for calendar-day comparisons
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithIDGenerator overrides how transaction and notification ids are minted
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		s.newID = newID
	}
}

// New creates a store holding a fresh aggregate built from the catalog
func New(c *catalog.Catalog, opts ...Option) *Store {
	s := newStore(c, opts)
	s.state = c.NewProgress()
	return s
}

// Restore rebuilds a store from a persisted document. Catalog entries missing from the
// document are added, and the ledger invariant is checked.
func Restore(c *catalog.Catalog, data []byte, opts ...Option) (*Store, error) {
	state := &models.Progress{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}

	s := newStore(c, opts)
	s.state = state
	s.reconcile()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func newStore(c *catalog.Catalog, opts []Option) *Store {
	s := &Store{
		catalog: c,
		now:     time.Now,
		loc:     time.Local,
		newID:   newTimeOrderedID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// newTimeOrderedID returns a UUIDv7, falling back to a random UUID
func newTimeOrderedID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Progress returns a copy of the current aggregate
func (s *Store) Progress() *models.Progress {
	return s.state.Clone()
}

// MarshalJSON encodes the aggregate as the persisted document
func (s *Store) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.state)
}

// Validate checks the aggregate invariants
func (s *Store) Validate() error {
	p := s.state
	if total := p.LedgerTotal(); !total.Equal(p.BankBalance) {
		return fmt.Errorf("%w: balance %s, transactions sum to %s", ErrInconsistentLedger, p.BankBalance, total)
	}
	if p.BankBalance.IsNegative() {
		return fmt.Errorf("%w: negative balance %s", ErrInconsistentLedger, p.BankBalance)
	}
	// Only parent withdrawals debit the ledger
	for _, tx := range p.Transactions {
		if tx.IsWithdrawal() && tx.Type != models.TransactionRealMoneyDeposit {
			return fmt.Errorf("%w: %s entry %s has negative amount %s", ErrInconsistentLedger, tx.Type, tx.ID, tx.Amount)
		}
	}
	if p.XP < 0 {
		return fmt.Errorf("%w: negative xp %d", ErrInvalidArgument, p.XP)
	}
	if !p.SavingsGoal.IsPositive() {
		return fmt.Errorf("%w: savings goal must be positive", ErrInvalidArgument)
	}
	for _, m := range p.DailyMissions {
		if m.Current < 0 || m.Current > m.Target {
			return fmt.Errorf("%w: mission %s progress %d outside 0..%d", ErrInvalidArgument, m.ID, m.Current, m.Target)
		}
	}
	return nil
}

// reconcile fills derived values and appends catalog entries added since the document
// was written
func (s *Store) reconcile() {
	p := s.state
	p.Level = models.LevelForXP(p.XP)
	if p.SavingsGoal.IsZero() {
		p.SavingsGoal = decimal.NewFromFloat(s.catalog.Defaults.SavingsGoal)
	}

	if p.Transactions == nil {
		p.Transactions = []models.BankTransaction{}
	}
	if p.FamilyNotifications == nil {
		p.FamilyNotifications = []models.FamilyNotification{}
	}

	questions := make(map[string]bool, len(p.Questions))
	for _, q := range p.Questions {
		questions[q.ID] = true
	}
	for _, q := range s.catalog.InitialQuestions() {
		if !questions[q.ID] {
			p.Questions = append(p.Questions, q)
		}
	}

	missions := make(map[string]bool, len(p.DailyMissions))
	for _, m := range p.DailyMissions {
		missions[m.ID] = true
	}
	for _, m := range s.catalog.InitialMissions() {
		if !missions[m.ID] {
			p.DailyMissions = append(p.DailyMissions, m)
		}
	}

	achievements := make(map[string]bool, len(p.Achievements))
	for _, a := range p.Achievements {
		achievements[a.ID] = true
	}
	for _, a := range s.catalog.InitialAchievements() {
		if !achievements[a.ID] {
			p.Achievements = append(p.Achievements, a)
		}
	}

	if p.CurrentQuestionIndex < 0 || p.CurrentQuestionIndex >= len(p.Questions) {
		p.CurrentQuestionIndex = 0
	}
}

func (s *Store) today() time.Time {
	return s.now().In(s.loc)
}

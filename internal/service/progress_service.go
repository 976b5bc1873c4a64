package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"coinzy/internal/catalog"
	"coinzy/internal/models"
	"coinzy/internal/progress"
	"coinzy/internal/repository"

	"github.com/shopspring/decimal"
)

// maxSaveAttempts bounds retries when another writer bumped the snapshot version
const maxSaveAttempts = 3

var ErrMissingFamily = errors.New("family id is required")

// SnapshotStore persists progress documents with optimistic versioning
type SnapshotStore interface {
	GetSnapshot(ctx context.Context, familyID string) (*models.ProgressSnapshot, error)
	SaveSnapshot(ctx context.Context, familyID string, document []byte, expectedVersion int64) (int64, error)
	ListFamilyIDs(ctx context.Context) ([]string, error)
}

// ContactStore looks up where a family's notifications are e-mailed
type ContactStore interface {
	GetContact(ctx context.Context, familyID string) (*models.FamilyContact, error)
	SetContact(ctx context.Context, familyID, email string) (*models.FamilyContact, error)
}

// Notifier delivers parent notifications outside the app
type Notifier interface {
	SendFamilyNotification(ctx context.Context, toEmail string, n models.FamilyNotification) error
	SendContactConfirmation(ctx context.Context, toEmail string) error
}

// Publisher pushes progress events to connected dashboards
type Publisher interface {
	Publish(familyID string, event any) error
}

// Event is what dashboards receive after a family's progress changed
type Event struct {
	Type     string            `json:"type"`
	FamilyID string            `json:"familyId"`
	Version  int64             `json:"version"`
	Outcome  *progress.Outcome `json:"outcome"`
	At       time.Time         `json:"at"`
}

// Result is returned by every progress operation
type Result struct {
	Outcome  *progress.Outcome `json:"outcome"`
	Progress *models.Progress  `json:"progress"`
	Version  int64             `json:"version"`

	// UnreadNotifications is the parent dashboard badge count
	UnreadNotifications int `json:"unreadNotifications"`
}

// ProgressService loads, mutates and saves family progress. Operations on one family are
// serialised in-process and guarded by snapshot versions across processes.
type ProgressService struct {
	snapshots SnapshotStore
	contacts  ContactStore
	notifier  Notifier
	publisher Publisher
	catalog   *catalog.Catalog
	opts      []progress.Option
	debug     bool

	mu    sync.Mutex
	locks map[string]*familyLock
}

// familyLock serialises one family's operations; refs counts holders and waiters so the
// entry can be dropped once idle
type familyLock struct {
	sync.Mutex
	refs int
}

// NewProgressService creates a new progress service
func NewProgressService(snapshots SnapshotStore, c *catalog.Catalog, opts ...progress.Option) *ProgressService {
	return &ProgressService{
		snapshots: snapshots,
		catalog:   c,
		opts:      opts,
		locks:     make(map[string]*familyLock),
	}
}

// WithNotifications enables e-mailing parent notifications to the family contact
func (s *ProgressService) WithNotifications(contacts ContactStore, notifier Notifier) *ProgressService {
	s.contacts = contacts
	s.notifier = notifier
	return s
}

// WithPublisher enables realtime events
func (s *ProgressService) WithPublisher(p Publisher) *ProgressService {
	s.publisher = p
	return s
}

// WithDebug turns on [DEBUG] logging
func (s *ProgressService) WithDebug(debug bool) *ProgressService {
	s.debug = debug
	return s
}

// Snapshot returns the family's current progress. Families without a stored document get a
// fresh one, which is not saved until the first change.
func (s *ProgressService) Snapshot(ctx context.Context, familyID string) (*Result, error) {
	if familyID == "" {
		return nil, ErrMissingFamily
	}
	store, version, err := s.load(ctx, familyID)
	if err != nil {
		return nil, err
	}
	return s.result(nil, store, version), nil
}

func (s *ProgressService) result(out *progress.Outcome, store *progress.Store, version int64) *Result {
	p := store.Progress()
	return &Result{
		Outcome:             out,
		Progress:            p,
		Version:             version,
		UnreadNotifications: len(p.UnreadNotifications()),
	}
}

func (s *ProgressService) AddXP(ctx context.Context, familyID string, amount int) (*Result, error) {
	return s.mutate(ctx, familyID, "xp_added", func(st *progress.Store) (*progress.Outcome, error) {
		return st.AddXP(amount)
	})
}

func (s *ProgressService) CompleteQuestion(ctx context.Context, familyID, questionID string) (*Result, error) {
	return s.mutate(ctx, familyID, "question_completed", func(st *progress.Store) (*progress.Outcome, error) {
		return st.CompleteQuestion(questionID)
	})
}

func (s *ProgressService) AnswerQuestion(ctx context.Context, familyID, questionID string, option int) (*Result, error) {
	return s.mutate(ctx, familyID, "question_answered", func(st *progress.Store) (*progress.Outcome, error) {
		return st.AnswerQuestion(questionID, option)
	})
}

func (s *ProgressService) SetCurrentQuestion(ctx context.Context, familyID string, index int) (*Result, error) {
	return s.mutate(ctx, familyID, "current_question_set", func(st *progress.Store) (*progress.Outcome, error) {
		return st.SetCurrentQuestion(index)
	})
}

func (s *ProgressService) DepositRealMoney(ctx context.Context, familyID string, amount decimal.Decimal, description string) (*Result, error) {
	return s.mutate(ctx, familyID, "money_deposited", func(st *progress.Store) (*progress.Outcome, error) {
		return st.DepositRealMoney(amount, description)
	})
}

func (s *ProgressService) WithdrawRealMoney(ctx context.Context, familyID string, amount decimal.Decimal, description string) (*Result, error) {
	return s.mutate(ctx, familyID, "money_withdrawn", func(st *progress.Store) (*progress.Outcome, error) {
		return st.WithdrawRealMoney(amount, description)
	})
}

func (s *ProgressService) DepositCoins(ctx context.Context, familyID string, amount decimal.Decimal) (*Result, error) {
	return s.mutate(ctx, familyID, "coins_deposited", func(st *progress.Store) (*progress.Outcome, error) {
		return st.DepositCoins(amount)
	})
}

func (s *ProgressService) GrantBonus(ctx context.Context, familyID string, amount decimal.Decimal, description string) (*Result, error) {
	return s.mutate(ctx, familyID, "bonus_granted", func(st *progress.Store) (*progress.Outcome, error) {
		return st.GrantBonus(amount, description)
	})
}

func (s *ProgressService) ApplyInterest(ctx context.Context, familyID string) (*Result, error) {
	return s.mutate(ctx, familyID, "interest_applied", func(st *progress.Store) (*progress.Outcome, error) {
		return st.ApplyInterest()
	})
}

func (s *ProgressService) SetSavingsGoal(ctx context.Context, familyID string, goal decimal.Decimal) (*Result, error) {
	return s.mutate(ctx, familyID, "savings_goal_set", func(st *progress.Store) (*progress.Outcome, error) {
		return st.SetSavingsGoal(goal)
	})
}

func (s *ProgressService) UpdateStreak(ctx context.Context, familyID string) (*Result, error) {
	return s.mutate(ctx, familyID, "streak_updated", func(st *progress.Store) (*progress.Outcome, error) {
		return st.UpdateStreak()
	})
}

func (s *ProgressService) AdvanceMission(ctx context.Context, familyID, missionID string, amount int) (*Result, error) {
	return s.mutate(ctx, familyID, "mission_advanced", func(st *progress.Store) (*progress.Outcome, error) {
		return st.AdvanceMission(missionID, amount)
	})
}

func (s *ProgressService) ClaimMissionReward(ctx context.Context, familyID, missionID string) (*Result, error) {
	return s.mutate(ctx, familyID, "mission_reward_claimed", func(st *progress.Store) (*progress.Outcome, error) {
		return st.ClaimMissionReward(missionID)
	})
}

func (s *ProgressService) ResetDailyMissions(ctx context.Context, familyID string) (*Result, error) {
	return s.mutate(ctx, familyID, "missions_reset", func(st *progress.Store) (*progress.Outcome, error) {
		return st.ResetDailyMissions()
	})
}

func (s *ProgressService) MarkNotificationAsRead(ctx context.Context, familyID, notificationID string) (*Result, error) {
	return s.mutate(ctx, familyID, "notification_read", func(st *progress.Store) (*progress.Outcome, error) {
		return st.MarkNotificationAsRead(notificationID)
	})
}

func (s *ProgressService) UnlockAchievement(ctx context.Context, familyID, achievementID string) (*Result, error) {
	return s.mutate(ctx, familyID, "achievement_unlocked", func(st *progress.Store) (*progress.Outcome, error) {
		return st.UnlockAchievement(achievementID)
	})
}

// SetContactEmail stores where the family's notifications are e-mailed and sends a
// confirmation to the new address
func (s *ProgressService) SetContactEmail(ctx context.Context, familyID, email string) (*models.FamilyContact, error) {
	if familyID == "" {
		return nil, ErrMissingFamily
	}
	if s.contacts == nil {
		return nil, errors.New("family contacts are not configured")
	}
	contact, err := s.contacts.SetContact(ctx, familyID, strings.TrimSpace(email))
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		if err := s.notifier.SendContactConfirmation(ctx, contact.Email); err != nil {
			log.Printf("Failed to send contact confirmation for family %s: %v", familyID, err)
		}
	}
	return contact, nil
}

// ResetAllDailyMissions starts a new mission day for every stored family and returns how
// many were reset
func (s *ProgressService) ResetAllDailyMissions(ctx context.Context) (int, error) {
	return s.forEachFamily(ctx, "daily mission reset", s.ResetDailyMissions)
}

// ApplyInterestAll credits interest to every stored family
func (s *ProgressService) ApplyInterestAll(ctx context.Context) (int, error) {
	return s.forEachFamily(ctx, "interest", s.ApplyInterest)
}

func (s *ProgressService) forEachFamily(ctx context.Context, job string, fn func(context.Context, string) (*Result, error)) (int, error) {
	ids, err := s.snapshots.ListFamilyIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list families: %w", err)
	}

	var errs []error
	done := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := fn(ctx, id); err != nil {
			log.Printf("Error running %s for family %s: %v", job, id, err)
			errs = append(errs, fmt.Errorf("family %s: %w", id, err))
			continue
		}
		done++
	}
	log.Printf("Ran %s for %d of %d families", job, done, len(ids))
	return done, errors.Join(errs...)
}

// mutate applies fn to the family's progress and saves the result. The in-memory mutation
// is discarded when fn fails, so rejected operations never reach storage.
func (s *ProgressService) mutate(ctx context.Context, familyID, eventType string, fn func(*progress.Store) (*progress.Outcome, error)) (*Result, error) {
	if familyID == "" {
		return nil, ErrMissingFamily
	}

	unlock := s.lockFamily(familyID)
	defer unlock()

	for attempt := 1; ; attempt++ {
		store, version, err := s.load(ctx, familyID)
		if err != nil {
			return nil, err
		}

		before, err := store.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("failed to encode progress: %w", err)
		}

		out, err := fn(store)
		if err != nil {
			return nil, err
		}

		document, err := store.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("failed to encode progress: %w", err)
		}

		// Repeats such as a second completion or a same-day streak leave the document as it
		// was: nothing is saved and no event goes out.
		if bytes.Equal(before, document) {
			if s.debug {
				log.Printf("[DEBUG] %s for family %s changed nothing", eventType, familyID)
			}
			return s.result(out, store, version), nil
		}

		newVersion, err := s.snapshots.SaveSnapshot(ctx, familyID, document, version)
		if errors.Is(err, repository.ErrVersionConflict) && attempt < maxSaveAttempts {
			if s.debug {
				log.Printf("[DEBUG] Version conflict for family %s at version %d, retrying", familyID, version)
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to save progress: %w", err)
		}

		if s.debug {
			log.Printf("[DEBUG] %s for family %s saved at version %d", eventType, familyID, newVersion)
		}

		s.publish(familyID, eventType, newVersion, out)
		s.sendNotifications(ctx, familyID, out.Notifications)

		return s.result(out, store, newVersion), nil
	}
}

// load restores the stored document or starts a new one at version 0
func (s *ProgressService) load(ctx context.Context, familyID string) (*progress.Store, int64, error) {
	snap, err := s.snapshots.GetSnapshot(ctx, familyID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load progress: %w", err)
	}
	if snap == nil {
		return progress.New(s.catalog, s.opts...), 0, nil
	}

	store, err := progress.Restore(s.catalog, snap.Document, s.opts...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to restore progress for family %s: %w", familyID, err)
	}
	return store, snap.Version, nil
}

func (s *ProgressService) publish(familyID, eventType string, version int64, out *progress.Outcome) {
	if s.publisher == nil {
		return
	}
	event := Event{
		Type:     eventType,
		FamilyID: familyID,
		Version:  version,
		Outcome:  out,
		At:       time.Now().UTC(),
	}
	if err := s.publisher.Publish(familyID, event); err != nil {
		log.Printf("Failed to publish %s for family %s: %v", eventType, familyID, err)
	}
}

// sendNotifications e-mails new notifications. Failures are logged; the progress change
// has already been saved.
func (s *ProgressService) sendNotifications(ctx context.Context, familyID string, notifications []models.FamilyNotification) {
	if len(notifications) == 0 || s.notifier == nil || s.contacts == nil {
		return
	}
	contact, err := s.contacts.GetContact(ctx, familyID)
	if err != nil {
		log.Printf("Failed to load contact for family %s: %v", familyID, err)
		return
	}
	if contact == nil || contact.Email == "" {
		return
	}
	for _, n := range notifications {
		if err := s.notifier.SendFamilyNotification(ctx, contact.Email, n); err != nil {
			log.Printf("Failed to e-mail notification %s for family %s: %v", n.ID, familyID, err)
		}
	}
}

func (s *ProgressService) lockFamily(familyID string) func() {
	s.mu.Lock()
	l, ok := s.locks[familyID]
	if !ok {
		l = &familyLock{}
		s.locks[familyID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()

		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, familyID)
		}
		s.mu.Unlock()
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"coinzy/internal/catalog"
	"coinzy/internal/models"
	"coinzy/internal/progress"
	"coinzy/internal/repository"

	"github.com/shopspring/decimal"
)

type memorySnapshots struct {
	mu        sync.Mutex
	snaps     map[string]models.ProgressSnapshot
	saves     int
	conflicts int // number of upcoming saves to reject
}

func newMemorySnapshots() *memorySnapshots {
	return &memorySnapshots{snaps: make(map[string]models.ProgressSnapshot)}
}

func (m *memorySnapshots) GetSnapshot(_ context.Context, familyID string) (*models.ProgressSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snaps[familyID]
	if !ok {
		return nil, nil
	}
	snap.Document = append([]byte(nil), snap.Document...)
	return &snap, nil
}

func (m *memorySnapshots) SaveSnapshot(_ context.Context, familyID string, document []byte, expectedVersion int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conflicts > 0 {
		m.conflicts--
		return 0, repository.ErrVersionConflict
	}
	if m.snaps[familyID].Version != expectedVersion {
		return 0, repository.ErrVersionConflict
	}
	m.saves++
	m.snaps[familyID] = models.ProgressSnapshot{
		FamilyID: familyID,
		Document: append([]byte(nil), document...),
		Version:  expectedVersion + 1,
	}
	return expectedVersion + 1, nil
}

func (m *memorySnapshots) ListFamilyIDs(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id := range m.snaps {
		ids = append(ids, id)
	}
	return ids, nil
}

type memoryContacts struct {
	contacts map[string]string
}

func (m *memoryContacts) GetContact(_ context.Context, familyID string) (*models.FamilyContact, error) {
	email, ok := m.contacts[familyID]
	if !ok {
		return nil, nil
	}
	return &models.FamilyContact{FamilyID: familyID, Email: email}, nil
}

func (m *memoryContacts) SetContact(_ context.Context, familyID, email string) (*models.FamilyContact, error) {
	m.contacts[familyID] = email
	return &models.FamilyContact{FamilyID: familyID, Email: email}, nil
}

type recordingNotifier struct {
	sent          []models.FamilyNotification
	to            []string
	confirmations []string
}

func (r *recordingNotifier) SendFamilyNotification(_ context.Context, toEmail string, n models.FamilyNotification) error {
	r.to = append(r.to, toEmail)
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) SendContactConfirmation(_ context.Context, toEmail string) error {
	r.confirmations = append(r.confirmations, toEmail)
	return nil
}

type recordingPublisher struct {
	events []Event
}

func (r *recordingPublisher) Publish(_ string, event any) error {
	r.events = append(r.events, event.(Event))
	return nil
}

func newTestService(t *testing.T) (*ProgressService, *memorySnapshots) {
	t.Helper()
	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	snaps := newMemorySnapshots()
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	svc := NewProgressService(snaps, c,
		progress.WithClock(func() time.Time { return now }),
		progress.WithLocation(time.UTC),
	)
	return svc, snaps
}

func TestSnapshotOfNewFamilyIsNotSaved(t *testing.T) {
	svc, snaps := newTestService(t)

	res, err := svc.Snapshot(context.Background(), "fam-1")
	if err != nil {
		t.Fatalf("Snapshot error = %v", err)
	}
	if res.Version != 0 || res.Progress.Level != 1 {
		t.Errorf("fresh snapshot = version %d level %d", res.Version, res.Progress.Level)
	}
	if snaps.saves != 0 {
		t.Errorf("reading saved %d snapshots", snaps.saves)
	}
}

func TestMutationsPersistAcrossCalls(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.DepositRealMoney(ctx, "fam-1", decimal.NewFromInt(50), "gift"); err != nil {
		t.Fatalf("deposit error = %v", err)
	}
	res, err := svc.DepositRealMoney(ctx, "fam-1", decimal.NewFromInt(60), "chores")
	if err != nil {
		t.Fatalf("deposit error = %v", err)
	}
	if res.Version != 2 {
		t.Errorf("version = %d, want 2", res.Version)
	}
	if !res.Progress.BankBalance.Equal(decimal.NewFromInt(110)) {
		t.Errorf("balance = %s, want 110", res.Progress.BankBalance)
	}

	other, _ := svc.Snapshot(ctx, "fam-2")
	if !other.Progress.BankBalance.IsZero() {
		t.Errorf("families share state: fam-2 balance %s", other.Progress.BankBalance)
	}
}

func TestRejectedOperationIsNotSaved(t *testing.T) {
	svc, snaps := newTestService(t)
	ctx := context.Background()
	svc.DepositRealMoney(ctx, "fam-1", decimal.NewFromInt(10), "gift")

	_, err := svc.WithdrawRealMoney(ctx, "fam-1", decimal.NewFromInt(20), "toy")
	if !errors.Is(err, progress.ErrInsufficientBalance) {
		t.Fatalf("withdraw error = %v, want ErrInsufficientBalance", err)
	}
	if snaps.saves != 1 {
		t.Errorf("saves = %d, want 1", snaps.saves)
	}
}

func TestVersionConflictIsRetried(t *testing.T) {
	svc, snaps := newTestService(t)
	ctx := context.Background()

	snaps.conflicts = 2
	res, err := svc.AddXP(ctx, "fam-1", 30)
	if err != nil {
		t.Fatalf("AddXP error = %v", err)
	}
	if res.Progress.XP != 30 {
		t.Errorf("xp = %d, want 30", res.Progress.XP)
	}

	snaps.conflicts = maxSaveAttempts
	if _, err := svc.AddXP(ctx, "fam-1", 10); !errors.Is(err, repository.ErrVersionConflict) {
		t.Errorf("AddXP after exhausted retries error = %v", err)
	}
}

func TestConcurrentDepositsAreSerialised(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.DepositCoins(ctx, "fam-1", decimal.NewFromInt(5)); err != nil {
				t.Errorf("deposit error = %v", err)
			}
		}()
	}
	wg.Wait()

	res, _ := svc.Snapshot(ctx, "fam-1")
	if !res.Progress.BankBalance.Equal(decimal.NewFromInt(100)) || len(res.Progress.Transactions) != 20 {
		t.Errorf("balance %s with %d transactions, want 100 and 20",
			res.Progress.BankBalance, len(res.Progress.Transactions))
	}
}

func TestNotificationsAreEmailedAndPublished(t *testing.T) {
	svc, _ := newTestService(t)
	contacts := &memoryContacts{contacts: map[string]string{}}
	notifier := &recordingNotifier{}
	publisher := &recordingPublisher{}
	svc.WithNotifications(contacts, notifier).WithPublisher(publisher)
	ctx := context.Background()

	// Without a contact nothing is e-mailed
	svc.DepositRealMoney(ctx, "fam-1", decimal.NewFromInt(55), "gift")
	if len(notifier.sent) != 0 {
		t.Fatalf("sent %d e-mails without a contact", len(notifier.sent))
	}

	if _, err := svc.SetContactEmail(ctx, "fam-1", " parent@example.com "); err != nil {
		t.Fatalf("SetContactEmail error = %v", err)
	}
	if len(notifier.confirmations) != 1 || notifier.confirmations[0] != "parent@example.com" {
		t.Errorf("confirmations = %v", notifier.confirmations)
	}

	svc.DepositRealMoney(ctx, "fam-1", decimal.NewFromInt(50), "chores")
	if len(notifier.sent) != 1 || notifier.sent[0].Type != models.NotificationMilestone {
		t.Errorf("sent = %+v, want one 100 milestone", notifier.sent)
	}
	if notifier.to[0] != "parent@example.com" {
		t.Errorf("sent to %v", notifier.to)
	}

	if len(publisher.events) != 2 {
		t.Fatalf("published %d events, want 2", len(publisher.events))
	}
	last := publisher.events[1]
	if last.Type != "money_deposited" || last.FamilyID != "fam-1" || last.Version != 2 {
		t.Errorf("last event = %+v", last)
	}
}

func TestResetAllDailyMissions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	svc.AddXP(ctx, "fam-1", 150)
	svc.CompleteQuestion(ctx, "fam-2", "1")

	n, err := svc.ResetAllDailyMissions(ctx)
	if err != nil || n != 2 {
		t.Fatalf("ResetAllDailyMissions = %d, %v", n, err)
	}
	for _, id := range []string{"fam-1", "fam-2"} {
		res, _ := svc.Snapshot(ctx, id)
		for _, m := range res.Progress.DailyMissions {
			if m.Current != 0 || m.Completed {
				t.Errorf("%s mission %s not reset: %+v", id, m.ID, m)
			}
		}
	}
}

func TestApplyInterestAll(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	svc.DepositRealMoney(ctx, "fam-1", decimal.NewFromInt(100), "gift")

	if _, err := svc.ApplyInterestAll(ctx); err != nil {
		t.Fatalf("ApplyInterestAll error = %v", err)
	}
	res, _ := svc.Snapshot(ctx, "fam-1")
	if !res.Progress.BankBalance.Equal(decimal.NewFromInt(105)) {
		t.Errorf("balance = %s, want 105", res.Progress.BankBalance)
	}
}

func TestMissingFamily(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.AddXP(context.Background(), "", 5); !errors.Is(err, ErrMissingFamily) {
		t.Errorf("error = %v, want ErrMissingFamily", err)
	}
}

func TestRepeatedOperationsPublishOnce(t *testing.T) {
	svc, snaps := newTestService(t)
	publisher := &recordingPublisher{}
	svc.WithPublisher(publisher)
	ctx := context.Background()

	first, err := svc.CompleteQuestion(ctx, "fam-1", "1")
	if err != nil {
		t.Fatalf("CompleteQuestion error = %v", err)
	}
	again, err := svc.CompleteQuestion(ctx, "fam-1", "1")
	if err != nil {
		t.Fatalf("repeated CompleteQuestion error = %v", err)
	}
	if again.Version != first.Version {
		t.Errorf("repeat bumped version %d -> %d", first.Version, again.Version)
	}
	if again.Outcome == nil || again.Outcome.QuestionCompleted != "" {
		t.Errorf("repeat outcome = %+v, want empty", again.Outcome)
	}

	svc.UpdateStreak(ctx, "fam-1")
	svc.UpdateStreak(ctx, "fam-1")

	var types []string
	for _, e := range publisher.events {
		types = append(types, e.Type)
	}
	if len(types) != 2 || types[0] != "question_completed" || types[1] != "streak_updated" {
		t.Errorf("published %v, want one question_completed and one streak_updated", types)
	}
	if snaps.saves != 2 {
		t.Errorf("saves = %d, want 2", snaps.saves)
	}
}

func TestRepeatedReadKeepsVersion(t *testing.T) {
	svc, snaps := newTestService(t)
	ctx := context.Background()

	res, err := svc.DepositRealMoney(ctx, "fam-1", decimal.NewFromInt(60), "gift")
	if err != nil {
		t.Fatalf("deposit error = %v", err)
	}
	if res.UnreadNotifications != 1 {
		t.Errorf("unread = %d, want 1", res.UnreadNotifications)
	}
	id := res.Progress.FamilyNotifications[0].ID

	read, _ := svc.MarkNotificationAsRead(ctx, "fam-1", id)
	if read.UnreadNotifications != 0 || read.Version != 2 {
		t.Errorf("after read: unread %d version %d, want 0 and 2", read.UnreadNotifications, read.Version)
	}
	reread, _ := svc.MarkNotificationAsRead(ctx, "fam-1", id)
	if reread.Version != 2 || snaps.saves != 2 {
		t.Errorf("re-read saved again: version %d saves %d", reread.Version, snaps.saves)
	}
}

func TestFamilyLocksAreReleased(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			svc.AddXP(ctx, fmt.Sprintf("fam-%d", i%3), 5)
		}(i)
	}
	wg.Wait()

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if len(svc.locks) != 0 {
		t.Errorf("%d family locks left after all operations finished", len(svc.locks))
	}
}

package accounts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/CDC-BookingBot/internal/domain"
	runCycle "github.com/m04kA/CDC-BookingBot/internal/usecase/run_cycle"
	"github.com/m04kA/CDC-BookingBot/pkg/ptr"
	"github.com/m04kA/CDC-BookingBot/pkg/types"
)

// fakeRunner скриптуемый CycleRunner
type fakeRunner struct {
	mu       sync.Mutex
	requests []*runCycle.Request
	report   *runCycle.CycleReport
	err      error
}

func (r *fakeRunner) Execute(_ context.Context, req *runCycle.Request) (*runCycle.CycleReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	return r.report, r.err
}

func (r *fakeRunner) requestCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.requests)
}

// fakeJournal запоминает записанные отчеты
type fakeJournal struct {
	mu      sync.Mutex
	reports []*runCycle.CycleReport
	err     error
}

func (j *fakeJournal) RecordCycle(_ context.Context, report *runCycle.CycleReport) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.reports = append(j.reports, report)
	return j.err
}

type noopLogger struct{}

func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}

func testConfig(accounts ...domain.Account) Config {
	return Config{
		Accounts:     accounts,
		GlobalPolicy: domain.BookingPolicy{MaxLessonsPerDay: ptr.Ptr(2)},
		SlotsPerType: map[domain.SessionType]int{domain.SessionPractical: 1},
		Schedule: Schedule{
			MinInterval: time.Hour,
			MaxInterval: time.Hour,
		},
	}
}

func enabledAccount(name string) domain.Account {
	return domain.Account{
		Name:           name,
		Username:       name,
		Password:       "secret",
		Enabled:        true,
		MonitoredTypes: []domain.SessionType{domain.SessionPractical},
	}
}

func successReport(name string) *runCycle.CycleReport {
	return &runCycle.CycleReport{AccountName: name, Phase: runCycle.PhaseIdle}
}

func TestService_RunOnce_ResolvesEffectivePolicy(t *testing.T) {
	accountPolicy := &domain.BookingPolicy{
		SkipWeekdays: map[time.Weekday]struct{}{time.Monday: {}},
	}
	account := enabledAccount("alice")
	account.Policy = accountPolicy

	runner := &fakeRunner{report: successReport("alice")}
	svc := NewService(testConfig(account), runner, nil, nil, noopLogger{})

	svc.runOnce(context.Background(), account)

	require.Len(t, runner.requests, 1)
	// Политика аккаунта переопределяет глобальную целиком:
	// глобальный MaxLessonsPerDay не подмешивается
	assert.Equal(t, *accountPolicy, runner.requests[0].Policy)
	assert.True(t, runner.requests[0].Policy.Unlimited())
}

func TestService_RunOnce_FallsBackToGlobalPolicy(t *testing.T) {
	account := enabledAccount("bob")
	runner := &fakeRunner{report: successReport("bob")}
	cfg := testConfig(account)
	svc := NewService(cfg, runner, nil, nil, noopLogger{})

	svc.runOnce(context.Background(), account)

	require.Len(t, runner.requests, 1)
	assert.Equal(t, cfg.GlobalPolicy, runner.requests[0].Policy)
}

func TestService_RunOnce_RecordsJournalAndStatus(t *testing.T) {
	account := enabledAccount("alice")
	report := successReport("alice")
	runner := &fakeRunner{report: report}
	journal := &fakeJournal{}

	svc := NewService(testConfig(account), runner, journal, nil, noopLogger{})
	svc.runOnce(context.Background(), account)

	require.Len(t, journal.reports, 1)
	assert.Same(t, report, journal.reports[0])

	statuses := svc.Statuses()
	require.Len(t, statuses, 1)
	assert.Same(t, report, statuses[0].LastReport)
}

func TestService_RunOnce_JournalFailureIsNonFatal(t *testing.T) {
	account := enabledAccount("alice")
	runner := &fakeRunner{report: successReport("alice")}
	journal := &fakeJournal{err: errors.New("db gone")}

	svc := NewService(testConfig(account), runner, journal, nil, noopLogger{})

	// Не должно паниковать и не должно терять статус
	svc.runOnce(context.Background(), account)
	require.Len(t, svc.Statuses(), 1)
	assert.NotNil(t, svc.Statuses()[0].LastReport)
}

func TestService_RunOnce_FailedCycleStillRecorded(t *testing.T) {
	account := enabledAccount("alice")
	failed := &runCycle.CycleReport{
		AccountName: "alice",
		Phase:       runCycle.PhaseFailed,
		FailedPhase: runCycle.PhaseFetching,
		Error:       "anti-bot block",
	}
	runner := &fakeRunner{report: failed, err: runCycle.ErrFetchSlots}
	journal := &fakeJournal{}

	svc := NewService(testConfig(account), runner, journal, nil, noopLogger{})
	svc.runOnce(context.Background(), account)

	// Ошибка одного цикла не фатальна: отчет зафиксирован для следующего анализа
	require.Len(t, journal.reports, 1)
	assert.Equal(t, runCycle.PhaseFailed, journal.reports[0].Phase)
}

func TestService_Start_SkipsDisabledAccounts(t *testing.T) {
	enabled := enabledAccount("alice")
	disabled := enabledAccount("bob")
	disabled.Enabled = false

	runner := &fakeRunner{report: successReport("alice")}
	cfg := testConfig(enabled, disabled)
	svc := NewService(cfg, runner, nil, nil, noopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)

	// Ждем первый цикл воркера alice, затем останавливаем
	require.Eventually(t, func() bool {
		return runner.requestCount() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	svc.Wait()

	for _, req := range runner.requests {
		assert.Equal(t, "alice", req.Account.Name)
	}

	// Статусы отдаются для обоих аккаунтов, включая выключенный
	statuses := svc.Statuses()
	require.Len(t, statuses, 2)
}

func TestService_WorkerWaitsOutBlackoutBeforeFirstCycle(t *testing.T) {
	account := enabledAccount("alice")
	runner := &fakeRunner{report: successReport("alice")}

	// Окно тишины накрывает текущий момент: ни одного цикла до его конца,
	// включая самый первый после старта
	now := time.Now()
	cfg := testConfig(account)
	cfg.Schedule.BlackoutStart = types.NewTimeString(now.Add(-time.Hour))
	cfg.Schedule.BlackoutEnd = types.NewTimeString(now.Add(time.Hour))

	svc := NewService(cfg, runner, nil, nil, noopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)

	time.Sleep(200 * time.Millisecond)
	cancel()
	svc.Wait()

	assert.Equal(t, 0, runner.requestCount())

	// Воркер сообщает, когда попробует снова
	statuses := svc.Statuses()
	require.Len(t, statuses, 1)
	assert.False(t, statuses[0].NextRunAt.IsZero())
}

func TestService_WorkerStopsBetweenCycles(t *testing.T) {
	account := enabledAccount("alice")
	runner := &fakeRunner{report: successReport("alice")}
	svc := NewService(testConfig(account), runner, nil, nil, noopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	svc.Start(ctx)

	require.Eventually(t, func() bool {
		return runner.requestCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	done := make(chan struct{})
	go func() {
		svc.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("workers did not stop after context cancellation")
	}

	// Интервал расписания час, второй цикл не должен был начаться
	assert.Equal(t, 1, runner.requestCount())
}

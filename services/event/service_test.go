package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"seeker-engine/pkg/config"
	"seeker-engine/pkg/fsm"
	"seeker-engine/pkg/random"
	"seeker-engine/services/personage"
	"seeker-engine/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var testStart = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

const (
	raidEventID  = 10
	questEventID = 20
	bareEventID  = 30
)

type notifierMock struct {
	mu            sync.Mutex
	raidCompleted []int64
	raidExpired   []int64
	questUsers    []int64
	questResults  []Result
}

func (m *notifierMock) RaidCompleted(ctx context.Context, ge *GroupEvent, res *RaidCompleted) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raidCompleted = append(m.raidCompleted, ge.GroupID)
}

func (m *notifierMock) RaidExpired(ctx context.Context, ge *GroupEvent, res *RaidExpired) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.raidExpired = append(m.raidExpired, ge.GroupID)
}

func (m *notifierMock) QuestOutcome(ctx context.Context, userID int64, res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questUsers = append(m.questUsers, userID)
	m.questResults = append(m.questResults, res)
}

type fixture struct {
	db       *gorm.DB
	cfg      *config.Config
	ledger   *personage.Service
	launched *LaunchedEventService
	stopper  *Stopper
	notifier *notifierMock
}

func newFixture(t *testing.T, rnd random.Source) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t, append(Models(), &personage.Personage{})...)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Game.PersonalQuest.SuccessProbability = 0.5
	cfg.Game.PersonalQuest.Reward = config.Range{Min: 5, Max: 15}
	cfg.Game.Raid.Reward = config.Range{Min: 10, Max: 30}
	cfg.Game.Battle.MaxRounds = 50
	cfg.Game.Battle.WinExpBonus = 20
	holder := config.NewHolder(cfg)

	ledger := personage.NewService(personage.ServiceParams{DB: db})
	launched := NewLaunchedEventService(LaunchedEventParams{DB: db, Node: node, Personage: ledger})
	raid := NewRaidService(RaidParams{DB: db, Config: holder, Random: rnd, Launched: launched, Personage: ledger})
	quest := NewPersonalQuestService(PersonalQuestParams{DB: db, Config: holder, Random: rnd, Launched: launched, Personage: ledger})
	notifier := &notifierMock{}
	stopper := NewStopper(StopperParams{
		DB:         db,
		Launched:   launched,
		Processing: NewProcessing(launched, raid, quest),
		Notifier:   notifier,
	})

	require.NoError(t, db.Create(&Event{ID: raidEventID, Code: "troll_raid", Type: TypeRaid, Duration: time.Hour}).Error)
	require.NoError(t, db.Create(&Raid{EventID: raidEventID, Code: "troll_raid", BossLevel: 1, BossName: "Troll"}).Error)
	require.NoError(t, db.Create(&Event{ID: questEventID, Code: "herbs", Type: TypePersonalQuest, Duration: time.Hour}).Error)
	require.NoError(t, db.Create(&PersonalQuest{EventID: questEventID, Code: "herbs", Locales: []byte(`{"en":"Herbs"}`)}).Error)
	require.NoError(t, db.Create(&Event{ID: bareEventID, Code: "bare", Type: TypePersonalQuest, Duration: time.Hour}).Error)

	return &fixture{db: db, cfg: cfg, ledger: ledger, launched: launched, stopper: stopper, notifier: notifier}
}

func (f *fixture) personage(t *testing.T, id int64, level int) *personage.Personage {
	t.Helper()
	p := &personage.Personage{ID: id, UserID: id * 100, Name: "p", Level: level}
	require.NoError(t, f.ledger.Create(context.Background(), p))
	return p
}

func (f *fixture) launch(t *testing.T, eventID int64, participants ...int64) *LaunchedEvent {
	t.Helper()
	ctx := context.Background()
	le, err := f.launched.Launch(ctx, eventID, testStart)
	require.NoError(t, err)
	for _, id := range participants {
		require.NoError(t, f.launched.Join(ctx, le.ID, id))
	}
	return le
}

func (f *fixture) status(t *testing.T, id int64) Status {
	t.Helper()
	le, err := f.launched.GetByID(context.Background(), id)
	require.NoError(t, err)
	return le.Status
}

func (f *fixture) money(t *testing.T, id int64) personage.Money {
	t.Helper()
	p, err := f.ledger.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Money
}

func TestTransitionFor(t *testing.T) {
	cases := map[Result]Transition{
		&RaidCompleted{}: TransitionComplete,
		&QuestSuccess{}:  TransitionComplete,
		&RaidExpired{}:   TransitionExpire,
		&QuestFailure{}:  TransitionExpire,
		&QuestError{}:    TransitionExpire,
	}
	for res, want := range cases {
		got, err := TransitionFor(res)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := TransitionFor(nil)
	require.Error(t, err)
}

func TestQuestSuccess(t *testing.T) {
	f := newFixture(t, random.Fixed{Hit: true})
	f.personage(t, 1, 1)
	le := f.launch(t, questEventID, 1)

	res, err := f.stopper.StopLaunchedEvent(context.Background(), le.ID)
	require.NoError(t, err)

	success, ok := res.(*QuestSuccess)
	require.True(t, ok)
	require.Equal(t, int64(1), success.Personage.ID)
	require.GreaterOrEqual(t, success.Reward, personage.Money(5))
	require.LessOrEqual(t, success.Reward, personage.Money(15))
	require.Equal(t, "herbs", success.Quest.Code)

	require.Equal(t, success.Reward, f.money(t, 1))
	require.Equal(t, StatusCompleted, f.status(t, le.ID))
	require.Equal(t, []int64{100}, f.notifier.questUsers)
}

func TestQuestFailure(t *testing.T) {
	f := newFixture(t, random.Fixed{Hit: false})
	f.personage(t, 1, 1)
	le := f.launch(t, questEventID, 1)

	res, err := f.stopper.StopLaunchedEvent(context.Background(), le.ID)
	require.NoError(t, err)

	failure, ok := res.(*QuestFailure)
	require.True(t, ok)
	require.Equal(t, int64(1), failure.Personage.ID)
	require.Equal(t, personage.Money(0), f.money(t, 1))
	require.Equal(t, StatusExpired, f.status(t, le.ID))
	require.Equal(t, []int64{100}, f.notifier.questUsers)
}

func TestQuestWrongParticipantCount(t *testing.T) {
	for name, ids := range map[string][]int64{"none": nil, "two": {1, 2}} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, random.Fixed{Hit: true})
			f.personage(t, 1, 1)
			f.personage(t, 2, 1)
			le := f.launch(t, questEventID, ids...)

			res, err := f.stopper.StopLaunchedEvent(context.Background(), le.ID)
			require.NoError(t, err)
			_, ok := res.(*QuestError)
			require.True(t, ok)

			require.Equal(t, StatusExpired, f.status(t, le.ID))
			require.Equal(t, personage.Money(0), f.money(t, 1))
			require.Empty(t, f.notifier.questUsers)
		})
	}
}

func TestQuestTemplateMissing(t *testing.T) {
	f := newFixture(t, random.Fixed{Hit: true})
	le := f.launch(t, bareEventID)

	_, err := f.stopper.StopLaunchedEvent(context.Background(), le.ID)
	require.EqualError(t, err, "event 30 is not quest")
	require.Equal(t, StatusActive, f.status(t, le.ID))
}

func TestRaidWithoutParticipantsExpires(t *testing.T) {
	f := newFixture(t, random.Fixed{})
	le := f.launch(t, raidEventID)
	require.NoError(t, f.launched.AttachGroup(context.Background(), le.ID, 7, nil))
	require.NoError(t, f.launched.AttachGroup(context.Background(), le.ID, 8, nil))

	res, err := f.stopper.StopLaunchedEvent(context.Background(), le.ID)
	require.NoError(t, err)

	expired, ok := res.(*RaidExpired)
	require.True(t, ok)
	require.Equal(t, "Troll", expired.Raid.BossName)
	require.Equal(t, StatusExpired, f.status(t, le.ID))
	require.Equal(t, []int64{7, 8}, f.notifier.raidExpired)
	require.Empty(t, f.notifier.raidCompleted)
}

func TestRaidWon(t *testing.T) {
	f := newFixture(t, random.Fixed{})
	f.personage(t, 1, 10)
	f.personage(t, 2, 10)
	le := f.launch(t, raidEventID, 1, 2)
	require.NoError(t, f.launched.AttachGroup(context.Background(), le.ID, 7, nil))

	res, err := f.stopper.StopLaunchedEvent(context.Background(), le.ID)
	require.NoError(t, err)

	completed, ok := res.(*RaidCompleted)
	require.True(t, ok)
	require.True(t, completed.PersonagesWon)
	require.Len(t, completed.Outcomes, 2)
	require.False(t, completed.Boss.Alive())

	for _, out := range completed.Outcomes {
		require.Equal(t, personage.Money(10), out.Reward)
		require.Equal(t, personage.Money(10), f.money(t, out.Personage.ID))
		stored, err := f.ledger.GetByID(context.Background(), out.Personage.ID)
		require.NoError(t, err)
		require.Equal(t, out.Stats.Exp, stored.CurrentExp)
	}
	require.Equal(t, StatusCompleted, f.status(t, le.ID))
	require.Equal(t, []int64{7}, f.notifier.raidCompleted)
}

func TestRaidLostStillCompletes(t *testing.T) {
	f := newFixture(t, random.Fixed{})
	f.personage(t, 1, 1)
	le := f.launch(t, raidEventID, 1)

	res, err := f.stopper.StopLaunchedEvent(context.Background(), le.ID)
	require.NoError(t, err)

	completed, ok := res.(*RaidCompleted)
	require.True(t, ok)
	require.False(t, completed.PersonagesWon)
	require.Len(t, completed.Outcomes, 1)
	require.Zero(t, completed.Outcomes[0].Reward)
	require.Equal(t, personage.Money(0), f.money(t, 1))
	require.Equal(t, StatusCompleted, f.status(t, le.ID))

	stored, err := f.ledger.GetByID(context.Background(), 1)
	require.NoError(t, err)
	require.Positive(t, stored.CurrentExp)
}

func TestStopTwiceSettlesOnce(t *testing.T) {
	f := newFixture(t, random.Fixed{Hit: true})
	f.personage(t, 1, 1)
	le := f.launch(t, questEventID, 1)

	_, err := f.stopper.StopLaunchedEvent(context.Background(), le.ID)
	require.NoError(t, err)
	balance := f.money(t, 1)

	_, err = f.stopper.StopLaunchedEvent(context.Background(), le.ID)
	require.ErrorIs(t, err, fsm.ErrIllegalTransition)
	require.Equal(t, balance, f.money(t, 1))
	require.Len(t, f.notifier.questUsers, 1)
}

func TestGetExpiredActive(t *testing.T) {
	f := newFixture(t, random.Fixed{})
	le := f.launch(t, raidEventID)

	due, err := f.launched.GetExpiredActive(context.Background(), testStart.Add(30*time.Minute))
	require.NoError(t, err)
	require.Empty(t, due)

	due, err = f.launched.GetExpiredActive(context.Background(), testStart.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, le.ID, due[0].ID)

	_, err = f.stopper.StopLaunchedEvent(context.Background(), le.ID)
	require.NoError(t, err)

	due, err = f.launched.GetExpiredActive(context.Background(), testStart.Add(2*time.Hour))
	require.NoError(t, err)
	require.Empty(t, due)
}

func TestJoin(t *testing.T) {
	f := newFixture(t, random.Fixed{})
	f.personage(t, 1, 1)
	le := f.launch(t, raidEventID, 1)

	require.ErrorIs(t, f.launched.Join(context.Background(), le.ID, 1), ErrAlreadyJoined)

	_, err := f.stopper.StopLaunchedEvent(context.Background(), le.ID)
	require.NoError(t, err)
	f.personage(t, 2, 1)
	require.ErrorIs(t, f.launched.Join(context.Background(), le.ID, 2), ErrNotActive)

	require.ErrorIs(t, f.launched.Join(context.Background(), 404, 2), ErrNotFound)
}

func TestCloseRejectsStaleStatus(t *testing.T) {
	f := newFixture(t, random.Fixed{})
	le := f.launch(t, raidEventID)

	stale := *le
	require.NoError(t, f.launched.Close(context.Background(), le, TransitionExpire))
	require.Equal(t, StatusExpired, le.Status)

	err := f.launched.Close(context.Background(), &stale, TransitionComplete)
	require.ErrorIs(t, err, fsm.ErrIllegalTransition)
	require.Equal(t, StatusExpired, f.status(t, le.ID))
}

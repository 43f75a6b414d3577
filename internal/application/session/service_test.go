package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"astro-persona-api/internal/application/chart"
	"astro-persona-api/internal/application/orchestration"
	"astro-persona-api/internal/domain/entity"
	"astro-persona-api/internal/infrastructure/persistence/memory"
	apperrors "astro-persona-api/pkg/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeCharts struct {
	err error
}

func (f *fakeCharts) Compute(_ context.Context, in *entity.BirthInput, _ ...chart.ComputeOption) (*entity.BirthChart, error) {
	if f.err != nil {
		return nil, f.err
	}
	if !in.HasLocation() {
		return nil, apperrors.ErrMissingLocation
	}
	c := &entity.BirthChart{Placements: map[entity.Body]*entity.PlanetPlacement{}, HouseSystem: entity.HouseSystemSun}
	for i, b := range entity.AllBodies() {
		c.Placements[b] = &entity.PlanetPlacement{Body: b, Sign: entity.SignAt(i), House: entity.House(i + 1)}
	}
	return c, nil
}

type fakeOrchestrator struct {
	mu       sync.Mutex
	inputs   []*orchestration.Input
	err      error
	delay    time.Duration
	inFlight atomic.Int32
	overlap  atomic.Bool
}

func (f *fakeOrchestrator) Orchestrate(_ context.Context, in *orchestration.Input) (*orchestration.Result, error) {
	if f.inFlight.Add(1) > 1 {
		f.overlap.Store(true)
	}
	defer f.inFlight.Add(-1)
	time.Sleep(f.delay)

	f.mu.Lock()
	f.inputs = append(f.inputs, in)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &orchestration.Result{Responses: []orchestration.Response{
		{Body: entity.BodyMoon, Message: "re: " + in.Message},
		{Body: entity.BodyMars, Message: "ok"},
	}}, nil
}

type countingPregenerator struct {
	calls atomic.Int32
}

func (p *countingPregenerator) Pregenerate(_ context.Context, c *entity.BirthChart) {
	p.calls.Add(1)
	c.Placements[entity.BodySun].Persona = "I shine."
}

func newTestService(orch *fakeOrchestrator, cfg Config) (*Service, *memory.SessionStore) {
	store := memory.NewSessionStore(0)
	svc := NewService(&fakeCharts{}, orch, &countingPregenerator{}, store, memory.NewLocker(2*time.Second), cfg)
	return svc, store
}

func birthInput() *entity.BirthInput {
	h := 14
	return &entity.BirthInput{Year: 1990, Month: 6, Day: 15, Hour: &h, Place: "Paris"}
}

func TestCreateStoresChartAndGreeting(t *testing.T) {
	pre := &countingPregenerator{}
	store := memory.NewSessionStore(0)
	svc := NewService(&fakeCharts{}, &fakeOrchestrator{}, pre, store, memory.NewLocker(time.Second), Config{Pregenerate: true})
	ctx := context.Background()

	sess, err := svc.Create(ctx, birthInput())
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.EqualValues(t, 1, pre.calls.Load())

	c, err := svc.Chart(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "I shine.", c.Placements[entity.BodySun].Persona)

	msgs, err := svc.History(ctx, sess.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, entity.SenderSystem, msgs[0].Sender)
}

func TestCreatePropagatesChartErrors(t *testing.T) {
	svc, _ := newTestService(&fakeOrchestrator{}, Config{})
	in := birthInput()
	in.Place = ""

	_, err := svc.Create(context.Background(), in)
	assert.True(t, apperrors.Is(err, apperrors.ErrMissingLocation))
}

func TestSendMessageAppendsTurnAtomically(t *testing.T) {
	orch := &fakeOrchestrator{}
	svc, _ := newTestService(orch, Config{HistoryWindow: 10})
	ctx := context.Background()

	sess, err := svc.Create(ctx, birthInput())
	require.NoError(t, err)

	turn, err := svc.SendMessage(ctx, sess.ID, "  hello moon ", SendOptions{Provider: "openai"})
	require.NoError(t, err)
	assert.Equal(t, "hello moon", turn.UserMessage.Content)
	require.Len(t, turn.Replies, 2)
	assert.Equal(t, "moon", turn.Replies[0].Sender)

	msgs, err := svc.History(ctx, sess.ID, 0)
	require.NoError(t, err)
	senders := make([]string, 0, len(msgs))
	for _, m := range msgs {
		senders = append(senders, m.Sender)
	}
	assert.Equal(t, []string{"system", "user", "moon", "mars"}, senders)

	require.Len(t, orch.inputs, 1)
	assert.Equal(t, "openai", orch.inputs[0].Provider)
	assert.Len(t, orch.inputs[0].History, 1)
	assert.Len(t, orch.inputs[0].Placements, 10)
}

func TestSendMessageFailureLeavesHistoryUntouched(t *testing.T) {
	orch := &fakeOrchestrator{err: apperrors.ErrUpstreamUnavailable}
	svc, _ := newTestService(orch, Config{})
	ctx := context.Background()

	sess, err := svc.Create(ctx, birthInput())
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, sess.ID, "hi", SendOptions{})
	assert.True(t, apperrors.Is(err, apperrors.ErrUpstreamUnavailable))

	msgs, err := svc.History(ctx, sess.ID, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}

func TestSendMessageValidation(t *testing.T) {
	svc, _ := newTestService(&fakeOrchestrator{}, Config{})
	ctx := context.Background()

	_, err := svc.SendMessage(ctx, "nope", "hi", SendOptions{})
	assert.True(t, apperrors.Is(err, apperrors.ErrSessionNotFound))

	_, err = svc.SendMessage(ctx, "nope", "   ", SendOptions{})
	assert.True(t, apperrors.Is(err, apperrors.ErrEmptyInput))
}

func TestConcurrentTurnsAreSerialised(t *testing.T) {
	orch := &fakeOrchestrator{delay: 20 * time.Millisecond}
	svc, _ := newTestService(orch, Config{HistoryWindow: 20})
	ctx := context.Background()

	sess, err := svc.Create(ctx, birthInput())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for _, text := range []string{"first", "second"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SendMessage(ctx, sess.ID, text, SendOptions{})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.False(t, orch.overlap.Load())

	msgs, err := svc.History(ctx, sess.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 7)
	// 每轮的用户消息后紧跟它自己的回复
	assert.Equal(t, "re: "+msgs[1].Content, msgs[2].Content)
	assert.Equal(t, "re: "+msgs[4].Content, msgs[5].Content)

	// 第二轮看到第一轮的完整结果
	require.Len(t, orch.inputs, 2)
	assert.Len(t, orch.inputs[1].History, 4)
}

func TestBusySessionTimesOut(t *testing.T) {
	orch := &fakeOrchestrator{delay: 100 * time.Millisecond}
	store := memory.NewSessionStore(0)
	svc := NewService(&fakeCharts{}, orch, nil, store, memory.NewLocker(10*time.Millisecond), Config{})
	ctx := context.Background()

	sess, err := svc.Create(ctx, birthInput())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.SendMessage(ctx, sess.ID, "slow", SendOptions{})
	}()
	time.Sleep(30 * time.Millisecond)

	_, err = svc.SendMessage(ctx, sess.ID, "fast", SendOptions{})
	assert.True(t, apperrors.Is(err, apperrors.ErrSessionBusy))
	<-done
}

func TestUpdateClearDelete(t *testing.T) {
	svc, _ := newTestService(&fakeOrchestrator{}, Config{})
	ctx := context.Background()

	sess, err := svc.Create(ctx, birthInput())
	require.NoError(t, err)
	turn, err := svc.SendMessage(ctx, sess.ID, "hi", SendOptions{})
	require.NoError(t, err)

	_, err = svc.UpdateMessage(ctx, sess.ID, turn.Replies[0].ID, entity.ChatMessagePatch{})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidParam))

	bad := entity.MessageStatus("lost")
	_, err = svc.UpdateMessage(ctx, sess.ID, turn.Replies[0].ID, entity.ChatMessagePatch{Status: &bad})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidParam))

	status := entity.MessageStatusFailed
	updated, err := svc.UpdateMessage(ctx, sess.ID, turn.Replies[0].ID, entity.ChatMessagePatch{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, entity.MessageStatusFailed, updated.Status)

	require.NoError(t, svc.Clear(ctx, sess.ID))
	msgs, err := svc.History(ctx, sess.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	require.NoError(t, svc.Delete(ctx, sess.ID))
	_, err = svc.History(ctx, sess.ID, 0)
	assert.True(t, apperrors.Is(err, apperrors.ErrSessionNotFound))
	assert.True(t, apperrors.Is(svc.Clear(ctx, sess.ID), apperrors.ErrSessionNotFound))
}

func TestStatelessOrchestrateUsesSessionLock(t *testing.T) {
	orch := &fakeOrchestrator{}
	svc, _ := newTestService(orch, Config{})

	res, err := svc.Orchestrate(context.Background(), "any-session", &orchestration.Input{Message: "hi"})
	require.NoError(t, err)
	assert.Len(t, res.Responses, 2)
}

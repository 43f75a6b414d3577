package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astro-persona-api/internal/application/chart"
	"astro-persona-api/internal/application/orchestration"
	"astro-persona-api/internal/application/persona"
	"astro-persona-api/internal/application/session"
	"astro-persona-api/internal/config"
	"astro-persona-api/internal/domain/entity"
	"astro-persona-api/internal/infrastructure/persistence/memory"
	"astro-persona-api/internal/interfaces/http/dto"
	apperrors "astro-persona-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		LLM: config.LLMConfig{
			DefaultProvider: "openai",
			Providers: map[string]config.ProviderConfig{
				"openai": {Model: "gpt-4o-mini"},
			},
		},
	}
}

type stubCharts struct {
	err error
	got *entity.BirthInput
}

func (s *stubCharts) Compute(_ context.Context, in *entity.BirthInput, opts ...chart.ComputeOption) (*entity.BirthChart, error) {
	s.got = in
	if s.err != nil {
		return nil, s.err
	}
	if len(opts) > 0 && !in.HasLocation() {
		return nil, apperrors.ErrMissingLocation
	}
	c := &entity.BirthChart{Placements: map[entity.Body]*entity.PlanetPlacement{}, HouseSystem: entity.HouseSystemSun}
	for i, b := range entity.AllBodies() {
		c.Placements[b] = &entity.PlanetPlacement{
			Body:      b,
			Longitude: float64(i * 30),
			Sign:      entity.SignAt(i),
			House:     entity.House(i + 1),
		}
	}
	return c, nil
}

type stubOrchestrator struct {
	err error
	got *orchestration.Input
}

func (s *stubOrchestrator) Orchestrate(_ context.Context, in *orchestration.Input) (*orchestration.Result, error) {
	s.got = in
	if s.err != nil {
		return nil, s.err
	}
	res := &orchestration.Result{Attempts: 1}
	for _, b := range entity.AllBodies() {
		if _, ok := in.Placements[b]; ok {
			res.Responses = append(res.Responses, orchestration.Response{Body: b, Message: "hello from " + string(b)})
			break
		}
	}
	res.Meta.Provider = in.Provider
	res.Meta.Model = in.Model
	return res, nil
}

type stubGenerator struct {
	err error
}

func (s *stubGenerator) Generate(_ context.Context, body entity.Body, sign entity.Sign, _ bool) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "I am " + body.DisplayName() + " in " + string(sign) + ".", nil
}

type stubPlaces struct{}

func (stubPlaces) Predictions(_ context.Context, query string) (json.RawMessage, error) {
	if query == "" {
		return nil, apperrors.ErrMissingLocation
	}
	return json.RawMessage(`[{"display_name":"Paris, France","lat":"48.85","lon":"2.35"}]`), nil
}

type failingCheck struct{}

func (failingCheck) HealthCheck(context.Context) error {
	return apperrors.ErrServiceUnavailable
}

type testServer struct {
	engine       *gin.Engine
	charts       *stubCharts
	orchestrator *stubOrchestrator
	generator    *stubGenerator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := testConfig()
	ts := &testServer{
		engine:       gin.New(),
		charts:       &stubCharts{},
		orchestrator: &stubOrchestrator{},
		generator:    &stubGenerator{},
	}

	compositor, err := persona.NewCompositor(persona.StrategyLayered, persona.MustDefaultTables())
	require.NoError(t, err)

	svc := session.NewService(ts.charts, ts.orchestrator, nil, memory.NewSessionStore(0), memory.NewLocker(50*time.Millisecond), session.Config{HistoryWindow: 10})

	charts := NewChartHandler(ts.charts)
	personas := NewPersonaHandler(ts.generator, compositor)
	orch := NewOrchestrateHandler(cfg, svc)
	geo := NewGeocodeHandler(stubPlaces{})
	sessions := NewSessionHandler(cfg, svc)

	v1 := ts.engine.Group("/v1")
	v1.POST("/charts", charts.ComputeChart)
	v1.POST("/personas", personas.GeneratePersona)
	v1.POST("/orchestrate", orch.Orchestrate)
	v1.GET("/geocode", geo.Search)
	v1.POST("/sessions", sessions.CreateSession)
	v1.GET("/sessions/:sid", sessions.GetSession)
	v1.DELETE("/sessions/:sid", sessions.DeleteSession)
	v1.GET("/sessions/:sid/messages", sessions.ListMessages)
	v1.POST("/sessions/:sid/messages", sessions.SendMessage)
	v1.DELETE("/sessions/:sid/messages", sessions.ClearMessages)
	v1.PATCH("/sessions/:sid/messages/:mid", sessions.UpdateMessage)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var resp dto.Response[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Data
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestComputeChartReturnsPlanetsInOrder(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/v1/charts", map[string]any{"year": 1990, "month": 7, "day": 15, "hour": 14})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	summary := decode[chart.Summary](t, w)
	require.Len(t, summary.Planets, 10)
	for i, p := range summary.Planets {
		assert.Equal(t, string(entity.AllBodies()[i]), p.Planet)
	}
	require.NotNil(t, ts.charts.got.Hour)
	assert.Equal(t, 14, *ts.charts.got.Hour)
	assert.Nil(t, ts.charts.got.Minute)
}

func TestComputeChartMapsDomainErrors(t *testing.T) {
	ts := newTestServer(t)
	ts.charts.err = apperrors.ErrMissingBirthTime

	w := ts.do(t, http.MethodPost, "/v1/charts", map[string]any{"year": 1990})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(apperrors.CodeMissingBirthTime), resp.Error.ErrorCode)
	assert.Equal(t, apperrors.ErrMissingBirthTime.Message, resp.Message)
}

func TestComputeChartRejectsMalformedBody(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/v1/charts", `{"year":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGeneratePersona(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/v1/personas", dto.PersonaRequest{Planet: "Mars", Sign: "aries", House: 3, Retrograde: true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[dto.PersonaResponse](t, w)
	assert.Equal(t, "mars", resp.Planet)
	assert.Equal(t, "Aries", resp.Sign)
	assert.Equal(t, "I am Mars in Aries.", resp.Persona)
	assert.Equal(t, persona.StrategyLayered, resp.Strategy)
	assert.NotEmpty(t, resp.Prompt)
}

func TestGeneratePersonaValidation(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/v1/personas", dto.PersonaRequest{Planet: "chiron", Sign: "Aries"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/v1/personas", dto.PersonaRequest{Planet: "mars", Sign: "Ophiuchus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ts.generator.err = apperrors.ErrUpstreamUnavailable
	w = ts.do(t, http.MethodPost, "/v1/personas", dto.PersonaRequest{Planet: "mars", Sign: "Aries"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestOrchestrateOnlyUsesProvidedPlacements(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/v1/orchestrate", map[string]any{
		"message": "hi",
		"allPlanetsData": map[string]any{
			"sun":    map[string]any{"sign": "Leo", "house": 1, "retrograde": false},
			"chiron": map[string]any{"sign": "Aries", "house": 2},
		},
		"conversationHistory": []map[string]any{
			{"sender": "user", "content": "earlier"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[dto.OrchestrateResponse](t, w)
	require.Len(t, resp.Responses, 1)
	assert.Equal(t, "sun", resp.Responses[0].Planet)
	assert.Equal(t, "openai", resp.Provider)
	assert.Equal(t, "gpt-4o-mini", resp.Model)

	require.NotNil(t, ts.orchestrator.got)
	assert.Len(t, ts.orchestrator.got.Placements, 1)
	assert.Equal(t, entity.SignLeo, ts.orchestrator.got.Placements[entity.BodySun].Sign)
	require.Len(t, ts.orchestrator.got.History, 1)
	assert.Equal(t, "earlier", ts.orchestrator.got.History[0].Content)
}

func TestOrchestrateErrors(t *testing.T) {
	ts := newTestServer(t)
	body := map[string]any{
		"message":        "hi",
		"allPlanetsData": map[string]any{"sun": map[string]any{"sign": "Leo", "house": 1}},
	}

	body["provider"] = "nope"
	w := ts.do(t, http.MethodPost, "/v1/orchestrate", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	delete(body, "provider")

	w = ts.do(t, http.MethodPost, "/v1/orchestrate", map[string]any{
		"message":        "hi",
		"allPlanetsData": map[string]any{"sun": map[string]any{"sign": "Dragon"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	cases := map[*apperrors.AppError]int{
		apperrors.ErrEmptyInput:          http.StatusBadRequest,
		apperrors.ErrNoValidResponses:    http.StatusUnprocessableEntity,
		apperrors.ErrMalformedResponse:   http.StatusBadGateway,
		apperrors.ErrUpstreamUnavailable: http.StatusServiceUnavailable,
	}
	for appErr, status := range cases {
		ts.orchestrator.err = appErr
		w = ts.do(t, http.MethodPost, "/v1/orchestrate", body)
		assert.Equal(t, status, w.Code, appErr.Message)
		resp := decodeError(t, w)
		assert.Equal(t, appErr.Message, resp.Message)
	}
}

func TestGeocodePassthrough(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/v1/geocode?q=Paris", nil)
	require.Equal(t, http.StatusOK, w.Code)
	places := decode[[]map[string]string](t, w)
	require.Len(t, places, 1)
	assert.Equal(t, "Paris, France", places[0]["display_name"])

	w = ts.do(t, http.MethodGet, "/v1/geocode", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionLifecycle(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/v1/sessions", map[string]any{
		"year": 1990, "month": 7, "day": 15, "latitude": 48.85, "longitude": 2.35,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[dto.SessionResponse](t, w)
	require.NotEmpty(t, created.SessionID)
	require.NotNil(t, created.Chart)
	assert.Len(t, created.Chart.Planets, 10)
	require.Len(t, created.Messages, 1)
	assert.Equal(t, entity.SenderSystem, created.Messages[0].Sender)
	base := "/v1/sessions/" + created.SessionID

	w = ts.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, base+"/messages", dto.SendMessageRequest{Content: "hello sun"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	turn := decode[dto.TurnResponse](t, w)
	assert.Equal(t, "hello sun", turn.UserMessage.Content)
	require.Len(t, turn.Replies, 1)
	assert.Equal(t, "sun", turn.Replies[0].Sender)

	w = ts.do(t, http.MethodGet, base+"/messages?last=0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[dto.HistoryResponse](t, w)
	require.Len(t, history.Messages, 3)

	w = ts.do(t, http.MethodPatch, base+"/messages/"+turn.Replies[0].ID, map[string]any{"status": "failed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "failed", decode[dto.ChatMessage](t, w).Status)

	w = ts.do(t, http.MethodPatch, base+"/messages/"+turn.Replies[0].ID, map[string]any{"status": "lost"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPatch, base+"/messages/missing", map[string]any{"content": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodDelete, base+"/messages", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = ts.do(t, http.MethodGet, base+"/messages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[dto.HistoryResponse](t, w).Messages)

	w = ts.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = ts.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionErrors(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/v1/sessions", map[string]any{"year": 1990, "month": 7, "day": 15})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(apperrors.CodeMissingLocation), decodeError(t, w).Error.ErrorCode)

	w = ts.do(t, http.MethodPost, "/v1/sessions/unknown/messages", dto.SendMessageRequest{Content: "hi"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodPost, "/v1/sessions", map[string]any{"year": 1990, "month": 7, "day": 15, "place": "Paris"})
	require.Equal(t, http.StatusCreated, w.Code)
	sid := decode[dto.SessionResponse](t, w).SessionID

	w = ts.do(t, http.MethodPost, "/v1/sessions/"+sid+"/messages", dto.SendMessageRequest{Content: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(apperrors.CodeEmptyInput), decodeError(t, w).Error.ErrorCode)

	ts.orchestrator.err = apperrors.ErrUpstreamUnavailable
	w = ts.do(t, http.MethodPost, "/v1/sessions/"+sid+"/messages", dto.SendMessageRequest{Content: "hi"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = ts.do(t, http.MethodGet, "/v1/sessions/"+sid+"/messages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[dto.HistoryResponse](t, w).Messages, 1)
}

func TestReadiness(t *testing.T) {
	engine := gin.New()
	ok := NewHealthHandler("v0.1.0", nil)
	bad := NewHealthHandler("v0.1.0", failingCheck{})
	engine.GET("/ready", ok.Ready)
	engine.GET("/ready-bad", bad.Ready)
	engine.GET("/health", ok.Health)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"disabled"`)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready-bad", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Contains(t, w.Body.String(), "v0.1.0")
}

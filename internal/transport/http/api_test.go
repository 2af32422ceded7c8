package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vocab-tiers-service/internal/app"
	"vocab-tiers-service/internal/audio"
	"vocab-tiers-service/internal/catalog"
	"vocab-tiers-service/internal/domain"
	"vocab-tiers-service/internal/infra/memory"
	"vocab-tiers-service/internal/quiz"
)

type fakeSynth struct {
	calls int
}

func (f *fakeSynth) Synthesize(_ context.Context, req audio.Request) (audio.Clip, error) {
	f.calls++
	return audio.Clip{Audio: []byte("mp3:" + req.Text), Duration: req.EstimateDuration()}, nil
}

type testEnv struct {
	server   *httptest.Server
	progress *app.ProgressService
	quizzes  *app.QuizService
	english  map[domain.WordID]string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	catalogs := memory.NewCatalogRepository(memory.NewStaticCatalogLoader(cat), 0)
	progress := app.NewProgressService(catalogs, memory.NewLedgerStore(), logger)
	seed := int64(0)
	quizzes := app.NewQuizServiceWithRand(progress, memory.NewSessionStore(time.Hour), 10, logger, func() quiz.Rand {
		seed++
		return quiz.NewRand(seed)
	})
	speech := audio.NewCachedSynthesizer(&fakeSynth{}, memory.NewAudioCache(), 0, logger)

	router := NewRouter(NewAPI(progress, quizzes, speech, logger), NewWSHandler(quizzes, logger))
	server := httptest.NewServer(WithRequestLog(router, logger))
	t.Cleanup(server.Close)

	english := map[domain.WordID]string{}
	for _, tier := range cat.Tiers() {
		for _, w := range cat.WordsInTier(tier.ID) {
			english[w.ID] = w.English
		}
	}
	return &testEnv{server: server, progress: progress, quizzes: quizzes, english: english}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.server.URL+path, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.server.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("unexpected health response %d %q", resp.StatusCode, body)
	}
}

func TestListWordsFilters(t *testing.T) {
	env := newTestEnv(t)

	var words []domain.Word
	if code := env.do(t, http.MethodGet, "/api/words?tier=1", nil, &words); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if len(words) != 8 {
		t.Fatalf("expected 8 tier 1 words, got %d", len(words))
	}

	var errBody errorBody
	if code := env.do(t, http.MethodGet, "/api/words?tier=one", nil, &errBody); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
	if code := env.do(t, http.MethodGet, "/api/words/nope", nil, &errBody); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
}

func TestLockedTierReturnsMissingRequirements(t *testing.T) {
	env := newTestEnv(t)

	var body errorBody
	code := env.do(t, http.MethodGet, "/api/tiers/2/words?userId=u1", nil, &body)
	if code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
	if body.TierID != 2 || len(body.Missing) != 2 {
		t.Fatalf("expected two missing requirements, got %+v", body)
	}

	var words []domain.Word
	if code := env.do(t, http.MethodGet, "/api/tiers/1/words?userId=u1", nil, &words); code != http.StatusOK || len(words) != 8 {
		t.Fatalf("expected tier 1 open, got %d with %d words", code, len(words))
	}

	if code := env.do(t, http.MethodGet, "/api/tiers/1/words", nil, &body); code != http.StatusBadRequest {
		t.Fatalf("expected 400 without userId, got %d", code)
	}
}

func TestAcknowledgeTierWithoutRequirement(t *testing.T) {
	env := newTestEnv(t)
	var body errorBody
	if code := env.do(t, http.MethodPost, "/api/tiers/1/acknowledge?userId=u1", nil, &body); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", code, body.Error)
	}
	if code := env.do(t, http.MethodPost, "/api/tiers/4/acknowledge?userId=u1", nil, nil); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestPostEvent(t *testing.T) {
	env := newTestEnv(t)

	event := map[string]any{"type": "word_completed", "payload": map[string]any{"wordId": "word_1"}}
	var l domain.Ledger
	if code := env.do(t, http.MethodPost, "/api/users/u1/events", event, &l); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if l.TotalPoints != 10 || !l.CompletedWordIDs.Has("word_1") {
		t.Fatalf("unexpected ledger %+v", l)
	}

	bad := map[string]any{"type": "day_closed", "payload": map[string]any{}}
	if code := env.do(t, http.MethodPost, "/api/users/u1/events", bad, nil); code != http.StatusBadRequest {
		t.Fatalf("expected server-only event rejected, got %d", code)
	}
	unknown := map[string]any{"type": "word_completed", "payload": map[string]any{"wordId": "nope"}}
	if code := env.do(t, http.MethodPost, "/api/users/u1/events", unknown, nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown word, got %d", code)
	}

	var stats struct {
		TotalPoints  int `json:"totalPoints"`
		WordsLearned int `json:"wordsLearned"`
	}
	if code := env.do(t, http.MethodGet, "/api/users/u1/stats", nil, &stats); code != http.StatusOK || stats.WordsLearned != 1 {
		t.Fatalf("unexpected stats %d %+v", code, stats)
	}
}

func TestQuizLifecycle(t *testing.T) {
	env := newTestEnv(t)

	var snap quiz.Snapshot
	code := env.do(t, http.MethodPost, "/api/quiz?userId=u1", app.StartRequest{Mode: app.ModeTier, TierID: 1, Count: 2}, &snap)
	if code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", code)
	}
	base := "/api/quiz/" + snap.ID

	var errBody errorBody
	if code := env.do(t, http.MethodGet, base+"?userId=u2", nil, &errBody); code != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign user, got %d", code)
	}
	if code := env.do(t, http.MethodPost, base+"/finish?userId=u1", nil, &errBody); code != http.StatusConflict {
		t.Fatalf("expected 409 before completion, got %d", code)
	}

	for i := 0; i < 2; i++ {
		var cur quiz.Snapshot
		env.do(t, http.MethodGet, base+"?userId=u1", nil, &cur)
		var ans quiz.Answer
		code := env.do(t, http.MethodPost, base+"/answer?userId=u1", answerBody{Selected: env.english[cur.Question.WordID]}, &ans)
		if code != http.StatusOK || !ans.IsCorrect {
			t.Fatalf("expected correct answer, got %d %+v", code, ans)
		}
		if code := env.do(t, http.MethodPost, base+"/answer?userId=u1", answerBody{Selected: "x"}, nil); code != http.StatusConflict {
			t.Fatalf("expected 409 on second answer, got %d", code)
		}
		if code := env.do(t, http.MethodPost, base+"/advance?userId=u1", nil, nil); code != http.StatusOK {
			t.Fatalf("advance: %d", code)
		}
	}

	var done app.Finished
	if code := env.do(t, http.MethodPost, base+"/finish?userId=u1", nil, &done); code != http.StatusOK {
		t.Fatalf("finish: %d", code)
	}
	if done.Report.Score != 2 || done.Report.Performance != quiz.Excellent || done.Ledger.TotalPoints != 20 {
		t.Fatalf("unexpected finish %+v", done)
	}

	var history quizHistoryBody
	if code := env.do(t, http.MethodGet, "/api/users/u1/quiz-history", nil, &history); code != http.StatusOK {
		t.Fatalf("quiz history: %d", code)
	}
	if history.UserID != "u1" || history.QuizCount != 1 || history.Quizzes[0].SessionID != snap.ID || history.Quizzes[0].Percentage != 100 {
		t.Fatalf("unexpected history %+v", history)
	}
	if code := env.do(t, http.MethodGet, "/api/users/u1/quiz-history?limit=0", nil, nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", code)
	}

	var restarted quiz.Snapshot
	if code := env.do(t, http.MethodPost, base+"/restart?userId=u1", nil, &restarted); code != http.StatusCreated {
		t.Fatalf("restart: %d", code)
	}
	if restarted.ID == snap.ID || restarted.Total != 2 {
		t.Fatalf("unexpected restart %+v", restarted)
	}
	if code := env.do(t, http.MethodGet, base+"?userId=u1", nil, nil); code != http.StatusNotFound {
		t.Fatalf("expected old session gone, got %d", code)
	}
	if code := env.do(t, http.MethodDelete, "/api/quiz/"+restarted.ID+"?userId=u1", nil, nil); code != http.StatusNoContent {
		t.Fatalf("abandon: %d", code)
	}
}

func TestStartQuizValidation(t *testing.T) {
	env := newTestEnv(t)
	var body errorBody
	if code := env.do(t, http.MethodPost, "/api/quiz?userId=u1", map[string]any{"mode": "random"}, &body); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown mode, got %d", code)
	}
	if code := env.do(t, http.MethodPost, "/api/quiz?userId=u1", app.StartRequest{Mode: app.ModeFavorites}, &body); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty favorites pool, got %d", code)
	}
	if code := env.do(t, http.MethodPost, "/api/quiz?userId=u1", app.StartRequest{Mode: app.ModeTier, TierID: 3}, &body); code != http.StatusForbidden {
		t.Fatalf("expected 403 for locked tier, got %d", code)
	}
}

func TestAudioEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/api/audio?wordId=word_1&speed=slow")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "audio/mpeg" {
		t.Fatalf("unexpected response %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !strings.HasPrefix(string(body), "mp3:") {
		t.Fatalf("unexpected body %q", body)
	}

	if code := env.do(t, http.MethodGet, "/api/audio?wordId=word_1&speed=warp", nil, nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown speed, got %d", code)
	}
}

func TestAudioCacheRoutes(t *testing.T) {
	env := newTestEnv(t)

	var res audio.PregenerateResult
	if code := env.do(t, http.MethodPost, "/api/audio/pregenerate", nil, &res); code != http.StatusOK {
		t.Fatalf("pregenerate: %d", code)
	}
	if res.Texts == 0 || res.Failed != 0 || res.Generated == 0 || res.Generated+res.Cached != res.Texts*len(audio.Speeds) {
		t.Fatalf("unexpected pregenerate result %+v", res)
	}

	var stats audio.CacheStats
	env.do(t, http.MethodGet, "/api/audio/cache-stats", nil, &stats)
	if stats != (audio.CacheStats{}) {
		t.Fatalf("pregenerate should not count as traffic, got %+v", stats)
	}

	resp, err := http.Get(env.server.URL + "/api/audio?wordId=word_1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	env.do(t, http.MethodGet, "/api/audio/cache-stats", nil, &stats)
	if stats.Hits != 1 || stats.Misses != 0 || stats.HitRate != 1 {
		t.Fatalf("expected a cache hit after pregenerate, got %+v", stats)
	}
}

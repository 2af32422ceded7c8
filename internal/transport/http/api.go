package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"vocab-tiers-service/internal/app"
	"vocab-tiers-service/internal/audio"
	"vocab-tiers-service/internal/catalog"
	"vocab-tiers-service/internal/domain"
)

// API serves the REST surface over the progress and quiz services.
type API struct {
	progress *app.ProgressService
	quizzes  *app.QuizService
	speech   audio.Synthesizer
	logger   *slog.Logger
}

// audioCache is the admin side of a caching synthesizer.
type audioCache interface {
	Stats() audio.CacheStats
	Pregenerate(ctx context.Context, texts []string) (audio.PregenerateResult, error)
}

// pregenerateTiers are the tiers whose words are synthesized ahead of time.
var pregenerateTiers = []domain.TierID{1, 2}

// NewAPI wires the handlers. speech may be nil, in which case /api/audio is
// not registered; the cache routes need a synthesizer with a cache.
func NewAPI(progress *app.ProgressService, quizzes *app.QuizService, speech audio.Synthesizer, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{progress: progress, quizzes: quizzes, speech: speech, logger: logger}
}

// Register mounts every route on mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/words", a.listWords)
	mux.HandleFunc("GET /api/words/{id}", a.getWord)
	mux.HandleFunc("GET /api/categories", a.listCategories)

	mux.HandleFunc("GET /api/tiers", a.listTiers)
	mux.HandleFunc("GET /api/tiers/{id}/check", a.checkTier)
	mux.HandleFunc("POST /api/tiers/{id}/acknowledge", a.acknowledgeTier)
	mux.HandleFunc("GET /api/tiers/{id}/words", a.tierWords)

	mux.HandleFunc("GET /api/users/{id}/progress", a.userProgress)
	mux.HandleFunc("POST /api/users/{id}/events", a.userEvent)
	mux.HandleFunc("GET /api/users/{id}/stats", a.userStats)
	mux.HandleFunc("GET /api/users/{id}/badges", a.userBadges)
	mux.HandleFunc("GET /api/users/{id}/favorites", a.userFavorites)
	mux.HandleFunc("GET /api/users/{id}/quiz-history", a.userQuizHistory)

	mux.HandleFunc("POST /api/quiz", a.startQuiz)
	mux.HandleFunc("GET /api/quiz/{id}", a.currentQuiz)
	mux.HandleFunc("POST /api/quiz/{id}/answer", a.answerQuiz)
	mux.HandleFunc("POST /api/quiz/{id}/advance", a.advanceQuiz)
	mux.HandleFunc("POST /api/quiz/{id}/finish", a.finishQuiz)
	mux.HandleFunc("POST /api/quiz/{id}/restart", a.restartQuiz)
	mux.HandleFunc("DELETE /api/quiz/{id}", a.abandonQuiz)

	if a.speech != nil {
		mux.HandleFunc("GET /api/audio", a.speak)
	}
	if cache, ok := a.speech.(audioCache); ok {
		mux.HandleFunc("GET /api/audio/cache-stats", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, cache.Stats())
		})
		mux.HandleFunc("POST /api/audio/pregenerate", func(w http.ResponseWriter, r *http.Request) {
			a.pregenerate(w, r, cache)
		})
	}
}

func (a *API) listWords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.Filter{Category: domain.Category(q.Get("category")), Query: q.Get("q")}
	if raw := q.Get("tier"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			a.fail(w, badRequest("tier must be a number"))
			return
		}
		f.Tier = domain.TierID(id)
	}
	words, err := a.progress.Words(r.Context(), f)
	a.respond(w, words, err)
}

func (a *API) getWord(w http.ResponseWriter, r *http.Request) {
	word, err := a.progress.Word(r.Context(), domain.WordID(r.PathValue("id")))
	a.respond(w, word, err)
}

func (a *API) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := a.progress.Categories(r.Context())
	a.respond(w, cats, err)
}

func (a *API) listTiers(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.userFromQuery(w, r)
	if !ok {
		return
	}
	tiers, err := a.progress.Tiers(r.Context(), userID)
	a.respond(w, tiers, err)
}

func (a *API) checkTier(w http.ResponseWriter, r *http.Request) {
	userID, tierID, ok := a.userAndTier(w, r)
	if !ok {
		return
	}
	d, err := a.progress.CheckTier(r.Context(), userID, tierID)
	a.respond(w, d, err)
}

func (a *API) acknowledgeTier(w http.ResponseWriter, r *http.Request) {
	userID, tierID, ok := a.userAndTier(w, r)
	if !ok {
		return
	}
	l, err := a.progress.AcknowledgeTier(r.Context(), userID, tierID)
	a.respond(w, l, err)
}

func (a *API) tierWords(w http.ResponseWriter, r *http.Request) {
	userID, tierID, ok := a.userAndTier(w, r)
	if !ok {
		return
	}
	words, err := a.progress.SelectTier(r.Context(), userID, tierID)
	a.respond(w, words, err)
}

func (a *API) userProgress(w http.ResponseWriter, r *http.Request) {
	l, err := a.progress.Progress(r.Context(), r.PathValue("id"))
	a.respond(w, l, err)
}

func (a *API) userEvent(w http.ResponseWriter, r *http.Request) {
	var env domain.EventEnvelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		a.fail(w, badRequest("invalid event body"))
		return
	}
	ev, err := domain.DecodeEvent(env)
	if err != nil {
		a.fail(w, badRequest(err.Error()))
		return
	}
	l, err := a.progress.Apply(r.Context(), r.PathValue("id"), ev)
	a.respond(w, l, err)
}

func (a *API) userStats(w http.ResponseWriter, r *http.Request) {
	s, err := a.progress.Stats(r.Context(), r.PathValue("id"))
	a.respond(w, s, err)
}

func (a *API) userBadges(w http.ResponseWriter, r *http.Request) {
	b, err := a.progress.Badges(r.Context(), r.PathValue("id"))
	a.respond(w, b, err)
}

func (a *API) userFavorites(w http.ResponseWriter, r *http.Request) {
	words, err := a.progress.Favorites(r.Context(), r.PathValue("id"))
	a.respond(w, words, err)
}

type quizHistoryBody struct {
	UserID    string              `json:"userId"`
	QuizCount int                 `json:"quizCount"`
	Quizzes   []domain.QuizResult `json:"quizzes"`
}

func (a *API) userQuizHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			a.fail(w, badRequest("limit must be a positive number"))
			return
		}
		limit = n
	}
	userID := r.PathValue("id")
	history, err := a.progress.QuizHistory(r.Context(), userID, limit)
	a.respond(w, quizHistoryBody{UserID: userID, QuizCount: len(history), Quizzes: history}, err)
}

type answerBody struct {
	Selected string `json:"selected"`
}

func (a *API) startQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.userFromQuery(w, r)
	if !ok {
		return
	}
	var req app.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.fail(w, badRequest("invalid quiz request"))
		return
	}
	switch req.Mode {
	case "", app.ModeUnlocked, app.ModeTier, app.ModeFavorites, app.ModeWords:
	default:
		a.fail(w, badRequest(fmt.Sprintf("unknown quiz mode %q", req.Mode)))
		return
	}
	snap, err := a.quizzes.Start(r.Context(), userID, req)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (a *API) currentQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.userFromQuery(w, r)
	if !ok {
		return
	}
	snap, err := a.quizzes.Current(r.Context(), userID, r.PathValue("id"))
	a.respond(w, snap, err)
}

func (a *API) answerQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.userFromQuery(w, r)
	if !ok {
		return
	}
	var body answerBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		a.fail(w, badRequest("invalid answer body"))
		return
	}
	ans, err := a.quizzes.Answer(r.Context(), userID, r.PathValue("id"), body.Selected)
	a.respond(w, ans, err)
}

func (a *API) advanceQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.userFromQuery(w, r)
	if !ok {
		return
	}
	snap, err := a.quizzes.Advance(r.Context(), userID, r.PathValue("id"))
	a.respond(w, snap, err)
}

func (a *API) finishQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.userFromQuery(w, r)
	if !ok {
		return
	}
	done, err := a.quizzes.Finish(r.Context(), userID, r.PathValue("id"))
	a.respond(w, done, err)
}

func (a *API) restartQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.userFromQuery(w, r)
	if !ok {
		return
	}
	snap, err := a.quizzes.Restart(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (a *API) abandonQuiz(w http.ResponseWriter, r *http.Request) {
	userID, ok := a.userFromQuery(w, r)
	if !ok {
		return
	}
	if err := a.quizzes.Abandon(r.Context(), userID, r.PathValue("id")); err != nil {
		a.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) speak(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	speed, err := audio.ParseSpeed(q.Get("speed"))
	if err != nil {
		a.fail(w, badRequest(err.Error()))
		return
	}
	word, err := a.progress.Word(r.Context(), domain.WordID(q.Get("wordId")))
	if err != nil {
		a.fail(w, err)
		return
	}
	clip, err := a.speech.Synthesize(r.Context(), audio.Request{Text: word.Somali, Speed: speed})
	if err != nil {
		a.logger.Error("synthesize failed", "word", word.ID, "speed", speed, "err", err)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "audio unavailable"})
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("X-Audio-Duration-Ms", strconv.FormatInt(clip.Duration.Milliseconds(), 10))
	w.Header().Set("ETag", `"`+clip.CacheKey+`"`)
	_, _ = w.Write(clip.Audio)
}

func (a *API) pregenerate(w http.ResponseWriter, r *http.Request, cache audioCache) {
	var texts []string
	for _, tier := range pregenerateTiers {
		words, err := a.progress.Words(r.Context(), catalog.Filter{Tier: tier})
		if err != nil {
			a.fail(w, err)
			return
		}
		for _, word := range words {
			texts = append(texts, word.Somali)
		}
	}
	res, err := cache.Pregenerate(r.Context(), texts)
	a.respond(w, res, err)
}

func (a *API) userFromQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		a.fail(w, badRequest("missing userId"))
		return "", false
	}
	return userID, true
}

func (a *API) userAndTier(w http.ResponseWriter, r *http.Request) (string, domain.TierID, bool) {
	userID, ok := a.userFromQuery(w, r)
	if !ok {
		return "", 0, false
	}
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		a.fail(w, badRequest("tier id must be a number"))
		return "", 0, false
	}
	return userID, domain.TierID(id), true
}

func (a *API) respond(w http.ResponseWriter, v any, err error) {
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

type errorBody struct {
	Error   string               `json:"error"`
	TierID  domain.TierID        `json:"tierId,omitempty"`
	Missing []domain.Requirement `json:"missing,omitempty"`
}

type badRequest string

func (e badRequest) Error() string { return string(e) }

func (a *API) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}
	var locked *app.LockedError
	if errors.As(err, &locked) {
		body.TierID = locked.Decision.TierID
		body.Missing = locked.Decision.Missing
	}
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, body)
}

func statusFor(err error) int {
	var br badRequest
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrTierLocked), errors.Is(err, domain.ErrSessionOwner):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUnknownWord), errors.Is(err, domain.ErrUnknownTier), errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTier), errors.Is(err, domain.ErrInsufficientPool):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAlreadyAnswered), errors.Is(err, domain.ErrNotYetAnswered),
		errors.Is(err, domain.ErrAlreadyCompleted), errors.Is(err, domain.ErrQuizNotCompleted):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package http

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mind-engage/quizd/internal/db"
	"github.com/mind-engage/quizd/internal/grading"
	"github.com/mind-engage/quizd/internal/metrics"
	"github.com/mind-engage/quizd/internal/quiz"
	"github.com/mind-engage/quizd/internal/storage"
	syncx "github.com/mind-engage/quizd/internal/sync"
)

const player = "9f1c2b3a-4d5e-4f60-8a7b-1c2d3e4f5a6b"

type headSampler struct{}

func (headSampler) Sample(pool []int64, n int) []int64 { return append([]int64(nil), pool[:n]...) }

func newTestAPI(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverSQLite, "file::memory:?_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	events := syncx.NewEventRepo(conn, db.DriverSQLite, "test")
	blobs, err := storage.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	m := metrics.New()
	svc := quiz.NewService(quiz.NewSQLStore(conn, db.DriverSQLite, events), grading.NewDefaultGrader(),
		quiz.WithSampler(headSampler{}), quiz.WithBlobStore(blobs), quiz.WithObserver(m))
	return Routes(Deps{
		Service: svc,
		Blobs:   blobs,
		Events:  events,
		Metrics: m,
		Ready:   conn.PingContext,
	})
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v (%s)", v, err, rec.Body.String())
	}
	return v
}

var bank = []string{
	`{"prompt":"Capital of France?","qtype":"text","difficulty":"easy","text_answer":"Paris"}`,
	`{"prompt":"6 x 7?","qtype":"numeric","difficulty":"easy","numeric_answer":42}`,
	`{"prompt":"Largest planet?","qtype":"single","difficulty":"med","choices":[{"text":"Mars","is_correct":false},{"text":"Jupiter","is_correct":true}]}`,
	`{"prompt":"Primary colors?","qtype":"multi","difficulty":"med","choices":[{"text":"Red","is_correct":true},{"text":"Green","is_correct":false},{"text":"Blue","is_correct":true}]}`,
	`{"prompt":"Draw a cat","qtype":"image","difficulty":"hard","image_required":true}`,
}

func seed(t *testing.T, h http.Handler) {
	t.Helper()
	for _, b := range bank {
		if rec := do(t, h, http.MethodPost, "/questions", b); rec.Code != http.StatusCreated {
			t.Fatalf("seed: %d %s", rec.Code, rec.Body)
		}
	}
}

func start(t *testing.T, h http.Handler) quiz.Attempt {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/play/start", map[string]string{"player_uuid": player})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start: %d %s", rec.Code, rec.Body)
	}
	return decode[quiz.Attempt](t, rec)
}

// rightAnswers answers every non-image question correctly, choosing
// choices by their text since correctness is hidden from players.
func rightAnswers(a quiz.Attempt) map[string]any {
	want := map[string]bool{"Jupiter": true, "Red": true, "Blue": true}
	out := map[string]any{}
	for _, aq := range a.AttemptQuestions {
		key := fmt.Sprint(aq.ID)
		switch aq.QType {
		case quiz.QTypeText:
			out[key] = map[string]any{"text_response": " PARIS"}
		case quiz.QTypeNumeric:
			out[key] = map[string]any{"numeric_response": "42.0"}
		case quiz.QTypeSingle, quiz.QTypeMultiple:
			var ids []int64
			for _, c := range aq.Choices {
				if want[c.Text] {
					ids = append(ids, c.ID)
				}
			}
			out[key] = map[string]any{"selected_choice_ids": ids}
		}
	}
	return out
}

func TestQuestionEndpoints(t *testing.T) {
	h := newTestAPI(t)

	rec := do(t, h, http.MethodPost, "/questions", bank[3])
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body)
	}
	q := decode[quiz.Question](t, rec)
	if q.QType != quiz.QTypeMultiple || len(q.Choices) != 3 {
		t.Fatalf("created: %+v", q)
	}

	rec = do(t, h, http.MethodPost, "/questions", `{"prompt":"p","qtype":"single","difficulty":"easy","choices":[{"text":"a"}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid create: %d", rec.Code)
	}
	if body := decode[errorBody](t, rec); body.Field != "choices" {
		t.Fatalf("error body: %+v", body)
	}
	if rec := do(t, h, http.MethodPost, "/questions", `{nope`); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json: %d", rec.Code)
	}

	path := fmt.Sprintf("/questions/%d", q.ID)
	rec = do(t, h, http.MethodPut, path, `{"prompt":"Secondary colors?","qtype":"multiple","difficulty":"hard","choices":[{"id":1,"text":"Orange","is_correct":true}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body)
	}
	if u := decode[quiz.Question](t, rec); len(u.Choices) != 1 || u.Choices[0].Text != "Orange" || u.Prompt != "Secondary colors?" {
		t.Fatalf("updated: %+v", u)
	}

	if rec := do(t, h, http.MethodGet, "/questions?qtype=multi", nil); len(decode[[]quiz.Question](t, rec)) != 1 {
		t.Fatalf("list by legacy qtype: %s", rec.Body)
	}
	if rec := do(t, h, http.MethodGet, "/questions?category=x", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad category filter: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodDelete, path, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body)
	}
	if rec := do(t, h, http.MethodGet, path, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("get deleted: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/questions/abc", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: %d", rec.Code)
	}
}

func TestCategoryEndpoints(t *testing.T) {
	h := newTestAPI(t)
	if rec := do(t, h, http.MethodPost, "/categories", `{"name":"General"}`); rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body)
	}
	if rec := do(t, h, http.MethodPost, "/categories", `{"name":"general"}`); rec.Code != http.StatusConflict {
		t.Fatalf("duplicate: %d", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/categories", `{"name":" "}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("blank: %d", rec.Code)
	}
	list := decode[[]quiz.Category](t, do(t, h, http.MethodGet, "/categories", nil))
	if len(list) != 1 || list[0].Name != "General" {
		t.Fatalf("list: %+v", list)
	}
	rec := do(t, h, http.MethodPost, "/questions", `{"prompt":"p","qtype":"text","difficulty":"easy","text_answer":"x","category":99}`)
	if rec.Code != http.StatusBadRequest || decode[errorBody](t, rec).Field != "category" {
		t.Fatalf("unknown category: %d %s", rec.Code, rec.Body)
	}
}

func TestPlayFlow(t *testing.T) {
	h := newTestAPI(t)

	if rec := do(t, h, http.MethodPost, "/play/start", map[string]string{"player_uuid": player}); rec.Code != http.StatusConflict {
		t.Fatalf("empty bank: %d %s", rec.Code, rec.Body)
	}
	seed(t, h)
	if rec := do(t, h, http.MethodPost, "/play/start", map[string]string{"player_uuid": "me"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad uuid: %d", rec.Code)
	}

	rec := do(t, h, http.MethodPost, "/play/start", map[string]string{"player_uuid": player})
	if strings.Contains(rec.Body.String(), `"is_correct":true`) || strings.Contains(rec.Body.String(), "Paris") {
		t.Fatalf("open attempt leaks answers: %s", rec.Body)
	}
	a := decode[quiz.Attempt](t, rec)
	if a.Total != quiz.AttemptSize || a.Score != nil {
		t.Fatalf("started: %+v", a)
	}

	submit := fmt.Sprintf("/play/submit/%d", a.ID)
	rec = do(t, h, http.MethodPost, submit, map[string]any{"answers": rightAnswers(a)})
	if rec.Code != http.StatusOK || rec.Header().Get("Idempotent-Replay") != "" {
		t.Fatalf("submit: %d %v %s", rec.Code, rec.Header(), rec.Body)
	}
	scored := decode[quiz.Attempt](t, rec)
	if scored.Score == nil || *scored.Score != 4 || scored.Total != 5 {
		t.Fatalf("score = %v/%d, want 4/5", scored.Score, scored.Total)
	}

	rec = do(t, h, http.MethodPost, submit, `{}`)
	if rec.Code != http.StatusOK || rec.Header().Get("Idempotent-Replay") != "true" {
		t.Fatalf("replay: %d %v", rec.Code, rec.Header())
	}
	if again := decode[quiz.Attempt](t, rec); *again.Score != 4 {
		t.Fatalf("replay changed score: %d", *again.Score)
	}

	if rec := do(t, h, http.MethodPost, "/play/submit/999", `{}`); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown attempt: %d", rec.Code)
	}

	list := decode[[]quiz.Attempt](t, do(t, h, http.MethodGet, "/attempts?player_uuid="+player, nil))
	if len(list) != 1 || list[0].ID != a.ID {
		t.Fatalf("attempt list: %+v", list)
	}
	got := decode[quiz.Attempt](t, do(t, h, http.MethodGet, fmt.Sprintf("/attempts/%d", a.ID), nil))
	if *got.Score != 4 {
		t.Fatalf("detail score: %d", *got.Score)
	}

	evs := decode[[]syncx.Event](t, do(t, h, http.MethodGet, "/events", nil))
	if len(evs) != 1 || evs[0].Type != syncx.TypeAttemptScored {
		t.Fatalf("events: %+v", evs)
	}
}

func TestSubmitUndecodableBody(t *testing.T) {
	h := newTestAPI(t)
	seed(t, h)
	a := start(t, h)
	if rec := do(t, h, http.MethodPost, fmt.Sprintf("/play/submit/%d", a.ID), `[not json`); rec.Code != http.StatusBadRequest {
		t.Fatalf("undecodable body: %d", rec.Code)
	}
	// still open
	got := decode[quiz.Attempt](t, do(t, h, http.MethodGet, fmt.Sprintf("/attempts/%d", a.ID), nil))
	if got.Status != quiz.StatusOpen {
		t.Fatalf("status = %s", got.Status)
	}
}

func TestMultipartSubmitWithImage(t *testing.T) {
	h := newTestAPI(t)
	seed(t, h)
	a := start(t, h)

	answers, _ := json.Marshal(rightAnswers(a))
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("answers", string(answers))
	fw, _ := mw.CreateFormFile("image", "drawing.png")
	_, _ = fw.Write([]byte("\x89PNG fake"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/play/submit/%d", a.ID), &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("multipart submit: %d %s", rec.Code, rec.Body)
	}
	scored := decode[quiz.Attempt](t, rec)
	if *scored.Score != 5 {
		t.Fatalf("score = %d, want 5", *scored.Score)
	}
	var img quiz.AttemptQuestion
	for _, aq := range scored.AttemptQuestions {
		if aq.QType == quiz.QTypeImage {
			img = aq
		}
	}
	if img.Image == "" || !img.NeedsReview {
		t.Fatalf("image question: %+v", img)
	}

	rec = do(t, h, http.MethodGet, "/assets/"+img.Image, nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "\x89PNG fake" || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("asset: %d %q %q", rec.Code, rec.Header().Get("Content-Type"), rec.Body)
	}
	if rec := do(t, h, http.MethodGet, "/assets/attempts/none.png", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("missing asset: %d", rec.Code)
	}
}

func TestExportCSV(t *testing.T) {
	h := newTestAPI(t)
	seed(t, h)
	a := start(t, h)
	b := start(t, h)
	_ = do(t, h, http.MethodPost, fmt.Sprintf("/play/submit/%d", a.ID), map[string]any{"answers": rightAnswers(a)})

	rec := do(t, h, http.MethodGet, "/attempts/export.csv", nil)
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("export: %d %v", rec.Code, rec.Header())
	}
	rows, err := csv.NewReader(rec.Body).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || strings.Join(rows[0], ",") != "id,player_uuid,created_at,status,score,total,correct_ratio" {
		t.Fatalf("rows: %v", rows)
	}
	byID := map[string][]string{}
	for _, r := range rows[1:] {
		byID[r[0]] = r
	}
	if r := byID[fmt.Sprint(a.ID)]; r[3] != "scored" || r[4] != "4" || r[6] != "0.80" {
		t.Fatalf("scored row: %v", r)
	}
	if r := byID[fmt.Sprint(b.ID)]; r[3] != "open" || r[4] != "" || r[5] != "5" {
		t.Fatalf("open row: %v", r)
	}
}

func TestOpsEndpoints(t *testing.T) {
	h := newTestAPI(t)
	for _, p := range []string{"/healthz", "/readyz", "/metrics"} {
		if rec := do(t, h, http.MethodGet, p, nil); rec.Code != http.StatusOK {
			t.Fatalf("%s: %d", p, rec.Code)
		}
	}
}

func TestRateLimiter(t *testing.T) {
	l := NewRateLimiter(0.001, 2)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/play/start", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}

	other := httptest.NewRequest(http.MethodPost, "/play/start", nil)
	other.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	if rec.Code != 200 {
		t.Fatalf("other client throttled: %d", rec.Code)
	}
}

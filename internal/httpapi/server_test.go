package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/skillpath-labs/skillpath/internal/ai"
	"github.com/skillpath-labs/skillpath/internal/certificate"
	"github.com/skillpath-labs/skillpath/internal/course"
	"github.com/skillpath-labs/skillpath/internal/curriculum"
	"github.com/skillpath-labs/skillpath/internal/generator"
	"github.com/skillpath-labs/skillpath/internal/httpapi"
	"github.com/skillpath-labs/skillpath/internal/payment"
	"github.com/skillpath-labs/skillpath/internal/progress"
	"github.com/skillpath-labs/skillpath/internal/report"
	"github.com/skillpath-labs/skillpath/internal/store"
)

const merchant = "0xAbCd000000000000000000000000000000000001"

type fakeChain struct {
	txs      map[string]*payment.Transaction
	receipts map[string]*payment.Receipt
}

func (f *fakeChain) TransactionByHash(_ context.Context, hash string) (*payment.Transaction, error) {
	tx, ok := f.txs[hash]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return tx, nil
}

func (f *fakeChain) TransactionReceipt(_ context.Context, hash string) (*payment.Receipt, error) {
	r, ok := f.receipts[hash]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return r, nil
}

type env struct {
	store *store.MemoryStore
	srv   *httptest.Server
}

// newEnv builds a full server on an in-memory store. The generation backend
// always fails, so all content is fallback content.
func newEnv(t *testing.T) *env {
	t.Helper()
	st := store.NewMemoryStore()

	mock := ai.NewMockProvider("")
	mock.Err = fmt.Errorf("backend down")
	gen := generator.New(mock, generator.WithBaseDelay(time.Millisecond))

	cs := curriculum.NewService(gen, st, nil)

	price, _ := new(big.Int).SetString(payment.DefaultPriceWei, 10)
	chain := &fakeChain{
		txs: map[string]*payment.Transaction{
			"0xtx1": {Hash: "0xtx1", From: "0xPayer01", To: merchant, Value: price},
		},
		receipts: map[string]*payment.Receipt{
			"0xtx1": {TxHash: "0xtx1", Status: 1},
		},
	}

	hub := httpapi.NewHub(nil)
	ps := progress.NewService(st, progress.WithNotifier(hub))
	certs := certificate.NewService(ps, st, nil)

	srv := httpapi.NewServer(cs, ps, certs,
		payment.NewVerifier(chain, st, merchant), report.NewExporter(st), st,
		httpapi.WithHub(hub))

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return &env{store: st, srv: ts}
}

func (e *env) do(t *testing.T, method, path, userID string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

func TestHealthEndpoints(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(t, http.MethodGet, "/healthz", "", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "ok") {
		t.Errorf("healthz = %d %s", resp.StatusCode, body)
	}
	resp, _ = e.do(t, http.MethodGet, "/readyz", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("readyz = %d", resp.StatusCode)
	}
}

func TestIdentityRequired(t *testing.T) {
	e := newEnv(t)

	resp, _ := e.do(t, http.MethodGet, "/api/dashboard", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestCurriculumLifecycle(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(t, http.MethodPost, "/api/curriculum", "u1", course.Profile{
		TargetSkill: "Python", CurrentLevel: "beginner", TimePerWeek: 5,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create = %d %s", resp.StatusCode, body)
	}
	var cur course.Curriculum
	if err := json.Unmarshal(body, &cur); err != nil {
		t.Fatal(err)
	}
	if len(cur.WeeklyRoadmap) != 12 {
		t.Errorf("roadmap weeks = %d, want 12 (fallback curriculum)", len(cur.WeeklyRoadmap))
	}

	resp, body = e.do(t, http.MethodGet, "/api/curriculum/current", "u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("current = %d", resp.StatusCode)
	}
	var current course.Curriculum
	if err := json.Unmarshal(body, &current); err != nil {
		t.Fatal(err)
	}
	if current.ID != cur.ID {
		t.Errorf("current = %s, want %s", current.ID, cur.ID)
	}

	resp, _ = e.do(t, http.MethodGet, "/api/curriculum/week/1", "u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("week 1 = %d", resp.StatusCode)
	}
	resp, _ = e.do(t, http.MethodGet, "/api/curriculum/week/99", "u1", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("week 99 = %d, want 404", resp.StatusCode)
	}

	// Missing skill is rejected before any mutation.
	resp, _ = e.do(t, http.MethodPost, "/api/curriculum", "u1", course.Profile{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty profile = %d, want 400", resp.StatusCode)
	}
}

func TestLessonQuizFlow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, body := e.do(t, http.MethodPost, "/api/curriculum", "u1", course.Profile{TargetSkill: "Python"})
	var cur course.Curriculum
	if err := json.Unmarshal(body, &cur); err != nil {
		t.Fatal(err)
	}
	subtopicID := cur.Modules[0].Topics[0].Subtopics[0].ID

	resp, body := e.do(t, http.MethodGet, "/api/curriculum/"+cur.ID+"/lessons/"+subtopicID, "u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("lesson = %d %s", resp.StatusCode, body)
	}
	var lesson course.Lesson
	if err := json.Unmarshal(body, &lesson); err != nil {
		t.Fatal(err)
	}

	resp, body = e.do(t, http.MethodGet, "/api/lessons/"+lesson.ID+"/quiz", "u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("quiz = %d", resp.StatusCode)
	}
	if strings.Contains(string(body), "correctAnswer") {
		t.Error("quiz response leaks the answer key")
	}
	var quiz struct {
		ID        string `json:"id"`
		Questions []struct {
			ID string `json:"id"`
		} `json:"questions"`
	}
	if err := json.Unmarshal(body, &quiz); err != nil {
		t.Fatal(err)
	}

	// The fallback quiz answers are 0, 2, 2.
	resp, body = e.do(t, http.MethodPost, "/api/quizzes/"+quiz.ID+"/submit", "u1",
		map[string][]int{"answers": {0, 2, 2}})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit = %d %s", resp.StatusCode, body)
	}
	var result progress.SubmitResult
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatal(err)
	}
	if result.Score != 100 || result.Message != "Great job!" {
		t.Errorf("result = %+v", result)
	}

	has, _ := e.store.HasEvent(ctx, "u1", cur.ID, course.EventLessonCompleted, lesson.ID)
	if !has {
		t.Error("lesson_completed missing after perfect score")
	}
}

func TestCertificateEndpoints(t *testing.T) {
	e := newEnv(t)

	_, body := e.do(t, http.MethodPost, "/api/curriculum", "u1", course.Profile{TargetSkill: "Python"})
	var cur course.Curriculum
	if err := json.Unmarshal(body, &cur); err != nil {
		t.Fatal(err)
	}

	resp, body := e.do(t, http.MethodGet, "/api/certificates/"+cur.ID+"/eligibility", "u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("eligibility = %d", resp.StatusCode)
	}
	var elig certificate.Eligibility
	if err := json.Unmarshal(body, &elig); err != nil {
		t.Fatal(err)
	}
	if elig.Eligible || elig.Reason != "No progress found" {
		t.Errorf("eligibility = %+v", elig)
	}

	resp, _ = e.do(t, http.MethodPost, "/api/certificates/"+cur.ID+"/payment", "u1",
		map[string]string{"wallet": "0xabc", "txHash": "0xtx1"})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("payment while ineligible = %d, want 403", resp.StatusCode)
	}

	resp, _ = e.do(t, http.MethodGet, "/api/certificates/"+cur.ID+"/metadata", "u1", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("metadata while ineligible = %d, want 403", resp.StatusCode)
	}
}

func TestPaymentEndpoints(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(t, http.MethodGet, "/api/payments/price", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("price = %d", resp.StatusCode)
	}
	var price payment.PriceInfo
	if err := json.Unmarshal(body, &price); err != nil {
		t.Fatal(err)
	}
	if price.PriceEth != "0.05" {
		t.Errorf("PriceEth = %s", price.PriceEth)
	}

	resp, body = e.do(t, http.MethodPost, "/api/payments/confirm", "",
		map[string]string{"txHash": "0xtx1", "curriculumId": "c1", "userAddress": "0xPayer01"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm = %d %s", resp.StatusCode, body)
	}
	var confirm payment.ConfirmResult
	if err := json.Unmarshal(body, &confirm); err != nil {
		t.Fatal(err)
	}
	if !confirm.Success {
		t.Errorf("confirm = %+v", confirm)
	}

	resp, body = e.do(t, http.MethodGet, "/api/payments/eligibility?address=0xPayer01&curriculumId=c1", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("eligibility = %d", resp.StatusCode)
	}
	var pe payment.EligibilityResult
	if err := json.Unmarshal(body, &pe); err != nil {
		t.Fatal(err)
	}
	if !pe.HasPaid {
		t.Errorf("eligibility = %+v", pe)
	}
}

func TestProgressReportDownload(t *testing.T) {
	e := newEnv(t)

	_, body := e.do(t, http.MethodPost, "/api/curriculum", "u1", course.Profile{TargetSkill: "Python"})
	var cur course.Curriculum
	if err := json.Unmarshal(body, &cur); err != nil {
		t.Fatal(err)
	}

	resp, data := e.do(t, http.MethodGet, "/api/reports/progress/"+cur.ID, "u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("report = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "spreadsheetml") {
		t.Errorf("Content-Type = %s", ct)
	}
	if len(data) == 0 {
		t.Error("empty report body")
	}
}

func TestProgressWebsocket(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, body := e.do(t, http.MethodPost, "/api/curriculum", "u1", course.Profile{TargetSkill: "Python"})
	var cur course.Curriculum
	if err := json.Unmarshal(body, &cur); err != nil {
		t.Fatal(err)
	}
	subtopicID := cur.Modules[0].Topics[0].Subtopics[0].ID

	_, body = e.do(t, http.MethodGet, "/api/curriculum/"+cur.ID+"/lessons/"+subtopicID, "u1", nil)
	var lesson course.Lesson
	if err := json.Unmarshal(body, &lesson); err != nil {
		t.Fatal(err)
	}
	_, body = e.do(t, http.MethodGet, "/api/lessons/"+lesson.ID+"/quiz", "u1", nil)
	var quiz struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &quiz); err != nil {
		t.Fatal(err)
	}

	wsURL := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/api/progress/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{"X-User-ID": []string{"u1"}},
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// Submitting the quiz writes a quiz_completed event, which should
	// arrive on the socket.
	if resp, _ := e.do(t, http.MethodPost, "/api/quizzes/"+quiz.ID+"/submit", "u1",
		map[string][]int{"answers": {0, 2, 2}}); resp.StatusCode != http.StatusOK {
		t.Fatalf("submit = %d", resp.StatusCode)
	}

	var ev course.ProgressEvent
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if ev.Type != course.EventQuizCompleted {
		t.Errorf("event type = %s, want quiz_completed", ev.Type)
	}
}

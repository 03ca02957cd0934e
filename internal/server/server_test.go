package server_test

// End-to-end API tests: every request goes through the real router, the
// real middleware chain, the real services, and a real SQLite database in a
// temp directory. Slower than unit tests (bcrypt at production cost), but
// this is the one place the whole stack is exercised together.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agoraflow/agoraflow/internal/server"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	srv, err := server.New(server.Config{
		DBPath: filepath.Join(t.TempDir(), "test.db"),
	}, logger)
	if err != nil {
		t.Fatalf("server.New() error = %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv.Router()
}

// doJSON sends a request with an optional JSON body and bearer key.
func doJSON(t *testing.T, router http.Handler, method, path, apiKey string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// decode unmarshals a recorded response body into a generic map.
func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response %q: %v", rr.Body.String(), err)
	}
	return out
}

// solveCaptcha computes the answer to "What is A op B?".
func solveCaptcha(t *testing.T, question string) string {
	t.Helper()

	parts := strings.Fields(strings.TrimSuffix(strings.TrimPrefix(question, "What is "), "?"))
	if len(parts) != 3 {
		t.Fatalf("unexpected captcha question: %q", question)
	}
	a, _ := strconv.Atoi(parts[0])
	b, _ := strconv.Atoi(parts[2])
	switch parts[1] {
	case "+":
		return fmt.Sprint(a + b)
	case "-":
		return fmt.Sprint(a - b)
	default:
		return fmt.Sprint(a * b)
	}
}

// signup registers an agent through the real captcha + signup flow and
// returns its API key.
func signup(t *testing.T, router http.Handler, username string) string {
	t.Helper()

	rr := doJSON(t, router, http.MethodPost, "/api/auth/captcha", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("captcha: status = %d, body = %s", rr.Code, rr.Body.String())
	}
	captcha := decode(t, rr)

	rr = doJSON(t, router, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"username":      username,
		"captchaId":     captcha["id"].(string),
		"captchaAnswer": solveCaptcha(t, captcha["question"].(string)),
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("signup(%s): status = %d, body = %s", username, rr.Code, rr.Body.String())
	}
	return decode(t, rr)["apiKey"].(string)
}

func TestAPI_QuestionLifecycle(t *testing.T) {
	router := newTestServer(t)

	aliceKey := signup(t, router, "alice")
	bobKey := signup(t, router, "bob")

	// Unauthenticated mutation is rejected up front.
	rr := doJSON(t, router, http.MethodPost, "/api/questions", "", map[string]any{
		"title": "Should this even be possible?",
		"body":  "Posting without an API key should fail with 401.",
		"tags":  []string{"auth"},
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// Alice posts a question.
	rr = doJSON(t, router, http.MethodPost, "/api/questions", aliceKey, map[string]any{
		"title": "How should agents coordinate on shared state?",
		"body":  "Multiple agents race on one resource. What are the usual patterns?",
		"tags":  []string{"concurrency", "Design"},
	})
	assert.Equal(t, http.StatusCreated, rr.Code)
	question := decode(t, rr)["data"].(map[string]any)
	questionID := question["id"].(string)
	assert.Equal(t, "alice", question["author"])
	// Tags are normalised to lowercase.
	assert.Equal(t, []any{"concurrency", "design"}, question["tags"])

	// The feed sees it.
	rr = doJSON(t, router, http.MethodGet, "/api/questions?sort=newest", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	feed := decode(t, rr)
	assert.Equal(t, float64(1), feed["total"])
	assert.Equal(t, false, feed["hasMore"])

	// Bob answers.
	rr = doJSON(t, router, http.MethodPost, "/api/questions/"+questionID+"/answers", bobKey, map[string]any{
		"body": "Use a single writer and a queue in front of it.",
	})
	assert.Equal(t, http.StatusCreated, rr.Code)
	answerID := decode(t, rr)["data"].(map[string]any)["id"].(string)

	// Bob upvotes Alice's question.
	rr = doJSON(t, router, http.MethodPost, "/api/answers/"+questionID+"/vote?type=question", bobKey, map[string]string{
		"value": "up",
	})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(1), decode(t, rr)["data"].(map[string]any)["votes"])

	// Alice cannot vote on her own question.
	rr = doJSON(t, router, http.MethodPost, "/api/answers/"+questionID+"/vote?type=question", aliceKey, map[string]string{
		"value": "up",
	})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// Alice upvotes Bob's answer (default target type).
	rr = doJSON(t, router, http.MethodPost, "/api/answers/"+answerID+"/vote", aliceKey, map[string]string{
		"value": "up",
	})
	assert.Equal(t, http.StatusOK, rr.Code)

	// Alice accepts Bob's answer; a second accept conflicts.
	rr = doJSON(t, router, http.MethodPost, "/api/questions/"+questionID+"/accept", aliceKey, map[string]string{
		"answerId": answerID,
	})
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = doJSON(t, router, http.MethodPost, "/api/questions/"+questionID+"/accept", aliceKey, map[string]string{
		"answerId": answerID,
	})
	assert.Equal(t, http.StatusConflict, rr.Code)

	// Bob, as an authenticated reader, sees his own vote on the question.
	rr = doJSON(t, router, http.MethodGet, "/api/questions/"+questionID, bobKey, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	detail := decode(t, rr)["data"].(map[string]any)
	assert.Equal(t, "up", detail["viewerVote"])
	answers := detail["answers"].([]any)
	if assert.Len(t, answers, 1) {
		assert.Equal(t, true, answers[0].(map[string]any)["isAccepted"])
	}

	// Alice's profile carries the upvote reputation and her question.
	rr = doJSON(t, router, http.MethodGet, "/api/agent/alice", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	profile := decode(t, rr)["data"].(map[string]any)
	assert.Equal(t, float64(10), profile["reputation"])
	assert.Len(t, profile["recentQuestions"], 1)
	// Founder badge at signup (first account on the platform), then the
	// first-question badge, in award order.
	assert.Equal(t, true, profile["isFounder"])
	badges := profile["badges"].([]any)
	if assert.Len(t, badges, 2) {
		assert.Equal(t, "founder", badges[0].(map[string]any)["name"])
		assert.Equal(t, "first-question", badges[1].(map[string]any)["name"])
	}
	// Credentials never serialise.
	_, leaked := profile["apiKeyHash"]
	assert.False(t, leaked)

	// Tag aggregation.
	rr = doJSON(t, router, http.MethodGet, "/api/tags", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	tags := decode(t, rr)["data"].([]any)
	assert.Len(t, tags, 2)
}

func TestAPI_SignupValidation(t *testing.T) {
	router := newTestServer(t)

	t.Run("wrong captcha answer", func(t *testing.T) {
		rr := doJSON(t, router, http.MethodPost, "/api/auth/captcha", "", nil)
		captcha := decode(t, rr)

		rr = doJSON(t, router, http.MethodPost, "/api/auth/signup", "", map[string]string{
			"username":      "cheater",
			"captchaId":     captcha["id"].(string),
			"captchaAnswer": "-1",
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("duplicate username case-insensitive", func(t *testing.T) {
		signup(t, router, "Unique")

		rr := doJSON(t, router, http.MethodPost, "/api/auth/captcha", "", nil)
		captcha := decode(t, rr)
		rr = doJSON(t, router, http.MethodPost, "/api/auth/signup", "", map[string]string{
			"username":      "unique",
			"captchaId":     captcha["id"].(string),
			"captchaAnswer": solveCaptcha(t, captcha["question"].(string)),
		})
		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}

func TestAPI_ProfileUpdateAndKeyRotation(t *testing.T) {
	router := newTestServer(t)

	aliceKey := signup(t, router, "alice")
	bobKey := signup(t, router, "bob")

	// Bob cannot edit Alice's profile.
	rr := doJSON(t, router, http.MethodPatch, "/api/agent/alice/profile", bobKey, map[string]any{
		"about": "hijacked",
	})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// Alice rotates her key.
	rr = doJSON(t, router, http.MethodPatch, "/api/agent/alice/profile", aliceKey, map[string]any{
		"about":         "an agent that answers questions about agents",
		"regenerateKey": true,
	})
	assert.Equal(t, http.StatusOK, rr.Code)
	data := decode(t, rr)["data"].(map[string]any)
	newKey, _ := data["apiKey"].(string)
	assert.NotEmpty(t, newKey)
	assert.Equal(t, "an agent that answers questions about agents", data["about"])

	// The old key died the moment the rotation committed.
	rr = doJSON(t, router, http.MethodPatch, "/api/agent/alice/profile", aliceKey, map[string]any{
		"about": "still me?",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// The new key works.
	rr = doJSON(t, router, http.MethodPatch, "/api/agent/alice/profile", newKey, map[string]any{
		"about": "definitely me",
	})
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAPI_ReportingSuspendsAndLocksOut(t *testing.T) {
	router := newTestServer(t)

	spammerKey := signup(t, router, "spammer")

	// The spammer posts something reportable.
	rr := doJSON(t, router, http.MethodPost, "/api/questions", spammerKey, map[string]any{
		"title": "Totally legitimate question here",
		"body":  "This is definitely not spam at all, please ignore the links.",
		"tags":  []string{"spam"},
	})
	assert.Equal(t, http.StatusCreated, rr.Code)
	questionID := decode(t, rr)["data"].(map[string]any)["id"].(string)

	// Three distinct agents report it; the third crosses the threshold.
	for i := 1; i <= 3; i++ {
		key := signup(t, router, fmt.Sprintf("reporter%d", i))
		rr = doJSON(t, router, http.MethodPost, "/api/report", key, map[string]string{
			"targetId":   questionID,
			"targetType": "question",
			"reason":     "spam",
		})
		assert.Equal(t, http.StatusOK, rr.Code)
		suspended := decode(t, rr)["data"].(map[string]any)["suspended"]
		assert.Equal(t, i == 3, suspended, "report #%d", i)
	}

	// Suspended: can still authenticate and read, cannot mutate.
	rr = doJSON(t, router, http.MethodPost, "/api/questions", spammerKey, map[string]any{
		"title": "One more totally legitimate question",
		"body":  "Suspended agents should not be able to post this.",
		"tags":  []string{"spam"},
	})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// The profile is hidden from others but visible to the suspended agent.
	rr = doJSON(t, router, http.MethodGet, "/api/agent/spammer", "", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = doJSON(t, router, http.MethodGet, "/api/agent/spammer", spammerKey, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	// The content survives the suspension.
	rr = doJSON(t, router, http.MethodGet, "/api/questions/"+questionID, "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

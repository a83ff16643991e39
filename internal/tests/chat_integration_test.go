package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// messageResponse matches the message object in API responses
type messageResponse struct {
	ID        string  `json:"id"`
	Content   string  `json:"content"`
	Sender    string  `json:"sender"`
	UserID    string  `json:"user_id"`
	SessionID *string `json:"session_id"`
}

// sessionResponse matches the session object in API responses
type sessionResponse struct {
	ID       string            `json:"id"`
	UserID   string            `json:"user_id"`
	EndedAt  *string           `json:"ended_at"`
	Messages []messageResponse `json:"messages"`
}

func openSession(t *testing.T, ts *testServer, client *http.Client) sessionResponse {
	t.Helper()
	resp := postJSON(t, client, ts.BaseURL()+"/chat/sessions", nil)
	defer resp.Body.Close()
	body := readBody(resp)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "open session must return 201; body: %s", body)
	var session sessionResponse
	require.NoError(t, json.Unmarshal([]byte(body), &session))
	return session
}

func sendMessage(t *testing.T, ts *testServer, client *http.Client, content string, sessionID *string) (*http.Response, string) {
	t.Helper()
	req := map[string]any{"content": content}
	if sessionID != nil {
		req["session_id"] = *sessionID
	}
	resp := postJSON(t, client, ts.BaseURL()+"/chat/messages", req)
	body := readBody(resp)
	resp.Body.Close()
	return resp, body
}

func sessionMessages(t *testing.T, ts *testServer, client *http.Client, sessionID string) []messageResponse {
	t.Helper()
	resp, err := client.Get(ts.BaseURL() + "/chat/sessions/" + sessionID + "/messages")
	require.NoError(t, err)
	defer resp.Body.Close()
	body := readBody(resp)
	require.Equal(t, http.StatusOK, resp.StatusCode, "session messages must return 200; body: %s", body)
	var messages []messageResponse
	require.NoError(t, json.Unmarshal([]byte(body), &messages))
	return messages
}

func TestChatIntegration(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	ts := newTestServer(t)
	baseURL := ts.BaseURL()

	t.Run("A_SessionLifecycle", func(t *testing.T) {
		ts.Truncate(t)
		client := ts.NewClient(t)
		user := register(t, ts, client, "alice@example.com", "alice", "password123")
		login(t, ts, client, "alice@example.com", "password123")

		// No session open yet: active reports null
		respActive, err := client.Get(baseURL + "/chat/sessions/active")
		require.NoError(t, err)
		activeBody := readBody(respActive)
		respActive.Body.Close()
		require.Equal(t, http.StatusOK, respActive.StatusCode)
		var active *sessionResponse
		require.NoError(t, json.Unmarshal([]byte(activeBody), &active))
		assert.Nil(t, active, "active session must be null before open")

		session := openSession(t, ts, client)
		assert.Equal(t, user.ID, session.UserID)
		assert.Nil(t, session.EndedAt)

		// A second open while one is active conflicts
		respDup := postJSON(t, client, baseURL+"/chat/sessions", nil)
		dupBody := readBody(respDup)
		respDup.Body.Close()
		assert.Equal(t, http.StatusConflict, respDup.StatusCode, "second open must return 409; body: %s", dupBody)

		// One full exchange
		respSend, sendBody := sendMessage(t, ts, client, "hello", &session.ID)
		require.Equal(t, http.StatusOK, respSend.StatusCode, "send must return 200; body: %s", sendBody)
		var bot messageResponse
		require.NoError(t, json.Unmarshal([]byte(sendBody), &bot))
		assert.Equal(t, "bot", bot.Sender)
		assert.Equal(t, mockModelReply, bot.Content)
		require.NotNil(t, bot.SessionID)
		assert.Equal(t, session.ID, *bot.SessionID)

		messages := sessionMessages(t, ts, client, session.ID)
		require.Len(t, messages, 2)
		assert.Equal(t, "user", messages[0].Sender)
		assert.Equal(t, "hello", messages[0].Content)
		assert.Equal(t, "bot", messages[1].Sender)

		// Active now reports the open session with its messages
		respActive2, err := client.Get(baseURL + "/chat/sessions/active")
		require.NoError(t, err)
		active2Body := readBody(respActive2)
		respActive2.Body.Close()
		require.Equal(t, http.StatusOK, respActive2.StatusCode)
		var active2 sessionResponse
		require.NoError(t, json.Unmarshal([]byte(active2Body), &active2))
		assert.Equal(t, session.ID, active2.ID)
		assert.Len(t, active2.Messages, 2)

		// End, then ending again stays 200
		respEnd := postJSON(t, client, baseURL+"/chat/sessions/"+session.ID+"/end", nil)
		endBody := readBody(respEnd)
		respEnd.Body.Close()
		require.Equal(t, http.StatusOK, respEnd.StatusCode, "end must return 200; body: %s", endBody)
		var ended sessionResponse
		require.NoError(t, json.Unmarshal([]byte(endBody), &ended))
		assert.NotNil(t, ended.EndedAt)

		respEndAgain := postJSON(t, client, baseURL+"/chat/sessions/"+session.ID+"/end", nil)
		respEndAgain.Body.Close()
		assert.Equal(t, http.StatusOK, respEndAgain.StatusCode, "ending an ended session must stay 200")

		// A new session can be opened after the old one ends
		next := openSession(t, ts, client)
		assert.NotEqual(t, session.ID, next.ID)
	})

	t.Run("B_ConcurrentOpenAdmitsExactlyOne", func(t *testing.T) {
		ts.Truncate(t)
		client := ts.NewClient(t)
		register(t, ts, client, "alice@example.com", "alice", "password123")
		login(t, ts, client, "alice@example.com", "password123")

		const attempts = 8
		statuses := make([]int, attempts)
		var wg sync.WaitGroup
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				resp := postJSON(t, client, baseURL+"/chat/sessions", nil)
				resp.Body.Close()
				statuses[i] = resp.StatusCode
			}(i)
		}
		wg.Wait()

		created := 0
		for _, code := range statuses {
			switch code {
			case http.StatusCreated:
				created++
			case http.StatusConflict:
			default:
				t.Errorf("unexpected status %d", code)
			}
		}
		assert.Equal(t, 1, created, "exactly one concurrent open must win")

		var openRows int
		err := ts.DB.QueryRowContext(context.Background(),
			"SELECT COUNT(*) FROM chat_sessions WHERE ended_at IS NULL").Scan(&openRows)
		require.NoError(t, err)
		assert.Equal(t, 1, openRows, "exactly one open session row may exist")
	})

	t.Run("C_ForeignSessionHidden", func(t *testing.T) {
		ts.Truncate(t)
		alice := ts.NewClient(t)
		register(t, ts, alice, "alice@example.com", "alice", "password123")
		login(t, ts, alice, "alice@example.com", "password123")
		session := openSession(t, ts, alice)

		bob := ts.NewClient(t)
		register(t, ts, bob, "bob@example.com", "bobby", "password123")
		login(t, ts, bob, "bob@example.com", "password123")

		respSend, _ := sendMessage(t, ts, bob, "hi", &session.ID)
		assert.Equal(t, http.StatusNotFound, respSend.StatusCode, "sending into another user's session must return 404")

		respMsgs, err := bob.Get(baseURL + "/chat/sessions/" + session.ID + "/messages")
		require.NoError(t, err)
		respMsgs.Body.Close()
		assert.Equal(t, http.StatusNotFound, respMsgs.StatusCode, "reading another user's session must return 404")

		respEnd := postJSON(t, bob, baseURL+"/chat/sessions/"+session.ID+"/end", nil)
		respEnd.Body.Close()
		assert.Equal(t, http.StatusNotFound, respEnd.StatusCode, "ending another user's session must return 404")
	})

	t.Run("D_ModelFailureKeepsUserMessage", func(t *testing.T) {
		ts.Truncate(t)
		client := ts.NewClient(t)
		register(t, ts, client, "alice@example.com", "alice", "password123")
		login(t, ts, client, "alice@example.com", "password123")
		session := openSession(t, ts, client)

		ts.modelFail.Store(true)
		defer ts.modelFail.Store(false)

		respSend, sendBody := sendMessage(t, ts, client, "hello", &session.ID)
		assert.Equal(t, http.StatusBadGateway, respSend.StatusCode, "model failure must return 502; body: %s", sendBody)
		var errRes errorResponse
		require.NoError(t, json.Unmarshal([]byte(sendBody), &errRes))
		assert.NotContains(t, errRes.Error, "500", "upstream detail must not leak to the caller")

		ts.modelFail.Store(false)
		messages := sessionMessages(t, ts, client, session.ID)
		require.Len(t, messages, 1, "the user message must survive the failed exchange")
		assert.Equal(t, "user", messages[0].Sender)
		assert.Equal(t, "hello", messages[0].Content)
	})

	t.Run("E_MessageValidation", func(t *testing.T) {
		ts.Truncate(t)
		client := ts.NewClient(t)
		register(t, ts, client, "alice@example.com", "alice", "password123")
		login(t, ts, client, "alice@example.com", "password123")
		session := openSession(t, ts, client)

		respBlank, _ := sendMessage(t, ts, client, "   ", &session.ID)
		assert.Equal(t, http.StatusBadRequest, respBlank.StatusCode, "blank content must return 400")

		unknown := "b5c7b0a0-0000-0000-0000-000000000000"
		respUnknown, _ := sendMessage(t, ts, client, "hello", &unknown)
		assert.Equal(t, http.StatusNotFound, respUnknown.StatusCode, "unknown session must return 404")
	})

	t.Run("F_LegacySurface", func(t *testing.T) {
		ts.Truncate(t)
		client := ts.NewClient(t)
		user := register(t, ts, client, "alice@example.com", "alice", "password123")

		// No cookies needed: the superseded surface takes a raw user id
		plain := &http.Client{}
		respSend := postJSON(t, plain, baseURL+"/chat/send", map[string]string{
			"user_id": user.ID, "content": "hello",
		})
		sendBody := readBody(respSend)
		respSend.Body.Close()
		require.Equal(t, http.StatusOK, respSend.StatusCode, "legacy send must return 200; body: %s", sendBody)
		var bot messageResponse
		require.NoError(t, json.Unmarshal([]byte(sendBody), &bot))
		assert.Equal(t, "bot", bot.Sender)
		assert.Equal(t, mockModelReply, bot.Content)
		assert.Nil(t, bot.SessionID, "legacy messages carry no session")

		respHist, err := plain.Get(baseURL + "/chat/history/" + user.ID + "?limit=10")
		require.NoError(t, err)
		histBody := readBody(respHist)
		respHist.Body.Close()
		require.Equal(t, http.StatusOK, respHist.StatusCode, "legacy history must return 200; body: %s", histBody)
		var history []messageResponse
		require.NoError(t, json.Unmarshal([]byte(histBody), &history))
		require.Len(t, history, 2)
		assert.Equal(t, "user", history[0].Sender)
		assert.Equal(t, "bot", history[1].Sender)

		respBad := postJSON(t, plain, baseURL+"/chat/send", map[string]string{
			"user_id": "not-a-uuid", "content": "hello",
		})
		respBad.Body.Close()
		assert.Equal(t, http.StatusBadRequest, respBad.StatusCode)
	})
}

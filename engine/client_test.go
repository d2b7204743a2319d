package engine

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spellgate/engine/enginetest"
)

const snapshotBody = `{"game_id":"g1","player_hp":60,"opponent_hp":40,"hand":[{"id":"1","name":"Slash"}],"active_question":null}`

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *recordingObserver) ObserveCall(op, outcome string, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, op+":"+outcome)
}

func newClient(t *testing.T, opts ...Option) (*Client, *enginetest.Engine) {
	t.Helper()
	fake := enginetest.New(t)
	return NewClient(NewTransport(fake.URL, WithTimeout(time.Second)), opts...), fake
}

// 五个动作 + 查询，每个都用引擎契约里的路径和字段
type operation struct {
	name     string
	method   string
	path     string
	wantBody map[string]any
	invoke   func(ctx context.Context, c *Client) (Snapshot, error)
}

func operations() []operation {
	return []operation{
		{
			name:     "StartGame",
			method:   http.MethodPost,
			path:     PathStart,
			wantBody: map[string]any{"player_id": "p1", "mode": "pvp", "opponent_id": "p2"},
			invoke: func(ctx context.Context, c *Client) (Snapshot, error) {
				_, snapshot, err := c.StartGame(ctx, StartGame{PlayerID: "p1", Mode: "pvp", OpponentID: "p2"})
				return snapshot, err
			},
		},
		{
			name:     "AnswerQuestion",
			method:   http.MethodPost,
			path:     PathAnswer,
			wantBody: map[string]any{"game_id": "g1", "player_id": "p1", "question_id": "q1", "answer": "4"},
			invoke: func(ctx context.Context, c *Client) (Snapshot, error) {
				return c.AnswerQuestion(ctx, AnswerQuestion{GameID: "g1", PlayerID: "p1", QuestionID: "q1", Answer: "4"})
			},
		},
		{
			name:     "CastCard",
			method:   http.MethodPost,
			path:     PathPlay,
			wantBody: map[string]any{"game_id": "g1", "player_id": "p1", "hand_index": float64(0)},
			invoke: func(ctx context.Context, c *Client) (Snapshot, error) {
				return c.CastCard(ctx, CastCard{GameID: "g1", PlayerID: "p1", HandIndex: 0})
			},
		},
		{
			name:     "EndTurn",
			method:   http.MethodPost,
			path:     PathEndTurn,
			wantBody: map[string]any{"game_id": "g1"},
			invoke: func(ctx context.Context, c *Client) (Snapshot, error) {
				return c.EndTurn(ctx, EndTurn{GameID: "g1"})
			},
		},
		{
			name:     "EndGame",
			method:   http.MethodPost,
			path:     PathEnd,
			wantBody: map[string]any{"game_id": "g1", "player_id": "p1", "reason": "forfeit"},
			invoke: func(ctx context.Context, c *Client) (Snapshot, error) {
				return c.EndGame(ctx, EndGame{GameID: "g1", PlayerID: "p1", Reason: "forfeit"})
			},
		},
		{
			name:   "GetState",
			method: http.MethodGet,
			path:   PathState + "g1",
			invoke: func(ctx context.Context, c *Client) (Snapshot, error) {
				return c.GetState(ctx, "g1")
			},
		},
	}
}

func TestClient_SuccessReturnsBodyUnmodified(t *testing.T) {
	want, err := Normalize(http.StatusOK, []byte(snapshotBody), nil)
	require.NoError(t, err)

	for _, op := range operations() {
		t.Run(op.name, func(t *testing.T) {
			observer := &recordingObserver{}
			client, fake := newClient(t, WithObserver(observer))
			fake.Reply(op.method, op.path, http.StatusOK, snapshotBody)

			snapshot, err := op.invoke(context.Background(), client)
			require.NoError(t, err)
			assert.Equal(t, want, snapshot)

			requests := fake.Requests()
			require.Len(t, requests, 1)
			req := requests[0]
			assert.Equal(t, op.method, req.Method)
			assert.Equal(t, op.path, req.Path)
			if op.method == http.MethodPost {
				assert.Equal(t, "application/json", req.ContentType)
				assert.Equal(t, op.wantBody, req.Body)
			} else {
				assert.Empty(t, req.RawBody)
			}
			assert.Len(t, observer.outcomes, 1)
			assert.Contains(t, observer.outcomes[0], ":ok")
		})
	}
}

func TestClient_ProtocolErrorCarriesEngineMessage(t *testing.T) {
	for _, op := range operations() {
		t.Run(op.name, func(t *testing.T) {
			client, fake := newClient(t)
			fake.Reply(op.method, op.path, http.StatusUnprocessableEntity, `{"error": "X"}`)

			snapshot, err := op.invoke(context.Background(), client)
			assert.Nil(t, snapshot)
			ee, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, KindProtocol, ee.Kind)
			assert.Equal(t, "X", ee.Message)
			assert.Equal(t, http.StatusUnprocessableEntity, ee.Status)
		})
	}
}

func TestClient_UnparseableErrorBodyIsMalformed(t *testing.T) {
	for _, op := range operations() {
		t.Run(op.name, func(t *testing.T) {
			client, fake := newClient(t)
			fake.Reply(op.method, op.path, http.StatusInternalServerError, `Internal Server Error`)

			_, err := op.invoke(context.Background(), client)
			assert.True(t, IsKind(err, KindMalformed), "got %v", err)
			assert.False(t, IsKind(err, KindProtocol))
		})
	}
}

func TestClient_ConnectionFailureIsTransport(t *testing.T) {
	fake := enginetest.New(t)
	baseURL := fake.URL
	fake.Close()

	observer := &recordingObserver{}
	client := NewClient(NewTransport(baseURL, WithTimeout(time.Second)), WithObserver(observer))
	for _, op := range operations() {
		t.Run(op.name, func(t *testing.T) {
			_, err := op.invoke(context.Background(), client)
			assert.True(t, IsKind(err, KindTransport), "got %v", err)
		})
	}
	assert.Contains(t, observer.outcomes, "state:transport")
}

func TestClient_TimeoutIsTransport(t *testing.T) {
	release := make(chan struct{})
	fake := enginetest.New(t)
	fake.Handle(http.MethodPost, PathEndTurn, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	client := NewClient(NewTransport(fake.URL, WithTimeout(50*time.Millisecond)))
	start := time.Now()
	_, err := client.EndTurn(context.Background(), EndTurn{GameID: "g1"})
	assert.True(t, IsKind(err, KindTransport), "got %v", err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestClient_PartialBodyIsTransport(t *testing.T) {
	fake := enginetest.New(t)
	fake.Handle(http.MethodGet, PathState+"g1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"game_id":`))
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			_ = conn.Close()
		}
	})

	client := NewClient(NewTransport(fake.URL, WithTimeout(time.Second)))
	_, err := client.GetState(context.Background(), "g1")
	assert.True(t, IsKind(err, KindTransport), "got %v", err)
}

func TestClient_CallerCancellationDoesNotAbortDispatchedCall(t *testing.T) {
	fake := enginetest.New(t)
	fake.Handle(http.MethodPost, PathEndTurn, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(snapshotBody))
	})

	client := NewClient(NewTransport(fake.URL, WithTimeout(time.Second)))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	snapshot, err := client.EndTurn(ctx, EndTurn{GameID: "g1"})
	require.NoError(t, err)
	assert.Equal(t, "g1", snapshot["game_id"])
}

func TestClient_StartGameOmitsBlankOpponent(t *testing.T) {
	client, fake := newClient(t)
	fake.Reply(http.MethodPost, PathStart, http.StatusOK, snapshotBody)

	gameID, _, err := client.StartGame(context.Background(), StartGame{PlayerID: "p1", Mode: "pve"})
	require.NoError(t, err)
	assert.Equal(t, "g1", gameID)

	raw := string(fake.Last().RawBody)
	assert.NotContains(t, raw, "opponent_id")
	assert.NotContains(t, raw, "null")
}

func TestClient_StartGameWithoutGameIDIsMalformed(t *testing.T) {
	client, fake := newClient(t)
	fake.Reply(http.MethodPost, PathStart, http.StatusOK, `{"player_hp":60}`)

	gameID, snapshot, err := client.StartGame(context.Background(), StartGame{PlayerID: "p1", Mode: "pve"})
	assert.Empty(t, gameID)
	assert.Nil(t, snapshot)
	assert.True(t, IsKind(err, KindMalformed))
}

func TestClient_GetStateEscapesGameID(t *testing.T) {
	client, fake := newClient(t)
	fake.ReplyAll(http.StatusOK, `{"game_id":"a/b c"}`)

	_, err := client.GetState(context.Background(), "a/b c")
	require.NoError(t, err)
	assert.Equal(t, PathState+"a%2Fb%20c", fake.Last().Path)
}

func TestClient_ReadRetryOnlyForTransportFailures(t *testing.T) {
	fake := enginetest.New(t)
	var mu sync.Mutex
	calls := 0
	fake.Handle(http.MethodGet, PathState+"g1", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		first := calls == 1
		mu.Unlock()
		if first {
			conn, _, err := w.(http.Hijacker).Hijack()
			if err == nil {
				_ = conn.Close()
			}
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(snapshotBody))
	})

	client := NewClient(NewTransport(fake.URL, WithTimeout(time.Second)), WithReadRetry(true))
	snapshot, err := client.GetState(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, "g1", snapshot["game_id"])
	assert.Equal(t, 2, fake.Count(http.MethodGet, PathState+"g1"))

	// 协议错误不重试
	fake.Reply(http.MethodGet, PathState+"g2", http.StatusNotFound, `{"error":"Game not found"}`)
	_, err = client.GetState(context.Background(), "g2")
	assert.True(t, IsKind(err, KindProtocol))
	assert.Equal(t, 1, fake.Count(http.MethodGet, PathState+"g2"))
}

func TestClient_WritesAreNeverRetried(t *testing.T) {
	fake := enginetest.New(t)
	fake.Handle(http.MethodPost, PathPlay, func(w http.ResponseWriter, r *http.Request) {
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			_ = conn.Close()
		}
	})

	client := NewClient(NewTransport(fake.URL, WithTimeout(time.Second)), WithReadRetry(true))
	_, err := client.CastCard(context.Background(), CastCard{GameID: "g1", PlayerID: "p1", HandIndex: 2})
	assert.True(t, IsKind(err, KindTransport))
	assert.Equal(t, 1, fake.Count(http.MethodPost, PathPlay))
}

func TestClient_StartThenGetStateScenario(t *testing.T) {
	client, fake := newClient(t)
	body := `{"game_id":"g1","player_hp":60,"opponent_hp":50,"turn_log":[],"winner":null}`
	fake.Reply(http.MethodPost, PathStart, http.StatusOK, body)
	fake.Reply(http.MethodGet, PathState+"g1", http.StatusOK, body)

	gameID, started, err := client.StartGame(context.Background(), StartGame{PlayerID: "p1", Mode: "pve"})
	require.NoError(t, err)
	require.Equal(t, "g1", gameID)
	assert.Equal(t, map[string]any{"player_id": "p1", "mode": "pve"}, fake.Last().Body)

	state, err := client.GetState(context.Background(), gameID)
	require.NoError(t, err)
	assert.Equal(t, started, state)
}

func TestTransport_Probe(t *testing.T) {
	fake := enginetest.New(t)
	transport := NewTransport(fake.URL+"/", WithTimeout(time.Second))
	assert.Equal(t, fake.URL, transport.BaseURL())

	// 404 也说明引擎在线
	assert.NoError(t, transport.Probe(context.Background()))

	fake.Close()
	assert.Error(t, transport.Probe(context.Background()))
}

func TestFixture(t *testing.T) {
	a := Fixture("")
	b := Fixture("g9")
	assert.Equal(t, "test-123", a["game_id"])
	assert.Equal(t, "g9", b["game_id"])
	a["player_hp"] = 0
	assert.Equal(t, 20, Fixture("")["player_hp"])
}

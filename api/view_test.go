package api

import (
	nethttp "net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spellgate/engine"
)

func TestCreateGame_RedirectsToBoard(t *testing.T) {
	h := newHarness(t, Options{})
	h.engine.Reply(nethttp.MethodPost, engine.PathStart, nethttp.StatusOK, `{"game_id":"g 1","player_hp":60}`)

	w := h.do(t, nethttp.MethodPost, "/games", "", form("mode=pve&opponent_id="))
	assert.Equal(t, nethttp.StatusSeeOther, w.Code)
	assert.Equal(t, "/games/g%201", w.Header().Get("Location"))
	assert.Equal(t, map[string]any{"player_id": "p1", "mode": "pve"}, h.engine.Last().Body)
}

func TestCreateGame_FailureFlashesAndReturnsToLobby(t *testing.T) {
	h := newHarness(t, Options{})
	h.engine.Reply(nethttp.MethodPost, engine.PathStart, nethttp.StatusServiceUnavailable, `{"error":"Engine is full"}`)

	w := h.do(t, nethttp.MethodPost, "/games", "", form("mode=pvp&opponent_id=p2"))
	assert.Equal(t, nethttp.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Equal(t, "Failed to start game: Engine is full", flashOf(w))
}

func TestCreateGame_MissingGameIDIsAFailure(t *testing.T) {
	h := newHarness(t, Options{})
	h.engine.Reply(nethttp.MethodPost, engine.PathStart, nethttp.StatusOK, `{"player_hp":60}`)

	w := h.do(t, nethttp.MethodPost, "/games", "", form("mode=pve"))
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Equal(t, "Failed to start game: Game engine did not return a game id", flashOf(w))
}

func TestLobby_ShowsFlashOnce(t *testing.T) {
	h := newHarness(t, Options{})

	w := h.do(t, nethttp.MethodGet, "/", "", withCookie(flashCookie, url.QueryEscape("Game not found or finished.")))
	require.Equal(t, nethttp.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Game not found or finished.")
	assert.Contains(t, w.Body.String(), "p1")

	// 读过之后清掉
	var cleared bool
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == flashCookie && cookie.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared)
}

func TestShowGame_RendersBoard(t *testing.T) {
	h := newHarness(t, Options{})
	h.engine.Reply(nethttp.MethodGet, engine.PathState+"g1", nethttp.StatusOK, snapshotJSON)

	w := h.do(t, nethttp.MethodGet, "/games/g1", "")
	require.Equal(t, nethttp.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "HP 60 / 100")
	assert.Contains(t, body, "Slash")
	assert.Contains(t, body, "/stream")
	assert.NotContains(t, body, "no_poll")
}

func TestShowGame_NoPoll(t *testing.T) {
	h := newHarness(t, Options{})
	h.engine.Reply(nethttp.MethodGet, engine.PathState+"g1", nethttp.StatusOK, snapshotJSON)

	w := h.do(t, nethttp.MethodGet, "/games/g1?no_poll", "")
	require.Equal(t, nethttp.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "no_poll")
}

func TestShowGame_FailureFlashesAndReturnsToLobby(t *testing.T) {
	h := newHarness(t, Options{})

	w := h.do(t, nethttp.MethodGet, "/games/missing", "")
	assert.Equal(t, nethttp.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Equal(t, msgGameNotFound, flashOf(w))
}

func TestShowGame_Mock(t *testing.T) {
	t.Run("allowed", func(t *testing.T) {
		h := newHarness(t, Options{AllowMock: true})

		w := h.do(t, nethttp.MethodGet, "/games/anything?mock=true", "")
		require.Equal(t, nethttp.StatusOK, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, "What is 2 + 2?")
		assert.Contains(t, body, "Potion")
		assert.NotContains(t, body, "new WebSocket")
		assert.Empty(t, h.engine.Requests(), "fixture never contacts the engine")
	})

	t.Run("disabled", func(t *testing.T) {
		h := newHarness(t, Options{})

		w := h.do(t, nethttp.MethodGet, "/games/anything?mock=true", "")
		assert.Equal(t, nethttp.StatusSeeOther, w.Code)
		assert.Equal(t, 1, h.engine.Count(nethttp.MethodGet, engine.PathState+"anything"))
	})
}

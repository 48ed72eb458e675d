package tests

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/coachboard/core/canvas"
	"github.com/trezcool/coachboard/core/tactic"
	"github.com/trezcool/coachboard/tests"
)

type wsState struct {
	ID       string          `json:"id"`
	ReadOnly bool            `json:"read_only"`
	Saving   bool            `json:"saving"`
	Tool     canvas.Tool     `json:"tool"`
	Color    string          `json:"color"`
	Meta     canvas.Metadata `json:"meta"`
	Scene    canvas.Scene    `json:"scene"`
}

type wsMessage struct {
	Type   string         `json:"type"`
	State  *wsState       `json:"state"`
	Tactic *tactic.Tactic `json:"tactic"`
	Error  interface{}    `json:"error"`
}

func dialEditor(t *testing.T, srv *httptest.Server, token, id string) (*websocket.Conn, *http.Response, error) {
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/editor?token=" + token
	if id != "" {
		u += "&id=" + id
	}
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, resp, err
}

func send(t *testing.T, conn *websocket.Conn, msg map[string]interface{}) {
	require.NoError(t, conn.WriteJSON(msg))
}

func receive(t *testing.T, conn *websocket.Conn) wsMessage {
	var msg wsMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(10*time.Second)))
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

// receiveUntil skips messages until one of type typ arrives.
func receiveUntil(t *testing.T, conn *websocket.Conn, typ string) wsMessage {
	for {
		if msg := receive(t, conn); msg.Type == typ {
			return msg
		}
	}
}

func Test_editor_auth(t *testing.T) {
	e := setup(t)
	srv := httptest.NewServer(e.app)
	defer srv.Close()

	coach := testutil.CreateUser(t, e.usrRepo, "Coach", "coach@club.test", pwd, true)
	other := testutil.CreateUser(t, e.usrRepo, "Other", "other@club.test", pwd, true)
	private := testutil.CreateTactic(t, e.tacticRepo, coach, "Secret", false)

	_, resp, err := dialEditor(t, srv, "", "")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = dialEditor(t, srv, e.getToken(t, other), private.ID)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func Test_editor_drawAndSave(t *testing.T) {
	e := setup(t)
	srv := httptest.NewServer(e.app)
	defer srv.Close()

	coach := testutil.CreateUser(t, e.usrRepo, "Coach", "coach@club.test", pwd, true)
	conn, _, err := dialEditor(t, srv, e.getToken(t, coach), "")
	require.NoError(t, err)

	msg := receive(t, conn)
	require.Equal(t, "state", msg.Type)
	assert.Empty(t, msg.State.ID)
	assert.False(t, msg.State.ReadOnly)
	assert.Equal(t, canvas.ToolFreehand, msg.State.Tool)
	assert.Equal(t, canvas.DefaultTokens(), msg.State.Scene.Players)

	send(t, conn, map[string]interface{}{"type": "set_tool", "tool": "arrow"})
	msg = receive(t, conn)
	assert.Equal(t, canvas.ToolArrow, msg.State.Tool)

	send(t, conn, map[string]interface{}{"type": "set_tool", "tool": "laser"})
	msg = receive(t, conn)
	require.Equal(t, "error", msg.Type)
	assert.Contains(t, msg.Error, "tool")
	receive(t, conn) // state

	send(t, conn, map[string]interface{}{"type": "pointer_down", "x": 0, "y": 0})
	receive(t, conn)
	send(t, conn, map[string]interface{}{"type": "pointer_move", "x": 30, "y": 30})
	msg = receive(t, conn)
	require.NotNil(t, msg.State.Scene.Active)
	assert.Empty(t, msg.State.Scene.Lines)
	send(t, conn, map[string]interface{}{"type": "pointer_move", "x": 50, "y": 50})
	receive(t, conn)
	send(t, conn, map[string]interface{}{"type": "pointer_up"})
	msg = receive(t, conn)
	assert.Nil(t, msg.State.Scene.Active)
	require.Len(t, msg.State.Scene.Lines, 1)
	assert.Equal(t, []float64{0, 0, 50, 50}, msg.State.Scene.Lines[0].Points)

	// a blank title fails the save and keeps the drawing
	send(t, conn, map[string]interface{}{"type": "save"})
	msg = receive(t, conn)
	assert.True(t, msg.State.Saving)
	msg = receiveUntil(t, conn, "error")
	assert.Equal(t, map[string]interface{}{"title": "this field cannot be blank"}, msg.Error)
	msg = receive(t, conn)
	assert.False(t, msg.State.Saving)
	assert.Len(t, msg.State.Scene.Lines, 1)

	meta := map[string]interface{}{"title": "Switch play", "category": tactic.CategoryAttack, "description": "", "is_public": true}
	send(t, conn, map[string]interface{}{"type": "set_meta", "meta": meta})
	receive(t, conn)

	send(t, conn, map[string]interface{}{"type": "save"})
	msg = receiveUntil(t, conn, "saved")
	require.NotNil(t, msg.Tactic)
	saved := *msg.Tactic
	assert.Equal(t, "Switch play", saved.Title)
	assert.Equal(t, coach.ID, saved.OwnerID)
	msg = receive(t, conn)
	assert.Equal(t, saved.ID, msg.State.ID)

	got, err := e.tacticRepo.GetTacticByID(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Len(t, got.Canvas.Lines, 1)
	assert.True(t, got.IsPublic)

	// saving again updates the adopted record
	send(t, conn, map[string]interface{}{"type": "undo"})
	receive(t, conn)
	send(t, conn, map[string]interface{}{"type": "save"})
	msg = receiveUntil(t, conn, "saved")
	assert.Equal(t, saved.ID, msg.Tactic.ID)

	got, err = e.tacticRepo.GetTacticByID(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Canvas.Lines)
}

func Test_editor_saveLock(t *testing.T) {
	e := setup(t)
	srv := httptest.NewServer(e.app)
	defer srv.Close()

	coach := testutil.CreateUser(t, e.usrRepo, "Coach", "coach@club.test", pwd, true)
	tac := testutil.CreateTactic(t, e.tacticRepo, coach, "Low block", false)
	conn, _, err := dialEditor(t, srv, e.getToken(t, coach), tac.ID)
	require.NoError(t, err)
	receive(t, conn)

	// the upload hangs until released
	e.storage.Block = make(chan struct{})

	send(t, conn, map[string]interface{}{"type": "save"})
	msg := receive(t, conn)
	require.True(t, msg.State.Saving)

	send(t, conn, map[string]interface{}{"type": "save"})
	msg = receive(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "a save is already in progress", msg.Error)
	receive(t, conn)

	// edits go on while saving; the saved snapshot is the one taken at "save"
	send(t, conn, map[string]interface{}{"type": "pointer_down", "x": 5, "y": 5})
	receive(t, conn)
	send(t, conn, map[string]interface{}{"type": "pointer_up"})
	msg = receive(t, conn)
	assert.Len(t, msg.State.Scene.Lines, 1)

	close(e.storage.Block)
	msg = receiveUntil(t, conn, "saved")
	assert.Empty(t, msg.Tactic.Canvas.Lines)
	msg = receive(t, conn)
	assert.False(t, msg.State.Saving)
	assert.Len(t, msg.State.Scene.Lines, 1)
	assert.Equal(t, 1, e.storage.Len())
}

func Test_editor_readOnlyAndClone(t *testing.T) {
	e := setup(t)
	srv := httptest.NewServer(e.app)
	defer srv.Close()

	coach := testutil.CreateUser(t, e.usrRepo, "Coach", "coach@club.test", pwd, true)
	other := testutil.CreateUser(t, e.usrRepo, "Other", "other@club.test", pwd, true)
	public := testutil.CreateTactic(t, e.tacticRepo, coach, "High press", true, arrow(1, 1, 50, 50))

	conn, _, err := dialEditor(t, srv, e.getToken(t, other), public.ID)
	require.NoError(t, err)

	msg := receive(t, conn)
	require.True(t, msg.State.ReadOnly)
	assert.Equal(t, public.ID, msg.State.ID)
	assert.Equal(t, public.Metadata(), msg.State.Meta)
	assert.Len(t, msg.State.Scene.Lines, 1)

	for _, typ := range []string{"pointer_down", "undo", "clear", "save"} {
		send(t, conn, map[string]interface{}{"type": typ, "x": 10, "y": 10})
		msg = receive(t, conn)
		assert.Equal(t, "error", msg.Type, typ)
		assert.Equal(t, "permission denied", msg.Error, typ)
		receive(t, conn)
	}

	// color and tool selection stay available
	send(t, conn, map[string]interface{}{"type": "set_color", "color": "#3b82f6"})
	msg = receive(t, conn)
	assert.Equal(t, "#3b82f6", msg.State.Color)

	send(t, conn, map[string]interface{}{"type": "clone"})
	msg = receiveUntil(t, conn, "cloned")
	require.NotNil(t, msg.Tactic)
	clone := *msg.Tactic
	assert.NotEqual(t, public.ID, clone.ID)
	assert.Equal(t, other.ID, clone.OwnerID)
	assert.Equal(t, "High press (copy)", clone.Title)

	// the session now edits the clone
	msg = receive(t, conn)
	assert.Equal(t, clone.ID, msg.State.ID)
	assert.False(t, msg.State.ReadOnly)

	got, err := e.tacticRepo.GetTacticByID(context.Background(), public.ID)
	require.NoError(t, err)
	assert.Equal(t, public, got)
}

func Test_editor_badMessages(t *testing.T) {
	e := setup(t)
	srv := httptest.NewServer(e.app)
	defer srv.Close()

	coach := testutil.CreateUser(t, e.usrRepo, "Coach", "coach@club.test", pwd, true)
	conn, _, err := dialEditor(t, srv, e.getToken(t, coach), "")
	require.NoError(t, err)
	receive(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	msg := receive(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "malformed message", msg.Error)

	send(t, conn, map[string]interface{}{"type": "dance"})
	msg = receive(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, `unknown message type "dance"`, msg.Error)

	// cloning requires a saved tactic
	receive(t, conn)
	send(t, conn, map[string]interface{}{"type": "clone"})
	msg = receive(t, conn)
	assert.Equal(t, "error", msg.Type)
}

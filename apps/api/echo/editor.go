package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/coachboard/core"
	"github.com/trezcool/coachboard/core/canvas"
	"github.com/trezcool/coachboard/core/tactic"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
)

// Client messages
const (
	msgPointerDown  = "pointer_down"
	msgPointerMove  = "pointer_move"
	msgPointerUp    = "pointer_up"
	msgPointerLeave = "pointer_leave"
	msgSetTool      = "set_tool"
	msgSetColor     = "set_color"
	msgUndo         = "undo"
	msgClear        = "clear"
	msgSetMeta      = "set_meta"
	msgSave         = "save"
	msgClone        = "clone"
)

// Server messages
const (
	msgState  = "state"
	msgSaved  = "saved"
	msgCloned = "cloned"
	msgError  = "error"
)

var errBusy = errors.New("a save is already in progress")

type (
	clientMessage struct {
		Type  string          `json:"type"`
		X     float64         `json:"x"`
		Y     float64         `json:"y"`
		Tool  canvas.Tool     `json:"tool"`
		Color string          `json:"color"`
		Meta  canvas.Metadata `json:"meta"`
	}

	stateMessage struct {
		ID       string          `json:"id"`
		ReadOnly bool            `json:"read_only"`
		Saving   bool            `json:"saving"`
		Tool     canvas.Tool     `json:"tool"`
		Color    string          `json:"color"`
		Meta     canvas.Metadata `json:"meta"`
		Scene    canvas.Scene    `json:"scene"`
	}

	serverMessage struct {
		Type   string         `json:"type"`
		State  *stateMessage  `json:"state,omitempty"`
		Tactic *tactic.Tactic `json:"tactic,omitempty"`
		Error  interface{}    `json:"error,omitempty"`
	}
)

type editorApi struct {
	svc        *tactic.Service
	logger     core.Logger
	translator ut.Translator
	upgrader   websocket.Upgrader
}

func registerEditorAPI(
	g *echo.Group,
	auth *Auth,
	svc *tactic.Service,
	logger core.Logger,
	translator ut.Translator,
	frontendBaseURL string,
) {
	api := editorApi{
		svc:        svc,
		logger:     logger,
		translator: translator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(frontendBaseURL),
		},
	}
	g.GET("/editor", api.open, auth.QueryMiddleware())
}

// checkOrigin accepts requests without Origin, from the frontend, or from the API host itself.
func checkOrigin(frontendBaseURL string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || (frontendBaseURL != "" && strings.EqualFold(origin, frontendBaseURL)) {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}

// open loads the requested tactic then upgrades the connection to an editing session.
// Loading errors are plain HTTP errors.
func (api *editorApi) open(ctx echo.Context) error {
	viewer, err := viewerID(ctx)
	if err != nil {
		return err
	}
	view, err := api.svc.Load(ctx.Request().Context(), viewer, ctx.QueryParam("id"))
	if err != nil {
		return errors.Wrap(err, "loading tactic")
	}

	editor := canvas.NewEditor(tactic.BlankMetadata())
	if err = editor.Load(view.Canvas, view.Metadata(), view.ReadOnly); err != nil {
		return errors.Wrap(err, "loading canvas")
	}

	conn, err := api.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		return nil // the upgrader replied already
	}

	s := &session{
		api:     api,
		conn:    conn,
		editor:  editor,
		viewer:  viewer,
		id:      view.ID,
		results: make(chan result, 1),
	}
	s.run()
	return nil
}

type (
	inbound struct {
		msg clientMessage
		err error
	}

	result struct {
		op     string // msgSaved | msgCloned
		tactic tactic.Tactic
		err    error
	}
)

// session is a live editing session. Only run's goroutine touches the editor and writes to conn.
type session struct {
	api    *editorApi
	conn   *websocket.Conn
	editor *canvas.Editor
	viewer string
	id     string // adopted after the first save

	busy    bool // a save or clone is outstanding
	results chan result
}

func (s *session) run() {
	defer func() { _ = s.conn.Close() }()

	incoming := make(chan inbound)
	done := make(chan struct{})
	defer close(done)
	go s.read(incoming, done)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if err := s.sendState(); err != nil {
		return
	}
	for {
		var err error
		select {
		case in, ok := <-incoming:
			if !ok {
				return
			}
			if in.err != nil {
				err = s.sendError(in.err)
			} else {
				err = s.handle(in.msg)
			}
		case res := <-s.results:
			err = s.finish(res)
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err = s.conn.WriteMessage(websocket.PingMessage, nil)
		}
		if err != nil {
			return
		}
	}
}

// read forwards client messages to the session loop and closes incoming when the connection is gone.
func (s *session) read(incoming chan<- inbound, done <-chan struct{}) {
	defer close(incoming)

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.api.logger.Debug("editor connection lost", err)
			}
			return
		}

		var in inbound
		if err = json.Unmarshal(data, &in.msg); err != nil {
			in.err = core.NewValidationError(errors.New("malformed message"))
		}
		select {
		case incoming <- in:
		case <-done:
			return
		}
	}
}

func (s *session) handle(msg clientMessage) error {
	var err error
	switch msg.Type {
	case msgPointerDown:
		err = s.editor.PointerDown(canvas.Point{X: msg.X, Y: msg.Y})
	case msgPointerMove:
		err = s.editor.PointerMove(canvas.Point{X: msg.X, Y: msg.Y})
	case msgPointerUp:
		err = s.editor.PointerUp()
	case msgPointerLeave:
		err = s.editor.PointerLeave()
	case msgSetTool:
		err = s.editor.SetTool(msg.Tool)
		if err != nil {
			err = core.NewValidationError(err, core.FieldError{Field: "tool", Error: err.Error()})
		}
	case msgSetColor:
		err = s.editor.SetColor(msg.Color)
		if err != nil {
			err = core.NewValidationError(err, core.FieldError{Field: "color", Error: err.Error()})
		}
	case msgUndo:
		err = s.editor.Undo()
	case msgClear:
		err = s.editor.Clear()
	case msgSetMeta:
		err = s.editor.SetMetadata(msg.Meta)
	case msgSave:
		err = s.save()
	case msgClone:
		err = s.clone()
	default:
		err = core.NewValidationError(errors.Errorf("unknown message type %q", msg.Type))
	}
	if err != nil {
		return s.sendError(err)
	}
	return s.sendState()
}

// save snapshots the editor now and persists the snapshot asynchronously.
func (s *session) save() error {
	if s.editor.ReadOnly() {
		return core.ErrForbidden
	}
	if s.busy {
		return errBusy
	}
	data := tactic.NewSaveTactic(s.id, s.editor.Metadata(), s.editor.Document())

	s.busy = true
	go func() {
		t, err := s.api.svc.Save(context.Background(), s.viewer, data)
		s.results <- result{op: msgSaved, tactic: t, err: err}
	}()
	return nil
}

func (s *session) clone() error {
	if s.id == "" {
		return core.NewValidationError(errors.New("save the tactic before cloning it"))
	}
	if s.busy {
		return errBusy
	}
	id := s.id

	s.busy = true
	go func() {
		t, err := s.api.svc.Clone(context.Background(), s.viewer, id)
		s.results <- result{op: msgCloned, tactic: t, err: err}
	}()
	return nil
}

// finish reports an async operation. A clone becomes the edited tactic; the drawing is kept on failure.
func (s *session) finish(res result) error {
	s.busy = false
	if res.err != nil {
		if err := s.sendError(res.err); err != nil {
			return err
		}
		return s.sendState()
	}

	switch res.op {
	case msgSaved:
		s.id = res.tactic.ID
	case msgCloned:
		if err := s.editor.Load(res.tactic.Canvas, res.tactic.Metadata(), false); err != nil {
			return s.sendError(err)
		}
		s.id = res.tactic.ID
	}
	if err := s.send(serverMessage{Type: res.op, Tactic: &res.tactic}); err != nil {
		return err
	}
	return s.sendState()
}

func (s *session) state() *stateMessage {
	return &stateMessage{
		ID:       s.id,
		ReadOnly: s.editor.ReadOnly(),
		Saving:   s.busy,
		Tool:     s.editor.Tool(),
		Color:    s.editor.Color(),
		Meta:     s.editor.Metadata(),
		Scene:    s.editor.Scene(),
	}
}

func (s *session) sendState() error {
	return s.send(serverMessage{Type: msgState, State: s.state()})
}

func (s *session) sendError(err error) error {
	return s.send(serverMessage{Type: msgError, Error: s.errorMessage(err)})
}

// errorMessage mirrors the HTTP error handler: validation details, known errors, or a logged server error.
func (s *session) errorMessage(err error) interface{} {
	if msg, ok := validationMessages(err, s.api.translator); ok {
		return msg
	}
	if errors.Cause(err) == errBusy {
		return errBusy.Error()
	}
	if herr, ok := httpCause(err).(*echo.HTTPError); ok {
		return herr.Message
	}

	msg := http.StatusText(http.StatusInternalServerError)
	s.api.logger.Error(msg, errors.Wrap(err, "editor session"))
	return msg
}

func (s *session) send(msg serverMessage) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(msg)
}

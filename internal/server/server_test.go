package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/ghostcanvas/pkg/errors"
	"github.com/matzehuels/ghostcanvas/pkg/protocol"
	"github.com/matzehuels/ghostcanvas/pkg/session"
	"github.com/matzehuels/ghostcanvas/pkg/source"
	"github.com/matzehuels/ghostcanvas/pkg/vfs"
)

const appTSX = `import React from "react";

export default function App() {
  return (
    <main>
      <div className="row">
        <Button />
      </div>
    </main>
  );
}
`

type fixture struct {
	ts   *httptest.Server
	sess *session.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := session.NewRegistry(session.Options{
		FS:       vfs.NewMemFS(map[string]string{"/App.tsx": appTSX}),
		Protocol: protocol.Options{RequestTimeout: 2 * time.Second},
	})
	sess, err := reg.Create()
	require.NoError(t, err)
	ts := httptest.NewServer(New(reg, Options{DefaultSession: sess.ID}))
	t.Cleanup(func() {
		ts.Close()
		_ = reg.CloseAll(context.Background())
	})
	return &fixture{ts: ts, sess: sess}
}

func (f *fixture) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, f.ts.URL+path, rd)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.Header.Get("Content-Type") == "application/json" {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp, out
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestUnknownSession(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do(t, http.MethodGet, "/api/sessions/nope/scene", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "SESSION_NOT_FOUND", errorCode(body))
}

func TestSceneEditing(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPost, "/api/nodes", map[string]any{"id": "a", "component": "Card", "x": 10, "y": 10, "width": 50, "height": 20})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "a", body["id"])
	f.do(t, http.MethodPost, "/api/nodes", map[string]any{"id": "b", "component": "Card", "x": 70, "y": 10, "width": 50, "height": 20})

	resp, body = f.do(t, http.MethodPost, "/api/nodes", map[string]any{"id": "c", "parentId": "ghost"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "INVARIANT_VIOLATION", errorCode(body))

	resp, _ = f.do(t, http.MethodPut, "/api/selection", map[string]any{"ids": []string{"a", "b"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = f.do(t, http.MethodPost, "/api/group", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["grouped"])

	resp, body = f.do(t, http.MethodPatch, "/api/nodes/a", map[string]any{"props": map[string]string{"title": "Hi"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"title": "Hi"}, body["props"])

	resp, body = f.do(t, http.MethodGet, "/api/synth/a", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `<Card title="Hi" />`, body["markup"])

	resp, body = f.do(t, http.MethodGet, "/api/scene", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["roots"], 1)

	resp, _ = f.do(t, http.MethodGet, "/api/scene.dot", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = f.do(t, http.MethodPost, "/api/nodes", map[string]any{"bogus": true})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_INPUT", errorCode(body))
}

// frameClient plays a preview frame that answers drop-target queries.
func dialFrame(t *testing.T, f *fixture, target source.Location) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/frames/w1/ws?page=home"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return len(f.sess.Host.Frames()) == 1 }, time.Second, time.Millisecond)

	go func() {
		for {
			var msg protocol.Message
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Type != protocol.TypeFindDropTarget {
				continue
			}
			reply, _ := protocol.NewMessage(protocol.TypeDropTargetFound, protocol.DropTarget{IsContainer: true, Source: &target})
			reply.RequestID = msg.RequestID
			if err := conn.WriteJSON(reply); err != nil {
				return
			}
		}
	}()
	return conn
}

func TestMaterializeOverSocket(t *testing.T) {
	f := newFixture(t)
	dialFrame(t, f, source.Location{File: "/App.tsx", Line: 6, Column: 7})

	resp, _ := f.do(t, http.MethodPost, "/api/nodes", map[string]any{
		"id": "ghost", "component": "Card", "importPath": "/components/Card.tsx",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := f.do(t, http.MethodPost, "/api/materialize", map[string]any{
		"nodeId": "ghost", "frameId": "w1", "point": map[string]float64{"x": 40, "y": 60},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %v", body)
	assert.Equal(t, "/App.tsx:9:9", body["location"])
	assert.Equal(t, false, body["fallback"])

	text, err := f.sess.FS.ReadFile(context.Background(), "/App.tsx")
	require.NoError(t, err)
	assert.Contains(t, text, "import { Card } from \"./components/Card\";\n")
	assert.Contains(t, text, "        <Button />\n        <Card />\n      </div>")
	assert.Equal(t, 0, f.sess.Scene.Len())
}

func TestSelectionFromSocket(t *testing.T) {
	f := newFixture(t)
	conn := dialFrame(t, f, source.Location{})

	loc := source.Location{File: "/App.tsx", Line: 7, Column: 9}
	msg, err := protocol.NewMessage(protocol.TypeElementSelected, protocol.SelectedElement{TagName: "Button", Source: &loc, CorrelationID: "c1"})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(msg))

	require.Eventually(t, func() bool {
		sel, ok := f.sess.Selection()
		return ok && sel.PageID == "home" && sel.CorrelationID == "c1"
	}, time.Second, time.Millisecond)
}

func TestReorderBoundaryIsInformational(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do(t, http.MethodPost, "/api/reorder", map[string]any{"source": "/App.tsx:7:9", "direction": "prev"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "NO_SIBLING_IN_DIRECTION", errorCode(body))
	e := body["error"].(map[string]any)
	assert.Equal(t, true, e["informational"])

	resp, body = f.do(t, http.MethodPost, "/api/reorder", map[string]any{"source": "/App.tsx:7:9", "direction": "sideways"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_INPUT", errorCode(body))
}

func TestToggles(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do(t, http.MethodPut, "/api/toggles", map[string]bool{"inspection": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["inspection"])
	assert.Equal(t, false, body["flowMode"])
}

func TestSessionsAPI(t *testing.T) {
	f := newFixture(t)
	resp, body := f.do(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := body["id"].(string)

	resp, _ = f.do(t, http.MethodGet, "/api/sessions/"+id+"/scene", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = f.do(t, http.MethodDelete, "/api/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = f.do(t, http.MethodDelete, "/api/sessions/"+f.sess.ID, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	tests := map[errors.Code]int{
		errors.ErrCodeParseFailure:          http.StatusBadRequest,
		errors.ErrCodeNodeNotFound:          http.StatusNotFound,
		errors.ErrCodeStaleSourceLocation:   http.StatusConflict,
		errors.ErrCodeNonReorderableContext: http.StatusUnprocessableEntity,
		errors.ErrCodeInternal:              http.StatusInternalServerError,
		"":                                  http.StatusInternalServerError,
	}
	for code, want := range tests {
		if got := statusFor(code); got != want {
			t.Errorf("statusFor(%q) = %d, want %d", code, got, want)
		}
	}
}

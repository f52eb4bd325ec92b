package stream

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vango-dev/liveset/pkg/dom"
	"github.com/vango-dev/liveset/pkg/live"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, markup string) *httptest.Server {
	t.Helper()
	doc, err := dom.ParseString(markup)
	if err != nil {
		t.Fatal(err)
	}
	loop := live.NewLoop(live.WithFrameInterval(time.Millisecond), live.WithLoopLogger(quietLogger()))
	reg := live.NewRegistry(doc, live.WithLoop(loop), live.WithLogger(quietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	t.Cleanup(cancel)

	srv := New(reg, nil, WithLogger(quietLogger()), WithGatherer(prometheus.NewRegistry()))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, ``)

	var body struct {
		Status string     `json:"status"`
		Stats  live.Stats `json:"stats"`
	}
	if code := doJSON(t, http.MethodGet, ts.URL+"/healthz", nil, &body); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want ok", body.Status)
	}
}

func TestSetLifecycle(t *testing.T) {
	ts := newTestServer(t, `<div id="a" class="item"></div><div id="b"></div>`)

	var info SetInfo
	code := doJSON(t, http.MethodPost, ts.URL+"/sets", CreateRequest{Selector: ".item"}, &info)
	if code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", code)
	}
	if info.Len != 1 || info.Key != "class:item" || info.Scope != "document" {
		t.Errorf("created set = %+v", info)
	}

	var list []SetInfo
	doJSON(t, http.MethodGet, ts.URL+"/sets", nil, &list)
	if len(list) != 1 || list[0].ID != info.ID {
		t.Errorf("list = %+v, want the created set", list)
	}

	var snap Snapshot
	if code := doJSON(t, http.MethodGet, ts.URL+"/sets/"+info.ID, nil, &snap); code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", code)
	}
	if len(snap.Nodes) != 1 || snap.Nodes[0].ID != "a" || snap.Nodes[0].Tag != "div" {
		t.Errorf("snapshot = %+v", snap)
	}

	if code := doJSON(t, http.MethodDelete, ts.URL+"/sets/"+info.ID, nil, nil); code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", code)
	}

	var missing errorResponse
	if code := doJSON(t, http.MethodGet, ts.URL+"/sets/"+info.ID, nil, &missing); code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", code)
	}
	if missing.Error.Code != "L030" {
		t.Errorf("error code = %q, want L030", missing.Error.Code)
	}
}

func TestCreateSetErrors(t *testing.T) {
	ts := newTestServer(t, `<main id="main"><p class="x"></p></main>`)

	tests := []struct {
		name   string
		req    CreateRequest
		status int
		code   string
	}{
		{"missing selector", CreateRequest{}, http.StatusBadRequest, "L031"},
		{"unknown scope", CreateRequest{Selector: "p", Scope: "#nope"}, http.StatusNotFound, "L032"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp errorResponse
			if code := doJSON(t, http.MethodPost, ts.URL+"/sets", tt.req, &resp); code != tt.status {
				t.Fatalf("status = %d, want %d", code, tt.status)
			}
			if resp.Error.Code != tt.code {
				t.Errorf("code = %q, want %q", resp.Error.Code, tt.code)
			}
		})
	}

	var scoped SetInfo
	doJSON(t, http.MethodPost, ts.URL+"/sets", CreateRequest{Selector: ".x", Scope: "#main"}, &scoped)
	if scoped.Len != 1 || !strings.HasPrefix(scoped.Scope, "in(") {
		t.Errorf("scoped set = %+v", scoped)
	}

	var malformed SetInfo
	if code := doJSON(t, http.MethodPost, ts.URL+"/sets", CreateRequest{Selector: "p["}, &malformed); code != http.StatusCreated {
		t.Fatalf("malformed selector status = %d, want 201", code)
	}
	if !strings.Contains(malformed.Error, "L001") {
		t.Errorf("malformed set error = %q, want L001", malformed.Error)
	}
}

func TestMutations(t *testing.T) {
	ts := newTestServer(t, `<ul id="list"><li id="one" class="item"></li></ul>`)

	var info SetInfo
	doJSON(t, http.MethodPost, ts.URL+"/sets", CreateRequest{Selector: ".item"}, &info)

	muts := []Mutation{
		{Op: OpAppend, Target: "#list", HTML: `<li id="two" class="item"></li><li id="three"></li>`},
		{Op: OpAddClass, Target: "#three", Name: "item"},
		{Op: OpRemoveClass, Target: "#one", Name: "item"},
	}
	var result MutationResult
	if code := doJSON(t, http.MethodPost, ts.URL+"/mutations", muts, &result); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if result.Applied != 3 {
		t.Errorf("applied = %d, want 3", result.Applied)
	}

	var snap Snapshot
	doJSON(t, http.MethodGet, ts.URL+"/sets/"+info.ID, nil, &snap)
	var ids []string
	for _, n := range snap.Nodes {
		ids = append(ids, n.ID)
	}
	if strings.Join(ids, ",") != "two,three" {
		t.Errorf("members = %v, want [two three]", ids)
	}

	var resp errorResponse
	if code := doJSON(t, http.MethodPost, ts.URL+"/mutations", []Mutation{{Op: "explode", Target: "body"}}, &resp); code != http.StatusBadRequest {
		t.Errorf("unknown op status = %d, want 400", code)
	}
	if resp.Error.Code != "L031" {
		t.Errorf("unknown op code = %q, want L031", resp.Error.Code)
	}

	resp = errorResponse{}
	if code := doJSON(t, http.MethodPost, ts.URL+"/mutations", []Mutation{{Op: OpRemove, Target: "9/9/9"}}, &resp); code != http.StatusNotFound {
		t.Errorf("missing node status = %d, want 404", code)
	}
	if resp.Error.Code != "L032" {
		t.Errorf("missing node code = %q, want L032", resp.Error.Code)
	}
}

func TestStream(t *testing.T) {
	ts := newTestServer(t, `<ul id="list"><li id="one" class="item"></li></ul>`)

	var info SetInfo
	doJSON(t, http.MethodPost, ts.URL+"/sets", CreateRequest{Selector: ".item"}, &info)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/sets/" + info.ID + "/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var snap Snapshot
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("first ReadJSON() error = %v", err)
	}
	if snap.Set != info.ID || len(snap.Nodes) != 1 {
		t.Fatalf("first snapshot = %+v", snap)
	}

	doJSON(t, http.MethodPost, ts.URL+"/mutations", []Mutation{
		{Op: OpAppend, Target: "#list", HTML: `<li id="two" class="item"></li>`},
	}, nil)

	for len(snap.Nodes) != 2 {
		if err := conn.ReadJSON(&snap); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
	}
	if snap.Nodes[1].ID != "two" {
		t.Errorf("second member = %+v, want two", snap.Nodes[1])
	}

	doJSON(t, http.MethodDelete, ts.URL+"/sets/"+info.ID, nil, nil)
	for {
		var ignored Snapshot
		err := conn.ReadJSON(&ignored)
		if err == nil {
			continue
		}
		if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
			t.Errorf("close error = %v, want normal closure", err)
		}
		break
	}
}

func TestStreamUnknownSet(t *testing.T) {
	ts := newTestServer(t, ``)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/sets/nope/stream"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("Dial() to an unknown set succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("response = %v, want 404", resp)
	}
}

func TestMetrics(t *testing.T) {
	ts := newTestServer(t, ``)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestCreateSetAbandonedRequestLeavesNoSet(t *testing.T) {
	doc, err := dom.ParseString(`<p class="x"></p>`)
	if err != nil {
		t.Fatal(err)
	}
	loop := live.NewLoop(live.WithLoopLogger(quietLogger()))
	reg := live.NewRegistry(doc, live.WithLoop(loop), live.WithLogger(quietLogger()))
	defer reg.Close()
	srv := New(reg, nil, WithLogger(quietLogger()), WithGatherer(prometheus.NewRegistry()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/sets", strings.NewReader(`{"selector":".x"}`)).WithContext(ctx)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	loop.Drain()
	if n := len(reg.Sets()); n != 0 {
		t.Errorf("registry holds %d sets after an abandoned create, want 0", n)
	}
}

package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/stagenotify/pkg/event"
)

// recorded はテストサーバーが受け取ったリクエスト情報。
type recorded struct {
	Method string
	Path   string
	Body   []byte
	Header http.Header
}

// recorder は最後に受け取ったリクエストを保持する。
type recorder struct {
	mu   sync.Mutex
	last recorded
}

func (r *recorder) get() recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// newTestServer はリクエストを記録し、statusとbodyを返すテストサーバーを生成する。
func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.last = recorded{Method: r.Method, Path: r.URL.Path, Body: b, Header: r.Header.Clone()}
		rec.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

// TestNew はクライアントの生成を検証する。
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("末尾のスラッシュを除くこと", func(t *testing.T) {
		t.Parallel()
		c := New("http://localhost:8086/")
		if c.baseURL != "http://localhost:8086" {
			t.Errorf("baseURL = %q", c.baseURL)
		}
		if c.httpClient.Timeout != defaultTimeout {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, defaultTimeout)
		}
	})

	t.Run("オプションを適用すること", func(t *testing.T) {
		t.Parallel()
		c := New("http://x", WithToken("tok"), WithTimeout(time.Second))
		if c.token != "tok" {
			t.Errorf("token = %q", c.token)
		}
		if c.httpClient.Timeout != time.Second {
			t.Errorf("Timeout = %v", c.httpClient.Timeout)
		}
	})
}

// TestEmitEvent はイベント送信を検証する。
func TestEmitEvent(t *testing.T) {
	t.Parallel()

	t.Run("イベントをPOSTして結果を返すこと", func(t *testing.T) {
		t.Parallel()
		srv, r := newTestServer(t, http.StatusOK, `{"delivered":2,"deduped":1,"recipients":["a","b","c"]}`)
		c := New(srv.URL, WithToken("tok"))

		res, err := c.EmitEvent(context.Background(), event.New(event.KindShowApproved, nil, event.WithShow("show-1")))
		if err != nil {
			t.Fatalf("送信に失敗: %v", err)
		}
		if res.Delivered != 2 || res.Deduped != 1 || len(res.Recipients) != 3 {
			t.Errorf("結果 = %+v", res)
		}
		rec := r.get()
		if rec.Method != http.MethodPost || rec.Path != eventsPath {
			t.Errorf("リクエスト = %s %s", rec.Method, rec.Path)
		}
		if got := rec.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		var sent event.DomainEvent
		if err := json.Unmarshal(rec.Body, &sent); err != nil {
			t.Fatalf("ボディの解析に失敗: %v", err)
		}
		if sent.Kind != event.KindShowApproved || sent.ShowID != "show-1" {
			t.Errorf("送信したイベント = %+v", sent)
		}
	})

	t.Run("エラーステータスはHTTPErrorになること", func(t *testing.T) {
		t.Parallel()
		srv, _ := newTestServer(t, http.StatusBadRequest, `{"error":"bad"}`)
		c := New(srv.URL)

		_, err := c.EmitEvent(context.Background(), event.New(event.KindShowApproved, nil))
		var httpErr *HTTPError
		if !errors.As(err, &httpErr) {
			t.Fatalf("err = %v, want *HTTPError", err)
		}
		if httpErr.StatusCode != http.StatusBadRequest || httpErr.Body != `{"error":"bad"}` {
			t.Errorf("HTTPError = %+v", httpErr)
		}
	})

	t.Run("不正なJSONレスポンスでエラーになること", func(t *testing.T) {
		t.Parallel()
		srv, _ := newTestServer(t, http.StatusOK, `not json`)
		if _, err := New(srv.URL).EmitEvent(context.Background(), event.New(event.KindShowApproved, nil)); err == nil {
			t.Error("エラーが返らなかった")
		}
	})

	t.Run("接続できない場合にエラーになること", func(t *testing.T) {
		t.Parallel()
		c := New("http://127.0.0.1:1", WithTimeout(time.Second))
		if _, err := c.EmitEvent(context.Background(), event.New(event.KindShowApproved, nil)); err == nil {
			t.Error("エラーが返らなかった")
		}
	})
}

// TestNotifications は通知一覧と既読APIの呼び出しを検証する。
func TestNotifications(t *testing.T) {
	t.Parallel()

	t.Run("未読一覧を取得すること", func(t *testing.T) {
		t.Parallel()
		srv, r := newTestServer(t, http.StatusOK,
			`[{"id":"n1","kind":"show_reminder","is_read":false,"created_at":"2026-01-01T00:00:00Z"}]`)

		list, err := New(srv.URL).ListNotifications(context.Background(), true)
		if err != nil {
			t.Fatalf("取得に失敗: %v", err)
		}
		if rec := r.get(); rec.Path != notificationsPath+"/unread" {
			t.Errorf("Path = %q", rec.Path)
		}
		if len(list) != 1 || list[0].ID != "n1" || list[0].Kind != "show_reminder" {
			t.Errorf("一覧 = %+v", list)
		}
	})

	t.Run("既読APIはPUTで呼び出すこと", func(t *testing.T) {
		t.Parallel()
		srv, r := newTestServer(t, http.StatusOK, `{"message":"ok"}`)

		if err := New(srv.URL).MarkAsRead(context.Background(), "n 1"); err != nil {
			t.Fatalf("既読処理に失敗: %v", err)
		}
		if rec := r.get(); rec.Method != http.MethodPut || rec.Path != notificationsPath+"/n 1/read" {
			t.Errorf("リクエスト = %s %s", rec.Method, rec.Path)
		}

		if err := New(srv.URL).MarkAllAsRead(context.Background()); err != nil {
			t.Fatalf("全既読処理に失敗: %v", err)
		}
		if rec := r.get(); rec.Path != notificationsPath+"/read-all" {
			t.Errorf("Path = %q", rec.Path)
		}
	})
}

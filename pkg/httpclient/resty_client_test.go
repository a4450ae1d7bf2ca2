package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeTokens struct {
	mu          sync.Mutex
	token       string
	err         error
	invalidated int
}

func (f *fakeTokens) Token(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token, f.err
}

func (f *fakeTokens) Invalidate(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
	return nil
}

func TestRestyClientGetEncodesQueryAndToken(t *testing.T) {
	var (
		gotMethod string
		gotPath   string
		gotQuery  url.Values
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		_, _ = io.WriteString(w, `{"errcode":0,"errmsg":"ok","external_userid":["wm1","wm2"]}`)
	}))
	defer srv.Close()

	client := NewRestyClient(Options{BaseURL: srv.URL, Timeout: 2 * time.Second, Tokens: &fakeTokens{token: "tok-1"}})
	res, err := client.Get(context.Background(), "externalcontact/list", Params{
		"userid": "zhangsan",
		"tag_id": []string{"t1", "t2"},
	})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if gotMethod != http.MethodGet || gotPath != "/externalcontact/list" {
		t.Fatalf("unexpected request %s %s", gotMethod, gotPath)
	}
	if got := gotQuery.Get("access_token"); got != "tok-1" {
		t.Fatalf("access_token = %q", got)
	}
	if got := gotQuery.Get("userid"); got != "zhangsan" {
		t.Fatalf("userid = %q", got)
	}
	if got := gotQuery["tag_id"]; len(got) != 2 || got[0] != "t1" || got[1] != "t2" {
		t.Fatalf("tag_id should repeat per value, got %v", got)
	}
	if res.ErrCode() != 0 || res.ErrMsg() != "ok" {
		t.Fatalf("unexpected result %#v", res)
	}
	ids := res.Strings("external_userid")
	if len(ids) != 2 || ids[0] != "wm1" || ids[1] != "wm2" {
		t.Fatalf("unexpected ids %#v", ids)
	}
}

func TestRestyClientPostJSONSendsBody(t *testing.T) {
	var (
		gotMethod   string
		contentType string
		received    map[string]any
		decodeErr   error
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		contentType = r.Header.Get("Content-Type")
		decodeErr = json.NewDecoder(r.Body).Decode(&received)
		_, _ = io.WriteString(w, `{"errcode":0,"errmsg":"ok","create_time":1572505490}`)
	}))
	defer srv.Close()

	client := NewRestyClient(Options{BaseURL: srv.URL + "/", Tokens: &fakeTokens{token: "tok"}})
	res, err := client.PostJSON(context.Background(), "/externalcontact/groupchat/get", Params{"chat_id": "wr1"})
	if err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Fatalf("expected POST, got %s", gotMethod)
	}
	if contentType != "application/json" {
		t.Fatalf("Content-Type = %q", contentType)
	}
	if decodeErr != nil {
		t.Fatalf("decode body: %v", decodeErr)
	}
	if received["chat_id"] != "wr1" {
		t.Fatalf("unexpected body %#v", received)
	}
	n, ok := res["create_time"].(json.Number)
	if !ok || n.String() != "1572505490" {
		t.Fatalf("create_time should decode as json.Number, got %#v", res["create_time"])
	}
}

func TestRestyClientReturnsStatusErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewRestyClient(Options{BaseURL: srv.URL})
	_, err := client.Get(context.Background(), "externalcontact/get_follow_user_list", nil)
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusBadGateway || statusErr.Body != "nope" {
		t.Fatalf("unexpected status error %+v", statusErr)
	}
}

func TestRestyClientPassesBusinessErrorsThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"errcode":41051,"errmsg":"externaluser has started chatting"}`)
	}))
	defer srv.Close()

	tokens := &fakeTokens{token: "tok"}
	client := NewRestyClient(Options{BaseURL: srv.URL, Tokens: tokens})
	res, err := client.PostJSON(context.Background(), "externalcontact/send_welcome_msg", Params{"welcome_code": "CODE"})
	if err != nil {
		t.Fatalf("business errors must not surface as Go errors: %v", err)
	}
	var apiErr *APIError
	if !errors.As(res.Err(), &apiErr) || apiErr.Code != 41051 {
		t.Fatalf("expected APIError 41051, got %v", res.Err())
	}
	if tokens.invalidated != 0 {
		t.Fatalf("token must not be invalidated on unrelated errcode")
	}
}

func TestRestyClientInvalidatesRejectedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"errcode":42001,"errmsg":"access_token expired"}`)
	}))
	defer srv.Close()

	tokens := &fakeTokens{token: "stale"}
	client := NewRestyClient(Options{BaseURL: srv.URL, Tokens: tokens})
	res, err := client.Get(context.Background(), "externalcontact/get_follow_user_list", nil)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if res.ErrCode() != 42001 {
		t.Fatalf("result must be returned unmodified, got %#v", res)
	}
	if tokens.invalidated != 1 {
		t.Fatalf("expected one invalidation, got %d", tokens.invalidated)
	}
}

func TestRestyClientTokenFailureSkipsRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	client := NewRestyClient(Options{BaseURL: srv.URL, Tokens: &fakeTokens{err: errors.New("no secret")}})
	if _, err := client.Get(context.Background(), "externalcontact/list", nil); err == nil {
		t.Fatalf("expected token error")
	}
	if hits.Load() != 0 {
		t.Fatalf("request should not be sent without a token")
	}
}

func TestQueryValues(t *testing.T) {
	cases := []struct {
		in   any
		want []string
	}{
		{in: "a", want: []string{"a"}},
		{in: 5, want: []string{"5"}},
		{in: []string{"x", "y"}, want: []string{"x", "y"}},
		{in: nil, want: []string{""}},
	}
	for _, tc := range cases {
		got := queryValues(tc.in)
		if len(got) != len(tc.want) {
			t.Fatalf("queryValues(%#v) = %#v", tc.in, got)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("queryValues(%#v) = %#v", tc.in, got)
			}
		}
	}
}

package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/piccscy/wechat/internal/config"
)

type fakeWorkAPI struct {
	tokenCalls atomic.Int32

	mu     sync.Mutex
	events []map[string]any
}

func (f *fakeWorkAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, body string) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}
	requireToken := func(w http.ResponseWriter, r *http.Request) bool {
		if r.URL.Query().Get("access_token") != "tok-1" {
			writeJSON(w, `{"errcode":40014,"errmsg":"invalid access_token"}`)
			return false
		}
		return true
	}

	mux.HandleFunc("/cgi-bin/gettoken", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		writeJSON(w, `{"errcode":0,"errmsg":"ok","access_token":"tok-1","expires_in":7200}`)
	})
	mux.HandleFunc("/cgi-bin/externalcontact/get_follow_user_list", func(w http.ResponseWriter, r *http.Request) {
		if requireToken(w, r) {
			writeJSON(w, `{"errcode":0,"errmsg":"ok","follow_user":["zhangsan"]}`)
		}
	})
	mux.HandleFunc("/cgi-bin/externalcontact/list", func(w http.ResponseWriter, r *http.Request) {
		if !requireToken(w, r) {
			return
		}
		if r.URL.Query().Get("userid") != "zhangsan" {
			writeJSON(w, `{"errcode":60111,"errmsg":"userid not found"}`)
			return
		}
		writeJSON(w, `{"errcode":0,"errmsg":"ok","external_userid":["wmA"]}`)
	})
	mux.HandleFunc("/cgi-bin/externalcontact/get", func(w http.ResponseWriter, r *http.Request) {
		if requireToken(w, r) {
			writeJSON(w, `{"errcode":0,"errmsg":"ok","external_contact":{"external_userid":"wmA","name":"Li"},"follow_user":[{"userid":"zhangsan"}]}`)
		}
	})
	mux.HandleFunc("/sink", func(w http.ResponseWriter, r *http.Request) {
		var evt map[string]any
		if err := json.NewDecoder(r.Body).Decode(&evt); err != nil {
			t.Errorf("decode sink body: %v", err)
		}
		f.mu.Lock()
		f.events = append(f.events, evt)
		f.mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	})
	return mux
}

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	pubFile := filepath.Join(dir, "publishers.yaml")
	content := "publishers:\n  - id: sink\n    type: http\n    http:\n      url: " + baseURL + "/sink\n"
	if err := os.WriteFile(pubFile, []byte(content), 0o600); err != nil {
		t.Fatalf("write publishers file: %v", err)
	}
	return &config.Config{
		AppName:                "wework-crm",
		CorpID:                 "ww123",
		CorpSecret:             "s3cret",
		APIBaseURL:             baseURL + "/cgi-bin/",
		HTTPTimeout:            5 * time.Second,
		TokenRefreshMargin:     time.Minute,
		PublishersFile:         pubFile,
		SyncInterval:           time.Hour,
		StorageType:            "bbolt",
		BBoltPath:              filepath.Join(dir, "cache.db"),
		ContactTTL:             time.Hour,
		StorageCleanupInterval: time.Hour,
	}
}

func TestSyncerRunOncePublishesAndDedupes(t *testing.T) {
	api := &fakeWorkAPI{}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	syncer, err := NewSyncer(context.Background(), testConfig(t, srv.URL), nil)
	if err != nil {
		t.Fatalf("NewSyncer: %v", err)
	}
	defer syncer.Close()

	for i := 0; i < 2; i++ {
		if err := syncer.RunOnce(context.Background()); err != nil {
			t.Fatalf("RunOnce #%d: %v", i+1, err)
		}
	}

	api.mu.Lock()
	defer api.mu.Unlock()
	if len(api.events) != 1 {
		t.Fatalf("expected 1 delivered event across two passes, got %d", len(api.events))
	}
	evt := api.events[0]
	if evt["follow_userid"] != "zhangsan" || evt["external_userid"] != "wmA" {
		t.Fatalf("unexpected event %v", evt)
	}
	if got := api.tokenCalls.Load(); got != 1 {
		t.Fatalf("expected a single token fetch, got %d", got)
	}
}

func TestNewSyncerRequiresPublishersFile(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:0")
	cfg.PublishersFile = filepath.Join(t.TempDir(), "missing.yaml")

	if _, err := NewSyncer(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for missing publishers file")
	}
}

func TestSyncerRunStopsOnCancel(t *testing.T) {
	api := &fakeWorkAPI{}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	syncer, err := NewSyncer(context.Background(), testConfig(t, srv.URL), nil)
	if err != nil {
		t.Fatalf("NewSyncer: %v", err)
	}
	defer syncer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- syncer.Run(ctx) }()

	deadline := time.After(5 * time.Second)
	for {
		api.mu.Lock()
		n := len(api.events)
		api.mu.Unlock()
		if n > 0 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("initial pass never delivered an event")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not exit after cancel")
	}
}

package dandan

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/danmuget/danmuget/pkg/cache"
	"github.com/danmuget/danmuget/pkg/httputil"
)

func TestSearchEpisodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/search/episodes" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("anime"); got != "某动漫" {
			t.Errorf("anime = %q", got)
		}
		w.Write([]byte(`{"animes":[{"animeTitle":"某动漫","episodes":[{"episodeId":100,"episodeTitle":"【B站】第1话"}]}]}`))
	}))
	defer srv.Close()

	animes, err := NewClient(srv.URL).SearchEpisodes(context.Background(), "某动漫")
	if err != nil {
		t.Fatalf("SearchEpisodes() error = %v", err)
	}
	if len(animes) != 1 || animes[0].Title != "某动漫" || animes[0].Episodes[0].ID != 100 {
		t.Errorf("unexpected result: %+v", animes)
	}
}

func TestSearchEpisodesCached(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(`{"animes":[{"animeTitle":"某动漫","episodes":[{"episodeId":100,"episodeTitle":"第1话"}]}]}`))
	}))
	defer srv.Close()

	store, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache() error = %v", err)
	}
	client := NewClient(srv.URL).WithCache(store)

	for i := 0; i < 2; i++ {
		animes, err := client.SearchEpisodes(context.Background(), "某动漫")
		if err != nil {
			t.Fatalf("SearchEpisodes() error = %v", err)
		}
		if len(animes) != 1 || animes[0].Episodes[0].ID != 100 {
			t.Fatalf("unexpected result: %+v", animes)
		}
	}
	if hits != 1 {
		t.Errorf("server hit %d times, want 1 (second lookup should come from cache)", hits)
	}
}

func TestComments(t *testing.T) {
	feed := `<i><d p="1.0,1,25,255">hi</d></i>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/comment/42" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("format"); got != "xml" {
			t.Errorf("format = %q", got)
		}
		w.Write([]byte(feed))
	}))
	defer srv.Close()

	data, err := NewClient(srv.URL).Comments(context.Background(), 42)
	if err != nil {
		t.Fatalf("Comments() error = %v", err)
	}
	if string(data) != feed {
		t.Errorf("Comments() = %q, want %q", data, feed)
	}
}

func TestCommentsErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Comments(context.Background(), 42)
	if err == nil {
		t.Fatal("Comments() succeeded against a failing server")
	}
	var retryable *httputil.RetryableError
	if !errors.As(err, &retryable) {
		t.Errorf("error %v is not retryable", err)
	}
	if !errors.Is(err, ErrStatus) {
		t.Errorf("error %v does not wrap ErrStatus", err)
	}
}

func TestEpisodePlatform(t *testing.T) {
	tests := []struct {
		title    string
		platform string
		clean    string
	}{
		{"【B站】第1话 开始", "【B站】", "第1话 开始"},
		{"[官方] 第2话", "[官方]", "第2话"},
		{"无标签标题", DefaultPlatform, "无标签标题"},
	}
	for _, tt := range tests {
		ep := Episode{Title: tt.title}
		if got := ep.Platform(); got != tt.platform {
			t.Errorf("Platform(%q) = %q, want %q", tt.title, got, tt.platform)
		}
		if got := ep.CleanTitle(); got != tt.clean {
			t.Errorf("CleanTitle(%q) = %q, want %q", tt.title, got, tt.clean)
		}
	}
}

func TestAnimeGrouping(t *testing.T) {
	a := Anime{
		Title: "某电影",
		Episodes: []Episode{
			{ID: 1, Title: "【电影】【B站】正片"},
			{ID: 2, Title: "【A站】正片"},
			{ID: 3, Title: "【B站】花絮"},
		},
	}
	// TypeTag comes from the first episode title. The platform regex is
	// non-greedy, so the first bracket pair wins.
	if !a.IsMovie() {
		t.Error("IsMovie() = false, want true")
	}
	if got := a.PlatformTags(); !reflect.DeepEqual(got, []string{"【电影】", "【A站】", "【B站】"}) {
		t.Errorf("PlatformTags() = %v", got)
	}
	eps := a.EpisodesFor("【B站】")
	if len(eps) != 1 || eps[0].ID != 3 {
		t.Errorf("EpisodesFor() = %+v", eps)
	}
}

package signals

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serve(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	for path, body := range pages {
		body := body
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(body))
		})
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestBans_ExtractsReasons(t *testing.T) {
	srv := serve(t, map[string]string{
		"/account/bans": `<html><body>
			<div class="ban_status">
				<span class="ban_reason">VAC ban on record</span>
				<span class="ban_reason">Trade banned</span>
			</div>
		</body></html>`,
	})

	f := NewFetcher(srv.Client(), srv.URL)
	bans, err := f.Bans(context.Background())
	if err != nil {
		t.Fatalf("Bans() = %v, want nil", err)
	}
	if len(bans) != 2 || bans[0] != "VAC ban on record" || bans[1] != "Trade banned" {
		t.Errorf("bans = %v", bans)
	}
}

func TestBans_CleanAccountIsEmpty(t *testing.T) {
	srv := serve(t, map[string]string{
		"/account/bans": `<html><body><div class="ban_status"></div></body></html>`,
	})

	f := NewFetcher(srv.Client(), srv.URL)
	bans, err := f.Bans(context.Background())
	if err != nil {
		t.Fatalf("Bans() = %v, want nil", err)
	}
	if len(bans) != 0 {
		t.Errorf("bans = %v, want empty", bans)
	}
}

func TestLevel_ParsesNumber(t *testing.T) {
	srv := serve(t, map[string]string{
		"/profile": `<html><body>
			<div class="profile_level"><span class="level_number"> 42 </span></div>
		</body></html>`,
	})

	f := NewFetcher(srv.Client(), srv.URL)
	level, err := f.Level(context.Background())
	if err != nil {
		t.Fatalf("Level() = %v, want nil", err)
	}
	if level != 42 {
		t.Errorf("level = %d, want 42", level)
	}
}

func TestLevel_MissingMarkup(t *testing.T) {
	srv := serve(t, map[string]string{
		"/profile": `<html><body><p>maintenance</p></body></html>`,
	})

	f := NewFetcher(srv.Client(), srv.URL)
	if _, err := f.Level(context.Background()); !errors.Is(err, ErrMarkupNotFound) {
		t.Errorf("Level() = %v, want ErrMarkupNotFound", err)
	}
}

func TestLevel_NonNumericMarkup(t *testing.T) {
	srv := serve(t, map[string]string{
		"/profile": `<html><body>
			<div class="profile_level"><span class="level_number">n/a</span></div>
		</body></html>`,
	})

	f := NewFetcher(srv.Client(), srv.URL)
	if _, err := f.Level(context.Background()); !errors.Is(err, ErrMarkupNotFound) {
		t.Errorf("Level() = %v, want ErrMarkupNotFound", err)
	}
}

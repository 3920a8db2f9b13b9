package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/pbaille/calsync/internal/domain"
)

const landingPage = `<html><body>
<nav><a href="/noticias">Notícias</a></nav>
<ul>
  <li><a href="/docs/horarios.pdf">Horário das aulas</a></li>
  <li><a href="/docs/cal.pdf"><span>  CALENDÁRIO </span><b>Acadêmico</b> 2025</a></li>
  <li><a href="/docs/cal-old.pdf">Calendário acadêmico 2024</a></li>
</ul>
</body></html>`

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Calendário Acadêmico", "calendario academico"},
		{"  CALENDÁRIO ACADÊMICO 2025 ", "calendario academico 2025"},
		{"Ação São João", "acao sao joao"},
		{"plain", "plain"},
		{"", ""},
	}

	for _, tt := range tests {
		got := Normalize(tt.in)
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if again := Normalize(got); again != got {
			t.Errorf("Normalize not idempotent for %q: %q then %q", tt.in, got, again)
		}
	}
}

func TestFindLink(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"first match wins", landingPage, "/docs/cal.pdf"},
		{"no match", `<a href="/x">Horários</a><p>calendario academico</p>`, ""},
		{"anchor without href skipped", `<a>Calendário Acadêmico</a><a href="/b.pdf">calendario academico</a>`, "/b.pdf"},
		{"case and accents", `<a href="a.pdf">CaLeNdÁrIo AcAdÊmIcO</a>`, "a.pdf"},
		{"empty document", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindLink(tt.html, LinkPhrase)
			if err != nil {
				t.Fatalf("FindLink() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("FindLink() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFindCalendarLinkResolvesAbsolute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing User-Agent header")
		}
		w.Write([]byte(landingPage))
	}))
	defer srv.Close()

	f := New(srv.Client(), nil)
	got, err := f.FindCalendarLink(context.Background(), srv.URL+"/")
	if err != nil {
		t.Fatalf("FindCalendarLink() error = %v", err)
	}
	if want := srv.URL + "/docs/cal.pdf"; got != want {
		t.Errorf("FindCalendarLink() = %q, want %q", got, want)
	}
}

func TestFindCalendarLinkNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<a href="/x">Contato</a>`))
	}))
	defer srv.Close()

	got, err := New(srv.Client(), nil).FindCalendarLink(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FindCalendarLink() error = %v", err)
	}
	if got != "" {
		t.Errorf("FindCalendarLink() = %q, want empty", got)
	}
}

func TestFindCalendarLinkHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(srv.Client(), nil).FindCalendarLink(context.Background(), srv.URL)
	if !errors.Is(err, domain.ErrNetwork) {
		t.Errorf("FindCalendarLink() error = %v, want ErrNetwork", err)
	}
}

func TestFindCalendarLinkBadScheme(t *testing.T) {
	_, err := New(nil, nil).FindCalendarLink(context.Background(), "ftp://example.com/")
	if !errors.Is(err, domain.ErrConfig) {
		t.Errorf("FindCalendarLink() error = %v, want ErrConfig", err)
	}
}

func TestDownload(t *testing.T) {
	pdf := []byte("%PDF-1.4 fake calendar")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/docs/cal.pdf" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(pdf)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "cal.pdf")
	f := New(srv.Client(), nil)
	if err := f.Download(context.Background(), srv.URL+"/docs/cal.pdf", dest); err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if string(got) != string(pdf) {
		t.Errorf("downloaded %q, want %q", got, pdf)
	}
}

func TestDownloadHTTPErrorWritesNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "cal.pdf")
	err := New(srv.Client(), nil).Download(context.Background(), srv.URL+"/missing.pdf", dest)
	if !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("Download() error = %v, want ErrNetwork", err)
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Errorf("dest exists after failed download")
	}
}

func TestFindCalendarLinkNonHTTPAnchor(t *testing.T) {
	for _, href := range []string{"mailto:secretaria@fatec.sp.gov.br", "javascript:void(0)"} {
		t.Run(href, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<a href="` + href + `">Calendário Acadêmico</a>`))
			}))
			defer srv.Close()

			_, err := New(srv.Client(), nil).FindCalendarLink(context.Background(), srv.URL)
			if !errors.Is(err, domain.ErrNotFound) {
				t.Errorf("FindCalendarLink() error = %v, want ErrNotFound", err)
			}
			if errors.Is(err, domain.ErrConfig) {
				t.Errorf("FindCalendarLink() error = %v reported as config error", err)
			}
		})
	}
}

func TestDownloadNonHTTPLink(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "cal.pdf")
	err := New(nil, nil).Download(context.Background(), "mailto:secretaria@fatec.sp.gov.br", dest)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Download() error = %v, want ErrNotFound", err)
	}
}

func TestDownloadWriteFailureLeavesNoFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	// dest is a directory, so the final rename cannot replace it
	dest := filepath.Join(dir, "cal.pdf")
	if err := os.Mkdir(dest, 0o755); err != nil {
		t.Fatal(err)
	}

	if err := New(srv.Client(), nil).Download(context.Background(), srv.URL+"/cal.pdf", dest); err == nil {
		t.Fatal("Download() over a directory returned nil error")
	}
	if _, err := os.Stat(dest + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind: %v", err)
	}
	if info, err := os.Stat(dest); err != nil || !info.IsDir() {
		t.Errorf("dest was replaced: %v", err)
	}
}

func TestDownloadLeavesNoTempFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "cal.pdf")
	if err := New(srv.Client(), nil).Download(context.Background(), srv.URL+"/cal.pdf", dest); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if _, err := os.Stat(dest + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind: %v", err)
	}
}

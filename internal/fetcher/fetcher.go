package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"unicode"

	"github.com/pbaille/calsync/internal/domain"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LinkPhrase is matched against the normalized text of every anchor
const LinkPhrase = "calendario academico"

const userAgent = "calsync/1.0 (academic-calendar-sync)"

// Fetcher locates and downloads the calendar document
type Fetcher struct {
	client *http.Client
	log    *logrus.Entry
}

// New creates a Fetcher. A nil client means http.DefaultClient.
func New(client *http.Client, log *logrus.Entry) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Fetcher{client: client, log: log.WithField("component", "fetcher")}
}

// FindCalendarLink fetches pageURL and returns the absolute URL of the first
// anchor whose text contains LinkPhrase. It returns "" when no anchor matches.
func (f *Fetcher) FindCalendarLink(ctx context.Context, pageURL string) (string, error) {
	base, err := parseHTTPURL(pageURL, domain.ErrConfig)
	if err != nil {
		return "", err
	}

	f.log.WithField("url", base.String()).Info("fetching calendar landing page")

	// Read body with size limit (5MB)
	body, err := f.get(ctx, base.String(), 5*1024*1024)
	if err != nil {
		return "", err
	}

	href, err := FindLink(string(body), LinkPhrase)
	if err != nil {
		return "", err
	}
	if href == "" {
		return "", nil
	}

	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("%w: invalid calendar href %q: %v", domain.ErrNotFound, href, err)
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", fmt.Errorf("%w: calendar anchor on %s points to %q, not a downloadable file", domain.ErrNotFound, base, href)
	}
	link := resolved.String()
	f.log.WithField("link", link).Info("calendar link found")
	return link, nil
}

// Download fetches fileURL into memory and writes it to dest. The file is
// written next to dest and renamed, so dest only ever holds a complete body.
func (f *Fetcher) Download(ctx context.Context, fileURL, dest string) error {
	// fileURL comes from the scraped page, not from configuration
	u, err := parseHTTPURL(fileURL, domain.ErrNotFound)
	if err != nil {
		return err
	}

	f.log.WithFields(logrus.Fields{"url": u.String(), "dest": dest}).Info("downloading calendar")

	body, err := f.get(ctx, u.String(), 0)
	if err != nil {
		return err
	}

	tmp := dest + ".tmp"
	if err := os.WriteFile(tmp, body, 0o644); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}

	f.log.WithFields(logrus.Fields{"dest": dest, "bytes": len(body)}).Info("calendar saved")
	return nil
}

// get performs a GET and returns the body. limit <= 0 reads everything.
func (f *Fetcher) get(ctx context.Context, rawURL string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", domain.ErrNetwork, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: GET %s: %s", domain.ErrNetwork, rawURL, resp.Status)
	}

	var r io.Reader = resp.Body
	if limit > 0 {
		r = io.LimitReader(resp.Body, limit)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read body of %s: %v", domain.ErrNetwork, rawURL, err)
	}
	return body, nil
}

// parseHTTPURL accepts http(s) URLs only; kind is the error reported
// otherwise, depending on where the URL came from.
func parseHTTPURL(rawURL string, kind error) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL %q: %v", kind, rawURL, err)
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme: %s", kind, u.Scheme)
	}
	return u, nil
}

// FindLink returns the href of the first anchor, in document order, whose
// normalized text contains phrase. Anchors without an href are skipped.
func FindLink(htmlContent, phrase string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("%w: parse html: %v", domain.ErrParse, err)
	}

	phrase = Normalize(phrase)

	var found string
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.Data == "a" {
			if strings.Contains(Normalize(textContent(n)), phrase) {
				if href := attr(n, "href"); href != "" {
					found = href
					return true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(doc)

	return found, nil
}

// Normalize lowercases s, decomposes it and drops the combining marks, so
// "Calendário Acadêmico" becomes "calendario academico".
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		out = strings.ToLower(s)
	}
	return strings.TrimSpace(out)
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return sb.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

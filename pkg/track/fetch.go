package track

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// DefaultPathExpr selects every "d" attribute of a path document
const DefaultPathExpr = "$..d"

var ErrNoPathData = errors.New("document contains no path data")

// PathFetcher loads external path documents referenced by TrackData.PathURL
type PathFetcher interface {
	Fetch(ctx context.Context, url string) ([]string, error)
}

type HTTPFetcher struct {
	client *http.Client
	expr   jp.Expr
}

type FetcherOption func(*HTTPFetcher) error

func WithClient(c *http.Client) FetcherOption {
	return func(f *HTTPFetcher) error {
		f.client = c
		return nil
	}
}

// WithPathExpr sets the JSONPath expression selecting path strings
func WithPathExpr(expr string) FetcherOption {
	return func(f *HTTPFetcher) error {
		x, err := jp.ParseString(expr)
		if err != nil {
			return fmt.Errorf("path expression %q: %w", expr, err)
		}
		f.expr = x
		return nil
	}
}

func NewHTTPFetcher(opts ...FetcherOption) (*HTTPFetcher, error) {
	f := &HTTPFetcher{
		client: &http.Client{Timeout: 10 * time.Second},
		expr:   jp.MustParseString(DefaultPathExpr),
	}
	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", url, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	return ExtractPaths(data, f.expr)
}

// ExtractPaths returns the non-empty strings selected by expr
func ExtractPaths(doc []byte, expr jp.Expr) ([]string, error) {
	obj, err := oj.Parse(doc)
	if err != nil {
		return nil, err
	}
	var ret []string
	for _, v := range expr.Get(obj) {
		if s, ok := v.(string); ok && s != "" {
			ret = append(ret, s)
		}
	}
	if len(ret) == 0 {
		return nil, ErrNoPathData
	}
	return ret, nil
}

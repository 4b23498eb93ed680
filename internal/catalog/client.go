// Package catalog 外部电影目录（TMDB v3）客户端与同步任务
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"movienight/internal/metrics"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrNotFound 目录中不存在该电影
var ErrNotFound = errors.New("catalog: movie not found")

// Catalog 外部目录
type Catalog interface {
	GetMovie(ctx context.Context, id int64) (*Movie, error)
	ListMovies(ctx context.Context, list string, page int) (*Page, error)
	SearchMovies(ctx context.Context, query string, page int) (*Page, error)
	Genres(ctx context.Context) ([]Genre, error)
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Movie 列表接口返回 genre_ids，详情接口返回 genres
type Movie struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Overview    string  `json:"overview"`
	PosterPath  string  `json:"poster_path"`
	ReleaseDate string  `json:"release_date"`
	VoteAverage float64 `json:"vote_average"`
	GenreIDs    []int   `json:"genre_ids"`
	Genres      []Genre `json:"genres"`
}

type Page struct {
	Page         int     `json:"page"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
	Results      []Movie `json:"results"`
}

type genreList struct {
	Genres []Genre `json:"genres"`
}

// Options 客户端参数
type Options struct {
	APIKey         string
	BaseURL        string
	RequestsPerSec float64
	BreakerTimeout time.Duration
	HTTPTimeout    time.Duration
}

type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[[]byte]
	log     *zap.Logger
}

var _ Catalog = (*Client)(nil)

func NewClient(opts Options, log *zap.Logger) *Client {
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = 10 * time.Second
	}
	if opts.RequestsPerSec <= 0 {
		opts.RequestsPerSec = 20
	}
	burst := int(opts.RequestsPerSec)
	if burst < 1 {
		burst = 1
	}

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "tmdb",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		// 404 是正常结果，不计入失败
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("熔断器状态变化",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		apiKey:  opts.APIKey,
		baseURL: opts.BaseURL,
		http:    &http.Client{Timeout: opts.HTTPTimeout},
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSec), burst),
		cb:      cb,
		log:     log,
	}
}

func (c *Client) GetMovie(ctx context.Context, id int64) (*Movie, error) {
	var out Movie
	if err := c.get(ctx, "movie", fmt.Sprintf("/movie/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListMovies list 为 popular、top_rated、now_playing 或 upcoming
func (c *Client) ListMovies(ctx context.Context, list string, page int) (*Page, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", fmt.Sprint(page))
	}
	var out Page
	if err := c.get(ctx, "list", "/movie/"+url.PathEscape(list), q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SearchMovies(ctx context.Context, query string, page int) (*Page, error) {
	q := url.Values{}
	q.Set("query", query)
	if page > 0 {
		q.Set("page", fmt.Sprint(page))
	}
	var out Page
	if err := c.get(ctx, "search", "/search/movie", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Genres(ctx context.Context) ([]Genre, error) {
	var out genreList
	if err := c.get(ctx, "genres", "/genre/movie/list", nil, &out); err != nil {
		return nil, err
	}
	return out.Genres, nil
}

func (c *Client) get(ctx context.Context, endpoint, path string, q url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := c.cb.Execute(func() ([]byte, error) {
		return c.fetch(ctx, path, q)
	})
	switch {
	case err == nil:
		metrics.CatalogRequests.WithLabelValues(endpoint, "success").Inc()
	case errors.Is(err, ErrNotFound):
		metrics.CatalogRequests.WithLabelValues(endpoint, "not_found").Inc()
		return err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CatalogRequests.WithLabelValues(endpoint, "rejected").Inc()
		return fmt.Errorf("tmdb %s: %w", endpoint, err)
	default:
		metrics.CatalogRequests.WithLabelValues(endpoint, "failure").Inc()
		return fmt.Errorf("tmdb %s: %w", endpoint, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("tmdb %s: 解析响应失败: %w", endpoint, err)
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, path string, q url.Values) ([]byte, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, err
	}
	if q == nil {
		q = url.Values{}
	}
	q.Set("api_key", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case res.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("tmdb status %d", res.StatusCode)
	}
	return io.ReadAll(io.LimitReader(res.Body, 8<<20))
}

// GenreNames 把 genre_ids 或 genres 转换为名称列表
func GenreNames(m *Movie, byID map[int]string) []string {
	names := make([]string, 0, len(m.Genres)+len(m.GenreIDs))
	if len(m.Genres) > 0 {
		for _, g := range m.Genres {
			names = append(names, g.Name)
		}
		return names
	}
	for _, id := range m.GenreIDs {
		if name, ok := byID[id]; ok {
			names = append(names, name)
		}
	}
	return names
}

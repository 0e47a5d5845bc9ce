package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/muwahhidun/durus/internal/domain"
)

const (
	defaultTimeout = 30 * time.Second
	userAgent      = "Durus/1.0"
)

// TokenSource supplies the bearer token for outbound requests and performs
// the single refresh cycle after a 401. A nil TokenSource sends
// unauthenticated requests (auth endpoints, public catalog reads).
type TokenSource interface {
	AccessToken() string
	RefreshAccess(ctx context.Context) (string, error)
}

// Client implements domain.CatalogRepository, domain.BookmarkRepository,
// domain.TestRepository, domain.AuthRepository and domain.AudioFetcher
// against the lessons REST API.
type Client struct {
	rootURL    string // scheme://host, for resolving path-only audio URLs
	baseURL    string // rootURL + API prefix
	httpClient *http.Client
	logger     *slog.Logger
	tokens     TokenSource
}

// NewClient creates a new lessons API client. serverURL is the bare server
// address; apiPrefix is appended for API routes (normally "/api").
func NewClient(serverURL, apiPrefix string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	root := strings.TrimRight(serverURL, "/")
	return &Client{
		rootURL: root,
		baseURL: root + apiPrefix,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger: logger,
	}
}

// SetTokenSource wires the session layer in after construction. The session
// needs the client for the refresh endpoint, so the dependency is set late.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

// AbsoluteURL resolves a possibly path-only resource URL against the server
// root. Already-absolute URLs pass through untouched.
func (c *Client) AbsoluteURL(resource string) string {
	if strings.HasPrefix(resource, "http://") || strings.HasPrefix(resource, "https://") {
		return resource
	}
	if !strings.HasPrefix(resource, "/") {
		resource = "/" + resource
	}
	return c.rootURL + resource
}

// doRequest performs one HTTP request with auth headers and maps transport
// and status failures to domain errors. It does not retry.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body interface{}) ([]byte, int, error) {
	reqURL := c.baseURL + path
	if query != nil {
		reqURL = reqURL + "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if access := c.tokens.AccessToken(); access != "" {
			req.Header.Set("Authorization", "Bearer "+access)
		}
	}

	c.logger.Debug("api request", "method", method, "url", reqURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("api request failed", "error", err)
		return nil, 0, domain.ErrServerOffline
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	return respBody, resp.StatusCode, nil
}

// do wraps doRequest with the single refresh-and-retry cycle: on a 401 with
// a token source attached, refresh once and retry once; any further 401
// surfaces as ErrAuthFailed.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}) ([]byte, error) {
	respBody, status, err := c.doRequest(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized && c.tokens != nil {
		c.logger.Debug("access token rejected, refreshing", "path", path)
		if _, rerr := c.tokens.RefreshAccess(ctx); rerr != nil {
			c.logger.Warn("token refresh failed", "error", rerr)
			return nil, domain.ErrAuthFailed
		}
		respBody, status, err = c.doRequest(ctx, method, path, query, body)
		if err != nil {
			return nil, err
		}
	}

	return c.checkStatus(path, status, respBody)
}

func (c *Client) checkStatus(path string, status int, body []byte) ([]byte, error) {
	switch {
	case status >= 200 && status < 300:
		return body, nil
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return nil, domain.ErrAuthFailed
	case status == http.StatusNotFound:
		return nil, domain.ErrNotFound
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, errorDetail(body))
	default:
		c.logger.Error("api request error", "path", path, "status", status, "body", string(body))
		return nil, fmt.Errorf("unexpected status code: %d", status)
	}
}

func errorDetail(body []byte) string {
	var e apiError
	if err := json.Unmarshal(body, &e); err == nil && e.Detail != "" {
		return e.Detail
	}
	return string(body)
}

func pageQuery(skip, limit int) url.Values {
	query := url.Values{}
	query.Set("skip", strconv.Itoa(skip))
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	return query
}

// getPage fetches one page of a collection listing and decodes the
// {items, total, skip, limit} envelope.
func getPage[T any](ctx context.Context, c *Client, path string, skip, limit int) ([]T, int, error) {
	body, err := c.do(ctx, http.MethodGet, path, pageQuery(skip, limit), nil)
	if err != nil {
		return nil, 0, err
	}

	var page pageEnvelope[T]
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, 0, fmt.Errorf("failed to parse %s response: %w", path, err)
	}
	return page.Items, page.Total, nil
}

// === Catalog ===

func (c *Client) GetThemes(ctx context.Context, skip, limit int) ([]domain.Theme, int, error) {
	dtos, total, err := getPage[themeDTO](ctx, c, "/themes", skip, limit)
	if err != nil {
		return nil, 0, err
	}
	themes := make([]domain.Theme, len(dtos))
	for i, d := range dtos {
		themes[i] = mapTheme(d)
	}
	return themes, total, nil
}

func (c *Client) GetAuthors(ctx context.Context, skip, limit int) ([]domain.Author, int, error) {
	dtos, total, err := getPage[authorDTO](ctx, c, "/book-authors", skip, limit)
	if err != nil {
		return nil, 0, err
	}
	authors := make([]domain.Author, len(dtos))
	for i, d := range dtos {
		authors[i] = mapAuthor(d)
	}
	return authors, total, nil
}

func (c *Client) GetBooks(ctx context.Context, skip, limit int) ([]domain.Book, int, error) {
	dtos, total, err := getPage[bookDTO](ctx, c, "/books", skip, limit)
	if err != nil {
		return nil, 0, err
	}
	books := make([]domain.Book, len(dtos))
	for i, d := range dtos {
		books[i] = mapBook(d)
	}
	return books, total, nil
}

func (c *Client) GetTeachers(ctx context.Context, skip, limit int) ([]domain.Teacher, int, error) {
	dtos, total, err := getPage[teacherDTO](ctx, c, "/teachers", skip, limit)
	if err != nil {
		return nil, 0, err
	}
	teachers := make([]domain.Teacher, len(dtos))
	for i, d := range dtos {
		teachers[i] = mapTeacher(d)
	}
	return teachers, total, nil
}

func (c *Client) GetSeries(ctx context.Context, skip, limit int) ([]domain.Series, int, error) {
	dtos, total, err := getPage[seriesDTO](ctx, c, "/series", skip, limit)
	if err != nil {
		return nil, 0, err
	}
	series := make([]domain.Series, len(dtos))
	for i, d := range dtos {
		series[i] = mapSeries(d)
	}
	return series, total, nil
}

// GetSeriesLessons returns all lessons in a series. The endpoint returns a
// bare array without a pagination envelope and without the parent series id;
// the mapped lessons carry a zero SeriesID for the caller to fill in.
func (c *Client) GetSeriesLessons(ctx context.Context, seriesID int) ([]domain.Lesson, error) {
	path := fmt.Sprintf("/series/%d/lessons", seriesID)
	body, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var dtos []lessonListDTO
	if err := json.Unmarshal(body, &dtos); err != nil {
		return nil, fmt.Errorf("failed to parse lessons response: %w", err)
	}

	lessons := make([]domain.Lesson, len(dtos))
	for i, d := range dtos {
		lessons[i] = mapLesson(d)
	}
	return lessons, nil
}

// === Bookmarks ===

func (c *Client) GetSeriesBookmarks(ctx context.Context, seriesID int) ([]domain.Bookmark, error) {
	path := fmt.Sprintf("/bookmarks/series/%d", seriesID)
	body, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var dtos []bookmarkDTO
	if err := json.Unmarshal(body, &dtos); err != nil {
		return nil, fmt.Errorf("failed to parse bookmarks response: %w", err)
	}

	bookmarks := make([]domain.Bookmark, len(dtos))
	for i, d := range dtos {
		bookmarks[i] = mapBookmark(d)
	}
	return bookmarks, nil
}

func (c *Client) ToggleBookmark(ctx context.Context, lessonID int, customName string) (string, *domain.Bookmark, error) {
	req := bookmarkToggleRequest{LessonID: lessonID, CustomName: customName}
	body, err := c.do(ctx, http.MethodPost, "/bookmarks/toggle", nil, req)
	if err != nil {
		return "", nil, err
	}

	var resp bookmarkToggleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", nil, fmt.Errorf("failed to parse toggle response: %w", err)
	}

	if resp.Bookmark == nil {
		return resp.Action, nil, nil
	}
	bm := mapBookmark(*resp.Bookmark)
	return resp.Action, &bm, nil
}

// === Tests ===

func (c *Client) GetTestBySeries(ctx context.Context, seriesID int) (*domain.Test, error) {
	return c.getTest(ctx, fmt.Sprintf("/tests/by-series/%d", seriesID))
}

func (c *Client) GetTestByLesson(ctx context.Context, lessonID int) (*domain.Test, error) {
	return c.getTest(ctx, fmt.Sprintf("/tests/by-lesson/%d", lessonID))
}

func (c *Client) getTest(ctx context.Context, path string) (*domain.Test, error) {
	body, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var dto testDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return nil, fmt.Errorf("failed to parse test response: %w", err)
	}
	return mapTest(dto), nil
}

func (c *Client) StartAttempt(ctx context.Context, testID, lessonID int) (*domain.Attempt, error) {
	req := attemptStartRequest{TestID: testID}
	if lessonID > 0 {
		req.LessonID = &lessonID
	}

	path := fmt.Sprintf("/tests/%d/attempts", testID)
	body, err := c.do(ctx, http.MethodPost, path, nil, req)
	if err != nil {
		return nil, err
	}

	var dto attemptDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return nil, fmt.Errorf("failed to parse attempt response: %w", err)
	}
	return mapAttempt(dto), nil
}

func (c *Client) SubmitAttempt(ctx context.Context, attemptID int, answers map[int]int, timeSpentSeconds int) (*domain.Attempt, error) {
	// Answer keys go over the wire as strings (JSON object keys).
	wireAnswers := make(map[string]int, len(answers))
	for questionID, option := range answers {
		wireAnswers[strconv.Itoa(questionID)] = option
	}

	req := attemptSubmitRequest{Answers: wireAnswers, TimeSpentSeconds: timeSpentSeconds}
	path := fmt.Sprintf("/tests/attempts/%d/submit", attemptID)
	body, err := c.do(ctx, http.MethodPost, path, nil, req)
	if err != nil {
		return nil, err
	}

	var dto attemptDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return nil, fmt.Errorf("failed to parse attempt response: %w", err)
	}
	return mapAttempt(dto), nil
}

// === Auth ===

func (c *Client) Login(ctx context.Context, loginOrEmail, password string) (domain.TokenPair, error) {
	req := loginRequest{LoginOrEmail: loginOrEmail, Password: password}
	return c.authRequest(ctx, "/auth/login", req)
}

func (c *Client) Register(ctx context.Context, email, password string) (domain.TokenPair, error) {
	req := registerRequest{Email: email, Password: password}
	return c.authRequest(ctx, "/auth/register", req)
}

func (c *Client) authRequest(ctx context.Context, path string, req interface{}) (domain.TokenPair, error) {
	// Auth endpoints bypass the refresh cycle: there is nothing to refresh.
	body, status, err := c.doRequest(ctx, http.MethodPost, path, nil, req)
	if err != nil {
		return domain.TokenPair{}, err
	}
	if body, err = c.checkStatus(path, status, body); err != nil {
		return domain.TokenPair{}, err
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.TokenPair{}, fmt.Errorf("failed to parse token response: %w", err)
	}
	return domain.TokenPair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	body, status, err := c.doRequest(ctx, http.MethodPost, "/auth/refresh", nil, refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return "", err
	}
	if body, err = c.checkStatus("/auth/refresh", status, body); err != nil {
		return "", err
	}

	var resp tokenResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse refresh response: %w", err)
	}
	return resp.AccessToken, nil
}

// === Audio ===

// FetchAudio opens the audio stream for a lesson. When offset > 0 a Range
// request is issued; resumed reports whether the server answered 206. A 200
// answer to a ranged request means the transfer restarts from byte zero
// (some deployments ignore Range instead of failing). Missing audio is
// ErrNotFound.
func (c *Client) FetchAudio(ctx context.Context, audioURL string, offset int64) (domain.AudioBody, int64, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.AbsoluteURL(audioURL), nil)
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	if c.tokens != nil {
		if access := c.tokens.AccessToken(); access != "" {
			req.Header.Set("Authorization", "Bearer "+access)
		}
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	// No client timeout here: audio transfers legitimately outlast the API
	// timeout. Cancellation comes from ctx.
	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return nil, 0, false, domain.ErrServerOffline
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, resp.ContentLength, false, nil
	case http.StatusPartialContent:
		total := parseContentRangeTotal(resp.Header.Get("Content-Range"))
		if total == 0 {
			total = offset + resp.ContentLength
		}
		return resp.Body, total, true, nil
	case http.StatusNotFound:
		resp.Body.Close()
		return nil, 0, false, domain.ErrNotFound
	case http.StatusUnauthorized:
		resp.Body.Close()
		return nil, 0, false, domain.ErrAuthFailed
	default:
		resp.Body.Close()
		return nil, 0, false, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
}

// parseContentRangeTotal extracts the total length from a
// "bytes start-end/total" header value. Returns 0 when unparseable.
func parseContentRangeTotal(header string) int64 {
	idx := strings.LastIndex(header, "/")
	if idx < 0 {
		return 0
	}
	total, err := strconv.ParseInt(header[idx+1:], 10, 64)
	if err != nil {
		return 0
	}
	return total
}

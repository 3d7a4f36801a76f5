package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"golang.org/x/time/rate"

	clientmodels "github.com/dmitrijs2005/saywhat/internal/client/models"
	"github.com/dmitrijs2005/saywhat/internal/logging"
)

const (
	apiKeyHeader        = "xi-api-key"
	historyItemIDHeader = "history-item-id"
	maxPageSize         = 100
)

// ErrNoContentType is returned when an audio response carries no media type.
var ErrNoContentType = errors.New("audio response has no content type")

type Client struct {
	source  SettingsSource
	http    *http.Client
	limiter *rate.Limiter
	logger  logging.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRateLimit throttles outgoing requests to rps per second. rps <= 0
// disables throttling.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

func NewClient(source SettingsSource, logger logging.Logger, opts ...Option) *Client {
	c := &Client{
		source: source,
		http:   &http.Client{},
		logger: logger.With("module", "speech"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body []byte) (*http.Request, error) {
	s := c.source.Settings()
	u := s.APIRoot + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return nil, err
	}
	req.Header.Set(apiKeyHeader, s.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		detail, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{URL: req.URL.String(), Status: resp.StatusCode, Detail: string(bytes.TrimSpace(detail))}
		c.logger.Error(req.Context(), "speech api request failed", "url", apiErr.URL, "status", apiErr.Status)
		return nil, apiErr
	}
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, v any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func (c *Client) Voices(ctx context.Context) ([]Voice, error) {
	var page voicePage
	if err := c.getJSON(ctx, "/voices", nil, &page); err != nil {
		return nil, err
	}
	return page.Voices, nil
}

func (c *Client) Models(ctx context.Context) ([]Model, error) {
	var models []Model
	if err := c.getJSON(ctx, "/models", nil, &models); err != nil {
		return nil, err
	}
	return models, nil
}

func (c *Client) PronunciationDictionaries(ctx context.Context) ([]DictionaryMetadata, error) {
	var page dictionaryPage
	if err := c.getJSON(ctx, "/pronunciation-dictionaries/", nil, &page); err != nil {
		return nil, err
	}
	return page.PronunciationDictionaries, nil
}

// VoiceOptions lists voices as options sorted by label.
func (c *Client) VoiceOptions(ctx context.Context) ([]clientmodels.Option, error) {
	voices, err := c.Voices(ctx)
	if err != nil {
		return nil, err
	}
	options := make([]clientmodels.Option, 0, len(voices))
	for _, v := range voices {
		options = append(options, clientmodels.Option{Label: v.Name, ID: v.VoiceID})
	}
	sortOptions(options)
	return options, nil
}

// ModelOptions lists models as options sorted by label.
func (c *Client) ModelOptions(ctx context.Context) ([]clientmodels.Option, error) {
	models, err := c.Models(ctx)
	if err != nil {
		return nil, err
	}
	options := make([]clientmodels.Option, 0, len(models))
	for _, m := range models {
		options = append(options, clientmodels.Option{Label: m.Name, ID: m.ModelID})
	}
	sortOptions(options)
	return options, nil
}

// DictionaryOptions lists dictionaries as "id|version" options sorted by
// label, always including the "(None)" option with an empty id.
func (c *Client) DictionaryOptions(ctx context.Context) ([]clientmodels.Option, error) {
	dicts, err := c.PronunciationDictionaries(ctx)
	if err != nil {
		return nil, err
	}
	options := make([]clientmodels.Option, 0, len(dicts)+1)
	options = append(options, clientmodels.Option{Label: "(None)", ID: ""})
	for _, d := range dicts {
		label := d.Name
		if d.Description != "" {
			label = d.Description
		}
		loc := DictionaryLocator{PronunciationDictionaryID: d.ID, VersionID: d.LatestVersionID}
		options = append(options, clientmodels.Option{Label: label, ID: loc.String()})
	}
	sortOptions(options)
	return options, nil
}

func sortOptions(options []clientmodels.Option) {
	sort.SliceStable(options, func(i, j int) bool { return options[i].Label < options[j].Label })
}

// HistoryItems returns up to limit of the most recent history items,
// paging through the provider's history.
func (c *Client) HistoryItems(ctx context.Context, limit int) ([]HistoryItem, error) {
	items := make([]HistoryItem, 0, limit)
	after := ""
	for needed := limit; needed > 0; {
		query := url.Values{}
		query.Set("page_size", strconv.Itoa(min(needed, maxPageSize)))
		if after != "" {
			query.Set("start_after_history_item_id", after)
		}
		var page historyPage
		if err := c.getJSON(ctx, "/history", query, &page); err != nil {
			return nil, err
		}
		items = append(items, page.History...)
		needed -= len(page.History)
		if !page.HasMore || len(page.History) == 0 {
			break
		}
		after = page.LastHistoryItemID
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// HistoryItemAudio downloads the audio of a history item.
func (c *Client) HistoryItemAudio(ctx context.Context, id string) (*Audio, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/history/"+url.PathEscape(id)+"/audio", nil, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		return nil, fmt.Errorf("%s: %w", req.URL, ErrNoContentType)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading audio %s: %w", id, err)
	}
	return &Audio{Data: data, ContentType: contentType, HistoryItemID: id}, nil
}

// Synthesize converts text to speech with the current generation settings.
func (c *Client) Synthesize(ctx context.Context, text string) (*Audio, error) {
	gs := c.source.Settings().GenerationSettings

	query := url.Values{}
	query.Set("output_format", gs.OutputFormat)
	query.Set("optimize_streaming_latency", gs.OptimizeStreamingLatency)

	params := synthesisRequest{ModelID: gs.ModelID, Text: text, VoiceSettings: gs.VoiceSettings}
	if loc, ok := ParseDictionaryLocator(gs.PronunciationDictionary); ok {
		params.PronunciationDictionaryLocators = []DictionaryLocator{loc}
	}
	body, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/text-to-speech/"+url.PathEscape(gs.VoiceID), query, body)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading synthesized audio: %w", err)
	}
	return &Audio{
		Data:          data,
		ContentType:   resp.Header.Get("Content-Type"),
		HistoryItemID: resp.Header.Get(historyItemIDHeader),
	}, nil
}

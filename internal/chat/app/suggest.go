package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lucrare-diploma/university-chat-sub000/pkg/logger"
)

// SuggestionProvider generates best-effort reply suggestions from recent
// conversation text. Quality is not guaranteed; failures degrade to no
// suggestions.
type SuggestionProvider interface {
	Suggest(ctx context.Context, history []string) ([]string, error)
}

// SuggestionKey cache key for one conversation state: suggestions stay
// valid until a new message arrives or the entry expires.
func SuggestionKey(chatID, lastMessageID string) string {
	return chatID + ":" + lastMessageID
}

type suggestionEntry struct {
	replies   []string
	expiresAt time.Time
}

// SuggestionCache is an explicit TTL cache for suggestion results, owned
// by the pipeline's caller. The clock is injected so tests run without
// wall-clock dependence.
type SuggestionCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]suggestionEntry
}

// NewSuggestionCache create SuggestionCache; now defaults to time.Now
func NewSuggestionCache(ttl time.Duration, now func() time.Time) *SuggestionCache {
	if now == nil {
		now = time.Now
	}
	return &SuggestionCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]suggestionEntry),
	}
}

// Get returns the cached replies for key, if present and not expired.
func (c *SuggestionCache) Get(key string) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.replies, true
}

// Put stores replies under key for the cache TTL.
func (c *SuggestionCache) Put(key string, replies []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = suggestionEntry{
		replies:   replies,
		expiresAt: c.now().Add(c.ttl),
	}
}

// ReplySuggester is the cache-through front of a SuggestionProvider.
type ReplySuggester struct {
	provider SuggestionProvider
	cache    *SuggestionCache
}

// NewReplySuggester create ReplySuggester
func NewReplySuggester(provider SuggestionProvider, cache *SuggestionCache) *ReplySuggester {
	return &ReplySuggester{provider: provider, cache: cache}
}

// Replies returns suggestions for the conversation state, consulting the
// cache first. Provider failure yields an empty list, never an error to
// the rendering path.
func (s *ReplySuggester) Replies(ctx context.Context, chatID, lastMessageID string, history []string) []string {
	key := SuggestionKey(chatID, lastMessageID)
	if replies, ok := s.cache.Get(key); ok {
		return replies
	}

	replies, err := s.provider.Suggest(ctx, history)
	if err != nil {
		logger.Log.Warn("reply suggestions", zap.String("chat", chatID), zap.Error(err))
		return nil
	}
	s.cache.Put(key, replies)
	return replies
}

// httpSuggestionProvider posts recent history to an external completion
// endpoint and reads back a list of replies.
type httpSuggestionProvider struct {
	url    string
	client *http.Client
}

// NewHTTPSuggestionProvider create a SuggestionProvider over a JSON endpoint
func NewHTTPSuggestionProvider(url string, timeout time.Duration) SuggestionProvider {
	return &httpSuggestionProvider{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (p *httpSuggestionProvider) Suggest(ctx context.Context, history []string) ([]string, error) {
	body, err := json.Marshal(map[string]interface{}{"history": history})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("suggestion endpoint returned %d", resp.StatusCode)
	}

	var out struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out.Suggestions, nil
}

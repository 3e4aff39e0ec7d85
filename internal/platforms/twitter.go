package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dghubble/oauth1"

	"github.com/treumlabs/signalcast/pkg/config"
)

const twitterMaxChars = 280

// Twitter posts tweets through the v2 API with OAuth 1.0a user-context
// signing. Content over the character limit is cut at 277 runes with an
// ellipsis so the truncation is visible to readers.
type Twitter struct {
	baseURL string
	http    *http.Client
}

// NewTwitter builds the Twitter poster with a signing client.
func NewTwitter(cfg config.TwitterConfig) *Twitter {
	oauthCfg := oauth1.NewConfig(cfg.ConsumerKey, cfg.ConsumerSecret)
	token := oauth1.NewToken(cfg.AccessToken, cfg.AccessTokenSecret)
	client := oauthCfg.Client(oauth1.NoContext, token)
	client.Timeout = httpTimeout

	return &Twitter{
		baseURL: "https://api.twitter.com",
		http:    client,
	}
}

// Post publishes a tweet and returns its ID.
func (t *Twitter) Post(ctx context.Context, content string) (string, error) {
	text := content
	if len([]rune(text)) > twitterMaxChars {
		text = truncate(content, twitterMaxChars-3) + "..."
	}

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("encoding tweet: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building tweet request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("posting to twitter: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("twitter api error: status %d", resp.StatusCode)
	}

	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("decoding tweet response: %w", err)
	}
	if created.Data.ID == "" {
		return "", fmt.Errorf("twitter response carried no tweet id")
	}
	return created.Data.ID, nil
}

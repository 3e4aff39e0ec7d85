package platforms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/treumlabs/signalcast/pkg/config"
)

const linkedInMaxChars = 1300

// LinkedIn posts UGC shares on behalf of the token owner. The author URN is
// resolved from the userinfo endpoint on every post, so token rotation never
// leaves a stale identity behind.
type LinkedIn struct {
	token   string
	baseURL string
	http    *http.Client
}

// NewLinkedIn builds the LinkedIn poster.
func NewLinkedIn(cfg config.LinkedInConfig) *LinkedIn {
	return &LinkedIn{
		token:   cfg.AccessToken,
		baseURL: "https://api.linkedin.com",
		http:    defaultHTTPClient(),
	}
}

// Post publishes a public text share and returns the created share ID.
func (l *LinkedIn) Post(ctx context.Context, content string) (string, error) {
	personURN, err := l.resolveAuthor(ctx)
	if err != nil {
		return "", err
	}

	payload := map[string]any{
		"author":         personURN,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": map[string]any{
				"shareCommentary": map[string]any{
					"text": truncate(content, linkedInMaxChars),
				},
				"shareMediaCategory": "NONE",
			},
		},
		"visibility": map[string]any{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding linkedin share: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/v2/ugcPosts", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building linkedin request: %w", err)
	}
	l.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("posting to linkedin: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("linkedin api error: status %d", resp.StatusCode)
	}

	if id := resp.Header.Get("X-RestLi-Id"); id != "" {
		return id, nil
	}
	return "posted", nil
}

func (l *LinkedIn) resolveAuthor(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/v2/userinfo", nil)
	if err != nil {
		return "", fmt.Errorf("building userinfo request: %w", err)
	}
	l.setHeaders(req)

	resp, err := l.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("resolving linkedin identity: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("linkedin auth failed: status %d", resp.StatusCode)
	}

	var userinfo struct {
		Sub string `json:"sub"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&userinfo); err != nil {
		return "", fmt.Errorf("decoding userinfo: %w", err)
	}
	if userinfo.Sub == "" {
		return "", fmt.Errorf("linkedin userinfo returned no subject")
	}
	return "urn:li:person:" + userinfo.Sub, nil
}

func (l *LinkedIn) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+l.token)
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
}

package wiki

import (
	"context"
	"fmt"
	"net/url"
)

// anonymousToken is the CSRF token MediaWiki hands out to logged-out users
const anonymousToken = `+\`

// Login signs in with a bot password (Special:BotPasswords). The session
// cookie stays in the client's jar.
func (c *Client) Login(ctx context.Context, api, username, password string) error {
	token, err := c.token(ctx, api, "login")
	if err != nil {
		return fmt.Errorf("login token: %w", err)
	}

	params := url.Values{}
	params.Set("action", "login")
	params.Set("lgname", username)
	params.Set("lgpassword", password)
	params.Set("lgtoken", token)

	var resp struct {
		Login struct {
			Result   string `json:"result"`
			Reason   string `json:"reason"`
			Username string `json:"lgusername"`
		} `json:"login"`
	}
	if err := c.Post(ctx, api, params, &resp); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if resp.Login.Result != "Success" {
		return fmt.Errorf("login as %s: %s %s", username, resp.Login.Result, resp.Login.Reason)
	}

	c.log.Info().Str("user", resp.Login.Username).Str("api", api).Msg("logged in")
	return nil
}

// CSRFToken fetches an edit token for the current session
func (c *Client) CSRFToken(ctx context.Context, api string) (string, error) {
	return c.token(ctx, api, "csrf")
}

func (c *Client) token(ctx context.Context, api, kind string) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("meta", "tokens")
	params.Set("type", kind)

	var resp queryResponse
	if err := c.Get(ctx, api, params, &resp); err != nil {
		return "", err
	}
	token := resp.Query.Tokens[kind+"token"]
	if token == "" {
		return "", fmt.Errorf("no %s token in response", kind)
	}
	return token, nil
}

package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultPushPlusURL is the PushPlus send endpoint.
const DefaultPushPlusURL = "https://www.pushplus.plus/send"

// PushPlusChannel delivers via the PushPlus webhook.
type PushPlusChannel struct {
	Token string
	// URL overrides the endpoint, used by tests.
	URL string

	client *resty.Client
}

// NewPushPlusChannel creates the PushPlus channel.
func NewPushPlusChannel(token string) *PushPlusChannel {
	return &PushPlusChannel{
		Token:  token,
		URL:    DefaultPushPlusURL,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

func (c *PushPlusChannel) Name() string { return "PushPlus" }

func (c *PushPlusChannel) Send(ctx context.Context, msg Message) error {
	content, template := msg.Text, "txt"
	if msg.HTML != "" {
		content, template = msg.HTML, "html"
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"token":    c.Token,
			"title":    msg.Title,
			"content":  content,
			"template": template,
		}).
		Post(c.URL)
	if err != nil {
		return fmt.Errorf("pushplus request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("pushplus returned HTTP %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

package notify

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// HTTPSender posts {to, subject, html} to a hosted email function.
type HTTPSender struct {
	client *resty.Client
	url    string
}

func NewHTTPSender(url, apiKey string) *HTTPSender {
	client := resty.New().SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &HTTPSender{client: client, url: url}
}

func (s *HTTPSender) Send(ctx context.Context, msg Message) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"to":      msg.To,
			"subject": msg.Subject,
			"html":    msg.HTML,
		}).
		Post(s.url)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("email function returned %d", resp.StatusCode())
	}
	return nil
}

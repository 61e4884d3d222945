// internal/poller/builder.go
package poller

import (
	"time"

	cfg "github.com/tamzrod/statpoll/internal/config"
	"github.com/tamzrod/statpoll/internal/extract"
	"github.com/tamzrod/statpoll/internal/poller/https"
)

// Build constructs a Poller and its HTTPS transport from normalized config.
// The returned closer releases pooled connections.
func Build(c *cfg.Config, gate LinkGate) (*Poller, func() error, error) {
	client, err := https.New(https.Config{
		Timeout:   time.Duration(c.API.TimeoutMs) * time.Millisecond,
		CAFile:    c.API.CAFile,
		KeepAlive: c.API.KeepAlive,
		UserAgent: "statpoll",
	})
	if err != nil {
		return nil, nil, err
	}

	path, err := extract.ParsePath(c.API.Field)
	if err != nil {
		return nil, nil, err
	}

	p, err := New(
		Config{
			Channel:  c.API.ChannelID,
			URL:      c.API.URL,
			Interval: time.Duration(c.Poll.IntervalMs) * time.Millisecond,
			Capacity: c.Buffer.Capacity,
			Path:     &path,
		},
		client,
		gate,
	)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	return p, client.Close, nil
}

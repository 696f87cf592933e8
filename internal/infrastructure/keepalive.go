package infrastructure

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const (
	defaultKeepAliveInterval = 10 * time.Minute
	keepAliveRequestTimeout  = 30 * time.Second
)

// KeepAlive GETs url on a fixed interval until ctx is canceled. Free hosting
// tiers suspend idle web processes; pinging our own public URL keeps the bot
// polling between user messages.
func KeepAlive(ctx context.Context, url string, interval time.Duration) {
	if strings.TrimSpace(url) == "" {
		return
	}
	if interval <= 0 {
		interval = defaultKeepAliveInterval
	}

	client := resty.New().SetTimeout(keepAliveRequestTimeout)

	logrus.WithField("url", url).Infof("keep-alive ping every %s", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			resp, err := client.R().SetContext(ctx).Get(url)
			if err != nil {
				logrus.Warnf("keep-alive ping failed: %v", err)
				continue
			}

			logrus.Debugf("keep-alive ping status %d", resp.StatusCode())
		}
	}
}

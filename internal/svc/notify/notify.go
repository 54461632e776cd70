// Package notify posts session lifecycle events to a configured webhook. A
// non-200 response vetoes the session: the receiver can reject publishes and
// plays it does not want.
package notify

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"brook/internal/core/bus"
)

// payload is the JSON body posted for every lifecycle action.
type payload struct {
	ID         string    `json:"id"`
	IP         string    `json:"ip"`
	App        string    `json:"app"`
	Name       string    `json:"name"`
	Query      string    `json:"query"`
	Protocol   string    `json:"protocol"`
	CreateTime time.Time `json:"createtime"`
	EndTime    time.Time `json:"endtime"`
	InBytes    uint64    `json:"inbytes"`
	OutBytes   uint64    `json:"outbytes"`
	Action     string    `json:"action"`
}

// Service is an event observer that delivers webhooks.
type Service struct {
	url    string
	client *http.Client
}

// New creates the service. Register it on the event bus with Subscribe.
func New(url string) *Service {
	return &Service{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// OnSessionEvent implements bus.Observer. The webhook is delivered on the
// session's goroutine so a rejection can stop the session before media flows.
func (s *Service) OnSessionEvent(action bus.Action, session bus.Session) {
	info := session.Info()
	body, err := json.Marshal(payload{
		ID:         info.ID,
		IP:         info.IP,
		App:        info.App,
		Name:       info.Name,
		Query:      info.Query.Encode(),
		Protocol:   info.Protocol,
		CreateTime: info.CreateTime,
		EndTime:    info.EndTime,
		InBytes:    info.InBytes.Load(),
		OutBytes:   info.OutBytes.Load(),
		Action:     string(action),
	})
	if err != nil {
		return
	}

	resp, err := s.client.Post(s.url, "application/json", bytes.NewReader(body))
	if err != nil {
		slog.Warn("notify delivery failed", "action", action, "url", s.url, "err", err)
		return
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("notify rejected session",
			"action", action, "status", resp.StatusCode, "path", info.Path)
		session.Close()
	}
}

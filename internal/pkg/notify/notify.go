// Package notify delivers shift reminders through an external gateway.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cmlabs-hris/timecard-backend-go/internal/pkg/sse"
	"golang.org/x/time/rate"
)

type Channel string

const (
	ChannelSMS  Channel = "sms"
	ChannelPush Channel = "push"
	ChannelAll  Channel = "all"
)

// Delivery reports which channels accepted the message.
type Delivery struct {
	SMSSent  bool `json:"sms_sent"`
	PushSent bool `json:"push_sent"`
}

type Sender interface {
	SendReminder(ctx context.Context, employeeID string, channel Channel, message string) (Delivery, error)
}

// =============================================================================
// WEBHOOK SENDER
// =============================================================================

// WebhookSender posts reminders as JSON to a notification gateway.
// Calls are throttled by a token bucket shared by all goroutines.
type WebhookSender struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type reminderPayload struct {
	EmployeeID string  `json:"employee_id"`
	Channel    Channel `json:"channel"`
	Message    string  `json:"message"`
	SentAt     string  `json:"sent_at"`
}

func NewWebhookSender(endpoint, apiKey string, perSecond float64, burst int, timeout time.Duration) *WebhookSender {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSender{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
	}
}

// SendReminder implements Sender.
func (s *WebhookSender) SendReminder(ctx context.Context, employeeID string, channel Channel, message string) (Delivery, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return Delivery{}, fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(reminderPayload{
		EmployeeID: employeeID,
		Channel:    channel,
		Message:    message,
		SentAt:     time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return Delivery{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return Delivery{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("x-api-key", s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Delivery{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return Delivery{}, fmt.Errorf("gateway returned http %d", resp.StatusCode)
	}

	var d Delivery
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		return Delivery{}, fmt.Errorf("decode gateway response: %w", err)
	}
	return d, nil
}

// =============================================================================
// LOG SENDER
// =============================================================================

// LogSender writes reminders to the log and reports them as pushed.
// Used when no gateway is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// SendReminder implements Sender.
func (s *LogSender) SendReminder(ctx context.Context, employeeID string, channel Channel, message string) (Delivery, error) {
	s.logger.InfoContext(ctx, "reminder",
		"employee_id", employeeID,
		"channel", channel,
		"message", message,
	)
	return Delivery{PushSent: true}, nil
}

// =============================================================================
// STREAM SENDER
// =============================================================================

// ReminderEvent is the payload pushed to open reminder streams.
type ReminderEvent struct {
	Channel Channel `json:"channel"`
	Message string  `json:"message"`
	SentAt  string  `json:"sent_at"`
}

// StreamSender forwards reminders to next and also pushes them to any
// reminder stream the employee has open. A reminder that reached a stream
// counts as pushed even when next fails.
type StreamSender struct {
	next Sender
	hub  *sse.Hub
}

func NewStreamSender(next Sender, hub *sse.Hub) *StreamSender {
	return &StreamSender{next: next, hub: hub}
}

// SendReminder implements Sender.
func (s *StreamSender) SendReminder(ctx context.Context, employeeID string, channel Channel, message string) (Delivery, error) {
	d, err := s.next.SendReminder(ctx, employeeID, channel, message)

	streamed := s.hub.Publish(sse.Event{
		EmployeeID: employeeID,
		Name:       "reminder",
		Data: ReminderEvent{
			Channel: channel,
			Message: message,
			SentAt:  time.Now().UTC().Format(time.RFC3339),
		},
	})
	if streamed == 0 {
		return d, err
	}
	if err != nil {
		slog.WarnContext(ctx, "reminder gateway failed, delivered over stream only",
			"employee_id", employeeID,
			"error", err,
		)
		return Delivery{PushSent: true}, nil
	}
	d.PushSent = true
	return d, nil
}

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"mockline/internal/config"
	"mockline/internal/domain"
	"mockline/internal/engine"
)

const (
	webhookPollInterval = 2 * time.Second
	webhookTimeout      = 5 * time.Second
	webhookBatchSize    = 100
)

// A webhook is one normalized delivery target from the webhooks section
// of mockline.yml. Disabled entries are dropped before the dispatcher
// starts.
type webhook struct {
	url     string
	secret  string
	timeout time.Duration
	types   map[string]struct{} // empty means every event type
}

func (w webhook) wants(evtType string) bool {
	if len(w.types) == 0 {
		return true
	}
	_, ok := w.types[evtType]
	return ok
}

// webhookDispatcher tails the event ledger and posts each new event to
// its targets. Delivery is at-least-once per hook: a cursor only moves
// past an event once its POST succeeded.
type webhookDispatcher struct {
	engine engine.Engine
	hooks  []webhook
	client *http.Client

	mu      sync.Mutex
	cursors map[int]int64
}

func newWebhookDispatcher(e engine.Engine, configs []config.WebhookConfig) *webhookDispatcher {
	var hooks []webhook
	for _, wc := range configs {
		if wc.Enabled != nil && !*wc.Enabled {
			continue
		}
		url := strings.TrimSpace(wc.URL)
		if url == "" {
			continue
		}
		h := webhook{url: url, secret: strings.TrimSpace(wc.Secret), timeout: webhookTimeout}
		if wc.TimeoutSeconds > 0 {
			h.timeout = time.Duration(wc.TimeoutSeconds) * time.Second
		}
		for _, t := range wc.Events {
			if t = strings.TrimSpace(t); t != "" {
				if h.types == nil {
					h.types = make(map[string]struct{})
				}
				h.types[t] = struct{}{}
			}
		}
		hooks = append(hooks, h)
	}
	return &webhookDispatcher{
		engine:  e,
		hooks:   hooks,
		client:  &http.Client{},
		cursors: make(map[int]int64),
	}
}

func startWebhookDispatcher(e engine.Engine) {
	if e.Config == nil {
		return
	}
	d := newWebhookDispatcher(e, e.Config.Webhooks)
	if len(d.hooks) == 0 {
		return
	}
	go d.run()
}

func (d *webhookDispatcher) run() {
	tick := time.NewTicker(webhookPollInterval)
	defer tick.Stop()
	for {
		d.dispatchAll()
		<-tick.C
	}
}

func (d *webhookDispatcher) dispatchAll() {
	for i := range d.hooks {
		d.drain(i)
	}
}

// drain forwards every undelivered ledger event to one hook, stopping
// at the first failed POST so the event is retried next tick. Events
// the hook does not subscribe to advance the cursor immediately.
func (d *webhookDispatcher) drain(idx int) {
	hook := d.hooks[idx]
	events, err := d.engine.Repo.EventsAfter(context.Background(), webhookBatchSize, d.cursorFor(idx), "")
	if err != nil {
		log.Printf("webhook: read ledger: %v", err)
		return
	}
	for _, evt := range events {
		if hook.wants(evt.Type) {
			if err := d.deliver(hook, evt); err != nil {
				log.Printf("webhook: %s: %v", hook.url, err)
				return
			}
		}
		d.setCursor(idx, evt.ID)
	}
}

// cursorFor starts a fresh hook at the ledger tail so only events
// recorded after startup get delivered.
func (d *webhookDispatcher) cursorFor(idx int) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cur, ok := d.cursors[idx]; ok {
		return cur
	}
	cur, err := d.engine.Repo.LatestEventID(context.Background(), "")
	if err != nil {
		log.Printf("webhook: init cursor: %v", err)
		cur = 0
	}
	d.cursors[idx] = cur
	return cur
}

func (d *webhookDispatcher) setCursor(idx int, value int64) {
	d.mu.Lock()
	d.cursors[idx] = value
	d.mu.Unlock()
}

// webhookEvent is the delivery envelope. Payloads that are not valid
// JSON ride along verbatim in payload_raw.
type webhookEvent struct {
	ID         int64           `json:"id"`
	Type       string          `json:"type"`
	RunID      string          `json:"run_id,omitempty"`
	TS         string          `json:"ts"`
	Payload    json.RawMessage `json:"payload"`
	PayloadRaw string          `json:"payload_raw,omitempty"`
}

func newWebhookEvent(evt domain.Event) webhookEvent {
	out := webhookEvent{
		ID:      evt.ID,
		Type:    evt.Type,
		RunID:   evt.RunID,
		TS:      evt.TS,
		Payload: json.RawMessage("{}"),
	}
	switch {
	case evt.Payload == "":
	case json.Valid([]byte(evt.Payload)):
		out.Payload = json.RawMessage(evt.Payload)
	default:
		out.PayloadRaw = evt.Payload
	}
	return out
}

func (d *webhookDispatcher) deliver(hook webhook, evt domain.Event) error {
	body, err := json.Marshal(newWebhookEvent(evt))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), hook.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Mockline-Event", evt.Type)
	req.Header.Set("X-Mockline-Delivery", strconv.FormatInt(evt.ID, 10))
	if hook.secret != "" {
		req.Header.Set("X-Mockline-Secret", hook.secret)
	}
	res, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(excerpt)))
	}
	return nil
}

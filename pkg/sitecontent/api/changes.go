package api

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tendant/site-content/pkg/sitecontent"
)

const writeWait = 10 * time.Second

// ChangeMessage is pushed on the change feed whenever a watched document's
// state changes.
type ChangeMessage struct {
	Key      string                `json:"key"`
	Status   sitecontent.Status    `json:"status"`
	Document *sitecontent.Document `json:"document,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// Changes upgrades to a websocket and streams document states. The key
// query parameter may be repeated or comma separated; without it every
// registered document is watched.
func (h *Handler) Changes(w http.ResponseWriter, r *http.Request) {
	keys, ok := h.changeKeys(r)
	if !ok {
		writeError(w, r, http.StatusNotFound, "unknown document")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Change feed upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	feed := newChangeFeed()

	var consumers []*sitecontent.Consumer
	defer func() {
		for _, c := range consumers {
			c.Close()
		}
	}()
	for _, key := range keys {
		c, err := h.service.UseContent(ctx, key, sitecontent.WithOnChange(feed.watch(key)))
		if err != nil {
			h.logger.Error("Failed to watch document", "document", key, "err", err)
			return
		}
		consumers = append(consumers, c)
	}

	// reader: only needed to notice the client going away
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(h.pingEvery)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-feed.notify:
			for _, msg := range feed.drain() {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(msg); err != nil {
					h.logger.Debug("Change feed write failed", "err", err)
					return
				}
			}
		}
	}
}

func (h *Handler) changeKeys(r *http.Request) ([]string, bool) {
	var keys []string
	for _, v := range r.URL.Query()["key"] {
		for _, k := range strings.Split(v, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
	}
	if len(keys) == 0 {
		for _, s := range h.service.Documents() {
			keys = append(keys, s.Key)
		}
		return keys, true
	}
	for _, k := range keys {
		if _, ok := h.service.Document(k); !ok {
			return nil, false
		}
	}
	return keys, true
}

// changeFeed coalesces states per key so a slow client only sees the
// latest state of each document.
type changeFeed struct {
	mu      sync.Mutex
	pending map[string]ChangeMessage
	order   []string
	notify  chan struct{}
}

func newChangeFeed() *changeFeed {
	return &changeFeed{
		pending: make(map[string]ChangeMessage),
		notify:  make(chan struct{}, 1),
	}
}

func (f *changeFeed) watch(key string) func(sitecontent.State) {
	return func(state sitecontent.State) {
		if state.Status == sitecontent.StatusLoading {
			return
		}
		msg := ChangeMessage{Key: key, Status: state.Status, Document: state.Data}
		if state.Err != nil {
			msg.Error = state.Err.Error()
		}
		f.push(msg)
	}
}

func (f *changeFeed) push(msg ChangeMessage) {

	f.mu.Lock()
	if _, ok := f.pending[msg.Key]; !ok {
		f.order = append(f.order, msg.Key)
	}
	f.pending[msg.Key] = msg
	f.mu.Unlock()

	select {
	case f.notify <- struct{}{}:
	default:
	}
}

func (f *changeFeed) drain() []ChangeMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ChangeMessage, 0, len(f.order))
	for _, k := range f.order {
		out = append(out, f.pending[k])
	}
	f.pending = make(map[string]ChangeMessage)
	f.order = f.order[:0]
	return out
}

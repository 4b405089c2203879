package bus

import (
	"encoding/json"
	log "log/slog"
	"sync"
	"time"

	"fillvox/internal/interview"
)

type Sender interface {
	Send(m Message) error
}

// Transition is the payload of a KindTransition message.
type Transition struct {
	From  interview.State     `json:"from"`
	To    interview.State     `json:"to"`
	Event interview.EventKind `json:"event"`
	Index int                 `json:"index"`
	Total int                 `json:"total"`
	Label string              `json:"label,omitempty"`
	Value string              `json:"value,omitempty"`
	Error string              `json:"error,omitempty"`
	At    time.Time           `json:"at"`
}

// Publisher forwards engine notices to the bus. Observe never blocks the
// engine: notices are queued and dropped when the queue is full.
type Publisher struct {
	out   Sender
	queue chan Message
	wg    sync.WaitGroup
	once  sync.Once
}

func NewPublisher(out Sender, depth int) *Publisher {
	if depth <= 0 {
		depth = 64
	}
	p := &Publisher{out: out, queue: make(chan Message, depth)}
	p.wg.Add(1)
	go p.loop()
	return p
}

func (p *Publisher) Observe(n interview.Notice) {
	t := Transition{
		From:  n.From,
		To:    n.To,
		Event: n.Event,
		Index: n.Index,
		Total: n.Total,
		Label: n.Label,
		Value: n.Value,
		At:    n.At,
	}
	if n.Err != nil {
		t.Error = n.Err.Error()
	}
	data, err := json.Marshal(t)
	if err != nil {
		log.Warn("Failed to encode transition", "err", err)
		return
	}

	m := Message{To: Broadcast, Kind: KindTransition, Content: n.To.String(), Data: data}
	select {
	case p.queue <- m:
	default:
		log.Warn("Bus queue full, dropping transition", "to", n.To)
	}
}

// Close flushes queued notices and stops the publisher.
func (p *Publisher) Close() {
	p.once.Do(func() { close(p.queue) })
	p.wg.Wait()
}

func (p *Publisher) loop() {
	defer p.wg.Done()
	for m := range p.queue {
		if err := p.out.Send(m); err != nil {
			log.Warn("Failed to publish", "kind", m.Kind, "err", err)
		}
	}
}

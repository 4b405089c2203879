package bus

import (
	"encoding/json"
	log "log/slog"

	"fillvox/internal/interview"
)

// Controller is what remote commands act on. *interview.Engine is one.
type Controller interface {
	Cancel() bool
	Snapshot() interview.SessionState
}

// Commands answers cancel and status requests coming in over the bus.
// Every answer has KindReply, which is never answered itself.
func Commands(out Sender, ctl Controller) func(Message) {
	return func(m Message) {
		reply := Message{To: m.From, Kind: KindReply}

		switch m.Kind {
		case KindCancel:
			if ctl.Cancel() {
				reply.Content = "cancelled"
			} else {
				reply.Content = "idle"
			}
		case KindStatus:
			data, err := json.Marshal(ctl.Snapshot())
			if err != nil {
				log.Warn("Failed to encode status", "err", err)
				return
			}
			reply.Content = KindStatus
			reply.Data = data
		case KindTransition, KindReply:
			return
		default:
			log.Warn("Unknown bus command", "kind", m.Kind, "from", m.From)
			return
		}

		if reply.To == "" {
			reply.To = Broadcast
		}
		if err := out.Send(reply); err != nil {
			log.Warn("Failed to reply on bus", "err", err)
		}
	}
}

package ipc

import (
	log "log/slog"

	"fillvox/internal/interview"
)

type Controller interface {
	Cancel() bool
	Snapshot() interview.SessionState
}

// Control answers cancel and status for the interview behind ctl.
func Control(ctl Controller) Handler {
	return func(msg ControlMessage) ControlReply {
		switch msg.Cmd {
		case CmdCancel:
			reply := status(ctl.Snapshot())
			reply.OK = ctl.Cancel()
			if !reply.OK {
				reply.Error = "no interview running"
			}
			return reply
		case CmdStatus:
			reply := status(ctl.Snapshot())
			reply.OK = true
			return reply
		default:
			log.Warn("Unknown command", "cmd", msg.Cmd)
			return ControlReply{Error: "unknown command " + msg.Cmd}
		}
	}
}

func status(s interview.SessionState) ControlReply {
	r := ControlReply{State: s.State.String(), Index: s.Index, Total: s.Total}
	if len(s.Answers) > 0 {
		r.Answers = make(map[string]string, len(s.Answers))
		for label, a := range s.Answers {
			r.Answers[label] = a.NormalizedValue
		}
	}
	return r
}

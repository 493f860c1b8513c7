package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/t77yq/energy-dashboard/internal/model"
	"github.com/t77yq/energy-dashboard/internal/monitor"
)

// Command names accepted on dashboard.command.<name>
const (
	CommandAcknowledge = "acknowledge"
	CommandResolve     = "resolve"
	CommandRaise       = "raise"
	CommandMarkRead    = "mark_read"
	CommandMarkAllRead = "mark_all_read"
)

// Result codes returned to command callers
const (
	CodeOK                = "ok"
	CodeNotFound          = "not_found"
	CodeInvalidTransition = "invalid_transition"
	CodeBadRequest        = "bad_request"
)

// CommandRequest is the payload of a command message
type CommandRequest struct {
	ID    string       `json:"id,omitempty"`
	Alert *model.Alert `json:"alert,omitempty"`
}

// CommandReply is sent back to the caller of a command
type CommandReply struct {
	Code  string       `json:"code"`
	Error string       `json:"error,omitempty"`
	Alert *model.Alert `json:"alert,omitempty"`
}

// CommandListener applies commands received over NATS to the stores
type CommandListener struct {
	nc            *nats.Conn
	logger        *zap.Logger
	alerts        *monitor.AlertStore
	notifications *monitor.NotificationStore
	sub           *nats.Subscription
}

// NewCommandListener creates a new command listener
func NewCommandListener(nc *nats.Conn, alerts *monitor.AlertStore, notifications *monitor.NotificationStore, logger *zap.Logger) *CommandListener {
	return &CommandListener{
		nc:            nc,
		logger:        logger.Named("commands"),
		alerts:        alerts,
		notifications: notifications,
	}
}

// Start subscribes to dashboard.command.* in a queue group
func (l *CommandListener) Start() error {
	sub, err := l.nc.QueueSubscribe(commandSubjectPrefix+"*", commandQueue, l.handle)
	if err != nil {
		return fmt.Errorf("failed to subscribe to commands: %w", err)
	}
	l.sub = sub
	l.logger.Info("Command listener started", zap.String("subject", sub.Subject))
	return nil
}

// Stop unsubscribes from command subjects
func (l *CommandListener) Stop() {
	if l.sub != nil {
		l.sub.Unsubscribe()
	}
}

func (l *CommandListener) handle(msg *nats.Msg) {
	name := strings.TrimPrefix(msg.Subject, commandSubjectPrefix)

	var req CommandRequest
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			l.logger.Error("Failed to unmarshal command", zap.String("command", name), zap.Error(err))
			l.reply(msg, CommandReply{Code: CodeBadRequest, Error: err.Error()})
			return
		}
	}

	reply := l.Apply(name, req)
	if reply.Code != CodeOK {
		l.logger.Warn("Command rejected",
			zap.String("command", name),
			zap.String("id", req.ID),
			zap.String("code", reply.Code))
	}
	l.reply(msg, reply)
}

// Apply executes one command against the stores
func (l *CommandListener) Apply(name string, req CommandRequest) CommandReply {
	var err error
	var raised *model.Alert

	switch name {
	case CommandAcknowledge:
		err = l.alerts.Acknowledge(req.ID)
	case CommandResolve:
		err = l.alerts.Resolve(req.ID)
	case CommandRaise:
		if req.Alert == nil {
			return CommandReply{Code: CodeBadRequest, Error: "alert is required"}
		}
		var alert model.Alert
		alert, err = l.alerts.Raise(*req.Alert)
		if err == nil {
			raised = &alert
		}
	case CommandMarkRead:
		err = l.notifications.MarkRead(req.ID)
	case CommandMarkAllRead:
		l.notifications.MarkAllRead()
	default:
		return CommandReply{Code: CodeBadRequest, Error: fmt.Sprintf("unknown command: %s", name)}
	}

	if err != nil {
		return CommandReply{Code: codeFor(err), Error: err.Error()}
	}
	return CommandReply{Code: CodeOK, Alert: raised}
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, monitor.ErrAlertNotFound), errors.Is(err, monitor.ErrNotificationNotFound):
		return CodeNotFound
	case errors.Is(err, monitor.ErrInvalidTransition):
		return CodeInvalidTransition
	default:
		return CodeBadRequest
	}
}

func (l *CommandListener) reply(msg *nats.Msg, reply CommandReply) {
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(reply)
	if err != nil {
		l.logger.Error("Failed to marshal command reply", zap.Error(err))
		return
	}
	if err := msg.Respond(data); err != nil {
		l.logger.Error("Failed to send command reply", zap.Error(err))
	}
}

// SendCommand issues a command over request/reply and waits for the result
func SendCommand(nc *nats.Conn, name string, req CommandRequest) (CommandReply, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return CommandReply{}, fmt.Errorf("failed to marshal command: %w", err)
	}

	msg, err := nc.Request(commandSubjectPrefix+name, data, operationTimeout)
	if err != nil {
		return CommandReply{}, fmt.Errorf("failed to send command: %w", err)
	}

	var reply CommandReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return CommandReply{}, fmt.Errorf("failed to unmarshal command reply: %w", err)
	}
	return reply, nil
}

package logAction

import "fmt"

type LoggerAction struct {
	Action            string `json:"action"`
	ActionDescription string `json:"actionDescription"`
	SubAction         string `json:"subAction,omitempty"`
}

const (
	DB_CREATE = "create"
	DB_READ   = "read"
	DB_UPDATE = "update"
	DB_DELETE = "delete"
)

// INBOUND request from client to this service
func INBOUND(desc string, subAction ...string) LoggerAction {
	return newAction("[INBOUND]", desc, subAction...)
}

// OUTBOUND response from this service back to the client
func OUTBOUND(desc string, subAction ...string) LoggerAction {
	return newAction("[OUTBOUND]", desc, subAction...)
}

func DB_REQUEST(operation, desc string) LoggerAction {
	return LoggerAction{
		Action:            "[DB_REQUEST]",
		ActionDescription: desc,
		SubAction:         operation,
	}
}

func DB_RESPONSE(operation, desc string) LoggerAction {
	return LoggerAction{
		Action:            "[DB_RESPONSE]",
		ActionDescription: desc,
		SubAction:         operation,
	}
}

// HTTP_REQUEST is a call from this service to a remote dependency
// (key endpoint, identity provider).
func HTTP_REQUEST(method, desc string) LoggerAction {
	return LoggerAction{
		Action:            "[HTTP_REQUEST]",
		ActionDescription: desc,
		SubAction:         method,
	}
}

func HTTP_RESPONSE(method, desc string) LoggerAction {
	return LoggerAction{
		Action:            "[HTTP_RESPONSE]",
		ActionDescription: desc,
		SubAction:         method,
	}
}

func PRODUCE(topic, desc string) LoggerAction {
	return LoggerAction{
		Action:            "[PRODUCING]",
		ActionDescription: desc,
		SubAction:         topic,
	}
}

func BUSINESS(desc string, subAction ...string) LoggerAction {
	return newAction("[BUSINESS]", desc, subAction...)
}

func EXCEPTION(desc string, subAction ...string) LoggerAction {
	return newAction("[EXCEPTION]", desc, subAction...)
}

func (a LoggerAction) String() string {
	if a.SubAction == "" {
		return fmt.Sprintf("%s %s", a.Action, a.ActionDescription)
	}
	return fmt.Sprintf("%s(%s) %s", a.Action, a.SubAction, a.ActionDescription)
}

func newAction(action, desc string, subAction ...string) LoggerAction {
	la := LoggerAction{Action: action, ActionDescription: desc}
	if len(subAction) > 0 {
		la.SubAction = subAction[0]
	}
	return la
}

package sim

// SendError marks a failure send or receive
type SendError struct{}

// NewSendError creates a SendError
func NewSendError() *SendError {
	return new(SendError)
}

// Error implements the error interface.
func (e *SendError) Error() string {
	return "send refused: no free slot"
}

// A Connection is responsible for delivering messages to its destination.
type Connection interface {
	Named
	Hookable

	PlugIn(port Port)
	CanSend(src Port) bool
	Send(msg Msg) *SendError

	// NotifyAvailable is called by a port whose incoming buffer has room
	// again.
	NotifyAvailable(port Port)
}

// HookPosConnStartTrans marks a connection start to transmit a message.
var HookPosConnStartTrans = &HookPos{Name: "Conn Start Trans"}

// HookPosConnDeliver marks a connection delivered a message.
var HookPosConnDeliver = &HookPos{Name: "Conn Deliver"}

package feed

import (
	"github.com/arcbet/livefeed/internal/channel"
)

// socketTransport adapts a channel.Socket to the Transport the manager
// consumes. Join replies arrive on the socket's read goroutine, satisfying
// the asynchronous-result contract of Subscription.
type socketTransport struct {
	sock *channel.Socket
}

func NewSocketTransport(sock *channel.Socket) Transport {
	return socketTransport{sock: sock}
}

func (t socketTransport) Connected() bool {
	return t.sock.Connected()
}

func (t socketTransport) Subscribe(topic string) Subscription {
	return t.sock.Channel(topic)
}

package pubsub

import "fmt"

// Channel naming conventions for chat fan-out between instances.
const (
	// ChannelChatEvents carries every chat notification of the deployment.
	ChannelChatEvents = "chat:events"

	// channelChatEventsScoped is used when several deployments share one Redis.
	channelChatEventsScoped = "chat:%s:events"
)

// ChatEventsChannel returns the relay channel for a deployment namespace.
// An empty namespace yields ChannelChatEvents.
func ChatEventsChannel(namespace string) string {
	if namespace == "" {
		return ChannelChatEvents
	}
	return fmt.Sprintf(channelChatEventsScoped, namespace)
}

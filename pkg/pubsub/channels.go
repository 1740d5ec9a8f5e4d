package pubsub

import "fmt"

// Channel naming conventions for chat rooms.
const (
	ChannelRoomMessages  = "chat:room:%s:messages"
	ChannelRoomReactions = "chat:room:%s:reactions"
	ChannelRoomTyping    = "chat:room:%s:typing"
	ChannelRoomPresence  = "chat:room:%s:presence"
)

// Event types carried on the room channels.
const (
	EventMessageCreated  = "message.created"
	EventReactionAdded   = "reaction.added"
	EventTypingChanged   = "typing.changed"
	EventPresenceChanged = "presence.changed"
)

// RoomMessagesChannel returns the channel for chat messages in a room.
func RoomMessagesChannel(room string) string {
	return fmt.Sprintf(ChannelRoomMessages, room)
}

// RoomReactionsChannel returns the channel for message reactions in a room.
func RoomReactionsChannel(room string) string {
	return fmt.Sprintf(ChannelRoomReactions, room)
}

// RoomTypingChannel returns the channel for typing changes in a room.
func RoomTypingChannel(room string) string {
	return fmt.Sprintf(ChannelRoomTyping, room)
}

// RoomPresenceChannel returns the channel for presence change notices in a room.
func RoomPresenceChannel(room string) string {
	return fmt.Sprintf(ChannelRoomPresence, room)
}

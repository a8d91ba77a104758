package services

// EventPublisher is the slice of the message queue client the services
// need. Passing nil disables event publication.
type EventPublisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// Routing keys for forum events.
const (
	EventUserRegistered = "user.registered"
	EventPostCreated    = "post.created"
	EventCommentAdded   = "comment.added"
	EventLikeToggled    = "like.toggled"
)

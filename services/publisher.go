package services

// ChangePublisher fans a changed feed topic out to live subscribers.
// A nil publisher is valid and means nobody is listening.
type ChangePublisher interface {
	Publish(topic string)
}

func publish(p ChangePublisher, topic string) {
	if p != nil {
		p.Publish(topic)
	}
}

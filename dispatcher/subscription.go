package dispatcher

// Subscription is returned by SubscribeCommand and Observe.
type Subscription interface {
	Unsubscribe()
}

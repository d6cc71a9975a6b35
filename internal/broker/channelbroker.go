package broker

type publication[TID comparable, TPayload any] struct {
	ID      TID
	Payload TPayload
}

type subscription[TID comparable, TPayload any] struct {
	ID      TID
	Channel chan TPayload
}

// finishedCapacity bounds how many finished topics are remembered for late subscribers.
const finishedCapacity = 128

// ChannelBroker fans payloads published under an ID out to every subscriber of that ID.
//
// All state is owned by the goroutine running Start, the other methods only talk to it through channels. Publishing
// never waits for subscribers: each subscriber has a small buffer and payloads that do not fit are dropped for that
// subscriber. A subscriber that joins late first receives the most recent payload so that it can render the current
// state right away.
//
// This kind of broker is useful for streaming progress through SSE. The producer is the goroutine doing the work and
// the consumers are HTTP handlers, possibly reconnecting, that should never slow the producer down.
type ChannelBroker[TID comparable, TPayload any] struct {
	bufferSize         int
	stopChannel        chan struct{}
	publishChannel     chan publication[TID, TPayload]
	finishChannel      chan TID
	subscribeChannel   chan subscription[TID, TPayload]
	unsubscribeChannel chan subscription[TID, TPayload]
}

// NewChannelBroker creates a new ChannelBroker. bufferSize is the per-subscriber buffer. Call Start in a goroutine
// and Stop when done.
func NewChannelBroker[TID comparable, TPayload any](bufferSize int) *ChannelBroker[TID, TPayload] {
	return &ChannelBroker[TID, TPayload]{
		bufferSize:         max(bufferSize, 1),
		stopChannel:        make(chan struct{}),
		publishChannel:     make(chan publication[TID, TPayload]),
		finishChannel:      make(chan TID),
		subscribeChannel:   make(chan subscription[TID, TPayload]),
		unsubscribeChannel: make(chan subscription[TID, TPayload]),
	}
}

// Start handles publish, finish, subscribe and unsubscribe events. It blocks until Stop is called, so it should be
// called in a goroutine.
func (b *ChannelBroker[TID, TPayload]) Start() {
	latest := map[TID]TPayload{}
	subscribers := map[TID][]chan TPayload{}
	finished := map[TID]TPayload{}
	var finishedOrder []TID

	send := func(c chan TPayload, payload TPayload) {
		select {
		case c <- payload:
		default:
			// Slow subscriber, drop the payload for it.
		}
	}

	for {
		select {
		case <-b.stopChannel:
			for _, list := range subscribers {
				for _, c := range list {
					close(c)
				}
			}
			return

		case s := <-b.subscribeChannel:
			if payload, ok := finished[s.ID]; ok {
				s.Channel <- payload
				close(s.Channel)
				break
			}
			if payload, ok := latest[s.ID]; ok {
				s.Channel <- payload
			}
			subscribers[s.ID] = append(subscribers[s.ID], s.Channel)

		case s := <-b.unsubscribeChannel:
			list := subscribers[s.ID]
			for i, c := range list {
				if c == s.Channel {
					close(c)
					subscribers[s.ID] = append(list[:i], list[i+1:]...)
					break
				}
			}
			if len(subscribers[s.ID]) == 0 {
				delete(subscribers, s.ID)
			}

		case p := <-b.publishChannel:
			latest[p.ID] = p.Payload
			for _, c := range subscribers[p.ID] {
				send(c, p.Payload)
			}

		case id := <-b.finishChannel:
			for _, c := range subscribers[id] {
				close(c)
			}
			delete(subscribers, id)
			if payload, ok := latest[id]; ok {
				delete(latest, id)
				finished[id] = payload
				finishedOrder = append(finishedOrder, id)
				if len(finishedOrder) > finishedCapacity {
					delete(finished, finishedOrder[0])
					finishedOrder = finishedOrder[1:]
				}
			}
		}
	}
}

// Stop the goroutine that handles the broker. Open subscriptions are closed.
func (b *ChannelBroker[TID, TPayload]) Stop() {
	close(b.stopChannel)
}

// Publish sends payload to the current subscribers of id and remembers it for future ones.
func (b *ChannelBroker[TID, TPayload]) Publish(id TID, payload TPayload) {
	select {
	case b.publishChannel <- publication[TID, TPayload]{ID: id, Payload: payload}:
	case <-b.stopChannel:
	}
}

// Finish closes every subscription of id. Subscribers joining afterwards receive the last payload and a closed
// channel.
func (b *ChannelBroker[TID, TPayload]) Finish(id TID) {
	select {
	case b.finishChannel <- id:
	case <-b.stopChannel:
	}
}

// Subscribe to the payloads of id. The returned channel is closed when id finishes, when unsubscribe is called or
// when the broker stops. Subscribing to an id nobody has published yet is fine, payloads arrive once it starts.
func (b *ChannelBroker[TID, TPayload]) Subscribe(id TID) (<-chan TPayload, func()) {
	channel := make(chan TPayload, b.bufferSize)
	s := subscription[TID, TPayload]{ID: id, Channel: channel}
	select {
	case b.subscribeChannel <- s:
	case <-b.stopChannel:
		close(channel)
		return channel, func() {}
	}
	unsubscribe := func() {
		select {
		case b.unsubscribeChannel <- s:
		case <-b.stopChannel:
		}
	}
	return channel, unsubscribe
}

package protocol

// FollowerChannel carries FollowerMessage values from whatever is serving
// requests (the rendezvous socket worker, or an in-process follower) to the
// leader's dispatch loop. LeaderChannel carries the paired reply back.
//
// Both channels are created with capacity 0: a rendezvous channel. This is
// the concurrency control named in spec §5 — the socket-serving worker
// cannot enqueue a second request until the leader has consumed the
// previous reply, so a request and its reply can never be mis-paired
// across connections. Several goroutines may call Send concurrently (the
// socket-accept worker and the in-process follower messenger both do): a
// reply is only sent after its request was received, and only the sender
// whose request was received is waiting on the reply channel.
type FollowerChannel struct {
	requests chan FollowerMessage
	replies  chan LeaderReply
}

// NewFollowerChannel creates a fresh zero-capacity channel pair.
func NewFollowerChannel() FollowerChannel {
	return FollowerChannel{
		requests: make(chan FollowerMessage),
		replies:  make(chan LeaderReply),
	}
}

// Send delivers msg to the leader loop and blocks for its reply. Closing
// done unblocks a Send that would otherwise wait forever, returning ok=false.
func (c FollowerChannel) Send(msg FollowerMessage, done <-chan struct{}) (LeaderReply, bool) {
	select {
	case c.requests <- msg:
	case <-done:
		return LeaderReply{}, false
	}
	select {
	case reply := <-c.replies:
		return reply, true
	case <-done:
		return LeaderReply{}, false
	}
}

// Recv is called from the leader's dispatch loop: it blocks for the next
// request and returns a function to deliver the matching reply.
func (c FollowerChannel) Recv() (FollowerMessage, func(LeaderReply)) {
	msg := <-c.requests
	return msg, func(reply LeaderReply) {
		c.replies <- reply
	}
}

// Package protocol defines the wire and in-process message types exchanged
// between a supergraph-dev follower and the leader session, the
// length-delimited socket codec that carries them remotely, and the
// zero-capacity channel pair that carries them in-process.
package protocol

import "fmt"

// SubgraphKey uniquely identifies a subgraph within a leader's registry.
// Keys compare as (Name, RoutingURL) pairs: adding the exact same key twice
// is a conflict, while two keys with the same Name but different URL are
// distinct entries (see registry.Add).
type SubgraphKey struct {
	Name       string `json:"name"`
	RoutingURL string `json:"routing_url"`
}

func (k SubgraphKey) String() string {
	return fmt.Sprintf("%s (%s)", k.Name, k.RoutingURL)
}

// SubgraphKeys is a snapshot of registered keys, sorted deterministically
// by Name then RoutingURL before being handed out (see registry.List).
type SubgraphKeys []SubgraphKey

// SubgraphEntry is an immutable (key, SDL) pair as carried in Add/Update
// messages. SDL is opaque to the core: it is never parsed here.
type SubgraphEntry struct {
	Key SubgraphKey `json:"key"`
	SDL string      `json:"sdl"`
}

// FollowerMessageKind is the tagged-variant payload of a FollowerMessage.
// At most one field is meaningful per Kind; json encodes Kind as the
// variant discriminator.
type FollowerMessageKind string

const (
	KindAddSubgraph    FollowerMessageKind = "AddSubgraph"
	KindUpdateSubgraph FollowerMessageKind = "UpdateSubgraph"
	KindRemoveSubgraph FollowerMessageKind = "RemoveSubgraph"
	KindGetSubgraphs   FollowerMessageKind = "GetSubgraphs"
	KindHealthCheck    FollowerMessageKind = "HealthCheck"
	KindGetVersion     FollowerMessageKind = "GetVersion"
	KindShutdown       FollowerMessageKind = "Shutdown"
)

// FollowerMessage is sent from a follower (or the leader's own watchers, in
// which case FromMainSession is true) to the leader's dispatch loop.
type FollowerMessage struct {
	FromMainSession bool                `json:"from_main_session"`
	Kind            FollowerMessageKind `json:"kind"`

	Subgraph       *SubgraphEntry `json:"subgraph,omitempty"`
	SubgraphName   string         `json:"subgraph_name,omitempty"`
	FollowerVersion string        `json:"follower_version,omitempty"`
}

// AddSubgraph builds the message that registers a new subgraph.
func AddSubgraph(entry SubgraphEntry, fromMain bool) FollowerMessage {
	return FollowerMessage{FromMainSession: fromMain, Kind: KindAddSubgraph, Subgraph: &entry}
}

// UpdateSubgraph builds the message that replaces a subgraph's SDL.
func UpdateSubgraph(entry SubgraphEntry, fromMain bool) FollowerMessage {
	return FollowerMessage{FromMainSession: fromMain, Kind: KindUpdateSubgraph, Subgraph: &entry}
}

// RemoveSubgraph builds the message that detaches a subgraph by name.
func RemoveSubgraph(name string, fromMain bool) FollowerMessage {
	return FollowerMessage{FromMainSession: fromMain, Kind: KindRemoveSubgraph, SubgraphName: name}
}

// GetSubgraphs builds the message that requests the current registry snapshot.
func GetSubgraphs(fromMain bool) FollowerMessage {
	return FollowerMessage{FromMainSession: fromMain, Kind: KindGetSubgraphs}
}

// HealthCheck builds the message used by a prospective leader to confirm a
// rendezvous socket is already served.
func HealthCheck(fromMain bool) FollowerMessage {
	return FollowerMessage{FromMainSession: fromMain, Kind: KindHealthCheck}
}

// GetVersion builds the version-handshake message; followerVersion is
// echoed back by the leader alongside its own version.
func GetVersion(followerVersion string, fromMain bool) FollowerMessage {
	return FollowerMessage{FromMainSession: fromMain, Kind: KindGetVersion, FollowerVersion: followerVersion}
}

// Shutdown builds the cooperative-teardown message.
func Shutdown(fromMain bool) FollowerMessage {
	return FollowerMessage{FromMainSession: fromMain, Kind: KindShutdown}
}

// LeaderReplyKind is the tagged-variant discriminator of a LeaderReply.
type LeaderReplyKind string

const (
	ReplyMessageReceived    LeaderReplyKind = "MessageReceived"
	ReplyCompositionSuccess LeaderReplyKind = "CompositionSuccess"
	ReplyErrorNotification  LeaderReplyKind = "ErrorNotification"
	ReplyLeaderSessionInfo  LeaderReplyKind = "LeaderSessionInfo"
	ReplyGetVersion         LeaderReplyKind = "GetVersion"
)

// LeaderReply is sent from the leader's dispatch loop back to whichever
// messenger (in-process or socket) is waiting on the paired reply channel.
type LeaderReply struct {
	Kind LeaderReplyKind `json:"kind"`

	Action          string       `json:"action,omitempty"`
	Error           string       `json:"error,omitempty"`
	Subgraphs       SubgraphKeys `json:"subgraphs,omitempty"`
	FollowerVersion string       `json:"follower_version,omitempty"`
	LeaderVersion   string       `json:"leader_version,omitempty"`
}

// MessageReceived is the reply for messages handled with no schema change.
func MessageReceived() LeaderReply {
	return LeaderReply{Kind: ReplyMessageReceived}
}

// CompositionSuccess reports that a schema-changing action produced a new
// supergraph schema. action is a human sentence fragment, e.g. "adding 'posts'".
func CompositionSuccess(action string) LeaderReply {
	return LeaderReply{Kind: ReplyCompositionSuccess, Action: action}
}

// ErrorNotification surfaces a human-readable error to the requesting peer.
func ErrorNotification(err error) LeaderReply {
	return LeaderReply{Kind: ReplyErrorNotification, Error: err.Error()}
}

// ErrorNotificationString is ErrorNotification for a caller that already
// has a formatted string rather than an error value.
func ErrorNotificationString(msg string) LeaderReply {
	return LeaderReply{Kind: ReplyErrorNotification, Error: msg}
}

// LeaderSessionInfo reports the current registry snapshot.
func LeaderSessionInfo(keys SubgraphKeys) LeaderReply {
	return LeaderReply{Kind: ReplyLeaderSessionInfo, Subgraphs: keys}
}

// GetVersionReply answers a version handshake.
func GetVersionReply(followerVersion, leaderVersion string) LeaderReply {
	return LeaderReply{Kind: ReplyGetVersion, FollowerVersion: followerVersion, LeaderVersion: leaderVersion}
}

// Print renders a reply the way the leader's main loop surfaces it to the
// terminal when it did not originate from the main session itself.
func (r LeaderReply) Print() string {
	switch r.Kind {
	case ReplyErrorNotification:
		return r.Error
	case ReplyCompositionSuccess:
		return fmt.Sprintf("successfully composed after %s", r.Action)
	case ReplyLeaderSessionInfo:
		switch len(r.Subgraphs) {
		case 0:
			return "the main supergraph dev process currently has no subgraphs"
		case 1:
			return "the main supergraph dev process currently has 1 subgraph"
		default:
			return fmt.Sprintf("the main supergraph dev process currently has %d subgraphs", len(r.Subgraphs))
		}
	case ReplyGetVersion:
		return fmt.Sprintf("the main supergraph dev process is running version %s", r.LeaderVersion)
	default:
		return "the main supergraph dev process acknowledged the message, but did not take an action"
	}
}

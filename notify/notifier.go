package notify

import (
	"fmt"

	pubnub "github.com/pubnub/go"
)

// Notifier delivers user-facing messages. The core never renders UI;
// it hands error and progress strings to this sink.
type Notifier interface {
	Publish(userID string, message map[string]any)
}

// PubNubNotifier publishes to the per-user channel the front end
// subscribes to.
type PubNubNotifier struct {
	pn *pubnub.PubNub
}

func NewPubNubNotifier(pn *pubnub.PubNub) *PubNubNotifier {
	return &PubNubNotifier{pn: pn}
}

func (n *PubNubNotifier) Publish(userID string, message map[string]any) {
	channel := fmt.Sprintf("user-%s", userID)
	n.pn.Publish().
		Channel(channel).
		Message(message).
		Execute()
}

// Nop discards every message. Used in tests and when PubNub keys are
// not configured.
type Nop struct{}

func (Nop) Publish(userID string, message map[string]any) {}

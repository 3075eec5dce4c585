package events

import (
	"testing"

	"github.com/earlyvue/go-screening-backend/internal/domain"
)

func TestResultBroadcast_DeliversToSubscriber(t *testing.T) {
	var b ResultBroadcast
	var got []int64

	unsub := b.Subscribe(func(r domain.ResultRecord) { got = append(got, r.ID) })
	b.Publish(domain.ResultRecord{ID: 1})
	b.Publish(domain.ResultRecord{ID: 2})
	unsub()
	b.Publish(domain.ResultRecord{ID: 3})

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("unexpected deliveries: %v", got)
	}
}

func TestResultBroadcast_SecondSubscriberReplacesFirst(t *testing.T) {
	var b ResultBroadcast
	var first, second int

	unsubFirst := b.Subscribe(func(domain.ResultRecord) { first++ })
	b.Subscribe(func(domain.ResultRecord) { second++ })

	// Stale unsubscribe must not remove the new listener.
	unsubFirst()
	b.Publish(domain.ResultRecord{ID: 1})

	if first != 0 || second != 1 {
		t.Fatalf("first=%d second=%d, want 0/1", first, second)
	}
}

func TestResultBroadcast_PublishWithoutSubscriberIsNoop(t *testing.T) {
	var b ResultBroadcast
	b.Publish(domain.ResultRecord{ID: 1}) // must not panic
}

/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import (
	"testing"
	"time"
)

func TestPublishReachesSubscribers(t *testing.T) {
	t.Parallel()
	bus := NewBus()
	sub := bus.Subscribe(EventNowPlaying)
	other := bus.Subscribe(EventMediaRemoved)

	bus.Publish(EventNowPlaying, Payload{"media_id": "m1"})

	select {
	case payload := <-sub:
		if payload["media_id"] != "m1" {
			t.Fatalf("payload = %v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber never received the event")
	}

	select {
	case payload := <-other:
		t.Fatalf("wrong event type delivered: %v", payload)
	default:
	}
}

func TestPublishDropsWhenSubscriberIsFull(t *testing.T) {
	t.Parallel()
	bus := NewBus()
	sub := bus.Subscribe(EventPlayerProgress)

	// Overfill the subscriber; the publisher must never block.
	for i := 0; i < 32; i++ {
		bus.Publish(EventPlayerProgress, Payload{"tick": i})
	}

	received := 0
	for {
		select {
		case <-sub:
			received++
			continue
		default:
		}
		break
	}
	if received == 0 || received > cap(sub) {
		t.Fatalf("received = %d, want between 1 and %d", received, cap(sub))
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()
	bus := NewBus()
	sub := bus.Subscribe(EventPlayerState)
	bus.Unsubscribe(EventPlayerState, sub)

	if _, open := <-sub; open {
		t.Fatal("channel should be closed after unsubscribe")
	}

	// Publishing afterwards must not panic on the removed subscriber.
	bus.Publish(EventPlayerState, Payload{"state": "playing"})
}

package analysis

import (
	"context"
	"testing"
	"time"
)

func collect(t *testing.T, ch <-chan string) []string {
	t.Helper()
	var got []string
	timeout := time.After(2 * time.Second)
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, msg)
		case <-timeout:
			t.Fatalf("timed out waiting for messages, got %v", got)
		}
	}
}

func TestProgressLogReplayForLateSubscriber(t *testing.T) {
	log := NewProgressLog()
	log.Append("step one")
	log.Append("step two")
	log.Close()

	got := collect(t, log.Subscribe(context.Background()))
	want := []string{"step one", "step two", DoneSentinel}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestProgressLogLiveSubscriberSeesSentinel(t *testing.T) {
	log := NewProgressLog()
	ch := log.Subscribe(context.Background())

	go func() {
		log.Append("working")
		log.Close()
	}()

	got := collect(t, ch)
	if len(got) == 0 || got[len(got)-1] != DoneSentinel {
		t.Fatalf("stream must end with sentinel, got %v", got)
	}
}

func TestProgressLogAllSubscribersSeeSameHistory(t *testing.T) {
	log := NewProgressLog()
	early := log.Subscribe(context.Background())
	log.Append("a")
	log.Append("b")
	log.Close()
	late := log.Subscribe(context.Background())

	gotEarly := collect(t, early)
	gotLate := collect(t, late)
	if len(gotEarly) != len(gotLate) {
		t.Fatalf("early %v and late %v diverge", gotEarly, gotLate)
	}
	for i := range gotEarly {
		if gotEarly[i] != gotLate[i] {
			t.Errorf("message %d: early %q, late %q", i, gotEarly[i], gotLate[i])
		}
	}
}

func TestProgressLogAppendAfterCloseIsNoOp(t *testing.T) {
	log := NewProgressLog()
	log.Append("only")
	log.Close()
	log.Append("ignored")
	log.Close()

	got := log.Snapshot()
	if len(got) != 2 || got[0] != "only" || got[1] != DoneSentinel {
		t.Fatalf("unexpected log contents %v", got)
	}
}

func TestProgressLogSubscriberCancellation(t *testing.T) {
	log := NewProgressLog()
	ctx, cancel := context.WithCancel(context.Background())
	ch := log.Subscribe(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			// A message raced the cancel; the channel must still close.
			if _, ok := <-ch; ok {
				t.Fatal("channel did not close after cancellation")
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not end after cancellation")
	}
}

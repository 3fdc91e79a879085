package dashboard

import (
	"testing"

	"github.com/user/blocklist-service/internal/entity"
)

func TestHub_PublishClosesFullSubscriber(t *testing.T) {
	h := NewHub(1)
	ch, cancel := h.Subscribe(nil)
	defer cancel()
	other, cancelOther := h.Subscribe(nil)
	defer cancelOther()

	for i := 0; i < 5; i++ {
		h.Publish(Message{Type: MessageNotice, Notice: &entity.Notice{Message: "n"}})
		<-other
	}

	got := 0
	for range ch {
		got++
	}
	if got != 2 {
		t.Errorf("delivered before close = %d, want 2", got)
	}
	if h.size() != 1 {
		t.Errorf("size = %d, want only the draining subscriber", h.size())
	}
	cancel()
	if h.size() != 1 {
		t.Errorf("cancel after drop changed size to %d", h.size())
	}
}

func TestHub_FirstMessageComesFirst(t *testing.T) {
	h := NewHub(4)
	ch, cancel := h.Subscribe(func() Message { return Message{Type: MessageSnapshot} })
	defer cancel()
	h.Publish(Message{Type: MessageRow})

	if m := <-ch; m.Type != MessageSnapshot {
		t.Errorf("first = %s", m.Type)
	}
	if m := <-ch; m.Type != MessageRow {
		t.Errorf("second = %s", m.Type)
	}
}

func TestHub_CancelIsIdempotent(t *testing.T) {
	h := NewHub(1)
	ch, cancel := h.Subscribe(nil)
	if h.size() != 1 {
		t.Fatalf("size = %d", h.size())
	}
	cancel()
	cancel()
	if h.size() != 0 {
		t.Errorf("size = %d after cancel", h.size())
	}
	if _, ok := <-ch; ok {
		t.Error("channel should be closed")
	}
	h.Publish(Message{Type: MessageRow})
}

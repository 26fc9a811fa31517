package bus

import (
	"testing"

	"github.com/clevi2003/memory-hierarchy-simulator/internal/result"
)

type recordingListener struct {
	height int
	got    []result.EvictedFrame
}

func (r *recordingListener) Height() int { return r.height }
func (r *recordingListener) OnPageEvicted(e result.EvictedFrame) {
	r.got = append(r.got, e)
}

func TestPublishNotifiesInHeightOrder(t *testing.T) {
	var order []int
	near := &orderTrackingListener{height: 0, order: &order}
	far := &orderTrackingListener{height: 1, order: &order}

	// Registered out of height order; the bus must still notify the
	// closer-to-CPU (lower height) listener first.
	b := New(far, near)
	b.PublishPageEvicted(result.EvictedFrame{PPN: 1, VPN: 2})

	if len(order) != 2 || order[0] != 0 || order[1] != 1 {
		t.Fatalf("expected notification order [0,1], got %v", order)
	}
}

type orderTrackingListener struct {
	height int
	order  *[]int
}

func (o *orderTrackingListener) Height() int { return o.height }
func (o *orderTrackingListener) OnPageEvicted(result.EvictedFrame) {
	*o.order = append(*o.order, o.height)
}

func TestPublishDeliversToAllListeners(t *testing.T) {
	a := &recordingListener{height: 0}
	c := &recordingListener{height: 1}
	b := New(a, c)

	frame := result.EvictedFrame{PPN: 3, VPN: 4}
	b.PublishPageEvicted(frame)

	if len(a.got) != 1 || a.got[0] != frame {
		t.Fatalf("listener a did not receive the frame: %+v", a.got)
	}
	if len(c.got) != 1 || c.got[0] != frame {
		t.Fatalf("listener c did not receive the frame: %+v", c.got)
	}
}

//go:build rp2040 || rp2350

package picow

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/soypat/cyw43439"
	"github.com/soypat/seqs/stacks"

	"github.com/soypat/icmpdiscard/netact"
)

// suspendedPoll is the Rx polling period while the stack is suspended.
const suspendedPoll = 100 * time.Millisecond

// nic moves frames between the radio and the stack. While suspended the
// stack is not serviced: no timers run and nothing is transmitted. Rx
// polling continues at a slower pace so an incoming frame wakes the stack.
type nic struct {
	suspended atomic.Bool
	logger    *slog.Logger
}

var _ netact.Stack = (*nic)(nil)

func (n *nic) Suspend() error {
	n.suspended.Store(true)
	return nil
}

func (n *nic) Resume() error {
	n.suspended.Store(false)
	return nil
}

// loop services the stack until stop is closed.
func (n *nic) loop(dev *cyw43439.Device, stack *stacks.PortStack, activity *netact.Handler, stop <-chan struct{}) {
	// Maximum number of packets to queue before sending them.
	const (
		queueSize                = 3
		maxRetriesBeforeDropping = 3
	)
	var queue [queueSize][mtu]byte
	var lenBuf [queueSize]int
	var retries [queueSize]int
	markSent := func(i int) {
		lenBuf[i] = 0
		retries[i] = 0
	}
	for {
		select {
		case <-stop:
			return
		default:
		}
		// Poll for incoming packets. The Rx handler marks activity.
		gotPacket, err := dev.PollOne()
		if err != nil {
			n.logger.Error("nic:poll", slog.String("err", err.Error()))
		}
		stallRx := !gotPacket

		if n.suspended.Load() {
			if stallRx {
				time.Sleep(suspendedPoll)
			}
			continue
		}

		// Queue packets to be sent.
		for i := range queue {
			if retries[i] != 0 {
				continue // Packet currently queued for retransmission.
			}
			buf := queue[i][:]
			lenBuf[i], err = stack.HandleEth(buf[:])
			if err != nil {
				n.logger.Error("nic:stack", slog.Int("n", lenBuf[i]), slog.String("err", err.Error()))
				lenBuf[i] = 0
				continue
			}
			if lenBuf[i] == 0 {
				break
			}
		}
		stallTx := lenBuf == [queueSize]int{}
		if stallTx {
			if stallRx {
				// Avoid busy waiting when both Rx and Tx stall.
				time.Sleep(51 * time.Millisecond)
			}
			continue
		}

		// Send queued packets.
		for i := range queue {
			n := lenBuf[i]
			if n <= 0 {
				continue
			}
			err := dev.SendEth(queue[i][:n])
			if err != nil {
				// Queue packet for retransmission.
				retries[i]++
				if retries[i] > maxRetriesBeforeDropping {
					markSent(i)
				}
			} else {
				activity.Mark()
				markSent(i)
			}
		}
	}
}

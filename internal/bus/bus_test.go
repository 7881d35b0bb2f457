package bus

import (
	"sync"
	"testing"
)

func TestMemBusReadWrite(t *testing.T) {
	b := NewMemBus()

	if got, _ := b.Read(0x100); got != 0 {
		t.Errorf("unwritten register = %d, want 0", got)
	}

	if err := b.Write(0x104, 0x1fff); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := b.Read(0x104)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got != 0x1fff {
		t.Errorf("read = %#x, want 0x1fff", got)
	}
}

func TestReadBatchIsAtomic(t *testing.T) {
	b := NewMemBus()
	b.Apply(func(regs map[uint32]int64) {
		regs[0x108] = 0
		regs[0x10C] = 0
	})

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		var k int64
		for {
			select {
			case <-done:
				return
			default:
			}
			k++
			// Both registers always move together; a torn read
			// would observe two different update instants.
			b.Apply(func(regs map[uint32]int64) {
				regs[0x108] = k
				regs[0x10C] = k
			})
		}
	}()

	for i := 0; i < 1000; i++ {
		words, err := b.ReadBatch([]uint32{0x108, 0x10C})
		if err != nil {
			t.Fatalf("batch read: %v", err)
		}
		if words[0] != words[1] {
			t.Fatalf("torn snapshot: %d != %d", words[0], words[1])
		}
	}
	close(done)
	wg.Wait()
}

package thread

import "testing"

func TestFIFOSchedulerOrdering(t *testing.T) {
	s := NewFIFOScheduler()
	s.Push(3)
	s.Push(1)
	s.Push(2)

	for _, want := range []ID{3, 1, 2} {
		got, ok := s.Pop()
		if !ok || got != want {
			t.Fatalf("expected %d, got %d ok=%t", want, got, ok)
		}
	}

	if _, ok := s.Pop(); ok {
		t.Fatal("expected Pop on an empty scheduler to return false")
	}
}

func TestFIFOSchedulerRemove(t *testing.T) {
	s := NewFIFOScheduler()
	s.Push(1)
	s.Push(2)
	s.Push(3)

	s.Remove(2)

	for _, want := range []ID{1, 3} {
		got, ok := s.Pop()
		if !ok || got != want {
			t.Fatalf("expected %d, got %d ok=%t", want, got, ok)
		}
	}
}

func TestFIFOSchedulerRemoveMissingIsNoop(t *testing.T) {
	s := NewFIFOScheduler()
	s.Push(1)
	s.Remove(99)

	got, ok := s.Pop()
	if !ok || got != 1 {
		t.Fatalf("expected 1, got %d ok=%t", got, ok)
	}
}

func TestFIFOSchedulerWrapsAroundRingBuffer(t *testing.T) {
	s := NewFIFOScheduler()

	// Fill and drain repeatedly so head/size wrap past the end of the
	// backing array, exercising the modulo arithmetic.
	for round := 0; round < 3; round++ {
		for i := ID(0); i < MaxThreads-1; i++ {
			s.Push(i)
		}
		for i := ID(0); i < MaxThreads-1; i++ {
			got, ok := s.Pop()
			if !ok || got != i {
				t.Fatalf("round %d: expected %d, got %d ok=%t", round, i, got, ok)
			}
		}
	}
}

func TestFIFOSchedulerOverflowPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected pushing beyond capacity to panic")
		}
	}()

	s := NewFIFOScheduler()
	for i := 0; i < MaxThreads+1; i++ {
		s.Push(ID(i % MaxThreads))
	}
}

package thread

import "testing"

func TestTableAddLookupRemove(t *testing.T) {
	tb := newTable()

	tcr := &TCR{status: Ready}
	id, ok := tb.add(tcr)
	if !ok {
		t.Fatal("expected add to succeed")
	}
	if tcr.id != id {
		t.Fatalf("expected add to stamp the returned id onto the tcr, got %d want %d", tcr.id, id)
	}

	if got := tb.lookup(id); got != tcr {
		t.Fatal("expected lookup to return the added tcr")
	}

	got := tb.remove(id)
	if got != tcr {
		t.Fatal("expected remove to return the added tcr")
	}
	if tb.lookup(id) != nil {
		t.Fatal("expected lookup after remove to return nil")
	}
}

func TestTableRemoveUnknownPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected remove of an unknown id to panic")
		}
	}()

	tb := newTable()
	tb.remove(0)
}

func TestTableBorrowRestore(t *testing.T) {
	tb := newTable()
	tcr := &TCR{status: Ready}
	id, _ := tb.add(tcr)

	borrowed := tb.borrow(id)
	if borrowed != tcr {
		t.Fatal("expected borrow to return the added tcr")
	}

	borrowed.status = Running
	tb.restore(borrowed)

	if got := tb.lookup(id); got.status != Running {
		t.Fatal("expected restore to make mutations visible again")
	}
}

func TestTableBorrowReentrancyPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected re-entrant borrow to panic")
		}
	}()

	tb := newTable()
	id, _ := tb.add(&TCR{status: Ready})
	tb.borrow(id)
	tb.borrow(id)
}

func TestTableReleaseReservedFreesID(t *testing.T) {
	tb := newTable()
	id, _ := tb.add(&TCR{status: Dying})
	tb.borrow(id)
	tb.releaseReserved(id)

	newID, ok := tb.add(&TCR{status: Ready})
	if !ok || newID != id {
		t.Fatalf("expected released id %d to be reused, got %d ok=%t", id, newID, ok)
	}
}

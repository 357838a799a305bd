package thread

import "testing"

// withNoopSwitch installs a contextSwitch that does nothing and returns
// immediately, then calls Init. Since afterSwitch only ever reads the
// runtime's own bookkeeping (rt.current, rt.handoff), never the physical
// stack, a no-op switch is a faithful stand-in for the real one when what's
// under test is that bookkeeping rather than the actual register swap or a
// freshly created thread's first entry into its body — which, like the rest
// of this kernel's hardware seams, is exercised by the assembly itself, not
// by a hosted unit test.
func withNoopSwitch(t *testing.T) {
	t.Helper()
	origSwitch := contextSwitch
	contextSwitch = func(from, to *TCR) {}
	t.Cleanup(func() { contextSwitch = origSwitch })

	if err := Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { rt = nil })
}

func TestInitBootstrapsKernelAndIdleThreads(t *testing.T) {
	withNoopSwitch(t)

	kernelID := RunningID()
	kernelTCR := rt.table.lookup(kernelID)
	if kernelTCR.status != Running {
		t.Fatalf("expected kernel thread Running, got %v", kernelTCR.status)
	}
	if kernelTCR.ownsStack {
		t.Fatal("kernel thread must not own its stack")
	}

	idleTCR := rt.table.lookup(rt.idleID)
	if idleTCR == nil {
		t.Fatal("expected idle thread to be installed in the table")
	}
	if !idleTCR.ownsStack {
		t.Fatal("idle thread should own an allocated stack")
	}
}

func TestCreatePushesOntoScheduler(t *testing.T) {
	withNoopSwitch(t)

	id, err := Create(func(interface{}) int { return 0 }, nil, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	popped, ok := rt.scheduler.Pop()
	if !ok || popped != id {
		t.Fatalf("expected %d at the front of the ready queue, got %d ok=%t", id, popped, ok)
	}
}

func TestYieldFallsBackToIdleWhenSchedulerEmpty(t *testing.T) {
	withNoopSwitch(t)

	// Block, unlike Yield, does not put the caller back in the ready set,
	// so the scheduler is still empty when yield pops from it.
	Block()

	if RunningID() != rt.idleID {
		t.Fatalf("expected idle thread to run, got id %d", RunningID())
	}
}

func TestYieldSwitchesToScheduledThread(t *testing.T) {
	withNoopSwitch(t)

	kernelID := RunningID()
	createdID, err := Create(func(interface{}) int { return 0 }, nil, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	Yield()

	if RunningID() != createdID {
		t.Fatalf("expected %d to be scheduled, got %d", createdID, RunningID())
	}

	kernelTCR := rt.table.lookup(kernelID)
	if kernelTCR.status != Ready {
		t.Fatalf("expected kernel thread Ready after yielding, got %v", kernelTCR.status)
	}
}

func TestWakeUnknownOrNotBlockedReturnsError(t *testing.T) {
	withNoopSwitch(t)

	if err := Wake(ID(99)); err == nil {
		t.Fatal("expected an error waking an unknown id")
	}

	kernelID := RunningID()
	if err := Wake(kernelID); err == nil {
		t.Fatal("expected an error waking a thread that is not Blocked")
	}
}

func TestWakePushesBlockedThreadBackToScheduler(t *testing.T) {
	withNoopSwitch(t)

	tcr := &TCR{status: Blocked, ownsStack: false}
	id, ok := rt.table.add(tcr)
	if !ok {
		t.Fatal("table.add failed")
	}

	if err := Wake(id); err != nil {
		t.Fatalf("Wake: %v", err)
	}

	if tcr.status != Ready {
		t.Fatalf("expected Ready after Wake, got %v", tcr.status)
	}
	popped, ok := rt.scheduler.Pop()
	if !ok || popped != id {
		t.Fatalf("expected %d in the ready queue after Wake, got %d ok=%t", id, popped, ok)
	}
}

func TestKillRemovesReadyThread(t *testing.T) {
	withNoopSwitch(t)

	id, err := Create(func(interface{}) int { return 0 }, nil, 0)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := Kill(id); err != nil {
		t.Fatalf("Kill: %v", err)
	}

	if rt.table.lookup(id) != nil {
		t.Fatal("expected the killed thread's TCR to be removed from the table")
	}
}

func TestKillPanicsOnRunningThread(t *testing.T) {
	withNoopSwitch(t)

	defer func() {
		if recover() == nil {
			t.Fatal("expected killing the running thread to panic")
		}
	}()
	Kill(RunningID())
}

func TestKillPanicsOnIdleThread(t *testing.T) {
	withNoopSwitch(t)

	defer func() {
		if recover() == nil {
			t.Fatal("expected killing the idle thread to panic")
		}
	}()
	Kill(rt.idleID)
}

func TestKillWakesJoiners(t *testing.T) {
	withNoopSwitch(t)

	target := &TCR{status: Blocked, ownsStack: false}
	targetID, _ := rt.table.add(target)

	joiner := &TCR{status: Blocked, ownsStack: false}
	joinerID, _ := rt.table.add(joiner)
	target.waiters = []ID{joinerID}

	if err := Kill(targetID); err != nil {
		t.Fatalf("Kill: %v", err)
	}

	if joiner.status != Ready {
		t.Fatalf("expected joiner Ready after target was killed, got %v", joiner.status)
	}
	if joiner.joinResult != -1 {
		t.Fatalf("expected join result -1 for a killed thread, got %d", joiner.joinResult)
	}
}

func TestJoinOnAlreadyDyingReturnsExitStatusImmediately(t *testing.T) {
	withNoopSwitch(t)

	tcr := &TCR{status: Dying, exitStatus: 42}
	id, _ := rt.table.add(tcr)

	code, err := Join(id)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if code != 42 {
		t.Fatalf("expected exit status 42, got %d", code)
	}
}

func TestJoinOnUnknownIDReturnsError(t *testing.T) {
	withNoopSwitch(t)

	if _, err := Join(ID(99)); err == nil {
		t.Fatal("expected an error joining an unknown id")
	}
}

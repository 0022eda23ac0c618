package main

import (
	"context"
	"testing"
)

func newTestGame(seed int64) *Game {
	g := newGame(seed, newMemoryLeaderboard(), nil)
	g.manualTicks = true
	return g
}

func startPlaying(t *testing.T, g *Game) {
	t.Helper()
	g.StartGame()
	if g.phase != PhasePlaying {
		t.Fatalf("StartGame phase = %q, want %q", g.phase, PhasePlaying)
	}
}

// queueCustomer puts a customer with a known order at the head of the queue.
func queueCustomer(g *Game, order Order) {
	g.nextCustomerID++
	c := &Customer{
		ID:              g.nextCustomerID,
		Name:            "Alex",
		Order:           order,
		PatienceSeconds: basePatienceSeconds + patiencePerDay*g.day,
		Claim:           ClaimNone,
	}
	g.queue = append([]*Customer{c}, g.queue...)
}

func paintWholeCar(g *Game) {
	for y := 0; y < 6; y++ {
		for x := 0; x < 10; x++ {
			g.PaintSample(float64(x), float64(y))
		}
	}
}

// driveBuild walks the active order through every station installing the
// given parts, ending at checkout.
func driveBuild(t *testing.T, g *Game, parts Order) {
	t.Helper()
	g.SelectFrame(parts.Frame)
	g.SetColor(parts.Color)
	paintWholeCar(g)
	g.SelectTires(parts.Tires)
	for pos := 0; pos < requiredWheelCount(parts.Frame); pos++ {
		g.InstallTire(pos)
	}
	g.SelectEngine(parts.Engine)
	g.DropEngine(true)
	if g.station != StationCheckout {
		t.Fatalf("driveBuild ended at station %q, want %q", g.station, StationCheckout)
	}
}

func TestDailyQuotaFormula(t *testing.T) {
	for day := 1; day <= 12; day++ {
		if got := dailyQuota(day); got != day+2 {
			t.Fatalf("dailyQuota(%d) = %d, want %d", day, got, day+2)
		}
	}
}

func TestStartGameResetsSession(t *testing.T) {
	g := newTestGame(1)
	g.StartGame()

	if g.day != 1 || g.score != 0 || g.coins != startingCoins {
		t.Fatalf("fresh session = day %d score %d coins %d", g.day, g.score, g.coins)
	}
	if g.dayTimeLeft != daySeconds {
		t.Fatalf("dayTimeLeft = %d, want %d", g.dayTimeLeft, daySeconds)
	}
	if g.upgrades != (Upgrades{PaintSpeed: 1, TireSpeed: 1, EngineSpeed: 1}) {
		t.Fatalf("upgrades not reset: %+v", g.upgrades)
	}
	if g.station != StationOrders {
		t.Fatalf("station = %q, want %q", g.station, StationOrders)
	}
}

func TestStartGameIgnoredMidRun(t *testing.T) {
	g := newTestGame(1)
	startPlaying(t, g)
	g.score = 70
	g.StartGame()
	if g.score != 70 {
		t.Fatalf("StartGame during play reset the session, score = %d", g.score)
	}
}

func TestCustomerGeneration(t *testing.T) {
	g := newTestGame(7)
	startPlaying(t, g)

	if len(g.queue) != 4 {
		t.Fatalf("day 1 queue length = %d, want 4", len(g.queue))
	}
	for _, c := range g.queue {
		if c.PatienceSeconds != 130 {
			t.Fatalf("day 1 patience = %d, want 130", c.PatienceSeconds)
		}
		if c.Claim != ClaimNone {
			t.Fatalf("freshly queued customer claim = %q", c.Claim)
		}
		if !validFrame(c.Order.Frame) || !validColor(c.Order.Color) ||
			!validTires(c.Order.Tires) || !validEngine(c.Order.Engine) {
			t.Fatalf("order drawn outside the catalogs: %+v", c.Order)
		}
	}

	g.day = 3
	g.queue = nil
	g.generateCustomersLocked()
	if len(g.queue) != 5 {
		t.Fatalf("day 3 queue length = %d, want capped 5", len(g.queue))
	}
	if g.queue[0].PatienceSeconds != 150 {
		t.Fatalf("day 3 patience = %d, want 150", g.queue[0].PatienceSeconds)
	}
}

func TestQueueRefillRule(t *testing.T) {
	g := newTestGame(3)
	startPlaying(t, g)

	g.TakeOrder()
	g.queue = nil
	g.maybeRefillQueueLocked()
	if len(g.queue) != 0 {
		t.Fatalf("queue refilled while player mid-order")
	}

	g.clearActiveOrderLocked()
	g.assistantCustomer = &Customer{ID: 99, Claim: ClaimAssistant}
	g.maybeRefillQueueLocked()
	if len(g.queue) != 0 {
		t.Fatalf("queue refilled while assistant mid-order")
	}

	g.clearAssistantLocked()
	g.maybeRefillQueueLocked()
	if len(g.queue) == 0 {
		t.Fatalf("queue not refilled once everyone is idle")
	}
}

func TestDayClockCountdown(t *testing.T) {
	g := newTestGame(5)
	startPlaying(t, g)

	g.tickDayClockLocked()
	if g.dayTimeLeft != daySeconds-1 {
		t.Fatalf("dayTimeLeft after one tick = %d, want %d", g.dayTimeLeft, daySeconds-1)
	}
	if g.phase != PhasePlaying {
		t.Fatalf("phase after one tick = %q", g.phase)
	}
}

func TestDayClockExpiryAbandonsActiveBuild(t *testing.T) {
	g := newTestGame(5)
	startPlaying(t, g)
	g.TakeOrder()
	g.SelectFrame("sedan")

	g.dayTimeLeft = 1
	g.tickDayClockLocked()

	if g.phase != PhaseDayEnd {
		t.Fatalf("phase after expiry = %q, want %q", g.phase, PhaseDayEnd)
	}
	if g.activeCustomer != nil || g.build != nil {
		t.Fatalf("active order not cleared on expiry")
	}
	if g.customersServedToday != 1 || g.totalCarsBuilt != 1 {
		t.Fatalf("abandoned order counters = served %d built %d, want 1/1", g.customersServedToday, g.totalCarsBuilt)
	}
	if g.coins != startingCoins || g.score != 0 {
		t.Fatalf("abandoned order paid out: coins %d score %d", g.coins, g.score)
	}
	if g.lastResult == nil || !g.lastResult.TimedOut || g.lastResult.Stars != 0 {
		t.Fatalf("abandoned result = %+v", g.lastResult)
	}
}

func TestDanglingTickAfterPhaseExitIsNoop(t *testing.T) {
	g := newTestGame(5)
	startPlaying(t, g)
	stale := g.epoch

	g.dayTimeLeft = 1
	g.tickDayClockLocked()
	if g.phase != PhaseDayEnd {
		t.Fatalf("phase = %q, want %q", g.phase, PhaseDayEnd)
	}

	before := g.customersServedToday
	if g.stepDayClock(stale) {
		t.Fatalf("stale day-clock tick reported live")
	}
	if g.stepAssistant(stale) {
		t.Fatalf("stale assistant tick reported live")
	}
	if g.customersServedToday != before {
		t.Fatalf("stale tick mutated the session")
	}
}

func TestRatingReturnsToPlayingBelowTarget(t *testing.T) {
	g := newTestGame(2)
	startPlaying(t, g)
	queueCustomer(g, Order{Frame: "sedan", Color: "red", Tires: "sport", Engine: "turbo"})
	g.TakeOrder()
	driveBuild(t, g, Order{Frame: "sedan", Color: "red", Tires: "sport", Engine: "turbo"})
	g.Deliver()

	if g.phase != PhaseRating {
		t.Fatalf("phase after deliver = %q, want %q", g.phase, PhaseRating)
	}
	g.finishRating(g.epoch)
	if g.phase != PhasePlaying {
		t.Fatalf("phase after rating = %q, want %q", g.phase, PhasePlaying)
	}
	if g.activeCustomer != nil || g.station != StationOrders {
		t.Fatalf("workstation not reset after rating")
	}
}

func TestRatingGoesToDayEndAtTarget(t *testing.T) {
	g := newTestGame(2)
	startPlaying(t, g)
	g.customersServedToday = dailyCustomerTarget - 1
	queueCustomer(g, Order{Frame: "sedan", Color: "red", Tires: "sport", Engine: "turbo"})
	g.TakeOrder()
	driveBuild(t, g, Order{Frame: "sedan", Color: "red", Tires: "sport", Engine: "turbo"})
	g.Deliver()
	g.finishRating(g.epoch)

	if g.phase != PhaseDayEnd {
		t.Fatalf("phase after fifth serve = %q, want %q", g.phase, PhaseDayEnd)
	}
}

func TestStaleRatingCallbackIsNoop(t *testing.T) {
	g := newTestGame(2)
	startPlaying(t, g)
	queueCustomer(g, Order{Frame: "sedan", Color: "red", Tires: "sport", Engine: "turbo"})
	g.TakeOrder()
	driveBuild(t, g, Order{Frame: "sedan", Color: "red", Tires: "sport", Engine: "turbo"})
	g.Deliver()

	stale := g.epoch
	g.finishRating(stale)
	if g.phase != PhasePlaying {
		t.Fatalf("first rating exit failed, phase = %q", g.phase)
	}
	g.finishRating(stale)
	if g.phase != PhasePlaying {
		t.Fatalf("stale rating callback changed phase to %q", g.phase)
	}
}

func TestAdvanceDayWithQuotaMet(t *testing.T) {
	g := newTestGame(9)
	startPlaying(t, g)
	g.customersServedToday = dailyQuota(g.day)
	g.dayTimeLeft = 1
	g.tickDayClockLocked()
	if g.phase != PhaseDayEnd {
		t.Fatalf("phase = %q, want %q", g.phase, PhaseDayEnd)
	}

	g.AdvanceDay()
	if g.phase != PhasePlaying {
		t.Fatalf("AdvanceDay phase = %q, want %q", g.phase, PhasePlaying)
	}
	if g.day != 2 || g.dayTimeLeft != daySeconds || g.customersServedToday != 0 {
		t.Fatalf("new day state = day %d time %d served %d", g.day, g.dayTimeLeft, g.customersServedToday)
	}
	if len(g.queue) != 0 {
		t.Fatalf("queue should regenerate lazily, got %d customers", len(g.queue))
	}

	// The first state change of the new day refills it.
	g.tickDayClockLocked()
	if len(g.queue) != 5 {
		t.Fatalf("day 2 queue length = %d, want 5", len(g.queue))
	}
}

func TestAdvanceDayRejectedBelowQuota(t *testing.T) {
	g := newTestGame(9)
	startPlaying(t, g)
	g.customersServedToday = dailyQuota(g.day) - 1
	g.dayTimeLeft = 1
	g.tickDayClockLocked()

	g.AdvanceDay()
	if g.phase != PhaseDayEnd || g.day != 1 {
		t.Fatalf("AdvanceDay below quota moved on: phase %q day %d", g.phase, g.day)
	}
}

func TestSubmitScoreRecordsRunAndFreezes(t *testing.T) {
	g := newTestGame(9)
	startPlaying(t, g)
	g.score = 420
	g.totalCarsBuilt = 6
	g.perfectCars = 2
	g.customersServedToday = 1
	g.dayTimeLeft = 1
	g.tickDayClockLocked()

	g.SubmitScore("Rosa")
	if g.phase != PhaseGameOver {
		t.Fatalf("phase after submit = %q, want %q", g.phase, PhaseGameOver)
	}

	entries, err := g.leaderboard.Top(context.Background(), leaderboardSize)
	if err != nil {
		t.Fatalf("leaderboard Top error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("leaderboard entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Name != "Rosa" || e.Score != 420 || e.Day != 1 || e.CarsBuilt != 6 || e.PerfectCars != 2 {
		t.Fatalf("recorded entry = %+v", e)
	}
}

func TestSubmitScoreRejectedWhenQuotaMet(t *testing.T) {
	g := newTestGame(9)
	startPlaying(t, g)
	g.customersServedToday = dailyQuota(g.day)
	g.dayTimeLeft = 1
	g.tickDayClockLocked()

	g.SubmitScore("Rosa")
	if g.phase != PhaseDayEnd {
		t.Fatalf("submit with quota met changed phase to %q", g.phase)
	}
}

func TestReplayAndReturnToMenu(t *testing.T) {
	g := newTestGame(9)
	startPlaying(t, g)
	g.customersServedToday = 0
	g.dayTimeLeft = 1
	g.tickDayClockLocked()
	g.SubmitScore("")

	g.StartGame()
	if g.phase != PhasePlaying || g.coins != startingCoins || g.day != 1 {
		t.Fatalf("replay state = phase %q coins %d day %d", g.phase, g.coins, g.day)
	}

	g.customersServedToday = 0
	g.dayTimeLeft = 1
	g.tickDayClockLocked()
	g.SubmitScore("")
	g.ReturnToMenu()
	if g.phase != PhaseStart {
		t.Fatalf("ReturnToMenu phase = %q, want %q", g.phase, PhaseStart)
	}
}

func TestAssistantClaimsOnlyWhenPlayerIdle(t *testing.T) {
	g := newTestGame(4)
	startPlaying(t, g)
	g.upgrades.MiguelHired = true

	g.TakeOrder()
	g.tickAssistantLocked()
	if g.assistantCustomer != nil {
		t.Fatalf("assistant claimed a customer while the player holds one")
	}

	g.clearActiveOrderLocked()
	g.tickAssistantLocked()
	if g.assistantCustomer == nil {
		t.Fatalf("idle assistant did not claim the queue head")
	}
	if g.assistantCustomer.Claim != ClaimAssistant {
		t.Fatalf("assistant customer claim = %q", g.assistantCustomer.Claim)
	}
	if g.activeCustomer != nil && g.activeCustomer.ID == g.assistantCustomer.ID {
		t.Fatalf("customer owned by both player and assistant")
	}
}

func TestAssistantCompletionPaysFlatReward(t *testing.T) {
	g := newTestGame(4)
	startPlaying(t, g)
	g.upgrades.MiguelHired = true

	g.tickAssistantLocked() // claim
	if g.assistantCustomer == nil {
		t.Fatalf("assistant did not claim")
	}
	for i := 0; i < 200; i++ {
		g.tickAssistantLocked()
	}

	if g.assistantCustomer != nil {
		t.Fatalf("assistant still busy after full progress, at %.1f%%", g.assistantProgress)
	}
	if g.coins != startingCoins+assistantRewardCoins {
		t.Fatalf("coins = %d, want %d", g.coins, startingCoins+assistantRewardCoins)
	}
	if g.score != assistantRewardScore {
		t.Fatalf("score = %d, want %d", g.score, assistantRewardScore)
	}
	if g.customersServedToday != 1 || g.totalCarsBuilt != 1 {
		t.Fatalf("assistant counters = served %d built %d", g.customersServedToday, g.totalCarsBuilt)
	}
}

func TestAssistantCompletionTriggersDayEndAtTarget(t *testing.T) {
	g := newTestGame(4)
	startPlaying(t, g)
	g.upgrades.MiguelHired = true
	g.customersServedToday = dailyCustomerTarget - 1

	g.tickAssistantLocked()
	for i := 0; i < 200; i++ {
		g.tickAssistantLocked()
	}

	if g.phase != PhaseDayEnd {
		t.Fatalf("phase after assistant's fifth serve = %q, want %q", g.phase, PhaseDayEnd)
	}
}

func TestAssistantIdleWithoutHire(t *testing.T) {
	g := newTestGame(4)
	startPlaying(t, g)
	g.tickAssistantLocked()
	if g.assistantCustomer != nil {
		t.Fatalf("unhired assistant claimed a customer")
	}
}

func TestSnapshotDoesNotAliasState(t *testing.T) {
	g := newTestGame(6)
	startPlaying(t, g)
	g.TakeOrder()

	snap := g.Snapshot()
	if snap.ActiveCustomer == nil || snap.Build == nil {
		t.Fatalf("snapshot missing active order")
	}
	snap.ActiveCustomer.Name = "changed"
	snap.Build.Frame = "truck"
	if g.activeCustomer.Name == "changed" || g.build.Frame == "truck" {
		t.Fatalf("snapshot aliases live state")
	}
	if snap.DailyQuota != 3 {
		t.Fatalf("snapshot quota = %d, want 3", snap.DailyQuota)
	}
}

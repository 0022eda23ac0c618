package main

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	hintFrame      = "Select the correct car frame type!"
	hintColor      = "Move your cursor over the car to paint it!"
	hintTires      = "Select tire type, then click on wheel positions!"
	hintTirePlace  = "Click on the wheel positions to install!"
	hintEngine     = "Select engine, then drag it to the engine bay!"
	hintEngineDrag = "Drag the engine to the engine bay!"
	hintCheckout   = "Review the car and deliver it!"
)

// Every handler below guards on phase and station and silently returns when
// the event arrives out of turn. Stray late events (a tire click landing
// after the day ended) are expected traffic, not faults.

func (g *Game) TakeOrder() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != PhasePlaying || g.station != StationOrders || g.activeCustomer != nil {
		return
	}
	g.maybeRefillQueueLocked()
	if len(g.queue) == 0 {
		return
	}

	c := g.takeNextCustomerLocked()
	c.Claim = ClaimPlayer
	g.activeCustomer = c
	order := c.Order
	g.activeOrder = &order
	g.build = &BuildProgress{}
	g.bench = workbench{}
	g.station = StationFrame
	g.hint = hintFrame
}

func (g *Game) SelectFrame(frame FrameType) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != PhasePlaying || g.station != StationFrame || !validFrame(frame) {
		return
	}

	g.build.Frame = frame
	g.station = StationColor
	g.bench.SelectedColor = ""
	g.bench.PaintProgress = 0
	g.bench.PaintedCells = nil
	g.hint = hintColor
	g.notify("chooseCarType")
}

func (g *Game) SetColor(color ColorType) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != PhasePlaying || g.station != StationColor || !validColor(color) {
		return
	}

	g.bench.SelectedColor = color
	g.bench.PaintProgress = 0
	g.bench.PaintedCells = map[string]bool{}
	g.hint = hintColor
}

// PaintSample registers one pointer sample over the car. Coverage is keyed by
// whole-number cell so hovering a single spot never finishes the job.
func (g *Game) PaintSample(x, y float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != PhasePlaying || g.station != StationColor || g.bench.SelectedColor == "" {
		return
	}

	cell := fmt.Sprintf("%d,%d", int(math.Floor(x)), int(math.Floor(y)))
	if g.bench.PaintedCells[cell] {
		return
	}
	if len(g.bench.PaintedCells)%5 == 0 {
		g.notify("spray1")
	}
	g.bench.PaintedCells[cell] = true

	coverage := float64(len(g.bench.PaintedCells)) / paintCoverageCells * 100 * float64(g.upgrades.PaintSpeed)
	g.bench.PaintProgress = clampFloat(coverage, 0, 100)
	if g.bench.PaintProgress < 100 {
		return
	}

	g.build.Color = g.bench.SelectedColor
	g.station = StationTires
	g.bench.SelectedTires = ""
	g.bench.TiresPlaced = nil
	g.hint = hintTires
}

func (g *Game) SelectTires(tires TireType) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != PhasePlaying || g.station != StationTires || !validTires(tires) {
		return
	}

	g.bench.SelectedTires = tires
	g.bench.TiresPlaced = map[int]bool{}
	g.hint = hintTirePlace
	g.notify("drill3")
}

func (g *Game) InstallTire(position int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != PhasePlaying || g.station != StationTires || g.bench.SelectedTires == "" {
		return
	}
	required := requiredWheelCount(g.build.Frame)
	if position < 0 || position >= required || g.bench.TiresPlaced[position] {
		return
	}

	if position%2 == 0 {
		g.notify("drill1")
	} else {
		g.notify("drill2")
	}
	g.bench.TiresPlaced[position] = true
	if len(g.bench.TiresPlaced) < required {
		return
	}

	g.build.Tires = g.bench.SelectedTires
	g.station = StationEngine
	g.bench.SelectedEngine = ""
	g.hint = hintEngine
}

func (g *Game) SelectEngine(engine EngineType) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != PhasePlaying || g.station != StationEngine || !validEngine(engine) {
		return
	}

	g.bench.SelectedEngine = engine
	g.hint = hintEngineDrag
	g.notify("chooseEngine")
}

// DropEngine resolves a drag release. A drop outside the bay is a retry, not
// a failure.
func (g *Game) DropEngine(inBay bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != PhasePlaying || g.station != StationEngine || g.bench.SelectedEngine == "" {
		return
	}
	if !inBay {
		return
	}

	g.build.Engine = g.bench.SelectedEngine
	g.station = StationCheckout
	g.hint = hintCheckout
	g.notify("placeEngine")
}

func (g *Game) Deliver() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != PhasePlaying || g.station != StationCheckout {
		return
	}

	result := scoreOrder(*g.activeOrder, *g.build)
	g.coins += result.CoinsEarned
	g.score += result.PointsEarned
	if result.Perfect {
		g.perfectCars++
	}
	g.customersServedToday++
	g.totalCarsBuilt++
	g.lastResult = &result

	g.stopPhaseTimersLocked()
	g.setPhaseLocked(PhaseRating)
	g.scheduleRatingExitLocked()
	g.notify("cheer")
}

// abandonActiveOrderLocked drops the in-progress build with zero reward. The
// customer still counts as served so the day's tally stays consistent.
func (g *Game) abandonActiveOrderLocked() {
	g.customersServedToday++
	g.totalCarsBuilt++
	g.lastResult = &DeliveryResult{TimedOut: true}
	g.clearActiveOrderLocked()
	g.notify("orderTimedOut")
}

func (g *Game) scheduleRatingExitLocked() {
	if g.manualTicks {
		return
	}
	epoch := g.epoch
	time.AfterFunc(ratingDisplayDelay, func() {
		g.finishRating(epoch)
	})
}

func (g *Game) finishRating(epoch int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.epoch != epoch || g.phase != PhaseRating {
		return
	}
	g.clearActiveOrderLocked()

	if g.customersServedToday >= dailyCustomerTarget {
		g.setPhaseLocked(PhaseDayEnd)
		g.notify("dayEnd")
		return
	}
	g.setPhaseLocked(PhasePlaying)
	g.startPhaseTimersLocked()
	g.maybeRefillQueueLocked()
}

// scoreOrder grades a finished build against what the customer asked for.
// The reward multiplier keys on the frame that was actually installed.
func scoreOrder(order Order, build BuildProgress) DeliveryResult {
	correct := 0
	if build.Frame == order.Frame {
		correct++
	}
	if build.Color == order.Color {
		correct++
	}
	if build.Tires == order.Tires {
		correct++
	}
	if build.Engine == order.Engine {
		correct++
	}

	stars := int(math.Round(float64(correct) / 4 * 5))
	mult := frameRewardMultiplier(build.Frame)
	return DeliveryResult{
		CorrectCount: correct,
		Stars:        stars,
		CoinsEarned:  int(math.Round(float64(stars) * 5 * mult)),
		PointsEarned: int(math.Round(float64(stars) * 10 * mult)),
		Perfect:      correct == 4,
	}
}

func defaultPlayerName(name string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return fmt.Sprintf("Player %d", time.Now().Unix())
}

func validFrame(v FrameType) bool {
	for _, f := range frameCatalog {
		if f == v {
			return true
		}
	}
	return false
}

func validColor(v ColorType) bool {
	for _, c := range colorCatalog {
		if c == v {
			return true
		}
	}
	return false
}

func validTires(v TireType) bool {
	for _, t := range tireCatalog {
		if t == v {
			return true
		}
	}
	return false
}

func validEngine(v EngineType) bool {
	for _, e := range engineCatalog {
		if e == v {
			return true
		}
	}
	return false
}

package main

import (
	"context"
	"log"
	"math"
	mathrand "math/rand"
	"sync"
	"time"
)

type Phase string

type Station string

type FrameType string

type ColorType string

type TireType string

type EngineType string

type Claim string

const (
	PhaseStart    Phase = "start"
	PhasePlaying  Phase = "playing"
	PhaseRating   Phase = "rating"
	PhaseDayEnd   Phase = "dayEnd"
	PhaseGameOver Phase = "gameOver"

	StationOrders   Station = "orders"
	StationFrame    Station = "frame"
	StationColor    Station = "color"
	StationTires    Station = "tires"
	StationEngine   Station = "engine"
	StationCheckout Station = "checkout"

	ClaimNone      Claim = "unclaimed"
	ClaimPlayer    Claim = "player"
	ClaimAssistant Claim = "assistant"
)

const (
	startingCoins        = 100
	daySeconds           = 180
	dailyCustomerTarget  = 5
	basePatienceSeconds  = 120
	patiencePerDay       = 10
	paintCoverageCells   = 60
	truckWheelCount      = 6
	defaultWheelCount    = 4
	ratingDisplayDelay   = 3 * time.Second
	dayClockInterval     = 1 * time.Second
	assistantTickEvery   = 100 * time.Millisecond
	assistantTickStep    = 0.5
	assistantRewardCoins = 15
	assistantRewardScore = 50
	leaderboardSize      = 10
)

var frameCatalog = []FrameType{"sedan", "suv", "sports", "truck"}
var colorCatalog = []ColorType{"red", "blue", "black", "white", "green", "yellow"}
var tireCatalog = []TireType{"standard", "sport", "offroad", "racing"}
var engineCatalog = []EngineType{"eco", "standard", "turbo", "v8"}
var customerNames = []string{"Alex", "Sam", "Jordan", "Casey", "Riley", "Morgan", "Taylor", "Jamie"}

type Order struct {
	Frame  FrameType
	Color  ColorType
	Tires  TireType
	Engine EngineType
}

type Customer struct {
	ID              int
	Name            string
	Order           Order
	PatienceSeconds int
	Claim           Claim
}

// BuildProgress fills strictly in frame -> color -> tires -> engine order;
// the zero value of each field means "not yet installed".
type BuildProgress struct {
	Frame  FrameType
	Color  ColorType
	Tires  TireType
	Engine EngineType
}

type Upgrades struct {
	PaintSpeed  int
	TireSpeed   int
	EngineSpeed int
	MiguelHired bool
}

// workbench is per-order scratch for the station the player is standing at.
// It is discarded wholesale when the order leaves the shop.
type workbench struct {
	SelectedColor  ColorType
	PaintedCells   map[string]bool
	PaintProgress  float64
	SelectedTires  TireType
	TiresPlaced    map[int]bool
	SelectedEngine EngineType
}

type DeliveryResult struct {
	CorrectCount int
	Stars        int
	CoinsEarned  int
	PointsEarned int
	Perfect      bool
	TimedOut     bool
}

type Game struct {
	mu sync.Mutex

	rng         *mathrand.Rand
	leaderboard Leaderboard

	// notify receives fire-and-forget presentation cues ("chooseCarType",
	// "spray1", "tada", ...). It runs under the game lock and must not call
	// back into the Game.
	notify func(event string)

	phase Phase
	day   int
	score int
	coins int

	customersServedToday int
	dayTimeLeft          int
	totalCarsBuilt       int
	perfectCars          int
	upgrades             Upgrades

	station        Station
	queue          []*Customer
	activeCustomer *Customer
	activeOrder    *Order
	build          *BuildProgress
	bench          workbench
	hint           string
	lastResult     *DeliveryResult

	assistantCustomer *Customer
	assistantProgress float64

	nextCustomerID int

	// manualTicks suppresses the background tickers and the rating delay so
	// tests drive time by calling the tick functions directly.
	manualTicks bool

	// epoch increments on every phase transition. Timers capture it when
	// scheduled and re-check it under the lock, so a tick that fires after
	// its phase ended is a no-op.
	epoch      int
	stopTimers chan struct{}
}

func newGame(seed int64, lb Leaderboard, notify func(event string)) *Game {
	if notify == nil {
		notify = func(string) {}
	}
	return &Game{
		rng:         mathrand.New(mathrand.NewSource(seed)),
		leaderboard: lb,
		notify:      notify,
		phase:       PhaseStart,
		day:         1,
		station:     StationOrders,
	}
}

func dailyQuota(day int) int {
	return day + 2
}

func requiredWheelCount(frame FrameType) int {
	if frame == "truck" {
		return truckWheelCount
	}
	return defaultWheelCount
}

func frameRewardMultiplier(frame FrameType) float64 {
	switch frame {
	case "truck":
		return 1.5
	case "sports":
		return 1.3
	case "suv":
		return 1.2
	default:
		return 1.0
	}
}

// --- phase machine ---

func (g *Game) setPhaseLocked(p Phase) {
	g.phase = p
	g.epoch++
}

func (g *Game) StartGame() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != PhaseStart && g.phase != PhaseGameOver {
		return
	}
	g.stopPhaseTimersLocked()

	g.day = 1
	g.score = 0
	g.coins = startingCoins
	g.customersServedToday = 0
	g.totalCarsBuilt = 0
	g.perfectCars = 0
	g.dayTimeLeft = daySeconds
	g.upgrades = Upgrades{PaintSpeed: 1, TireSpeed: 1, EngineSpeed: 1}
	g.queue = nil
	g.clearActiveOrderLocked()
	g.clearAssistantLocked()
	g.lastResult = nil
	g.nextCustomerID = 0

	g.setPhaseLocked(PhasePlaying)
	g.startPhaseTimersLocked()
	g.maybeRefillQueueLocked()
	g.notify("gameStarted")
}

func (g *Game) ReturnToMenu() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != PhaseGameOver {
		return
	}
	g.setPhaseLocked(PhaseStart)
}

func (g *Game) AdvanceDay() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != PhaseDayEnd || g.customersServedToday < dailyQuota(g.day) {
		return
	}

	g.day++
	g.dayTimeLeft = daySeconds
	g.customersServedToday = 0
	g.queue = nil
	g.clearActiveOrderLocked()
	g.clearAssistantLocked()
	g.lastResult = nil

	g.setPhaseLocked(PhasePlaying)
	g.startPhaseTimersLocked()
	// The queue stays empty here; the refill check on the next state change
	// regenerates it.
	g.notify("tada")
}

func (g *Game) SubmitScore(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != PhaseDayEnd || g.customersServedToday >= dailyQuota(g.day) {
		return
	}

	entry := LeaderboardEntry{
		Name:        defaultPlayerName(name),
		Score:       g.score,
		Day:         g.day,
		CarsBuilt:   g.totalCarsBuilt,
		PerfectCars: g.perfectCars,
		At:          time.Now().UTC(),
	}
	if g.leaderboard != nil {
		if err := g.leaderboard.Record(context.Background(), entry); err != nil {
			log.Printf("record leaderboard entry failed: %v", err)
		}
	}
	g.setPhaseLocked(PhaseGameOver)
}

func (g *Game) enterDayEndLocked() {
	g.stopPhaseTimersLocked()
	g.setPhaseLocked(PhaseDayEnd)
	g.notify("dayEnd")
}

// --- timers ---

func (g *Game) startPhaseTimersLocked() {
	if g.manualTicks {
		return
	}
	stop := make(chan struct{})
	g.stopTimers = stop
	epoch := g.epoch
	go g.runDayClock(stop, epoch)
	go g.runAssistant(stop, epoch)
}

func (g *Game) stopPhaseTimersLocked() {
	if g.stopTimers != nil {
		close(g.stopTimers)
		g.stopTimers = nil
	}
}

func (g *Game) runDayClock(stop <-chan struct{}, epoch int) {
	ticker := time.NewTicker(dayClockInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !g.stepDayClock(epoch) {
				return
			}
		}
	}
}

func (g *Game) runAssistant(stop <-chan struct{}, epoch int) {
	ticker := time.NewTicker(assistantTickEvery)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !g.stepAssistant(epoch) {
				return
			}
		}
	}
}

func (g *Game) stepDayClock(epoch int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.epoch != epoch || g.phase != PhasePlaying {
		return false
	}
	g.tickDayClockLocked()
	return true
}

func (g *Game) stepAssistant(epoch int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.epoch != epoch || g.phase != PhasePlaying {
		return false
	}
	g.tickAssistantLocked()
	return true
}

func (g *Game) tickDayClockLocked() {
	g.maybeRefillQueueLocked()
	if g.dayTimeLeft > 0 {
		g.dayTimeLeft--
	}
	if g.dayTimeLeft > 0 {
		return
	}
	// Clock expiry ends the day unconditionally; a mid-build order is
	// abandoned, never scored.
	if g.activeCustomer != nil {
		g.abandonActiveOrderLocked()
	}
	g.enterDayEndLocked()
}

func (g *Game) tickAssistantLocked() {
	if !g.upgrades.MiguelHired {
		return
	}
	if g.assistantCustomer == nil {
		// Miguel only claims the queue head while the player is between
		// orders, so the two never hold the same customer.
		if g.activeCustomer != nil || len(g.queue) == 0 {
			return
		}
		c := g.takeNextCustomerLocked()
		c.Claim = ClaimAssistant
		g.assistantCustomer = c
		g.assistantProgress = 0
		return
	}
	g.assistantProgress = math.Min(100, g.assistantProgress+assistantTickStep)
	if g.assistantProgress >= 100 {
		g.completeAssistantOrderLocked()
	}
}

func (g *Game) completeAssistantOrderLocked() {
	g.coins += assistantRewardCoins
	g.score += assistantRewardScore
	g.customersServedToday++
	g.totalCarsBuilt++
	g.clearAssistantLocked()
	g.notify("assistantDelivered")

	if g.customersServedToday >= dailyCustomerTarget {
		g.enterDayEndLocked()
		return
	}
	g.maybeRefillQueueLocked()
}

func (g *Game) clearAssistantLocked() {
	g.assistantCustomer = nil
	g.assistantProgress = 0
}

// --- customer queue ---

func (g *Game) maybeRefillQueueLocked() {
	if g.phase != PhasePlaying {
		return
	}
	if len(g.queue) > 0 || g.activeCustomer != nil || g.assistantCustomer != nil {
		return
	}
	g.generateCustomersLocked()
}

func (g *Game) generateCustomersLocked() {
	n := minInt(dailyCustomerTarget, 3+g.day)
	for i := 0; i < n; i++ {
		g.nextCustomerID++
		g.queue = append(g.queue, &Customer{
			ID:   g.nextCustomerID,
			Name: customerNames[g.rng.Intn(len(customerNames))],
			Order: Order{
				Frame:  frameCatalog[g.rng.Intn(len(frameCatalog))],
				Color:  colorCatalog[g.rng.Intn(len(colorCatalog))],
				Tires:  tireCatalog[g.rng.Intn(len(tireCatalog))],
				Engine: engineCatalog[g.rng.Intn(len(engineCatalog))],
			},
			PatienceSeconds: basePatienceSeconds + patiencePerDay*g.day,
			Claim:           ClaimNone,
		})
	}
}

func (g *Game) takeNextCustomerLocked() *Customer {
	c := g.queue[0]
	g.queue = g.queue[1:]
	return c
}

func (g *Game) clearActiveOrderLocked() {
	g.activeCustomer = nil
	g.activeOrder = nil
	g.build = nil
	g.bench = workbench{}
	g.station = StationOrders
	g.hint = ""
}

// --- helpers shared across files ---

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func clampFloat(v, low, high float64) float64 {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

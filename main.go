package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Snapshot is the read-only view handed to the rendering side. It never
// aliases engine state.
type Snapshot struct {
	Phase                Phase
	Day                  int
	Score                int
	Coins                int
	CustomersServedToday int
	DailyQuota           int
	DayTimeLeft          int
	TotalCarsBuilt       int
	PerfectCars          int
	Upgrades             Upgrades

	Station        Station
	Hint           string
	Queue          []Customer
	ActiveCustomer *Customer
	Build          *BuildProgress
	SelectedColor  ColorType
	PaintProgress  float64
	SelectedTires  TireType
	TiresPlaced    []int
	SelectedEngine EngineType
	LastResult     *DeliveryResult

	AssistantCustomer *Customer
	AssistantProgress float64
}

func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := Snapshot{
		Phase:                g.phase,
		Day:                  g.day,
		Score:                g.score,
		Coins:                g.coins,
		CustomersServedToday: g.customersServedToday,
		DailyQuota:           dailyQuota(g.day),
		DayTimeLeft:          g.dayTimeLeft,
		TotalCarsBuilt:       g.totalCarsBuilt,
		PerfectCars:          g.perfectCars,
		Upgrades:             g.upgrades,
		Station:              g.station,
		Hint:                 g.hint,
		SelectedColor:        g.bench.SelectedColor,
		PaintProgress:        g.bench.PaintProgress,
		SelectedTires:        g.bench.SelectedTires,
		SelectedEngine:       g.bench.SelectedEngine,
		AssistantProgress:    g.assistantProgress,
	}
	for _, c := range g.queue {
		snap.Queue = append(snap.Queue, *c)
	}
	if g.activeCustomer != nil {
		c := *g.activeCustomer
		snap.ActiveCustomer = &c
	}
	if g.build != nil {
		b := *g.build
		snap.Build = &b
	}
	for pos := range g.bench.TiresPlaced {
		snap.TiresPlaced = append(snap.TiresPlaced, pos)
	}
	sort.Ints(snap.TiresPlaced)
	if g.lastResult != nil {
		r := *g.lastResult
		snap.LastResult = &r
	}
	if g.assistantCustomer != nil {
		c := *g.assistantCustomer
		snap.AssistantCustomer = &c
	}
	return snap
}

func main() {
	seedFlag := flag.Int64("seed", 0, "seed for rng")
	flag.Parse()

	seed := *seedFlag
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	lb, err := openLeaderboardFromEnv()
	if err != nil {
		log.Fatalf("open leaderboard: %v", err)
	}
	defer lb.Close()

	game := newGame(seed, lb, func(event string) {
		log.Printf("cue: %s", event)
	})

	fmt.Println("GarageMaster workshop. Type 'help' for commands.")
	runConsole(game, lb)
}

func runConsole(game *Game, lb Leaderboard) {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) == 0 {
			continue
		}
		cmd := strings.ToLower(fields[0])
		args := fields[1:]

		switch cmd {
		case "help":
			printHelp()
		case "status":
			renderStatus(game.Snapshot())
		case "start":
			game.StartGame()
			renderStatus(game.Snapshot())
		case "take":
			game.TakeOrder()
			renderStatus(game.Snapshot())
		case "frame":
			if len(args) == 1 {
				game.SelectFrame(FrameType(args[0]))
			}
			renderStatus(game.Snapshot())
		case "color":
			if len(args) == 1 {
				game.SetColor(ColorType(args[0]))
			}
			renderStatus(game.Snapshot())
		case "paint":
			if len(args) == 2 {
				x, errX := strconv.ParseFloat(args[0], 64)
				y, errY := strconv.ParseFloat(args[1], 64)
				if errX == nil && errY == nil {
					game.PaintSample(x, y)
				}
			}
			renderStatus(game.Snapshot())
		case "spray":
			// Sweep the whole car: one pointer sample per coverage cell.
			for y := 0; y < 10; y++ {
				for x := 0; x < 10; x++ {
					game.PaintSample(float64(x), float64(y))
				}
			}
			renderStatus(game.Snapshot())
		case "tires":
			if len(args) == 1 {
				game.SelectTires(TireType(args[0]))
			}
			renderStatus(game.Snapshot())
		case "tire":
			if len(args) == 1 {
				if pos, err := strconv.Atoi(args[0]); err == nil {
					game.InstallTire(pos)
				}
			}
			renderStatus(game.Snapshot())
		case "engine":
			if len(args) == 1 {
				game.SelectEngine(EngineType(args[0]))
			}
			renderStatus(game.Snapshot())
		case "drop":
			game.DropEngine(true)
			renderStatus(game.Snapshot())
		case "miss":
			game.DropEngine(false)
			renderStatus(game.Snapshot())
		case "deliver":
			game.Deliver()
			renderStatus(game.Snapshot())
		case "shop":
			renderShop(game.Snapshot())
		case "buy":
			if len(args) == 1 {
				game.Purchase(args[0])
			}
			renderShop(game.Snapshot())
		case "next":
			game.AdvanceDay()
			renderStatus(game.Snapshot())
		case "submit":
			game.SubmitScore(strings.Join(args, " "))
			renderStatus(game.Snapshot())
		case "menu":
			game.ReturnToMenu()
			renderStatus(game.Snapshot())
		case "top":
			renderLeaderboard(lb)
		case "quit":
			return
		default:
			fmt.Println("Unknown command. Type 'help' for the list.")
		}
	}
}

func printHelp() {
	fmt.Println(`Commands:
  start                 begin a new run
  status                show the workshop
  take                  take the next customer's order
  frame <type>          sedan | suv | sports | truck
  color <name>          red | blue | black | white | green | yellow
  paint <x> <y>         one spray sample at that spot
  spray                 sweep the whole car
  tires <type>          standard | sport | offroad | racing
  tire <position>       bolt a wheel on (0-based)
  engine <type>         eco | standard | turbo | v8
  drop | miss           release the engine in / outside the bay
  deliver               hand the car over
  shop / buy <id>       browse or buy upgrades
  next                  start the next day (quota met)
  submit [name]         record the run (quota missed)
  top                   show the leaderboard
  menu                  back to the start screen
  quit`)
}

func renderStatus(s Snapshot) {
	switch s.Phase {
	case PhaseStart:
		fmt.Println("Workshop closed. 'start' opens for business.")
		return
	case PhaseGameOver:
		fmt.Printf("Run over on day %d. Score %d, %d cars built, %d perfect.\n",
			s.Day, s.Score, s.TotalCarsBuilt, s.PerfectCars)
		return
	case PhaseDayEnd:
		if s.CustomersServedToday >= s.DailyQuota {
			fmt.Printf("Day %d done: %d/%d served. 'next' opens day %d.\n",
				s.Day, s.CustomersServedToday, s.DailyQuota, s.Day+1)
		} else {
			fmt.Printf("Day %d done: %d/%d served. Quota missed; 'submit [name]' records the run.\n",
				s.Day, s.CustomersServedToday, s.DailyQuota)
		}
		return
	case PhaseRating:
		if s.LastResult != nil {
			r := s.LastResult
			fmt.Printf("Rating: %d/4 correct, %d stars, +%d coins, +%d points",
				r.CorrectCount, r.Stars, r.CoinsEarned, r.PointsEarned)
			if r.Perfect {
				fmt.Print("  PERFECT!")
			}
			fmt.Println()
		}
		return
	}

	fmt.Printf("Day %d  %ds left  served %d/%d (quota %d)  coins %d  score %d\n",
		s.Day, s.DayTimeLeft, s.CustomersServedToday, dailyCustomerTarget, s.DailyQuota, s.Coins, s.Score)
	if s.AssistantCustomer != nil {
		fmt.Printf("Miguel: building for %s (%.0f%%)\n", s.AssistantCustomer.Name, s.AssistantProgress)
	}

	if s.ActiveCustomer == nil {
		fmt.Printf("Waiting customers: %d\n", len(s.Queue))
		for i, c := range s.Queue {
			fmt.Printf("  %d. %s wants a %s %s / %s tires / %s engine (patience %ds)\n",
				i+1, c.Name, c.Order.Color, c.Order.Frame, c.Order.Tires, c.Order.Engine, c.PatienceSeconds)
		}
		fmt.Println("'take' to pull the next order.")
		return
	}

	o := s.ActiveCustomer.Order
	fmt.Printf("Building for %s: %s %s, %s tires, %s engine\n",
		s.ActiveCustomer.Name, o.Color, o.Frame, o.Tires, o.Engine)
	fmt.Printf("Station: %s", s.Station)
	switch s.Station {
	case StationColor:
		fmt.Printf("  (color %s, %.0f%% painted)", orDash(string(s.SelectedColor)), s.PaintProgress)
	case StationTires:
		fmt.Printf("  (tires %s, %d/%d on)", orDash(string(s.SelectedTires)),
			len(s.TiresPlaced), requiredWheelCount(s.Build.Frame))
	case StationEngine:
		fmt.Printf("  (engine %s)", orDash(string(s.SelectedEngine)))
	}
	fmt.Println()
	if s.Hint != "" {
		fmt.Println("Hint: " + s.Hint)
	}
}

func renderShop(s Snapshot) {
	fmt.Printf("Coins: %d\n", s.Coins)
	for _, item := range shopItems {
		level := 0
		switch item.ID {
		case upgradePaintSpeed:
			level = s.Upgrades.PaintSpeed
		case upgradeTireSpeed:
			level = s.Upgrades.TireSpeed
		case upgradeEngineSpeed:
			level = s.Upgrades.EngineSpeed
		case upgradeMiguel:
			if s.Upgrades.MiguelHired {
				level = 1
			}
		}
		cost := item.Cost
		if item.MaxLevel > 1 {
			cost = item.Cost * level
		}
		state := fmt.Sprintf("level %d/%d, next %dc", level, item.MaxLevel, cost)
		if level >= item.MaxLevel {
			state = "maxed"
		}
		fmt.Printf("  %-12s %-26s %s - %s\n", item.ID, item.Name, state, item.Description)
	}
}

func renderLeaderboard(lb Leaderboard) {
	entries, err := lb.Top(context.Background(), leaderboardSize)
	if err != nil {
		fmt.Printf("leaderboard unavailable: %v\n", err)
		return
	}
	if len(entries) == 0 {
		fmt.Println("No runs recorded yet.")
		return
	}
	for i, e := range entries {
		fmt.Printf("%2d. %-20s %6d pts  day %d  %d cars (%d perfect)\n",
			i+1, e.Name, e.Score, e.Day, e.CarsBuilt, e.PerfectCars)
	}
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

package main

const (
	upgradePaintSpeed  = "paintSpeed"
	upgradeTireSpeed   = "tireSpeed"
	upgradeEngineSpeed = "engineSpeed"
	upgradeMiguel      = "miguelHired"

	leveledUpgradeCost = 50
	leveledUpgradeMax  = 3
	miguelHireCost     = 200
)

type ShopItem struct {
	ID          string
	Name        string
	Cost        int
	MaxLevel    int
	Description string
}

var shopItems = []ShopItem{
	{ID: upgradePaintSpeed, Name: "Fast Paint Sprayer", Cost: leveledUpgradeCost, MaxLevel: leveledUpgradeMax, Description: "Paint cars faster"},
	{ID: upgradeTireSpeed, Name: "Pneumatic Wrench", Cost: leveledUpgradeCost, MaxLevel: leveledUpgradeMax, Description: "Install tires faster"},
	{ID: upgradeEngineSpeed, Name: "Engine Hoist", Cost: leveledUpgradeCost, MaxLevel: leveledUpgradeMax, Description: "Install engines faster"},
	{ID: upgradeMiguel, Name: "Hire Miguel (Freelancer)", Cost: miguelHireCost, MaxLevel: 1, Description: "Auto-builds cars for coins"},
}

// Purchase applies the shop rules: leveled upgrades cost base*currentLevel,
// the Miguel hire is a flat one-shot. Anything unaffordable or already maxed
// leaves the ledger untouched.
func (g *Game) Purchase(upgradeID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != PhasePlaying {
		return
	}

	switch upgradeID {
	case upgradeMiguel:
		if g.upgrades.MiguelHired || g.coins < miguelHireCost {
			return
		}
		g.coins -= miguelHireCost
		g.upgrades.MiguelHired = true
	case upgradePaintSpeed, upgradeTireSpeed, upgradeEngineSpeed:
		level := g.upgradeLevelLocked(upgradeID)
		cost := leveledUpgradeCost * level
		if level >= leveledUpgradeMax || g.coins < cost {
			return
		}
		g.coins -= cost
		g.setUpgradeLevelLocked(upgradeID, level+1)
	default:
		return
	}
	g.notify("buySound")
}

func (g *Game) upgradeLevelLocked(upgradeID string) int {
	switch upgradeID {
	case upgradePaintSpeed:
		return g.upgrades.PaintSpeed
	case upgradeTireSpeed:
		return g.upgrades.TireSpeed
	case upgradeEngineSpeed:
		return g.upgrades.EngineSpeed
	case upgradeMiguel:
		if g.upgrades.MiguelHired {
			return 1
		}
		return 0
	}
	return 0
}

func (g *Game) setUpgradeLevelLocked(upgradeID string, level int) {
	switch upgradeID {
	case upgradePaintSpeed:
		g.upgrades.PaintSpeed = level
	case upgradeTireSpeed:
		g.upgrades.TireSpeed = level
	case upgradeEngineSpeed:
		g.upgrades.EngineSpeed = level
	}
}

package battle

type Characteristics struct {
	Health  int64 `json:"health"`
	Attack  int64 `json:"attack"`
	Defense int64 `json:"defense"`
	Agility int64 `json:"agility"`
}

// CharacteristicsForLevel derives base stats for a personage of level.
func CharacteristicsForLevel(level int) Characteristics {
	if level < 1 {
		level = 1
	}
	l := int64(level - 1)
	return Characteristics{
		Health:  100 + 20*l,
		Attack:  10 + 3*l,
		Defense: 5 + 2*l,
		Agility: 10 + 2*l,
	}
}

type Fighter struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Level           int             `json:"level"`
	Characteristics Characteristics `json:"characteristics"`
}

func NewFighter(id int64, name string, level int) Fighter {
	return Fighter{ID: id, Name: name, Level: level, Characteristics: CharacteristicsForLevel(level)}
}

const (
	bossHealthFactor = 5
	bossPowerFactor  = 2
)

// NewBoss builds a raid boss: a level-scaled fighter with inflated health
// and striking power.
func NewBoss(level int, name string) Fighter {
	c := CharacteristicsForLevel(level)
	c.Health *= bossHealthFactor
	c.Attack *= bossPowerFactor
	c.Defense *= bossPowerFactor
	return Fighter{ID: 0, Name: name, Level: level, Characteristics: c}
}

type Side int

const (
	FirstTeam Side = iota + 1
	SecondTeam
)

func (s Side) String() string {
	switch s {
	case FirstTeam:
		return "FIRST_TEAM"
	case SecondTeam:
		return "SECOND_TEAM"
	default:
		return "UNKNOWN"
	}
}

type FighterResult struct {
	Fighter         Fighter `json:"fighter"`
	DealtDamage     int64   `json:"dealt_damage"`
	TakenDamage     int64   `json:"taken_damage"`
	RemainingHealth int64   `json:"remaining_health"`
	Attacks         int     `json:"attacks"`
	Crits           int     `json:"crits"`
	Misses          int     `json:"misses"`
	Exp             int64   `json:"exp"`
}

func (r FighterResult) Alive() bool { return r.RemainingHealth > 0 }

type Result struct {
	Winner Side            `json:"winner"`
	Rounds int             `json:"rounds"`
	First  []FighterResult `json:"first"`
	Second []FighterResult `json:"second"`
}

func (r Result) Winners() []FighterResult {
	if r.Winner == SecondTeam {
		return r.Second
	}
	return r.First
}

func (r Result) Losers() []FighterResult {
	if r.Winner == SecondTeam {
		return r.First
	}
	return r.Second
}

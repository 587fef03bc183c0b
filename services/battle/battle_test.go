package battle

import (
	"testing"

	"seeker-engine/pkg/random"

	"github.com/stretchr/testify/require"
)

// critOnly never misses and always crits.
type critOnly struct{ random.Fixed }

func (critOnly) Chance(p float64) bool { return p >= float64(10)/critDivisor }

func TestCharacteristicsForLevel(t *testing.T) {
	one := CharacteristicsForLevel(1)
	require.Equal(t, Characteristics{Health: 100, Attack: 10, Defense: 5, Agility: 10}, one)
	require.Equal(t, one, CharacteristicsForLevel(0))

	ten := CharacteristicsForLevel(10)
	require.Greater(t, ten.Health, one.Health)
	require.Greater(t, ten.Attack, one.Attack)
}

func TestNewBoss(t *testing.T) {
	boss := NewBoss(1, "Troll")
	require.Equal(t, "Troll", boss.Name)
	require.Equal(t, int64(500), boss.Characteristics.Health)
	require.Equal(t, int64(20), boss.Characteristics.Attack)
}

func TestStrongerFighterWins(t *testing.T) {
	b := NewTwoTeamBattle(random.Fixed{}, 50, 20)

	res := b.Battle(
		[]Fighter{NewFighter(1, "A", 10)},
		[]Fighter{NewFighter(2, "B", 1)},
	)

	require.Equal(t, FirstTeam, res.Winner)
	require.Equal(t, 4, res.Rounds)

	a, d := res.First[0], res.Second[0]
	require.Equal(t, int64(100), a.DealtDamage)
	require.Equal(t, int64(100), d.TakenDamage)
	require.Zero(t, d.RemainingHealth)
	require.Equal(t, int64(3), d.DealtDamage)
	require.Equal(t, int64(277), a.RemainingHealth)
	require.Equal(t, int64(40), a.Exp)
	require.Equal(t, int64(10), d.Exp)
	require.Equal(t, res.First, res.Winners())
	require.Equal(t, res.Second, res.Losers())
}

func TestSideOrderDoesNotFavourWeakSide(t *testing.T) {
	b := NewTwoTeamBattle(random.Fixed{}, 50, 20)

	res := b.Battle(
		[]Fighter{NewFighter(2, "B", 1)},
		[]Fighter{NewFighter(1, "A", 10)},
	)
	require.Equal(t, SecondTeam, res.Winner)
	require.Equal(t, int64(1), res.Winners()[0].Fighter.ID)
}

func TestBossBeatsLonePersonage(t *testing.T) {
	b := NewTwoTeamBattle(random.Fixed{}, 50, 20)

	res := b.Battle([]Fighter{NewFighter(1, "A", 1)}, []Fighter{NewBoss(1, "Troll")})
	require.Equal(t, SecondTeam, res.Winner)
	require.Len(t, res.First, 1)
	require.False(t, res.First[0].Alive())
	require.True(t, res.Second[0].Alive())
}

func TestRoundCapTieGoesToFirstTeam(t *testing.T) {
	b := NewTwoTeamBattle(random.Fixed{}, 2, 5)

	res := b.Battle([]Fighter{NewFighter(1, "A", 1)}, []Fighter{NewFighter(2, "B", 1)})
	require.Equal(t, 2, res.Rounds)
	require.Equal(t, FirstTeam, res.Winner)
	require.Equal(t, res.First[0].RemainingHealth, res.Second[0].RemainingHealth)
	require.Equal(t, int64(88), res.First[0].RemainingHealth)
}

func TestCritsDoubleDamage(t *testing.T) {
	b := NewTwoTeamBattle(critOnly{}, 1, 0)

	res := b.Battle([]Fighter{NewFighter(1, "A", 1)}, []Fighter{NewFighter(2, "B", 1)})
	require.Equal(t, 1, res.First[0].Crits)
	require.Equal(t, int64(12), res.First[0].DealtDamage)
}

func TestMisses(t *testing.T) {
	b := NewTwoTeamBattle(random.Fixed{Hit: true}, 3, 0)

	res := b.Battle([]Fighter{NewFighter(1, "A", 1)}, []Fighter{NewFighter(2, "B", 1)})
	require.Equal(t, 3, res.First[0].Misses)
	require.Equal(t, 3, res.First[0].Attacks)
	require.Zero(t, res.First[0].DealtDamage)
	require.Equal(t, FirstTeam, res.Winner)
}

func TestEmptyTeams(t *testing.T) {
	b := NewTwoTeamBattle(random.Fixed{}, 10, 0)

	require.Equal(t, SecondTeam, b.Battle(nil, []Fighter{NewFighter(1, "A", 1)}).Winner)
	require.Equal(t, FirstTeam, b.Battle([]Fighter{NewFighter(1, "A", 1)}, nil).Winner)
}

func TestSeededBattleIsDeterministic(t *testing.T) {
	team := []Fighter{NewFighter(1, "A", 5), NewFighter(2, "B", 3)}
	boss := []Fighter{NewBoss(4, "Troll")}

	r1 := NewTwoTeamBattle(random.New(99), 50, 20).Battle(team, boss)
	r2 := NewTwoTeamBattle(random.New(99), 50, 20).Battle(team, boss)
	require.Equal(t, r1, r2)
	require.Len(t, r1.First, 2)
	require.Len(t, r1.Second, 1)
}

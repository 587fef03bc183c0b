// Package battle resolves team fights. It is pure: every roll comes from the
// injected random.Source and nothing is persisted.
package battle

import (
	"seeker-engine/pkg/random"
)

const (
	DefaultMaxRounds   = 50
	DefaultWinExpBonus = 20

	baseExp         = 10
	expDamageDivide = 10
	varianceMin     = 80
	varianceMax     = 120
	critDivisor     = 200.0
	missDivisor     = 400.0
)

type TwoTeamBattle struct {
	rnd         random.Source
	maxRounds   int
	winExpBonus int64
}

func NewTwoTeamBattle(rnd random.Source, maxRounds int, winExpBonus int64) *TwoTeamBattle {
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	if winExpBonus < 0 {
		winExpBonus = 0
	}
	return &TwoTeamBattle{rnd: rnd, maxRounds: maxRounds, winExpBonus: winExpBonus}
}

type combatant struct {
	res FighterResult
}

func newTeam(fighters []Fighter) []*combatant {
	team := make([]*combatant, 0, len(fighters))
	for _, f := range fighters {
		team = append(team, &combatant{res: FighterResult{
			Fighter:         f,
			RemainingHealth: f.Characteristics.Health,
		}})
	}
	return team
}

func living(team []*combatant) []*combatant {
	out := make([]*combatant, 0, len(team))
	for _, c := range team {
		if c.res.RemainingHealth > 0 {
			out = append(out, c)
		}
	}
	return out
}

func totalHealth(team []*combatant) int64 {
	var sum int64
	for _, c := range team {
		sum += c.res.RemainingHealth
	}
	return sum
}

// Battle fights first against second. The first team strikes first in every
// round. When neither side is down after maxRounds the team with more
// remaining health wins, ties going to the first team.
func (b *TwoTeamBattle) Battle(first, second []Fighter) Result {
	a, d := newTeam(first), newTeam(second)

	rounds := 0
	for rounds < b.maxRounds && len(living(a)) > 0 && len(living(d)) > 0 {
		rounds++
		if b.round(a, d) {
			break
		}
	}

	winner := FirstTeam
	switch {
	case len(living(d)) == 0 && len(d) > 0:
		winner = FirstTeam
	case len(living(a)) == 0 && len(a) > 0:
		winner = SecondTeam
	case len(a) == 0 && len(d) > 0:
		winner = SecondTeam
	case totalHealth(d) > totalHealth(a):
		winner = SecondTeam
	}

	return Result{
		Winner: winner,
		Rounds: rounds,
		First:  b.finish(a, winner == FirstTeam),
		Second: b.finish(d, winner == SecondTeam),
	}
}

// round runs one exchange and reports whether a team was wiped out.
func (b *TwoTeamBattle) round(first, second []*combatant) bool {
	for _, side := range [2][2][]*combatant{{first, second}, {second, first}} {
		for _, attacker := range side[0] {
			if attacker.res.RemainingHealth <= 0 {
				continue
			}
			targets := living(side[1])
			if len(targets) == 0 {
				return true
			}
			b.strike(attacker, targets[b.rnd.Intn(len(targets))])
		}
		if len(living(side[1])) == 0 {
			return true
		}
	}
	return false
}

func (b *TwoTeamBattle) strike(attacker, target *combatant) {
	attacker.res.Attacks++

	at := attacker.res.Fighter.Characteristics
	df := target.res.Fighter.Characteristics

	if b.rnd.Chance(float64(df.Agility) / missDivisor) {
		attacker.res.Misses++
		return
	}

	dmg := at.Attack - df.Defense/2
	if dmg < 1 {
		dmg = 1
	}
	dmg = dmg * b.rnd.Between(varianceMin, varianceMax) / 100
	if dmg < 1 {
		dmg = 1
	}
	if b.rnd.Chance(float64(at.Agility) / critDivisor) {
		attacker.res.Crits++
		dmg *= 2
	}
	if dmg > target.res.RemainingHealth {
		dmg = target.res.RemainingHealth
	}

	attacker.res.DealtDamage += dmg
	target.res.TakenDamage += dmg
	target.res.RemainingHealth -= dmg
}

func (b *TwoTeamBattle) finish(team []*combatant, won bool) []FighterResult {
	out := make([]FighterResult, 0, len(team))
	for _, c := range team {
		r := c.res
		r.Exp = r.DealtDamage/expDamageDivide + baseExp
		if won {
			r.Exp += b.winExpBonus
		}
		out = append(out, r)
	}
	return out
}

// Package ledger keeps each team's point budget and the players it has bought.
// It is the only place points change hands.
package ledger

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Errors returned by ledger operations.
var (
	ErrUnknownTeam        = errors.New("unknown team")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInvalidPoints      = errors.New("invalid points")
	ErrPlayerNotOnRoster  = errors.New("player not on roster")
	ErrDuplicateTeam      = errors.New("duplicate team")
	ErrPlayerAlreadyOwned = errors.New("player already on a roster")
)

// Rules constrain how much a team may spend on one player.
// The zero value imposes no constraint beyond the team's remaining points.
type Rules struct {
	// MinimumTeamSize is the squad size every team must be able to reach.
	MinimumTeamSize int `json:"minimum_team_size"`
	// MinimumBid is the smallest non-zero sale price.
	MinimumBid int `json:"minimum_bid"`
}

// Purchase is one roster entry.
type Purchase struct {
	PlayerID int `json:"player_id"`
	Points   int `json:"points"`
}

// Team is a read-only view of a team's standing.
type Team struct {
	Name          string     `json:"name"`
	Points        int        `json:"points"`
	InitialPoints int        `json:"initial_points"`
	Roster        []int      `json:"roster"`
	Purchases     []Purchase `json:"purchases"`
	BiddingPower  int        `json:"bidding_power"`
}

type account struct {
	name      string
	points    int
	initial   int
	purchases []Purchase
}

func (a *account) find(playerID int) int {
	return slices.IndexFunc(a.purchases, func(p Purchase) bool { return p.PlayerID == playerID })
}

// Ledger holds every team's account. It is not safe for concurrent use; the
// auction engine serializes access.
type Ledger struct {
	rules    Rules
	accounts map[string]*account
	owner    map[int]string
}

// New creates a ledger with each named team holding initialPoints.
func New(names []string, initialPoints int, rules Rules) (*Ledger, error) {
	if initialPoints < 0 {
		return nil, fmt.Errorf("%w: initial points %d", ErrInvalidPoints, initialPoints)
	}
	l := &Ledger{
		rules:    rules,
		accounts: make(map[string]*account, len(names)),
		owner:    make(map[int]string),
	}
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: blank team name", ErrUnknownTeam)
		}
		if _, ok := l.accounts[name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTeam, name)
		}
		l.accounts[name] = &account{name: name, points: initialPoints, initial: initialPoints}
	}
	return l, nil
}

// Rules returns the spending rules in force.
func (l *Ledger) Rules() Rules { return l.rules }

// Teams returns a snapshot of every team ordered by name.
func (l *Ledger) Teams() []Team {
	teams := make([]Team, 0, len(l.accounts))
	for _, a := range l.accounts {
		teams = append(teams, l.view(a))
	}
	slices.SortFunc(teams, func(a, b Team) int { return strings.Compare(a.Name, b.Name) })
	return teams
}

// Team returns a snapshot of one team.
func (l *Ledger) Team(name string) (Team, error) {
	a, ok := l.accounts[name]
	if !ok {
		return Team{}, fmt.Errorf("%w: %q", ErrUnknownTeam, name)
	}
	return l.view(a), nil
}

// Owner returns the team holding playerID.
func (l *Ledger) Owner(playerID int) (string, bool) {
	name, ok := l.owner[playerID]
	return name, ok
}

// BiddingPower returns the most a team may pay for its next player.
func (l *Ledger) BiddingPower(name string) (int, error) {
	a, ok := l.accounts[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTeam, name)
	}
	return l.biddingPower(a), nil
}

// CanAfford reports whether name may pay points for its next player.
func (l *Ledger) CanAfford(name string, points int) bool {
	a, ok := l.accounts[name]
	if !ok {
		return false
	}
	return points >= 0 && points <= l.biddingPower(a)
}

// Debit assigns playerID to name for points. Either both the roster and the
// balance change or neither does.
func (l *Ledger) Debit(name string, playerID, points int) error {
	a, ok := l.accounts[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTeam, name)
	}
	if err := l.validatePrice(points); err != nil {
		return err
	}
	if holder, owned := l.owner[playerID]; owned {
		return fmt.Errorf("%w: player %d belongs to %q", ErrPlayerAlreadyOwned, playerID, holder)
	}
	if limit := l.biddingPower(a); points > limit {
		return fmt.Errorf("%w: bid of %d exceeds max bid of %d for %s", ErrInsufficientFunds, points, limit, name)
	}

	a.purchases = append(a.purchases, Purchase{PlayerID: playerID, Points: points})
	a.points -= points
	l.owner[playerID] = name
	return nil
}

// Credit reverses a Debit: playerID leaves the roster and points return to
// the balance.
func (l *Ledger) Credit(name string, playerID, points int) error {
	a, ok := l.accounts[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTeam, name)
	}
	idx := a.find(playerID)
	if idx < 0 {
		return fmt.Errorf("%w: player %d not held by %q", ErrPlayerNotOnRoster, playerID, name)
	}
	if points < 0 || a.points+points > a.initial {
		return fmt.Errorf("%w: refund of %d would leave %q outside its budget", ErrInvalidPoints, points, name)
	}

	a.purchases = slices.Delete(a.purchases, idx, idx+1)
	a.points += points
	delete(l.owner, playerID)
	return nil
}

// Release removes playerID from name and refunds whatever was paid for it.
func (l *Ledger) Release(name string, playerID int) (Purchase, error) {
	a, ok := l.accounts[name]
	if !ok {
		return Purchase{}, fmt.Errorf("%w: %q", ErrUnknownTeam, name)
	}
	idx := a.find(playerID)
	if idx < 0 {
		return Purchase{}, fmt.Errorf("%w: player %d not held by %q", ErrPlayerNotOnRoster, playerID, name)
	}
	p := a.purchases[idx]
	if err := l.Credit(name, playerID, p.Points); err != nil {
		return Purchase{}, err
	}
	return p, nil
}

// Transfer moves playerID from one team to another at a new price. On any
// failure the ledger is left unchanged.
func (l *Ledger) Transfer(playerID int, from, to string, points int) error {
	if _, ok := l.accounts[to]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTeam, to)
	}
	a, ok := l.accounts[from]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTeam, from)
	}
	idx := a.find(playerID)
	released, err := l.Release(from, playerID)
	if err != nil {
		return err
	}
	if err := l.Debit(to, playerID, points); err != nil {
		// Put the original sale back in its roster slot.
		a.purchases = slices.Insert(a.purchases, idx, released)
		a.points -= released.Points
		l.owner[playerID] = from
		return err
	}
	return nil
}

// Restore rebuilds a team's roster from persisted purchases. It is used when
// recovering a saved session and must run before any Debit on that team.
func (l *Ledger) Restore(name string, purchases []Purchase) error {
	a, ok := l.accounts[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTeam, name)
	}
	spent := 0
	seen := make(map[int]struct{}, len(purchases))
	for _, p := range purchases {
		if p.Points < 0 {
			return fmt.Errorf("%w: player %d bought for %d", ErrInvalidPoints, p.PlayerID, p.Points)
		}
		if holder, owned := l.owner[p.PlayerID]; owned {
			return fmt.Errorf("%w: player %d belongs to %q", ErrPlayerAlreadyOwned, p.PlayerID, holder)
		}
		if _, dup := seen[p.PlayerID]; dup {
			return fmt.Errorf("%w: player %d listed twice for %q", ErrPlayerAlreadyOwned, p.PlayerID, name)
		}
		seen[p.PlayerID] = struct{}{}
		spent += p.Points
	}
	if spent > a.initial {
		return fmt.Errorf("%w: %q spent %d of %d", ErrInsufficientFunds, name, spent, a.initial)
	}
	for id := range seen {
		l.owner[id] = name
	}
	a.purchases = slices.Clone(purchases)
	a.points = a.initial - spent
	return nil
}

func (l *Ledger) validatePrice(points int) error {
	if points < 0 {
		return fmt.Errorf("%w: %d is negative", ErrInvalidPoints, points)
	}
	if l.rules.MinimumBid > 0 && points != 0 && points < l.rules.MinimumBid {
		return fmt.Errorf("%w: bid must be at least %d (or 0)", ErrInvalidPoints, l.rules.MinimumBid)
	}
	return nil
}

func (l *Ledger) biddingPower(a *account) int {
	if l.rules.MinimumTeamSize <= 0 || len(a.purchases) >= l.rules.MinimumTeamSize {
		return a.points
	}
	slotsAfterThis := l.rules.MinimumTeamSize - len(a.purchases) - 1
	return max(0, a.points-slotsAfterThis*l.rules.MinimumBid)
}

func (l *Ledger) view(a *account) Team {
	roster := make([]int, len(a.purchases))
	for i, p := range a.purchases {
		roster[i] = p.PlayerID
	}
	return Team{
		Name:          a.name,
		Points:        a.points,
		InitialPoints: a.initial,
		Roster:        roster,
		Purchases:     slices.Clone(a.purchases),
		BiddingPower:  l.biddingPower(a),
	}
}

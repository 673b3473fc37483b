package auction

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/jensholdgaard/auctioneer/internal/catalog"
	"github.com/jensholdgaard/auctioneer/internal/ledger"
	"github.com/jensholdgaard/auctioneer/internal/pool"
)

// Phase is the coarse state of an auction session.
type Phase string

const (
	PhaseNotStarted Phase = "NOT_STARTED"
	PhaseRunning    Phase = "RUNNING"
	PhaseComplete   Phase = "COMPLETE"
)

// errCorruptState marks persisted state that cannot be reconciled with the
// catalog or the configured teams.
var errCorruptState = errors.New("persisted state is inconsistent")

// session is the complete mutable state of one auction run.
type session struct {
	id      string
	catalog *catalog.Catalog
	pool    *pool.Pool
	ledger  *ledger.Ledger
	log     txLog
	phase   Phase
	version int
}

func newSession(id string, cat *catalog.Catalog, s Settings, rng *rand.Rand) (*session, error) {
	l, err := ledger.New(s.Teams, s.InitialPoints, s.Rules)
	if err != nil {
		return nil, fmt.Errorf("creating ledger: %w", err)
	}
	return &session{
		id:      id,
		catalog: cat,
		pool:    pool.New(cat.IDs(), rng),
		ledger:  l,
		phase:   PhaseNotStarted,
	}, nil
}

// current returns the catalog record of the player on the block.
func (s *session) current() (catalog.Player, bool) {
	id, ok := s.pool.Current()
	if !ok {
		return catalog.Player{}, false
	}
	return s.catalog.Get(id)
}

// status reports where id sits and, when sold, which team holds it.
func (s *session) status(id int) (Status, string) {
	switch s.pool.Locate(id) {
	case pool.OriginCurrent:
		return StatusCurrent, ""
	case pool.OriginUnsold:
		return StatusUnsold, ""
	}
	if team, ok := s.ledger.Owner(id); ok {
		return StatusSold, team
	}
	return StatusUnsold, ""
}

func (s *session) snapshot() *Snapshot {
	snap := &Snapshot{
		SessionID:    s.id,
		Phase:        s.phase,
		Teams:        s.ledger.Teams(),
		Unsold:       s.pool.Unsold(),
		TotalPlayers: s.catalog.Len(),
		Version:      s.version,
	}
	if p, ok := s.current(); ok {
		snap.Current = &p
	}
	if tx, ok := s.log.peek(); ok {
		snap.LastTransaction = &tx
	}
	for _, t := range snap.Teams {
		snap.SoldPlayers += len(t.Roster)
	}
	return snap
}

// persistedState is the serialized form of a session.
type persistedState struct {
	SessionID       string          `json:"session_id"`
	Phase           Phase           `json:"phase"`
	Version         int             `json:"version"`
	InitialPoints   int             `json:"initial_points"`
	Current         *int            `json:"current,omitempty"`
	Unsold          []int           `json:"unsold"`
	Teams           []persistedTeam `json:"teams"`
	LastTransaction *Transaction    `json:"last_transaction,omitempty"`
}

type persistedTeam struct {
	Name      string            `json:"name"`
	Purchases []ledger.Purchase `json:"purchases"`
}

func (s *session) encode() (json.RawMessage, error) {
	teams := s.ledger.Teams()
	st := persistedState{
		SessionID: s.id,
		Phase:     s.phase,
		Version:   s.version,
		Unsold:    s.pool.Unsold(),
		Teams:     make([]persistedTeam, 0, len(teams)),
	}
	if len(teams) > 0 {
		st.InitialPoints = teams[0].InitialPoints
	}
	if id, ok := s.pool.Current(); ok {
		st.Current = &id
	}
	if tx, ok := s.log.peek(); ok {
		st.LastTransaction = &tx
	}
	for _, t := range teams {
		st.Teams = append(st.Teams, persistedTeam{Name: t.Name, Purchases: t.Purchases})
	}
	return json.Marshal(st)
}

// decodeSession rebuilds a session from persisted state, checking that every
// catalog player lands in exactly one of unsold, current or a roster.
func decodeSession(data []byte, cat *catalog.Catalog, set Settings, rng *rand.Rand) (*session, error) {
	var st persistedState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("%w: %w", errCorruptState, err)
	}
	if st.SessionID == "" {
		return nil, fmt.Errorf("%w: missing session id", errCorruptState)
	}
	if st.InitialPoints != set.InitialPoints {
		return nil, fmt.Errorf("%w: initial points %d, configured %d", errCorruptState, st.InitialPoints, set.InitialPoints)
	}
	switch st.Phase {
	case PhaseNotStarted, PhaseRunning, PhaseComplete:
	default:
		return nil, fmt.Errorf("%w: phase %q", errCorruptState, st.Phase)
	}

	names := make([]string, 0, len(st.Teams))
	for _, t := range st.Teams {
		names = append(names, t.Name)
	}
	want := slices.Clone(set.Teams)
	slices.Sort(names)
	slices.Sort(want)
	if !slices.Equal(names, want) {
		return nil, fmt.Errorf("%w: teams %v, configured %v", errCorruptState, names, want)
	}

	s, err := newSession(st.SessionID, cat, set, rng)
	if err != nil {
		return nil, err
	}
	s.pool = pool.New(nil, rng)

	seen := make(map[int]struct{}, cat.Len())
	claim := func(id int) error {
		if !cat.Contains(id) {
			return fmt.Errorf("%w: player %d not in catalog", errCorruptState, id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: player %d appears twice", errCorruptState, id)
		}
		seen[id] = struct{}{}
		return nil
	}

	for _, t := range st.Teams {
		for _, p := range t.Purchases {
			if err := claim(p.PlayerID); err != nil {
				return nil, err
			}
		}
		if err := s.ledger.Restore(t.Name, t.Purchases); err != nil {
			return nil, fmt.Errorf("%w: %w", errCorruptState, err)
		}
	}
	for _, id := range st.Unsold {
		if err := claim(id); err != nil {
			return nil, err
		}
		s.pool.Add(id)
	}
	if st.Current != nil {
		if err := claim(*st.Current); err != nil {
			return nil, err
		}
		s.pool.SetCurrent(*st.Current)
	}
	if len(seen) != cat.Len() {
		return nil, fmt.Errorf("%w: %d of %d players accounted for", errCorruptState, len(seen), cat.Len())
	}

	if tx := st.LastTransaction; tx != nil {
		if team, err := s.ledger.Team(tx.Team); err == nil && slices.Contains(team.Purchases, ledger.Purchase{PlayerID: tx.PlayerID, Points: tx.Points}) {
			s.log.record(*tx)
		}
	}
	s.phase = st.Phase
	s.version = st.Version
	return s, nil
}

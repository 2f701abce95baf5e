// internal/game/machine.go
package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/lucas-vivier/GeoBluff/internal/catalog"
)

// Machine applies actions to sessions. It owns nothing mutable: all game
// state lives in the Session, and the caller holds the session lock.
type Machine struct {
	cat   *catalog.Catalog
	reg   *catalog.Registry
	rules Rules
}

// NewMachine binds the state machine to a catalog, its category registry and
// the server-wide default rules.
func NewMachine(cat *catalog.Catalog, reg *catalog.Registry, rules Rules) (*Machine, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	if len(reg.Categories()) == 0 {
		return nil, errors.New("no category is available for this catalog")
	}
	return &Machine{cat: cat, reg: reg, rules: rules}, nil
}

// Registry exposes the category registry the machine plays with.
func (m *Machine) Registry() *catalog.Registry { return m.reg }

// Rules returns the server defaults.
func (m *Machine) Rules() Rules { return m.rules }

// NewGameOptions are the new-game parameters. Zero values select defaults.
type NewGameOptions struct {
	CardsPerPlayer int
	Language       string
	CategorySet    string
	Category       string
	Rules          map[string]interface{}
	Seed           uint64
}

// NewSession deals a fresh game: a reference card on the board and
// CardsPerPlayer cards per team. Team 1 starts.
func (m *Machine) NewSession(id string, opts NewGameOptions, now time.Time) (*Session, error) {
	rules, err := ParseRules(opts.Rules, m.rules)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	if opts.CardsPerPlayer != 0 {
		rules.CardsPerPlayer = opts.CardsPerPlayer
	}
	rules.CardsPerPlayer = clampCards(rules.CardsPerPlayer)

	setID := opts.CategorySet
	if setID == "" {
		setID = m.reg.DefaultSet()
	} else if _, ok := m.reg.Set(setID); !ok {
		return nil, fmt.Errorf("%w: unknown category set %q", ErrInvalidAction, setID)
	}

	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	penalty, err := NewPenaltyPolicy(rules.PenaltyPolicy, rules.PenaltyDrawCount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}

	s := &Session{
		ID:          id,
		Seed:        seed,
		Language:    NormalizeLanguage(opts.Language),
		CategorySet: setID,
		Rules:       rules,
		CreatedAt:   now,
		LastActive:  now,
		cat:         m.cat,
		pool:        m.reg.Pool(setID),
		deck:        NewDeck(m.cat, rng),
		rng:         rng,
		penalty:     penalty,
		arbiter:     CapitalArbiter{Override: rules.OverridePolicy},
	}

	if opts.Category != "" {
		c, ok := m.reg.Category(opts.Category)
		if !ok {
			return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidAction, opts.Category)
		}
		s.Category = c
	} else {
		s.Category = s.pickCategory(m.reg, "")
	}

	ref, hands, err := s.deck.Deal(rules.CardsPerPlayer)
	if err != nil {
		return nil, err
	}
	s.Board = NewBoard(ref)
	s.Hands[0].Add(hands[0]...)
	s.Hands[1].Add(hands[1]...)
	s.Phase = PhasePlaying
	s.CurrentPlayer = 1
	s.setMessage(MsgNewCategory, s.categoryParams())
	return s, nil
}

// Apply validates a against the session's phase and either applies it or
// returns an error with the session untouched.
func (m *Machine) Apply(s *Session, a Action) error {
	var err error
	switch a.Type {
	case ActionPlayCard:
		err = m.playCard(s, a)
	case ActionSetPosition:
		err = m.setPosition(s, a)
	case ActionValidatePlacement:
		err = m.validatePlacement(s)
	case ActionCancelPlacement:
		err = m.cancelPlacement(s)
	case ActionCallBluff:
		err = m.callBluff(s, a)
	case ActionRevealCard:
		err = m.revealCard(s, a)
	case ActionCheckCapital:
		err = m.checkCapital(s, a)
	case ActionCapitalDecision:
		err = m.capitalDecision(s, a)
	case ActionChangeCategory:
		err = m.changeCategory(s)
	case ActionContinueAfterBluff:
		err = m.continueAfterBluff(s)
	case ActionContinueAfterFinalValidation:
		err = m.continueAfterFinalValidation(s)
	case ActionSetLanguage:
		s.Language = NormalizeLanguage(a.Language)
	default:
		err = fmt.Errorf("%w: unknown action %q", ErrInvalidAction, a.Type)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", a.Type, err)
	}
	s.ActionIndex++
	settle(s)
	return nil
}

func requirePhase(s *Session, phases ...Phase) error {
	for _, p := range phases {
		if s.Phase == p {
			return nil
		}
	}
	return fmt.Errorf("%w: phase is %s", ErrInvalidPhase, s.Phase)
}

func requireTurn(s *Session, player int) error {
	if !validTeam(player) {
		return fmt.Errorf("%w: player must be 1 or 2", ErrInvalidAction)
	}
	if player != s.CurrentPlayer {
		return ErrNotYourTurn
	}
	return nil
}

func (m *Machine) playCard(s *Session, a Action) error {
	if err := requirePhase(s, PhasePlaying); err != nil {
		return err
	}
	if err := requireTurn(s, a.Player); err != nil {
		return err
	}
	card, ok := s.Hand(a.Player).Take(a.CardName)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCard, a.CardName)
	}
	s.Pending = &card
	s.PendingPosition = s.Board.Len()
	s.Phase = PhasePlacing
	s.setMessage(MsgChoosePosition, nil)
	return nil
}

func (m *Machine) setPosition(s *Session, a Action) error {
	if err := requirePhase(s, PhasePlacing); err != nil {
		return err
	}
	if a.Position == nil {
		return fmt.Errorf("%w: missing position", ErrInvalidAction)
	}
	if err := ValidatePosition(s.Board.Len(), *a.Position); err != nil {
		return fmt.Errorf("%w: %d not in [0, %d]", err, *a.Position, s.Board.Len())
	}
	s.PendingPosition = *a.Position
	return nil
}

func (m *Machine) cancelPlacement(s *Session) error {
	if err := requirePhase(s, PhasePlacing); err != nil {
		return err
	}
	s.Hand(s.CurrentPlayer).Add(*s.Pending)
	s.Pending = nil
	s.PendingPosition = 0
	s.Phase = PhasePlaying
	s.clearMessage()
	return nil
}

func (m *Machine) validatePlacement(s *Session) error {
	if err := requirePhase(s, PhasePlacing); err != nil {
		return err
	}
	player := s.CurrentPlayer
	card := *s.Pending
	card.PlacedBy = player
	s.nextSeq++
	card.seq = s.nextSeq
	s.Board.Insert(s.PendingPosition, card)
	s.Pending = nil
	s.PendingPosition = 0

	if s.Hand(player).Len() > 0 {
		s.CurrentPlayer = other(player)
		s.Phase = PhasePlaying
		s.clearMessage()
		return nil
	}

	placed := card.inHand()
	s.CapitalCard = &placed
	s.CapitalPlayer = player
	if s.Rules.FinalWalk == FinalWalkAlways {
		s.startFinalWalk(player)
		return nil
	}
	s.Phase = PhaseCapitalCheck
	s.setMessage(MsgCapitalQuestion, map[string]interface{}{
		"player":  player,
		"country": s.country(placed).DisplayName(s.Language),
	})
	return nil
}

func (s *Session) startFinalWalk(player int) {
	s.FinalPlayer = player
	s.RevealCursor = 0
	s.Violation = nil
	s.Phase = PhaseFinalValidation
	s.setMessage(MsgFinalValidation, map[string]interface{}{"player": player})
}

func (m *Machine) checkCapital(s *Session, a Action) error {
	if err := requirePhase(s, PhaseCapitalCheck); err != nil {
		return err
	}
	if !validTeam(a.Player) {
		return fmt.Errorf("%w: player must be 1 or 2", ErrInvalidAction)
	}
	if a.Player != s.CapitalPlayer {
		return ErrNotYourTurn
	}
	country := s.country(*s.CapitalCard)
	s.CapitalAnswer = a.Answer
	s.capitalGraded = true
	s.capitalGrade = s.arbiter.Grade(a.Answer, country.Capitals())
	key := MsgCapitalIncorrect
	if s.capitalGrade {
		key = MsgCapitalCorrect
	}
	s.setMessage(key, map[string]interface{}{
		"player":  a.Player,
		"answer":  a.Answer,
		"capital": country.Capital,
		"country": country.DisplayName(s.Language),
	})
	s.Phase = PhaseCapitalValidation
	return nil
}

func (m *Machine) capitalDecision(s *Session, a Action) error {
	if err := requirePhase(s, PhaseCapitalValidation); err != nil {
		return err
	}
	if a.Accepted == nil {
		return fmt.Errorf("%w: missing accepted", ErrInvalidAction)
	}
	correct, err := s.arbiter.Decide(s.capitalGrade, *a.Accepted)
	if err != nil {
		return err
	}

	player := s.CapitalPlayer
	if correct {
		s.capitalWon = player
		s.setMessage(MsgCapitalAccepted, map[string]interface{}{"player": player})
		if s.Hand(other(player)).Len() == 0 && !s.walkPassed {
			s.startFinalWalk(player)
		}
		return nil
	}

	capital := s.CapitalCard.Capital
	if removed, ok := s.Board.Remove(s.CapitalCard.Name); ok {
		s.deck.Release(removed)
	}
	s.Board.HideAll()
	s.Hand(player).Add(s.deck.Draw(s.Rules.PenaltyDrawCount)...)
	s.CapitalCard = nil
	s.CapitalPlayer = 0
	s.CapitalAnswer = ""
	s.capitalGraded = false
	s.capitalGrade = false
	s.walkPassed = false
	s.FinalPlayer = 0
	s.CurrentPlayer = other(player)
	s.Phase = PhasePlaying
	s.setMessage(MsgCapitalRefused, map[string]interface{}{
		"player":  player,
		"capital": capital,
		"draw":    s.Rules.PenaltyDrawCount,
	})
	return nil
}

func (m *Machine) callBluff(s *Session, a Action) error {
	if err := requirePhase(s, PhasePlaying); err != nil {
		return err
	}
	if err := requireTurn(s, a.Player); err != nil {
		return err
	}
	if s.Board.Len() < 2 {
		return ErrBoardTooSmall
	}
	s.BluffCaller = a.Player
	s.RevealCursor = 0
	s.Violation = nil
	s.Phase = PhaseBluffReveal
	s.setMessage(MsgRevealCards, map[string]interface{}{"player": a.Player})
	return nil
}

func (m *Machine) revealCard(s *Session, a Action) error {
	if err := requirePhase(s, PhaseBluffReveal, PhaseFinalValidation); err != nil {
		return err
	}
	if a.Index == nil {
		return fmt.Errorf("%w: missing index", ErrInvalidAction)
	}
	if err := s.Board.Reveal(*a.Index); err != nil {
		return fmt.Errorf("%w: index %d", err, *a.Index)
	}
	s.RevealCursor++

	v, found := FirstViolation(s.Board.Cards(), s.value)
	if !found && !s.Board.AllRevealed() {
		return nil
	}
	if found {
		s.Violation = &v
	}
	s.RevealCursor = 0

	if s.Phase == PhaseBluffReveal {
		s.bluff = BluffOutcome{Caller: s.BluffCaller, Justified: found, Violation: s.Violation}
		if found {
			s.bluff.Placer = misplacedBy(s.Board.Cards(), v)
		}
		loser := s.bluff.Loser()
		params := map[string]interface{}{"player": loser, "caller": s.BluffCaller}
		if found {
			s.setMessage(MsgBluffWrong, params)
		} else {
			s.setMessage(MsgBluffCorrect, params)
		}
		s.Phase = PhaseBluffResult
		return nil
	}

	// the walk only counts as passed once the result is acknowledged
	s.Phase = PhaseFinalValidationResult
	params := map[string]interface{}{"player": s.FinalPlayer}
	switch {
	case found:
		params["draw"] = s.Rules.PenaltyDrawCount
		s.setMessage(MsgOrderWrong, params)
	case s.capitalWon == s.FinalPlayer:
		s.setMessage(MsgOrderCorrect, params)
	default:
		params["country"] = s.country(*s.CapitalCard).DisplayName(s.Language)
		s.setMessage(MsgOrderCorrectCapital, params)
	}
	return nil
}

func (m *Machine) continueAfterBluff(s *Session) error {
	if err := requirePhase(s, PhaseBluffResult); err != nil {
		return err
	}
	loser := s.bluff.Loser()
	red := s.penalty.Redistribute(s.Board.Cards(), s.bluff)

	kept := make(map[string]bool, len(red.ToLoser))
	for _, c := range red.ToLoser {
		kept[c.Name] = true
	}
	for _, c := range s.Board.Cards() {
		if !kept[c.Name] {
			s.deck.Release(c)
		}
	}
	s.Hand(loser).Add(red.ToLoser...)
	if red.Draw > 0 {
		s.Hand(loser).Add(s.deck.Draw(red.Draw)...)
	}
	m.startNewRound(s, loser)
	return nil
}

func (m *Machine) continueAfterFinalValidation(s *Session) error {
	if err := requirePhase(s, PhaseFinalValidationResult); err != nil {
		return err
	}
	player := s.FinalPlayer
	if s.Violation == nil {
		s.walkPassed = true
		if s.capitalWon == player {
			// settle declares the win
			return nil
		}
		s.Board.HideAll()
		s.FinalPlayer = 0
		s.Phase = PhaseCapitalCheck
		s.setMessage(MsgCapitalQuestion, map[string]interface{}{
			"player":  player,
			"country": s.country(*s.CapitalCard).DisplayName(s.Language),
		})
		return nil
	}

	s.deck.Release(s.Board.Cards()...)
	s.Hand(player).Add(s.deck.Draw(s.Rules.PenaltyDrawCount)...)
	starter := other(player)
	if s.Hand(starter).Len() == 0 {
		starter = player
	}
	m.startNewRound(s, starter)
	return nil
}

// startNewRound discards nothing itself: callers release the old board first.
// It picks a category from the pool, lays a fresh reference card and hands
// the turn to starter.
func (m *Machine) startNewRound(s *Session, starter int) {
	s.resetRound()
	s.Category = s.pickCategory(m.reg, "")

	s.Board = Board{}
	if drawn := s.deck.Draw(1); len(drawn) == 1 {
		s.Board = NewBoard(drawn[0])
	} else if hand := s.Hand(starter).Cards(); len(hand) > 0 {
		// every country is in a hand; the starter gives one up
		ref, _ := s.Hand(starter).Take(hand[0].Name)
		s.Board = NewBoard(ref)
	}
	s.CurrentPlayer = starter
	s.Phase = PhasePlaying
	s.appendMessage(MsgNewCategory, s.categoryParams())
}

func (m *Machine) changeCategory(s *Session) error {
	if err := requirePhase(s, PhasePlaying); err != nil {
		return err
	}
	if s.Board.Len() > 1 {
		return ErrCategoryLocked
	}
	s.Category = s.pickCategory(m.reg, s.Category.ID)
	if drawn := s.deck.Draw(1); len(drawn) == 1 {
		if s.Board.Len() > 0 {
			s.deck.Release(s.Board.At(0))
		}
		s.Board = NewBoard(drawn[0])
	}
	s.setMessage(MsgNewCategory, s.categoryParams())
	return nil
}

func (s *Session) categoryParams() map[string]interface{} {
	return map[string]interface{}{
		"category_id": s.Category.ID,
		"label":       s.Category.DisplayLabel(s.Language),
	}
}

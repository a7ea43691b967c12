package submission

import (
	"fmt"
	"strings"
	"time"

	"auction-house/internal/amount"
	"auction-house/internal/auctionerrors"
	model "auction-house/internal/models"
)

const (
	maxNameLen      = 30
	maxBoostInfoLen = 100
)

// step identifies where a session is in the collection flow.
type step int

const (
	stepName step = iota
	stepNature
	stepIVs
	stepMoveset
	stepBoosted
	stepBoostInfo
	stepTMDetails
	stepPrice
)

// Input is one message worth of session input: free text plus an optional
// photo reference for the attachment steps.
type Input struct {
	Text     string `json:"text"`
	PhotoRef string `json:"photo_ref,omitempty"`
}

// Session is a submitter's in-progress item collection. Sessions are keyed
// by actor id; starting a new one overwrites any stale session.
type Session struct {
	ActorID   string
	ActorName string
	Step      step
	Payload   model.Payload
	StartedAt time.Time
}

func firstStep(category model.Category) step {
	if category == model.CategoryTM {
		return stepTMDetails
	}
	return stepName
}

func (s *Session) prompt() string {
	switch s.Step {
	case stepName:
		return "Send the Pokemon's name."
	case stepNature:
		return "Forward the nature page (text plus optional photo)."
	case stepIVs:
		return "Forward the IV/EV page (text plus optional photo)."
	case stepMoveset:
		return "Forward the moveset page (text plus optional photo)."
	case stepBoosted:
		return "Is the Pokemon boosted? (yes/no)"
	case stepBoostInfo:
		return "Describe the boost (max 100 characters)."
	case stepTMDetails:
		return "Forward the TM details."
	case stepPrice:
		return "Send the base price (0 is allowed, e.g. 5k or base: 5,000)."
	default:
		return ""
	}
}

// advance feeds one input to the session. On a validation failure the
// session stays on the same step so the caller can re-prompt; on success
// the session moves on and done reports whether the payload is complete.
func (s *Session) advance(in Input) (done bool, err error) {
	text := strings.TrimSpace(in.Text)

	switch s.Step {
	case stepName:
		if text == "" {
			return false, fmt.Errorf("%w: pokemon name", auctionerrors.ErrMissingField)
		}
		if len(text) > maxNameLen {
			return false, fmt.Errorf("%w: pokemon name exceeds %d characters", auctionerrors.ErrNameTooLong, maxNameLen)
		}
		s.Payload.PokemonName = text
		s.Step = stepNature

	case stepNature:
		if text == "" {
			return false, fmt.Errorf("%w: nature details", auctionerrors.ErrMissingField)
		}
		s.Payload.Nature = model.Attachment{Text: text, PhotoRef: in.PhotoRef}
		s.Step = stepIVs

	case stepIVs:
		if text == "" {
			return false, fmt.Errorf("%w: IV details", auctionerrors.ErrMissingField)
		}
		s.Payload.IVs = model.Attachment{Text: text, PhotoRef: in.PhotoRef}
		s.Step = stepMoveset

	case stepMoveset:
		if text == "" {
			return false, fmt.Errorf("%w: moveset details", auctionerrors.ErrMissingField)
		}
		s.Payload.Moveset = model.Attachment{Text: text, PhotoRef: in.PhotoRef}
		s.Step = stepBoosted

	case stepBoosted:
		switch strings.ToLower(text) {
		case "yes":
			s.Payload.Boosted = true
			s.Step = stepBoostInfo
		case "no":
			s.Payload.Boosted = false
			s.Payload.BoostInfo = ""
			s.Step = stepPrice
		default:
			return false, fmt.Errorf("%w: answer yes or no", auctionerrors.ErrMissingField)
		}

	case stepBoostInfo:
		if text == "" {
			return false, fmt.Errorf("%w: boost details", auctionerrors.ErrMissingField)
		}
		if len(text) > maxBoostInfoLen {
			return false, fmt.Errorf("%w: boost details exceed %d characters", auctionerrors.ErrNameTooLong, maxBoostInfoLen)
		}
		s.Payload.BoostInfo = text
		s.Step = stepPrice

	case stepTMDetails:
		if text == "" {
			return false, fmt.Errorf("%w: TM details", auctionerrors.ErrMissingField)
		}
		s.Payload.TMDetails = text
		s.Step = stepPrice

	case stepPrice:
		price, err := amount.ParseBasePrice(text)
		if err != nil {
			return false, err
		}
		if price < 0 {
			return false, fmt.Errorf("%w: price must not be negative", auctionerrors.ErrInvalidAmount)
		}
		s.Payload.BasePrice = price
		return true, nil
	}

	return false, nil
}

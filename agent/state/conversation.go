package state

import (
	"errors"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/contract"
)

// ConversationState is the turn-scoped record the graph engine threads through stages.
// - Messages is append-only.
// - Decomposition, when set, owns sub-request progress for this turn.
// - Clarification is the only part that survives the turn (see Carry).
type ConversationState struct {
	TurnID   string              `json:"turn_id"`
	Messages []contractx.Message `json:"messages"`

	Decomposition   *Decomposition        `json:"decomposition,omitempty"`
	InDecomposition bool                  `json:"in_decomposition"`
	Clarification   *PendingClarification `json:"clarification,omitempty"`
	Request         *Request              `json:"request,omitempty"`

	Path []string `json:"path,omitempty"`
}

// Request is what the router prepared for the next agent.
type Request struct {
	Text     string             `json:"text"`
	Category contractx.Category `json:"category"`
	Amount   float64            `json:"amount"`
	Index    int                `json:"index"`
}

type PendingClarification struct {
	Category contractx.Category `json:"category"`
	Question string             `json:"question"`
}

// Carry is the minimal state kept between turns.
type Carry struct {
	Clarification *PendingClarification `json:"clarification,omitempty"`
}

func (c Carry) Awaiting() bool {
	return c.Clarification != nil
}

var (
	ErrDecompositionDone  = errors.New("decomposition already complete")
	ErrDecompositionEmpty = errors.New("decomposition has no sub-requests")
	ErrInvariant          = errors.New("conversation state invariant violated")
)

type Decomposition struct {
	SubRequests []contractx.SubRequest `json:"sub_requests"`
	Cursor      int                    `json:"cursor"`
	Results     []string               `json:"results"`
}

func NewDecomposition(subs []contractx.SubRequest) (*Decomposition, error) {
	if len(subs) == 0 {
		return nil, ErrDecompositionEmpty
	}
	return &Decomposition{
		SubRequests: append([]contractx.SubRequest(nil), subs...),
		Results:     make([]string, 0, len(subs)),
	}, nil
}

func (d *Decomposition) InProgress() bool {
	return d != nil && d.Cursor < len(d.SubRequests)
}

// Current returns the sub-request the cursor points at.
func (d *Decomposition) Current() (contractx.SubRequest, bool) {
	if !d.InProgress() {
		return contractx.SubRequest{}, false
	}
	return d.SubRequests[d.Cursor], true
}

// Record stores the result of the current sub-request and advances the cursor,
// keeping len(Results) == Cursor.
func (d *Decomposition) Record(result string) error {
	if !d.InProgress() {
		return ErrDecompositionDone
	}
	d.Results = append(d.Results, result)
	d.Cursor++
	return d.Validate()
}

func (d *Decomposition) Validate() error {
	if d == nil {
		return nil
	}
	if d.Cursor < 0 || d.Cursor > len(d.SubRequests) {
		return fmt.Errorf("%w: cursor=%d sub_requests=%d", ErrInvariant, d.Cursor, len(d.SubRequests))
	}
	if len(d.Results) != d.Cursor {
		return fmt.Errorf("%w: results=%d cursor=%d", ErrInvariant, len(d.Results), d.Cursor)
	}
	return nil
}

func (d *Decomposition) Clone() *Decomposition {
	if d == nil {
		return nil
	}
	return &Decomposition{
		SubRequests: append([]contractx.SubRequest(nil), d.SubRequests...),
		Cursor:      d.Cursor,
		Results:     append([]string(nil), d.Results...),
	}
}

// Delta is what a stage asks the engine to merge into the state.
type Delta struct {
	Messages []contractx.Message

	Decomposition     *Decomposition
	DropDecomposition bool

	Clarification *PendingClarification
	Request       *Request
}

func (d Delta) AddMessage(role contractx.Role, text string) Delta {
	d.Messages = append(d.Messages, contractx.Message{Role: role, Text: text})
	return d
}

func NewConversationState(turnID string, text string) *ConversationState {
	return &ConversationState{
		TurnID: turnID,
		Messages: []contractx.Message{
			{Role: contractx.RoleUser, Text: text},
		},
	}
}

// Apply merges a stage delta. InDecomposition follows the decomposition the
// router installs or drops.
func (s *ConversationState) Apply(d Delta) error {
	if s == nil {
		return fmt.Errorf("%w: nil state", ErrInvariant)
	}
	s.Messages = append(s.Messages, d.Messages...)

	if d.Decomposition != nil {
		if err := d.Decomposition.Validate(); err != nil {
			return err
		}
		s.Decomposition = d.Decomposition
		s.InDecomposition = d.Decomposition.InProgress()
	}
	if d.DropDecomposition {
		s.Decomposition = nil
		s.InDecomposition = false
	}
	if d.Clarification != nil {
		s.Clarification = d.Clarification
	}
	if d.Request != nil {
		s.Request = d.Request
	}
	return nil
}

func (s *ConversationState) LastMessage(role contractx.Role) (contractx.Message, bool) {
	if s == nil {
		return contractx.Message{}, false
	}
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == role {
			return s.Messages[i], true
		}
	}
	return contractx.Message{}, false
}

// FinalText is the reply of a finished turn: the last agent message.
func (s *ConversationState) FinalText() string {
	msg, _ := s.LastMessage(contractx.RoleAgent)
	return strings.TrimSpace(msg.Text)
}

// CarryOver extracts what survives the turn.
func (s *ConversationState) CarryOver() Carry {
	if s == nil || s.Clarification == nil {
		return Carry{}
	}
	c := *s.Clarification
	return Carry{Clarification: &c}
}

func (s *ConversationState) AgentRequest() contractx.AgentRequest {
	req := contractx.AgentRequest{
		TurnID:          s.TurnID,
		InDecomposition: s.InDecomposition,
		History:         append([]contractx.Message(nil), s.Messages...),
	}
	if s.Request != nil {
		req.Text = s.Request.Text
		req.Category = s.Request.Category
		req.Amount = s.Request.Amount
		req.Index = s.Request.Index
	}
	return req
}

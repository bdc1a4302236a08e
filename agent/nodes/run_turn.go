package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/contract"
	statex "github.com/tanpawarit/Chative-Bank-Dialogue/agent/state"
)

// TurnFunc runs one turn and returns the reply, the carry for the next turn and a
// turn failure. A failing turn still returns a reply.
type TurnFunc func(ctx context.Context, text string, carry statex.Carry) (string, statex.Carry, error)

func RunTurn(ctx context.Context, in *GraphState, turn TurnFunc) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply, next, err := turn(ctx, in.Text, in.Carry)
	if err != nil && reply == "" {
		return nil, err
	}
	in.Reply = reply
	in.NextCarry = next
	in.TurnErr = err
	return in, nil
}

package orchestratornode

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/contract"
	statex "github.com/tanpawarit/Chative-Bank-Dialogue/agent/state"
)

func SaveCarry(
	ctx context.Context,
	in *GraphState,
	store statex.CarryStore,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	if err := store.Save(ctx, in.SessionID, in.NextCarry); err != nil {
		return nil, fmt.Errorf("save carry: %w", err)
	}
	return in, nil
}

package orchestratornode

import (
	"context"
	"errors"
	"fmt"

	contractx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/contract"
	statex "github.com/tanpawarit/Chative-Bank-Dialogue/agent/state"
	logx "github.com/tanpawarit/Chative-Bank-Dialogue/pkg/logger"
)

func LoadCarry(
	ctx context.Context,
	in *GraphState,
	store statex.CarryStore,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	carry, err := store.Load(ctx, in.SessionID)
	switch {
	case err == nil:
		in.Carry = carry
	case errors.Is(err, statex.ErrStateNotFound):
		in.Carry = statex.Carry{}
	case errors.Is(err, statex.ErrInvariant):
		// A corrupt carry only loses the pending question.
		logx.Warn().Err(err).Str("session_id", in.SessionID).Msg("discarding invalid carry")
		in.Carry = statex.Carry{}
	default:
		return nil, fmt.Errorf("load carry: %w", err)
	}
	return in, nil
}

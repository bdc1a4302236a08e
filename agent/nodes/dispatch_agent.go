package orchestratornode

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/contract"
	graphx "github.com/tanpawarit/Chative-Bank-Dialogue/agent/graph"
	statex "github.com/tanpawarit/Chative-Bank-Dialogue/agent/state"
	logx "github.com/tanpawarit/Chative-Bank-Dialogue/pkg/logger"
)

const AgentFailureText = "Sorry, I couldn't complete that part of your request."

// DispatchAgent adapts a capability agent into an engine stage. The agent's text is
// appended as an agent message; a failing agent is replaced by AgentFailureText so a
// decomposition still records one result per sub-request.
func DispatchAgent(name contractx.AgentName, agent contractx.Agent) graphx.StageFunc {
	return func(ctx context.Context, st *statex.ConversationState) (statex.Delta, contractx.RouteDecision, error) {
		if st == nil {
			return statex.Delta{}, contractx.Terminate(), fmt.Errorf("%w: conversation state is nil", contractx.ErrValidation)
		}
		req := st.AgentRequest()

		res, err := agent.Invoke(ctx, req)
		if err == nil && strings.TrimSpace(res.Text) == "" {
			err = fmt.Errorf("%w: agent=%s returned empty text", contractx.ErrAgentInvocation, name)
		}
		if err != nil {
			logx.Error().Err(err).
				Str("turn_id", req.TurnID).
				Str("agent", string(name)).
				Str("category", string(req.Category)).
				Bool("in_decomposition", req.InDecomposition).
				Msg("agent failed; substituting failure text")
			return statex.Delta{}.AddMessage(contractx.RoleAgent, AgentFailureText), req.Next(), nil
		}

		next := res.Next
		if !next.IsTerminal() && next.Stage() == "" {
			next = req.Next()
		}
		return statex.Delta{}.AddMessage(contractx.RoleAgent, strings.TrimSpace(res.Text)), next, nil
	}
}

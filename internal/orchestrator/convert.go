package orchestrator

import (
	"github.com/nexuscore/gateway/internal/agent"
	pkgmodels "github.com/nexuscore/gateway/pkg/models"
)

// toCompletionMessages adapts the wire conversation (one Message per turn,
// including one per tool reply) into the adapter's CompletionMessage shape,
// which expects a single "tool" turn carrying every result produced by the
// preceding assistant's tool_calls batch.
func toCompletionMessages(msgs []pkgmodels.Message) []agent.CompletionMessage {
	out := make([]agent.CompletionMessage, 0, len(msgs))
	for i := 0; i < len(msgs); i++ {
		m := msgs[i]
		if m.Role != pkgmodels.RoleTool {
			out = append(out, agent.CompletionMessage{
				Role:        string(m.Role),
				Content:     m.Content,
				ToolCalls:   m.ToolCalls,
				Attachments: m.Attachments,
			})
			continue
		}

		var results []pkgmodels.ToolResult
		for i < len(msgs) && msgs[i].Role == pkgmodels.RoleTool {
			results = append(results, pkgmodels.ToolResult{
				ToolCallID: msgs[i].ToolCallID,
				Content:    msgs[i].Content,
			})
			i++
		}
		i--
		out = append(out, agent.CompletionMessage{Role: string(pkgmodels.RoleTool), ToolResults: results})
	}
	return out
}

func lastUserContent(msgs []pkgmodels.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == pkgmodels.RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}

func isSubstantive(text string, threshold int) bool {
	return len(text) > threshold
}

package toolconv

import (
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/nexuscore/gateway/internal/agent"
)

// ToBedrockTools converts internal tool definitions, plus a gateway-level
// tool_choice ("", "auto", "required", or a specific tool name), into a
// Bedrock Converse API ToolConfiguration. Bedrock's tool choice is a closed
// union (Auto/Any/Tool), unlike OpenAI's free-form string-or-object field.
func ToBedrockTools(tools []agent.Tool, toolChoice string) *types.ToolConfiguration {
	bedrockTools := make([]types.Tool, len(tools))

	for i, tool := range tools {
		var schema any
		if err := json.Unmarshal(tool.Schema(), &schema); err != nil {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}

		bedrockTools[i] = &types.ToolMemberToolSpec{
			Value: types.ToolSpecification{
				Name:        aws.String(tool.Name()),
				Description: aws.String(tool.Description()),
				InputSchema: &types.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(schema)},
			},
		}
	}

	cfg := &types.ToolConfiguration{Tools: bedrockTools}

	switch toolChoice {
	case "required":
		cfg.ToolChoice = &types.ToolChoiceMemberAny{}
	case "", "auto":
		cfg.ToolChoice = &types.ToolChoiceMemberAuto{}
	default:
		cfg.ToolChoice = &types.ToolChoiceMemberTool{Value: types.SpecificToolChoice{Name: aws.String(toolChoice)}}
	}

	return cfg
}

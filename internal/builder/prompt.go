package builder

import (
	"fmt"
	"strings"
)

// generationTemplate is the fixed prompt for diagram generation. The first
// verb receives the comma-separated type list, the second the description.
const generationTemplate = `You are a cloud architecture diagram expert. Your task is to analyze a user's description and create a structured diagram specification.

SUPPORTED NODE TYPES: %s

USER DESCRIPTION: "%s"

INSTRUCTIONS:
1. Analyze the user's description and identify the components needed
2. Map each component to one of the supported node types
3. Create connections between components based on logical relationships
4. Group related components into clusters when appropriate
5. Return a valid JSON structure with the exact schema below

REQUIRED JSON SCHEMA:
{
    "name": "Diagram Title",
    "nodes": [
        {
            "id": "unique_node_id",
            "type": "node_type_from_supported_list",
            "label": "Display Name",
            "cluster_id": "optional_cluster_id"
        }
    ],
    "connections": [
        {
            "from": "source_node_id",
            "to": "target_node_id",
            "label": "optional edge label"
        }
    ],
    "clusters": [
        {
            "id": "unique_cluster_id",
            "name": "Cluster Name",
            "parent_id": "optional_parent_cluster_id"
        }
    ]
}

RULES:
- Only use node types from the supported list
- Each node must have a unique ID
- Connections must reference valid node IDs
- Clusters are optional but recommended for logical grouping
- A cluster must never be its own ancestor
- Return ONLY valid JSON, no other text

EXAMPLES OF MAPPINGS:
- "web server" -> "ec2"
- "database" -> "rds"
- "load balancer" -> "alb"
- "message queue" -> "sqs"
- "monitoring" -> "cloudwatch"
`

// correctionTemplate follows a rejected answer. Verbs: original prompt,
// previous output, decoder diagnostic.
const correctionTemplate = `%s

YOUR PREVIOUS ANSWER:
%s

It could not be used: %s

Answer again with ONLY the corrected JSON object, following the schema exactly.
`

// GenerationPrompt renders the generation prompt. types must already be sorted
// so identical inputs produce identical prompts.
func GenerationPrompt(description string, types []string) string {
	return fmt.Sprintf(generationTemplate, strings.Join(types, ", "), description)
}

// CorrectionPrompt asks the model to repair output that failed to decode
func CorrectionPrompt(prompt, previous string, problem error) string {
	return fmt.Sprintf(correctionTemplate, strings.TrimRight(prompt, "\n"), previous, problem)
}

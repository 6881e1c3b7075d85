package planner

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/telos-labs/telos/pkg/core"
	"github.com/telos-labs/telos/pkg/llm"
)

var queryAnalysisSchema = &llm.ResponseSchema{
	Name: "QueryAnalysis",
	Schema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"concise_summary":           map[string]any{"type": "string"},
			"required_skills":           map[string]any{"type": "string"},
			"additional_considerations": map[string]any{"type": "string"},
		},
		"required": []string{"concise_summary", "required_skills", "additional_considerations"},
	},
}

var nextStepSchema = &llm.ResponseSchema{
	Name: "NextStep",
	Schema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"justification": map[string]any{"type": "string"},
			"context":       map[string]any{"type": "string"},
			"sub_goal":      map[string]any{"type": "string"},
			"tool_name":     map[string]any{"type": "string"},
		},
		"required": []string{"justification", "context", "sub_goal", "tool_name"},
	},
}

var verificationSchema = &llm.ResponseSchema{
	Name: "TraceVerification",
	Schema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"analysis":    map[string]any{"type": "string"},
			"stop_signal": map[string]any{"type": "string"},
		},
		"required": []string{"analysis", "stop_signal"},
	},
}

func analyzeQueryPrompt(task core.Task) string {
	return fmt.Sprintf(`Task: Analyze the given query with accompanying inputs and determine the skills and tools needed to address it effectively.

Image: %s

Context: %s

Query: %s

Instructions:
1. Carefully read and understand the query and any accompanying inputs.
2. Identify the main objectives or tasks within the query.
3. List the specific skills that would be necessary to address the query comprehensively.
4. Provide a brief explanation for each skill you've identified, describing how it would contribute to answering the query.

Your response should include:
1. A concise summary of the query's main points and objectives, as well as content in any accompanying inputs.
2. A list of required skills, with a brief explanation for each.
3. Any additional considerations that might be important for addressing the query effectively.

Please present your analysis in a clear, structured format.`, task.Image, task.Context, task.Goal)
}

func nextStepPrompt(task core.Task, analysis string, trace []core.Step, stepIndex, maxSteps int, available []string, metadata map[string]core.ToolDescriptor) string {
	return fmt.Sprintf(`Task: Determine the optimal next step to address the given query based on the provided analysis, available tools, and previous steps taken.

Context:
Query: %s
Image: %s
Query Analysis: %s

Available Tools:
%s

Tool Metadata:
%s

Previous Steps and Their Results:
%s

Current Step: %d in %d steps
Remaining Steps: %d

Instructions:
1. Analyze the context thoroughly, including the query, its analysis, any image, available tools and their metadata, and previous steps taken.

2. Determine the most appropriate next step by considering:
   - Key objectives from the query analysis
   - Capabilities of available tools
   - Logical progression of problem-solving
   - Outcomes from previous steps
   - Current step count and remaining steps

3. Select ONE tool best suited for the next step, keeping in mind the limited number of remaining steps.

4. Formulate a specific, achievable sub-goal for the selected tool that maximizes progress towards answering the query.

Response Format:
Your response MUST follow this structure:
1. Justification: Explain your choice in detail.
2. Context, Sub-Goal, and Tool: Present the context, sub-goal, and the selected tool ONCE with the following format:

Context: <context>
Sub-Goal: <sub_goal>
Tool Name: <tool_name>

Where:
- <context> MUST include ALL necessary information for the tool to function, including relevant data, file names, and variables from previous steps.
- <sub_goal> is a specific, achievable objective for the tool, based on its metadata and previous outcomes.
- <tool_name> MUST be the exact name of a tool from the available tools list.

Rules:
- Select only ONE tool for this step.
- The sub-goal MUST directly address the query and be achievable by the selected tool.
- The tool name MUST exactly match one from the available tools list: %s.`,
		task.Goal, task.Image, analysis,
		strings.Join(available, ", "),
		renderMetadata(metadata),
		renderTrace(trace),
		stepIndex, maxSteps, maxSteps-stepIndex,
		strings.Join(available, ", "))
}

func verifyPrompt(task core.Task, analysis string, trace []core.Step) string {
	return fmt.Sprintf(`Task: Verify if the current context is complete and if the query has been answered.

Context:
Query: %s
Image: %s
Query Analysis: %s

Previous Steps and Their Results:
%s

Instructions:
1. Analyze the current context and previous steps.
2. Determine if the query has been answered.
3. If not, identify what is missing.

Response Format:
Your response MUST follow this structure:
1. Analysis: Explain your reasoning.
2. Conclusion: Either "CONTINUE" or "STOP".

Rules:
- "CONTINUE" if more steps are needed.
- "STOP" if the query has been answered.`,
		task.Goal, task.Image, analysis, renderTrace(trace))
}

func finalizePrompt(task core.Task, trace []core.Step) string {
	return fmt.Sprintf(`Task: Generate a comprehensive final output based on the task execution results.

Query: %s
Image: %s

Previous Steps and Their Results:
%s

Instructions:
1. Review the original query and any accompanying inputs.
2. Analyze the results from all previous steps.
3. Synthesize the information into a clear, coherent response.
4. Ensure the response directly addresses the original query.
5. Include relevant details and explanations where necessary.

Your response should:
1. Be clear and concise
2. Directly answer the query
3. Include relevant details from the execution results
4. Be well-structured and easy to understand

Please provide your final output in a clear, structured format.`,
		task.Goal, task.Image, renderTrace(trace))
}

// renderTrace serializes the trace for prompt embedding. The whole trace is
// replayed on every call; see memory.Trace.Snapshot for the tradeoff.
func renderTrace(trace []core.Step) string {
	if len(trace) == 0 {
		return "(no steps taken yet)"
	}
	data, err := json.MarshalIndent(trace, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", trace)
	}
	return string(data)
}

func renderMetadata(metadata map[string]core.ToolDescriptor) string {
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", metadata)
	}
	return string(data)
}

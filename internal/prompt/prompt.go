// Package prompt renders the instruction text sent to the generation provider.
package prompt

import "strings"

// Input is everything the template needs. Instruction is the resolved
// communication style for ParentType.
type Input struct {
	ParentType       string
	Instruction      string
	EmailContext     string
	SituationContext string
}

const requirements = `Write a professional email response that:
1. Matches the parent's personality type and communication preferences
2. Addresses their concerns directly
3. Provides relevant information from the teacher's situation
4. Maintains a professional, respectful tone
5. Includes appropriate next steps or follow-up

Format the response as a complete email (including greeting and closing).`

// Build returns the prompt for in. It performs no escaping: both contexts
// are embedded verbatim.
func Build(in Input) string {
	var sb strings.Builder
	sb.WriteString("You are helping a teacher write a response email to a parent. \n\n")

	sb.WriteString("Parent's personality type: ")
	sb.WriteString(in.ParentType)
	sb.WriteString("\nCommunication style needed: ")
	sb.WriteString(in.Instruction)

	sb.WriteString("\n\nPARENT'S EMAIL:\n")
	sb.WriteString(in.EmailContext)

	sb.WriteString("\n\nTEACHER'S SITUATION:\n")
	sb.WriteString(in.SituationContext)

	sb.WriteString("\n\n")
	sb.WriteString(requirements)
	return sb.String()
}

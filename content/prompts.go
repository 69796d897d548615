package content

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	profileSystemPrompt = "You are a helpful professional research assistant."
	noteSystemPrompt    = "You are an expert networking assistant."
	analystSystemPrompt = "You are a senior research analyst."
)

const profileFormat = `# [Name]
## Current Position
[Title, Company]

## Professional Summary
[2-3 sentences]

## Career History
- [Role, Company, Dates if available]

## Education
- [Degree, Institution]

## Key Achievements
- [Achievement 1]
- [Achievement 2]

## Recent Work/Projects
- [Project/Work]

## Sources
[List URLs used]`

func profilePrompt(in Inputs) (string, error) {
	data, err := json.MarshalIndent(in.ResearchData, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode research data: %w", err)
	}
	return fmt.Sprintf(`You are an expert research assistant. Create a comprehensive professional profile based on the following raw search data.

Raw Data:
%s

Format the output exactly as follows:

%s

If information is missing, state "Not found in available search results."`, data, profileFormat), nil
}

func notePrompt(in Inputs) string {
	context := strings.TrimSpace(in.Context)
	if context == "" {
		context = "General professional connection"
	}
	return fmt.Sprintf(`Write a LinkedIn connection note based on this profile:

%s

Constraints:
- Length: Approximately %d characters (strict limit).
- Tone: %s
- Context/Reason: %s

Output ONLY the message text.`, in.ProfileText, in.Length, in.Tone, context)
}

func planPrompt(in Inputs) string {
	return fmt.Sprintf(`I need to research the following topic deeply:
"%s"

If the topic names a person, check whether they are a director in a company.
Generate %d specific search queries that will help gather comprehensive information on this topic.
Return ONLY the queries as a JSON list of strings.
Example: ["query 1", "query 2", ...]`, in.Topic, PlannedQueries)
}

func reportPrompt(in Inputs) string {
	return fmt.Sprintf(`Write a comprehensive deep research report on "%s" based on the gathered information below.

Research Data:
%s

The report should be detailed, structured, and professional. Use Markdown formatting.
Include:
- Executive Summary
- Detailed Analysis
- Key Findings
- Sources (cited inline or at the end)`, in.Topic, in.ResearchContext)
}

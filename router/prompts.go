package router

import (
	"fmt"
	"strings"
)

const seedHeading = "Initial Research Context:"

func researchTask(topic string) string {
	return fmt.Sprintf(`Conduct deep research on the following topic:
"%s"

Search the web, read the most relevant pages, and write a comprehensive, well-structured report in Markdown.
Include an executive summary, key findings, detailed analysis and a conclusion. Cite source URLs inline.`, topic)
}

func profileTask(name, company, additionalInfo string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Research the professional background of %s", name)
	if company != "" {
		fmt.Fprintf(&b, " at %s", company)
	}
	b.WriteString(".\n")
	if additionalInfo != "" {
		fmt.Fprintf(&b, "Additional information: %s\n", additionalInfo)
	}
	b.WriteString(`
Check past research with get_history before searching. Search for their current role, career history, education and notable work, and scrape the most informative pages.
Then write a concise professional profile in Markdown with the sections: Current Role, Professional Background, Education, Key Achievements, Interests and Focus Areas.
Only state facts supported by what you found.`)
	return b.String()
}

// seeded appends earlier output to a tools task under a fixed heading.
func seeded(task, context string) string {
	return task + "\n\n" + seedHeading + "\n" + context
}

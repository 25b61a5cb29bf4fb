package review

// collectPrompt asks for paper suggestions on the topic.
const collectPrompt = `Generate a list of important research papers for a literature review on: %s

Provide 5-10 relevant paper suggestions with:
- Title
- Authors (if known)
- Year
- Brief description of relevance

Format as a numbered list.`

// uploadInstructions is shown to the user while the upload stage waits.
const uploadInstructions = `Please complete the following steps:

1. Download the suggested papers
2. Save them in the papers directory: %s
3. Register any papers the directory watcher missed with the papers add command

Once the papers are in place, mark this task complete to continue the workflow.`

// analyzePrompt asks for a per-paper analysis.
const analyzePrompt = `Analyze the following research paper and provide:
1. A brief summary (2-3 sentences)
2. Key findings (3-5 bullet points)
3. Relevance to the literature review

Paper Title: %s
Authors: %s
Abstract: %s

Provide a concise analysis.`

// outlinePrompt asks for the review structure given the analyzed papers.
const outlinePrompt = `Create a comprehensive outline for a literature review on: %s

%s

The outline should include:
1. Introduction
2. Background/Context
3. Main themes/sections (3-5 major sections)
4. Discussion
5. Conclusion
6. References

For each section, provide:
- Section title
- 2-3 key points to cover
- Relevant papers to cite (if applicable)

Format as a structured markdown outline.`

// writePrompt asks for the full review following the outline.
const writePrompt = `Write a comprehensive literature review on: %s

Use the following outline:
%s

Papers available for citation:
%s

Write a complete, well-structured literature review with:
- Clear introduction
- Thorough analysis of the literature
- Proper flow between sections
- Insightful discussion
- Strong conclusion

Format in Markdown with proper headings and citations.`

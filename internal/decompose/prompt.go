package decompose

// decompositionPrompt is the prompt template for goal decomposition.
const decompositionPrompt = `You are a task planning expert. Break down the following goal into clear, actionable subtasks.

Goal: %s

Provide a numbered list of subtasks in the following format:
1. [Task Title]: [Detailed description]
2. [Task Title]: [Detailed description]
...

Guidelines:
- Order the subtasks so each one can use the results of the ones before it
- Keep each subtask focused and actionable
- 3 to 8 subtasks is usually enough; do not pad the list
- Return ONLY the numbered list, no other text`

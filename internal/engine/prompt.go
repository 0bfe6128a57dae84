package engine

// LLM prompt templates — data only, no logic.

// summarySystemPrompt is the default instruction sent as the system message.
const summarySystemPrompt = `You are a helpful assistant that summarizes YouTube transcripts. Provide a clear, concise summary that captures the main points and key insights from the transcript.`

// summaryUserPrompt wraps the transcript. Args: transcript text, truncation note.
const summaryUserPrompt = `Please summarize this YouTube transcript in a clear and organized way:

%s%s`

// truncationNote is appended when the transcript exceeded the input budget.
const truncationNote = `

Note: the transcript was truncated to fit the input limit. Summarize only the part shown and mention that the video continues beyond it.`

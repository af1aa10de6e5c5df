package models

// InsufficientContextAnswer is returned by the composer when retrieval
// produced nothing to ground an answer in. The generator is never called in
// that case.
const InsufficientContextAnswer = "I could not find relevant passages in the document to answer this question."

var (
	AnswerPromptTemplate = `You are answering a question using only the document passages below.
<passages>
%s
</passages>
Question: %s
Answer using only the passages. If the passages do not contain the answer, say so. Do not use outside knowledge.
`

	SummaryPromptTemplate = `Summarize the following document passages in at most %d words. Cover the main points only.
<passages>
%s
</passages>
Answer with the summary and nothing else.
`

	QuestionPromptTemplate = `Read the passage below and write exactly one comprehension question that can be answered from the passage alone, followed by its answer.
<passage>
%s
</passage>
Reply in exactly this format:
Question: <the question>
Answer: <the answer taken from the passage>
`
)

package models

// Region is a labeled span of a document's extracted text, e.g. a page,
// sheet or markdown section. Offsets are byte positions into Document.Text.
type Region struct {
	Start int
	End   int
	Label string
}

// Document holds the extracted text of a single uploaded document plus the
// labeled regions it was assembled from.
type Document struct {
	Name    string
	Text    string
	Regions []Region
}

// Chunk is an immutable passage of the active document. IDs are the
// sequence index assigned at chunking time and are stable for the lifetime
// of the document load.
type Chunk struct {
	ID          int    `json:"id"`
	Text        string `json:"text"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
	SourceLabel string `json:"source_label"`
}

// RetrievedChunk pairs a chunk with its similarity score for a query.
type RetrievedChunk struct {
	Chunk Chunk
	Score float32
}

// Citation points at a chunk that grounded an answer.
type Citation struct {
	ChunkID     int    `json:"chunk_id"`
	SourceLabel string `json:"source_label"`
	Excerpt     string `json:"excerpt"`
}

// Answer is the composed response for a query or summary request.
type Answer struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"citations"`
}

// Exchange is one question/answer turn kept in the session history.
type Exchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ChallengeQuestion is one generated comprehension question with the
// chunk(s) it was derived from and the reference answer used for grading.
type ChallengeQuestion struct {
	ID              string `json:"id"`
	PromptText      string `json:"prompt_text"`
	SourceChunkIDs  []int  `json:"source_chunk_ids"`
	ReferenceAnswer string `json:"reference_answer"`
}

// Verdict classifies a user's answer against the reference material.
type Verdict string

const (
	VerdictCorrect          Verdict = "correct"
	VerdictPartiallyCorrect Verdict = "partially_correct"
	VerdictIncorrect        Verdict = "incorrect"
)

// ValidationResult is the graded outcome for one (question, answer) pair.
// It never mutates the question it refers to.
type ValidationResult struct {
	QuestionID      string  `json:"question_id"`
	Verdict         Verdict `json:"verdict"`
	Similarity      float32 `json:"similarity"`
	Explanation     string  `json:"explanation"`
	ReferenceAnswer string  `json:"reference_answer"`
}

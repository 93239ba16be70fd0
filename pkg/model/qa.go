package model

// Answer is the result of a retrieval-augmented question answering run.
// Documents holds the retrieved notes even when generation failed.
type Answer struct {
	Answer    string  `json:"answer"`
	Documents []*Note `json:"documents"`
}

package embeddings

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned for a nil text slice or an empty text.
	ErrEmptyInput = errors.New("empty input")

	// ErrInvalidConfig wraps every configuration problem.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed wraps backend failures.
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

func checkTexts(texts []string) error {
	if len(texts) == 0 {
		return fmt.Errorf("%w: no texts", ErrEmptyInput)
	}
	return nil
}

func checkText(text string) error {
	if text == "" {
		return fmt.Errorf("%w: blank text", ErrEmptyInput)
	}
	return nil
}

// backendError marks err as a backend failure, keeping its message.
func backendError(err error) error {
	if err == nil || errors.Is(err, ErrEmbeddingFailed) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
}

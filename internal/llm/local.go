package llm

import "context"

// LocalAnswer is the fixed text returned by LocalGenerator.
const LocalAnswer = "Based on the retrieved legal provisions, the applicable law is as follows."

// LocalGenerator is a deterministic offline backend. The citations and proof carry
// the substance of the response when it is used.
type LocalGenerator struct{}

// NewLocalGenerator returns the offline generator.
func NewLocalGenerator() *LocalGenerator {
	return &LocalGenerator{}
}

// Generate returns LocalAnswer.
func (g *LocalGenerator) Generate(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return LocalAnswer, nil
}

// Name returns "local".
func (g *LocalGenerator) Name() string {
	return "local"
}

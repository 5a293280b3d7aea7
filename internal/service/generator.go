package service

import "context"

// Generator is the uniform contract over the two remote generative
// capabilities. Implementations map every failure to the domain error
// taxonomy and never expose partial results; retries are the caller's
// decision.
type Generator interface {
	// GenerateText performs a single prompt/response exchange with the
	// text model
	GenerateText(ctx context.Context, prompt string) (string, error)

	// GenerateImage returns one complete image (bytes and MIME type)
	// for the prompt, assembled from possibly chunked delivery
	GenerateImage(ctx context.Context, prompt string) ([]byte, string, error)
}

package domain

import "errors"

var (
	// ErrNoTextDetected is returned when the OCR response contains no annotations at all
	ErrNoTextDetected = errors.New("no text detected in image")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrOCRAPIFailure is returned when the OCR API request fails
	ErrOCRAPIFailure = errors.New("OCR API request failed")

	// ErrLLMAPIFailure is returned when the LLM API request fails
	ErrLLMAPIFailure = errors.New("LLM API request failed")

	// ErrStructuredOutput is returned when a model response has no usable JSON document
	ErrStructuredOutput = errors.New("no valid structured output in response")
)

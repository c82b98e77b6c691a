package analysis

import "errors"

var (
	// ErrInvalidInput indicates a request rejected before any side effect.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedPlantType indicates a plant type outside the closed set.
	ErrUnsupportedPlantType = errors.New("unsupported plant type")

	// ErrInvalidImage indicates image bytes that could not be decoded.
	ErrInvalidImage = errors.New("invalid image")

	// ErrInvalidClassIndex indicates a class index outside the label list.
	ErrInvalidClassIndex = errors.New("invalid class index")

	// ErrInference indicates model load or prediction failure.
	ErrInference = errors.New("inference failed")

	// ErrNotFound indicates a missing record, blob, or AI payload.
	ErrNotFound = errors.New("not found")

	// ErrStorageUnavailable indicates a document/blob store transport failure.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

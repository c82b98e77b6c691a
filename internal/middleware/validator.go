package middleware

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// Input validation utilities for the analysis routes

// ValidatePlantType checks the plant type against the allowed list
func ValidatePlantType(plantType string) error {
	allowed := map[string]bool{
		"tomato": true,
		"potato": true,
		"pepper": true,
	}
	if !allowed[plantType] {
		return fmt.Errorf("invalid plant type: %s (allowed: tomato, potato, pepper)", plantType)
	}
	return nil
}

// ValidateID checks identifier format before anything touches storage
func ValidateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid id: %s", id)
	}
	return nil
}

// ParseCoordinates parses and range-checks form coordinates
func ParseCoordinates(latStr, lngStr string) (float64, float64, error) {
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid lat: %s", latStr)
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid lng: %s", lngStr)
	}
	if lat < -90 || lat > 90 {
		return 0, 0, fmt.Errorf("lat out of range: %v", lat)
	}
	if lng < -180 || lng > 180 {
		return 0, 0, fmt.Errorf("lng out of range: %v", lng)
	}
	return lat, lng, nil
}

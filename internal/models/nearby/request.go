package models

// Coordinates are pointers so presence can be validated: 0.0 is a legal
// latitude and longitude (equator, prime meridian), only a missing field is
// rejected.
type NearbyRequest struct {
	UserID    string   `json:"userId" binding:"required"`
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

package models

type NearbyResponse struct {
	Success     bool `json:"success"`
	NearbyCount int  `json:"nearbyCount"`
}

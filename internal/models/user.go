package models

// User is the public profile document kept in the users collection.
// The document ID equals the account ID issued at sign-up.
type User struct {
	ID                 string   `json:"id"`
	Username           string   `json:"username"`
	Email              string   `json:"email"`
	ProfileImageURL    *string  `json:"profileImageUrl,omitempty"`
	ProfileDescription *string  `json:"profileDescription,omitempty"`
	ReportedSightings  []string `json:"reportedSightings"`
	Comments           []string `json:"comments"`
}

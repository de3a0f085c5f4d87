package models

// BasicRegisterRequest is the first registration step.
type BasicRegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// Profile holds the member details collected when registration completes.
type Profile struct {
	FirstName                    string `json:"fname" binding:"required"`
	LastName                     string `json:"lname" binding:"required"`
	Bio                          string `json:"bio"`
	DateOfBirth                  string `json:"date_of_birth" example:"1990-04-12"`
	Gender                       string `json:"gender"`
	Member                       bool   `json:"member"`
	Visitor                      bool   `json:"visitor"`
	PhoneNumber                  string `json:"phone_number"`
	Profession                   string `json:"profession"`
	UserHouseAddress             string `json:"user_house_address"`
	CampusState                  string `json:"campus_state"`
	CampusCountry                string `json:"campus_country"`
	EmergencyContactName         string `json:"emergency_contact_name"`
	EmergencyContactPhone        string `json:"emergency_contact_phone"`
	EmergencyContactEmail        string `json:"emergency_contact_email" binding:"omitempty,email"`
	EmergencyContactRelationship string `json:"emergency_contact_relationship"`
}

// CompleteRegisterRequest is the second registration step with full details.
type CompleteRegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Profile
}

// LoginRequest is the request body for password login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest exchanges a refresh token for a new token pair.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// User is a registered member or visitor.
type User struct {
	ID    string `json:"id,omitempty"`
	Email string `json:"email"`
	Profile
}

// AuthResponse is returned by register, login and refresh.
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
	ExpiresIn    int    `json:"expires_in"` // seconds
}

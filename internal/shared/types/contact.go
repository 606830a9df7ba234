package types

// ContactInfo holds the phone numbers shared by users and clients.
type ContactInfo struct {
	PhoneNumber  string `json:"phone_number,omitempty"`
	MobileNumber string `json:"mobile_number,omitempty"`
}

package entity

const (
	RoleAdmin    = "admin"
	RoleAdvocate = "advocate"
	RolePayer    = "user"
)

// User is the slice of the portal's user profile this service reads.
type User struct {
	ID    string `json:"id" firestore:"id"`
	Email string `json:"email" firestore:"email"`
	Role  string `json:"role" firestore:"role"`
}

// File: internal/profile/model.go
package profile

import "time"

// Role tags a profile as a coach or a regular member.
type Role string

const (
	RoleCoach  Role = "coach"
	RoleMember Role = "member"
)

// TimestampLayout is ISO-8601 in UTC with millisecond precision, the format
// already used by existing documents in the collection.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// EffectiveRole maps a stored role value to a Role. Only the exact value
// "coach" is a coach; missing or unknown values are members.
func EffectiveRole(raw interface{}) Role {
	s, _ := raw.(string)
	if Role(s) == RoleCoach {
		return RoleCoach
	}
	return RoleMember
}

// Profile is the document written for every provisioned account, keyed by UID.
type Profile struct {
	UID        string `json:"uid" firestore:"uid" bson:"uid" gorm:"column:uid;primaryKey;type:varchar(128)"`
	Email      string `json:"email" firestore:"email" bson:"email" gorm:"column:email;type:varchar(255);not null"`
	Name       string `json:"name" firestore:"name" bson:"name" gorm:"column:name;type:varchar(255);not null"`
	Role       Role   `json:"role" firestore:"role" bson:"role" gorm:"column:role;type:varchar(32);not null;default:'member'"`
	Specialty  string `json:"specialty" firestore:"specialty" bson:"specialty" gorm:"column:specialty;type:varchar(255)"`
	CreatedAt  string `json:"createdAt" firestore:"createdAt" bson:"createdAt" gorm:"column:created_at;type:varchar(32);not null"`
	IsVerified bool   `json:"isVerified" firestore:"isVerified" bson:"isVerified" gorm:"column:is_verified;not null;default:false"`
}

// ToDocument renders the profile with the same keys the document stores use.
func (p *Profile) ToDocument() Document {
	return Document{
		"uid":        p.UID,
		"email":      p.Email,
		"name":       p.Name,
		"role":       string(p.Role),
		"specialty":  p.Specialty,
		"createdAt":  p.CreatedAt,
		"isVerified": p.IsVerified,
	}
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Document is a profile record exactly as the store returned it.
type Document map[string]interface{}

// --- DTOs (Data Transfer Objects) for API requests/responses ---

// CreateCoachRequest carries the dashboard form. Nothing is validated here;
// the identity provider decides what a valid email and password are.
type CreateCoachRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Name      string `json:"name"`
	Specialty string `json:"specialty,omitempty"`
}

// ProvisionResult is the success half of the provisioning result.
type ProvisionResult struct {
	UID     string
	Profile *Profile
}

type CreateCoachResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	UID     string `json:"uid"`
}

type ListUsersResponse struct {
	Success bool       `json:"success"`
	Users   []Document `json:"users"`
}

// Stats mirrors the dashboard's overview cards.
type Stats struct {
	TotalUsers int `json:"totalUsers"`
	Coaches    int `json:"coaches"`
	Members    int `json:"members"`
}

type StatsResponse struct {
	Success bool  `json:"success"`
	Stats   Stats `json:"stats"`
}

package auth

import (
	"time"

	"github.com/shahzadkashif/Classrooms/internal/db"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Teacher is an account that owns classrooms.
type Teacher struct {
	bun.BaseModel `bun:"table:teachers,alias:t"`

	ID        int       `bun:"id,pk,autoincrement" json:"id"`
	Username  string    `bun:"username,unique,notnull,type:varchar(150)" json:"username"`
	Password  string    `bun:"password,notnull" json:"-"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
}

// Session is a server-side login. The auth cookie carries its ID.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:s"`

	ID        uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	TeacherID int       `bun:"teacher_id,notnull" json:"teacherId"`
	CSRFToken string    `bun:"csrf_token,notnull" json:"csrfToken"`
	ExpiresAt time.Time `bun:"expires_at,notnull" json:"expiresAt"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
}

// Identity is the caller of a request. The zero value is anonymous.
type Identity struct {
	TeacherID int    `json:"teacherId"`
	Username  string `json:"username"`
}

var Anonymous = Identity{}

func (i Identity) IsAnonymous() bool {
	return i.TeacherID == 0
}

// bcrypt rejects passwords longer than 72 bytes.
type SignupRequest struct {
	Username string `form:"username" validate:"required,max=150,username"`
	Password string `form:"password" validate:"required,min=8,maxbytes=72"`
}

type SigninRequest struct {
	Username string `form:"username" validate:"required,max=150"`
	Password string `form:"password" validate:"required"`
}

// Tables lists the auth tables in creation order.
func Tables() []db.Table {
	return []db.Table{
		{Model: (*Teacher)(nil)},
		{
			Model:       (*Session)(nil),
			ForeignKeys: []string{`("teacher_id") REFERENCES "teachers" ("id") ON DELETE CASCADE`},
		},
	}
}

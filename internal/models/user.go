package models

import "time"

// PasswordChangeSkew — на сколько раньше "сейчас" фиксируется смена пароля,
// чтобы токен, выданный сразу после сохранения, не считался устаревшим.
const PasswordChangeSkew = time.Second

type User struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	Email                string     `json:"email"`
	Photo                string     `json:"photo"`
	Role                 Role       `json:"role"`
	PasswordHash         string     `json:"-"`
	PasswordChangedAt    *time.Time `json:"-"`
	Active               bool       `json:"-"`
	PasswordResetToken   *string    `json:"-"`
	PasswordResetExpires *time.Time `json:"-"`
	CreatedAt            time.Time  `json:"created_at"`
}

// SetPasswordHash — единственный путь смены пароля: новый хеш + сдвиг password_changed_at.
// Роль, email и active не трогает. password_changed_at не уменьшается.
func (u *User) SetPasswordHash(hash string, now time.Time) {
	u.PasswordHash = hash
	changed := now.Add(-PasswordChangeSkew)
	if u.PasswordChangedAt != nil && changed.Before(*u.PasswordChangedAt) {
		return
	}
	u.PasswordChangedAt = &changed
}

// ChangedPasswordAfter — true, если пароль меняли после выдачи токена (сравнение в секундах, как iat в JWT).
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.Unix() < u.PasswordChangedAt.Unix()
}

func (u *User) SetResetToken(hash string, expiresAt time.Time) {
	u.PasswordResetToken = &hash
	u.PasswordResetExpires = &expiresAt
}

func (u *User) ClearResetToken() {
	u.PasswordResetToken = nil
	u.PasswordResetExpires = nil
}

type UpdateMeRequest struct {
	Name            *string `json:"name,omitempty"`
	Email           *string `json:"email,omitempty"`
	Password        *string `json:"password,omitempty"`
	PasswordConfirm *string `json:"passwordConfirm,omitempty"`
}

type UpdateUserRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
	Role  *Role   `json:"role,omitempty"`
}

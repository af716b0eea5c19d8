package models

// Identity — проверенный владелец запроса (после Protect).
type Identity struct {
	UserID string
	Role   Role
}
